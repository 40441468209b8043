package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"nepsemarket-backend/lib/timezone"
)

func init() {
	securityCmd.AddCommand(securityAddCmd)
	securityCmd.AddCommand(securityListCmd)
	securityCmd.AddCommand(securityDeleteCmd)
	rootCmd.AddCommand(securityCmd)
}

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Manages the set of securities being tracked.",
}

var securityAddCmd = &cobra.Command{
	Use:   "add <symbol> <name...>",
	Short: "Registers a security for syncing.",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		symbol := strings.ToUpper(args[0])
		name := strings.Join(args[1:], " ")

		err := service.AddSecurity(cmd.Context(), symbol, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("added %s (%s)\n", symbol, name)
	},
}

var securityListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the tracked securities.",
	Run: func(cmd *cobra.Command, args []string) {
		securities, err := service.ListSecurities(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Symbol", "Name", "Added"})

		for _, s := range securities {
			added := time.Unix(s.CreatedAt, 0).In(timezone.Location).Format("2006-01-02")
			t.AppendRow(table.Row{s.Symbol, s.Name, added})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var securityDeleteCmd = &cobra.Command{
	Use:   "delete <symbol>",
	Short: "Removes a security and its stored price history.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		symbol := strings.ToUpper(args[0])
		err := service.DeleteSecurity(cmd.Context(), symbol)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("deleted %s\n", symbol)
	},
}
