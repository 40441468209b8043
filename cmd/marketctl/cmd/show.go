package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"nepsemarket-backend/lib/timezone"
)

var showLimit int64

func init() {
	showCmd.PersistentFlags().Int64Var(&showLimit, "limit", 20, "max rows to print")
	showCmd.AddCommand(showPricesCmd)
	showCmd.AddCommand(showTradesCmd)
	showCmd.AddCommand(showNewsCmd)
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints stored data.",
}

func fmtNull(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

var showPricesCmd = &cobra.Command{
	Use:   "prices <symbol>",
	Short: "Prints stored price history for a symbol, newest first.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		points, err := service.ListPricePoints(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Open", "High", "Low", "Close"})

		for i, p := range points {
			if int64(i) >= showLimit {
				break
			}
			t.AppendRow(table.Row{
				p.Date, fmtNull(p.Open), fmtNull(p.High), fmtNull(p.Low), fmtNull(p.Close),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var showTradesCmd = &cobra.Command{
	Use:   "trades <symbol>",
	Short: "Prints stored floor-sheet entries for a symbol.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		trades, err := service.ListTradeRecords(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Transaction", "Buyer", "Seller", "Quantity", "Rate", "Amount"})

		for i, tr := range trades {
			if int64(i) >= showLimit {
				break
			}
			t.AppendRow(table.Row{
				tr.TransactionID, tr.Buyer, tr.Seller,
				fmtNull(tr.Quantity), fmtNull(tr.Rate), fmtNull(tr.Amount),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var showNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "Prints stored news items, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		items, err := service.ListNewsItems(cmd.Context(), showLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Published", "Source", "Title", "URL"})

		for _, n := range items {
			published := time.Unix(n.PublishedAt, 0).In(timezone.Location).Format("2006-01-02 15:04")
			t.AppendRow(table.Row{published, n.Source, n.Title, n.Url})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
