package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nepsemarket-backend/services/marketdata"
)

var (
	syncMax int
)

func init() {
	syncCmd.PersistentFlags().IntVar(&syncMax, "max", 0, "cap on stored records, 0 for unlimited")
	syncCmd.AddCommand(syncPriceCmd)
	syncCmd.AddCommand(syncFloorsheetCmd)
	syncCmd.AddCommand(syncNewsCmd)
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pulls fresh data from the configured source.",
}

var syncPriceCmd = &cobra.Command{
	Use:   "price [symbol]",
	Short: "Syncs price history; with no symbol, sweeps every registered security.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := marketdata.SyncOptions{MaxRecords: syncMax}

		var stored int
		var err error
		if len(args) == 1 {
			stored, err = service.RunPriceSync(cmd.Context(), source, args[0], opts)
		} else {
			stored, err = service.RunAllPriceSync(cmd.Context(), source, opts)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("stored %d price points\n", stored)
	},
}

var syncFloorsheetCmd = &cobra.Command{
	Use:   "floorsheet <symbol>",
	Short: "Syncs today's floor-sheet entries for a symbol.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		stored, err := service.RunFloorsheetSync(
			cmd.Context(), source, args[0],
			marketdata.SyncOptions{MaxRecords: syncMax},
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("stored %d trade records\n", stored)
	},
}

var syncNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "Pulls fresh market news.",
	Run: func(cmd *cobra.Command, args []string) {
		max := syncMax
		if max <= 0 {
			max = 50
		}
		stored, err := service.RunNewsSync(cmd.Context(), source, max)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Printf("stored %d news items\n", stored)
	},
}
