package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/configutil/sqliteconfig"
	"nepsemarket-backend/lib/telemetry"
	"nepsemarket-backend/services/marketdata"
	marketdatadb "nepsemarket-backend/services/marketdata/db"
)

var (
	dbFile   string
	source   string
	headless bool

	service marketdata.Service
)

var rootCmd = &cobra.Command{
	Use:   "marketctl",
	Short: "marketctl drives the NEPSE market-data aggregator from the command line.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(false)

		database, err := sqliteconfig.Struct{File: dbFile}.OpenDB(marketdatadb.Schema)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		newSession := func(ctx context.Context) (browser.Session, error) {
			return browser.Launch(ctx, browser.Options{Headless: headless})
		}
		service = marketdata.NewService(database, newSession)
		return nil
	},
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "marketdata.db", "path to the sqlite database")
	rootCmd.PersistentFlags().StringVar(&source, "source", marketdata.SourceMerolagani, "site to scrape: merolagani, sharesansar or nepalstock")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser headless")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
