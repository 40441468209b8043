package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/configutil"
	"nepsemarket-backend/lib/configutil/sqliteconfig"
	"nepsemarket-backend/lib/serviceutil"
	"nepsemarket-backend/lib/telemetry"
	"nepsemarket-backend/services/marketdata"
	marketdatadb "nepsemarket-backend/services/marketdata/db"
)

type Config struct {
	Database sqliteconfig.Struct `json:"database"`
	// Source is the site to sync from: merolagani, sharesansar or
	// nepalstock.
	Source string `json:"source"`
	// PriceIntervalMinutes between full price sweeps.
	PriceIntervalMinutes int `json:"price_interval_minutes"`
	// NewsIntervalMinutes between news pulls.
	NewsIntervalMinutes int `json:"news_interval_minutes"`
	// NewsMax caps stored articles per news pull.
	NewsMax  int  `json:"news_max"`
	Headless bool `json:"headless"`
	Port     int  `json:"port"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Source == "" {
		config.Source = marketdata.SourceMerolagani
	}
	if config.PriceIntervalMinutes <= 0 {
		config.PriceIntervalMinutes = 60
	}
	if config.NewsIntervalMinutes <= 0 {
		config.NewsIntervalMinutes = 30
	}
	if config.NewsMax <= 0 {
		config.NewsMax = 50
	}
	if config.Port <= 0 {
		config.Port = 8450
	}

	database, err := config.Database.OpenDB(marketdatadb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "marketdatad")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	newSession := func(ctx context.Context) (browser.Session, error) {
		return browser.Launch(ctx, browser.Options{Headless: config.Headless})
	}
	service := marketdata.NewService(database, newSession)

	go priceLoop(ctx, service, config)
	go newsLoop(ctx, service, config)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}

func priceLoop(ctx context.Context, service marketdata.Service, config Config) {
	interval := time.Duration(config.PriceIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stored, err := service.RunAllPriceSync(ctx, config.Source, marketdata.SyncOptions{})
		if err != nil {
			slog.ErrorContext(ctx, "price sweep failed", "err", err)
		} else {
			slog.InfoContext(ctx, "price sweep finished", "stored", stored)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newsLoop(ctx context.Context, service marketdata.Service, config Config) {
	interval := time.Duration(config.NewsIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stored, err := service.RunNewsSync(ctx, config.Source, config.NewsMax)
		if err != nil {
			slog.ErrorContext(ctx, "news pull failed", "err", err)
		} else {
			slog.InfoContext(ctx, "news pull finished", "stored", stored)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
