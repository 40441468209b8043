// Package marketdata aggregates NEPSE price history, floor sheets and
// market news from several third-party sites into one relational store.
// Each Run* operation drives one browser session against one source and
// reports how many records it stored; scraping failures inside a run
// degrade to partial counts instead of errors.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/scrapers/merolagani"
	"nepsemarket-backend/lib/scrapers/nepalstock"
	"nepsemarket-backend/lib/scrapers/sharesansar"
	"nepsemarket-backend/lib/scrapers/webclient"
	"nepsemarket-backend/lib/timezone"
	"nepsemarket-backend/services/marketdata/db"
)

var tracer = otel.Tracer("nepsemarket.services.marketdata")

const (
	SourceMerolagani  = "merolagani"
	SourceSharesansar = "sharesansar"
	SourceNepalstock  = "nepalstock"
)

// SessionFactory opens a fresh browser session. Each sync invocation
// gets exactly one; the service closes it on every exit path.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// tableFetcher is the shape shared by price and floor-sheet drivers.
type tableFetcher interface {
	Fetch(ctx context.Context, symbol string, emit func(rec map[string]string) bool) error
}

// newsFetcher is the two-phase news driver shape.
type newsFetcher interface {
	Fetch(ctx context.Context, skip func(url string) bool, emit func(rec map[string]string) bool) error
}

// SyncOptions bound an incremental sync beyond its stored watermark.
type SyncOptions struct {
	// MaxRecords caps stored records; zero means unlimited.
	MaxRecords int
	// EarliestDate is a hard cutoff; zero disables it.
	EarliestDate time.Time
}

type Service struct {
	store      *Store
	newSession SessionFactory
	http       *resty.Client
}

func NewService(database *sql.DB, newSession SessionFactory) Service {
	return Service{
		store:      NewStore(database),
		newSession: newSession,
		http:       webclient.New(),
	}
}

// RunPriceSync scrapes symbol's price history from source until the
// sync policy stops it. Returns the stored count; the only error is a
// failure to reach the source at all.
func (s Service) RunPriceSync(ctx context.Context, source, symbol string, opts SyncOptions) (int, error) {
	ctx, span := tracer.Start(ctx, "RunPriceSync")
	defer span.End()
	span.SetAttributes(attribute.String("source", source), attribute.String("symbol", symbol))

	ok, err := s.store.HasSecurity(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !ok {
		slog.WarnContext(ctx, "unknown security, skipping batch", "symbol", symbol)
		return 0, nil
	}

	policy := SyncPolicy{MaxRecords: opts.MaxRecords, EarliestDate: opts.EarliestDate}
	if watermark, ok := s.store.LatestPriceDate(ctx, symbol); ok {
		policy.Watermark = watermark
	}

	session, err := s.newSession(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	driver, err := s.priceDriver(source, session)
	if err != nil {
		return 0, err
	}

	err = driver.Fetch(ctx, symbol, func(rec map[string]string) bool {
		point, perr := NormalizePrice(symbol, rec)
		if perr != nil {
			slog.WarnContext(ctx, "skipping unparseable price row", "symbol", symbol, "err", perr)
			return true
		}
		if policy.Admit(point.Date) == VerdictStop {
			return false
		}
		if s.store.InsertPricePoint(ctx, point) == Stored {
			policy.RecordStored()
		}
		return true
	})
	if err != nil {
		return policy.Stored(), fmt.Errorf("failed to reach %s: %w", source, err)
	}

	slog.InfoContext(ctx, "price sync finished",
		"source", source, "symbol", symbol, "stored", policy.Stored())
	return policy.Stored(), nil
}

// RunAllPriceSync runs a price sync for every registered security.
// Symbols fail independently; one broken company page does not stop
// the sweep.
func (s Service) RunAllPriceSync(ctx context.Context, source string, opts SyncOptions) (int, error) {
	ctx, span := tracer.Start(ctx, "RunAllPriceSync")
	defer span.End()

	securities, err := s.store.ListSecurities(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, sec := range securities {
		stored, err := s.RunPriceSync(ctx, source, sec.Symbol, opts)
		total += stored
		if err != nil {
			slog.WarnContext(ctx, "price sync failed for symbol",
				"source", source, "symbol", sec.Symbol, "err", err)
		}
	}
	return total, nil
}

// RunFloorsheetSync scrapes symbol's floor-sheet entries for the
// current trading day. Trade records are keyed by transaction id, so
// duplicates are skipped record by record instead of stopping at a
// watermark.
func (s Service) RunFloorsheetSync(ctx context.Context, source, symbol string, opts SyncOptions) (int, error) {
	ctx, span := tracer.Start(ctx, "RunFloorsheetSync")
	defer span.End()
	span.SetAttributes(attribute.String("source", source), attribute.String("symbol", symbol))

	ok, err := s.store.HasSecurity(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !ok {
		slog.WarnContext(ctx, "unknown security, skipping batch", "symbol", symbol)
		return 0, nil
	}

	tradeDate := timezone.Today()
	policy := SyncPolicy{MaxRecords: opts.MaxRecords}

	session, err := s.newSession(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	driver, err := s.floorsheetDriver(source, session)
	if err != nil {
		return 0, err
	}

	err = driver.Fetch(ctx, symbol, func(rec map[string]string) bool {
		trade, terr := NormalizeTrade(symbol, tradeDate, rec)
		if terr != nil {
			slog.WarnContext(ctx, "skipping unparseable trade row", "symbol", symbol, "err", terr)
			return true
		}
		if policy.Admit(trade.Date) == VerdictStop {
			return false
		}
		if s.store.InsertTradeRecord(ctx, trade) == Stored {
			policy.RecordStored()
		}
		return true
	})
	if err != nil {
		return policy.Stored(), fmt.Errorf("failed to reach %s: %w", source, err)
	}

	slog.InfoContext(ctx, "floorsheet sync finished",
		"source", source, "symbol", symbol, "stored", policy.Stored())
	return policy.Stored(), nil
}

// RunNewsSync scrapes up to max fresh articles from source. Articles
// already stored with a body are skipped before their detail page is
// ever fetched; bodyless stubs from an earlier failed detail fetch are
// retried so the body gets back-filled.
func (s Service) RunNewsSync(ctx context.Context, source string, max int) (int, error) {
	ctx, span := tracer.Start(ctx, "RunNewsSync")
	defer span.End()
	span.SetAttributes(attribute.String("source", source), attribute.Int("max", max))

	policy := SyncPolicy{MaxRecords: max}
	if watermark, ok := s.store.LatestNewsTimestamp(ctx, source); ok {
		policy.Watermark = watermark
	}

	session, err := s.newSession(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	driver, err := s.newsDriver(source, session)
	if err != nil {
		return 0, err
	}

	skip := func(url string) bool {
		return s.store.HasNewsItem(ctx, url)
	}
	err = driver.Fetch(ctx, skip, func(rec map[string]string) bool {
		item, nerr := NormalizeNews(source, rec)
		if nerr != nil {
			slog.WarnContext(ctx, "skipping unusable news item", "source", source, "err", nerr)
			return true
		}
		if policy.Admit(item.PublishedAt) == VerdictStop {
			return false
		}
		if s.store.InsertNewsItem(ctx, item) == Stored {
			policy.RecordStored()
		}
		return true
	})
	if err != nil {
		return policy.Stored(), fmt.Errorf("failed to reach %s: %w", source, err)
	}

	slog.InfoContext(ctx, "news sync finished", "source", source, "stored", policy.Stored())
	return policy.Stored(), nil
}

func (s Service) priceDriver(source string, session browser.Session) (tableFetcher, error) {
	switch source {
	case SourceMerolagani:
		return merolagani.NewPriceDriver(session), nil
	case SourceSharesansar:
		return sharesansar.NewPriceDriver(session), nil
	case SourceNepalstock:
		return nepalstock.NewPriceDriver(session), nil
	}
	return nil, fmt.Errorf("no price driver for source %q", source)
}

func (s Service) floorsheetDriver(source string, session browser.Session) (tableFetcher, error) {
	switch source {
	case SourceMerolagani:
		return merolagani.NewFloorsheetDriver(session), nil
	case SourceSharesansar:
		return sharesansar.NewFloorsheetDriver(session), nil
	}
	return nil, fmt.Errorf("no floorsheet driver for source %q", source)
}

func (s Service) newsDriver(source string, session browser.Session) (newsFetcher, error) {
	switch source {
	case SourceMerolagani:
		return merolagani.NewNewsDriver(session, s.http), nil
	case SourceSharesansar:
		return sharesansar.NewNewsDriver(session), nil
	}
	return nil, fmt.Errorf("no news driver for source %q", source)
}

// AddSecurity registers a symbol for syncing.
func (s Service) AddSecurity(ctx context.Context, symbol, name string) error {
	return s.store.AddSecurity(ctx, symbol, name)
}

func (s Service) ListSecurities(ctx context.Context) ([]db.Security, error) {
	return s.store.ListSecurities(ctx)
}

// DeleteSecurity removes the symbol and its price history.
func (s Service) DeleteSecurity(ctx context.Context, symbol string) error {
	return s.store.DeleteSecurity(ctx, symbol)
}

// ListPricePoints exposes stored history for the CLI and tests.
func (s Service) ListPricePoints(ctx context.Context, symbol string) ([]db.PricePoint, error) {
	return s.store.ListPricePoints(ctx, symbol)
}

func (s Service) ListTradeRecords(ctx context.Context, symbol string) ([]db.TradeRecord, error) {
	return s.store.ListTradeRecords(ctx, symbol)
}

func (s Service) ListNewsItems(ctx context.Context, limit int64) ([]db.NewsItem, error) {
	return s.store.ListNewsItems(ctx, limit)
}
