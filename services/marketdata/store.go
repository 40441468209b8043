package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"nepsemarket-backend/lib/timezone"
	"nepsemarket-backend/services/marketdata/db"
)

// Outcome tags what happened to one record at the persistence boundary,
// so callers and tests can assert on the failure kind instead of
// string-matching log output.
type Outcome int

const (
	Stored Outcome = iota
	SkipDuplicate
	SkipParse
	SkipNoSecurity
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Stored:
		return "stored"
	case SkipDuplicate:
		return "skip_duplicate"
	case SkipParse:
		return "skip_parse"
	case SkipNoSecurity:
		return "skip_no_security"
	}
	return "failed"
}

const dateLayout = "2006-01-02"

// Store is the persistence gateway. Inserts are first-write-wins: a
// record whose natural key already exists is skipped, never updated.
type Store struct {
	database *sql.DB
	qry      *db.Queries
}

func NewStore(database *sql.DB) *Store {
	return &Store{database: database, qry: db.New(database)}
}

func (s *Store) HasSecurity(ctx context.Context, symbol string) (bool, error) {
	_, err := s.qry.GetSecurity(ctx, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) AddSecurity(ctx context.Context, symbol, name string) error {
	return s.qry.CreateSecurity(ctx, db.CreateSecurityParams{
		Symbol:    symbol,
		Name:      name,
		CreatedAt: timezone.Now().Unix(),
	})
}

func (s *Store) ListSecurities(ctx context.Context) ([]db.Security, error) {
	return s.qry.ListSecurities(ctx)
}

// DeleteSecurity removes the security and everything hanging off it in
// one transaction.
func (s *Store) DeleteSecurity(ctx context.Context, symbol string) error {
	tx, err := s.database.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.qry.WithTx(tx)
	if err := qtx.DeletePricePoints(ctx, symbol); err != nil {
		return err
	}
	if err := qtx.DeleteTradeRecords(ctx, symbol); err != nil {
		return err
	}
	if err := qtx.DeleteSecurity(ctx, symbol); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) InsertPricePoint(ctx context.Context, p PricePoint) Outcome {
	date := p.Date.Format(dateLayout)
	_, err := s.qry.GetPricePoint(ctx, db.GetPricePointParams{Symbol: p.Symbol, Date: date})
	if err == nil {
		return SkipDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.WarnContext(ctx, "price point lookup failed", "symbol", p.Symbol, "date", date, "err", err)
		return Failed
	}

	err = s.qry.CreatePricePoint(ctx, db.CreatePricePointParams{
		Symbol: p.Symbol,
		Date:   date,
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
	})
	if err != nil {
		slog.WarnContext(ctx, "price point insert failed", "symbol", p.Symbol, "date", date, "err", err)
		return Failed
	}
	return Stored
}

func (s *Store) InsertTradeRecord(ctx context.Context, t TradeRecord) Outcome {
	_, err := s.qry.GetTradeRecord(ctx, t.TransactionID)
	if err == nil {
		return SkipDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.WarnContext(ctx, "trade record lookup failed", "id", t.TransactionID, "err", err)
		return Failed
	}

	err = s.qry.CreateTradeRecord(ctx, db.CreateTradeRecordParams{
		TransactionID: t.TransactionID,
		Symbol:        t.Symbol,
		Buyer:         t.Buyer,
		Seller:        t.Seller,
		Quantity:      t.Quantity,
		Rate:          t.Rate,
		Amount:        t.Amount,
		TradeDate:     t.Date.Format(dateLayout),
	})
	if err != nil {
		slog.WarnContext(ctx, "trade record insert failed", "id", t.TransactionID, "err", err)
		return Failed
	}
	return Stored
}

// HasNewsItem reports whether url is stored with its article body.
// Stubs whose detail fetch failed return false so a later listing pass
// re-fetches them and back-fills the body.
func (s *Store) HasNewsItem(ctx context.Context, url string) bool {
	item, err := s.qry.GetNewsItem(ctx, url)
	return err == nil && item.Body != ""
}

func (s *Store) InsertNewsItem(ctx context.Context, n NewsItem) Outcome {
	existing, err := s.qry.GetNewsItem(ctx, n.URL)
	if err == nil {
		if existing.Body != "" || n.Body == "" {
			return SkipDuplicate
		}
		// the earlier listing pass stored a bodyless stub; back-fill the
		// detail fields, first-write-wins still holds for the rest
		err = s.qry.UpdateNewsBody(ctx, db.UpdateNewsBodyParams{
			Body:        n.Body,
			Image:       n.Image,
			PublishedAt: n.PublishedAt.Unix(),
			Url:         n.URL,
		})
		if err != nil {
			slog.WarnContext(ctx, "news back-fill failed", "url", n.URL, "err", err)
			return Failed
		}
		return Stored
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.WarnContext(ctx, "news lookup failed", "url", n.URL, "err", err)
		return Failed
	}

	err = s.qry.CreateNewsItem(ctx, db.CreateNewsItemParams{
		Url:         n.URL,
		Title:       n.Title,
		Body:        n.Body,
		Image:       n.Image,
		Source:      n.Source,
		PublishedAt: n.PublishedAt.Unix(),
	})
	if err != nil {
		slog.WarnContext(ctx, "news insert failed", "url", n.URL, "err", err)
		return Failed
	}
	return Stored
}

// LatestPriceDate returns the newest stored trading day for symbol, the
// incremental-sync watermark. ok is false when nothing is stored yet.
func (s *Store) LatestPriceDate(ctx context.Context, symbol string) (time.Time, bool) {
	date, err := s.qry.LatestPriceDate(ctx, symbol)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "watermark lookup failed", "symbol", symbol, "err", err)
		}
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, date, timezone.Location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LatestNewsTimestamp is the news watermark for one source: the newest
// fully stored article. Keying it per source keeps a slower-publishing
// site from stopping at a faster one's newest article; bodyless stubs
// do not advance it so a later pass can still reach and back-fill them.
func (s *Store) LatestNewsTimestamp(ctx context.Context, source string) (time.Time, bool) {
	unix, err := s.qry.LatestNewsTimestamp(ctx, source)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "news watermark lookup failed", "source", source, "err", err)
		}
		return time.Time{}, false
	}
	return time.Unix(unix, 0).In(timezone.Location), true
}

func (s *Store) ListPricePoints(ctx context.Context, symbol string) ([]db.PricePoint, error) {
	return s.qry.ListPricePoints(ctx, symbol)
}

func (s *Store) ListTradeRecords(ctx context.Context, symbol string) ([]db.TradeRecord, error) {
	return s.qry.ListTradeRecords(ctx, symbol)
}

func (s *Store) ListNewsItems(ctx context.Context, limit int64) ([]db.NewsItem, error) {
	return s.qry.ListNewsItems(ctx, limit)
}
