package marketdata

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nepsemarket-backend/lib/timezone"
)

// Each source labels the same field differently; lookup order inside an
// alias list is the precedence (Open beats "Open Price", Close beats
// the merolagani "LTP" column).
var fieldAliases = map[string][]string{
	"Date":          {"Date"},
	"Open":          {"Open", "Open Price"},
	"High":          {"High"},
	"Low":           {"Low"},
	"Close":         {"Close", "LTP"},
	"TransactionID": {"Transact No.", "Transaction No", "Transact No"},
	"Buyer":         {"Buyer", "Buyer Broker"},
	"Seller":        {"Seller", "Seller Broker"},
	"Quantity":      {"Quantity", "Qty"},
	"Rate":          {"Rate"},
	"Amount":        {"Amount"},
}

// dateFormats in trial order. ISO first, then the day-first variants the
// Nepali sites use, then merolagani's slashed year-first format.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
}

// newsTimeFormats carry a clock; tried before the date-only formats.
var newsTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
}

// PricePoint is one normalized trading day for a security. OHLC fields
// a source did not provide stay null, never zero.
type PricePoint struct {
	Symbol string
	Date   time.Time
	Open   sql.NullFloat64
	High   sql.NullFloat64
	Low    sql.NullFloat64
	Close  sql.NullFloat64
}

// TradeRecord is one normalized floor-sheet entry, keyed by the
// exchange-assigned transaction id.
type TradeRecord struct {
	TransactionID string
	Symbol        string
	Buyer         string
	Seller        string
	Quantity      sql.NullFloat64
	Rate          sql.NullFloat64
	Amount        sql.NullFloat64
	Date          time.Time
}

// NewsItem is one normalized article, keyed by URL.
type NewsItem struct {
	URL         string
	Title       string
	Body        string
	Image       string
	Source      string
	PublishedAt time.Time
}

func lookupField(rec map[string]string, canonical string) string {
	for _, alias := range fieldAliases[canonical] {
		if v, ok := rec[alias]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ParseDate tries the known site date formats in order, pinning the
// result to the exchange timezone.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, s, timezone.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseTimestamp is ParseDate with the timed news formats tried first.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range newsTimeFormats {
		if t, err := time.ParseInLocation(layout, s, timezone.Location); err == nil {
			return t, nil
		}
	}
	return ParseDate(s)
}

// ParseNumber converts a scraped numeric cell. Thousands separators and
// stray whitespace are stripped; an empty or dash cell is null, and so
// is anything unparseable. A missing value must never surface as 0.
func ParseNumber(s string) sql.NullFloat64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

// NormalizePrice maps a raw driver record to a PricePoint. Only an
// unusable date makes the record unrecoverable.
func NormalizePrice(symbol string, rec map[string]string) (PricePoint, error) {
	date, err := ParseDate(lookupField(rec, "Date"))
	if err != nil {
		return PricePoint{}, err
	}
	return PricePoint{
		Symbol: symbol,
		Date:   date,
		Open:   ParseNumber(lookupField(rec, "Open")),
		High:   ParseNumber(lookupField(rec, "High")),
		Low:    ParseNumber(lookupField(rec, "Low")),
		Close:  ParseNumber(lookupField(rec, "Close")),
	}, nil
}

// NormalizeTrade maps a raw floor-sheet record. The floor sheet carries
// no date column, so the caller supplies the trading day.
func NormalizeTrade(symbol string, tradeDate time.Time, rec map[string]string) (TradeRecord, error) {
	id := strings.TrimSpace(lookupField(rec, "TransactionID"))
	if id == "" {
		return TradeRecord{}, fmt.Errorf("trade record without transaction id")
	}
	return TradeRecord{
		TransactionID: id,
		Symbol:        symbol,
		Buyer:         strings.TrimSpace(lookupField(rec, "Buyer")),
		Seller:        strings.TrimSpace(lookupField(rec, "Seller")),
		Quantity:      ParseNumber(lookupField(rec, "Quantity")),
		Rate:          ParseNumber(lookupField(rec, "Rate")),
		Amount:        ParseNumber(lookupField(rec, "Amount")),
		Date:          tradeDate,
	}, nil
}

// NormalizeNews maps a raw news record. URL and title are required; a
// missing or unparseable date falls back to now so ordering degrades
// gracefully instead of dropping the article.
func NormalizeNews(source string, rec map[string]string) (NewsItem, error) {
	url := strings.TrimSpace(rec["URL"])
	title := strings.TrimSpace(rec["Title"])
	if url == "" || title == "" {
		return NewsItem{}, fmt.Errorf("news record missing url or title")
	}

	published, err := ParseTimestamp(rec["Date"])
	if err != nil {
		published = timezone.Now()
	}
	return NewsItem{
		URL:         url,
		Title:       title,
		Body:        rec["Body"],
		Image:       rec["Image"],
		Source:      source,
		PublishedAt: published,
	}, nil
}
