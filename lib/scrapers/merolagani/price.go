// Package merolagani scrapes merolagani.com company pages: daily price
// history, the floor sheet tab and the news section.
package merolagani

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"nepsemarket-backend/lib/browser"
)

var tracer = otel.Tracer("nepsemarket.lib.scrapers.merolagani")

const (
	companyURL = "https://merolagani.com/CompanyDetail.aspx?symbol=%s"

	priceTabSelector   = "#ctl00_ContentPlaceHolder1_CompanyDetail1_lnkHistoryTab"
	priceTableSelector = "#ctl00_ContentPlaceHolder1_CompanyDetail1_divDataPrice table.table-bordered"
	loadMoreSelector   = "#ctl00_ContentPlaceHolder1_CompanyDetail1_divDataPrice a.btn-load-more"

	// merolagani price rows: SN, Date, LTP, % Change, High, Low, Open, Qty, Turnover
	priceColumnCount = 9
)

var priceColumns = []string{
	"SN", "Date", "LTP", "% Change", "High", "Low", "Open", "Qty", "Turnover",
}

type PriceDriver struct {
	session browser.Session
}

func NewPriceDriver(session browser.Session) *PriceDriver {
	return &PriceDriver{session: session}
}

// Fetch walks the price history tab newest-first, emitting one raw
// record per well-formed row. A false return from emit stops the walk
// mid-page. Rows with an unexpected column count are skipped silently.
func (d *PriceDriver) Fetch(ctx context.Context, symbol string, emit func(map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "PriceDriver.Fetch")
	defer span.End()

	err := d.session.Open(ctx, fmt.Sprintf(companyURL, symbol))
	if err != nil {
		return fmt.Errorf("merolagani: failed to open company page for %q: %w", symbol, err)
	}
	if d.session.DismissDialog(ctx) {
		slog.InfoContext(ctx, "dismissed alert on company page", "symbol", symbol)
	}

	err = d.session.Click(ctx, priceTabSelector)
	if err != nil {
		slog.WarnContext(ctx, "price history tab not clickable", "symbol", symbol, "err", err)
		return nil
	}
	d.session.DismissDialog(ctx)

	err = d.session.WaitVisible(ctx, priceTableSelector)
	if err != nil {
		slog.WarnContext(ctx, "price history table never appeared", "symbol", symbol, "err", err)
		return nil
	}

	// "load more" grows the same table in place, so remember how many
	// rows were already emitted
	seen := 0
	for {
		rows, err := d.session.TableRows(ctx, priceTableSelector)
		if err != nil {
			slog.WarnContext(ctx, "failed to read price rows", "symbol", symbol, "err", err)
			return nil
		}

		// a load-more click that grew nothing means the history is
		// exhausted even if the button still accepts clicks
		if seen > 0 && len(rows) <= seen {
			return nil
		}

		for _, cells := range rows[min(seen, len(rows)):] {
			seen++
			if len(cells) != priceColumnCount {
				continue
			}
			rec := make(map[string]string, priceColumnCount)
			for i, name := range priceColumns {
				rec[name] = cells[i]
			}
			if !emit(rec) {
				return nil
			}
		}

		if d.session.Click(ctx, loadMoreSelector) != nil {
			return nil
		}
	}
}
