// Package sharesansar implements site drivers for sharesansar.com. The
// site renders its tables through DataTables, so the drivers page by
// driving the widget's page-size dropdown and next button.
package sharesansar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
)

var tracer = otel.Tracer("nepsemarket.lib.scrapers.sharesansar")

const (
	companyURL = "https://www.sharesansar.com/company/%s"

	priceTabSelector      = "#btn_cpricehistory"
	priceTableSelector    = "#myTableCPriceHistory"
	pricePageSizeSelector = "select[name='myTableCPriceHistory_length']"
	priceNextSelector     = "#myTableCPriceHistory_next"

	priceColumnCount = 6
)

// priceColumns maps the first six cells of a price-history row. The
// table carries more columns but everything past Close is derived data.
var priceColumns = []string{"SN", "Date", "Open", "High", "Low", "Close"}

const setPageSizeJS = `(() => {
	const sel = document.querySelector(%q);
	if (!sel) { return false; }
	sel.value = "50";
	sel.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
})()`

type PriceDriver struct {
	session browser.Session
}

func NewPriceDriver(session browser.Session) *PriceDriver {
	return &PriceDriver{session: session}
}

// Fetch emits price-history rows for symbol newest-first. Only a failed
// navigation to the company page is an error; everything past that is
// reported as an early end of data.
func (d *PriceDriver) Fetch(ctx context.Context, symbol string, emit func(rec map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "PriceDriver.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	url := companyPageURL(symbol)
	err := d.session.Open(ctx, url)
	if err != nil {
		return err
	}
	if d.session.DismissDialog(ctx) {
		slog.DebugContext(ctx, "dismissed dialog on company page", "symbol", symbol)
	}

	err = d.session.Click(ctx, priceTabSelector)
	if err != nil {
		slog.WarnContext(ctx, "could not open price history tab", "symbol", symbol, "err", err)
		return nil
	}
	err = d.session.WaitVisible(ctx, priceTableSelector)
	if err != nil {
		slog.WarnContext(ctx, "price history table never appeared", "symbol", symbol, "err", err)
		return nil
	}
	d.growPageSize(ctx)

	var lastFirstRow string
	for {
		rows, err := d.session.TableRows(ctx, priceTableSelector)
		if err != nil {
			slog.WarnContext(ctx, "failed to read price rows", "symbol", symbol, "err", err)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}

		// DataTables swaps row content in place; an unchanged first row
		// after a next click means we ran off the last page.
		first := strings.Join(rows[0], "|")
		if first == lastFirstRow {
			return nil
		}
		lastFirstRow = first

		for _, row := range rows {
			if len(row) < priceColumnCount {
				slog.DebugContext(ctx, "skipping malformed price row", "cells", len(row))
				continue
			}
			rec := make(map[string]string, priceColumnCount)
			for i, name := range priceColumns {
				rec[name] = row[i]
			}
			if !emit(rec) {
				return nil
			}
		}

		err = d.session.Click(ctx, priceNextSelector)
		if err != nil {
			return nil
		}
	}
}

// growPageSize bumps the DataTables page size to cut round trips. Best
// effort, the default page size still works.
func (d *PriceDriver) growPageSize(ctx context.Context) {
	var ok bool
	err := d.session.Evaluate(ctx, jsWithSelector(setPageSizeJS, pricePageSizeSelector), &ok)
	if err != nil {
		slog.DebugContext(ctx, "could not grow page size", "err", err)
	}
}

func companyPageURL(symbol string) string {
	return fmt.Sprintf(companyURL, strings.ToLower(symbol))
}

func jsWithSelector(tmpl, selector string) string {
	return fmt.Sprintf(tmpl, selector)
}
