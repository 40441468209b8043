package sharesansar

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
)

const (
	floorsheetURL = "https://www.sharesansar.com/floorsheet"

	floorsheetSymbolSelector   = "input#frm_symbol"
	floorsheetFilterSelector   = "button#btn_flsheet"
	floorsheetTableSelector    = "#myTableFsheet"
	floorsheetPageSizeSelector = "select[name='myTableFsheet_length']"
	floorsheetNextSelector     = "#myTableFsheet_next"

	floorsheetColumnCount = 7

	// rowPollInterval paces the stale-row guard below.
	rowPollInterval = 500 * time.Millisecond
	rowPollAttempts = 10
)

var floorsheetColumns = []string{
	"SN", "Transact No.", "Buyer", "Seller", "Quantity", "Rate", "Amount",
}

type FloorsheetDriver struct {
	session browser.Session
}

func NewFloorsheetDriver(session browser.Session) *FloorsheetDriver {
	return &FloorsheetDriver{session: session}
}

// Fetch emits floor-sheet rows for symbol. The DataTables widget here
// repaints asynchronously after the filter button and after each next
// click, so every transition is followed by a row-count poll: keep
// reading until the table differs from the pre-click snapshot or the
// poll budget runs out.
func (d *FloorsheetDriver) Fetch(ctx context.Context, symbol string, emit func(rec map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "FloorsheetDriver.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	err := d.session.Open(ctx, floorsheetURL)
	if err != nil {
		return err
	}
	if d.session.DismissDialog(ctx) {
		slog.DebugContext(ctx, "dismissed dialog on floorsheet page", "symbol", symbol)
	}

	err = d.session.SendKeys(ctx, floorsheetSymbolSelector, symbol)
	if err != nil {
		slog.WarnContext(ctx, "could not enter floorsheet symbol", "symbol", symbol, "err", err)
		return nil
	}

	var noRows [][]string
	rows, changed := d.clickAndPoll(ctx, floorsheetFilterSelector, noRows)
	if !changed {
		slog.WarnContext(ctx, "floorsheet filter produced no rows", "symbol", symbol)
		return nil
	}
	d.growPageSize(ctx)
	rows = d.readRows(ctx)

	for {
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			if len(row) < floorsheetColumnCount {
				slog.DebugContext(ctx, "skipping malformed floorsheet row", "cells", len(row))
				continue
			}
			rec := make(map[string]string, floorsheetColumnCount+1)
			for i, name := range floorsheetColumns {
				rec[name] = row[i]
			}
			rec["Symbol"] = symbol
			if !emit(rec) {
				return nil
			}
		}

		rows, changed = d.clickAndPoll(ctx, floorsheetNextSelector, rows)
		if !changed {
			return nil
		}
	}
}

// clickAndPoll clicks the control and polls until the table content
// differs from prev. Returns the fresh rows and whether they changed.
func (d *FloorsheetDriver) clickAndPoll(ctx context.Context, selector string, prev [][]string) ([][]string, bool) {
	err := d.session.Click(ctx, selector)
	if err != nil {
		return nil, false
	}
	for attempt := 0; attempt < rowPollAttempts; attempt++ {
		rows := d.readRows(ctx)
		if len(rows) > 0 && !sameRows(rows, prev) {
			return rows, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(rowPollInterval):
		}
	}
	return nil, false
}

func (d *FloorsheetDriver) readRows(ctx context.Context) [][]string {
	rows, err := d.session.TableRows(ctx, floorsheetTableSelector)
	if err != nil {
		slog.DebugContext(ctx, "failed to read floorsheet rows", "err", err)
		return nil
	}
	return rows
}

func (d *FloorsheetDriver) growPageSize(ctx context.Context) {
	var ok bool
	err := d.session.Evaluate(ctx, jsWithSelector(setPageSizeJS, floorsheetPageSizeSelector), &ok)
	if err != nil {
		slog.DebugContext(ctx, "could not grow page size", "err", err)
	}
}

func sameRows(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
