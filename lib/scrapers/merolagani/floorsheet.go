package merolagani

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nepsemarket-backend/lib/browser"
)

const (
	floorsheetTabSelector   = "#ctl00_ContentPlaceHolder1_CompanyDetail1_lnkFloorSheetTab"
	floorsheetTableSelector = "#ctl00_ContentPlaceHolder1_CompanyDetail1_divDataFloorsheet table.table-bordered"
	floorsheetNextSelector  = "#ctl00_ContentPlaceHolder1_CompanyDetail1_PagerControl1_btnNext"

	// SN, Transact No., Symbol, Buyer, Seller, Quantity, Rate, Amount
	floorsheetColumnCount = 8
)

var floorsheetColumns = []string{
	"SN", "Transact No.", "Symbol", "Buyer", "Seller", "Quantity", "Rate", "Amount",
}

type FloorsheetDriver struct {
	session browser.Session
}

func NewFloorsheetDriver(session browser.Session) *FloorsheetDriver {
	return &FloorsheetDriver{session: session}
}

func (d *FloorsheetDriver) Fetch(ctx context.Context, symbol string, emit func(map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "FloorsheetDriver.Fetch")
	defer span.End()

	err := d.session.Open(ctx, fmt.Sprintf(companyURL, symbol))
	if err != nil {
		return fmt.Errorf("merolagani: failed to open company page for %q: %w", symbol, err)
	}
	d.session.DismissDialog(ctx)

	err = d.session.Click(ctx, floorsheetTabSelector)
	if err != nil {
		slog.WarnContext(ctx, "floorsheet tab not clickable", "symbol", symbol, "err", err)
		return nil
	}
	err = d.session.WaitVisible(ctx, floorsheetTableSelector)
	if err != nil {
		slog.WarnContext(ctx, "floorsheet table never appeared", "symbol", symbol, "err", err)
		return nil
	}

	var lastFirstRow string
	for {
		rows, err := d.session.TableRows(ctx, floorsheetTableSelector)
		if err != nil {
			slog.WarnContext(ctx, "failed to read floorsheet rows", "symbol", symbol, "err", err)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}

		// the pager button stays clickable on the last page; unchanged
		// content after a next click means there is nothing further
		first := strings.Join(rows[0], "|")
		if first == lastFirstRow {
			return nil
		}
		lastFirstRow = first

		for _, cells := range rows {
			if len(cells) != floorsheetColumnCount {
				continue
			}
			rec := make(map[string]string, floorsheetColumnCount)
			for i, name := range floorsheetColumns {
				rec[name] = cells[i]
			}
			if !emit(rec) {
				return nil
			}
		}

		if d.session.Click(ctx, floorsheetNextSelector) != nil {
			return nil
		}
	}
}
