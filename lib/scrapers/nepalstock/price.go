// Package nepalstock implements the price-history driver for the
// official NEPSE site. Company pages have no stable URL scheme, so the
// driver goes through the homepage search box and picks the best
// matching result by string similarity.
package nepalstock

import (
	"context"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
)

var tracer = otel.Tracer("nepsemarket.lib.scrapers.nepalstock")

const (
	homeURL = "https://www.nepalstock.com/"

	searchInputSelector   = ".header__search--wrap input"
	searchResultsSelector = ".header__search--wrap a"
	priceTabSelector      = "a#pricehistory-tab"
	pricePaneSelector     = "div.tab-pane.active#pricehistorys"
	priceTableSelector    = "div.tab-pane.active#pricehistorys table"
	nextPageSelector      = "li.pagination-next a"

	priceColumnCount = 13
)

var priceColumns = []string{
	"SN", "Date", "Open", "High", "Low", "Close", "TTQ", "TT",
	"Previous Close", "52 Week High", "52 Week Low", "Total Trades", "ATP",
}

type PriceDriver struct {
	session browser.Session
}

func NewPriceDriver(session browser.Session) *PriceDriver {
	return &PriceDriver{session: session}
}

// Fetch searches for symbol, opens the closest-matching company page
// and emits its price-history rows newest-first. Only a failed homepage
// navigation is an error.
func (d *PriceDriver) Fetch(ctx context.Context, symbol string, emit func(rec map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "PriceDriver.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	err := d.session.Open(ctx, homeURL)
	if err != nil {
		return err
	}
	if d.session.DismissDialog(ctx) {
		slog.DebugContext(ctx, "dismissed dialog on homepage", "symbol", symbol)
	}

	if !d.openCompanyPage(ctx, symbol) {
		return nil
	}

	err = d.session.Click(ctx, priceTabSelector)
	if err != nil {
		slog.WarnContext(ctx, "could not open price history tab", "symbol", symbol, "err", err)
		return nil
	}
	err = d.session.WaitVisible(ctx, pricePaneSelector)
	if err != nil {
		slog.WarnContext(ctx, "price history pane never appeared", "symbol", symbol, "err", err)
		return nil
	}

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

		// the next anchor stays clickable once its li is disabled, so an
		// unchanged first row after a next click is the real last page
		first := strings.Join(rows[0], "|")
		if first == lastFirstRow {
			return nil
		}
		lastFirstRow = first

		for _, row := range rows {
			if len(row) != priceColumnCount {
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

		err = d.session.Click(ctx, nextPageSelector)
		if err != nil {
			return nil
		}
	}
}

// openCompanyPage types symbol into the search box and clicks the
// search result whose text is most similar to it.
func (d *PriceDriver) openCompanyPage(ctx context.Context, symbol string) bool {
	err := d.session.SendKeys(ctx, searchInputSelector, symbol)
	if err != nil {
		slog.WarnContext(ctx, "could not type into search box", "symbol", symbol, "err", err)
		return false
	}

	results, err := d.session.Anchors(ctx, searchResultsSelector)
	if err != nil || len(results) == 0 {
		slog.WarnContext(ctx, "search produced no results", "symbol", symbol, "err", err)
		return false
	}

	best := bestMatch(symbol, results)
	slog.DebugContext(ctx, "matched search result", "symbol", symbol, "text", best.Text, "href", best.Href)

	err = d.session.Open(ctx, best.Href)
	if err != nil {
		slog.WarnContext(ctx, "could not open company page", "symbol", symbol, "err", err)
		return false
	}
	return true
}

func bestMatch(symbol string, results []browser.Anchor) browser.Anchor {
	target := strings.ToUpper(symbol)
	best := results[0]
	bestScore := -1.0
	for _, r := range results {
		score := matchr.JaroWinkler(target, strings.ToUpper(r.Text), true)
		if score > bestScore {
			bestScore = score
			best = r
		}
	}
	return best
}
