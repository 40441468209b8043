package marketdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/testutil"
	"nepsemarket-backend/lib/timezone"
	"nepsemarket-backend/services/marketdata/db"
)

func numOf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func setupStore(t *testing.T) *Store {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "marketdata",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	return NewStore(res.DB)
}

func TestPricePointFirstWriteWins(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSecurity(ctx, "NABIL", "Nabil Bank"))

	point := PricePoint{
		Symbol: "NABIL",
		Date:   timezone.Date(2024, time.March, 5),
		Open:   numOf(875),
		Close:  numOf(880),
	}
	require.Equal(t, Stored, store.InsertPricePoint(ctx, point))

	// second write with different values must not overwrite the first
	point.Close = numOf(999)
	require.Equal(t, SkipDuplicate, store.InsertPricePoint(ctx, point))

	points, err := store.ListPricePoints(ctx, "NABIL")
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 880.0, points[0].Close.Float64)
}

func TestLatestPriceDateWatermark(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSecurity(ctx, "NABIL", "Nabil Bank"))

	_, ok := store.LatestPriceDate(ctx, "NABIL")
	require.False(t, ok)

	for _, d := range []int{3, 7, 5} {
		outcome := store.InsertPricePoint(ctx, PricePoint{
			Symbol: "NABIL",
			Date:   timezone.Date(2024, time.March, d),
		})
		require.Equal(t, Stored, outcome)
	}

	watermark, ok := store.LatestPriceDate(ctx, "NABIL")
	require.True(t, ok)
	require.True(t, watermark.Equal(timezone.Date(2024, time.March, 7)))
}

func TestTradeRecordDeduplication(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	trade := TradeRecord{
		TransactionID: "2024030500017",
		Symbol:        "NABIL",
		Buyer:         "34",
		Seller:        "58",
		Quantity:      numOf(100),
		Date:          timezone.Date(2024, time.March, 5),
	}
	require.Equal(t, Stored, store.InsertTradeRecord(ctx, trade))
	require.Equal(t, SkipDuplicate, store.InsertTradeRecord(ctx, trade))

	trades, err := store.ListTradeRecords(ctx, "NABIL")
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestNewsItemsAndWatermark(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, ok := store.LatestNewsTimestamp(ctx, "sharesansar")
	require.False(t, ok)

	older := NewsItem{
		URL:         "https://example.com/news/1",
		Title:       "Old news",
		Body:        "old article",
		Source:      "sharesansar",
		PublishedAt: timezone.Date(2024, time.March, 4),
	}
	newer := NewsItem{
		URL:         "https://example.com/news/2",
		Title:       "New news",
		Body:        "new article",
		Source:      "sharesansar",
		PublishedAt: timezone.Date(2024, time.March, 6),
	}
	require.Equal(t, Stored, store.InsertNewsItem(ctx, older))
	require.Equal(t, Stored, store.InsertNewsItem(ctx, newer))
	require.Equal(t, SkipDuplicate, store.InsertNewsItem(ctx, newer))

	require.True(t, store.HasNewsItem(ctx, older.URL))
	require.False(t, store.HasNewsItem(ctx, "https://example.com/news/3"))

	watermark, ok := store.LatestNewsTimestamp(ctx, "sharesansar")
	require.True(t, ok)
	require.True(t, watermark.Equal(newer.PublishedAt))

	// each source keeps its own watermark
	_, ok = store.LatestNewsTimestamp(ctx, "merolagani")
	require.False(t, ok)
}

func TestNewsBodyBackfill(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	stub := NewsItem{
		URL:         "https://example.com/news/9",
		Title:       "Detail fetch failed",
		Source:      "merolagani",
		PublishedAt: timezone.Date(2024, time.March, 6),
	}
	require.Equal(t, Stored, store.InsertNewsItem(ctx, stub))

	// a bodyless stub neither counts as stored nor moves the watermark,
	// so the next pass can reach it again
	require.False(t, store.HasNewsItem(ctx, stub.URL))
	_, ok := store.LatestNewsTimestamp(ctx, "merolagani")
	require.False(t, ok)

	filled := stub
	filled.Body = "the article text"
	filled.Image = "https://example.com/img.png"
	require.Equal(t, Stored, store.InsertNewsItem(ctx, filled))
	require.True(t, store.HasNewsItem(ctx, stub.URL))

	items, err := store.ListNewsItems(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "the article text", items[0].Body)
	require.Equal(t, "https://example.com/img.png", items[0].Image)

	// once back-filled the body is first-write-wins like everything else
	filled.Body = "rewritten"
	require.Equal(t, SkipDuplicate, store.InsertNewsItem(ctx, filled))
}

func TestDeleteSecurityCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSecurity(ctx, "NABIL", "Nabil Bank"))
	require.Equal(t, Stored, store.InsertPricePoint(ctx, PricePoint{
		Symbol: "NABIL",
		Date:   timezone.Date(2024, time.March, 5),
	}))
	require.Equal(t, Stored, store.InsertTradeRecord(ctx, TradeRecord{
		TransactionID: "2024030500017",
		Symbol:        "NABIL",
		Buyer:         "34",
		Seller:        "58",
		Date:          timezone.Date(2024, time.March, 5),
	}))

	require.NoError(t, store.DeleteSecurity(ctx, "NABIL"))

	ok, err := store.HasSecurity(ctx, "NABIL")
	require.NoError(t, err)
	require.False(t, ok)

	points, err := store.ListPricePoints(ctx, "NABIL")
	require.NoError(t, err)
	require.Empty(t, points)

	trades, err := store.ListTradeRecords(ctx, "NABIL")
	require.NoError(t, err)
	require.Empty(t, trades)
}
