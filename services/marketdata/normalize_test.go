package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/timezone"
)

func TestParseDateFormats(t *testing.T) {
	want := timezone.Date(2024, time.March, 5)

	for _, input := range []string{
		"2024-03-05",
		"05/03/2024",
		"05-03-2024",
		"2024/03/05",
	} {
		got, err := ParseDate(input)
		require.NoError(t, err, input)
		require.True(t, got.Equal(want), input)
	}

	_, err := ParseDate("yesterday")
	require.Error(t, err)
	_, err = ParseDate("")
	require.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	v := ParseNumber("1,234.50")
	require.True(t, v.Valid)
	require.Equal(t, 1234.5, v.Float64)

	v = ParseNumber("  980 ")
	require.True(t, v.Valid)
	require.Equal(t, 980.0, v.Float64)

	// missing values must stay null, never become 0
	require.False(t, ParseNumber("").Valid)
	require.False(t, ParseNumber("-").Valid)
	require.False(t, ParseNumber("n/a").Valid)
}

func TestNormalizePriceAliases(t *testing.T) {
	// merolagani names the close column LTP
	point, err := NormalizePrice("NABIL", map[string]string{
		"Date": "2024/03/05",
		"LTP":  "880",
		"High": "890",
		"Low":  "870",
		"Open": "875",
	})
	require.NoError(t, err)
	require.Equal(t, "NABIL", point.Symbol)
	require.True(t, point.Close.Valid)
	require.Equal(t, 880.0, point.Close.Float64)

	// canonical name wins over its alias when both are present
	point, err = NormalizePrice("NABIL", map[string]string{
		"Date":       "2024-03-05",
		"Close":      "881",
		"LTP":        "999",
		"Open":       "875",
		"Open Price": "111",
	})
	require.NoError(t, err)
	require.Equal(t, 881.0, point.Close.Float64)
	require.Equal(t, 875.0, point.Open.Float64)
}

func TestNormalizePriceBadDate(t *testing.T) {
	_, err := NormalizePrice("NABIL", map[string]string{
		"Date": "not a date",
		"LTP":  "880",
	})
	require.Error(t, err)
}

func TestNormalizePriceMissingCells(t *testing.T) {
	point, err := NormalizePrice("NABIL", map[string]string{
		"Date": "2024-03-05",
	})
	require.NoError(t, err)
	require.False(t, point.Open.Valid)
	require.False(t, point.High.Valid)
	require.False(t, point.Low.Valid)
	require.False(t, point.Close.Valid)
}

func TestNormalizeTrade(t *testing.T) {
	day := timezone.Date(2024, time.March, 5)

	trade, err := NormalizeTrade("NABIL", day, map[string]string{
		"Transact No.": "2024030500017",
		"Buyer":        "34",
		"Seller":       "58",
		"Quantity":     "1,000",
		"Rate":         "880.50",
		"Amount":       "880,500.00",
	})
	require.NoError(t, err)
	require.Equal(t, "2024030500017", trade.TransactionID)
	require.Equal(t, 1000.0, trade.Quantity.Float64)
	require.Equal(t, 880500.0, trade.Amount.Float64)

	_, err = NormalizeTrade("NABIL", day, map[string]string{"Buyer": "34"})
	require.Error(t, err)
}

func TestNormalizeNews(t *testing.T) {
	item, err := NormalizeNews("sharesansar", map[string]string{
		"URL":   "https://example.com/news/1",
		"Title": "NEPSE gains 12 points",
		"Date":  "2024-03-05 14:30",
		"Body":  "The index rose.",
	})
	require.NoError(t, err)
	require.Equal(t, "sharesansar", item.Source)
	require.Equal(t, 14, item.PublishedAt.Hour())

	// unparseable date falls back to now instead of dropping the item
	before := timezone.Now()
	item, err = NormalizeNews("sharesansar", map[string]string{
		"URL":   "https://example.com/news/2",
		"Title": "Untitled date",
		"Date":  "a while ago",
	})
	require.NoError(t, err)
	require.False(t, item.PublishedAt.Before(before.Add(-time.Minute)))

	_, err = NormalizeNews("sharesansar", map[string]string{"Title": "no url"})
	require.Error(t, err)
}
