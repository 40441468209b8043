package nepalstock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/browser/browsertest"
	"nepsemarket-backend/lib/telemetry"
)

func priceRow(sn, date string) []string {
	return []string{
		sn, date, "875", "890", "870", "880", "1000", "880000",
		"878", "1100", "600", "52", "879.2",
	}
}

func TestPriceFetchPicksBestSearchResult(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:nepalstock")
	defer cleanup()

	fake := browsertest.New()
	fake.Links[searchResultsSelector] = []browser.Anchor{
		{Text: "NABBC - Nabil Balanced Fund", Href: "https://www.nepalstock.com/company/detail/131"},
		{Text: "NABIL - Nabil Bank Limited", Href: "https://www.nepalstock.com/company/detail/130"},
	}
	fake.Rows[priceTableSelector] = [][]string{
		priceRow("1", "2024-03-05"),
		priceRow("2", "2024-03-04"),
	}
	fake.TimeoutOn[nextPageSelector] = true

	var dates []string
	err := NewPriceDriver(fake).Fetch(context.Background(), "NABIL", func(rec map[string]string) bool {
		dates = append(dates, rec["Date"])
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03-05", "2024-03-04"}, dates)

	// the closer match wins even though it is listed second
	require.Contains(t, fake.OpenedURLs, "https://www.nepalstock.com/company/detail/130")
	require.NotContains(t, fake.OpenedURLs, "https://www.nepalstock.com/company/detail/131")
	require.Equal(t, "NABIL", fake.Keyed[searchInputSelector])
}

func TestPriceFetchPagination(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:nepalstock")
	defer cleanup()

	fake := browsertest.New()
	fake.Links[searchResultsSelector] = []browser.Anchor{
		{Text: "NABIL - Nabil Bank Limited", Href: "https://www.nepalstock.com/company/detail/130"},
	}
	fake.RowsQueue[priceTableSelector] = [][][]string{
		{priceRow("1", "2024-03-05")},
		{priceRow("2", "2024-03-04")},
	}
	fake.OnClick = func(selector string) {
		if selector == nextPageSelector && len(fake.RowsQueue[priceTableSelector]) == 0 {
			// last page: the next click "succeeded" but nothing new renders
			fake.Rows[priceTableSelector] = nil
			fake.TimeoutOn[nextPageSelector] = true
		}
	}

	var dates []string
	err := NewPriceDriver(fake).Fetch(context.Background(), "NABIL", func(rec map[string]string) bool {
		dates = append(dates, rec["Date"])
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03-05", "2024-03-04"}, dates)
}

func TestPriceFetchStopsWhenPageUnchanged(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:nepalstock")
	defer cleanup()

	// the next anchor keeps accepting clicks after its li gets the
	// disabled class; the table content just stops changing
	fake := browsertest.New()
	fake.Links[searchResultsSelector] = []browser.Anchor{
		{Text: "NABIL - Nabil Bank Limited", Href: "https://www.nepalstock.com/company/detail/130"},
	}
	fake.Rows[priceTableSelector] = [][]string{
		priceRow("1", "2024-03-05"),
		priceRow("2", "2024-03-04"),
	}

	var dates []string
	err := NewPriceDriver(fake).Fetch(context.Background(), "NABIL", func(rec map[string]string) bool {
		dates = append(dates, rec["Date"])
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03-05", "2024-03-04"}, dates)
	require.Contains(t, fake.Clicked, nextPageSelector)
}

func TestPriceFetchNoSearchResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:nepalstock")
	defer cleanup()

	fake := browsertest.New()

	err := NewPriceDriver(fake).Fetch(context.Background(), "ZZZZ", func(rec map[string]string) bool {
		t.Fatal("no records expected")
		return false
	})
	require.NoError(t, err)
}

func TestPriceFetchMalformedRows(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:nepalstock")
	defer cleanup()

	fake := browsertest.New()
	fake.Links[searchResultsSelector] = []browser.Anchor{
		{Text: "NABIL", Href: "https://www.nepalstock.com/company/detail/130"},
	}
	fake.Rows[priceTableSelector] = [][]string{
		priceRow("1", "2024-03-05"),
		{"short", "row"},
	}
	fake.TimeoutOn[nextPageSelector] = true

	count := 0
	err := NewPriceDriver(fake).Fetch(context.Background(), "NABIL", func(rec map[string]string) bool {
		count++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
