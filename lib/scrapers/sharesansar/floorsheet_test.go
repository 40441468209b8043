package sharesansar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/browser/browsertest"
	"nepsemarket-backend/lib/telemetry"
)

func tradeRow(sn, id string) []string {
	return []string{sn, id, "34", "58", "100", "880", "88000"}
}

func TestFloorsheetFetchFilterAndPaginate(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sharesansar")
	defer cleanup()

	fake := browsertest.New()
	// the table only fills after the filter button repaints it
	fake.OnClick = func(selector string) {
		switch selector {
		case floorsheetFilterSelector:
			fake.Rows[floorsheetTableSelector] = [][]string{
				tradeRow("1", "2024030500017"),
				tradeRow("2", "2024030500018"),
			}
		case floorsheetNextSelector:
			fake.Rows[floorsheetTableSelector] = [][]string{
				tradeRow("3", "2024030500019"),
			}
			fake.TimeoutOn[floorsheetNextSelector] = true
		}
	}

	var ids []string
	err := NewFloorsheetDriver(fake).Fetch(context.Background(), "NABIL", func(rec map[string]string) bool {
		ids = append(ids, rec["Transact No."])
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024030500017", "2024030500018", "2024030500019"}, ids)
	require.Equal(t, "NABIL", fake.Keyed[floorsheetSymbolSelector])

	require.Contains(t, fake.Clicked, floorsheetFilterSelector)
	require.Contains(t, fake.Clicked, floorsheetNextSelector)
}

func TestFloorsheetFetchFilterNeverFills(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:sharesansar")
	defer cleanup()

	fake := browsertest.New()
	ctx, cancel := context.WithCancel(context.Background())
	// the poll gives up when the context dies; cancel after the first
	// empty read instead of waiting out the poll budget
	fake.OnClick = func(selector string) {
		if selector == floorsheetFilterSelector {
			cancel()
		}
	}

	err := NewFloorsheetDriver(fake).Fetch(ctx, "NABIL", func(rec map[string]string) bool {
		t.Fatal("no records expected")
		return false
	})
	require.NoError(t, err)
}
