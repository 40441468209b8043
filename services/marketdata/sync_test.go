package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/timezone"
)

func day(d int) time.Time {
	return timezone.Date(2024, time.March, d)
}

func TestSyncPolicyWatermark(t *testing.T) {
	policy := SyncPolicy{Watermark: day(10)}

	require.Equal(t, VerdictStore, policy.Admit(day(12)))
	require.Equal(t, VerdictStore, policy.Admit(day(11)))
	// at the watermark: everything from here back is already stored
	require.Equal(t, VerdictStop, policy.Admit(day(10)))
	require.Equal(t, VerdictStop, policy.Admit(day(9)))
}

func TestSyncPolicyRecordCap(t *testing.T) {
	policy := SyncPolicy{MaxRecords: 2}

	require.Equal(t, VerdictStore, policy.Admit(day(12)))
	policy.RecordStored()
	require.Equal(t, VerdictStore, policy.Admit(day(11)))
	policy.RecordStored()
	require.Equal(t, VerdictStop, policy.Admit(day(10)))
	require.Equal(t, 2, policy.Stored())
}

func TestSyncPolicyCapCountsStoredNotExamined(t *testing.T) {
	policy := SyncPolicy{MaxRecords: 1}

	// examined but not stored (e.g. a duplicate) does not consume the cap
	require.Equal(t, VerdictStore, policy.Admit(day(12)))
	require.Equal(t, VerdictStore, policy.Admit(day(11)))
	policy.RecordStored()
	require.Equal(t, VerdictStop, policy.Admit(day(10)))
}

func TestSyncPolicyEarliestDateCutoff(t *testing.T) {
	policy := SyncPolicy{EarliestDate: day(10)}

	require.Equal(t, VerdictStore, policy.Admit(day(11)))
	require.Equal(t, VerdictStore, policy.Admit(day(10)))
	require.Equal(t, VerdictStop, policy.Admit(day(9)))
}

func TestSyncPolicyPrecedence(t *testing.T) {
	// the cap fires even for records the watermark would admit
	policy := SyncPolicy{MaxRecords: 1, EarliestDate: day(1), Watermark: day(5)}
	policy.RecordStored()
	require.Equal(t, VerdictStop, policy.Admit(day(20)))

	// the cutoff fires before the watermark is even consulted
	policy = SyncPolicy{EarliestDate: day(15), Watermark: day(5)}
	require.Equal(t, VerdictStop, policy.Admit(day(14)))
}
