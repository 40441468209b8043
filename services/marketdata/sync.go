package marketdata

import (
	"time"
)

// Verdict is a SyncPolicy's decision for one record.
type Verdict int

const (
	// VerdictStore admits the record.
	VerdictStore Verdict = iota
	// VerdictStop ends the scrape; rows arrive newest-first, so once a
	// record falls at or behind the watermark everything after it is
	// already stored.
	VerdictStop
)

// SyncPolicy decides, per record, whether an incremental sync keeps
// going. Checks apply in a fixed precedence: the record cap first, the
// hard earliest-date cutoff second, the stored watermark last. The cap
// counts stored records, not examined ones, so callers report each
// successful store back via RecordStored.
type SyncPolicy struct {
	// MaxRecords stops the sync after this many stored records. Zero
	// means unlimited.
	MaxRecords int
	// EarliestDate is a hard cutoff; records strictly older stop the
	// sync. Zero value disables it.
	EarliestDate time.Time
	// Watermark is the newest timestamp already stored. Records at or
	// behind it stop the sync. Zero value disables it.
	Watermark time.Time

	stored int
}

func (p *SyncPolicy) Admit(recordTime time.Time) Verdict {
	if p.MaxRecords > 0 && p.stored >= p.MaxRecords {
		return VerdictStop
	}
	if !p.EarliestDate.IsZero() && recordTime.Before(p.EarliestDate) {
		return VerdictStop
	}
	if !p.Watermark.IsZero() && !recordTime.After(p.Watermark) {
		return VerdictStop
	}
	return VerdictStore
}

func (p *SyncPolicy) RecordStored() {
	p.stored++
}

func (p *SyncPolicy) Stored() int {
	return p.stored
}
