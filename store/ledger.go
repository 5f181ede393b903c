package store

import (
	"time"

	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/common"
)

// SeenLedgerCap bounds the seen-id ledger. The ledger only records which job IDs
// the matching pass has already considered; it never gates alert deduplication,
// which is the alert feed's job.
const SeenLedgerCap = 2000

// SeenLedger is a bounded recency set of job IDs, oldest evicted first.
type SeenLedger struct {
	backend Backend
}

// NewSeenLedger returns the seen-id ledger backed by the given backend.
func NewSeenLedger(backend Backend) *SeenLedger {
	return &SeenLedger{backend: backend}
}

// Load reads the ledger, oldest first. A missing or corrupt snapshot yields an
// empty ledger.
func (l *SeenLedger) Load() []string {
	return loadSlice[string](l.backend, KeySeenIDs)
}

// Record appends the job IDs that the matching pass just considered, skipping
// IDs already present, and evicts the oldest entries beyond the cap.
func (l *SeenLedger) Record(jobIDs []string) error {
	ledger := l.Load()

	present := make(map[string]bool, len(ledger))
	for _, id := range ledger {
		present[id] = true
	}

	changed := false
	for _, id := range jobIDs {
		if id == "" || present[id] {
			continue
		}
		present[id] = true
		ledger = append(ledger, id)
		changed = true
	}
	if !changed {
		return nil
	}

	if len(ledger) > SeenLedgerCap {
		ledger = ledger[len(ledger)-SeenLedgerCap:]
	}

	return errors.Wrap(saveJSON(l.backend, KeySeenIDs, ledger), "unable to record seen job IDs")
}

// Watermark is the monotonic high-water timestamp marking the newest job already
// evaluated for alert matching. It is persisted as a millisecond epoch value and
// never decreases; a missing or corrupt snapshot reads as the epoch, which makes
// every job look new again rather than losing alerts.
type Watermark struct {
	backend Backend
}

// NewWatermark returns the watermark store backed by the given backend.
func NewWatermark(backend Backend) *Watermark {
	return &Watermark{backend: backend}
}

// Load reads the watermark.
func (w *Watermark) Load() time.Time {
	data, err := w.backend.Load(KeyWatermark)
	if err != nil || len(data) == 0 {
		return time.Time{}
	}
	return common.ParseTimestamp(string(data))
}

// Advance raises the watermark to the given timestamp if it is later than the
// stored value, returning the effective watermark. The merge takes the maximum
// of the stored and proposed values, so concurrent overlapping advances can
// never regress it.
func (w *Watermark) Advance(candidate time.Time) (time.Time, error) {
	current := w.Load()
	if !candidate.After(current) {
		return current, nil
	}
	err := w.backend.Save(KeyWatermark, []byte(common.FormatTimestamp(candidate)))
	if err != nil {
		return current, errors.Wrap(err, "unable to advance the watermark")
	}
	return candidate, nil
}
