package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/model"
)

// Feed caps. Insertion beyond a cap evicts the oldest entries.
const (
	AlertFeedCap  = 300
	ViewedFeedCap = 200
)

// AlertFeed is the deduplicated, newest-first feed of alert entries.
type AlertFeed struct {
	backend Backend
}

// NewAlertFeed returns the alert feed store backed by the given backend.
func NewAlertFeed(backend Backend) *AlertFeed {
	return &AlertFeed{backend: backend}
}

// Load reads the alert feed. A missing or corrupt snapshot yields an empty feed.
func (f *AlertFeed) Load() []model.AlertEntry {
	return loadSlice[model.AlertEntry](f.backend, KeyAlertFeed)
}

// Save replaces the alert feed.
func (f *AlertFeed) Save(entries []model.AlertEntry) error {
	return saveJSON(f.backend, KeyAlertFeed, entries)
}

// Append prepends entries to the feed, skipping any entry whose job ID is
// already present, and truncates the feed to its cap. The entries that were
// actually added are returned so that the caller can fire one notification per
// genuinely new alert.
func (f *AlertFeed) Append(entries []model.AlertEntry) ([]model.AlertEntry, error) {
	feed := f.Load()

	existing := make(map[string]bool, len(feed))
	for _, entry := range feed {
		existing[entry.JobID] = true
	}

	added := make([]model.AlertEntry, 0, len(entries))
	for _, entry := range entries {
		if existing[entry.JobID] {
			continue
		}
		existing[entry.JobID] = true
		added = append(added, entry)
	}
	if len(added) == 0 {
		return nil, nil
	}

	feed = append(added, feed...)
	if len(feed) > AlertFeedCap {
		feed = feed[:AlertFeedCap]
	}

	if err := f.Save(feed); err != nil {
		return nil, errors.Wrap(err, "unable to append to the alert feed")
	}
	return added, nil
}

// MarkSeen marks the alert entry for a job as read. Marking an entry that is
// already read, or a job with no entry, is a no-op.
func (f *AlertFeed) MarkSeen(jobID string) error {
	feed := f.Load()
	changed := false
	for i := range feed {
		if feed[i].JobID == jobID && !feed[i].Seen {
			feed[i].Seen = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return errors.Wrap(f.Save(feed), "unable to mark the alert entry as read")
}

// UnreadCount reports the number of alert entries not yet marked as read.
func (f *AlertFeed) UnreadCount() int {
	count := 0
	for _, entry := range f.Load() {
		if !entry.Seen {
			count++
		}
	}
	return count
}

// Remove drops the alert entry referencing a job, if any.
func (f *AlertFeed) Remove(jobID string) error {
	_, err := f.EvictByJobID(func(id string) bool { return id == jobID })
	return err
}

// EvictNotIn drops every alert entry whose job is absent from the alive set.
func (f *AlertFeed) EvictNotIn(alive map[string]bool) (int, error) {
	return f.EvictByJobID(func(id string) bool { return !alive[id] })
}

// EvictByJobID drops every alert entry whose job ID satisfies the predicate,
// returning the number of entries removed. The surviving entries keep their
// order; nothing is ever re-added.
func (f *AlertFeed) EvictByJobID(evict func(jobID string) bool) (int, error) {
	feed := f.Load()
	kept := feed[:0:0]
	for _, entry := range feed {
		if !evict(entry.JobID) {
			kept = append(kept, entry)
		}
	}
	removed := len(feed) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := f.Save(kept); err != nil {
		return 0, errors.Wrap(err, "unable to evict alert entries")
	}
	return removed, nil
}

// Clear empties the alert feed.
func (f *AlertFeed) Clear() error {
	return errors.Wrap(f.Save([]model.AlertEntry{}), "unable to clear the alert feed")
}

// ViewedFeed is the newest-first list of jobs the local user opened.
type ViewedFeed struct {
	backend Backend
}

// NewViewedFeed returns the viewed feed store backed by the given backend.
func NewViewedFeed(backend Backend) *ViewedFeed {
	return &ViewedFeed{backend: backend}
}

// Load reads the viewed feed. A missing or corrupt snapshot yields an empty feed.
func (f *ViewedFeed) Load() []model.ViewedEntry {
	return loadSlice[model.ViewedEntry](f.backend, KeyViewedFeed)
}

// Save replaces the viewed feed.
func (f *ViewedFeed) Save(entries []model.ViewedEntry) error {
	return saveJSON(f.backend, KeyViewedFeed, entries)
}

// Record prepends an entry for a job the user just opened. An existing entry for
// the same job is replaced rather than duplicated, and the feed is truncated to
// its cap.
func (f *ViewedFeed) Record(entry model.ViewedEntry) error {
	feed := f.Load()
	kept := make([]model.ViewedEntry, 0, len(feed)+1)
	kept = append(kept, entry)
	for _, existing := range feed {
		if existing.JobID != entry.JobID {
			kept = append(kept, existing)
		}
	}
	if len(kept) > ViewedFeedCap {
		kept = kept[:ViewedFeedCap]
	}
	return errors.Wrap(f.Save(kept), "unable to record the viewed job")
}

// Remove drops the viewed entry referencing a job, if any.
func (f *ViewedFeed) Remove(jobID string) error {
	_, err := f.EvictByJobID(func(id string) bool { return id == jobID })
	return err
}

// EvictNotIn drops every viewed entry whose job is absent from the alive set.
func (f *ViewedFeed) EvictNotIn(alive map[string]bool) (int, error) {
	return f.EvictByJobID(func(id string) bool { return !alive[id] })
}

// EvictByJobID drops every viewed entry whose job ID satisfies the predicate,
// returning the number of entries removed.
func (f *ViewedFeed) EvictByJobID(evict func(jobID string) bool) (int, error) {
	feed := f.Load()
	kept := feed[:0:0]
	for _, entry := range feed {
		if !evict(entry.JobID) {
			kept = append(kept, entry)
		}
	}
	removed := len(feed) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := f.Save(kept); err != nil {
		return 0, errors.Wrap(err, "unable to evict viewed entries")
	}
	return removed, nil
}

// Clear empties the viewed feed.
func (f *ViewedFeed) Clear() error {
	return errors.Wrap(f.Save([]model.ViewedEntry{}), "unable to clear the viewed feed")
}

// loadSlice decodes a persisted slice snapshot, returning an empty slice when
// the snapshot is missing or corrupt. Corruption is logged and otherwise treated
// exactly like an absent snapshot.
func loadSlice[T any](backend Backend, key string) []T {
	data, err := backend.Load(key)
	if err != nil || len(data) == 0 {
		if err != nil {
			log.Debugf("discarding unreadable `%s` state: %s", key, err.Error())
		}
		return []T{}
	}
	var entries []T
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Debugf("discarding corrupt `%s` state: %s", key, err.Error())
		return []T{}
	}
	return entries
}

// saveJSON marshals and persists a snapshot.
func saveJSON(backend Backend, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return backend.Save(key, data)
}
