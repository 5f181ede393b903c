package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saudijob/jobboard/model"
)

func alertEntry(jobID string, created time.Time) model.AlertEntry {
	return model.AlertEntry{
		ID:    "entry-" + jobID,
		JobID: jobID,
		JobSnapshot: model.Job{
			ID:          jobID,
			JobRole:     "Electrician",
			City:        "Riyadh",
			TimeCreated: created,
		},
		SavedAt: created,
	}
}

func TestAlertFeedAppendDeduplicates(t *testing.T) {
	assert := assert.New(t)
	feed := NewAlertFeed(NewMemoryBackend())
	now := time.Now()

	// The first append adds the entry.
	added, err := feed.Append([]model.AlertEntry{alertEntry("job-1", now)})
	assert.NoError(err)
	assert.Len(added, 1)

	// A second append for the same job is silently dropped.
	added, err = feed.Append([]model.AlertEntry{alertEntry("job-1", now.Add(time.Minute))})
	assert.NoError(err)
	assert.Len(added, 0)
	assert.Len(feed.Load(), 1)
}

func TestAlertFeedCap(t *testing.T) {
	assert := assert.New(t)
	feed := NewAlertFeed(NewMemoryBackend())
	now := time.Now()

	// Append more entries than the cap, one batch per cycle, oldest first.
	for i := 0; i < AlertFeedCap+25; i++ {
		_, err := feed.Append([]model.AlertEntry{
			alertEntry(fmt.Sprintf("job-%d", i), now.Add(time.Duration(i)*time.Second)),
		})
		assert.NoError(err)
	}

	// Exactly the most recent entries survive, newest first.
	entries := feed.Load()
	assert.Len(entries, AlertFeedCap)
	assert.Equal(fmt.Sprintf("job-%d", AlertFeedCap+24), entries[0].JobID)
	assert.Equal("job-25", entries[AlertFeedCap-1].JobID)
}

func TestAlertFeedMarkSeen(t *testing.T) {
	assert := assert.New(t)
	feed := NewAlertFeed(NewMemoryBackend())
	now := time.Now()

	_, err := feed.Append([]model.AlertEntry{alertEntry("job-1", now)})
	assert.NoError(err)
	assert.Equal(1, feed.UnreadCount())

	// Marking the entry as read flips the unread count without removing it.
	assert.NoError(feed.MarkSeen("job-1"))
	assert.Equal(0, feed.UnreadCount())
	assert.Len(feed.Load(), 1)

	// Marking it again is a no-op.
	assert.NoError(feed.MarkSeen("job-1"))
	assert.Equal(0, feed.UnreadCount())
}

func TestAlertFeedEvictNotIn(t *testing.T) {
	assert := assert.New(t)
	feed := NewAlertFeed(NewMemoryBackend())
	now := time.Now()

	_, err := feed.Append([]model.AlertEntry{
		alertEntry("job-1", now),
		alertEntry("job-2", now),
		alertEntry("job-3", now),
	})
	assert.NoError(err)

	// Evict everything that is not in the alive set.
	removed, err := feed.EvictNotIn(map[string]bool{"job-1": true, "job-3": true})
	assert.NoError(err)
	assert.Equal(1, removed)

	entries := feed.Load()
	assert.Len(entries, 2)
	assert.Equal("job-1", entries[0].JobID)
	assert.Equal("job-3", entries[1].JobID)

	// A second eviction against the same alive set is a fixed point.
	removed, err = feed.EvictNotIn(map[string]bool{"job-1": true, "job-3": true})
	assert.NoError(err)
	assert.Equal(0, removed)
}

func TestAlertFeedCorruptSnapshot(t *testing.T) {
	assert := assert.New(t)
	backend := NewMemoryBackend()
	assert.NoError(backend.Save(KeyAlertFeed, []byte("{not json")))

	// A corrupt snapshot reads as an empty feed and is replaced on the next write.
	feed := NewAlertFeed(backend)
	assert.Len(feed.Load(), 0)

	_, err := feed.Append([]model.AlertEntry{alertEntry("job-1", time.Now())})
	assert.NoError(err)
	assert.Len(feed.Load(), 1)
}

func TestViewedFeedRecordAndCap(t *testing.T) {
	assert := assert.New(t)
	feed := NewViewedFeed(NewMemoryBackend())
	now := time.Now()

	for i := 0; i < ViewedFeedCap+10; i++ {
		err := feed.Record(model.ViewedEntry{
			JobID:    fmt.Sprintf("job-%d", i),
			ViewedAt: now.Add(time.Duration(i) * time.Second),
		})
		assert.NoError(err)
	}

	entries := feed.Load()
	assert.Len(entries, ViewedFeedCap)
	assert.Equal(fmt.Sprintf("job-%d", ViewedFeedCap+9), entries[0].JobID)

	// Re-recording an existing job moves it to the front instead of duplicating it.
	assert.NoError(feed.Record(model.ViewedEntry{JobID: "job-100", ViewedAt: now}))
	entries = feed.Load()
	assert.Len(entries, ViewedFeedCap)
	assert.Equal("job-100", entries[0].JobID)
}

func TestViewedFeedRemove(t *testing.T) {
	assert := assert.New(t)
	feed := NewViewedFeed(NewMemoryBackend())

	assert.NoError(feed.Record(model.ViewedEntry{JobID: "job-1"}))
	assert.NoError(feed.Record(model.ViewedEntry{JobID: "job-2"}))

	assert.NoError(feed.Remove("job-1"))
	entries := feed.Load()
	assert.Len(entries, 1)
	assert.Equal("job-2", entries[0].JobID)
}

func TestFileBackendRoundTrip(t *testing.T) {
	assert := assert.New(t)
	backend := NewFileBackend(t.TempDir())

	// Absent state loads as nil without an error.
	data, err := backend.Load(KeyAlertFeed)
	assert.NoError(err)
	assert.Nil(data)

	// Saved state loads back unchanged.
	assert.NoError(backend.Save(KeyAlertFeed, []byte(`[]`)))
	data, err = backend.Load(KeyAlertFeed)
	assert.NoError(err)
	assert.Equal([]byte(`[]`), data)
}
