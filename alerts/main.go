// Package alerts implements the client-side matching engine: a polling loop that
// watches the job listing for new postings matching the user's interest tags and
// turns them into alert feed entries.
package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/common"
	"github.com/saudijob/jobboard/model"
	"github.com/saudijob/jobboard/restclient"
	"github.com/saudijob/jobboard/store"
)

var log = logrus.WithFields(logrus.Fields{"package": "alerts"})

// DefaultPollInterval is how often the matching loop polls the job listing.
const DefaultPollInterval = 15 * time.Second

// DefaultPageSize is how many of the most recent postings each poll examines.
const DefaultPageSize = 50

// JobLister describes the single listing operation the matcher consumes.
type JobLister interface {
	ListJobs(ctx context.Context, opts restclient.ListOptions) (*model.JobListing, error)
}

// Notifier receives the local notification side effect fired once for every
// newly created alert entry.
type Notifier interface {
	Notify(entry *model.AlertEntry)
}

// LogNotifier writes notifications to the service log. It stands in wherever no
// platform notification surface is wired up.
type LogNotifier struct{}

// Notify logs the alert.
func (LogNotifier) Notify(entry *model.AlertEntry) {
	log.Infof("new job alert: %s in %s (job %s)",
		entry.JobSnapshot.JobRole, entry.JobSnapshot.City, entry.JobID)
}

// Matcher evaluates each poll cycle against the user's interest tags.
type Matcher struct {
	lister     JobLister
	notifier   Notifier
	preference *store.Preference
	watermark  *store.Watermark
	ledger     *store.SeenLedger
	feed       *store.AlertFeed
	pageSize   int
	now        func() time.Time
}

// NewMatcher creates a matching engine over the given stores.
func NewMatcher(
	lister JobLister,
	notifier Notifier,
	preference *store.Preference,
	watermark *store.Watermark,
	ledger *store.SeenLedger,
	feed *store.AlertFeed,
) *Matcher {
	return &Matcher{
		lister:     lister,
		notifier:   notifier,
		preference: preference,
		watermark:  watermark,
		ledger:     ledger,
		feed:       feed,
		pageSize:   DefaultPageSize,
		now:        time.Now,
	}
}

// roleMatches determines whether a posting's role matches any selected interest
// tag. The comparison is case-insensitive substring containment: the tag "pipe"
// matches the role "Pipe Fitter". Partial tags are intentionally allowed; the
// over-match this admits is a documented design choice.
func roleMatches(jobRole string, tags []string) bool {
	role := common.NormalizeRole(jobRole)
	for _, tag := range tags {
		if strings.Contains(role, tag) {
			return true
		}
	}
	return false
}

// Poll runs one matching cycle. The cycle is a pure no-op unless it finds
// postings newer than the watermark that match an interest tag; any transport
// failure aborts the cycle with no state mutated, leaving the next tick to retry
// from the same watermark.
func (m *Matcher) Poll(ctx context.Context) {
	// An empty interest set disables matching entirely, network call included.
	tags := common.NormalizeRoles(m.preference.Load().Roles)
	if len(tags) == 0 {
		return
	}

	// Fetch the most recent page of postings.
	listing, err := m.lister.ListJobs(ctx, restclient.ListOptions{Limit: m.pageSize})
	if err != nil {
		log.Debugf("skipping poll cycle: %s", err.Error())
		return
	}

	// Compute the matches: postings newer than the watermark whose role matches
	// a selected tag.
	watermark := m.watermark.Load()
	var matches []model.Job
	considered := make([]string, 0, len(listing.Items))
	for _, job := range listing.Items {
		considered = append(considered, job.ID)
		if !job.TimeCreated.After(watermark) {
			continue
		}
		if roleMatches(job.JobRole, tags) {
			matches = append(matches, job)
		}
	}
	if len(matches) == 0 {
		return
	}

	// Record every considered posting in the ledger.
	if err := m.ledger.Record(considered); err != nil {
		log.Errorf("aborting poll cycle: %s", err.Error())
		return
	}

	// Advance the watermark to the newest match. The advance is a max-merge, so
	// an overlapping cycle that finished first can never be undone here.
	newest := matches[0].TimeCreated
	for _, job := range matches[1:] {
		newest = common.MaxTime(newest, job.TimeCreated)
	}
	if _, err := m.watermark.Advance(newest); err != nil {
		log.Errorf("aborting poll cycle: %s", err.Error())
		return
	}

	// Append the new alert entries. Matches whose job already has an entry are
	// silently dropped by the feed; they are neither errors nor re-notified.
	now := m.now()
	entries := make([]model.AlertEntry, 0, len(matches))
	for _, job := range matches {
		entries = append(entries, model.AlertEntry{
			ID:          uuid.NewString(),
			JobID:       job.ID,
			JobSnapshot: job,
			Seen:        false,
			SavedAt:     now,
		})
	}
	added, err := m.feed.Append(entries)
	if err != nil {
		log.Errorf("unable to append alert entries: %s", err.Error())
		return
	}

	// Fire the local notification side effect once per genuinely new entry.
	for i := range added {
		m.notifier.Notify(&added[i])
	}
}
