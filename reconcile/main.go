// Package reconcile implements the local garbage collector: a periodic pass that
// diffs the local alert and viewed feeds against the authoritative job listing
// and evicts entries whose job no longer exists upstream, plus a synchronous
// fast path used immediately after a confirmed delete.
package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/model"
	"github.com/saudijob/jobboard/restclient"
	"github.com/saudijob/jobboard/store"
)

var log = logrus.WithFields(logrus.Fields{"package": "reconcile"})

// DefaultInterval is how often the reconciliation pass runs. One extra pass runs
// at startup.
const DefaultInterval = 90 * time.Second

// SnapshotPageSize bounds the alive-id snapshot. Reconciliation samples the most
// recent postings rather than the full corpus; a live posting that falls outside
// this page is treated as gone and its local entries are evicted. That staleness
// gap is a known limitation of the bounded snapshot.
const SnapshotPageSize = 300

// JobLister describes the single listing operation the reconciler consumes.
type JobLister interface {
	ListJobs(ctx context.Context, opts restclient.ListOptions) (*model.JobListing, error)
}

// Reconciler removes local references to postings that no longer exist upstream.
type Reconciler struct {
	lister   JobLister
	feed     *store.AlertFeed
	viewed   *store.ViewedFeed
	inFlight atomic.Bool
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(lister JobLister, feed *store.AlertFeed, viewed *store.ViewedFeed) *Reconciler {
	return &Reconciler{lister: lister, feed: feed, viewed: viewed}
}

// Run executes one reconciliation pass. At most one pass runs at a time; a pass
// requested while another is in flight is dropped rather than queued. A
// transport failure skips the pass with no state mutated. The pass is a pure
// filter: it never re-adds or re-orders entries, so running it twice against an
// unchanged listing is a fixed point.
func (r *Reconciler) Run(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer r.inFlight.Store(false)

	// Fetch the bounded snapshot of live posting identifiers.
	listing, err := r.lister.ListJobs(ctx, restclient.ListOptions{Limit: SnapshotPageSize})
	if err != nil {
		log.Debugf("skipping reconciliation pass: %s", err.Error())
		return
	}
	alive := make(map[string]bool, len(listing.Items))
	for _, job := range listing.Items {
		alive[job.ID] = true
	}

	// Filter every local store down to the alive set.
	removedAlerts, err := r.feed.EvictNotIn(alive)
	if err != nil {
		log.Errorf("unable to reconcile the alert feed: %s", err.Error())
		return
	}
	removedViewed, err := r.viewed.EvictNotIn(alive)
	if err != nil {
		log.Errorf("unable to reconcile the viewed feed: %s", err.Error())
		return
	}

	if removedAlerts > 0 || removedViewed > 0 {
		log.Infof("reconciliation evicted %d alert entries and %d viewed entries",
			removedAlerts, removedViewed)
	}
}

// RemoveEverywhere synchronously removes a single posting from every local store.
// It is the fast path taken right after a confirmed delete, bypassing the
// polling delay, and applies exactly the removal semantics of the periodic pass.
func (r *Reconciler) RemoveEverywhere(jobID string) error {
	if jobID == "" {
		return nil
	}
	if err := r.feed.Remove(jobID); err != nil {
		return err
	}
	return r.viewed.Remove(jobID)
}
