// Package agent assembles the client side of the job board: the local state
// stores, the alert matching loop, the reconciliation loop, and the operations
// the UI layer calls. All persisted client state is owned by this one
// device/session; the server never reads it.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/alerts"
	"github.com/saudijob/jobboard/model"
	"github.com/saudijob/jobboard/reconcile"
	"github.com/saudijob/jobboard/restclient"
	"github.com/saudijob/jobboard/sched"
	"github.com/saudijob/jobboard/store"
)

var log = logrus.WithFields(logrus.Fields{"package": "agent"})

// Settings represents the configuration of an agent.
type Settings struct {
	// APIBaseURL is the base URL of the job board API.
	APIBaseURL string

	// DataDir is where local state snapshots are persisted. When empty, state is
	// kept in memory and lost on shutdown.
	DataDir string

	// PollInterval overrides the matching loop period when non-zero.
	PollInterval time.Duration

	// ReconcileInterval overrides the reconciliation loop period when non-zero.
	ReconcileInterval time.Duration
}

// Agent owns the background loops and the local state stores.
type Agent struct {
	settings   *Settings
	client     *restclient.Client
	preference *store.Preference
	feed       *store.AlertFeed
	viewed     *store.ViewedFeed
	matcher    *alerts.Matcher
	reconciler *reconcile.Reconciler
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New assembles an agent from its settings. The notifier receives the local
// notification side effect for every new alert entry; passing nil logs alerts
// instead.
func New(settings *Settings, notifier alerts.Notifier) *Agent {
	if notifier == nil {
		notifier = alerts.LogNotifier{}
	}

	var backend store.Backend
	if settings.DataDir != "" {
		backend = store.NewFileBackend(settings.DataDir)
	} else {
		backend = store.NewMemoryBackend()
	}

	client := restclient.NewClient(settings.APIBaseURL)
	preference := store.NewPreference(backend)
	feed := store.NewAlertFeed(backend)
	viewed := store.NewViewedFeed(backend)
	matcher := alerts.NewMatcher(
		client,
		notifier,
		preference,
		store.NewWatermark(backend),
		store.NewSeenLedger(backend),
		feed,
	)
	reconciler := reconcile.NewReconciler(client, feed, viewed)

	return &Agent{
		settings:   settings,
		client:     client,
		preference: preference,
		feed:       feed,
		viewed:     viewed,
		matcher:    matcher,
		reconciler: reconciler,
	}
}

// Start arms both background timers: the matching loop on its poll interval and
// the reconciliation loop on its slower interval with one immediate pass at
// startup. The two loops never share a lock; they only append or filter, so
// their rare overlapping store accesses commute.
func (a *Agent) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	pollInterval := a.settings.PollInterval
	if pollInterval <= 0 {
		pollInterval = alerts.DefaultPollInterval
	}
	reconcileInterval := a.settings.ReconcileInterval
	if reconcileInterval <= 0 {
		reconcileInterval = reconcile.DefaultInterval
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		sched.Interval(ctx, pollInterval, false, a.matcher.Poll)
	}()
	go func() {
		defer a.wg.Done()
		sched.Interval(ctx, reconcileInterval, true, a.reconciler.Run)
	}()

	log.Infof("agent started: polling every %s, reconciling every %s", pollInterval, reconcileInterval)
}

// Close disarms both timers and waits for the loops to return. An in-flight
// fetch is not cancelled; its result is discarded when the loop sees the
// cancelled context.
func (a *Agent) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// Preference returns the user's selected interest tags.
func (a *Agent) Preference() model.AlertPreference {
	return a.preference.Load()
}

// SetPreference replaces the user's selected interest tags.
func (a *Agent) SetPreference(roles []string) error {
	return a.preference.Save(model.AlertPreference{Roles: roles})
}

// Alerts returns the alert feed, newest first.
func (a *Agent) Alerts() []model.AlertEntry {
	return a.feed.Load()
}

// UnreadCount returns the number of unread alert entries.
func (a *Agent) UnreadCount() int {
	return a.feed.UnreadCount()
}

// MarkAlertSeen marks the alert entry for a job as read without removing it.
func (a *Agent) MarkAlertSeen(jobID string) error {
	return a.feed.MarkSeen(jobID)
}

// ClearAlerts empties the alert feed.
func (a *Agent) ClearAlerts() error {
	return a.feed.Clear()
}

// Viewed returns the viewed feed, newest first.
func (a *Agent) Viewed() []model.ViewedEntry {
	return a.viewed.Load()
}

// ClearViewed empties the viewed feed.
func (a *Agent) ClearViewed() error {
	return a.viewed.Clear()
}

// RecordView stores a viewed entry for a job the user opened and reports the
// view to the server. The server-side counter increment is best effort; a
// transport failure is logged without affecting the local entry.
func (a *Agent) RecordView(ctx context.Context, job model.Job) error {
	err := a.viewed.Record(model.ViewedEntry{
		JobID:       job.ID,
		JobSnapshot: job,
		ViewedAt:    time.Now(),
	})
	if err != nil {
		return err
	}
	if err := a.client.IncrementView(ctx, job.ID); err != nil {
		log.Debugf("unable to report the view for job %s: %s", job.ID, err.Error())
	}
	return nil
}

// DeleteJob deletes a posting the user owns and then takes the fast removal
// path: the posting's entries are immediately filtered out of every local store
// instead of waiting for the next reconciliation pass.
func (a *Agent) DeleteJob(ctx context.Context, jobID, email string) error {
	wrapMsg := "unable to delete the job posting"

	if err := a.client.DeleteJob(ctx, jobID, email); err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if err := a.reconciler.RemoveEverywhere(jobID); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// RegisterPush registers this device's delivery token for the user's currently
// selected interest tags.
func (a *Agent) RegisterPush(ctx context.Context, token, platform string) error {
	return a.client.RegisterPush(ctx, token, a.preference.Load().Roles, platform)
}
