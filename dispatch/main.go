// Package dispatch implements the push registry and the best-effort notification
// fan-out that runs when a job posting is created.
package dispatch

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/common"
	"github.com/saudijob/jobboard/db"
	"github.com/saudijob/jobboard/model"
)

var log = logrus.WithFields(logrus.Fields{"package": "dispatch"})

// SendResult reports the outcome of one delivery attempt within a multicast send.
type SendResult struct {
	Token     string
	Succeeded bool
	Err       error
}

// PushSender describes the transport used to deliver push notifications. A single
// call attempts delivery to every token and reports per-token outcomes. The
// returned error indicates that the send could not be attempted at all.
type PushSender interface {
	Send(ctx context.Context, tokens []string, notification *model.Notification) ([]SendResult, error)
}

// Dispatcher stores push registrations and fans out notifications for newly
// created job postings.
type Dispatcher struct {
	db     *sql.DB
	sender PushSender
}

// NewDispatcher returns a new dispatcher.
func NewDispatcher(database *sql.DB, sender PushSender) *Dispatcher {
	return &Dispatcher{db: database, sender: sender}
}

// Register records a device's interest in a set of roles, keyed by its delivery
// token. Registration is an idempotent upsert: registering the same token again
// replaces the previous role set. The normalized role set is returned.
func (d *Dispatcher) Register(ctx context.Context, token string, roles []string, platform, userAgent string) ([]string, error) {
	wrapMsg := "unable to register the device for push notifications"

	normalizedRoles := common.NormalizeRoles(roles)

	// Begin a database transaction.
	tx, err := d.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer func() { _ = tx.Rollback() }()

	// Store the registration.
	registration := &model.PushRegistration{
		Token:     token,
		Roles:     normalizedRoles,
		Platform:  platform,
		UserAgent: userAgent,
		LastSeen:  time.Now(),
	}
	err = db.UpsertPushRegistration(ctx, tx, registration)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Commit the transaction.
	err = tx.Commit()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return normalizedRoles, nil
}

// NotifyJobCreated fans out a push notification for a newly created job posting.
// This is a best-effort side effect of the create path: every failure, including
// a panic in the transport, is logged and swallowed so that notification
// problems can never fail or roll back the creation itself.
func (d *Dispatcher) NotifyJobCreated(ctx context.Context, job *model.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic during push dispatch for job %s: %v", job.ID, r)
		}
	}()
	if err := d.dispatchJobCreated(ctx, job); err != nil {
		log.Errorf("push dispatch failed for job %s: %s", job.ID, err.Error())
	}
}

// dispatchJobCreated performs the actual fan-out: look up every registration
// whose role set contains the posting's normalized role, attempt one multicast
// send, and prune the registration of every token whose delivery attempt failed.
//
// The prune is permanent and applies to any reported failure, transient ones
// included. There is no retry and no failure-kind discrimination; the next
// successful registration from the same device re-creates the entry. This is a
// deliberate simplicity trade-off, not an oversight.
func (d *Dispatcher) dispatchJobCreated(ctx context.Context, job *model.Job) error {
	wrapMsg := "unable to dispatch push notifications"

	role := common.NormalizeRole(job.JobRole)
	if role == "" {
		return nil
	}

	// Look up the delivery tokens registered for the role.
	tokens, err := d.tokensForRole(ctx, role)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if len(tokens) == 0 {
		return nil
	}

	// Attempt a single multicast send. At most one attempt is made per token.
	notification := &model.Notification{
		Title: "New Job: " + job.JobRole,
		Body:  job.City + " • Tap to open",
		Data: map[string]string{
			"jobId":   job.ID,
			"jobRole": job.JobRole,
			"city":    job.City,
		},
	}
	results, err := d.sender.Send(ctx, tokens, notification)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Prune the registrations of the tokens that could not be delivered to.
	var badTokens []string
	for _, result := range results {
		if !result.Succeeded {
			badTokens = append(badTokens, result.Token)
		}
	}
	if len(badTokens) > 0 {
		log.Infof("pruning %d unreachable push registrations", len(badTokens))
		if err := d.deleteRegistrations(ctx, badTokens); err != nil {
			return errors.Wrap(err, wrapMsg)
		}
	}

	return nil
}

// tokensForRole looks up the delivery tokens registered for a role in its own
// transaction.
func (d *Dispatcher) tokensForRole(ctx context.Context, role string) ([]string, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	tokens, err := db.ListTokensForRole(ctx, tx, role)
	if err != nil {
		return nil, err
	}

	return tokens, tx.Commit()
}

// deleteRegistrations removes the registrations for the given tokens in its own
// transaction.
func (d *Dispatcher) deleteRegistrations(ctx context.Context, tokens []string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := db.DeletePushRegistrations(ctx, tx, tokens); err != nil {
		return err
	}

	return tx.Commit()
}

// RegistrationCount reports the number of stored push registrations.
func (d *Dispatcher) RegistrationCount(ctx context.Context) (int64, error) {
	wrapMsg := "unable to count push registrations"

	tx, err := d.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	defer func() { _ = tx.Rollback() }()

	total, err := db.CountPushRegistrations(ctx, tx)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return total, errors.Wrap(tx.Commit(), wrapMsg)
}
