package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/saudijob/jobboard/model"
)

// MockSender provides a mock implementation of the push transport. Tokens listed
// in Fail report failed delivery attempts.
type MockSender struct {
	SentTokens   []string
	Notification *model.Notification
	Fail         map[string]bool
	Err          error
}

// Send records the attempted delivery and reports the scripted per-token outcomes.
func (s *MockSender) Send(_ context.Context, tokens []string, notification *model.Notification) ([]SendResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.SentTokens = tokens
	s.Notification = notification
	results := make([]SendResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, SendResult{Token: token, Succeeded: !s.Fail[token]})
	}
	return results, nil
}

func testJob() *model.Job {
	return &model.Job{
		ID:          "7a5bb0e8-55a0-4cbe-9a4d-8c6dd340d46b",
		Name:        "Sara",
		CompanyName: "ACME Contracting",
		Email:       "sara@example.org",
		City:        "Riyadh",
		JobRole:     "Electrician",
		TimeCreated: time.Now(),
	}
}

func expectTokenLookup(mock sqlmock.Sqlmock, tokens ...string) {
	rows := sqlmock.NewRows([]string{"token"})
	for _, token := range tokens {
		rows.AddRow(token)
	}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token FROM push_registrations WHERE").
		WithArgs("electrician").
		WillReturnRows(rows)
	mock.ExpectCommit()
}

func TestDispatchSendsToRegisteredTokens(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Set up the expectations: three registrations, all deliverable.
	expectTokenLookup(mock, "token-1", "token-2", "token-3")

	// Dispatch the notification.
	sender := &MockSender{}
	dispatcher := NewDispatcher(db, sender)
	assert.NoError(dispatcher.dispatchJobCreated(context.Background(), testJob()))

	// All three tokens were attempted in one multicast.
	assert.Equal([]string{"token-1", "token-2", "token-3"}, sender.SentTokens)
	assert.Equal("New Job: Electrician", sender.Notification.Title)
	assert.Equal("Riyadh • Tap to open", sender.Notification.Body)
	assert.Equal("7a5bb0e8-55a0-4cbe-9a4d-8c6dd340d46b", sender.Notification.Data["jobId"])

	// Verify that all mock expectations were met.
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestDispatchPrunesFailedTokens(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Set up the expectations: five registrations, two of which fail delivery
	// and are pruned.
	expectTokenLookup(mock, "token-1", "token-2", "token-3", "token-4", "token-5")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM push_registrations WHERE token IN").
		WithArgs("token-2", "token-4").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// Dispatch the notification.
	sender := &MockSender{Fail: map[string]bool{"token-2": true, "token-4": true}}
	dispatcher := NewDispatcher(db, sender)
	assert.NoError(dispatcher.dispatchJobCreated(context.Background(), testJob()))

	// Verify that all mock expectations were met: only the failed tokens were
	// removed.
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestDispatchSkipsSendWithoutRegistrations(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Set up the expectations: no registrations for the role.
	expectTokenLookup(mock)

	// Dispatch the notification.
	sender := &MockSender{}
	dispatcher := NewDispatcher(db, sender)
	assert.NoError(dispatcher.dispatchJobCreated(context.Background(), testJob()))

	// The transport was never invoked.
	assert.Nil(sender.SentTokens)
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestNotifyJobCreatedSwallowsFailures(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// The transport fails outright; the side effect must not propagate it.
	expectTokenLookup(mock, "token-1")
	sender := &MockSender{Err: errors.New("transport unavailable")}
	dispatcher := NewDispatcher(db, sender)

	assert.NotPanics(func() {
		dispatcher.NotifyJobCreated(context.Background(), testJob())
	})
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestRegisterNormalizesRoles(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Set up the expectations for the upsert.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO push_registrations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Register with messy role strings.
	dispatcher := NewDispatcher(db, &MockSender{})
	roles, err := dispatcher.Register(
		context.Background(), "token-1", []string{" Plumber", "plumber", "Driver", ""}, "web", "agent/1.0")
	assert.NoError(err)
	assert.Equal([]string{"plumber", "driver"}, roles)

	// Verify that all mock expectations were met.
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}
