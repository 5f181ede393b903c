package dispatch

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestHandleReportPrunesReportedTokens(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Set up the expectations: both reported tokens are pruned.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM push_registrations WHERE token IN").
		WithArgs("token-1", "token-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// Handle the delivery report.
	listener := &ReceiptListener{dispatcher: NewDispatcher(db, &MockSender{})}
	delivery := amqp.Delivery{Body: []byte(`{"tokens":["token-1","token-2"]}`)}
	listener.HandleReport(context.Background(), delivery)

	// Verify that all mock expectations were met.
	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestHandleReportDiscardsMalformedBody(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	// Handle a report that cannot be parsed: nothing touches the database.
	listener := &ReceiptListener{dispatcher: NewDispatcher(db, &MockSender{})}
	listener.HandleReport(context.Background(), amqp.Delivery{Body: []byte("{nope")})

	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}

func TestHandleReportIgnoresEmptyTokenList(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	listener := &ReceiptListener{dispatcher: NewDispatcher(db, &MockSender{})}
	listener.HandleReport(context.Background(), amqp.Delivery{Body: []byte(`{"tokens":[]}`)})

	assert.NoError(mock.ExpectationsWereMet(), "not all mock expectations were met")
}
