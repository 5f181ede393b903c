package dispatch

import (
	"context"
	"encoding/json"

	"github.com/cyverse-de/messaging/v9"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/saudijob/jobboard/common"
)

// receiptQueueName is the durable queue that delivery receipts accumulate in.
const receiptQueueName = "jobboard.push.receipts"

// ReceiptRoutingKey is the routing key that push providers publish failed
// delivery reports to.
const ReceiptRoutingKey = "push.receipt.failed"

// failedDeliveryReport is the message body a push provider publishes when one or
// more delivery tokens turn out to be unreachable.
type failedDeliveryReport struct {
	Tokens []string `json:"tokens"`
}

// ReceiptListener consumes failed delivery reports from push providers and
// prunes the corresponding registrations. It complements the synchronous prune
// in the fan-out path: providers that only learn about dead tokens after the
// send has been acknowledged report them here instead.
type ReceiptListener struct {
	client     *messaging.Client
	dispatcher *Dispatcher
}

// NewReceiptListener creates a listener for failed delivery reports.
func NewReceiptListener(settings *common.AMQPSettings, dispatcher *Dispatcher) (*ReceiptListener, error) {
	wrapMsg := "unable to create the delivery receipt listener"

	// Create the AMQP client.
	client, err := messaging.NewClient(settings.URI, false)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Register the consumer.
	listener := &ReceiptListener{client: client, dispatcher: dispatcher}
	client.AddConsumer(
		settings.ExchangeName,
		settings.ExchangeType,
		receiptQueueName,
		ReceiptRoutingKey,
		listener.HandleReport,
		1,
	)

	return listener, nil
}

// Listen waits for incoming delivery reports. It blocks until the client is
// closed, so it is normally invoked in its own goroutine.
func (l *ReceiptListener) Listen() {
	l.client.Listen()
}

// Close closes the underlying AMQP client.
func (l *ReceiptListener) Close() {
	l.client.Close()
}

// HandleReport processes a single failed delivery report. A malformed or empty
// report is acknowledged and dropped; requeueing it could never make it parse.
func (l *ReceiptListener) HandleReport(ctx context.Context, delivery amqp.Delivery) {
	var report failedDeliveryReport
	if err := json.Unmarshal(delivery.Body, &report); err != nil {
		log.Errorf("discarding malformed delivery receipt: %s", err.Error())
		l.acknowledge(delivery)
		return
	}
	if len(report.Tokens) == 0 {
		l.acknowledge(delivery)
		return
	}

	// Prune the registrations of the reported tokens.
	log.Infof("pruning %d push registrations reported unreachable", len(report.Tokens))
	if err := l.dispatcher.deleteRegistrations(ctx, report.Tokens); err != nil {
		log.Errorf("unable to prune the reported push registrations: %s", err.Error())

		// Requeue so that a transient database failure does not lose the report.
		if err := delivery.Reject(true); err != nil {
			log.Errorf("unable to requeue the delivery receipt: %s", err.Error())
		}
		return
	}

	l.acknowledge(delivery)
}

// acknowledge acks a delivery, logging any failure to do so.
func (l *ReceiptListener) acknowledge(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		log.Errorf("unable to acknowledge the delivery receipt: %s", err.Error())
	}
}
