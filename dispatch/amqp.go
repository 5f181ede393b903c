package dispatch

import (
	"context"
	"encoding/json"

	"github.com/cyverse-de/messaging/v9"
	"github.com/pkg/errors"

	"github.com/saudijob/jobboard/common"
	"github.com/saudijob/jobboard/model"
)

// pushRoutingPrefix is prepended to the delivery token to form the routing key
// for a push delivery. Each device consumes from a queue bound to its own token.
const pushRoutingPrefix = "push.delivery."

// AMQPSender delivers push notifications by publishing one message per delivery
// token on the push exchange.
type AMQPSender struct {
	client *messaging.Client
}

// NewAMQPSender creates a push sender backed by an AMQP exchange.
func NewAMQPSender(settings *common.AMQPSettings) (*AMQPSender, error) {
	wrapMsg := "unable to create the push sender"

	// Create the AMQP client.
	client, err := messaging.NewClient(settings.URI, false)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Set up publishing on the push exchange.
	err = client.SetupPublishing(settings.ExchangeName)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &AMQPSender{client: client}, nil
}

// Send publishes the notification once per delivery token, reporting a per-token
// outcome. A publish failure marks only that token as failed; the remaining
// tokens are still attempted.
func (s *AMQPSender) Send(_ context.Context, tokens []string, notification *model.Notification) ([]SendResult, error) {
	wrapMsg := "unable to send push notifications"

	// Marshal the notification payload once; it is shared by every delivery.
	body, err := json.Marshal(notification)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Publish one message per token.
	results := make([]SendResult, 0, len(tokens))
	for _, token := range tokens {
		err := s.client.Publish(pushRoutingPrefix+token, body)
		results = append(results, SendResult{
			Token:     token,
			Succeeded: err == nil,
			Err:       err,
		})
	}

	return results, nil
}

// Close closes the underlying AMQP client.
func (s *AMQPSender) Close() {
	s.client.Close()
}
