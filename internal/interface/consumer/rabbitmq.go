package consumer

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/signup-email-service/internal/application"
	"github.com/oksasatya/signup-email-service/pkg/helpers"
)

var ErrDeliveriesClosed = errors.New("amqp delivery channel closed")

// RabbitConsumer feeds deliveries from a shared queue to a MessageHandler.
type RabbitConsumer struct {
	Deliveries  <-chan amqp.Delivery
	Handler     MessageHandler
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewRabbitConsumer(deliveries <-chan amqp.Delivery, handler MessageHandler, logger *logrus.Logger, sendTimeout time.Duration) *RabbitConsumer {
	return &RabbitConsumer{
		Deliveries:  deliveries,
		Handler:     handler,
		Logger:      logger,
		SendTimeout: sendTimeout,
	}
}

// Run handles deliveries until ctx is cancelled. A closed delivery channel
// means the broker connection went away and is reported as ErrDeliveriesClosed.
func (c *RabbitConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-c.Deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.process(ctx, d)
		}
	}
}

// process acks on success, drops undecodable messages and requeues a failed
// send once.
func (c *RabbitConsumer) process(ctx context.Context, d amqp.Delivery) {
	hctx, cancel := handleContext(ctx, c.SendTimeout)
	defer cancel()

	err := c.Handler.Handle(hctx, d.Body)
	f := logrus.Fields{
		"routing_key": d.RoutingKey,
		"exchange":    d.Exchange,
		"message_id":  d.MessageId,
		"redelivered": d.Redelivered,
		"outcome":     application.Outcome(err),
	}

	var de *application.DecodeError
	var ackErr error
	switch {
	case err == nil:
		helpers.LogInfo(c.Logger, "signup message handled", f)
		ackErr = d.Ack(false)
	case errors.As(err, &de):
		helpers.LogWarn(c.Logger, "dropping undecodable signup message", err, f)
		ackErr = d.Nack(false, false)
	default:
		helpers.LogError(c.Logger, "signup email not sent", err, f)
		ackErr = d.Nack(false, !d.Redelivered)
	}
	if ackErr != nil {
		helpers.LogError(c.Logger, "amqp acknowledgement failed", ackErr, f)
	}
}
