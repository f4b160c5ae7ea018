package consumer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/signup-email-service/internal/application"
	"github.com/oksasatya/signup-email-service/pkg/helpers"
)

// KafkaReader is the subset of *kafka.Reader used by KafkaConsumer.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer feeds messages of a consumer group to a MessageHandler.
// Partition assignment within the group is left to the brokers.
type KafkaConsumer struct {
	Reader      KafkaReader
	Handler     MessageHandler
	Logger      *logrus.Logger
	SendTimeout time.Duration

	// Backoff after a failed fetch
	Backoff time.Duration
}

func NewKafkaConsumer(reader KafkaReader, handler MessageHandler, logger *logrus.Logger, sendTimeout time.Duration) *KafkaConsumer {
	return &KafkaConsumer{
		Reader:      reader,
		Handler:     handler,
		Logger:      logger,
		SendTimeout: sendTimeout,
		Backoff:     fetchBackoff,
	}
}

// Run fetches, handles and commits messages until ctx is cancelled or the reader is closed.
// Each message is committed after a single handling attempt whatever its outcome.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			helpers.LogWarn(c.Logger, "kafka fetch failed", err, nil)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.Backoff):
			}
			continue
		}

		c.process(ctx, m)

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = c.Reader.CommitMessages(commitCtx, m)
		cancel()
		if err != nil {
			helpers.LogError(c.Logger, "kafka commit failed", err, fields(m))
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, m kafka.Message) {
	hctx, cancel := handleContext(ctx, c.SendTimeout)
	defer cancel()

	err := c.Handler.Handle(hctx, m.Value)
	f := fields(m)
	f["outcome"] = application.Outcome(err)

	var de *application.DecodeError
	switch {
	case err == nil:
		helpers.LogInfo(c.Logger, "signup message handled", f)
	case errors.As(err, &de):
		helpers.LogWarn(c.Logger, "dropping undecodable signup message", err, f)
	default:
		helpers.LogError(c.Logger, "signup email not sent", err, f)
	}
}

func fields(m kafka.Message) logrus.Fields {
	f := logrus.Fields{
		"topic":     m.Topic,
		"partition": m.Partition,
		"offset":    m.Offset,
	}
	if id := helpers.KafkaHeader(m, "message-id"); id != "" {
		f["message_id"] = id
	}
	return f
}
