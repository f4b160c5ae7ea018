package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackCall struct {
	kind    string
	tag     uint64
	requeue bool
}

// fakeAcknowledger records acknowledgements made through amqp.Delivery.
type fakeAcknowledger struct {
	calls []ackCall
	err   error
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.calls = append(a.calls, ackCall{kind: "ack", tag: tag})
	return a.err
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.calls = append(a.calls, ackCall{kind: "nack", tag: tag, requeue: requeue})
	return a.err
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.calls = append(a.calls, ackCall{kind: "reject", tag: tag, requeue: requeue})
	return a.err
}

func delivery(ack amqp.Acknowledger, tag uint64, body string, redelivered bool) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		Body:         []byte(body),
		Redelivered:  redelivered,
		Exchange:     "signup",
		RoutingKey:   "signup",
	}
}

func TestRabbitConsumer_Acknowledgements(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		redelivered bool
		want        ackCall
	}{
		{"sent", nil, false, ackCall{kind: "ack", tag: 1}},
		{"decode error dropped", errDecode, false, ackCall{kind: "nack", tag: 1, requeue: false}},
		{"transport error requeued", errTransport, false, ackCall{kind: "nack", tag: 1, requeue: true}},
		{"transport error after redelivery dropped", errTransport, true, ackCall{kind: "nack", tag: 1, requeue: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			handler := &stubHandler{errs: []error{tt.err}}
			c := NewRabbitConsumer(nil, handler, nil, shortTimeout)

			c.process(context.Background(), delivery(ack, 1, `{"to":"a@x.com"}`, tt.redelivered))

			assert.Equal(t, []ackCall{tt.want}, ack.calls)
			assert.Equal(t, []string{`{"to":"a@x.com"}`}, handler.calls())
		})
	}
}

func TestRabbitConsumer_AckErrorIsLoggedOnly(t *testing.T) {
	ack := &fakeAcknowledger{err: errors.New("channel closed")}
	c := NewRabbitConsumer(nil, &stubHandler{}, nil, shortTimeout)

	assert.NotPanics(t, func() {
		c.process(context.Background(), delivery(ack, 3, `{}`, false))
	})
	assert.Len(t, ack.calls, 1)
}

func TestRabbitConsumer_RunUntilChannelClosed(t *testing.T) {
	ack := &fakeAcknowledger{}
	ch := make(chan amqp.Delivery, 2)
	ch <- delivery(ack, 1, `a`, false)
	ch <- delivery(ack, 2, `b`, false)
	close(ch)

	handler := &stubHandler{}
	err := NewRabbitConsumer(ch, handler, nil, shortTimeout).Run(context.Background())

	assert.ErrorIs(t, err, ErrDeliveriesClosed)
	assert.Equal(t, []string{"a", "b"}, handler.calls())
	assert.Equal(t, []ackCall{{kind: "ack", tag: 1}, {kind: "ack", tag: 2}}, ack.calls)
}

func TestRabbitConsumer_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan amqp.Delivery)

	done := make(chan error, 1)
	go func() { done <- NewRabbitConsumer(ch, &stubHandler{}, nil, shortTimeout).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
