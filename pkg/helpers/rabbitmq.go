package helpers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// declareTopicExchange declares the durable topic exchange events are published to.
func declareTopicExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// RabbitPublisher wraps an AMQP channel and exchange for publishing messages.
type RabbitPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	Exchange   string
	RoutingKey string
}

func NewRabbitPublisher(url, exchange, routingKey string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopicExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Exchange: exchange, RoutingKey: routingKey}, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON publishes a JSON-encoded message to the exchange and returns its message id.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	err = p.ch.PublishWithContext(ctx,
		p.Exchange,
		p.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RabbitSubscription is a durable queue bound to a topic exchange. Every
// consumer of the same queue competes for messages, so each message reaches
// one of them.
type RabbitSubscription struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	Queue      string
	Deliveries <-chan amqp.Delivery
}

func NewRabbitSubscription(url, exchange, routingKey, queue string, prefetch int) (*RabbitSubscription, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	fail := func(err error) (*RabbitSubscription, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Prefetch for fair dispatch between group members
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fail(err)
	}
	if err := declareTopicExchange(ch, exchange); err != nil {
		return fail(err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fail(err)
	}
	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fail(err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fail(err)
	}
	return &RabbitSubscription{conn: conn, ch: ch, Queue: queue, Deliveries: msgs}, nil
}

func (s *RabbitSubscription) Close() {
	if s == nil {
		return
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
