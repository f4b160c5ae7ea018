package helpers

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// KafkaOptions describes how to reach a topic and, for readers, which group to join.
type KafkaOptions struct {
	Brokers []string
	Topic   string
	GroupID string

	// SASLMechanism is one of PLAIN, SCRAM-SHA-256, SCRAM-SHA-512; empty disables SASL.
	SASLMechanism string
	Username      string
	Password      string

	TLS bool
}

func (o KafkaOptions) validate() error {
	if len(o.Brokers) == 0 {
		return errors.New("at least one Kafka broker is required")
	}
	if o.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

func buildSASLMechanism(mechanism, username, password string) (sasl.Mechanism, error) {
	switch strings.ToUpper(mechanism) {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: username, Password: password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, username, password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, username, password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", mechanism)
	}
}

func tlsConfig(enabled bool) *tls.Config {
	if !enabled {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewKafkaReader creates a consumer-group reader. Offsets are committed
// explicitly by the caller after each message.
func NewKafkaReader(o KafkaOptions) (*kafka.Reader, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.GroupID == "" {
		return nil, errors.New("kafka group id is required")
	}
	mechanism, err := buildSASLMechanism(o.SASLMechanism, o.Username, o.Password)
	if err != nil {
		return nil, err
	}
	dialer := &kafka.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		SASLMechanism: mechanism,
		TLS:           tlsConfig(o.TLS),
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        o.Brokers,
		Topic:          o.Topic,
		GroupID:        o.GroupID,
		Dialer:         dialer,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	}), nil
}

// NewKafkaWriter creates a synchronous writer for o.Topic.
func NewKafkaWriter(o KafkaOptions) (*kafka.Writer, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	mechanism, err := buildSASLMechanism(o.SASLMechanism, o.Username, o.Password)
	if err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(o.Brokers...),
		Topic:        o.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
		Transport: &kafka.Transport{
			SASL: mechanism,
			TLS:  tlsConfig(o.TLS),
		},
	}, nil
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes JSON messages to a single topic.
type KafkaPublisher struct {
	w kafkaMessageWriter
}

func NewKafkaPublisher(o KafkaOptions) (*KafkaPublisher, error) {
	w, err := NewKafkaWriter(o)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{w: w}, nil
}

func (p *KafkaPublisher) Close() {
	if p == nil || p.w == nil {
		return
	}
	_ = p.w.Close()
}

// PublishJSON publishes a JSON-encoded message keyed by a fresh message id and returns that id.
func (p *KafkaPublisher) PublishJSON(ctx context.Context, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(id),
		Value: b,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(id)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write to Kafka: %w", err)
	}
	return id, nil
}

// KafkaHeader returns the value of header key, or "".
func KafkaHeader(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}
