package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSASLMechanism(t *testing.T) {
	m, err := buildSASLMechanism("", "u", "p")
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = buildSASLMechanism("plain", "u", "p")
	require.NoError(t, err)
	assert.Equal(t, plain.Mechanism{Username: "u", Password: "p"}, m)

	m, err = buildSASLMechanism("SCRAM-SHA-256", "u", "p")
	require.NoError(t, err)
	assert.Equal(t, "SCRAM-SHA-256", m.Name())

	m, err = buildSASLMechanism("SCRAM-SHA-512", "u", "p")
	require.NoError(t, err)
	assert.Equal(t, "SCRAM-SHA-512", m.Name())

	_, err = buildSASLMechanism("GSSAPI", "u", "p")
	assert.Error(t, err)
}

func TestNewKafkaReader_Validates(t *testing.T) {
	_, err := NewKafkaReader(KafkaOptions{Topic: "signup", GroupID: "EmailService"})
	assert.Error(t, err)

	_, err = NewKafkaReader(KafkaOptions{Brokers: []string{"localhost:9092"}, GroupID: "EmailService"})
	assert.Error(t, err)

	_, err = NewKafkaReader(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "signup"})
	assert.Error(t, err)

	_, err = NewKafkaReader(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "signup", GroupID: "EmailService", SASLMechanism: "OAUTH"})
	assert.Error(t, err)
}

func TestNewKafkaReader_Config(t *testing.T) {
	r, err := NewKafkaReader(KafkaOptions{
		Brokers: []string{"localhost:9092"},
		Topic:   "signup",
		GroupID: "EmailService",
		TLS:     true,
	})
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	cfg := r.Config()
	assert.Equal(t, "signup", cfg.Topic)
	assert.Equal(t, "EmailService", cfg.GroupID)
	require.NotNil(t, cfg.Dialer)
	assert.NotNil(t, cfg.Dialer.TLS)
}

func TestNewKafkaWriter(t *testing.T) {
	w, err := NewKafkaWriter(KafkaOptions{Brokers: []string{"k1:9092", "k2:9092"}, Topic: "signup"})
	require.NoError(t, err)
	assert.Equal(t, "signup", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_PublishJSON(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{w: w}

	id, err := p.PublishJSON(context.Background(), map[string]string{"to": "a@x.com"})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, id, string(m.Key))
	assert.Equal(t, id, KafkaHeader(m, "message-id"))
	assert.Equal(t, "application/json", KafkaHeader(m, "Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(m.Value, &body))
	assert.Equal(t, "a@x.com", body["to"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	down := errors.New("leader not available")
	p := &KafkaPublisher{w: &recordingWriter{err: down}}

	_, err := p.PublishJSON(context.Background(), map[string]string{})
	assert.ErrorIs(t, err, down)
}

func TestKafkaHeader_Missing(t *testing.T) {
	assert.Equal(t, "", KafkaHeader(kafka.Message{}, "message-id"))
}
