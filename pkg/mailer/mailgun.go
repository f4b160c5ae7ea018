package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun wraps Mailgun client configuration.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

// Send sends msg via the Mailgun API. The configured Sender wins over the session's address.
func (m *Mailgun) Send(ctx context.Context, s Session, msg Message) error {
	from := m.Sender
	if from == "" {
		from = s.From()
	}
	client := mg.NewMailgun(m.Domain, m.APIKey)
	message := client.NewMessage(from, msg.Subject, msg.Body, msg.To)
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := client.Send(c, message)
	return err
}
