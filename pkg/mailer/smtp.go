package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPTransport delivers messages through an SMTP relay using the go-mail library.
// A new client is dialed for every session.
type SMTPTransport struct{}

func NewSMTPTransport() *SMTPTransport {
	return &SMTPTransport{}
}

// Send delivers msg as a plain-text email using the session's relay and credentials.
func (t *SMTPTransport) Send(ctx context.Context, s Session, msg Message) error {
	m, err := newPlainTextMsg(s.From(), msg)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(s.Host, clientOptions(s)...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", s.Host, s.Port, err)
	}
	return nil
}

func newPlainTextMsg(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func clientOptions(s Session) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(tlsPolicy(s.StartTLS)),
	}
	if s.Auth {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	if s.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Timeout))
	}
	return opts
}

// tlsPolicy upgrades with STARTTLS when the relay offers it and falls back to
// plaintext otherwise.
func tlsPolicy(startTLS bool) mail.TLSPolicy {
	if startTLS {
		return mail.TLSOpportunistic
	}
	return mail.NoTLS
}
