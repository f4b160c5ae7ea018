package mailer

import (
	"errors"
	"fmt"
	"time"
)

var ErrEmptySecret = errors.New("credential provider returned an empty secret")

// CredentialProvider supplies the secret used to authenticate sender against the relay.
type CredentialProvider interface {
	Supply(sender string) (string, error)
}

// CredentialFunc adapts a plain function to CredentialProvider.
type CredentialFunc func(sender string) (string, error)

func (f CredentialFunc) Supply(sender string) (string, error) { return f(sender) }

// StaticCredentials returns the same secret for every sender.
type StaticCredentials struct {
	Password string
}

func (c StaticCredentials) Supply(string) (string, error) {
	return c.Password, nil
}

// SessionSettings are the fixed transport parameters shared by every session.
type SessionSettings struct {
	Host     string
	Port     int
	Auth     bool
	StartTLS bool
	Timeout  time.Duration
}

// DefaultSessionSettings targets a submission relay on port 587 with STARTTLS and AUTH.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		Host:     "smtp.gmail.com",
		Port:     587,
		Auth:     true,
		StartTLS: true,
		Timeout:  10 * time.Second,
	}
}

// Session bundles transport settings and credentials for exactly one send.
type Session struct {
	SessionSettings
	Username string
	Password string
}

// From is the envelope and header sender of messages sent with this session.
func (s Session) From() string { return s.Username }

// NewSession builds a session for sender. The provider is only consulted when
// authentication is enabled.
func NewSession(settings SessionSettings, sender string, provider CredentialProvider) (Session, error) {
	s := Session{SessionSettings: settings, Username: sender}
	if !settings.Auth {
		return s, nil
	}
	if provider == nil {
		return Session{}, fmt.Errorf("session for %s: no credential provider", sender)
	}
	secret, err := provider.Supply(sender)
	if err != nil {
		return Session{}, fmt.Errorf("session for %s: %w", sender, err)
	}
	if secret == "" {
		return Session{}, fmt.Errorf("session for %s: %w", sender, ErrEmptySecret)
	}
	s.Password = secret
	return s, nil
}
