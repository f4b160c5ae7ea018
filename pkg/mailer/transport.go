package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTransport = errors.New("unknown mail transport")

// Transport delivers one message using the given session.
type Transport interface {
	Send(ctx context.Context, s Session, msg Message) error
}

// NewTransport returns the transport registered under kind.
// mg is only used for the "mailgun" kind.
func NewTransport(kind string, mg *Mailgun) (Transport, error) {
	switch strings.ToLower(kind) {
	case "", "smtp":
		return NewSMTPTransport(), nil
	case "mailgun":
		if mg == nil {
			return nil, errors.New("mailgun transport selected but not configured")
		}
		return mg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, kind)
	}
}
