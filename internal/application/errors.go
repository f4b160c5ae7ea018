package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrMissingField   = errors.New("missing required field")
	ErrTrailingData   = errors.New("unexpected data after JSON object")
)

// DecodeError is returned when an inbound payload cannot be turned into a
// SendEmailRequest. No send is attempted for such messages.
type DecodeError struct {
	Details map[string]string
	Err     error
}

func (e *DecodeError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("decode signup payload: %v", e.Err)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Details[k])
	}
	return fmt.Sprintf("decode signup payload: %s", strings.Join(parts, "; "))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError is returned when the mail could not be handed to the relay,
// including failures to obtain the sender credentials.
type TransportError struct {
	To  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send email to %s: %v", e.To, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Outcome classifies the result of handling one message for logging.
func Outcome(err error) string {
	var de *DecodeError
	var te *TransportError
	switch {
	case err == nil:
		return "sent"
	case errors.As(err, &de):
		return "decode_error"
	case errors.As(err, &te):
		return "transport_error"
	default:
		return "error"
	}
}
