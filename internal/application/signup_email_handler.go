package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/signup-email-service/internal/domain/entity"
	"github.com/oksasatya/signup-email-service/pkg/mailer"
	"github.com/oksasatya/signup-email-service/pkg/validation"
)

var validate = validation.New()

// sendEmailPayload mirrors entity.SendEmailRequest with pointers so that an
// absent key can be told apart from an empty string.
type sendEmailPayload struct {
	To      *string `json:"to"`
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

var payloadKeys = map[string]bool{"to": true, "subject": true, "body": true}

// checkKeys walks the top-level object and reports keys that are not an exact
// match for a payload field or that appear more than once; encoding/json folds
// case and keeps the last duplicate. Malformed input is left to the typed decode.
func checkKeys(payload []byte) map[string]string {
	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	seen := make(map[string]bool, len(payloadKeys))
	details := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil
		}
		switch {
		case !payloadKeys[key]:
			details[key] = "is not allowed"
		case seen[key]:
			details[key] = "is duplicated"
		}
		seen[key] = true
	}
	return details
}

// DecodeSendEmailRequest strictly decodes a signup event.
// All three keys are required; subject and body may be empty, to must be a valid address.
func DecodeSendEmailRequest(payload []byte) (entity.SendEmailRequest, error) {
	if details := checkKeys(payload); len(details) > 0 {
		return entity.SendEmailRequest{}, &DecodeError{Details: details, Err: ErrInvalidPayload}
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var p sendEmailPayload
	if err := dec.Decode(&p); err != nil {
		return entity.SendEmailRequest{}, &DecodeError{
			Details: validation.ToDetails(err),
			Err:     fmt.Errorf("%w: %w", ErrInvalidPayload, err),
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return entity.SendEmailRequest{}, &DecodeError{
			Details: map[string]string{"payload": "must contain a single JSON object"},
			Err:     ErrTrailingData,
		}
	}

	missing := map[string]string{}
	if p.To == nil {
		missing["to"] = "is required"
	}
	if p.Subject == nil {
		missing["subject"] = "is required"
	}
	if p.Body == nil {
		missing["body"] = "is required"
	}
	if len(missing) > 0 {
		return entity.SendEmailRequest{}, &DecodeError{Details: missing, Err: ErrMissingField}
	}

	req := entity.SendEmailRequest{To: *p.To, Subject: *p.Subject, Body: *p.Body}
	if err := validate.Struct(req); err != nil {
		return entity.SendEmailRequest{}, &DecodeError{
			Details: validation.ToDetails(err),
			Err:     fmt.Errorf("%w: %w", ErrInvalidPayload, err),
		}
	}
	return req, nil
}

// SignupEmailHandler turns one signup event into one email.
// It keeps no state between calls and is safe for concurrent use.
type SignupEmailHandler struct {
	Transport   mailer.Transport
	Credentials mailer.CredentialProvider
	Sender      string
	Settings    mailer.SessionSettings
	Logger      *logrus.Logger
}

func NewSignupEmailHandler(transport mailer.Transport, credentials mailer.CredentialProvider, sender string, settings mailer.SessionSettings, logger *logrus.Logger) *SignupEmailHandler {
	return &SignupEmailHandler{
		Transport:   transport,
		Credentials: credentials,
		Sender:      sender,
		Settings:    settings,
		Logger:      logger,
	}
}

// Handle decodes payload and attempts exactly one send. Failures are returned
// as *DecodeError or *TransportError and are never retried here.
func (h *SignupEmailHandler) Handle(ctx context.Context, payload []byte) error {
	req, err := DecodeSendEmailRequest(payload)
	if err != nil {
		return err
	}

	session, err := mailer.NewSession(h.Settings, h.Sender, h.Credentials)
	if err != nil {
		return &TransportError{To: req.To, Err: err}
	}

	msg := mailer.Message{To: req.To, Subject: req.Subject, Body: req.Body}
	if err := h.Transport.Send(ctx, session, msg); err != nil {
		return &TransportError{To: req.To, Err: err}
	}

	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{
			"to":      req.To,
			"subject": req.Subject,
			"relay":   fmt.Sprintf("%s:%d", session.Host, session.Port),
		}).Debug("signup email dispatched")
	}
	return nil
}
