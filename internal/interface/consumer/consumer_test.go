package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oksasatya/signup-email-service/internal/application"
)

// stubHandler records payloads and answers with a scripted error per call.
type stubHandler struct {
	mu       sync.Mutex
	payloads []string
	errs     []error
	deadline []bool
}

func (h *stubHandler) Handle(ctx context.Context, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	h.deadline = append(h.deadline, hasDeadline)
	h.payloads = append(h.payloads, string(payload))
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func (h *stubHandler) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.payloads...)
}

var (
	errDecode    = &application.DecodeError{Err: application.ErrInvalidPayload}
	errTransport = &application.TransportError{To: "a@x.com", Err: errors.New("connection refused")}
)

const shortTimeout = 50 * time.Millisecond
