package consumer

import (
	"context"
	"time"
)

// MessageHandler processes the body of one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, payload []byte) error
}

const (
	defaultSendTimeout = 15 * time.Second
	fetchBackoff       = 2 * time.Second
)

// handleContext derives the context for one message. It is detached from
// parent's cancellation so a shutdown does not abort a send midway.
func handleContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
