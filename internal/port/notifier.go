package port

import (
	"context"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// Notifier accepts a notice for best-effort delivery.
type Notifier interface {
	Notify(ctx context.Context, notice domain.Notice) error
}

// Sink delivers a single message to a recipient address.
type Sink interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
