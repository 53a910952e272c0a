package interfaces

import (
	"context"

	"github.com/customeros/mailforward/internal/models"
)

// Relay is one authenticated SMTP session.
type Relay interface {
	Send(ctx context.Context, email *models.ForwardedEmail) error
	Close() error
}

type RelayDialer interface {
	Dial(ctx context.Context) (Relay, error)
}
