package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailforward/internal/models"
)

// Mailbox is the IMAP capability the reader depends on. Implementations hold
// one authenticated session with the source folder already selected.
type Mailbox interface {
	// SearchUnseen returns UIDs of unseen messages in server order. A zero
	// since disables the date criterion.
	SearchUnseen(ctx context.Context, since time.Time) ([]uint32, error)
	// Fetch returns the full message without setting \Seen.
	Fetch(ctx context.Context, uid uint32) (*models.RawMessage, error)
	MarkSeen(ctx context.Context, uid uint32) error
	Close() error
}

type MailboxDialer interface {
	Dial(ctx context.Context) (Mailbox, error)
}

type MailboxStatus struct {
	Connected   bool
	LastError   string
	LastChecked time.Time
}

type MailboxMonitor interface {
	Status() MailboxStatus
}
