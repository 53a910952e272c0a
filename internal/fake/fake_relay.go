package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/models"
)

var ErrNotFound = errors.New("not found")

// Relay records every forwarded email instead of sending it. It is its own dialer.
type Relay struct {
	mu sync.Mutex

	DialErr error
	SendErr map[uint32]error

	Dials  int
	Closes int
	Sent   []*models.ForwardedEmail
}

func NewRelay() *Relay {
	return &Relay{SendErr: make(map[uint32]error)}
}

func (r *Relay) Dial(ctx context.Context) (interfaces.Relay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Dials++
	if r.DialErr != nil {
		return nil, r.DialErr
	}
	return r, nil
}

func (r *Relay) Send(ctx context.Context, email *models.ForwardedEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.SendErr[email.SourceUID]; err != nil {
		return err
	}
	r.Sent = append(r.Sent, email)
	return nil
}

func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Closes++
	return nil
}

func (r *Relay) SentUIDs() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	uids := make([]uint32, 0, len(r.Sent))
	for _, email := range r.Sent {
		uids = append(uids, email.SourceUID)
	}
	return uids
}
