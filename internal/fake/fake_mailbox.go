package fake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/models"
)

type Message struct {
	UID          uint32
	Raw          []byte
	InternalDate time.Time
	Seen         bool
}

// Mailbox is an in-memory IMAP folder. It is its own dialer.
type Mailbox struct {
	mu       sync.Mutex
	messages []*Message
	nextUID  uint32

	DialErr     error
	SearchErr   error
	FetchErr    map[uint32]error
	MarkSeenErr map[uint32]error

	Dials       int
	Closes      int
	SearchSince []time.Time
	Fetched     []uint32
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		nextUID:     1,
		FetchErr:    make(map[uint32]error),
		MarkSeenErr: make(map[uint32]error),
	}
}

func (m *Mailbox) Add(raw string) uint32 {
	return m.AddAt(raw, time.Time{})
}

func (m *Mailbox) AddAt(raw string, internalDate time.Time) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid := m.nextUID
	m.nextUID++
	m.messages = append(m.messages, &Message{UID: uid, Raw: []byte(raw), InternalDate: internalDate})
	return uid
}

func (m *Mailbox) IsSeen(uid uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg := m.find(uid); msg != nil {
		return msg.Seen
	}
	return false
}

func (m *Mailbox) SeenUIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var uids []uint32
	for _, msg := range m.messages {
		if msg.Seen {
			uids = append(uids, msg.UID)
		}
	}
	return uids
}

func (m *Mailbox) Dial(ctx context.Context) (interfaces.Mailbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Dials++
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return m, nil
}

// SearchUnseen applies IMAP SINCE semantics against the internal date:
// day granularity, messages without a date always match.
func (m *Mailbox) SearchUnseen(ctx context.Context, since time.Time) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchSince = append(m.SearchSince, since)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	var uids []uint32
	for _, msg := range m.messages {
		if msg.Seen {
			continue
		}
		if !since.IsZero() && !msg.InternalDate.IsZero() && msg.InternalDate.Before(since) {
			continue
		}
		uids = append(uids, msg.UID)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

func (m *Mailbox) Fetch(ctx context.Context, uid uint32) (*models.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Fetched = append(m.Fetched, uid)
	if err := m.FetchErr[uid]; err != nil {
		return nil, err
	}
	msg := m.find(uid)
	if msg == nil {
		return nil, ErrNotFound
	}
	raw := make([]byte, len(msg.Raw))
	copy(raw, msg.Raw)
	return &models.RawMessage{UID: msg.UID, Raw: raw, ReceivedAt: msg.InternalDate}, nil
}

func (m *Mailbox) MarkSeen(ctx context.Context, uid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.MarkSeenErr[uid]; err != nil {
		return err
	}
	msg := m.find(uid)
	if msg == nil {
		return ErrNotFound
	}
	msg.Seen = true
	return nil
}

func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closes++
	return nil
}

func (m *Mailbox) find(uid uint32) *Message {
	for _, msg := range m.messages {
		if msg.UID == uid {
			return msg
		}
	}
	return nil
}
