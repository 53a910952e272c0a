package imap

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
)

// Reader selects forwarding candidates from the source mailbox.
type Reader struct {
	dialer interfaces.MailboxDialer
	log    logger.Logger
	now    func() time.Time
}

func NewReader(dialer interfaces.MailboxDialer, log logger.Logger) *Reader {
	return &Reader{dialer: dialer, log: log, now: time.Now}
}

// WithClock replaces the time source used for the trailing window.
func (r *Reader) WithClock(now func() time.Time) *Reader {
	r.now = now
	return r
}

// Open dials the mailbox. The returned session must be closed by the caller.
func (r *Reader) Open(ctx context.Context) (*Session, error) {
	mailbox, err := r.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{mailbox: mailbox, log: r.log, now: r.now}, nil
}

type Session struct {
	mailbox interfaces.Mailbox
	log     logger.Logger
	now     func() time.Time
}

// FetchCandidates searches unseen messages. With a non-zero window the server
// search is narrowed to whole days and the exact cutoff is applied per message
// as the sequence is consumed.
func (s *Session) FetchCandidates(ctx context.Context, window time.Duration) (*Candidates, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.FetchCandidates")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("window", window.String())

	var cutoff, since time.Time
	if window > 0 {
		cutoff = s.now().Add(-window)
		since = sinceDay(cutoff)
	}

	uids, err := s.mailbox.SearchUnseen(ctx, since)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("candidates.unseen", len(uids))
	return &Candidates{session: s, uids: uids, cutoff: cutoff}, nil
}

func (s *Session) MarkSeen(ctx context.Context, uid uint32) error {
	return s.mailbox.MarkSeen(ctx, uid)
}

func (s *Session) Close() error {
	return s.mailbox.Close()
}

// sinceDay returns the day before the cutoff's calendar day. IMAP SINCE has
// day granularity in the server's time zone, so one extra day keeps the
// coarse filter from dropping anything the fine filter would keep.
func sinceDay(cutoff time.Time) time.Time {
	day := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())
	return day.AddDate(0, 0, -1)
}

// Candidates is a lazy, one-shot sequence of messages in server order.
type Candidates struct {
	session  *Session
	uids     []uint32
	pos      int
	cutoff   time.Time
	filtered int
}

// Unseen is the number of UIDs returned by the server search, before the fine filter.
func (c *Candidates) Unseen() int {
	return len(c.uids)
}

// Filtered is the number of messages dropped so far by the trailing window.
func (c *Candidates) Filtered() int {
	return c.filtered
}

// Next fetches the next in-window message. It returns io.EOF when the
// sequence is exhausted.
func (c *Candidates) Next(ctx context.Context) (*models.RawMessage, error) {
	for c.pos < len(c.uids) {
		uid := c.uids[c.pos]
		c.pos++

		raw, err := c.session.mailbox.Fetch(ctx, uid)
		if err != nil {
			return nil, err
		}

		date, ok := headerDate(raw.Raw)
		if ok {
			raw.ReceivedAt = date
		}

		if !c.cutoff.IsZero() && ok && date.Before(c.cutoff) {
			c.filtered++
			c.session.log.Debugf("uid %d dated %s is outside the window, leaving it unseen", uid, date.Format(time.RFC3339))
			continue
		}
		if !c.cutoff.IsZero() && !ok {
			c.session.log.Debugf("uid %d has no usable Date header, keeping it", uid)
		}

		return raw, nil
	}
	return nil, io.EOF
}

func headerDate(raw []byte) (time.Time, bool) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return time.Time{}, false
	}
	date, err := msg.Header.Date()
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
