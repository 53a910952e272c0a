package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailforward/config"
	"github.com/customeros/mailforward/interfaces"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
)

const (
	connectTimeout = 30 * time.Second
	fetchTimeout   = 60 * time.Second
	logoutTimeout  = 5 * time.Second
)

// Dialer opens authenticated IMAP sessions against the configured mailbox.
type Dialer struct {
	cfg *config.MailboxConfig
	log logger.Logger

	statusMutex sync.RWMutex
	status      interfaces.MailboxStatus
}

func NewDialer(cfg *config.MailboxConfig, log logger.Logger) *Dialer {
	return &Dialer{cfg: cfg, log: log}
}

// Dial connects over implicit TLS, logs in and selects the source folder.
func (d *Dialer) Dial(ctx context.Context) (interfaces.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPDialer.Dial")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", d.cfg.Host)
	span.SetTag("port", d.cfg.Port)

	serverAddr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: connectTimeout,
	}

	c, err := client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: d.cfg.Host})
	if err != nil {
		err = fwderrors.Connection(err, "failed to connect to "+serverAddr)
		tracing.TraceErr(span, err)
		d.updateStatus(false, err)
		return nil, err
	}

	c.Timeout = connectTimeout
	if err = c.Login(d.cfg.Username, d.cfg.AppPassword); err != nil {
		_ = c.Logout()
		err = fwderrors.Auth(err, "failed to login as "+d.cfg.Username)
		tracing.TraceErr(span, err)
		d.updateStatus(false, err)
		return nil, err
	}

	// Read-write selection: the \Seen store needs it. Fetches use BODY.PEEK[]
	// so nothing else is mutated.
	mbox, err := c.Select(d.cfg.Folder, false)
	if err != nil {
		_ = c.Logout()
		err = fwderrors.Connection(err, "failed to select "+d.cfg.Folder)
		tracing.TraceErr(span, err)
		d.updateStatus(false, err)
		return nil, err
	}
	c.Timeout = 0

	d.log.Infof("[%s] Selected %s - Messages: %d, Unseen: %d", d.cfg.Username, d.cfg.Folder, mbox.Messages, mbox.Unseen)
	span.SetTag("messages.total", mbox.Messages)
	span.SetTag("messages.unseen", mbox.Unseen)
	d.updateStatus(true, nil)

	return &session{client: c, log: d.log, username: d.cfg.Username, onClose: func() { d.updateStatus(false, nil) }}, nil
}

func (d *Dialer) Status() interfaces.MailboxStatus {
	d.statusMutex.RLock()
	defer d.statusMutex.RUnlock()
	return d.status
}

func (d *Dialer) updateStatus(connected bool, err error) {
	d.statusMutex.Lock()
	defer d.statusMutex.Unlock()
	d.status.Connected = connected
	d.status.LastChecked = time.Now()
	if err != nil {
		d.status.LastError = err.Error()
	} else if connected {
		d.status.LastError = ""
	}
}

// session is one logged-in IMAP connection. Not safe for concurrent use.
type session struct {
	client   *client.Client
	log      logger.Logger
	username string
	onClose  func()
}

func (s *session) SearchUnseen(ctx context.Context, since time.Time) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.SearchUnseen")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if !since.IsZero() {
		criteria.Since = since
		span.SetTag("since", since.Format("2-Jan-2006"))
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		err = fwderrors.Connection(err, "unseen search failed")
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("unseen.count", len(uids))
	return uids, nil
}

func (s *session) Fetch(ctx context.Context, uid uint32) (*models.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchInternalDate,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	s.client.Timeout = fetchTimeout
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}
	err := <-done
	s.client.Timeout = 0

	if err != nil {
		err = fwderrors.Connection(err, fmt.Sprintf("fetch uid %d failed", uid))
		tracing.TraceErr(span, err)
		return nil, err
	}
	if msg == nil {
		err = fwderrors.Connection(nil, fmt.Sprintf("message with uid %d not found", uid))
		tracing.TraceErr(span, err)
		return nil, err
	}

	literal := msg.GetBody(section)
	if literal == nil {
		err = fwderrors.Connection(nil, fmt.Sprintf("server returned no body for uid %d", uid))
		tracing.TraceErr(span, err)
		return nil, err
	}

	raw, err := io.ReadAll(literal)
	if err != nil {
		err = fwderrors.Connection(err, fmt.Sprintf("reading body of uid %d", uid))
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("size", len(raw))
	return &models.RawMessage{UID: msg.Uid, Raw: raw, ReceivedAt: msg.InternalDate}, nil
}

func (s *session) MarkSeen(ctx context.Context, uid uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.MarkSeen")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
		err = fwderrors.Connection(err, fmt.Sprintf("marking uid %d seen failed", uid))
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// Close logs out, giving up after logoutTimeout.
func (s *session) Close() error {
	if s.onClose != nil {
		defer s.onClose()
	}

	s.client.Timeout = logoutTimeout

	done := make(chan error, 1)
	go func() {
		done <- s.client.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			s.log.Warnf("[%s] Error during logout: %v", s.username, err)
			return err
		}
		s.log.Debugf("[%s] Successfully logged out", s.username)
		return nil
	case <-time.After(logoutTimeout):
		s.log.Warnf("[%s] Logout timed out", s.username)
		return s.client.Terminate()
	}
}
