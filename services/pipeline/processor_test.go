package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/fake"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/services/forwarder"
	"github.com/customeros/mailforward/services/imap"
	"github.com/customeros/mailforward/services/parser"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func message(subject string, date time.Time) string {
	return fmt.Sprintf("From: sender@example.com\r\nTo: me@yahoo.com\r\nSubject: %s\r\nDate: %s\r\n\r\nhello\r\n",
		subject, date.Format(time.RFC1123Z))
}

func newTestProcessor(mailbox *fake.Mailbox, relay *fake.Relay, window time.Duration) *Processor {
	log := logger.NewNopLogger()
	reader := imap.NewReader(mailbox, log).WithClock(func() time.Time { return testNow })
	composer := forwarder.NewComposer("relay@example.com", "dest@example.com", log)
	fwd := forwarder.NewForwarder(composer, relay, log)
	return NewProcessor(reader, parser.NewEmailParser(log), fwd, window, "me@yahoo.com", log)
}

func TestRun_MarksSeenOnlyForwarded(t *testing.T) {
	mailbox := fake.NewMailbox()
	first := mailbox.Add(message("first", testNow))
	second := mailbox.Add(message("second", testNow))
	third := mailbox.Add(message("third", testNow))

	relay := fake.NewRelay()
	relay.SendErr[second] = errors.New("552 message size exceeds limit")

	result, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Forwarded)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.Aborted)
	assert.True(t, errors.Is(result.LastError, fwderrors.ErrSend))

	assert.Equal(t, []uint32{first, third}, relay.SentUIDs())
	assert.Equal(t, []uint32{first, third}, mailbox.SeenUIDs())
	assert.False(t, mailbox.IsSeen(second))
}

func TestRun_SecondRunSelectsNothing(t *testing.T) {
	mailbox := fake.NewMailbox()
	mailbox.Add(message("first", testNow))
	mailbox.Add(message("second", testNow))
	relay := fake.NewRelay()
	processor := newTestProcessor(mailbox, relay, 0)

	result, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Forwarded)

	result, err = processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
	assert.Len(t, relay.Sent, 2)
	assert.Equal(t, 1, relay.Dials)
}

func TestRun_NothingUnseenNeverDialsRelay(t *testing.T) {
	mailbox := fake.NewMailbox()
	relay := fake.NewRelay()

	result, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 0, relay.Dials)
	assert.Equal(t, 0, relay.Closes)
	assert.Equal(t, 1, mailbox.Closes)
}

func TestRun_RelayAuthFailureAborts(t *testing.T) {
	mailbox := fake.NewMailbox()
	mailbox.Add(message("first", testNow))
	mailbox.Add(message("second", testNow))

	relay := fake.NewRelay()
	relay.DialErr = fwderrors.Auth(nil, "535 authentication failed")

	processor := newTestProcessor(mailbox, relay, 0)
	result, err := processor.Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, fwderrors.ErrAuth))
	assert.True(t, result.Aborted)
	assert.Equal(t, 1, result.Candidates)
	assert.Empty(t, mailbox.SeenUIDs())
	assert.Equal(t, 1, mailbox.Closes)
	assert.Same(t, result, processor.LastResult())
}

func TestRun_MailboxAuthFailureAborts(t *testing.T) {
	mailbox := fake.NewMailbox()
	mailbox.DialErr = fwderrors.Auth(nil, "LOGIN rejected")
	relay := fake.NewRelay()

	result, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, "auth", fwderrors.Kind(err))
	assert.True(t, result.Aborted)
	assert.Equal(t, 0, relay.Dials)
}

func TestRun_FetchFailureAbortsRemainingBatch(t *testing.T) {
	mailbox := fake.NewMailbox()
	first := mailbox.Add(message("first", testNow))
	second := mailbox.Add(message("second", testNow))
	third := mailbox.Add(message("third", testNow))
	mailbox.FetchErr[second] = errors.New("connection reset by peer")

	relay := fake.NewRelay()
	result, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, fwderrors.ErrConnection))
	assert.True(t, result.Aborted)
	assert.Equal(t, 1, result.Forwarded)
	assert.Equal(t, []uint32{first}, mailbox.SeenUIDs())
	assert.False(t, mailbox.IsSeen(third))
	assert.NotContains(t, mailbox.Fetched, third)

	assert.Equal(t, 1, mailbox.Closes)
	assert.Equal(t, 1, relay.Closes)
}

func TestRun_MarkSeenFailureAborts(t *testing.T) {
	mailbox := fake.NewMailbox()
	first := mailbox.Add(message("first", testNow))
	second := mailbox.Add(message("second", testNow))
	mailbox.MarkSeenErr[first] = errors.New("BYE server shutting down")

	relay := fake.NewRelay()
	result, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, fwderrors.ErrConnection))
	assert.Equal(t, 0, result.Forwarded)
	assert.Equal(t, []uint32{first}, relay.SentUIDs())
	assert.False(t, mailbox.IsSeen(second))
}

func TestRun_TrailingWindow(t *testing.T) {
	mailbox := fake.NewMailbox()
	old := mailbox.Add(message("old", testNow.Add(-7*time.Hour)))
	recent := mailbox.Add(message("recent", testNow.Add(-5*time.Hour)))
	undated := mailbox.Add("From: sender@example.com\r\nSubject: undated\r\nDate: not a date\r\n\r\nhello\r\n")

	relay := fake.NewRelay()
	result, err := newTestProcessor(mailbox, relay, 6*time.Hour).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, []uint32{recent, undated}, relay.SentUIDs())
	assert.False(t, mailbox.IsSeen(old))
}

func TestRun_ForwardedMessageShape(t *testing.T) {
	mailbox := fake.NewMailbox()
	uid := mailbox.Add(message("Invoice\r\n\t 42", testNow))

	relay := fake.NewRelay()
	_, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, relay.Sent, 1)
	sent := relay.Sent[0]
	assert.Equal(t, uid, sent.SourceUID)
	assert.Equal(t, "Fwd: Invoice 42", sent.Subject)
	assert.Equal(t, "relay@example.com", sent.FromAddress)
	assert.Equal(t, "dest@example.com", sent.ToAddress)
	assert.Contains(t, sent.BodyHTML, "<pre>hello")
}

func TestRun_ForwardedMessageShape_Latin1TextAttachment(t *testing.T) {
	raw := "From: sender@example.com\r\nTo: me@yahoo.com\r\nSubject: Export\r\n" +
		"Date: " + testNow.Format(time.RFC1123Z) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b1\"\r\n\r\n" +
		"--b1\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nhello\r\n" +
		"--b1\r\nContent-Type: text/csv; charset=iso-8859-1; name=\"export.csv\"\r\n" +
		"Content-Disposition: attachment; filename=\"export.csv\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\nY2Fm6Sw=\r\n" +
		"--b1--\r\n"

	mailbox := fake.NewMailbox()
	uid := mailbox.Add(raw)

	relay := fake.NewRelay()
	_, err := newTestProcessor(mailbox, relay, 0).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, relay.Sent, 1)
	sent := relay.Sent[0]
	assert.Equal(t, uid, sent.SourceUID)
	assert.Equal(t, "Fwd: Export", sent.Subject)
	assert.Contains(t, sent.BodyHTML, "<pre>hello")

	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "export.csv", sent.Attachments[0].Filename)
	assert.Equal(t, "text/csv; charset=iso-8859-1", sent.Attachments[0].ContentType)
	assert.Equal(t, []byte("caf\xe9,"), sent.Attachments[0].Content)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	mailbox := fake.NewMailbox()
	mailbox.Add(message("first", testNow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	relay := fake.NewRelay()
	result, err := newTestProcessor(mailbox, relay, 0).Run(ctx)
	require.Error(t, err)
	assert.True(t, result.Aborted)
	assert.Equal(t, 0, relay.Dials)
}
