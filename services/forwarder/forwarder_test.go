package forwarder

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/fake"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
)

func newTestForwarder(relay *fake.Relay) *Forwarder {
	return NewForwarder(newTestComposer(), relay, logger.NewNopLogger())
}

func TestSession_DialsLazilyOnce(t *testing.T) {
	relay := fake.NewRelay()
	session := newTestForwarder(relay).NewSession()

	assert.False(t, session.Connected())
	assert.Equal(t, 0, relay.Dials)

	require.NoError(t, session.Forward(context.Background(), &models.Email{UID: 1, Subject: "one"}))
	require.NoError(t, session.Forward(context.Background(), &models.Email{UID: 2, Subject: "two"}))

	assert.True(t, session.Connected())
	assert.Equal(t, 1, relay.Dials)
	assert.Equal(t, []uint32{1, 2}, relay.SentUIDs())
	assert.Equal(t, "Fwd: two", relay.Sent[1].Subject)

	require.NoError(t, session.Close())
	assert.Equal(t, 1, relay.Closes)
	assert.False(t, session.Connected())
}

func TestSession_CloseWithoutDial(t *testing.T) {
	relay := fake.NewRelay()
	session := newTestForwarder(relay).NewSession()

	require.NoError(t, session.Close())
	assert.Equal(t, 0, relay.Closes)
}

func TestSession_RelayAuthFailureIsFatal(t *testing.T) {
	relay := fake.NewRelay()
	relay.DialErr = fwderrors.Auth(nil, "535 rejected")
	session := newTestForwarder(relay).NewSession()

	err := session.Forward(context.Background(), &models.Email{UID: 1})

	assert.True(t, errors.Is(err, fwderrors.ErrAuth))
	assert.True(t, fwderrors.IsFatal(err))
}

func TestSession_UntypedDialFailureBecomesConnectionError(t *testing.T) {
	relay := fake.NewRelay()
	relay.DialErr = io.ErrUnexpectedEOF
	session := newTestForwarder(relay).NewSession()

	err := session.Forward(context.Background(), &models.Email{UID: 1})

	assert.True(t, errors.Is(err, fwderrors.ErrConnection))
}

func TestSession_SendFailureIsSendError(t *testing.T) {
	relay := fake.NewRelay()
	relay.SendErr[7] = io.ErrClosedPipe
	session := newTestForwarder(relay).NewSession()

	err := session.Forward(context.Background(), &models.Email{UID: 7})
	assert.True(t, errors.Is(err, fwderrors.ErrSend))
	assert.False(t, fwderrors.IsFatal(err))

	require.NoError(t, session.Forward(context.Background(), &models.Email{UID: 8}))
	assert.Equal(t, []uint32{8}, relay.SentUIDs())
}
