package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrorMatchesSentinelAndCause(t *testing.T) {
	err := Connection(io.ErrUnexpectedEOF, "fetch uid 7")

	assert.True(t, stderrors.Is(err, ErrConnection))
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, stderrors.Is(err, ErrSend))
	assert.Equal(t, "connection failure: fetch uid 7: unexpected EOF", err.Error())
}

func TestKindErrorWithoutCause(t *testing.T) {
	err := Config(nil, "FORWARD_TO is not a valid address")

	assert.True(t, stderrors.Is(err, ErrConfig))
	assert.Equal(t, "configuration error: FORWARD_TO is not a valid address", err.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "auth", Kind(Auth(nil, "login")))
	assert.Equal(t, "send", Kind(Send(io.EOF, "")))
	assert.Equal(t, "parse", Kind(Parse(io.EOF, "")))
	assert.Equal(t, "unknown", Kind(io.EOF))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Auth(nil, "login")))
	assert.True(t, IsFatal(Config(nil, "missing")))
	assert.True(t, IsFatal(Connection(io.EOF, "")))
	assert.False(t, IsFatal(Send(io.EOF, "")))
	assert.False(t, IsFatal(Parse(io.EOF, "")))
}
