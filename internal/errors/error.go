package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	ErrConfig     = errors.New("configuration error")
	ErrAuth       = errors.New("authentication rejected")
	ErrConnection = errors.New("connection failure")
	ErrSend       = errors.New("send failure")
	ErrParse      = errors.New("malformed message")
)

// kindError tags a cause with one of the sentinel kinds above so callers
// can branch with errors.Is while the original cause stays reachable.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func wrap(kind, cause error, msg string) error {
	if cause == nil {
		cause = errors.New(msg)
	} else if msg != "" {
		cause = errors.WithMessage(cause, msg)
	}
	return &kindError{kind: kind, cause: cause}
}

func Config(err error, msg string) error     { return wrap(ErrConfig, err, msg) }
func Auth(err error, msg string) error       { return wrap(ErrAuth, err, msg) }
func Connection(err error, msg string) error { return wrap(ErrConnection, err, msg) }
func Send(err error, msg string) error       { return wrap(ErrSend, err, msg) }
func Parse(err error, msg string) error      { return wrap(ErrParse, err, msg) }

// Kind returns a short label for logs and run results.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrConfig):
		return "config"
	case stderrors.Is(err, ErrAuth):
		return "auth"
	case stderrors.Is(err, ErrConnection):
		return "connection"
	case stderrors.Is(err, ErrSend):
		return "send"
	case stderrors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}

// IsFatal reports whether err must abort the whole run rather than a single message.
func IsFatal(err error) bool {
	return stderrors.Is(err, ErrConfig) || stderrors.Is(err, ErrAuth) || stderrors.Is(err, ErrConnection)
}
