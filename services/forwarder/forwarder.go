package forwarder

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailforward/interfaces"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
)

type Forwarder struct {
	composer interfaces.EmailComposer
	dialer   interfaces.RelayDialer
	log      logger.Logger
}

func NewForwarder(composer interfaces.EmailComposer, dialer interfaces.RelayDialer, log logger.Logger) *Forwarder {
	return &Forwarder{composer: composer, dialer: dialer, log: log}
}

// NewSession returns a per-run forwarding session. The relay is dialed on the
// first Forward call, so a run with nothing to forward never connects.
func (f *Forwarder) NewSession() *Session {
	return &Session{forwarder: f}
}

type Session struct {
	forwarder *Forwarder
	relay     interfaces.Relay
}

func (s *Session) Connected() bool {
	return s.relay != nil
}

// Forward composes and sends one email. Relay login or dial failures are
// returned as-is (auth/connection, fatal for the run); everything else is a
// SendError scoped to this email.
func (s *Session) Forward(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ForwarderSession.Forward")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", email.UID)

	if s.relay == nil {
		relay, err := s.forwarder.dialer.Dial(ctx)
		if err != nil {
			if !fwderrors.IsFatal(err) {
				err = fwderrors.Connection(err, "dialing relay")
			}
			tracing.TraceErr(span, err)
			return err
		}
		s.relay = relay
	}

	forwarded, err := s.forwarder.composer.Compose(ctx, email)
	if err != nil {
		err = fwderrors.Send(err, "composing forwarded email")
		tracing.TraceErr(span, err)
		return err
	}

	if err = s.relay.Send(ctx, forwarded); err != nil {
		if !fwderrors.IsFatal(err) && fwderrors.Kind(err) != "send" {
			err = fwderrors.Send(err, "")
		}
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// Close ends the relay session if one was opened.
func (s *Session) Close() error {
	if s.relay == nil {
		return nil
	}
	err := s.relay.Close()
	s.relay = nil
	if err != nil {
		s.forwarder.log.Warnf("closing relay session: %v", err)
	}
	return err
}
