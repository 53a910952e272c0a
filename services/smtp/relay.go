package smtp

import (
	"bytes"
	"context"
	"errors"
	"net/textproto"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/wneessen/go-mail"
	gomailsmtp "github.com/wneessen/go-mail/smtp"

	"github.com/customeros/mailforward/config"
	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/enum"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
)

const relayTimeout = 30 * time.Second

// Dialer opens authenticated sessions against the configured SMTP relay.
type Dialer struct {
	cfg *config.SmtpConfig
	log logger.Logger
}

func NewDialer(cfg *config.SmtpConfig, log logger.Logger) *Dialer {
	return &Dialer{cfg: cfg, log: log}
}

func (d *Dialer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.cfg.Username),
		mail.WithPassword(d.cfg.Password),
		mail.WithTimeout(relayTimeout),
	}

	switch d.cfg.Security {
	case enum.EmailSecuritySSL:
		opts = append(opts, mail.WithSSL())
	case enum.EmailSecurityNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	return opts
}

func (d *Dialer) Dial(ctx context.Context) (interfaces.Relay, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPDialer.Dial")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("smtp_server", d.cfg.Host)
	span.LogKV("smtp_port", d.cfg.Port)
	span.LogKV("smtp_security", d.cfg.Security.String())

	client, err := mail.NewClient(d.cfg.Host, d.clientOptions()...)
	if err != nil {
		err = fwderrors.Config(err, "invalid SMTP client settings")
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err = client.DialWithContext(ctx); err != nil {
		err = classifyDialError(err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	d.log.Infof("Connected to SMTP relay %s:%d (%s)", d.cfg.Host, d.cfg.Port, d.cfg.Security)
	return &relay{client: client, log: d.log}, nil
}

// authReplyCodes are the SMTP replies that mean the relay refused the login:
// 530 auth required, 534 mechanism too weak, 535 bad credentials, 538
// encryption required for the mechanism.
var authReplyCodes = map[int]bool{530: true, 534: true, 535: true, 538: true}

// authErrors are the go-mail failures raised before credentials are sent.
var authErrors = []error{
	mail.ErrPlainAuthNotSupported,
	mail.ErrLoginAuthNotSupported,
	mail.ErrCramMD5AuthNotSupported,
	mail.ErrXOauth2AuthNotSupported,
	mail.ErrSCRAMSHA1AuthNotSupported,
	mail.ErrSCRAMSHA1PLUSAuthNotSupported,
	mail.ErrSCRAMSHA256AuthNotSupported,
	mail.ErrSCRAMSHA256PLUSAuthNotSupported,
	mail.ErrSMTPAuthMethodIsNil,
	gomailsmtp.ErrUnencrypted,
}

// classifyDialError separates rejected credentials from transport failures.
func classifyDialError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && authReplyCodes[protoErr.Code] {
		return fwderrors.Auth(err, "SMTP relay rejected credentials")
	}
	for _, authErr := range authErrors {
		if errors.Is(err, authErr) {
			return fwderrors.Auth(err, "SMTP authentication failed")
		}
	}
	return fwderrors.Connection(err, "failed to connect to SMTP relay")
}

type relay struct {
	client *mail.Client
	log    logger.Logger
}

func (r *relay) Send(ctx context.Context, email *models.ForwardedEmail) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPRelay.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", email.SourceUID)
	if email.HasAttachment() {
		size := 0
		for _, attachment := range email.Attachments {
			size += attachment.Size()
		}
		span.SetTag("attachments.count", len(email.Attachments))
		span.SetTag("attachments.bytes", size)
	}

	msg, err := buildMessage(email)
	if err != nil {
		err = fwderrors.Send(err, "building message")
		tracing.TraceErr(span, err)
		return err
	}

	if err = r.client.Send(msg); err != nil {
		// RSET so a rejected transaction does not poison the next one
		if resetErr := r.client.Reset(); resetErr != nil {
			r.log.Debugf("RSET after failed send: %v", resetErr)
		}
		err = fwderrors.Send(err, "relay refused message")
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *relay) Close() error {
	return r.client.Close()
}

// buildMessage renders a ForwardedEmail as multipart/mixed with a
// text/plain + text/html alternative and one part per attachment.
func buildMessage(email *models.ForwardedEmail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.FromAddress); err != nil {
		return nil, err
	}
	if err := msg.To(email.ToAddress); err != nil {
		return nil, err
	}
	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()

	msg.SetBodyString(mail.TypeTextPlain, email.BodyText)
	msg.AddAlternativeString(mail.TypeTextHTML, email.BodyHTML)

	for _, attachment := range email.Attachments {
		err := msg.AttachReader(
			attachment.Filename,
			bytes.NewReader(attachment.Content),
			mail.WithFileContentType(mail.ContentType(attachment.ContentType)),
		)
		if err != nil {
			return nil, err
		}
	}

	return msg, nil
}
