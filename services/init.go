package services

import (
	"github.com/customeros/mailforward/config"
	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/services/forwarder"
	"github.com/customeros/mailforward/services/imap"
	"github.com/customeros/mailforward/services/parser"
	"github.com/customeros/mailforward/services/pipeline"
	"github.com/customeros/mailforward/services/smtp"
)

type Services struct {
	MailboxDialer *imap.Dialer
	RelayDialer   *smtp.Dialer
	Reader        *imap.Reader
	Parser        interfaces.EmailParser
	Composer      interfaces.EmailComposer
	Forwarder     *forwarder.Forwarder
	Processor     *pipeline.Processor
}

func InitServices(cfg *config.Config, log logger.Logger) *Services {
	mailboxDialer := imap.NewDialer(cfg.MailboxConfig, log)
	relayDialer := smtp.NewDialer(cfg.SmtpConfig, log)

	reader := imap.NewReader(mailboxDialer, log)
	emailParser := parser.NewEmailParser(log)
	composer := forwarder.NewComposer(cfg.SmtpConfig.Username, cfg.AppConfig.ForwardTo, log)
	fwd := forwarder.NewForwarder(composer, relayDialer, log)

	processor := pipeline.NewProcessor(
		reader,
		emailParser,
		fwd,
		cfg.AppConfig.Window(),
		cfg.MailboxConfig.Username,
		log,
	)

	return &Services{
		MailboxDialer: mailboxDialer,
		RelayDialer:   relayDialer,
		Reader:        reader,
		Parser:        emailParser,
		Composer:      composer,
		Forwarder:     fwd,
		Processor:     processor,
	}
}
