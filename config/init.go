package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/joho/godotenv"

	"github.com/customeros/mailforward/internal/enum"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/tracing"
)

type Config struct {
	AppConfig     *AppConfig
	Logger        *logger.Config
	Tracing       *tracing.JaegerConfig
	MailboxConfig *MailboxConfig
	SmtpConfig    *SmtpConfig
}

func InitConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	return parse()
}

func parse() (*Config, error) {
	config := &Config{
		AppConfig:     &AppConfig{},
		Logger:        &logger.Config{},
		Tracing:       &tracing.JaegerConfig{},
		MailboxConfig: &MailboxConfig{},
		SmtpConfig:    &SmtpConfig{},
	}

	if err := env.Parse(config); err != nil {
		return nil, fwderrors.Config(err, "error loading mailforward config")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	required := []struct{ name, value string }{
		{"YAHOO_USER", c.MailboxConfig.Username},
		{"YAHOO_APP_PASSWORD", c.MailboxConfig.AppPassword},
		{"SMTP_HOST", c.SmtpConfig.Host},
		{"SMTP_USER", c.SmtpConfig.Username},
		{"SMTP_PASS", c.SmtpConfig.Password},
	}
	for _, env := range required {
		if env.value == "" {
			return fwderrors.Config(nil, env.name+" is empty")
		}
	}

	forwardTo := mailvalidate.ValidateEmailSyntax(c.AppConfig.ForwardTo)
	if !forwardTo.IsValid {
		return fwderrors.Config(nil, fmt.Sprintf("FORWARD_TO %q is not a valid address", c.AppConfig.ForwardTo))
	}
	c.AppConfig.ForwardTo = forwardTo.CleanEmail

	smtpUser := mailvalidate.ValidateEmailSyntax(c.SmtpConfig.Username)
	if !smtpUser.IsValid {
		return fwderrors.Config(nil, fmt.Sprintf("SMTP_USER %q is not a valid address", c.SmtpConfig.Username))
	}

	if c.AppConfig.ForwardWindowHours < 0 {
		return fwderrors.Config(nil, "FORWARD_WINDOW_HOURS must not be negative")
	}

	switch c.SmtpConfig.Security {
	case "":
		c.SmtpConfig.Security = enum.SecurityForPort(c.SmtpConfig.Port)
	case enum.EmailSecurityNone, enum.EmailSecuritySSL, enum.EmailSecurityStartTLS:
	default:
		return fwderrors.Config(nil, fmt.Sprintf("unsupported SMTP_SECURITY %q", c.SmtpConfig.Security))
	}

	return nil
}
