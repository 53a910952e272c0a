package config

import (
	"time"

	"github.com/customeros/mailforward/internal/enum"
)

type AppConfig struct {
	APIPort            string `env:"PORT" envDefault:"12223"`
	ForwardTo          string `env:"FORWARD_TO,required"`
	ForwardWindowHours int    `env:"FORWARD_WINDOW_HOURS" envDefault:"0"`
	PodName            string `env:"POD_NAME" envDefault:"local"`
	PodNamespace       string `env:"POD_NAMESPACE" envDefault:"default"`
}

type MailboxConfig struct {
	Host        string `env:"IMAP_HOST" envDefault:"imap.mail.yahoo.com"`
	Port        int    `env:"IMAP_PORT" envDefault:"993"`
	Username    string `env:"YAHOO_USER,required"`
	AppPassword string `env:"YAHOO_APP_PASSWORD,required"`
	Folder      string `env:"IMAP_FOLDER" envDefault:"INBOX"`
}

type SmtpConfig struct {
	Host     string             `env:"SMTP_HOST,required"`
	Port     int                `env:"SMTP_PORT" envDefault:"587"`
	Security enum.EmailSecurity `env:"SMTP_SECURITY"`
	Username string             `env:"SMTP_USER,required"`
	Password string             `env:"SMTP_PASS,required"`
}

// Window is the trailing age filter for candidates; zero disables it.
func (c *AppConfig) Window() time.Duration {
	if c.ForwardWindowHours <= 0 {
		return 0
	}
	return time.Duration(c.ForwardWindowHours) * time.Hour
}
