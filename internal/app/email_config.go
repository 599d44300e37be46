package app

import (
	"github.com/tramdoc/tramdoc/internal/services"
	"github.com/tramdoc/tramdoc/pkg/mail"
)

// MailSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) MailSettings() mail.Settings {
	return mail.Settings{
		Driver: c.Driver,
		SMTP: mail.SMTPSettings{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.From,
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.Timeout,
		},
		Postmark: mail.PostmarkSettings{
			ServerToken:  c.Postmark.ServerToken,
			AccountToken: c.Postmark.AccountToken,
			From:         c.From,
			ReplyTo:      c.Postmark.ReplyTo,
			Timeout:      c.Timeout,
		},
	}
}

// NotifierOptions converts EmailConfig into EmailNotifier options.
func (c EmailConfig) NotifierOptions() []services.NotifierOption {
	return []services.NotifierOption{
		services.WithNotifierSender(c.From),
		services.WithNotifierAppName(c.AppName),
		services.WithNotifierTimeout(c.Timeout),
	}
}
