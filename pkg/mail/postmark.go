package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mrz1836/postmark"
)

// PostmarkSettings configure delivery through the Postmark transactional API.
type PostmarkSettings struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
	Timeout      time.Duration
}

type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type postmarkMailer struct {
	cfg    PostmarkSettings
	client postmarkSender
}

// NewPostmarkMailer returns a Mailer backed by Postmark.
func NewPostmarkMailer(cfg PostmarkSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.ServerToken) == "" {
		return nil, errors.New("postmark: server token is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("postmark: sender address is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("postmark: invalid from address: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &postmarkMailer{
		cfg:    cfg,
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
	}, nil
}

func (m *postmarkMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return errors.New("postmark: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}

	ctx, cancel := deadline(ctx, m.cfg.Timeout)
	defer cancel()

	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     from,
		ReplyTo:  m.cfg.ReplyTo,
		To:       strings.Join(recipients, ","),
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		TextBody: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("postmark: send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark: error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
