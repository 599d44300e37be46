package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDeliveryDisabled signals that outbound email is switched off via configuration.
var ErrDeliveryDisabled = errors.New("mail: delivery disabled")

// Supported transport drivers.
const (
	DriverSMTP     = "smtp"
	DriverPostmark = "postmark"
	DriverDisabled = "disabled"
)

// Message represents an outbound transactional email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	// Tag groups messages in provider dashboards; ignored by SMTP.
	Tag string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings select and configure a transport.
type Settings struct {
	Driver   string
	SMTP     SMTPSettings
	Postmark PostmarkSettings
}

// New builds the mailer for the configured driver.
func New(cfg Settings) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSMTP:
		cfg.SMTP.Enabled = true
		return NewSMTPMailer(cfg.SMTP)
	case DriverPostmark:
		return NewPostmarkMailer(cfg.Postmark)
	case "", DriverDisabled:
		return disabledMailer{}, nil
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q", cfg.Driver)
	}
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, Message) error {
	return ErrDeliveryDisabled
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
