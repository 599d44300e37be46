package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tramdoc/tramdoc/pkg/mail"
)

const (
	defaultAppName       = "Trạm Đọc"
	defaultNotifyTimeout = 10 * time.Second
)

// Notifier delivers account emails. A returned error means the message was not delivered.
type Notifier interface {
	SendOTP(ctx context.Context, to, code, displayName string) error
	SendWelcome(ctx context.Context, to, displayName string) error
}

// NotifierOption customises the EmailNotifier.
type NotifierOption func(*EmailNotifier)

// WithNotifierSender overrides the From address of outbound emails.
func WithNotifierSender(from string) NotifierOption {
	return func(n *EmailNotifier) {
		n.from = strings.TrimSpace(from)
	}
}

// WithNotifierAppName sets the product name used in subjects and bodies.
func WithNotifierAppName(name string) NotifierOption {
	return func(n *EmailNotifier) {
		if name = strings.TrimSpace(name); name != "" {
			n.appName = name
		}
	}
}

// WithNotifierTimeout bounds each delivery attempt.
func WithNotifierTimeout(d time.Duration) NotifierOption {
	return func(n *EmailNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// EmailNotifier renders account emails and sends them through a mail.Mailer.
type EmailNotifier struct {
	mailer  mail.Mailer
	from    string
	appName string
	timeout time.Duration
}

// NewEmailNotifier constructs an EmailNotifier.
func NewEmailNotifier(mailer mail.Mailer, opts ...NotifierOption) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("email notifier: mailer is required")
	}

	n := &EmailNotifier{
		mailer:  mailer,
		appName: defaultAppName,
		timeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SendOTP emails a password reset code.
func (n *EmailNotifier) SendOTP(ctx context.Context, to, code, displayName string) error {
	return n.send(ctx, mail.Message{
		From:    n.from,
		To:      []string{to},
		Subject: fmt.Sprintf("%s - Mã xác thực đặt lại mật khẩu", n.appName),
		Body:    n.otpBody(code, displayName),
		Tag:     "password-reset",
	})
}

// SendWelcome emails a greeting after registration.
func (n *EmailNotifier) SendWelcome(ctx context.Context, to, displayName string) error {
	return n.send(ctx, mail.Message{
		From:    n.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Chào mừng bạn đến với %s!", n.appName),
		Body:    n.welcomeBody(displayName),
		Tag:     "welcome",
	})
}

func (n *EmailNotifier) send(ctx context.Context, msg mail.Message) error {
	ctx, cancel := context.WithTimeout(ensureContext(ctx), n.timeout)
	defer cancel()

	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("email notifier: %w", err)
	}
	return nil
}

func (n *EmailNotifier) otpBody(code, displayName string) string {
	return fmt.Sprintf(`Xin chào %s,

Bạn đã yêu cầu đặt lại mật khẩu cho tài khoản %s.

Mã xác thực (OTP) của bạn là:

    %s

Mã này sẽ hết hạn sau %d phút.

Nếu bạn không yêu cầu đặt lại mật khẩu, vui lòng bỏ qua email này.

Trân trọng,
Đội ngũ %s
`, greetingName(displayName), n.appName, code, int(OTPLifetime/time.Minute), n.appName)
}

func (n *EmailNotifier) welcomeBody(displayName string) string {
	return fmt.Sprintf(`Xin chào %s,

Chúc mừng bạn đã đăng ký thành công tài khoản %s!

Bắt đầu hành trình đọc sách của bạn ngay hôm nay.

Trân trọng,
Đội ngũ %s
`, greetingName(displayName), n.appName, n.appName)
}

func greetingName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "bạn"
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
