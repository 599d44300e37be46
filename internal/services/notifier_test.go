package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tramdoc/tramdoc/pkg/mail"
)

type capturingMailer struct {
	messages    []mail.Message
	deadlines   []time.Time
	hadDeadline []bool
	err         error
}

func (m *capturingMailer) Send(ctx context.Context, msg mail.Message) error {
	deadline, ok := ctx.Deadline()
	m.messages = append(m.messages, msg)
	m.deadlines = append(m.deadlines, deadline)
	m.hadDeadline = append(m.hadDeadline, ok)
	return m.err
}

func TestNewEmailNotifierRequiresMailer(t *testing.T) {
	_, err := NewEmailNotifier(nil)
	require.Error(t, err)
}

func TestEmailNotifierRendersOTP(t *testing.T) {
	mailer := &capturingMailer{}
	notifier, err := NewEmailNotifier(mailer, WithNotifierSender(" no-reply@tramdoc.vn "))
	require.NoError(t, err)

	require.NoError(t, notifier.SendOTP(context.Background(), "reader@gmail.com", "314159", "Lan"))
	require.Len(t, mailer.messages, 1)

	msg := mailer.messages[0]
	require.Equal(t, "no-reply@tramdoc.vn", msg.From)
	require.Equal(t, []string{"reader@gmail.com"}, msg.To)
	require.Equal(t, "password-reset", msg.Tag)
	require.Contains(t, msg.Subject, "Trạm Đọc")
	require.Contains(t, msg.Body, "Xin chào Lan")
	require.Contains(t, msg.Body, "314159")
	require.Contains(t, msg.Body, "10 phút")
}

func TestEmailNotifierRendersWelcome(t *testing.T) {
	mailer := &capturingMailer{}
	notifier, err := NewEmailNotifier(mailer, WithNotifierAppName("Tram Doc Beta"))
	require.NoError(t, err)

	require.NoError(t, notifier.SendWelcome(context.Background(), "new@gmail.com", "  "))
	msg := mailer.messages[0]
	require.Equal(t, "welcome", msg.Tag)
	require.Contains(t, msg.Subject, "Tram Doc Beta")
	require.Contains(t, msg.Body, "Xin chào bạn")
}

func TestEmailNotifierBoundsDelivery(t *testing.T) {
	mailer := &capturingMailer{}
	notifier, err := NewEmailNotifier(mailer, WithNotifierTimeout(3*time.Second))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, notifier.SendOTP(context.Background(), "reader@gmail.com", "000111", ""))
	require.True(t, mailer.hadDeadline[0])
	require.WithinDuration(t, start.Add(3*time.Second), mailer.deadlines[0], time.Second)
}

func TestEmailNotifierWrapsDeliveryError(t *testing.T) {
	mailer := &capturingMailer{err: mail.ErrDeliveryDisabled}
	notifier, err := NewEmailNotifier(mailer)
	require.NoError(t, err)

	err = notifier.SendWelcome(context.Background(), "reader@gmail.com", "Lan")
	require.Error(t, err)
	require.True(t, errors.Is(err, mail.ErrDeliveryDisabled))
}
