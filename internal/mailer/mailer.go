// Package mailer delivers transactional e-mail through SendGrid.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends one message to one recipient
type Mailer interface {
	Send(ctx context.Context, toAddress, toName, subject, body string) error
}

// Sender abstracts the SendGrid client for tests
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (int, error)
}

type clientSender struct {
	apiKey string
}

func (s clientSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (int, error) {
	resp, err := sendgrid.NewSendClient(s.apiKey).SendWithContext(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return resp.StatusCode, nil
}

// SendGrid is the production mailer
type SendGrid struct {
	sender      Sender
	fromAddress string
	fromName    string
}

// NewSendGrid creates a mailer for apiKey
func NewSendGrid(apiKey, fromAddress, fromName string) *SendGrid {
	return &SendGrid{sender: clientSender{apiKey: apiKey}, fromAddress: fromAddress, fromName: fromName}
}

// Send renders body as plain text plus a minimal HTML part
func (s *SendGrid) Send(ctx context.Context, toAddress, toName, subject, body string) error {
	if toAddress == "" {
		return fmt.Errorf("no recipient address")
	}
	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail(toName, toAddress)
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"

	message := mail.NewSingleEmail(from, subject, to, body, htmlBody)
	_, err := s.sender.SendWithContext(ctx, message)
	return err
}

// Log writes messages to the logger instead of delivering them. Used when
// no API key is configured.
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog creates a logging mailer
func NewLog(logger *zap.SugaredLogger) *Log {
	return &Log{logger: logger}
}

// Send logs the message
func (l *Log) Send(_ context.Context, toAddress, _, subject, _ string) error {
	l.logger.Infow("Email not sent, mailer disabled", "to", toAddress, "subject", subject)
	return nil
}
