// Package email delivers transactional email through a provider behind a decoupled queue.
package email

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"skillswap/internal/observability"

	"github.com/resend/resend-go/v2"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// Result reports what the provider did with a message.
type Result struct {
	Success bool
	ID      string
	Err     error
}

// Sender hands a message to an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

var errNoRecipient = errors.New("message has no recipient")

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender builds a ResendSender for apiKey.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) Result {
	if strings.TrimSpace(msg.To) == "" {
		return Result{Err: errNoRecipient}
	}
	text := msg.Text
	if text == "" {
		text = PlainText(msg.HTML)
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    text,
	})
	if err != nil {
		return Result{Err: err}
	}
	return Result{Success: true, ID: sent.Id}
}

// LogSender simulates delivery when no provider key is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) Result {
	if strings.TrimSpace(msg.To) == "" {
		return Result{Err: errNoRecipient}
	}
	observability.GlobalLogger.WarnContext(ctx, "email provider not configured, simulating send",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return Result{Success: true, ID: "simulated"}
}

// NewSender returns a ResendSender, or a LogSender when apiKey is empty.
func NewSender(apiKey, from string) Sender {
	if strings.TrimSpace(apiKey) == "" {
		return LogSender{}
	}
	return NewResendSender(apiKey, from)
}
