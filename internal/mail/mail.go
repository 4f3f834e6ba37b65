// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail sends transactional email: sign-up confirmations and
// contact form notifications.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"
)

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Receipt identifies a delivered message.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// LogSender writes messages to the log instead of delivering them.
// Used in development when no Resend key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) (Receipt, error) {
	s.logger.Info("mail not delivered (log sender)", "to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	return Receipt{MessageID: "log", SentAt: time.Now()}, nil
}

// Outbox records messages in memory. Tests use it to read confirmation links.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, msg Message) (Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return Receipt{}, o.Err
	}
	o.sent = append(o.sent, msg)
	return Receipt{MessageID: fmt.Sprintf("outbox-%d", len(o.sent)), SentAt: time.Now()}, nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

var (
	confirmTmpl = template.Must(template.New("confirm").Parse(
		`<p>Welcome to {{.Site}}, {{.Name}}!</p>` +
			`<p>Please confirm your email address by opening the link below:</p>` +
			`<p><a href="{{.Link}}">{{.Link}}</a></p>` +
			`<p>The link expires in {{.Hours}} hours.</p>`))

	contactTmpl = template.Must(template.New("contact").Parse(
		`<p>New contact message from <strong>{{.Name}}</strong> &lt;{{.Email}}&gt;</p>` +
			`<p>Phone: {{.Phone}}{{if .Company}}<br>Company: {{.Company}}{{end}}</p>` +
			`<blockquote>{{.Message}}</blockquote>`))
)

// ConfirmationData fills the sign-up confirmation email.
type ConfirmationData struct {
	Site  string
	Name  string
	Link  string
	Hours int
}

// ConfirmationEmail builds the email asking a new user to verify the address.
func ConfirmationEmail(to string, data ConfirmationData) (Message, error) {
	body, err := execute(confirmTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: "Confirm your " + data.Site + " account", HTML: body}, nil
}

// ContactData fills the admin notification for a new contact message.
type ContactData struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Message string
}

// ContactNotification builds the email sent to the site owner.
func ContactNotification(to string, data ContactData) (Message, error) {
	body, err := execute(contactTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "New contact message from " + data.Name,
		HTML:    body,
		ReplyTo: data.Email,
	}, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
