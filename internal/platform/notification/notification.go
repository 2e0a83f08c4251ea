// Package notification renders patient emails from templates and delivers
// them through a pluggable sender, either directly or via the asynchronous
// Dispatcher.
package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Message
// ---------------------------------------------------------------------------

// Message is a single outbound email.
type Message struct {
	ID         string
	Template   string
	From       string
	To         string
	Subject    string
	Text       string
	HTML       string
	CreatedAt  time.Time
	ProviderID string
}

// EmailSender delivers a rendered message.
type EmailSender interface {
	SendEmail(ctx context.Context, msg *Message) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

const (
	TemplateBookingConfirmed = "booking-confirmed"
	TemplatePaymentReceived  = "payment-received"
)

// Template defines a reusable email. Placeholders use {{key}}.
type Template struct {
	ID      string
	Subject string
	Text    string
	HTML    string
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateBookingConfirmed,
			Subject: "Your Appointment for {{treatment}} is on {{date}} at {{slot}} is Confirmed!!",
			Text:    "Your Appointment for {{treatment}} is on {{date}} at {{slot}} is Confirmed!!",
			HTML: `<div>
<p>Hello Dear {{patient_name}},</p>
<h3>Your Appointment for {{treatment}} is confirmed</h3>
<p>You will meet our Doctor on {{date}} at {{slot}}</p>
<p>Our Address</p>
<p>{{address}}</p>
</div>`,
		},
		{
			ID:      TemplatePaymentReceived,
			Subject: "We have received your payment for {{treatment}} is on {{date}} at {{slot}} is Confirmed",
			Text:    "Your payment for this Appointment {{treatment}} is on {{date}} at {{slot}} is Confirmed",
			HTML: `<div>
<p>Hello {{patient_name}},</p>
<h3>Thank you for your payment.</h3>
<h3>We have received your payment</h3>
<p>Looking forward to seeing you on {{date}} at {{slot}}.</p>
<h3>Our Address</h3>
<p>{{address}}</p>
</div>`,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and fills in data. Values are HTML-escaped
// in the HTML part only. Keys absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (*Message, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}

	msg := &Message{Template: t.ID, Subject: t.Subject, Text: t.Text, HTML: t.HTML}
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		msg.Subject = strings.ReplaceAll(msg.Subject, placeholder, v)
		msg.Text = strings.ReplaceAll(msg.Text, placeholder, v)
		msg.HTML = strings.ReplaceAll(msg.HTML, placeholder, html.EscapeString(v))
	}
	return msg, nil
}

// ---------------------------------------------------------------------------
// Senders
// ---------------------------------------------------------------------------

// LogSender writes messages to the log instead of delivering them. Used when
// no mail provider is configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendEmail(_ context.Context, msg *Message) error {
	s.Logger.Info().
		Str("template", msg.Template).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email not delivered: no mail provider configured")
	return nil
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []Message
	ShouldFail bool
	// FailTimes fails only the first n calls.
	FailTimes int
	FailError string
}

func (m *MockEmailSender) SendEmail(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *msg)
	if m.ShouldFail || len(m.calls) <= m.FailTimes {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockEmailSender) Calls() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.calls))
	copy(out, m.calls)
	return out
}
