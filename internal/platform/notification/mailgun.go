package notification

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender delivers messages through the Mailgun HTTP API.
type MailgunSender struct {
	mg mailgun.Mailgun
}

func NewMailgunSender(domain, apiKey string) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey)}
}

func (s *MailgunSender) SendEmail(ctx context.Context, msg *Message) error {
	m := s.mg.NewMessage(msg.From, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	msg.ProviderID = id
	return nil
}
