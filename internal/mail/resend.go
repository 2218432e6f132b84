package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendSender sends email through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	html, err := RenderHTML(msg.Body)
	if err != nil {
		return "", err
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    html,
		Text:    msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}

	slog.Info("email sent", "message_id", sent.Id, "subject", msg.Subject)
	return sent.Id, nil
}
