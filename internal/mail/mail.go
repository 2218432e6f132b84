// Package mail sends transactional email such as sign-in links.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Message is a single outgoing email. Body is Markdown and is rendered to
// HTML before sending.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NoopSender logs messages instead of sending them. It is used when no
// provider is configured.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, msg Message) (string, error) {
	slog.Info("email not sent (no provider configured)", "to", msg.To, "subject", msg.Subject)
	return "", nil
}

var renderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML converts a Markdown body to HTML. Raw HTML in the input is
// escaped.
func RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// MagicLinkMessage builds the sign-in email for link.
func MagicLinkMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Your Tempo sign-in link",
		Body: "Tap the link below to sign in to Tempo.\n\n" +
			"[Sign in](" + link + ")\n\n" +
			"The link works once and expires in 15 minutes. If you did not ask for it you can ignore this email.",
	}
}
