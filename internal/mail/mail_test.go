package mail_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/tempo/internal/mail"
)

var (
	_ mail.Sender = mail.NoopSender{}
	_ mail.Sender = (*mail.ResendSender)(nil)
)

func TestRenderHTML_EscapesRawHTML(t *testing.T) {
	html, err := mail.RenderHTML("hello <script>alert(1)</script>\nworld")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<br")
}

func TestMagicLinkMessage(t *testing.T) {
	msg := mail.MagicLinkMessage("a@example.com", "https://tempo.test/auth/verify?token=abc")
	assert.Equal(t, "a@example.com", msg.To)

	html, err := mail.RenderHTML(msg.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, `href="https://tempo.test/auth/verify?token=abc"`), html)
}

func TestNoopSender(t *testing.T) {
	id, err := mail.NoopSender{}.Send(context.Background(), mail.Message{To: "a@example.com"})
	require.NoError(t, err)
	assert.Empty(t, id)
}
