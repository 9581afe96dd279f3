package mail_test

import (
	"context"
	"html/template"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAndRaw(t *testing.T) {
	tmpl := template.Must(template.New("order").Parse(`<p>Order {{.ID}} total {{.Total}}</p>`))

	msg := mail.To("jane@example.com").
		Subject("Order confirmed").
		Render(tmpl, map[string]any{"ID": "abc", "Total": 1999})

	raw := string(msg.Raw("Shop <orders@shop.local>"))
	assert.Contains(t, raw, "To: jane@example.com\r\n")
	assert.Contains(t, raw, "Subject: Order confirmed\r\n")
	assert.Contains(t, raw, `Content-Type: text/html; charset="UTF-8"`)
	assert.Contains(t, raw, "<p>Order abc total 1999</p>")
}

func TestRenderErrorSurfacesOnSend(t *testing.T) {
	tmpl := template.Must(template.New("bad").Parse(`{{.Missing.Field}}`))
	msg := mail.To("a@b.io").Render(tmpl, struct{ Missing *struct{ Field string } }{})

	assert.Error(t, mail.LogSender{}.Send(context.Background(), msg))
}

func TestLogSender(t *testing.T) {
	require.NoError(t, mail.LogSender{}.Send(context.Background(), mail.To("a@b.io").Text("hi")))
	assert.ErrorIs(t, mail.LogSender{}.Send(context.Background(), mail.To().Text("hi")), mail.ErrNoRecipients)
}

func TestFromConfigWithoutHostLogs(t *testing.T) {
	config.Set("MAIL_HOST", "")
	assert.IsType(t, mail.LogSender{}, mail.FromConfig())
}
