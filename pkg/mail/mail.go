// Package mail builds and delivers transactional email.
//
//	msg := mail.To(user.Email).
//	    Subject("Order confirmed").
//	    Render(confirmationTmpl, order)
//	err := mailer.Send(ctx, msg)
//
// The SMTP sender is used when MAIL_HOST is configured; otherwise FromConfig
// returns a sender that only logs, so development needs no mail server.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

// ErrNoRecipients is returned for a message without a To address.
var ErrNoRecipients = errors.New("mail: no recipients")

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func smtpFromConfig() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", ""),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@shop.local"),
		FromName: config.Get("MAIL_FROM_NAME", "Shop"),
	}
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// FromConfig returns an SMTP sender when MAIL_HOST is set and a LogSender
// otherwise.
func FromConfig() Sender {
	cfg := smtpFromConfig()
	if cfg.Host == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}

// ------------------- Message -------------------

// Message is a fluent builder for an email.
type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	err     error
}

// To starts a message to the given recipients.
func To(addresses ...string) *Message {
	return &Message{to: addresses, isHTML: true}
}

// Subject sets the email subject.
func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// Render executes tmpl with data as the HTML body. A render error is kept
// and returned by Send.
func (m *Message) Render(tmpl *template.Template, data any) *Message {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
		return m
	}
	return m.Body(buf.String())
}

// Recipients returns the To addresses.
func (m *Message) Recipients() []string { return m.to }

// SubjectLine returns the subject.
func (m *Message) SubjectLine() string { return m.subject }

// Content returns the rendered body.
func (m *Message) Content() string { return m.body }

func (m *Message) validate() error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Raw encodes the message as an RFC 5322 document.
func (m *Message) Raw(from string) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + m.subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}

// ------------------- Senders -------------------

// SMTPSender delivers over SMTP: implicit TLS on port 465, STARTTLS (when
// offered) elsewhere.
type SMTPSender struct {
	cfg SMTP
}

func NewSMTPSender(cfg SMTP) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	cfg := s.cfg
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)

	var d net.Dialer
	var conn net.Conn
	var err error
	if cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: &d, Config: &tls.Config{ServerName: cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok && cfg.Port != "465" {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	for _, rcpt := range m.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.Raw(from)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// LogSender writes the message to the log instead of sending it.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("mail: not sent (no MAIL_HOST)",
		"to", strings.Join(m.to, ","), "subject", m.subject, "bytes", len(m.body))
	return nil
}
