package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the narrow delivery interface the auth flows depend on.
// Failures are surfaced synchronously to the caller; nothing here retries.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host string, port int, username string, password string, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer logs deliveries instead of sending them. Used in development
// when no SMTP relay is configured. The message body (which carries the raw
// reset token) is deliberately not logged.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	slog.Info("mail delivery skipped (no SMTP configured)", "to", msg.To, "subject", msg.Subject)
	return nil
}
