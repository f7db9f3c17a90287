package auth

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/config"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail through an authenticated SMTP relay. smtp.SendMail
// upgrades the connection with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg  config.MailConfig
	send sendFunc
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	a := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, a, m.cfg.User, []string{to}, buildMessage(m.cfg.User, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail to %s: %w", redactEmail(to), err)
	}
	logrus.WithField("to", redactEmail(to)).Info("Email sent")
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// LogMailer is used when no SMTP credentials are configured. It never sends.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"to": redactEmail(to), "subject": subject}).
		Warn("Email delivery is not configured, dropping message")
	return ErrMailNotConfigured
}

// NewMailer picks the SMTP mailer when credentials are present.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Configured() {
		return NewSMTPMailer(cfg)
	}
	return LogMailer{}
}

func redactEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***" + email[max(at, 0):]
	}
	return email[:1] + "***" + email[at:]
}
