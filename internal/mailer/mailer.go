// Package mailer sends transactional mail (password-reset links) over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/easybuy/backend/internal/config"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTP(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTP_HOST,
		port: cfg.SMTP_PORT,
		user: cfg.SMTP_USER,
		pass: cfg.SMTP_PASS,
		from: cfg.SMTP_FROM,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
