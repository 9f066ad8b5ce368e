// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// ErrNoRecipients is returned when an email has no To addresses.
var ErrNoRecipients = errors.New("email has no recipients")

// Sender is anything that can deliver an Email.
type Sender interface {
	Send(email Email) error
}

// Mailer sends emails via SMTP.
type Mailer struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
	log      *zap.Logger
}

// Config holds the configuration for creating a Mailer.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// New creates a new Mailer with the given configuration.
func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		pass:     cfg.Pass,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      log,
	}
}

// Configured reports whether an SMTP host and sender are set.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.from != ""
}

// Email represents an email to be sent.
type Email struct {
	To       []string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Send sends an email. If HTMLBody is provided, sends a multipart email with both
// plain text and HTML versions.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	msg := buildMessage(m.from, m.fromName, email, randomBoundary())
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.user != "" && m.pass != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	to := strings.Join(email.To, ", ")
	if err := smtp.SendMail(addr, auth, m.from, email.To, msg); err != nil {
		m.log.Error("failed to send email",
			zap.String("to", to),
			zap.String("subject", email.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info("email sent",
		zap.String("to", to),
		zap.String("subject", email.Subject))

	return nil
}

// buildMessage renders the RFC 5322 message. Header values are stripped of
// line breaks and the subject is encoded so non-ASCII names survive transport.
func buildMessage(fromAddr, fromName string, email Email, boundary string) []byte {
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", headerValue(fromName)), fromAddr)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(strings.Join(email.To, ", ")))
	if email.ReplyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", headerValue(email.ReplyTo))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(email.Subject)))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
		msg.WriteString("\r\n")

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.TextBody)
		msg.WriteString("\r\n")

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.HTMLBody)
		msg.WriteString("\r\n")

		fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.TextBody)
	}
	return msg.Bytes()
}

func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// randomBoundary generates a random boundary string for multipart emails.
func randomBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return "----=_Part_" + hex.EncodeToString(b)
}
