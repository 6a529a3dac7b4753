package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/vkatenev/glasha/common/redact"
	"github.com/vkatenev/glasha/common/retry"
)

// implicitTLSPort is the SMTPS submission port. Servers on it expect the TLS
// handshake before the first SMTP byte, unlike STARTTLS endpoints that open
// in plaintext.
const implicitTLSPort = 465

// SMTPMailer sends messages through an SMTP submission endpoint, speaking
// implicit TLS on port 465 and plaintext-then-STARTTLS everywhere else.
type SMTPMailer struct {
	retryCfg retry.Config
}

// NewSMTPMailer creates a mailer with delivery retries tuned for transient
// SMTP failures.
func NewSMTPMailer() *SMTPMailer {
	cfg := retry.DefaultConfig
	cfg.MaxAttempts = 3
	cfg.InitialDelay = 2 * time.Second
	return &SMTPMailer{retryCfg: cfg}
}

// Send delivers the message, retrying on transient failures.
func (m *SMTPMailer) Send(ctx context.Context, acct Account, msg Message) error {
	payload := buildMessage(msg)

	err := retry.Do(ctx, m.retryCfg, func() error {
		return deliver(acct, msg.From, msg.To, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", redact.Email(msg.To), err)
	}

	slog.Info("mail sent",
		"to", redact.Email(msg.To),
		"subject", msg.Subject,
		"host", acct.Host)
	return nil
}

// deliver runs one SMTP session end to end: connect, authenticate, submit.
func deliver(acct Account, from, to string, payload []byte) error {
	addr := fmt.Sprintf("%s:%d", acct.Host, acct.Port)

	var client *smtp.Client
	if acct.Port == implicitTLSPort {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: acct.Host})
		if err != nil {
			return fmt.Errorf("tls dial %s: %w", addr, err)
		}
		client, err = smtp.NewClient(conn, acct.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake %s: %w", addr, err)
		}
	} else {
		var err error
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: acct.Host}); err != nil {
				client.Close()
				return fmt.Errorf("starttls %s: %w", addr, err)
			}
		}
	}
	defer client.Close()

	if acct.Username != "" {
		auth := smtp.PlainAuth("", acct.Username, acct.Password, acct.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("write payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close payload: %w", err)
	}
	return client.Quit()
}

// buildMessage assembles the RFC 5322 payload. Subject and display names are
// RFC 2047 encoded since letters are almost always Cyrillic.
func buildMessage(msg Message) []byte {
	var b strings.Builder

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}
