package mailer

import (
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"
)

// smtpSession records what a fake submission endpoint saw.
type smtpSession struct {
	authed bool
	from   string
	rcpt   string
	data   string
}

// serveSMTP answers one plaintext SMTP session on ln. It advertises AUTH
// PLAIN and accepts everything, capturing the envelope and payload.
func serveSMTP(t *testing.T, ln net.Listener, session *smtpSession, done chan<- struct{}) {
	conn, err := ln.Accept()
	if err != nil {
		t.Errorf("accept: %v", err)
		close(done)
		return
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	tc := textproto.NewConn(conn)
	tc.PrintfLine("220 127.0.0.1 ESMTP ready")

	for {
		line, err := tc.ReadLine()
		if err != nil {
			close(done)
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			tc.PrintfLine("250-127.0.0.1")
			tc.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			session.authed = true
			tc.PrintfLine("235 2.7.0 accepted")
		case "MAIL":
			session.from = line
			tc.PrintfLine("250 ok")
		case "RCPT":
			session.rcpt = line
			tc.PrintfLine("250 ok")
		case "DATA":
			tc.PrintfLine("354 end with <CRLF>.<CRLF>")
			var b strings.Builder
			for {
				dl, err := tc.ReadLine()
				if err != nil {
					close(done)
					return
				}
				if dl == "." {
					break
				}
				b.WriteString(dl)
				b.WriteString("\n")
			}
			session.data = b.String()
			tc.PrintfLine("250 queued")
		case "QUIT":
			tc.PrintfLine("221 bye")
			close(done)
			return
		default:
			tc.PrintfLine("250 ok")
		}
	}
}

func TestDeliver_PlainSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	session := &smtpSession{}
	done := make(chan struct{})
	go serveSMTP(t, ln, session, done)

	acct := Account{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Username: "bot",
		Password: "pw",
	}
	payload := buildMessage(Message{
		From:    "bot@example.org",
		To:      "anna@mail.ru",
		Subject: "Перенос встречи",
		Body:    "Добрый день!",
	})

	if err := deliver(acct, "bot@example.org", "anna@mail.ru", payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("session did not complete")
	}

	if !session.authed {
		t.Error("server saw no AUTH")
	}
	if !strings.Contains(session.from, "bot@example.org") {
		t.Errorf("MAIL FROM = %q", session.from)
	}
	if !strings.Contains(session.rcpt, "anna@mail.ru") {
		t.Errorf("RCPT TO = %q", session.rcpt)
	}
	if !strings.Contains(session.data, "Subject: =?utf-8?q?") {
		t.Errorf("payload subject not encoded: %q", session.data)
	}
	if !strings.Contains(session.data, "Добрый день!") {
		t.Errorf("payload body missing: %q", session.data)
	}
}
