// Package mailer delivers composed letters over SMTP.
package mailer

import "context"

// Message is one outbound letter.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Body     string
}

// Account carries the SMTP credentials used for one delivery. The password
// arrives already decrypted; it never leaves this package.
type Account struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Mailer sends a message on behalf of an account.
type Mailer interface {
	Send(ctx context.Context, acct Account, msg Message) error
}
