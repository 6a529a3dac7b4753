package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vkatenev/glasha/common/crypto"
)

// MailAccount holds the SMTP credentials one owner sends mail with. The
// password is kept encrypted; call DecryptPassword with the master key to
// recover it just before dialing.
type MailAccount struct {
	OwnerMXID   string
	SMTPHost    string
	SMTPPort    int
	Username    string
	PasswordEnc string
	FromAddr    string
	DisplayName string
}

// ErrAccountNotFound is returned when the owner has no mail account configured.
var ErrAccountNotFound = errors.New("mail account not found")

// DecryptPassword recovers the SMTP password using the master key.
func (a *MailAccount) DecryptPassword(key []byte) (string, error) {
	return crypto.DecryptString(key, a.PasswordEnc)
}

// SaveMailAccount stores (or replaces) the owner's SMTP account. The plaintext
// password is encrypted with the master key before it reaches the database.
func (s *Store) SaveMailAccount(ctx context.Context, acct MailAccount, password string, key []byte) error {
	enc, err := crypto.EncryptString(key, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	now := nowUTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mail_accounts (owner_mxid, smtp_host, smtp_port, username, password_enc, from_addr, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_mxid) DO UPDATE SET
			smtp_host = excluded.smtp_host,
			smtp_port = excluded.smtp_port,
			username = excluded.username,
			password_enc = excluded.password_enc,
			from_addr = excluded.from_addr,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
	`, acct.OwnerMXID, acct.SMTPHost, acct.SMTPPort, acct.Username, enc, acct.FromAddr, acct.DisplayName, now, now)
	if err != nil {
		return fmt.Errorf("failed to save mail account: %w", err)
	}
	return nil
}

// GetMailAccount returns the owner's SMTP account with the password still
// encrypted.
func (s *Store) GetMailAccount(ctx context.Context, ownerMXID string) (*MailAccount, error) {
	var a MailAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_mxid, smtp_host, smtp_port, username, password_enc, from_addr, display_name
		FROM mail_accounts
		WHERE owner_mxid = ?
	`, ownerMXID).Scan(&a.OwnerMXID, &a.SMTPHost, &a.SMTPPort, &a.Username, &a.PasswordEnc, &a.FromAddr, &a.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mail account: %w", err)
	}
	return &a, nil
}
