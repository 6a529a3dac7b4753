package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vkatenev/glasha/common/redact"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

// SaveMailAccount opens the database at dbPath and stores the owner's SMTP
// account, encrypting the password with the master key. It backs the
// set-account command, which runs and exits without starting the bot.
func SaveMailAccount(dbPath string, masterKey []byte, acct store.MailAccount, password string) error {
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := st.SaveMailAccount(context.Background(), acct, password, masterKey); err != nil {
		return err
	}

	slog.Info("mail account saved",
		"owner", acct.OwnerMXID,
		"host", acct.SMTPHost,
		"from", redact.Email(acct.FromAddr))
	return nil
}
