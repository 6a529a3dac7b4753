package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vkatenev/glasha/internal/glasha/app"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

func TestSaveMailAccount_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "glasha.db")
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	acct := store.MailAccount{
		OwnerMXID:   "@vlad:example.org",
		SMTPHost:    "smtp.yandex.ru",
		SMTPPort:    465,
		Username:    "vlad",
		FromAddr:    "vlad@yandex.ru",
		DisplayName: "Владислав",
	}
	if err := app.SaveMailAccount(dbPath, key, acct, "s3cret"); err != nil {
		t.Fatalf("SaveMailAccount: %v", err)
	}

	// Reopen the database the way the bot would on startup.
	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	got, err := st.GetMailAccount(context.Background(), "@vlad:example.org")
	if err != nil {
		t.Fatalf("GetMailAccount: %v", err)
	}
	if got.SMTPHost != "smtp.yandex.ru" || got.SMTPPort != 465 {
		t.Errorf("account = %+v", got)
	}
	if got.PasswordEnc == "s3cret" {
		t.Error("password stored in plaintext")
	}
	pw, err := got.DecryptPassword(key)
	if err != nil {
		t.Fatalf("DecryptPassword: %v", err)
	}
	if pw != "s3cret" {
		t.Errorf("password = %q, want s3cret", pw)
	}
}
