package store_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vkatenev/glasha/common/trace"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Анна", "анн"},
		{"Анны", "анн"},
		{"Анне", "анн"},
		{"анну", "анн"},
		{"Анна Петрова", "анн петров"},
		{"Анну Петрову", "анн петров"},
		{"Лев", "лев"},
		{"Ия", "ия"}, // too short to strip
		{"  Олег  ", "олег"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := store.NameKey(tt.name); got != tt.want {
			t.Errorf("NameKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestContacts_SaveAndInflectedLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "@vasya:example.org"

	if _, err := s.SaveContact(ctx, owner, "Анна", "anna@mail.ru"); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}

	// Lookup by any grammatical case of the stored name.
	for _, name := range []string{"Анна", "Анны", "Анне", "анну"} {
		c, err := s.FindContact(ctx, owner, name)
		if err != nil {
			t.Fatalf("FindContact(%q): %v", name, err)
		}
		if c.Email != "anna@mail.ru" {
			t.Errorf("FindContact(%q) email = %q, want anna@mail.ru", name, c.Email)
		}
		if c.Name != "Анна" {
			t.Errorf("FindContact(%q) name = %q, want Анна", name, c.Name)
		}
	}
}

func TestContacts_UpdateOnSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "@vasya:example.org"

	if _, err := s.SaveContact(ctx, owner, "Анна", "old@mail.ru"); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	// "Анны" shares the key with "Анна": this must update, not duplicate.
	if _, err := s.SaveContact(ctx, owner, "Анны", "new@mail.ru"); err != nil {
		t.Fatalf("SaveContact update: %v", err)
	}

	contacts, err := s.ListContacts(ctx, owner)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(contacts))
	}
	if contacts[0].Email != "new@mail.ru" {
		t.Errorf("email = %q, want new@mail.ru", contacts[0].Email)
	}
}

func TestContacts_ScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveContact(ctx, "@vasya:example.org", "Анна", "anna@mail.ru"); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}

	_, err := s.FindContact(ctx, "@petya:example.org", "Анна")
	if !errors.Is(err, store.ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound for other owner, got %v", err)
	}
}

func TestContacts_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "@vasya:example.org"

	if _, err := s.SaveContact(ctx, owner, "Анна", "anna@mail.ru"); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if err := s.DeleteContact(ctx, owner, "Анны"); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	if err := s.DeleteContact(ctx, owner, "Анна"); !errors.Is(err, store.ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound after delete, got %v", err)
	}
}

func TestMailAccounts_PasswordRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := bytes.Repeat([]byte{0x42}, 32)

	acct := store.MailAccount{
		OwnerMXID:   "@vasya:example.org",
		SMTPHost:    "smtp.yandex.ru",
		SMTPPort:    465,
		Username:    "vasya",
		FromAddr:    "vasya@yandex.ru",
		DisplayName: "Вася",
	}
	if err := s.SaveMailAccount(ctx, acct, "s3cret", key); err != nil {
		t.Fatalf("SaveMailAccount: %v", err)
	}

	got, err := s.GetMailAccount(ctx, acct.OwnerMXID)
	if err != nil {
		t.Fatalf("GetMailAccount: %v", err)
	}
	if got.PasswordEnc == "s3cret" || got.PasswordEnc == "" {
		t.Fatalf("password stored without encryption: %q", got.PasswordEnc)
	}

	pw, err := got.DecryptPassword(key)
	if err != nil {
		t.Fatalf("DecryptPassword: %v", err)
	}
	if pw != "s3cret" {
		t.Errorf("decrypted password = %q, want s3cret", pw)
	}
}

func TestMailAccounts_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMailAccount(context.Background(), "@nobody:example.org")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestOutbox_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "@vasya:example.org"

	id, err := s.RecordOutbox(ctx, store.OutboxEntry{
		OwnerMXID: owner,
		ToAddr:    "anna@mail.ru",
		Subject:   "Перенос встречи",
		Body:      "Добрый день!",
		Status:    store.OutboxSent,
		TraceID:   "u_test",
	})
	if err != nil {
		t.Fatalf("RecordOutbox: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated outbox ID")
	}

	_, err = s.RecordOutbox(ctx, store.OutboxEntry{
		OwnerMXID: owner,
		ToAddr:    "boss@corp.ru",
		Subject:   "Отчет",
		Body:      "...",
		Status:    store.OutboxFailed,
		ErrorMsg:  "connection refused",
		TraceID:   "u_test2",
	})
	if err != nil {
		t.Fatalf("RecordOutbox failed entry: %v", err)
	}

	entries, err := s.RecentOutbox(ctx, owner, 10)
	if err != nil {
		t.Fatalf("RecentOutbox: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Status == store.OutboxFailed && e.ErrorMsg != "connection refused" {
			t.Errorf("failed entry error = %q", e.ErrorMsg)
		}
	}
}

func TestWriteAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := trace.WithTraceID(context.Background(), "u_audit")

	err := s.WriteAudit(ctx, store.AuditEntry{
		Actor:   "@vasya:example.org",
		Action:  "send_mail",
		Target:  "anna@mail.ru",
		Payload: map[string]string{"subject": "Отчет"},
		Result:  store.AuditOK,
	})
	if err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}

	var traceID, result string
	err = s.DB().QueryRow("SELECT trace_id, result FROM audit_log").Scan(&traceID, &result)
	if err != nil {
		t.Fatalf("query audit_log: %v", err)
	}
	if traceID != "u_audit" {
		t.Errorf("trace_id = %q, want u_audit", traceID)
	}
	if result != store.AuditOK {
		t.Errorf("result = %q, want ok", result)
	}
}
