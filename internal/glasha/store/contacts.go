package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Contact is one address-book entry, scoped to its owner's Matrix ID.
type Contact struct {
	ID        int64
	OwnerMXID string
	Name      string
	Email     string
}

// ErrContactNotFound is returned when no contact matches the lookup name.
var ErrContactNotFound = errors.New("contact not found")

// russian noun endings differ by grammatical case mostly in the final vowel:
// Анна / Анны / Анне / Анну all share the stem "анн". Stripping one trailing
// vowel per word is a crude stemmer but good enough for first names and
// surnames, which is all the address book holds.
const trailingVowels = "аеиоуыэюя"

// NameKey derives the lookup key for a contact name. Exported so callers can
// tell whether two spoken names would collide before saving.
func NameKey(name string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 2 && strings.ContainsRune(trailingVowels, runes[len(runes)-1]) {
			words[i] = string(runes[:len(runes)-1])
		}
	}
	return strings.Join(words, " ")
}

// SaveContact inserts a contact or updates the email of an existing one with
// the same name key.
func (s *Store) SaveContact(ctx context.Context, ownerMXID, name, email string) (*Contact, error) {
	key := NameKey(name)
	if key == "" {
		return nil, fmt.Errorf("contact name is empty")
	}

	now := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (owner_mxid, name, name_key, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_mxid, name_key) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			updated_at = excluded.updated_at
	`, ownerMXID, name, key, email, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}

	return s.FindContact(ctx, ownerMXID, name)
}

// FindContact looks a contact up by name, tolerant of grammatical case: the
// lookup name and the stored name are both reduced to their key form.
func (s *Store) FindContact(ctx context.Context, ownerMXID, name string) (*Contact, error) {
	key := NameKey(name)

	var c Contact
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_mxid, name, email
		FROM contacts
		WHERE owner_mxid = ? AND name_key = ?
	`, ownerMXID, key).Scan(&c.ID, &c.OwnerMXID, &c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return &c, nil
}

// ListContacts returns the owner's address book sorted by name.
func (s *Store) ListContacts(ctx context.Context, ownerMXID string) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_mxid, name, email
		FROM contacts
		WHERE owner_mxid = ?
		ORDER BY name
	`, ownerMXID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.OwnerMXID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ContactCount returns the total number of stored contacts across all owners.
func (s *Store) ContactCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}

// DeleteContact removes a contact by name. Returns ErrContactNotFound when
// nothing matched.
func (s *Store) DeleteContact(ctx context.Context, ownerMXID, name string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE owner_mxid = ? AND name_key = ?",
		ownerMXID, NameKey(name))
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContactNotFound
	}
	return nil
}
