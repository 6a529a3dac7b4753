package matrix

import (
	"context"
	"testing"

	"maunium.net/go/mautrix/id"

	"github.com/vkatenev/glasha/internal/glasha/store"
)

func TestDBSyncStore_RoundTrip(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	ss := newDBSyncStore(s.DB())
	user := id.UserID("@glasha:example.org")

	// First run: nothing stored yet.
	token, err := ss.LoadNextBatch(ctx, user)
	if err != nil {
		t.Fatalf("LoadNextBatch: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token on first run, got %q", token)
	}

	if err := ss.SaveNextBatch(ctx, user, "s123_456"); err != nil {
		t.Fatalf("SaveNextBatch: %v", err)
	}
	if err := ss.SaveNextBatch(ctx, user, "s123_789"); err != nil {
		t.Fatalf("SaveNextBatch overwrite: %v", err)
	}

	token, err = ss.LoadNextBatch(ctx, user)
	if err != nil {
		t.Fatalf("LoadNextBatch: %v", err)
	}
	if token != "s123_789" {
		t.Errorf("token = %q, want s123_789", token)
	}

	if err := ss.SaveFilterID(ctx, user, "42"); err != nil {
		t.Fatalf("SaveFilterID: %v", err)
	}
	filter, err := ss.LoadFilterID(ctx, user)
	if err != nil {
		t.Fatalf("LoadFilterID: %v", err)
	}
	if filter != "42" {
		t.Errorf("filter = %q, want 42", filter)
	}
}
