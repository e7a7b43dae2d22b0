package statestore

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func TestOpen_MissingParentDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope", "state.db")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestStore_SaveLoadClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok, user, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession on empty store: %v", err)
	}
	if tok != "" || user != "" {
		t.Errorf("empty store returned token=%q user=%q", tok, user)
	}

	if err := s.SaveSession(ctx, "abc123", `{"id":1,"username":"ada"}`); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	tok, user, err = s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if tok != "abc123" {
		t.Errorf("token = %q, want abc123", tok)
	}
	if user != `{"id":1,"username":"ada"}` {
		t.Errorf("user = %q", user)
	}

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	tok, user, _ = s.LoadSession(ctx)
	if tok != "" || user != "" {
		t.Errorf("after clear: token=%q user=%q", tok, user)
	}
	// Clearing twice is not an error.
	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("second ClearSession: %v", err)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, "first", `{"id":1}`); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveSession(ctx, "second", `{"id":2}`); err != nil {
		t.Fatalf("SaveSession overwrite: %v", err)
	}
	tok, user, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if tok != "second" || user != `{"id":2}` {
		t.Errorf("got token=%q user=%q, want the second write", tok, user)
	}
}
