package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/houseflow/houseflow/internal/sqlitex"
	"github.com/houseflow/houseflow/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlitex.Open(sqlitex.Config{
		Path:        filepath.Join(t.TempDir(), "refresh_tokens.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("sqlitex.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.StoreFS, "store"); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return New(db)
}

func TestAddExistsRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "tid-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Fatal("Exists() should be false before Add")
	}

	if err := s.Add(ctx, "tid-1", time.Time{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ok, err = s.Exists(ctx, "tid-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !ok {
		t.Fatal("Exists() should be true after Add")
	}

	if err := s.Remove(ctx, "tid-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	ok, err = s.Exists(ctx, "tid-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("Exists() should be false after Remove")
	}
}

func TestRemove_UnknownTidIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Remove(context.Background(), "never-added"); err != nil {
		t.Errorf("Remove() error = %v, want nil", err)
	}
}

func TestExists_ExpiredEntryIsSweptAndFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, "tid-expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ok, err := s.Exists(ctx, "tid-expired")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("Exists() should be false for an expired entry")
	}
}

func TestAdd_OverwritesExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, "tid-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(ctx, "tid-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ok, err := s.Exists(ctx, "tid-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !ok {
		t.Error("Exists() should be true after the expiry was extended")
	}
}
