package sqlitex

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesAndPings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "houseflow.db")

	db, err := Open(Config{Path: path, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestOpen_RejectsInvalidPath(t *testing.T) {
	_, err := Open(Config{Path: "\x00invalid", BusyTimeout: 5})
	if err == nil {
		t.Error("Open() should fail for a path containing a NUL byte")
	}
}
