package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/houseflow/houseflow/internal/sqlitex"
	"github.com/houseflow/houseflow/migrations"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	db, err := sqlitex.Open(sqlitex.Config{
		Path:        filepath.Join(t.TempDir(), "houseflow.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("sqlitex.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.DatabaseFS, "database"); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLite(db)
}

func TestSQLite_CreateAndGetUserByEmail(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@b.c", "hashed")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByEmail() ID = %q, want %q", got.ID, u.ID)
	}
}

func TestSQLite_CreateUser_DuplicateEmailConflicts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "a@b.c", "hashed"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	_, err := s.CreateUser(ctx, "a@b.c", "other")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestSQLite_DeviceAccessViaRoom(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "a@b.c", "hashed")
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO devices (id, name, password_hash, room_id, created_at) VALUES (?, ?, ?, ?, datetime('now'))",
		"dev-1", "Lamp", "secret", "room-1",
	)
	if err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO user_device_access (user_id, room_id, created_at) VALUES (?, ?, datetime('now'))",
		u.ID, "room-1",
	)
	if err != nil {
		t.Fatalf("seeding access: %v", err)
	}

	ok, err := s.CheckUserDeviceAccess(ctx, u.ID, "dev-1")
	if err != nil {
		t.Fatalf("CheckUserDeviceAccess() error = %v", err)
	}
	if !ok {
		t.Error("CheckUserDeviceAccess() should be true via room membership")
	}

	devices, err := s.GetUserDevices(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "dev-1" {
		t.Fatalf("GetUserDevices() = %+v, want one dev-1 entry", devices)
	}
}

func TestSQLite_GetDeviceByID_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetDeviceByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDeviceByID() error = %v, want ErrNotFound", err)
	}
}
