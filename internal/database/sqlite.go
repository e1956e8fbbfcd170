package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/houseflow/houseflow/internal/auth"
	"github.com/houseflow/houseflow/internal/sqlitex"
)

// SQLite is the reference Database implementation, good enough to run
// cmd/houseflow standalone without an external store. Production
// deployments may swap it for anything else that satisfies the Database
// interface.
type SQLite struct {
	db *sqlitex.DB
}

// NewSQLite wraps an already-migrated database handle.
func NewSQLite(db *sqlitex.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *SQLite) CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	u := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *SQLite) CheckUserDeviceAccess(ctx context.Context, userID, deviceID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_device_access uda
		LEFT JOIN devices d ON d.id = ?
		WHERE uda.user_id = ?
		  AND (uda.device_id = ? OR uda.room_id = d.room_id)
	`, deviceID, userID, deviceID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking device access: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) GetUserDevices(ctx context.Context, userID string) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.id, d.name, d.room_id, d.created_at
		FROM devices d
		JOIN user_device_access uda
		  ON uda.device_id = d.id OR uda.room_id = d.room_id
		WHERE uda.user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var roomID sql.NullString
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &roomID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		d.RoomID = roomID.String
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *SQLite) GetDeviceByID(ctx context.Context, deviceID string) (*Device, error) {
	var d Device
	var roomID sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, password_hash, room_id, created_at FROM devices WHERE id = ?", deviceID,
	).Scan(&d.ID, &d.Name, &d.PasswordHash, &roomID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device: %w", err)
	}
	d.RoomID = roomID.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}
