// Package database defines Houseflow's boundary to the persistent store
// of users, devices, and room-based authorization. The control plane
// treats this store as an external collaborator, owned and operated
// elsewhere; this package supplies the narrow interface the control
// plane needs from it, plus an in-memory test double and a SQLite-backed
// reference implementation good enough to run the whole server
// standalone.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/houseflow/houseflow/internal/auth"
)

// Sentinel errors surfaced by Database implementations.
var (
	ErrNotFound = errors.New("database: not found")
	ErrConflict = errors.New("database: conflict")
)

// Device is the subset of a device's persisted record the control plane
// needs to authenticate a WebSocket handshake and shape a sync response.
// PasswordHash is always elided (json:"-") when a Device crosses the HTTP
// boundary.
type Device struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	RoomID       string    `json:"room_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Database is the external collaborator boundary. The control plane only
// ever calls these five operations; everything else about user/device/
// room management is this store's business.
type Database interface {
	// GetUserByEmail resolves a user by login email, for the login flow.
	// Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)

	// CreateUser persists a new user with an already-hashed password.
	// Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error)

	// CheckUserDeviceAccess reports whether userID is authorized to
	// operate deviceID, directly or via room membership.
	CheckUserDeviceAccess(ctx context.Context, userID, deviceID string) (bool, error)

	// GetUserDevices lists every device userID is authorized to operate,
	// for the sync endpoint. Order is unspecified but stable within a
	// single call.
	GetUserDevices(ctx context.Context, userID string) ([]Device, error)

	// GetDeviceByID resolves a device by id, for the WebSocket handshake
	// password check. Returns ErrNotFound if absent.
	GetDeviceByID(ctx context.Context, deviceID string) (*Device, error)
}
