package auth

import (
	"errors"
	"time"
)

// User is an authenticated human account, persisted in the external
// database — out of scope for this repository beyond the interface it
// must satisfy.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors for auth operations. The HTTP handlers map the
// database package's sentinels, not these, to HTTP kinds; VerifyPassword
// returns ErrMalformedHash.
var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrEmailExists        = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMalformedHash means a stored password hash is not a well-formed
	// Argon2id PHC string — a corrupt row, not a wrong password.
	ErrMalformedHash = errors.New("auth: malformed password hash")
)
