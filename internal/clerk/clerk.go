// Package clerk holds outstanding email verification codes in memory.
// It is the login flow's short-term memory: a code minted in login step
// 1 must be redeemable, exactly once, by step 2.
package clerk

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

// Sentinel errors returned by Clerk operations.
var (
	// ErrDuplicateCode means the generated code already has a live,
	// unexpired entry — callers should regenerate.
	ErrDuplicateCode = errors.New("clerk: duplicate code")
	// ErrTooManyRequests means the user already has more than
	// limit_per_user live codes outstanding.
	ErrTooManyRequests = errors.New("clerk: too many outstanding codes")
)

const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

type entry struct {
	userID string
	expiry time.Time
}

// Config holds the clerk's tunables.
type Config struct {
	CodeLength   int
	LimitPerUser int
	TTL          time.Duration
}

// Clerk is a single guarded map from verification code to the user id it
// was minted for. All operations take O(n) over currently-live codes.
type Clerk struct {
	mu     sync.Mutex
	codes  map[string]entry
	config Config
}

// New returns an empty Clerk.
func New(cfg Config) *Clerk {
	return &Clerk{codes: make(map[string]entry), config: cfg}
}

// Issue generates a fresh code bound to userID and records it with the
// clerk's configured TTL. It fails with ErrTooManyRequests if userID
// already has more than LimitPerUser unexpired codes outstanding.
func (c *Clerk) Issue(userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	if c.countForUserLocked(userID) > c.config.LimitPerUser {
		return "", ErrTooManyRequests
	}

	for {
		code, err := randomCode(c.config.CodeLength)
		if err != nil {
			return "", err
		}
		if _, exists := c.codes[code]; exists {
			continue
		}
		c.codes[code] = entry{userID: userID, expiry: time.Now().Add(c.config.TTL)}
		return code, nil
	}
}

// Add records a caller-supplied code bound to userID, failing with
// ErrDuplicateCode if code already has a live entry.
func (c *Clerk) Add(code, userID string, exp time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	if existing, ok := c.codes[code]; ok && time.Now().Before(existing.expiry) {
		return ErrDuplicateCode
	}
	c.codes[code] = entry{userID: userID, expiry: exp}
	return nil
}

// Get resolves code to the user id it was issued for, consuming it
// (single-use). It returns ok=false if the code is absent or expired.
func (c *Clerk) Get(code string) (userID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.codes[code]
	delete(c.codes, code)
	if !exists || time.Now().After(e.expiry) {
		return "", false
	}
	return e.userID, true
}

// CountForUser returns the number of unexpired codes currently mapped to
// userID.
func (c *Clerk) CountForUser(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()
	return c.countForUserLocked(userID)
}

func (c *Clerk) countForUserLocked(userID string) int {
	count := 0
	for _, e := range c.codes {
		if e.userID == userID {
			count++
		}
	}
	return count
}

// sweepLocked drops expired entries. Callers must hold c.mu.
func (c *Clerk) sweepLocked() {
	now := time.Now()
	for code, e := range c.codes {
		if now.After(e.expiry) {
			delete(c.codes, code)
		}
	}
}

func randomCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i, v := range b {
		b[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(b), nil
}
