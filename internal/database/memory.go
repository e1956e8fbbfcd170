package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/houseflow/houseflow/internal/auth"
)

// Memory is an in-process Database double for tests: no persistence,
// no SQL, just guarded maps.
type Memory struct {
	mu      sync.Mutex
	users   map[string]*auth.User // by id
	byEmail map[string]string     // email -> id
	devices map[string]*Device
	// access maps userID -> set of deviceIDs it may operate, resolved
	// ahead of time by the test (direct grants and room membership are
	// indistinguishable from the control plane's point of view).
	access map[string]map[string]bool
}

// NewMemory returns an empty Memory double.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*auth.User),
		byEmail: make(map[string]string),
		devices: make(map[string]*Device),
		access:  make(map[string]map[string]bool),
	}
}

// SeedUser inserts a user directly, bypassing CreateUser's conflict
// check, for test setup.
func (m *Memory) SeedUser(u *auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
}

// SeedDevice inserts a device and grants userID access to it.
func (m *Memory) SeedDevice(d *Device, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
	if m.access[userID] == nil {
		m.access[userID] = make(map[string]bool)
	}
	m.access[userID][d.ID] = true
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *Memory) CreateUser(_ context.Context, email, passwordHash string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return nil, ErrConflict
	}

	u := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID

	copied := *u
	return &copied, nil
}

func (m *Memory) CheckUserDeviceAccess(_ context.Context, userID, deviceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access[userID][deviceID], nil
}

func (m *Memory) GetUserDevices(_ context.Context, userID string) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.access[userID]))
	for deviceID := range m.access[userID] {
		d := *m.devices[deviceID]
		d.PasswordHash = ""
		devices = append(devices, d)
	}
	return devices, nil
}

func (m *Memory) GetDeviceByID(_ context.Context, deviceID string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}
