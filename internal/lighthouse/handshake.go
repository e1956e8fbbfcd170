package lighthouse

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/houseflow/houseflow/internal/auth"
	"github.com/houseflow/houseflow/internal/database"
)

// ErrMalformedBasicAuth means the Authorization header was not the
// literal "Basic <device_id>:<password>" form the lighthouse handshake
// requires. Note this is NOT base64-encoded, unlike standard HTTP Basic
// auth, for interoperability with existing device firmware.
var ErrMalformedBasicAuth = errors.New("lighthouse: malformed basic auth header")

// ErrInvalidDeviceCredentials means the device id is unknown or the
// password does not match its stored hash.
var ErrInvalidDeviceCredentials = errors.New("lighthouse: invalid device credentials")

// ParseBasicAuth extracts the device id and password from req's
// Authorization header, in the literal "Basic <device_id>:<password>"
// form (no base64 decoding).
func ParseBasicAuth(req *http.Request) (deviceID, password string, err error) {
	header := req.Header.Get("Authorization")
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", ErrMalformedBasicAuth
	}

	rest := strings.TrimPrefix(header, prefix)
	deviceID, password, ok := strings.Cut(rest, ":")
	if !ok || deviceID == "" {
		return "", "", ErrMalformedBasicAuth
	}
	return deviceID, password, nil
}

// Authenticate resolves deviceID via db and verifies password against its
// stored Argon2id hash.
func Authenticate(ctx context.Context, db database.Database, deviceID, password string) (*database.Device, error) {
	device, err := db.GetDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, ErrInvalidDeviceCredentials
	}

	ok, err := auth.VerifyPassword(password, device.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidDeviceCredentials
	}
	return device, nil
}
