package lighthouse

import (
	"net/http"
	"testing"
)

func TestParseBasicAuth_Valid(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/lighthouse/ws", nil)
	req.Header.Set("Authorization", "Basic dev-1:s3cret")

	deviceID, password, err := ParseBasicAuth(req)
	if err != nil {
		t.Fatalf("ParseBasicAuth() error = %v", err)
	}
	if deviceID != "dev-1" {
		t.Errorf("deviceID = %q, want %q", deviceID, "dev-1")
	}
	if password != "s3cret" {
		t.Errorf("password = %q, want %q", password, "s3cret")
	}
}

func TestParseBasicAuth_PasswordMayContainColons(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/lighthouse/ws", nil)
	req.Header.Set("Authorization", "Basic dev-1:pass:with:colons")

	_, password, err := ParseBasicAuth(req)
	if err != nil {
		t.Fatalf("ParseBasicAuth() error = %v", err)
	}
	if password != "pass:with:colons" {
		t.Errorf("password = %q, want %q", password, "pass:with:colons")
	}
}

func TestParseBasicAuth_MissingHeader(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/lighthouse/ws", nil)
	_, _, err := ParseBasicAuth(req)
	if err != ErrMalformedBasicAuth {
		t.Errorf("err = %v, want ErrMalformedBasicAuth", err)
	}
}

func TestParseBasicAuth_NotColonSeparated(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/lighthouse/ws", nil)
	req.Header.Set("Authorization", "Basic dev-1-no-colon")
	_, _, err := ParseBasicAuth(req)
	if err != ErrMalformedBasicAuth {
		t.Errorf("err = %v, want ErrMalformedBasicAuth", err)
	}
}
