package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validConfig = `
[server]
listen_address = "0.0.0.0:8080"

[database]
dsn = "/tmp/test.db"

[refresh_store]
path = "/tmp/test-refresh.db"

[secrets]
access_key = "0123456789abcdef"
refresh_key = "fedcba9876543210"
authorization_code_key = "aabbccddeeff0011"
password_salt = "deadbeefdeadbeef"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, "0.0.0.0:8080")
	}
	if cfg.Database.DSN != "/tmp/test.db" {
		t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, "/tmp/test.db")
	}
	if cfg.Clerk.CodeLength != 6 {
		t.Errorf("Clerk.CodeLength = %d, want default 6", cfg.Clerk.CodeLength)
	}
	if cfg.Fulfillment.ExecuteTimeoutSecs != 5 {
		t.Errorf("Fulfillment.ExecuteTimeoutSecs = %d, want default 5", cfg.Fulfillment.ExecuteTimeoutSecs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "this is not [ valid toml")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

func TestLoad_ValidationFailure_ShortSecret(t *testing.T) {
	content := `
[server]
listen_address = "0.0.0.0:8080"

[database]
dsn = "/tmp/test.db"

[refresh_store]
path = "/tmp/test-refresh.db"

[secrets]
access_key = "short"
refresh_key = "fedcba9876543210"
authorization_code_key = "aabbccddeeff0011"
`
	path := writeConfig(t, content)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for short secret, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, validConfig)

	t.Setenv("HOUSEFLOW_DATABASE_DSN", "/tmp/overridden.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "/tmp/overridden.db" {
		t.Errorf("Database.DSN = %q, want env override %q", cfg.Database.DSN, "/tmp/overridden.db")
	}
}

func TestValidate_RejectsMissingListenAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.ListenAddress = ""
	cfg.Secrets = SecretsConfig{
		AccessKey:            "0123456789abcdef",
		RefreshKey:           "fedcba9876543210",
		AuthorizationCodeKey: "aabbccddeeff0011",
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for missing listen address, got nil")
	}
}
