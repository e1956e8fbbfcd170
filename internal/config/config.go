// Package config loads and validates Houseflow's server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration structure for the Houseflow server.
// It is loaded from TOML and may be overridden by environment variables.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	RefreshStore RefreshStoreConfig `toml:"refresh_store"`
	Secrets     SecretsConfig     `toml:"secrets"`
	Clerk       ClerkConfig       `toml:"clerk"`
	Lighthouse  LighthouseConfig  `toml:"lighthouse"`
	Fulfillment FulfillmentConfig `toml:"fulfillment"`
	Logging     LoggingConfig     `toml:"logging"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Google      *GoogleConfig     `toml:"google"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	ListenAddress string `toml:"listen_address"`
	ReadTimeout   int    `toml:"read_timeout"`
	WriteTimeout  int    `toml:"write_timeout"`
	IdleTimeout   int    `toml:"idle_timeout"`
}

// DatabaseConfig contains the external users/structures/rooms/devices database.
//
// The database itself is an out-of-scope collaborator owned and operated
// elsewhere; this section only carries enough to open a connection to the
// reference SQLite implementation used by tests and by the default binary.
type DatabaseConfig struct {
	DSN string `toml:"dsn"`
}

// RefreshStoreConfig points at the embedded refresh-token store.
type RefreshStoreConfig struct {
	Path        string `toml:"path"`
	BusyTimeout int    `toml:"busy_timeout"`
}

// SecretsConfig contains the symmetric keys used by the token codec and a
// password salt. All three token keys are independent; none may be derived
// from another. PasswordSalt is loaded and may be overridden from the
// environment, but password hashing does not read it: auth.HashPassword
// draws a fresh random salt for every hash.
type SecretsConfig struct {
	AccessKey            string `toml:"access_key"`
	RefreshKey            string `toml:"refresh_key"`
	AuthorizationCodeKey string `toml:"authorization_code_key"`
	PasswordSalt         string `toml:"password_salt"`
}

// ClerkConfig configures the verification-code clerk.
type ClerkConfig struct {
	CodeLength    int `toml:"code_length"`
	LimitPerUser  int `toml:"limit_per_user"`
	TTLMinutes    int `toml:"ttl_minutes"`
}

// LighthouseConfig configures the device WebSocket endpoint.
type LighthouseConfig struct {
	Path             string `toml:"path"`
	PingIntervalSecs int    `toml:"ping_interval_seconds"`
	PongTimeoutSecs  int    `toml:"pong_timeout_seconds"`
}

// FulfillmentConfig configures the HTTP fulfillment handlers.
type FulfillmentConfig struct {
	ExecuteTimeoutSecs int `toml:"execute_timeout_seconds"`
}

// LoggingConfig contains structured-logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TelemetryConfig configures the optional InfluxDB metrics sink.
type TelemetryConfig struct {
	InfluxDB *InfluxDBConfig `toml:"influxdb"`
}

// InfluxDBConfig contains InfluxDB connection settings for session and
// fulfillment telemetry. Absent section disables telemetry entirely.
type InfluxDBConfig struct {
	URL    string `toml:"url"`
	Token  string `toml:"token"`
	Org    string `toml:"org"`
	Bucket string `toml:"bucket"`
}

// GoogleConfig carries OAuth client credentials for the third-party
// voice-assistant HTTP adapter. The adapter itself is an out-of-scope
// collaborator; an absent section simply disables the route that would
// use it.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// Load reads configuration from a TOML file and applies environment
// variable overrides.
//
// Loading order: hardcoded defaults, then file values, then environment
// variables (HOUSEFLOW_SECTION_KEY), then validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "0.0.0.0:8080",
			ReadTimeout:   30,
			WriteTimeout:  30,
			IdleTimeout:   60,
		},
		Database: DatabaseConfig{
			DSN: "./data/houseflow.db",
		},
		RefreshStore: RefreshStoreConfig{
			Path:        "./data/refresh_tokens.db",
			BusyTimeout: 5,
		},
		Clerk: ClerkConfig{
			CodeLength:   6,
			LimitPerUser: 3,
			TTLMinutes:   30,
		},
		Lighthouse: LighthouseConfig{
			Path:             "/lighthouse/ws",
			PingIntervalSecs: 30,
			PongTimeoutSecs:  10,
		},
		Fulfillment: FulfillmentConfig{
			ExecuteTimeoutSecs: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables follow the pattern HOUSEFLOW_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOUSEFLOW_SERVER_LISTEN_ADDRESS"); v != "" {
		cfg.Server.ListenAddress = v
	}
	if v := os.Getenv("HOUSEFLOW_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HOUSEFLOW_REFRESH_STORE_PATH"); v != "" {
		cfg.RefreshStore.Path = v
	}
	if v := os.Getenv("HOUSEFLOW_SECRETS_ACCESS_KEY"); v != "" {
		cfg.Secrets.AccessKey = v
	}
	if v := os.Getenv("HOUSEFLOW_SECRETS_REFRESH_KEY"); v != "" {
		cfg.Secrets.RefreshKey = v
	}
	if v := os.Getenv("HOUSEFLOW_SECRETS_AUTHORIZATION_CODE_KEY"); v != "" {
		cfg.Secrets.AuthorizationCodeKey = v
	}
	if v := os.Getenv("HOUSEFLOW_SECRETS_PASSWORD_SALT"); v != "" {
		cfg.Secrets.PasswordSalt = v
	}
	if v := os.Getenv("HOUSEFLOW_TELEMETRY_INFLUXDB_TOKEN"); v != "" && cfg.Telemetry.InfluxDB != nil {
		cfg.Telemetry.InfluxDB.Token = v
	}
}

// minSecretLength is the minimum accepted length, in bytes, of a hex-encoded
// secret key before Validate rejects it.
const minSecretLength = 16

// Validate checks the configuration for missing or unsafe values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address is required")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.RefreshStore.Path == "" {
		errs = append(errs, "refresh_store.path is required")
	}

	for name, secret := range map[string]string{
		"secrets.access_key":             c.Secrets.AccessKey,
		"secrets.refresh_key":            c.Secrets.RefreshKey,
		"secrets.authorization_code_key": c.Secrets.AuthorizationCodeKey,
	} {
		if len(secret) < minSecretLength {
			errs = append(errs, fmt.Sprintf("%s must be at least %d bytes", name, minSecretLength))
		}
	}

	if c.Clerk.CodeLength < 6 || c.Clerk.CodeLength > 8 {
		errs = append(errs, "clerk.code_length must be between 6 and 8")
	}
	if c.Clerk.LimitPerUser < 1 {
		errs = append(errs, "clerk.limit_per_user must be positive")
	}
	if c.Fulfillment.ExecuteTimeoutSecs < 1 {
		errs = append(errs, "fulfillment.execute_timeout_seconds must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ReadTimeout returns the HTTP server's read timeout as a Duration.
func (c *Config) ReadTimeout() time.Duration { return time.Duration(c.Server.ReadTimeout) * time.Second }

// WriteTimeout returns the HTTP server's write timeout as a Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// IdleTimeout returns the HTTP server's idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration { return time.Duration(c.Server.IdleTimeout) * time.Second }

// ClerkTTL returns the verification-code TTL as a Duration.
func (c *Config) ClerkTTL() time.Duration { return time.Duration(c.Clerk.TTLMinutes) * time.Minute }

// ExecuteTimeout returns the fulfillment RPC timeout as a Duration.
func (c *Config) ExecuteTimeout() time.Duration {
	return time.Duration(c.Fulfillment.ExecuteTimeoutSecs) * time.Second
}

// PingInterval returns the lighthouse heartbeat interval as a Duration.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Lighthouse.PingIntervalSecs) * time.Second
}

// PongTimeout returns the lighthouse heartbeat deadline as a Duration.
func (c *Config) PongTimeout() time.Duration {
	return time.Duration(c.Lighthouse.PongTimeoutSecs) * time.Second
}
