// Package config loads application configuration from environment variables.
// Everything the server needs is gathered into one Config value at startup
// and injected from there; no other package reads the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing is returned when a required configuration key is not set.
var ErrMissing = errors.New("configuration value missing")

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// BundleIdentifier names the client application, e.g. "com.zunda.niabis".
	// Required.
	BundleIdentifier string

	// AppIdentifierPrefix is the team prefix of the client application,
	// without the trailing dot. Required.
	AppIdentifierPrefix string

	// AppGroup is the shared container identifier.
	AppGroup string

	// CloudDatabaseName names the cloud container the client syncs with.
	CloudDatabaseName string

	// RedirectURL is the deep link returned to clients after a session closes.
	RedirectURL string

	// MaxPhotoBytes caps the size of a single ingested photo. Zero disables the cap.
	MaxPhotoBytes int64

	// MaxUploadBytes caps the size of a request body.
	MaxUploadBytes int64

	// AutoMigrate applies pending database migrations at startup.
	AutoMigrate bool

	// IngestConcurrency caps concurrent photo resolutions per batch.
	// Zero means one goroutine per photo.
	IngestConcurrency int

	// SessionIdleTimeout ends sessions nobody has touched for this long.
	// Zero keeps them until they are closed.
	SessionIdleTimeout time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error wrapping ErrMissing that lists every required variable
// that is not set.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AppGroup:          getEnv("APP_GROUP", "group.zunda.niabis"),
		CloudDatabaseName: getEnv("CLOUD_DATABASE_NAME", "iCloud.com.zunda.niabis"),
		RedirectURL:       getEnv("REDIRECT_URL", "niabis://"),
	}

	var missing []string
	for _, req := range []struct {
		key  string
		dest *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"BUNDLE_IDENTIFIER", &cfg.BundleIdentifier},
		{"APP_IDENTIFIER_PREFIX", &cfg.AppIdentifierPrefix},
	} {
		v, err := Lookup(req.key)
		if err != nil {
			missing = append(missing, req.key)
			continue
		}
		*req.dest = v
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config.Load: %w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	cfg.AppIdentifierPrefix = strings.TrimSuffix(cfg.AppIdentifierPrefix, ".")

	var err error
	if cfg.MaxPhotoBytes, err = getInt64("MAX_PHOTO_BYTES", 20<<20); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", 100<<20); err != nil {
		return Config{}, err
	}
	concurrency, err := getInt64("INGEST_CONCURRENCY", 8)
	if err != nil {
		return Config{}, err
	}
	cfg.IngestConcurrency = int(concurrency)

	cfg.SessionIdleTimeout = 30 * time.Minute
	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("config.Load: SESSION_IDLE_TIMEOUT must be a non-negative duration, got %q", v)
		}
		cfg.SessionIdleTimeout = d
	}

	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		if cfg.AutoMigrate, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("config.Load: AUTO_MIGRATE must be a boolean, got %q", v)
		}
	}

	return cfg, nil
}

// LoadDotEnv seeds the environment from the given .env files, or ./.env when
// none are given. Variables already set in the environment win. Missing files
// are ignored; a malformed file is an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config.LoadDotEnv %s: %w", p, err)
		}
	}
	return nil
}

// ApplicationName identifies this server to Postgres. It combines the bundle
// identifier with the cloud database name so connections from different
// deployments can be told apart.
func (c Config) ApplicationName() string {
	if c.CloudDatabaseName == "" {
		return c.BundleIdentifier
	}
	return c.BundleIdentifier + "/" + c.CloudDatabaseName
}

// Lookup returns the value of a required environment variable.
// Returns an error wrapping ErrMissing if it is unset or blank.
func Lookup(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("config.Lookup %s: %w", key, ErrMissing)
	}
	return v, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config.Load: %s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
