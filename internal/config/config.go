// Package config loads the service configuration from environment variables.
// Every setting has a default except the database URL, and Load fails fast
// with every problem listed when anything is malformed.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Defaults DefaultsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request, including uploads.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the chi Timeout middleware budget.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig holds event store settings.
type DatabaseConfig struct {
	// Driver selects the event store: postgres or memory.
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string. Required for the postgres driver.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the schema at startup.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// ImportConfig holds spreadsheet import settings.
type ImportConfig struct {
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`
	MaxRows     int   `env:"IMPORT_MAX_ROWS" default:"5000"`

	// HeaderScanRows is how many leading rows are searched for the header.
	HeaderScanRows int `env:"IMPORT_HEADER_SCAN_ROWS" default:"10"`

	// MaxConcurrent bounds simultaneous decodes; MaxWaitTime is how long an
	// upload waits for a slot.
	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"15s"`

	// SessionTTL is how long an untouched review stays available.
	SessionTTL time.Duration `env:"IMPORT_SESSION_TTL" default:"2h"`

	CodeMaxAttempts int `env:"IMPORT_CODE_MAX_ATTEMPTS" default:"16"`

	PresenterOverlapIsError bool          `env:"IMPORT_PRESENTER_OVERLAP_IS_ERROR" default:"false"`
	MinDuration             time.Duration `env:"IMPORT_MIN_DURATION" default:"5m"`
	MaxDuration             time.Duration `env:"IMPORT_MAX_DURATION" default:"8h"`
}

// DefaultsConfig is the workspace fallback applied under every import's own
// defaults.
type DefaultsConfig struct {
	Timezone          string   `env:"DEFAULT_TIMEZONE" default:"UTC"`
	AccountID         string   `env:"DEFAULT_ACCOUNT_ID"`
	StartingLanguage  string   `env:"DEFAULT_STARTING_LANGUAGE" default:"en"`
	AutoSelect        bool     `env:"DEFAULT_AUTO_SELECT" default:"false"`
	Languages         []string `env:"DEFAULT_LANGUAGES"`
	GlossaryID        string   `env:"DEFAULT_GLOSSARY_ID"`
	TranscriptSetting string   `env:"DEFAULT_TRANSCRIPT_SETTING" default:"save"`
	AccessType        string   `env:"DEFAULT_ACCESS_TYPE" default:"passcode"`
	FloorAudio        bool     `env:"DEFAULT_FLOOR_AUDIO" default:"false"`
	VoicePack         string   `env:"DEFAULT_VOICE_PACK"`
}

// SessionDefaults converts the settings into core defaults.
func (d DefaultsConfig) SessionDefaults() core.SessionDefaults {
	return core.SessionDefaults{
		Timezone:          d.Timezone,
		AccountID:         d.AccountID,
		StartingLanguage:  d.StartingLanguage,
		AutoSelect:        d.AutoSelect,
		Languages:         append([]string(nil), d.Languages...),
		GlossaryID:        d.GlossaryID,
		TranscriptSetting: core.TranscriptSetting(d.TranscriptSetting),
		AccessType:        core.AccessType(d.AccessType),
		FloorAudio:        d.FloorAudio,
		VoicePack:         d.VoicePack,
	}
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit applies to file uploads and commits.
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
