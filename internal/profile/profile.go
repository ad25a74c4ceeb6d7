package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/server/timezone"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where babywise stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Logging
	LogLevel  string // BABYWISE_LOG_LEVEL (default: info)
	LogFormat string // BABYWISE_LOG_FORMAT (default: text)

	// Locale and reference clock
	DefaultLocale string // BABYWISE_DEFAULT_LOCALE (default: en)
	Timezone      string // BABYWISE_TIMEZONE (default: Local)

	// Cache Configuration
	RedisAddr       string        // BABYWISE_REDIS_ADDR (empty disables the L2 cache)
	RedisPassword   string        // BABYWISE_REDIS_PASSWORD
	RedisDB         int           // BABYWISE_REDIS_DB (default: 0)
	SummaryCacheTTL time.Duration // BABYWISE_SUMMARY_CACHE_TTL (default: 1h)
	RecentEventsTTL time.Duration // BABYWISE_RECENT_EVENTS_TTL (default: 30m)

	// Advice (LLM) Configuration
	AIEnabled    bool          // BABYWISE_AI_ENABLED
	AIAPIKey     string        // BABYWISE_AI_API_KEY
	AIBaseURL    string        // BABYWISE_AI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel  string        // BABYWISE_AI_CHAT_MODEL (default: gpt-4o-mini)
	AITimeout    time.Duration // BABYWISE_AI_TIMEOUT (default: 30s)
	AIMaxRetries int           // BABYWISE_AI_MAX_RETRIES (default: 3)

	// API rate limiting, per thread
	RateLimitPerSecond float64 // BABYWISE_RATE_LIMIT_RPS (default: 5)
	RateLimitBurst     int     // BABYWISE_RATE_LIMIT_BURST (default: 10)

	// Offline client
	SyncServerURL    string        // BABYWISE_SYNC_SERVER_URL (default: http://localhost:8081)
	SyncPollInterval time.Duration // BABYWISE_SYNC_POLL_INTERVAL (default: 5m)
	SyncBufferPath   string        // BABYWISE_SYNC_BUFFER_PATH (default: <data>/offline_buffer.json)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if advice generation is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// IsRedisEnabled returns true if the redis L2 cache is configured.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// FromEnv loads the optional configuration from BABYWISE_* environment variables.
// Fields that are already set are left untouched.
func (p *Profile) FromEnv() {
	getEnvWithDefault := func(key, current, defaultValue string) string {
		if current != "" {
			return current
		}
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultValue
	}

	getDurationEnv := func(key string, current, defaultValue time.Duration) time.Duration {
		if current > 0 {
			return current
		}
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil && d > 0 {
				return d
			}
			slog.Warn("invalid duration in environment, using default", slog.String("key", key), slog.String("value", val))
		}
		return defaultValue
	}

	getIntEnv := func(key string, current, defaultValue int) int {
		if current > 0 {
			return current
		}
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				return n
			}
		}
		return defaultValue
	}

	p.LogLevel = getEnvWithDefault("BABYWISE_LOG_LEVEL", p.LogLevel, "info")
	p.LogFormat = getEnvWithDefault("BABYWISE_LOG_FORMAT", p.LogFormat, "text")
	p.DefaultLocale = getEnvWithDefault("BABYWISE_DEFAULT_LOCALE", p.DefaultLocale, "en")
	p.Timezone = getEnvWithDefault("BABYWISE_TIMEZONE", p.Timezone, "Local")

	p.RedisAddr = getEnvWithDefault("BABYWISE_REDIS_ADDR", p.RedisAddr, "")
	p.RedisPassword = getEnvWithDefault("BABYWISE_REDIS_PASSWORD", p.RedisPassword, "")
	p.RedisDB = getIntEnv("BABYWISE_REDIS_DB", p.RedisDB, 0)
	p.SummaryCacheTTL = getDurationEnv("BABYWISE_SUMMARY_CACHE_TTL", p.SummaryCacheTTL, time.Hour)
	p.RecentEventsTTL = getDurationEnv("BABYWISE_RECENT_EVENTS_TTL", p.RecentEventsTTL, 30*time.Minute)

	if !p.AIEnabled {
		p.AIEnabled = os.Getenv("BABYWISE_AI_ENABLED") == "true"
	}
	p.AIAPIKey = getEnvWithDefault("BABYWISE_AI_API_KEY", p.AIAPIKey, "")
	p.AIBaseURL = getEnvWithDefault("BABYWISE_AI_BASE_URL", p.AIBaseURL, "https://api.openai.com/v1")
	p.AIChatModel = getEnvWithDefault("BABYWISE_AI_CHAT_MODEL", p.AIChatModel, "gpt-4o-mini")
	p.AITimeout = getDurationEnv("BABYWISE_AI_TIMEOUT", p.AITimeout, 30*time.Second)
	p.AIMaxRetries = getIntEnv("BABYWISE_AI_MAX_RETRIES", p.AIMaxRetries, 3)

	if p.RateLimitPerSecond <= 0 {
		p.RateLimitPerSecond = 5
		if val := os.Getenv("BABYWISE_RATE_LIMIT_RPS"); val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
				p.RateLimitPerSecond = f
			}
		}
	}
	p.RateLimitBurst = getIntEnv("BABYWISE_RATE_LIMIT_BURST", p.RateLimitBurst, 10)

	p.SyncServerURL = getEnvWithDefault("BABYWISE_SYNC_SERVER_URL", p.SyncServerURL, "http://localhost:8081")
	p.SyncPollInterval = getDurationEnv("BABYWISE_SYNC_POLL_INTERVAL", p.SyncPollInterval, 5*time.Minute)
	p.SyncBufferPath = getEnvWithDefault("BABYWISE_SYNC_BUFFER_PATH", p.SyncBufferPath, "")
}

// Location returns the configured reference timezone, falling back to time.Local.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using local", slog.String("timezone", p.Timezone), slog.String("error", err.Error()))
		return time.Local
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "babywise")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/babywise"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("babywise_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}
	if p.SyncBufferPath == "" {
		p.SyncBufferPath = filepath.Join(dataDir, "offline_buffer.json")
	}

	return nil
}
