package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	Capture   CaptureConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox and setuid sandbox. Needed in
	// containers and other hosts that forbid the privileges they require.
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string
}

// CaptureConfig controls navigation and snapshot output.
type CaptureConfig struct {
	// NavigationTimeout bounds navigation plus the load wait.
	NavigationTimeout time.Duration // default: 30s

	// WaitStrategy is one of "load", "dom-stable", "request-idle".
	WaitStrategy string // default: "load"

	// FileName is the snapshot file name.
	FileName string // default: "output.html"

	// OutputDir is the directory snapshots are written under.
	OutputDir string

	// CreateDirs creates missing parent directories before writing.
	CreateDirs bool // default: false

	// BlockedResourceTypes lists resource types to block,
	// e.g. ["Image", "Font", "Media"].
	BlockedResourceTypes []string
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// MaxCaptures caps concurrently running captures. Each capture owns
	// its own browser process.
	MaxCaptures int // default: 2
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 4
}

// WebhookConfig controls completion notifications.
type WebhookConfig struct {
	// Secret signs webhook payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:   envBoolOr("PAGESNAP_HEADLESS", true),
			NoSandbox:  envBoolOr("PAGESNAP_NO_SANDBOX", true),
			BrowserBin: os.Getenv("PAGESNAP_BROWSER_BIN"),
			Proxy:      os.Getenv("PAGESNAP_PROXY"),
		},
		Capture: CaptureConfig{
			NavigationTimeout:    envDurationOr("PAGESNAP_NAV_TIMEOUT", 30*time.Second),
			WaitStrategy:         envOr("PAGESNAP_WAIT", "load"),
			FileName:             envOr("PAGESNAP_FILE_NAME", "output.html"),
			OutputDir:            os.Getenv("PAGESNAP_OUTPUT_DIR"),
			CreateDirs:           envBoolOr("PAGESNAP_CREATE_DIRS", false),
			BlockedResourceTypes: envSliceOr("PAGESNAP_BLOCKED_RESOURCES", nil),
		},
		Server: ServerConfig{
			Host:        envOr("PAGESNAP_HOST", "0.0.0.0"),
			Port:        envIntOr("PAGESNAP_PORT", 8080),
			Mode:        envOr("PAGESNAP_MODE", "release"),
			MaxCaptures: envIntOr("PAGESNAP_MAX_CAPTURES", 2),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGESNAP_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PAGESNAP_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGESNAP_RATE_RPS", 2.0),
			Burst:             envIntOr("PAGESNAP_RATE_BURST", 4),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("PAGESNAP_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PAGESNAP_LOG_LEVEL", "info"),
			Format: envOr("PAGESNAP_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDurationOr ignores values that do not parse or are not positive.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
