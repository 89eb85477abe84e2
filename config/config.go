package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/trendscraper/models"
)

// Profile names for the browser capability / timeout presets.
const (
	ProfileInteractive = "interactive"
	ProfileHeadless    = "headless"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Login     LoginConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser process launched per scrape.
type BrowserConfig struct {
	// Profile selects the capability and timeout preset.
	Profile string // "interactive" or "headless"; default: "headless"

	// Headless controls whether the browser renders without a display.
	Headless bool

	// DebugPort is the fixed remote-debugging port. 0 lets Chrome pick.
	DebugPort int // default: 9222

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// MaxSessions caps concurrently live browser sessions.
	MaxSessions int // default: 1

	// BlockedResourceTypes lists resource types the page never loads.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// LoginConfig controls the login flow and trend extraction.
type LoginConfig struct {
	// LoginURL is the page the flow starts on.
	LoginURL string // default: "https://x.com/i/flow/login"

	// StepTimeout bounds each wait-for-element in the flow.
	StepTimeout time.Duration // default: 15s interactive, 60s headless

	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration // default: 30s

	// MaxTrends is the number of trend entries read from the page.
	MaxTrends int // default and maximum: 6

	// SkipOptionalSecondary lets the flow skip the secondary identifier
	// checkpoint when the site goes straight to the password prompt.
	SkipOptionalSecondary bool // default: true

	// LocatorsFile is an optional YAML file overriding the default locators.
	LocatorsFile string

	// Credentials for the automation account.
	Credentials models.Credentials
}

// StoreConfig controls persistence.
type StoreConfig struct {
	// DSN selects the backend: postgres://... or sqlite://<path>.
	DSN string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 0.2

	// Burst is the maximum burst size per identity.
	Burst int // default: 2

	// MaxInFlight caps concurrent scrapes per identity. 0 disables the cap.
	MaxInFlight int // default: 1
}

// CORSConfig controls cross-origin access for the web front end.
type CORSConfig struct {
	AllowOrigins     []string // default: ["http://localhost:3000"]
	AllowMethods     []string // default: ["GET", "POST"]
	AllowCredentials bool     // default: true
}

// WebhookConfig controls delivery of persisted records.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	profile := envOr("TRENDS_PROFILE", ProfileHeadless)

	return &Config{
		Server: ServerConfig{
			Host: envOr("TRENDS_HOST", "0.0.0.0"),
			Port: envIntOr("TRENDS_PORT", envIntOr("PORT", 5000)),
			Mode: envOr("TRENDS_MODE", "release"),
		},
		Browser: BrowserConfig{
			Profile:     profile,
			Headless:    envBoolOr("TRENDS_HEADLESS", profile == ProfileHeadless),
			DebugPort:   envIntOr("TRENDS_DEBUG_PORT", 9222),
			BrowserBin:  os.Getenv("TRENDS_BROWSER_BIN"),
			MaxSessions: envIntOr("TRENDS_MAX_SESSIONS", 1),
			BlockedResourceTypes: envSliceOr("TRENDS_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Login: LoginConfig{
			LoginURL:              envOr("TRENDS_LOGIN_URL", "https://x.com/i/flow/login"),
			StepTimeout:           envDurationOr("TRENDS_STEP_TIMEOUT", ProfileStepTimeout(profile)),
			NavigationTimeout:     envDurationOr("TRENDS_NAV_TIMEOUT", 30*time.Second),
			MaxTrends:             envIntOr("TRENDS_MAX_TRENDS", models.MaxExtractedTrends),
			SkipOptionalSecondary: envBoolOr("TRENDS_SKIP_OPTIONAL_SECONDARY", true),
			LocatorsFile:          os.Getenv("TRENDS_LOCATORS_FILE"),
			Credentials: models.Credentials{
				Identifier:          os.Getenv("TRENDS_LOGIN_IDENTIFIER"),
				SecondaryIdentifier: os.Getenv("TRENDS_LOGIN_USERNAME"),
				Secret:              os.Getenv("TRENDS_LOGIN_PASSWORD"),
			},
		},
		Store: StoreConfig{
			DSN: envOr("TRENDS_DATABASE_URL", os.Getenv("DATABASE_URL")),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TRENDS_AUTH_ENABLED", false),
			APIKeys: envSliceOr("TRENDS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TRENDS_RATE_RPS", 0.2),
			Burst:             envIntOr("TRENDS_RATE_BURST", 2),
			MaxInFlight:       envIntOr("TRENDS_RATE_MAX_IN_FLIGHT", 1),
		},
		CORS: CORSConfig{
			AllowOrigins:     envSliceOr("TRENDS_CORS_ORIGINS", []string{"http://localhost:3000"}),
			AllowMethods:     envSliceOr("TRENDS_CORS_METHODS", []string{"GET", "POST"}),
			AllowCredentials: envBoolOr("TRENDS_CORS_CREDENTIALS", true),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("TRENDS_WEBHOOK_URL"),
			Secret: os.Getenv("TRENDS_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("TRENDS_LOG_LEVEL", "info"),
			Format: envOr("TRENDS_LOG_FORMAT", "json"),
		},
	}
}

// ProfileStepTimeout returns the per-step wait bound for a profile. Headless
// rendering is slower to settle, so it gets the longer bound.
func ProfileStepTimeout(profile string) time.Duration {
	if profile == ProfileInteractive {
		return 15 * time.Second
	}
	return 60 * time.Second
}

// Validate reports configuration that makes the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("TRENDS_DATABASE_URL is required"))
	}
	if !c.Login.Credentials.Complete() {
		errs = append(errs, errors.New("TRENDS_LOGIN_IDENTIFIER, TRENDS_LOGIN_USERNAME and TRENDS_LOGIN_PASSWORD are required"))
	}
	if c.Browser.Profile != ProfileHeadless && c.Browser.Profile != ProfileInteractive {
		errs = append(errs, errors.New("TRENDS_PROFILE must be \"headless\" or \"interactive\""))
	}
	if c.Login.StepTimeout <= 0 {
		errs = append(errs, errors.New("TRENDS_STEP_TIMEOUT must be positive"))
	}
	if c.Login.MaxTrends <= 0 || c.Login.MaxTrends > models.MaxExtractedTrends {
		errs = append(errs, fmt.Errorf("TRENDS_MAX_TRENDS must be between 1 and %d", models.MaxExtractedTrends))
	}
	if c.Browser.MaxSessions <= 0 {
		errs = append(errs, errors.New("TRENDS_MAX_SESSIONS must be positive"))
	}
	if c.Browser.MaxSessions > 1 && c.Browser.DebugPort != 0 {
		errs = append(errs, errors.New("TRENDS_MAX_SESSIONS > 1 needs TRENDS_DEBUG_PORT=0: concurrent browsers cannot share one debugging port"))
	}
	return errors.Join(errs...)
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
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
