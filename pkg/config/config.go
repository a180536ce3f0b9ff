package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Platform names in the order the selector consults them by default.
const (
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
)

// Instagram implementation variants. The mirror variant replaces the default
// implementation at selection time; it is a deployment toggle, not a runtime
// fallback (the orchestrator performs the runtime fallback on its own).
const (
	VariantDefault = "default"
	VariantMirror  = "mirror"
)

// Config holds all configuration for the vidgrab service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Instagram InstagramConfig `yaml:"instagram"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	TikTok    TikTokConfig    `yaml:"tiktok"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Retry     RetryConfig     `yaml:"retry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP surface configuration
type ServerConfig struct {
	Host               string        `yaml:"host" envconfig:"VIDGRAB_HOST"`
	Port               int           `yaml:"port" envconfig:"VIDGRAB_PORT"`
	APIKeyRequired     bool          `yaml:"api_key_required" envconfig:"VIDGRAB_API_KEY_REQUIRED"`
	APIKey             string        `yaml:"api_key" envconfig:"VIDGRAB_API_KEY"`
	RateLimitEnabled   bool          `yaml:"rate_limit_enabled" envconfig:"VIDGRAB_RATE_LIMIT_ENABLED"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" envconfig:"VIDGRAB_RATE_LIMIT_PER_MINUTE"`
	MaxDownloadMB      int           `yaml:"max_download_mb" envconfig:"VIDGRAB_MAX_DOWNLOAD_MB"`
	ReadTimeout        time.Duration `yaml:"read_timeout" envconfig:"VIDGRAB_READ_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" envconfig:"VIDGRAB_WRITE_TIMEOUT"`
}

// PlatformsConfig controls which platforms are enabled and in what priority order
type PlatformsConfig struct {
	// Order is the platform priority order used by the selector
	Order []string `yaml:"order" envconfig:"VIDGRAB_PLATFORMS"`
	// InstagramVariant selects which Instagram implementation is active
	InstagramVariant string `yaml:"instagram_variant" envconfig:"VIDGRAB_INSTAGRAM_VARIANT"`
}

// InstagramConfig holds settings for the default Instagram strategy
type InstagramConfig struct {
	ThrottleInterval time.Duration `yaml:"throttle_interval" envconfig:"VIDGRAB_IG_THROTTLE_INTERVAL"`
	APITimeout       time.Duration `yaml:"api_timeout" envconfig:"VIDGRAB_IG_API_TIMEOUT"`
	DownloadTimeout  time.Duration `yaml:"download_timeout" envconfig:"VIDGRAB_IG_DOWNLOAD_TIMEOUT"`
	UserAgent        string        `yaml:"user_agent" envconfig:"VIDGRAB_IG_USER_AGENT"`
}

// MirrorConfig holds settings for the alternate Instagram strategy backed by a
// subscription mirror API
type MirrorConfig struct {
	APIKey           string        `yaml:"api_key" envconfig:"VIDGRAB_MIRROR_API_KEY"`
	Host             string        `yaml:"host" envconfig:"VIDGRAB_MIRROR_HOST"`
	ThrottleInterval time.Duration `yaml:"throttle_interval" envconfig:"VIDGRAB_MIRROR_THROTTLE_INTERVAL"`
	APITimeout       time.Duration `yaml:"api_timeout" envconfig:"VIDGRAB_MIRROR_API_TIMEOUT"`
	DownloadTimeout  time.Duration `yaml:"download_timeout" envconfig:"VIDGRAB_MIRROR_DOWNLOAD_TIMEOUT"`
}

// TikTokConfig holds settings for the TikTok strategy
type TikTokConfig struct {
	APIURL          string        `yaml:"api_url" envconfig:"VIDGRAB_TIKTOK_API_URL"`
	APITimeout      time.Duration `yaml:"api_timeout" envconfig:"VIDGRAB_TIKTOK_API_TIMEOUT"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"VIDGRAB_TIKTOK_DOWNLOAD_TIMEOUT"`
	UserAgent       string        `yaml:"user_agent" envconfig:"VIDGRAB_TIKTOK_USER_AGENT"`
}

// ProxyConfig holds proxy pool configuration
type ProxyConfig struct {
	// Trusted is a comma-separated host:port:user:pass list of pre-vetted
	// proxies. When supplied, free sources are not scraped and health probes
	// are skipped.
	Trusted        string        `yaml:"trusted" envconfig:"VIDGRAB_TRUSTED_PROXIES"`
	SourceTimeout  time.Duration `yaml:"source_timeout" envconfig:"VIDGRAB_PROXY_SOURCE_TIMEOUT"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" envconfig:"VIDGRAB_PROXY_PROBE_TIMEOUT"`
	ProbeURL       string        `yaml:"probe_url" envconfig:"VIDGRAB_PROXY_PROBE_URL"`
	MaxProbes      int           `yaml:"max_probes" envconfig:"VIDGRAB_PROXY_MAX_PROBES"`
	RefreshOnStart bool          `yaml:"refresh_on_start" envconfig:"VIDGRAB_PROXY_REFRESH_ON_START"`
}

// RetryConfig holds the orchestrator retry policy
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" envconfig:"VIDGRAB_RETRY_MAX_ATTEMPTS"`
	// BlockedBackoffBase is multiplied by the attempt number when the platform
	// signals blocking or throttling
	BlockedBackoffBase time.Duration `yaml:"blocked_backoff_base" envconfig:"VIDGRAB_RETRY_BLOCKED_BACKOFF"`
	// GenericBackoffBase is multiplied by the attempt number for other
	// transient failures
	GenericBackoffBase time.Duration `yaml:"generic_backoff_base" envconfig:"VIDGRAB_RETRY_GENERIC_BACKOFF"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"VIDGRAB_LOG_LEVEL"`
	File  string `yaml:"file" envconfig:"VIDGRAB_LOG_FILE"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			APIKeyRequired:     false,
			RateLimitEnabled:   true,
			RateLimitPerMinute: 5,
			MaxDownloadMB:      500,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       5 * time.Minute,
		},
		Platforms: PlatformsConfig{
			Order:            []string{PlatformInstagram, PlatformTikTok},
			InstagramVariant: VariantDefault,
		},
		Instagram: InstagramConfig{
			ThrottleInterval: 3 * time.Second,
			APITimeout:       30 * time.Second,
			DownloadTimeout:  60 * time.Second,
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Mirror: MirrorConfig{
			Host:             "instagram-reels-downloader-api.p.rapidapi.com",
			ThrottleInterval: 3 * time.Second,
			APITimeout:       30 * time.Second,
			DownloadTimeout:  60 * time.Second,
		},
		TikTok: TikTokConfig{
			APIURL:          "https://www.tikwm.com/api/",
			APITimeout:      30 * time.Second,
			DownloadTimeout: 60 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Proxy: ProxyConfig{
			SourceTimeout:  10 * time.Second,
			ProbeTimeout:   5 * time.Second,
			ProbeURL:       "https://httpbin.org/ip",
			MaxProbes:      10,
			RefreshOnStart: true,
		},
		Retry: RetryConfig{
			MaxAttempts:        3,
			BlockedBackoffBase: 5 * time.Second,
			GenericBackoffBase: 3 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (if any), then
// environment variables. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.APIKeyRequired && c.Server.APIKey == "" {
		return fmt.Errorf("api_key_required is set but no api_key is configured")
	}
	if len(c.Platforms.Order) == 0 {
		return fmt.Errorf("at least one platform must be enabled")
	}
	for _, name := range c.Platforms.Order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case PlatformInstagram, PlatformTikTok:
		default:
			return fmt.Errorf("unknown platform: %q", name)
		}
	}
	switch c.Platforms.InstagramVariant {
	case VariantDefault, VariantMirror:
	default:
		return fmt.Errorf("unknown instagram variant: %q", c.Platforms.InstagramVariant)
	}
	if c.Platforms.InstagramVariant == VariantMirror && c.Mirror.APIKey == "" {
		return fmt.Errorf("instagram mirror variant is active but no mirror api_key is configured")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BlockedBackoffBase < 0 || c.Retry.GenericBackoffBase < 0 {
		return fmt.Errorf("backoff bases must not be negative")
	}
	if c.Proxy.MaxProbes < 1 {
		return fmt.Errorf("proxy max_probes must be at least 1, got %d", c.Proxy.MaxProbes)
	}
	if _, err := parseLevels(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// EnabledPlatforms returns the normalized platform priority order
func (c *Config) EnabledPlatforms() []string {
	out := make([]string, 0, len(c.Platforms.Order))
	for _, name := range c.Platforms.Order {
		out = append(out, strings.ToLower(strings.TrimSpace(name)))
	}
	return out
}

func parseLevels(level string) (string, error) {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(level), nil
	default:
		return "", fmt.Errorf("invalid log level: %q", level)
	}
}
