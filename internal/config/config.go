// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DescopeConfig holds identity-provider API configuration.
type DescopeConfig struct {
	BaseURL       string // API base URL (default https://api.descope.com)
	ProjectID     string
	ManagementKey string
}

// Configured reports whether the identity provider credentials are present.
func (d *DescopeConfig) Configured() bool {
	return d.ProjectID != "" && d.ManagementKey != ""
}

// LinkedInConfig holds the social-platform API configuration.
type LinkedInConfig struct {
	BaseURL        string // API base URL (default https://api.linkedin.com)
	AccessToken    string
	OrganizationID string // organization URN
	Version        string // LinkedIn-Version header (default "202502")
}

// Configured reports whether the social platform credentials are present.
func (l *LinkedInConfig) Configured() bool {
	return l.AccessToken != "" && l.OrganizationID != ""
}

// YouTubeConfig holds the video-platform API configuration.
type YouTubeConfig struct {
	APIKey    string
	ChannelID string
}

// Configured reports whether the video platform credentials are present.
func (y *YouTubeConfig) Configured() bool {
	return y.APIKey != "" && y.ChannelID != ""
}

// StageConfig holds per-stage tuning, overridable from the YAML file.
type StageConfig struct {
	Enabled  bool `yaml:"enabled"`
	PageSize int  `yaml:"page_size"`
	MaxPages int  `yaml:"max_pages"`
}

// Config holds the full sync-engine configuration.
type Config struct {
	WarehousePath string // DuckDB database file ("" = in-memory)
	RunlogPath    string // SQLite run-history file

	Descope  DescopeConfig
	LinkedIn LinkedInConfig
	YouTube  YouTubeConfig

	Users       StageConfig
	Locations   StageConfig
	GeoIP       StageConfig
	Attribution StageConfig
	Activity    StageConfig
	Posts       StageConfig
	Videos      StageConfig

	AuditWindow  time.Duration // lookback for login audit events (default 7 days)
	MaxRetries   int           // retry budget per page request (default 3)
	HTTPTimeout  time.Duration // per-request timeout (default 30s)
	RequestRate  float64       // paced requests per second per provider (default 2)
	GeoWorkers   int           // geolocation worker pool size (default 10)
	GeoFlushSize int           // geolocation results per merge flush (default 100)
	GeoMaxIPs    int           // IPs enriched per run (default 100)

	ListenAddr   string // HTTP listen address for serve mode (default ":8080")
	TriggerToken string // shared token required on the sync trigger endpoint
	ScheduleCron string // cron expression for scheduled runs ("" = disabled)

	LogLevel string // log level: debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables.
// Provider credentials are optional — stages without credentials are skipped.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		WarehousePath: os.Getenv("WAREHOUSE_PATH"),
		RunlogPath:    os.Getenv("RUNLOG_PATH"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		TriggerToken:  os.Getenv("TRIGGER_TOKEN"),
		ScheduleCron:  os.Getenv("SCHEDULE_CRON"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Descope: DescopeConfig{
			BaseURL:       os.Getenv("DESCOPE_BASE_URL"),
			ProjectID:     os.Getenv("DESCOPE_PROJECT_ID"),
			ManagementKey: os.Getenv("DESCOPE_MANAGEMENT_KEY"),
		},
		LinkedIn: LinkedInConfig{
			BaseURL:        os.Getenv("LINKEDIN_BASE_URL"),
			AccessToken:    os.Getenv("LINKEDIN_ACCESS_TOKEN"),
			OrganizationID: os.Getenv("LINKEDIN_ORGANIZATION_ID"),
			Version:        os.Getenv("LINKEDIN_API_VERSION"),
		},
		YouTube: YouTubeConfig{
			APIKey:    os.Getenv("YOUTUBE_API_KEY"),
			ChannelID: os.Getenv("YOUTUBE_CHANNEL_ID"),
		},
		Users:       StageConfig{Enabled: true, PageSize: 5000, MaxPages: 0},
		Locations:   StageConfig{Enabled: true, PageSize: 1000, MaxPages: 50},
		GeoIP:       StageConfig{Enabled: true},
		Attribution: StageConfig{Enabled: true},
		Activity:    StageConfig{Enabled: true},
		Posts:       StageConfig{Enabled: true, PageSize: 50, MaxPages: 0},
		Videos:      StageConfig{Enabled: true, PageSize: 50, MaxPages: 0},
	}

	cfg.Users.Enabled = parseBoolEnvDefault("STAGE_USERS_ENABLED", true)
	cfg.Locations.Enabled = parseBoolEnvDefault("STAGE_LOCATIONS_ENABLED", true)
	cfg.GeoIP.Enabled = parseBoolEnvDefault("STAGE_GEOIP_ENABLED", true)
	cfg.Attribution.Enabled = parseBoolEnvDefault("STAGE_ATTRIBUTION_ENABLED", true)
	cfg.Activity.Enabled = parseBoolEnvDefault("STAGE_ACTIVITY_ENABLED", true)
	cfg.Posts.Enabled = parseBoolEnvDefault("STAGE_POSTS_ENABLED", true)
	cfg.Videos.Enabled = parseBoolEnvDefault("STAGE_VIDEOS_ENABLED", true)

	if v := os.Getenv("AUDIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AuditWindow = d
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("REQUEST_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RequestRate = f
		}
	}
	if v := os.Getenv("GEO_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GeoWorkers = n
		}
	}
	if v := os.Getenv("GEO_FLUSH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GeoFlushSize = n
		}
	}
	if v := os.Getenv("GEO_MAX_IPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GeoMaxIPs = n
		}
	}

	cfg.applyDefaults()

	if !cfg.Descope.Configured() {
		cfg.Warnings = append(cfg.Warnings,
			"Descope credentials not set — identity sync will be skipped (set DESCOPE_PROJECT_ID and DESCOPE_MANAGEMENT_KEY)")
	}
	if cfg.TriggerToken == "" {
		cfg.Warnings = append(cfg.Warnings,
			"TRIGGER_TOKEN not set — the HTTP sync trigger accepts unauthenticated requests")
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WarehousePath == "" {
		c.WarehousePath = "warehouse.duckdb"
	}
	if c.RunlogPath == "" {
		c.RunlogPath = "runlog.sqlite"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Descope.BaseURL == "" {
		c.Descope.BaseURL = "https://api.descope.com"
	}
	if c.LinkedIn.BaseURL == "" {
		c.LinkedIn.BaseURL = "https://api.linkedin.com"
	}
	if c.LinkedIn.Version == "" {
		c.LinkedIn.Version = "202502"
	}
	if c.AuditWindow == 0 {
		c.AuditWindow = 7 * 24 * time.Hour
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RequestRate == 0 {
		c.RequestRate = 2
	}
	if c.GeoWorkers == 0 {
		c.GeoWorkers = 10
	}
	if c.GeoFlushSize == 0 {
		c.GeoFlushSize = 100
	}
	if c.GeoMaxIPs == 0 {
		c.GeoMaxIPs = 100
	}
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
