// Package config handles application configuration from environment variables,
// an optional .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/randytsao24/gigsahead/internal/models"
)

const (
	DefaultPTVBaseURL  = "https://timetableapi.ptv.vic.gov.au"
	DefaultGigsBaseURL = "https://api.lml.live"

	// AllRoutes in PROBLEM_ROUTES enables direction retry for every route
	AllRoutes = "*"
)

// PTVConfig holds transit API access settings
type PTVConfig struct {
	DevID    string `yaml:"dev_id"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url" validate:"required,url"`
	RelayURL string `yaml:"relay_url" validate:"omitempty,url"`
}

// GigsConfig holds live music API settings
type GigsConfig struct {
	BaseURL  string `yaml:"base_url" validate:"required,url"`
	Location string `yaml:"location" validate:"required"`
}

// AlertsConfig holds GTFS-Realtime service alert feeds keyed by mode name
type AlertsConfig struct {
	APIKey   string            `yaml:"api_key"`
	FeedURLs map[string]string `yaml:"feed_urls" validate:"dive,url"`
}

// Config holds all application configuration.
type Config struct {
	Port     string `yaml:"port" validate:"required,numeric"`
	Env      string `yaml:"env" validate:"oneof=development production test"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	PTV    PTVConfig    `yaml:"ptv"`
	Gigs   GigsConfig   `yaml:"gigs"`
	Alerts AlertsConfig `yaml:"alerts"`

	HTTPTimeoutSeconds   int    `yaml:"http_timeout_seconds" validate:"gt=0"`
	CacheTTLSeconds      int    `yaml:"cache_ttl_seconds" validate:"gte=0"`
	DiskCachePath        string `yaml:"disk_cache_path"`
	DiskCacheMaxAgeHours int    `yaml:"disk_cache_max_age_hours" validate:"gte=0"`
	Timezone             string `yaml:"timezone" validate:"required"`
	EstimateConcurrency  int    `yaml:"estimate_concurrency" validate:"gt=0"`
	ProblemRoutes        string `yaml:"problem_routes"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Port:     "3000",
		Env:      "development",
		LogLevel: "info",
		PTV:      PTVConfig{BaseURL: DefaultPTVBaseURL},
		Gigs: GigsConfig{
			BaseURL:  DefaultGigsBaseURL,
			Location: "melbourne",
		},
		Alerts:               AlertsConfig{FeedURLs: map[string]string{}},
		HTTPTimeoutSeconds:   10,
		CacheTTLSeconds:      120,
		DiskCachePath:        "gigsahead-cache.db",
		DiskCacheMaxAgeHours: 24,
		Timezone:             "Australia/Melbourne",
		EstimateConcurrency:  8,
		ProblemRoutes:        AllRoutes,
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then environment
// variables, each layer overriding the previous one.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if c.Alerts.FeedURLs == nil {
		c.Alerts.FeedURLs = map[string]string{}
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.PTV.DevID = getEnv("PTV_DEV_ID", c.PTV.DevID)
	c.PTV.APIKey = getEnv("PTV_API_KEY", c.PTV.APIKey)
	c.PTV.BaseURL = strings.TrimRight(getEnv("PTV_BASE_URL", c.PTV.BaseURL), "/")
	c.PTV.RelayURL = strings.TrimRight(getEnv("PTV_RELAY_URL", c.PTV.RelayURL), "/")

	c.Gigs.BaseURL = strings.TrimRight(getEnv("GIGS_BASE_URL", c.Gigs.BaseURL), "/")
	c.Gigs.Location = getEnv("GIGS_LOCATION", c.Gigs.Location)

	c.Alerts.APIKey = getEnv("GTFSR_API_KEY", c.Alerts.APIKey)
	for _, rt := range models.KnownRouteTypes {
		key := "GTFSR_ALERTS_URL_" + strings.ToUpper(rt.String())
		if v := os.Getenv(key); v != "" {
			c.Alerts.FeedURLs[rt.String()] = v
		}
	}

	c.HTTPTimeoutSeconds = getIntEnv("HTTP_TIMEOUT_SECONDS", c.HTTPTimeoutSeconds)
	c.CacheTTLSeconds = getIntEnv("CACHE_TTL_SECONDS", c.CacheTTLSeconds)
	c.DiskCachePath = getEnv("DISK_CACHE_PATH", c.DiskCachePath)
	c.DiskCacheMaxAgeHours = getIntEnv("DISK_CACHE_MAX_AGE_HOURS", c.DiskCacheMaxAgeHours)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.EstimateConcurrency = getIntEnv("ESTIMATE_CONCURRENCY", c.EstimateConcurrency)
	c.ProblemRoutes = getEnv("PROBLEM_ROUTES", c.ProblemRoutes)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UseRelay reports whether transit calls go through the relay
func (c *Config) UseRelay() bool {
	return c.PTV.RelayURL != ""
}

// Validate checks field constraints and that some way of reaching the
// transit API is configured.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.UseRelay() {
		return nil
	}
	if c.PTV.DevID == "" || c.PTV.APIKey == "" {
		return fmt.Errorf("%w: set PTV_DEV_ID and PTV_API_KEY, or PTV_RELAY_URL", models.ErrConfigurationMissing)
	}
	return nil
}

// HTTPTimeout is the per-request upstream timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CacheTTL is how long upstream responses stay in memory
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DiskCacheMaxAge is how long stored responses remain valid
func (c *Config) DiskCacheMaxAge() time.Duration {
	return time.Duration(c.DiskCacheMaxAgeHours) * time.Hour
}

// Location loads the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AlertFeedURL returns the alerts feed for a mode, if configured
func (c *Config) AlertFeedURL(rt models.RouteType) (string, bool) {
	u, ok := c.Alerts.FeedURLs[rt.String()]
	return u, ok && u != ""
}

// ProblemRouteSet parses PROBLEM_ROUTES. A nil set with all=true means every
// route is retried across directions.
func (c *Config) ProblemRouteSet() (routes map[int]bool, all bool, err error) {
	raw := strings.TrimSpace(c.ProblemRoutes)
	if raw == AllRoutes {
		return nil, true, nil
	}
	routes = make(map[int]bool)
	if raw == "" {
		return routes, false, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == AllRoutes {
			return nil, true, nil
		}
		id, convErr := strconv.Atoi(part)
		if convErr != nil {
			return nil, false, errors.Join(
				&models.InvalidInputError{Field: "PROBLEM_ROUTES", Value: part}, convErr)
		}
		routes[id] = true
	}
	return routes, false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
