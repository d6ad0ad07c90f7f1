// Package config provides YAML-based configuration loading for dialwatch.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvUpstreamURL = "DIALWATCH_UPSTREAM_URL"
	EnvToken       = "DIALWATCH_TOKEN"
	EnvPushURL     = "DIALWATCH_PUSH_URL"
	EnvDBPath      = "DIALWATCH_DB_PATH"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "dialwatch.yaml"

// maxSeats bounds seats.total; seat numbers above it are treated as noise.
const maxSeats = 200

// Config is the top-level dialwatch configuration, loaded from dialwatch.yaml.
type Config struct {
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Push      PushConfig      `yaml:"push"`
	Sync      SyncConfig      `yaml:"sync"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Seats     SeatsConfig     `yaml:"seats"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// UpstreamConfig points at the call-record API.
type UpstreamConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	DurationURL    string `yaml:"duration_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageLimit      int    `yaml:"page_limit"`
}

// Timeout returns the request timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// PushConfig points at the websocket push channel. An empty URL disables it.
type PushConfig struct {
	URL string `yaml:"url"`
}

// SyncConfig controls resynchronization and derived-state upkeep.
type SyncConfig struct {
	Schedule            string `yaml:"schedule"`
	DurationPollSeconds int    `yaml:"duration_poll_seconds"`
	RetentionMinutes    int    `yaml:"retention_minutes"`
	Archive             *bool  `yaml:"archive"`
}

// DurationPoll returns the live-duration poll interval.
func (s SyncConfig) DurationPoll() time.Duration {
	return time.Duration(s.DurationPollSeconds) * time.Second
}

// Retention returns how long ended records are kept.
func (s SyncConfig) Retention() time.Duration {
	return time.Duration(s.RetentionMinutes) * time.Minute
}

// ArchiveEnabled reports whether observed pages are persisted.
func (s SyncConfig) ArchiveEnabled() bool {
	return s.Archive == nil || *s.Archive
}

// DatabaseConfig selects the archive store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DashboardConfig holds dashboard server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// SeatsConfig sizes the seat grid. Names[i] is the default name of seat i+1.
type SeatsConfig struct {
	Total int      `yaml:"total"`
	Names []string `yaml:"names"`
}

// NotifyConfig holds alert webhook settings.
type NotifyConfig struct {
	SlackWebhook       string `yaml:"slack_webhook"`
	DiscordWebhook     string `yaml:"discord_webhook"`
	DedupWindowSeconds int    `yaml:"dedup_window_seconds"`
}

// DedupWindow returns the duplicate-suppression window.
func (n NotifyConfig) DedupWindow() time.Duration {
	return time.Duration(n.DedupWindowSeconds) * time.Second
}

// scheduleParser accepts 5-field cron expressions with an optional leading
// seconds field, and descriptors such as "@every 30s".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a resync schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return scheduleParser.Parse(expr)
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment overrides
// are applied before defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvUpstreamURL); ok && v != "" {
		c.Upstream.URL = v
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Upstream.Token = v
	}
	if v, ok := lookup(EnvPushURL); ok && v != "" {
		c.Push.URL = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Database.Path = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.PageLimit == 0 {
		c.Upstream.PageLimit = 20
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "@every 30s"
	}
	if c.Sync.DurationPollSeconds == 0 {
		c.Sync.DurationPollSeconds = 5
	}
	if c.Sync.RetentionMinutes == 0 {
		c.Sync.RetentionMinutes = 60
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			c.Database.Path = "dialwatch.db"
		}
	case "mysql":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "dialwatch"
		}
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Seats.Total == 0 {
		c.Seats.Total = 20
	}
	if c.Notify.DedupWindowSeconds == 0 {
		c.Notify.DedupWindowSeconds = 1
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Upstream.URL == "" {
		errs = append(errs, "upstream.url is required")
	} else if !hasScheme(c.Upstream.URL, "http", "https") {
		errs = append(errs, fmt.Sprintf("upstream.url %q must be an http(s) URL", c.Upstream.URL))
	}
	if c.Upstream.DurationURL != "" && !hasScheme(c.Upstream.DurationURL, "http", "https") {
		errs = append(errs, fmt.Sprintf("upstream.duration_url %q must be an http(s) URL", c.Upstream.DurationURL))
	}
	if c.Upstream.TimeoutSeconds < 0 {
		errs = append(errs, "upstream.timeout_seconds must be positive")
	}
	if c.Upstream.PageLimit < 0 {
		errs = append(errs, "upstream.page_limit must be positive")
	}
	if c.Push.URL != "" && !hasScheme(c.Push.URL, "ws", "wss") {
		errs = append(errs, fmt.Sprintf("push.url %q must be a ws(s) URL", c.Push.URL))
	}
	if _, err := ParseSchedule(c.Sync.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("sync.schedule %q: %v", c.Sync.Schedule, err))
	}
	if c.Sync.DurationPollSeconds < 0 {
		errs = append(errs, "sync.duration_poll_seconds must be positive")
	}
	if c.Sync.RetentionMinutes < 0 {
		errs = append(errs, "sync.retention_minutes must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d out of range", c.Dashboard.Port))
	}
	if c.Seats.Total < 1 || c.Seats.Total > maxSeats {
		errs = append(errs, fmt.Sprintf("seats.total must be between 1 and %d", maxSeats))
	}
	if c.Notify.DedupWindowSeconds < 0 {
		errs = append(errs, "notify.dedup_window_seconds must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return true
		}
	}
	return false
}
