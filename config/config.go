// Package config loads the tracker configuration file.
//
// Both the traditional JSON document and YAML are accepted; the format is
// chosen from the file extension. Example (YAML):
//
//	api_key: ${RIOT_API_KEY}
//	endpoint: https://americas.api.riotgames.com/valorant/v1/matches
//	poll_interval: 5s
//	timeout: 5s
//	log_file: logs/tracker_debug.log
//	journal: logs/diagnostics.db
//
//	dashboard:
//	  port: 8080
//	  title: Valorant Tracker
//
//	redis:
//	  addr: localhost:6379
//	  channel: matchwatch:status
//
// The equivalent JSON uses the same keys, with durations as strings:
//
//	{"api_key": "RGAPI-...", "poll_interval": "5s"}
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/diagnostics"
)

const (
	// DefaultPath is where the tracker looks for its configuration.
	DefaultPath = "config/tracker_config.json"

	// DefaultPollInterval is the wait between checks.
	DefaultPollInterval = 5 * time.Second

	// DefaultTimeout bounds each check.
	DefaultTimeout = 5 * time.Second

	// minPollInterval prevents accidental hammering of the remote API.
	minPollInterval = 1 * time.Second
	maxPollInterval = time.Hour

	minTimeout = 100 * time.Millisecond
	maxTimeout = time.Minute
)

// Format identifies the encoding of a configuration document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor returns [FormatJSON] for .json files and [FormatYAML] otherwise.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Config is the root configuration structure.
//
// Use [Load] or [Parse] to create a Config, or [Default] for the values used
// when no file exists.
type Config struct {
	// APIKey is the raw access token. Supports ${VAR} and ${VAR:-default}.
	// It is expanded and validated by [Config.Credential], not by Parse, so a
	// bad key never prevents the tracker from starting.
	APIKey string `yaml:"api_key" json:"api_key"`

	// Endpoint is the match status URL. Defaults to matchwatch.DefaultEndpoint.
	// Supports environment variable substitution.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// PollInterval is the wait between checks. Between 1s and 1h; defaults to 5s.
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// Timeout bounds each check. Between 100ms and 1m; defaults to 5s.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// LogFile receives timestamped diagnostics. Defaults to logs/tracker_debug.log.
	LogFile string `yaml:"log_file" json:"log_file"`

	// Journal is an optional SQLite file recording every diagnostic.
	Journal string `yaml:"journal" json:"journal"`

	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
}

// DashboardConfig configures the embedded web dashboard.
type DashboardConfig struct {
	// Port is the HTTP port. 0 disables the dashboard.
	Port int `yaml:"port" json:"port"`

	// Title is shown in the page header. Defaults to matchwatch.DefaultTitle.
	Title string `yaml:"title" json:"title"`
}

// RedisConfig configures the optional status relay.
type RedisConfig struct {
	// Addr is host:port of the Redis server. Empty disables the relay.
	// Supports environment variable substitution.
	Addr string `yaml:"addr" json:"addr"`

	// Channel is the pub/sub channel. Defaults to matchwatch.DefaultRelayChannel.
	Channel string `yaml:"channel" json:"channel"`
}

// Duration wraps time.Duration for YAML and JSON unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

// UnmarshalJSON implements json.Unmarshaler for Duration.
// Accepts a duration string ("5s") or a number of seconds (5).
func (d *Duration) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds: %w", err)
	}
	return d.set(s)
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

func (d *Duration) set(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file.
//
// The format is chosen by [FormatFor]. Returns an error wrapping
// [os.ErrNotExist] if the file is missing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, FormatFor(path))
}

// Parse parses configuration data, applies defaults and validates it.
func Parse(data []byte, format Format) (*Config, error) {
	cfg, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = matchwatch.DefaultEndpoint
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.LogFile == "" {
		c.LogFile = diagnostics.DefaultLogFile
	}
	if c.Dashboard.Title == "" {
		c.Dashboard.Title = matchwatch.DefaultTitle
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = matchwatch.DefaultRelayChannel
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded

	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("endpoint must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.PollInterval.Duration() > maxPollInterval {
		return fmt.Errorf("poll_interval must not exceed %s, got %s", maxPollInterval, c.PollInterval.Duration())
	}

	if c.Timeout.Duration() < minTimeout {
		return fmt.Errorf("timeout must be at least %s, got %s", minTimeout, c.Timeout.Duration())
	}
	if c.Timeout.Duration() > maxTimeout {
		return fmt.Errorf("timeout must not exceed %s, got %s", maxTimeout, c.Timeout.Duration())
	}

	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be between 0 and 65535, got %d", c.Dashboard.Port)
	}

	addr, err := expandEnvVars(c.Redis.Addr)
	if err != nil {
		return fmt.Errorf("redis.addr: %w", err)
	}
	c.Redis.Addr = addr

	return nil
}

// Credential expands and validates the configured API key.
//
// Returns the Absent token and an error wrapping
// [matchwatch.ErrCredentialMissing] or [matchwatch.ErrCredentialMalformed]
// when the key cannot be used.
func (c *Config) Credential() (matchwatch.AccessToken, error) {
	raw, err := expandEnvVars(c.APIKey)
	if err != nil {
		return matchwatch.AccessToken{}, fmt.Errorf("api_key: %w: %w", matchwatch.ErrCredentialMissing, err)
	}
	tok, err := matchwatch.ParseAccessToken(raw)
	if err != nil {
		return matchwatch.AccessToken{}, fmt.Errorf("api_key: %w", err)
	}
	return tok, nil
}
