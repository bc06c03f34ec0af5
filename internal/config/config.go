package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Deployment-style settings can additionally be overridden
// from the environment (see ApplyEnv), matching how the hosted version of
// this service was configured.

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// PageID identifies the feed source (the page whose events are fetched).
	PageID string `yaml:"page_id" json:"page_id"`

	// TokenParameter is the secret-store parameter name holding the feed
	// access token.
	TokenParameter string `yaml:"token_parameter" json:"token_parameter"`

	// SecretProvider selects where TokenParameter is resolved:
	//   - "ssm" (default): AWS SSM Parameter Store with decryption
	//   - "env": read the token from the environment variable named by
	//     TokenParameter (local development, tests)
	SecretProvider string `yaml:"secret_provider" json:"secret_provider"`

	// Timezone is the IANA zone used as the civil display zone for all
	// rendered dates and times (e.g. "Europe/London").
	Timezone string `yaml:"display_timezone" json:"display_timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FeedBaseURL is the base URL of the events feed API.
	FeedBaseURL string `yaml:"feed_base_url" json:"feed_base_url"`

	// GeocodeBaseURL is the base URL of the reverse-geocoding API.
	GeocodeBaseURL string `yaml:"geocode_base_url" json:"geocode_base_url"`

	// EventURLBase is the base for the canonical event URL fallback used
	// when the feed omits event_url (`<base>/events/<id>/`).
	EventURLBase string `yaml:"event_url_base" json:"event_url_base"`

	// PostcodeLookup toggles coordinate→postcode enrichment. Nil means
	// enabled; it only exists as a pointer so an explicit "false" in the
	// YAML survives Normalize.
	PostcodeLookup *bool `yaml:"postcode_lookup,omitempty" json:"postcode_lookup,omitempty"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		SecretProvider: "ssm",
		Timezone:       "Europe/London",
		RefreshCron:    "*/15 * * * *",
		FeedBaseURL:    "https://graph.facebook.com/v18.0",
		GeocodeBaseURL: "https://api.postcodes.io",
		EventURLBase:   "https://www.facebook.com",
		LogLevel:       "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.SecretProvider {
	case "ssm", "env":
		// ok
	default:
		c.SecretProvider = "ssm"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/London"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.FeedBaseURL == "" {
		c.FeedBaseURL = "https://graph.facebook.com/v18.0"
	}
	if c.GeocodeBaseURL == "" {
		c.GeocodeBaseURL = "https://api.postcodes.io"
	}
	if c.EventURLBase == "" {
		c.EventURLBase = "https://www.facebook.com"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// PostcodeLookupEnabled reports whether coordinate→postcode enrichment is
// on. Enrichment defaults to enabled; only an explicit false disables it.
func (c *Config) PostcodeLookupEnabled() bool {
	return c.PostcodeLookup == nil || *c.PostcodeLookup
}

// ApplyEnv overlays environment variables onto the configuration. The
// variable names match the hosted deployment's surface.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FACEBOOK_PAGE_ID"); v != "" {
		c.PageID = v
	}
	if v := os.Getenv("FACEBOOK_ACCESS_TOKEN_PARAMETER"); v != "" {
		c.TokenParameter = v
	}
	if v := os.Getenv("ENABLE_POSTCODE_LOOKUP"); v != "" {
		enabled := v != "false"
		c.PostcodeLookup = &enabled
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".gigfeed-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
