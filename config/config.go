// Package config provides configuration loading and management for pgrooms.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// EnvBaseURL overrides api.base_url when set.
const EnvBaseURL = "PGROOMS_API_BASE_URL"

// Config represents the complete pgrooms client configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Retry      RetryConfig      `yaml:"retry"`
	Credential CredentialConfig `yaml:"credential"`
	Notify     NotifyConfig     `yaml:"notify"`
	NATS       NATSConfig       `yaml:"nats"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// APIConfig configures the backend connection
type APIConfig struct {
	// BaseURL is the API host, e.g. https://api.pgrooms.in
	BaseURL string `yaml:"base_url"`
	// Timeout bounds a single attempt
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig configures connectivity retries
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// Credential backends.
const (
	BackendFile   = "file"
	BackendNATSKV = "nats-kv"
)

// CredentialConfig configures where the encrypted token is kept
type CredentialConfig struct {
	// Backend is "file" or "nats-kv"
	Backend string `yaml:"backend"`
	// Path is the token file (default: ~/.config/pgrooms/credential)
	Path string `yaml:"path"`
	// PassphraseEnv names the environment variable holding the encryption passphrase
	PassphraseEnv string `yaml:"passphrase_env"`
	// Bucket and Session locate the token in NATS KV
	Bucket  string `yaml:"bucket"`
	Session string `yaml:"session"`
}

// NotifyConfig configures failure notifications
type NotifyConfig struct {
	// SuppressEndpoints are doublestar globs matched against the request path (empty = built-in list)
	SuppressEndpoints []string `yaml:"suppress_endpoints"`
	// SuppressMessages are case-insensitive substrings (empty = built-in list)
	SuppressMessages []string `yaml:"suppress_messages"`
	// NATSSubject is where notifications are published when nats.url is set
	NATSSubject string `yaml:"nats_subject"`
}

// NATSConfig configures the optional NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = no NATS)
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:  2,
			BackoffBase: time.Second,
		},
		Credential: CredentialConfig{
			Backend:       BackendFile,
			PassphraseEnv: "PGROOMS_PASSPHRASE",
			Bucket:        "PGROOMS_SESSIONS",
			Session:       "default",
		},
		Notify: NotifyConfig{
			NATSSubject: "pgrooms.notifications",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http or https URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		return fmt.Errorf("retry.max_retries must be between 0 and 10")
	}
	if c.Retry.BackoffBase <= 0 {
		return fmt.Errorf("retry.backoff_base must be positive")
	}
	if c.Credential.PassphraseEnv == "" {
		return fmt.Errorf("credential.passphrase_env is required")
	}
	switch c.Credential.Backend {
	case BackendFile:
	case BackendNATSKV:
		if c.NATS.URL == "" {
			return fmt.Errorf("credential.backend %s requires nats.url", BackendNATSKV)
		}
		if c.Credential.Bucket == "" || c.Credential.Session == "" {
			return fmt.Errorf("credential.bucket and credential.session are required for %s", BackendNATSKV)
		}
	default:
		return fmt.Errorf("credential.backend must be %q or %q", BackendFile, BackendNATSKV)
	}
	for _, p := range c.Notify.SuppressEndpoints {
		if !doublestar.ValidatePattern(strings.TrimLeft(p, "/")) {
			return fmt.Errorf("notify.suppress_endpoints: invalid pattern %q", p)
		}
	}
	if c.NATS.URL != "" && c.Notify.NATSSubject == "" {
		return fmt.Errorf("notify.nats_subject is required when nats.url is set")
	}
	return nil
}

// ApplyEnv applies environment overrides using getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		c.API.BaseURL = v
	}
}

// Passphrase returns the credential passphrase from the configured
// environment variable.
func (c *Config) Passphrase() string {
	return os.Getenv(c.Credential.PassphraseEnv)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// loadLayer parses a file into a zero Config; unset keys stay zero for Merge.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	layer := &Config{}
	if err := yaml.Unmarshal(data, layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return layer, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
// A zero max_retries cannot be expressed through Merge; set it on the final config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// API
	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}

	// Retry
	if other.Retry.MaxRetries != 0 {
		c.Retry.MaxRetries = other.Retry.MaxRetries
	}
	if other.Retry.BackoffBase != 0 {
		c.Retry.BackoffBase = other.Retry.BackoffBase
	}

	// Credential
	if other.Credential.Backend != "" {
		c.Credential.Backend = other.Credential.Backend
	}
	if other.Credential.Bucket != "" {
		c.Credential.Bucket = other.Credential.Bucket
	}
	if other.Credential.Session != "" {
		c.Credential.Session = other.Credential.Session
	}
	if other.Credential.Path != "" {
		c.Credential.Path = other.Credential.Path
	}
	if other.Credential.PassphraseEnv != "" {
		c.Credential.PassphraseEnv = other.Credential.PassphraseEnv
	}

	// Notify
	if len(other.Notify.SuppressEndpoints) > 0 {
		c.Notify.SuppressEndpoints = other.Notify.SuppressEndpoints
	}
	if len(other.Notify.SuppressMessages) > 0 {
		c.Notify.SuppressMessages = other.Notify.SuppressMessages
	}
	if other.Notify.NATSSubject != "" {
		c.Notify.NATSSubject = other.Notify.NATSSubject
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
