package authview

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// BridgeConfig holds host bridge timings, in milliseconds.
type BridgeConfig struct {
	AcquireTimeoutMS    int `yaml:"acquire_timeout_ms" env:"AUTHVIEW_BRIDGE_ACQUIRE_TIMEOUT_MS"`
	BackTimeoutMS       int `yaml:"back_timeout_ms" env:"AUTHVIEW_BRIDGE_BACK_TIMEOUT_MS"`
	CallTimeoutMS       int `yaml:"call_timeout_ms" env:"AUTHVIEW_BRIDGE_CALL_TIMEOUT_MS"`
	SignupDedupWindowMS int `yaml:"signup_dedup_window_ms" env:"AUTHVIEW_BRIDGE_SIGNUP_DEDUP_WINDOW_MS"`
}

// DevAPIConfig holds settings for the local development identity API.
type DevAPIConfig struct {
	Addr            string `yaml:"addr" env:"AUTHVIEW_DEV_API_ADDR"`
	SigningKey      string `yaml:"signing_key" env:"AUTHVIEW_DEV_API_SIGNING_KEY"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// HealthConfig controls background probing of the identity API.
type HealthConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds" env:"AUTHVIEW_HEALTH_INTERVAL_SECONDS"` // 0 disables probing
	MaxFailures       int `yaml:"max_failures"`
	BackoffMultiplier int `yaml:"backoff_multiplier"`
}

// Config holds all authview configuration.
type Config struct {
	APIURL                string       `yaml:"api_url" env:"AUTHVIEW_API_URL"`
	HostSocket            string       `yaml:"host_socket" env:"AUTHVIEW_HOST_SOCKET"`
	StartRoute            string       `yaml:"start_route" env:"AUTHVIEW_START_ROUTE"`
	RequestTimeoutSeconds int          `yaml:"request_timeout_seconds" env:"AUTHVIEW_REQUEST_TIMEOUT_SECONDS"`
	LogLevel              string       `yaml:"log_level" env:"AUTHVIEW_LOG_LEVEL"`
	Bridge                BridgeConfig `yaml:"bridge"`
	Health                HealthConfig `yaml:"health"`
	DevAPI                DevAPIConfig `yaml:"dev_api"`
}

// DefaultConfig returns a Config with sensible defaults. The API URL is left
// empty: screens report it as a configuration error until it is set.
func DefaultConfig() *Config {
	return &Config{
		StartRoute:            RouteSignupEmail,
		RequestTimeoutSeconds: 0,
		LogLevel:              "info",
		Bridge: BridgeConfig{
			AcquireTimeoutMS:    5000,
			BackTimeoutMS:       2000,
			CallTimeoutMS:       3000,
			SignupDedupWindowMS: 1000,
		},
		Health: HealthConfig{
			IntervalSeconds:   30,
			MaxFailures:       3,
			BackoffMultiplier: 2,
		},
		DevAPI: DevAPIConfig{
			Addr:            "127.0.0.1:5001",
			SigningKey:      "authview-dev-signing-key",
			TokenTTLMinutes: 60,
		},
	}
}

// AcquireTimeout returns the host acquisition timeout.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Bridge.AcquireTimeoutMS) * time.Millisecond
}

// BackTimeout returns the back-navigation acquisition timeout.
func (c *Config) BackTimeout() time.Duration {
	return time.Duration(c.Bridge.BackTimeoutMS) * time.Millisecond
}

// CallTimeout returns how long a socket host has to answer a call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Bridge.CallTimeoutMS) * time.Millisecond
}

// DedupWindow returns the signup de-duplication window.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Bridge.SignupDedupWindowMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout. Zero means none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ConfigDir returns ~/.authview.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".authview")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadConfig reads config from file, falling back to defaults, then applies
// AUTHVIEW_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Environment variable overrides
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	return cfg, nil
}

// SaveConfig writes config to the given path.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ConfigFileExists reports whether the config file exists at the given path.
func ConfigFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CheckServerReachable tests if the identity API is reachable with a
// short-timeout HEAD request. Any HTTP response counts as reachable.
func CheckServerReachable(apiURL string) error {
	if apiURL == "" {
		return ErrAPIURLMissing
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Head(strings.TrimRight(apiURL, "/") + "/api/v1/auth/login")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", &TransportError{Err: err})
	}
	resp.Body.Close()
	return nil
}
