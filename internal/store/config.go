package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultAPIBaseURL     = "http://127.0.0.1:5000/api"
	DefaultLogLevel       = "warn"
	DefaultSearchDebounce = 300 * time.Millisecond
)

// Config is the user's client configuration (~/.surflog/config.json).
//
// It never holds the bearer token; see CredentialStore.
type Config struct {
	APIBaseURL       string `json:"apiBaseUrl,omitempty"`
	LogLevel         string `json:"logLevel,omitempty"`
	SearchDebounceMs int    `json:"searchDebounceMs,omitempty"`

	// TUI holds optional preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// MarkdownStyle is a glamour standard style name ("dark", "light", "notty").
	MarkdownStyle string `json:"markdownStyle,omitempty"`
	// DefaultView is the location the TUI opens on (e.g. "/journal?tab=stats").
	DefaultView string `json:"defaultView,omitempty"`
}

// envOverlay lists the settings that can be overridden from the environment.
type envOverlay struct {
	APIBaseURL     string        `env:"SURFLOG_API_URL"`
	LogLevel       string        `env:"SURFLOG_LOG_LEVEL"`
	SearchDebounce time.Duration `env:"SURFLOG_SEARCH_DEBOUNCE"`
}

// SearchDebounce returns the configured debounce window, or the default.
func (c *Config) SearchDebounce() time.Duration {
	if c == nil || c.SearchDebounceMs <= 0 {
		return DefaultSearchDebounce
	}
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// ApplyEnv overlays SURFLOG_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var ov envOverlay
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(ov.APIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(ov.LogLevel); v != "" {
		c.LogLevel = v
	}
	if ov.SearchDebounce > 0 {
		c.SearchDebounceMs = int(ov.SearchDebounce / time.Millisecond)
	}
	return nil
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.surflog).
	if v := strings.TrimSpace(os.Getenv("SURFLOG_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".surflog"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads config.json (missing file => defaults) and applies env overrides.
func LoadConfig() (*Config, error) {
	cfg, err := loadConfigFile()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadConfigFile() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// SaveConfig writes the file-backed settings only; env overrides are never persisted.
func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// SetConfigValue updates one file-backed setting by its JSON key.
func SetConfigValue(key, value string) (*Config, error) {
	cfg, err := loadConfigFile()
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "apiBaseUrl":
		cfg.APIBaseURL = value
	case "logLevel":
		cfg.LogLevel = value
	case "searchDebounceMs":
		d, err := time.ParseDuration(value + "ms")
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid searchDebounceMs: %q", value)
		}
		cfg.SearchDebounceMs = int(d / time.Millisecond)
	case "tui.markdownStyle":
		if cfg.TUI == nil {
			cfg.TUI = &TUIConfig{}
		}
		cfg.TUI.MarkdownStyle = value
	case "tui.defaultView":
		if cfg.TUI == nil {
			cfg.TUI = &TUIConfig{}
		}
		cfg.TUI.DefaultView = value
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
