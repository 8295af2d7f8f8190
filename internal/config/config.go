// Package config loads client configuration from environment variables
// and manages the per-user preferences file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/google/uuid"
)

// Config holds all portal client configuration.
type Config struct {
	// Server
	ServerURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Local state
	ConfigDir string
	CacheDir  string

	// Download cache
	MaxCacheSize int64
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ServerURL:    envOr("PORTAL_SERVER", "http://localhost:8080"),
		LogLevel:     envOr("PORTAL_LOG_LEVEL", "info"),
		LogFormat:    envOr("PORTAL_LOG_FORMAT", "console"),
		ConfigDir:    envOr("PORTAL_CONFIG_DIR", DefaultConfigDir()),
		CacheDir:     envOr("PORTAL_CACHE_DIR", defaultCacheDir()),
		MaxCacheSize: envInt64("PORTAL_MAX_CACHE", 1<<30),
	}
	return cfg, nil
}

// SessionPath is where the persisted session lives.
func (c *Config) SessionPath() string {
	return filepath.Join(c.ConfigDir, "session.json")
}

func (c *Config) prefsPath() string {
	return filepath.Join(c.ConfigDir, "prefs.json")
}

// DefaultConfigDir returns the per-user config directory for the client.
func DefaultConfigDir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Portal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "portal")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "portal-cache")
	}
	return filepath.Join(dir, "portal")
}

// Prefs holds persisted user preferences and the stable client identity.
type Prefs struct {
	ClientID       string `json:"client_id"`
	SortPreference string `json:"sort_preference,omitempty"`
}

// LoadPrefs reads the preferences file, creating it with a fresh client
// ID on first use.
func (c *Config) LoadPrefs() (*Prefs, error) {
	data, err := os.ReadFile(c.prefsPath())
	if err == nil {
		var p Prefs
		if err := json.Unmarshal(data, &p); err == nil && p.ClientID != "" {
			return &p, nil
		}
	}

	p := &Prefs{ClientID: uuid.NewString()}
	if err := c.SavePrefs(p); err != nil {
		return nil, err
	}
	return p, nil
}

// SavePrefs writes the preferences file.
func (c *Config) SavePrefs(p *Prefs) error {
	if err := os.MkdirAll(c.ConfigDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.prefsPath(), data, 0o600)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
