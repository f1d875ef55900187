package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/marquee/config.yaml"

// ErrMissingAPIKey is returned by RequireAPIKey when no TMDB key is configured.
var ErrMissingAPIKey = errors.New("tmdb api key is not configured (set tmdb.api_key or TMDB_API_KEY)")

// Config holds all marquee configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	TMDB    TMDBConfig    `yaml:"tmdb"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	MaxRequestSize         int64  `yaml:"max_request_size"`
	RateLimitRequests      int    `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int    `yaml:"rate_limit_window_seconds"`
}

type TMDBConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	ImageBaseURL      string  `yaml:"image_base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

// HistoryConfig controls how stored search timestamps are rendered.
// UTCOffset is a fixed offset such as "-05:00" or "Z".
type HistoryConfig struct {
	UTCOffset string `yaml:"utc_offset"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Environment overrides are applied last.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnv(cfg, os.LookupEnv)

	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. The API key in
// particular is expected to come from the environment in deployments.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("TMDB_API_KEY"); ok && v != "" {
		cfg.TMDB.APIKey = v
	}
	if v, ok := lookup("TMDB_BASE_URL"); ok && v != "" {
		cfg.TMDB.BaseURL = v
	}
	if v, ok := lookup("TMDB_IMAGE_BASE_URL"); ok && v != "" {
		cfg.TMDB.ImageBaseURL = v
	}
	if v, ok := lookup("MARQUEE_DB_PATH"); ok && v != "" {
		cfg.Storage.Path = filepath.Dir(v)
		cfg.Storage.SQLiteFile = filepath.Base(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.TMDB.BaseURL) == "" {
		return fmt.Errorf("tmdb.base_url must not be empty")
	}
	if strings.TrimSpace(c.TMDB.ImageBaseURL) == "" {
		return fmt.Errorf("tmdb.image_base_url must not be empty")
	}
	if c.TMDB.RequestsPerSecond < 0 {
		return fmt.Errorf("tmdb.requests_per_second must not be negative")
	}
	if _, err := c.HistoryLocation(); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when the external API cannot be called.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// HistoryLocation returns the fixed-offset zone history timestamps are shown in.
func (c *Config) HistoryLocation() (*time.Location, error) {
	offset := strings.TrimSpace(c.History.UTCOffset)
	if offset == "" || strings.EqualFold(offset, "UTC") {
		return time.UTC, nil
	}
	t, err := time.Parse("Z07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("history.utc_offset %q: expected a form like -05:00", c.History.UTCOffset)
	}
	_, secs := t.Zone()
	return time.FixedZone("UTC"+offset, secs), nil
}

// DBPath returns the expanded SQLite database path.
func (c *Config) DBPath() (string, error) {
	if c.Storage.SQLiteFile == ":memory:" {
		return c.Storage.SQLiteFile, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
// The API key is never written to disk.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		applyEnv(cfg, os.LookupEnv)
		return cfg, nil
	}

	return Load(path)
}
