// Package file provides TOML-backed client configuration.
// Configuration is stored in a TOML file within the microsearch config
// directory and is always passed explicitly to the components that
// need it; nothing reads it ambiently.
package file

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:8000/api/v1"
	DefaultTimeoutSeconds = 30
	DefaultLimit          = 10

	configFileName = "config.toml"
)

// BackendConfig configures the transport client.
type BackendConfig struct {
	// BaseURL is the backend API root.
	BaseURL string `toml:"base_url"`

	// SecureSocket selects wss:// for the streaming channel.
	SecureSocket bool `toml:"secure_socket"`

	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	// Limit is the default result count.
	Limit int `toml:"limit"`

	// Stream enables the incremental delivery channel by default.
	Stream bool `toml:"stream"`
}

// Config is the persisted client configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Search  SearchConfig  `toml:"search"`
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// Store is a file-based configuration store using TOML.
type Store struct {
	mu       sync.RWMutex
	filePath string
	cfg      Config
}

// NewStore creates a TOML-based config store.
// If configDir is empty, defaults to ~/.microsearch/config.toml.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".microsearch")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, configFileName),
		cfg:      defaults(),
	}

	if err := s.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return s, nil
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Load reads the configuration file from disk, applying defaults for
// missing values.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	s.cfg = applyDefaults(cfg)
	return nil
}

// Save writes the given configuration to disk and adopts it.
func (s *Store) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg = applyDefaults(cfg)
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Path returns the configuration file location.
func (s *Store) Path() string {
	return s.filePath
}

func defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Search: SearchConfig{
			Limit: DefaultLimit,
		},
	}
}

// applyDefaults fills zero values so a sparse file still yields a
// usable configuration.
func applyDefaults(cfg Config) Config {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBaseURL
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = DefaultLimit
	}
	return cfg
}
