package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/soyeahso/collig/internal/logging"
)

// apiKeySuffix marks credentials that are mirrored into the environment.
const apiKeySuffix = "_API_KEY"

// Store is the persisted key/value configuration backed by config.json.
// Reads consult the process environment first, then the file, so a value
// exported in the shell always wins over the saved one.
type Store struct {
	path    string
	envPath string

	mu      sync.RWMutex
	values  map[string]string
	version atomic.Uint64

	log *logging.Logger
}

// OpenStore loads the config file at p.Config. A missing file yields an
// empty store; a corrupt one is a ConfigError.
func OpenStore(p Paths, log *logging.Logger) (*Store, error) {
	s := &Store{
		path:    p.Config,
		envPath: p.EnvFile,
		values:  map[string]string{},
		log:     log.Sub("config"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Version increases every time the effective configuration changes.
func (s *Store) Version() uint64 { return s.version.Load() }

// Reload re-reads config.json from disk.
func (s *Store) Reload() error {
	values, err := readValues(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := !maps.Equal(s.values, values)
	s.values = values
	s.mu.Unlock()

	if changed {
		s.version.Add(1)
		s.log.Debug().Int("keys", len(values)).Msg("configuration loaded")
	}
	return nil
}

func readValues(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]string{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse " + filepath.Base(path) + ": " + err.Error()}
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			values[k] = val
		case nil:
		default:
			values[k] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// Get returns the effective value of key: environment first, then file.
func (s *Store) Get(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Lookup is Get without the presence flag.
func (s *Store) Lookup(key string) string {
	v, _ := s.Get(key)
	return v
}

// FileValue returns the value stored in config.json, ignoring the environment.
func (s *Store) FileValue(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set persists key=value. Keys ending in _API_KEY are also exported into
// the process environment and upserted into the .env file.
func (s *Store) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = value
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.version.Add(1)

	if IsAPIKey(key) {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("exporting %s: %w", key, err)
		}
		if err := UpsertEnvFile(s.envPath, key, value); err != nil {
			return fmt.Errorf("updating %s: %w", filepath.Base(s.envPath), err)
		}
	}

	s.log.Info().Str("key", key).Msg("configuration updated")
	return nil
}

// Unset removes key from config.json. Returns false when it was absent.
func (s *Store) Unset(key string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.values, key)
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.version.Add(1)
	return true, nil
}

// All returns a copy of the persisted values.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Keys returns the persisted keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// ExportAPIKeys copies persisted *_API_KEY values into the environment
// when the environment does not already define them.
func (s *Store) ExportAPIKeys() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		if !IsAPIKey(k) || v == "" {
			continue
		}
		if _, ok := os.LookupEnv(k); !ok {
			os.Setenv(k, v)
		}
	}
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// IsAPIKey reports whether key names a provider credential.
func IsAPIKey(key string) bool {
	return strings.HasSuffix(key, apiKeySuffix)
}

// Mask hides all but the last four characters of a secret.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", 8) + value[len(value)-4:]
}
