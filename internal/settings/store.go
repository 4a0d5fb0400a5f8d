package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists settings as a JSON file.
type FileStore struct {
	path           string
	formatIfFailed bool
	defaults       Defaults

	mu sync.Mutex
}

// NewFileStore creates a store for the file at path. With formatIfFailed set,
// an unreadable file is replaced by the defaults instead of failing the load.
func NewFileStore(path string, formatIfFailed bool, defaults Defaults) *FileStore {
	return &FileStore{
		path:           path,
		formatIfFailed: formatIfFailed,
		defaults:       defaults,
	}
}

// Path returns the settings file path.
func (s *FileStore) Path() string {
	return s.path
}

// Defaults returns the defaults the store falls back to.
func (s *FileStore) Defaults() Defaults {
	return s.defaults
}

// Load reads the settings file, creating it with defaults when it is missing.
func (s *FileStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", s.path).Msg("Settings file not found, writing defaults")
		return s.writeDefaults()
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	settings, err := Parse(data, s.defaults)
	if err != nil {
		if !s.formatIfFailed {
			return Settings{}, fmt.Errorf("settings file %s: %w", s.path, err)
		}
		log.Warn().Err(err).Str("path", s.path).Msg("Settings file unreadable, restoring defaults")
		return s.writeDefaults()
	}

	log.Debug().Str("path", s.path).Msg("Settings loaded")
	return settings, nil
}

// Read parses the current file without repairing it.
func (s *FileStore) Read() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	return Parse(data, s.defaults)
}

// Save writes settings atomically.
func (s *FileStore) Save(settings Settings) error {
	data, err := Marshal(settings, s.defaults.MaxLength)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(data)
}

// Reset replaces the file with the default settings.
func (s *FileStore) Reset() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("remove settings file: %w", err)
	}
	return s.writeDefaults()
}

func (s *FileStore) writeDefaults() (Settings, error) {
	if err := s.write([]byte(DefaultJSON(s.defaults))); err != nil {
		return Settings{}, err
	}
	return s.defaults.Settings(), nil
}

// write must be called with mu held.
func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
