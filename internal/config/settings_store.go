package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/language"
)

// Store persists Settings to a single JSON file on disk, written
// atomically (write to a temp file, then rename over the target) so a
// crash mid-write never leaves a half-written settings file behind.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore wraps initial with a persistence path. It does not write
// initial to disk; call Update (or SaveFile) to do that.
func NewStore(path string, initial Settings) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	return &Store{path: path, current: initial}, nil
}

// LoadStore reads path if it exists, falling back to fallback
// otherwise, and returns a Store wrapping whichever was used.
func LoadStore(path string, fallback Settings) (*Store, error) {
	settings, err := LoadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		settings = fallback
	}
	return NewStore(path, settings)
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Update(next Settings) error {
	if err := SaveFile(s.path, next); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// LoadFile reads and decodes a Settings document from disk.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return s, nil
}

// SaveFile atomically writes settings to path.
func SaveFile(path string, settings Settings) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// languageConfig mirrors the original implementation's separate
// language-config.json: a tiny side file that remembers only the
// user's last-chosen target language, independent of the rest of
// Settings. It is read and written only through LoadTargetLanguage
// and SaveTargetLanguage; the HTTP adapter takes the target language
// from Settings.Translate.TargetLanguage, not from this file.
type languageConfig struct {
	TargetLanguage string `json:"target_language"`
}

// LoadTargetLanguage reads the last-used target language side file.
// It returns language.Und, nil if the file does not exist yet.
func LoadTargetLanguage(path string) (language.Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return language.Und, nil
		}
		return language.Und, err
	}
	var cfg languageConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return language.Und, fmt.Errorf("invalid language config %s: %w", path, err)
	}
	return language.Parse(cfg.TargetLanguage)
}

// SaveTargetLanguage atomically writes the last-used target language
// side file.
func SaveTargetLanguage(path string, tag language.Tag) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(languageConfig{TargetLanguage: tag.String()}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
