// Package batchprofile persists named batch run configurations as
// human-editable YAML files, one file per profile, so a folder +
// target language pairing can be saved from the dashboard and listed
// again later. Nothing in this repository starts a batch run from a
// saved profile.
package batchprofile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one saved batch configuration.
type Profile struct {
	Name           string `yaml:"name"`
	SourceID       string `yaml:"source_id"`
	Folder         string `yaml:"folder"`
	TargetLanguage string `yaml:"target_language"`
}

// Store reads and writes Profiles under a directory, one *.yaml file
// per profile named after a slugified version of Profile.Name.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

func slug(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "profile"
	}
	return s
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, slug(name)+".yaml")
}

// Save writes p to disk, overwriting any existing profile with the
// same slugified name.
func (s *Store) Save(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("batch profile name is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating batch profile dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling batch profile: %w", err)
	}
	return os.WriteFile(s.path(p.Name), data, 0o644)
}

// List returns every saved profile, sorted by file name.
func (s *Store) List() ([]Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading batch profile dir: %w", err)
	}

	profiles := make([]Profile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
