package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Store reads source descriptors from a directory, one file per source.
// Nothing is cached: every Load reflects the current file contents.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Load(name string) (*SourceConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !validName(key) {
		return nil, fmt.Errorf("%w for source: %s", ErrConfigNotFound, name)
	}

	for _, ext := range extensions {
		path := filepath.Join(s.dir, key+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		cfg, err := Decode(data, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		cfg.Name = key

		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("source %s: %w", key, err)
		}
		return cfg, nil
	}

	return nil, fmt.Errorf("%w for source: %s", ErrConfigNotFound, name)
}

// List returns the names of all descriptors in the directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources dir: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !supported(ext) {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(e.Name(), ext))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Decode parses a descriptor. ext selects the format; anything other than
// .yaml/.yml is treated as JSON.
func Decode(data []byte, ext string) (*SourceConfig, error) {
	var cfg SourceConfig

	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			if errors.Is(err, ErrInvalidConfig) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	return &cfg, nil
}

func supported(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
