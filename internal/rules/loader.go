package rules

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads quality-profile exports from files and directories.
type Loader struct {
	paths []string
}

// NewLoader creates a loader over the given files or directories.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths}
}

// Load reads every profile and merges them in the order given. Directories
// contribute their .yaml, .yml and .json files in lexical order.
func (l *Loader) Load() (*Profile, error) {
	var profiles []*Profile

	for _, path := range l.paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}

		if !info.IsDir() {
			p, err := LoadProfile(path)
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, p)
			continue
		}

		fromDir, err := l.loadFromDir(path)
		if err != nil {
			return nil, fmt.Errorf("loading profiles from %s: %w", path, err)
		}
		profiles = append(profiles, fromDir...)
	}

	return MergeProfiles(profiles...), nil
}

func (l *Loader) loadFromDir(dir string) ([]*Profile, error) {
	var profiles []*Profile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		switch filepath.Ext(path) {
		case ".yaml", ".yml", ".json":
		default:
			return nil
		}

		p, err := LoadProfile(path)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
		return nil
	})

	return profiles, err
}

// LoadProfile reads a single YAML or JSON profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from config
	if err != nil {
		return nil, err
	}

	p, err := parseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

func parseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
