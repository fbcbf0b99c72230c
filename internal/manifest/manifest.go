// Package manifest reads and writes porcini.yaml, the per-app manifest the
// platform uses to identify and present an app.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Filename is the manifest file name inside an app directory.
const Filename = "porcini.yaml"

// Version is the manifest schema version written by this SDK.
const Version = 1

var (
	// ErrNotFound is returned when the app directory has no manifest.
	ErrNotFound = errors.New("manifest not found")
	// ErrInvalid is returned when the manifest fails validation.
	ErrInvalid = errors.New("invalid manifest")
)

// Manifest describes one app to the platform.
type Manifest struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	ExamplePrompts []string `yaml:"example_prompts"`
	Version        int      `yaml:"manifest_version"`
	BundleID       string   `yaml:"app_bundle_id"`
}

// New creates a manifest for a fresh app with a generated bundle id.
func New(name, description string) *Manifest {
	return &Manifest{
		Name:           name,
		Description:    description,
		ExamplePrompts: []string{},
		Version:        Version,
		BundleID:       uuid.NewString(),
	}
}

// Validate checks the fields the platform requires.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalid)
	}
	if m.Description == "" {
		return fmt.Errorf("%w: description is empty", ErrInvalid)
	}
	if m.Version < 1 {
		return fmt.Errorf("%w: manifest_version %d", ErrInvalid, m.Version)
	}
	if _, err := uuid.Parse(m.BundleID); err != nil {
		return fmt.Errorf("%w: app_bundle_id %q", ErrInvalid, m.BundleID)
	}
	return nil
}

// Load reads and validates the manifest in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save validates m and writes it to dir.
func Save(m *Manifest, dir string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
