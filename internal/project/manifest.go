package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"slate/internal/layout"
)

// Manifest is a loaded slate.toml together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the slate.toml schema.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Target  TargetConfig  `toml:"target"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type BuildConfig struct {
	Entry string `toml:"entry"`
}

// TargetConfig carries the two architectural constants. Zero means "use the
// default" (64).
type TargetConfig struct {
	AddressSize        int `toml:"address_size"`
	DefaultIntegerSize int `toml:"default_integer_size"`
}

// Find walks from startDir to the filesystem root looking for slate.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "slate.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if cfg.Target.AddressSize != 0 && !layout.ValidSize(cfg.Target.AddressSize) {
		return nil, fmt.Errorf("%s: invalid target.address_size %d", path, cfg.Target.AddressSize)
	}
	if cfg.Target.DefaultIntegerSize != 0 && !layout.ValidSize(cfg.Target.DefaultIntegerSize) {
		return nil, fmt.Errorf("%s: invalid target.default_integer_size %d", path, cfg.Target.DefaultIntegerSize)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// Target resolves the manifest's architectural constants, defaulting to
// 64/64.
func (m *Manifest) Target() (layout.Target, error) {
	address := m.Config.Target.AddressSize
	if address == 0 {
		address = 64
	}
	defaultInt := m.Config.Target.DefaultIntegerSize
	if defaultInt == 0 {
		defaultInt = 64
	}
	return layout.TargetFromBits(address, defaultInt)
}

// Entry resolves the manifest's entry file relative to the manifest root.
func (m *Manifest) Entry() (string, bool) {
	if m.Config.Build.Entry == "" {
		return "", false
	}
	entry := m.Config.Build.Entry
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(m.Root, entry)
	}
	return entry, true
}
