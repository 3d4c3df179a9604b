// Package config loads oslogopt.yaml, the per-project settings for the log
// call optimizer.
//
// A config file is looked up from the directory of the first input file,
// walking up to the filesystem root. Command-line flags override its values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	FileName    = "oslogopt.yaml"
	AltFileName = "oslogopt.yml"

	EmitSIL  = "sil"
	EmitLLVM = "llvm"
)

// Config represents oslogopt.yaml.
type Config struct {
	// Target is the LLVM triple calls are specialized for. Empty selects
	// the host.
	Target string `yaml:"target,omitempty"`

	// WordSize overrides the pointer width of Target, in bytes (4 or 8).
	WordSize int `yaml:"word_size,omitempty"`

	// Emit selects the output: "sil" writes the rewritten IR, "llvm"
	// lowers folded calls to LLVM IR. Defaults to "sil".
	Emit string `yaml:"emit,omitempty"`

	// CacheDir is where outputs are cached. Defaults to $OSLOGCACHE or the
	// user cache directory.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Remarks reports log calls that could not be optimized.
	Remarks *bool `yaml:"remarks,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content. The path is only used in errors, and to
// resolve a relative cache_dir.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.CacheDir != "" && !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(filepath.Dir(path), cfg.CacheDir)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for oslogopt.yaml starting from dir and walking up to
// parent directories. It returns "" and a nil error if there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{FileName, AltFileName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate checks values that flags may also have set.
func (c *Config) Validate() error {
	switch c.WordSize {
	case 0, 4, 8:
	default:
		return fmt.Errorf("word_size must be 4 or 8, got %d", c.WordSize)
	}
	switch c.Emit {
	case "", EmitSIL, EmitLLVM:
	default:
		return fmt.Errorf("emit must be %q or %q, got %q", EmitSIL, EmitLLVM, c.Emit)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Emit == "" {
		c.Emit = EmitSIL
	}
	if c.Remarks == nil {
		on := true
		c.Remarks = &on
	}
}

// RemarksEnabled reports whether missed optimizations are reported.
func (c *Config) RemarksEnabled() bool {
	return c.Remarks == nil || *c.Remarks
}
