// Package config holds project constants and the ember.yaml / ember.toml
// project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents a project configuration file.
type Config struct {
	// Paths are module search directories, relative to the config file.
	Paths []string `yaml:"paths" toml:"paths"`

	// ModuleDB is an optional SQLite module store, searched after Paths.
	ModuleDB string `yaml:"module_db,omitempty" toml:"module_db"`

	// MaxCallDepth limits script recursion. Zero means the VM default.
	MaxCallDepth int `yaml:"max_call_depth,omitempty" toml:"max_call_depth"`

	GC  GCConfig  `yaml:"gc" toml:"gc"`
	Log LogConfig `yaml:"log" toml:"log"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `yaml:"-" toml:"-"`
}

type GCConfig struct {
	InitialThreshold int `yaml:"initial_threshold,omitempty" toml:"initial_threshold"`
}

type LogConfig struct {
	// Verbosity follows commonlog: 0 is errors only, each step adds a level.
	Verbosity int    `yaml:"verbosity,omitempty" toml:"verbosity"`
	File      string `yaml:"file,omitempty" toml:"file"`
}

// Default values applied to omitted fields.
const (
	DefaultGCThreshold  = 1024
	DefaultMaxCallDepth = 4096
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses a config file. The format is chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses config content. The path selects the format and is used in
// error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format", path)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.Dir = filepath.Dir(path)
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories. Returns an empty path and nil error if none is
// found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// FindAndLoad loads the nearest config above dir, or the defaults.
func FindAndLoad(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.GC.InitialThreshold < 0 {
		return fmt.Errorf("%s: gc.initial_threshold must not be negative", path)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("%s: max_call_depth must not be negative", path)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("%s: log.verbosity must not be negative", path)
	}
	for i, p := range c.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s: paths[%d] is empty", path, i)
		}
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.GC.InitialThreshold == 0 {
		c.GC.InitialThreshold = DefaultGCThreshold
	}
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{"."}
	}
}

// SearchPaths resolves Paths against the config directory and appends the
// directories listed in EMBER_PATH.
func (c *Config) SearchPaths() []string {
	var out []string
	for _, p := range c.Paths {
		if !filepath.IsAbs(p) && c.Dir != "" {
			p = filepath.Join(c.Dir, p)
		}
		out = append(out, p)
	}
	if env := os.Getenv(PathEnv); env != "" {
		out = append(out, filepath.SplitList(env)...)
	}
	return out
}

// ModuleDBPath resolves ModuleDB, with EMBER_MODULE_DB taking precedence.
func (c *Config) ModuleDBPath() string {
	if env := os.Getenv(ModuleDBEnv); env != "" {
		return env
	}
	if c.ModuleDB == "" || filepath.IsAbs(c.ModuleDB) || c.Dir == "" {
		return c.ModuleDB
	}
	return filepath.Join(c.Dir, c.ModuleDB)
}
