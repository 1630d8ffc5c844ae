// Package config loads project configuration for viewsmith.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "viewsmith.yaml"
	ConfigFileNameAlt = "viewsmith.yml"
)

// Default configuration values.
const (
	DefaultComponentsDir = "components"
	DefaultExtension     = ".tsx"
	DefaultDebounceMS    = 500
	DefaultStatePath     = ".viewsmith/state.db"
	DefaultPort          = 4800
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for config files.
const maxUpwardSearchLevels = 10

// Config holds the resolved project configuration.
type Config struct {
	ProjectRoot   string `koanf:"-"`
	ComponentsDir string `koanf:"components_dir"`
	Extension     string `koanf:"extension"`
	DebounceMS    int    `koanf:"debounce_ms"`
	StatePath     string `koanf:"state_path"`
	Port          int    `koanf:"port"`
	Verbose       bool   `koanf:"verbose"`

	// QueryTags are the template tag names recognized as data queries.
	QueryTags []string `koanf:"query_tags"`
}

// Debounce returns the configured quiet period as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func configExistsIn(dir string) bool {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a viewsmith
// config file. Returns empty string if not found.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and the
// filesystem. Priority: explicit --project-dir flag, then an upward
// search from the working directory, then the working directory itself.
func inferProjectRoot(flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if dir, _ := flags.GetString("project-dir"); dir != "" {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
			return filepath.Clean(dir)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from file, environment variables, and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(flags)

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"components_dir": DefaultComponentsDir,
		"extension":      DefaultExtension,
		"debounce_ms":    DefaultDebounceMS,
		"state_path":     DefaultStatePath,
		"port":           DefaultPort,
		"verbose":        false,
		"query_tags":     []string{"sql", "query"},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	} else if abs, err := filepath.Abs(cfgFile); err == nil {
		projectRoot = filepath.Dir(abs)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables (VIEWSMITH_ prefix)
	// Transform: VIEWSMITH_COMPONENTS_DIR -> components_dir
	if err := k.Load(env.Provider("VIEWSMITH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "VIEWSMITH_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.ComponentsDir = resolvePathRelativeTo(cfg.ComponentsDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.ComponentsDir == "" {
		c.ComponentsDir = DefaultComponentsDir
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = DefaultDebounceMS
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if len(c.QueryTags) == 0 {
		c.QueryTags = []string{"sql", "query"}
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("extension must start with a dot, got %q", c.Extension)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}
