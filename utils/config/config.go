package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/runa/utils/fileutil"
)

// ProjectDir marks a project root and holds project-local commands.
const ProjectDir = ".runa"

// Config is the user configuration read from config.yaml.
type Config struct {
	// CommandDirs are scanned in order after the built-in commands; relative
	// entries resolve against the project root.
	CommandDirs []string          `yaml:"command_dirs"`
	Paths       map[string]string `yaml:"paths"` // extra path macros
	Templates   Templates         `yaml:"templates"`
	Tools       Tools             `yaml:"tools"`
}

// Templates configures where forms and templates are fetched from.
type Templates struct {
	URL     string `yaml:"url"` // takes precedence over Dir
	Dir     string `yaml:"dir"`
	Retries int    `yaml:"retries"`
}

// Tools names the external programs used by the built-in commands.
type Tools struct {
	Git      string `yaml:"git"`
	Composer string `yaml:"composer"`
	Drush    string `yaml:"drush"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		CommandDirs: []string{"~/.runa/commands", filepath.Join(ProjectDir, "commands")},
		Paths:       map[string]string{},
		Templates: Templates{
			Dir:     "~/.runa/templates",
			Retries: 3,
		},
		Tools: Tools{
			Git:      "git",
			Composer: "composer",
			Drush:    "drush",
		},
	}
}

// GetConfigPath returns the configuration file path from RUNA_CONFIG or the
// default location in the user's home directory.
func GetConfigPath() string {
	if path := os.Getenv("RUNA_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(ProjectDir, "config.yaml")
	}
	return filepath.Join(home, ProjectDir, "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			DebugLog("No configuration at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if cfg.Paths == nil {
		cfg.Paths = map[string]string{}
	}
	if cfg.Templates.Retries < 0 {
		return nil, fmt.Errorf("templates.retries must not be negative, got %d", cfg.Templates.Retries)
	}
	DebugLog("Loaded configuration from %s", path)
	return cfg, nil
}

// FindProjectRoot walks up from dir to the nearest directory containing
// ProjectDir. Without one, dir itself is the root.
func FindProjectRoot(dir string) string {
	for current := dir; ; {
		if info, err := os.Stat(filepath.Join(current, ProjectDir)); err == nil && info.IsDir() {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

// PathTable builds the path macros available to templates: root, cwd, home
// and config, plus the configured paths resolved against root.
func (c *Config) PathTable(root, cwd, configPath string) (map[string]string, error) {
	table := map[string]string{
		"root":   root,
		"cwd":    cwd,
		"config": filepath.Dir(configPath),
	}
	if home, err := os.UserHomeDir(); err == nil {
		table["home"] = home
	}
	for name, p := range c.Paths {
		resolved, err := fileutil.ResolvePath(p, root)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", name, err)
		}
		table[name] = resolved
	}
	return table, nil
}

// ResolvedCommandDirs returns CommandDirs as absolute paths.
func (c *Config) ResolvedCommandDirs(root string) ([]string, error) {
	dirs := make([]string, 0, len(c.CommandDirs))
	for _, d := range c.CommandDirs {
		resolved, err := fileutil.ResolvePath(d, root)
		if err != nil {
			return nil, fmt.Errorf("command dir %s: %w", d, err)
		}
		if resolved != "" {
			dirs = append(dirs, resolved)
		}
	}
	return dirs, nil
}

// TemplateSource returns the URL or directory forms and templates are read
// from.
func (c *Config) TemplateSource(root string) (string, error) {
	if c.Templates.URL != "" {
		return c.Templates.URL, nil
	}
	return fileutil.ResolvePath(c.Templates.Dir, root)
}

// SaveConfig writes cfg to path, creating the directory if needed.
func SaveConfig(ctx context.Context, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return fileutil.OSWriter{Perm: 0600}.WriteFile(ctx, path, string(data))
}
