// Package config handles loading and saving ganttree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/ganttree/config.yaml
//   - State:   ~/.local/state/ganttree/ (expansion state, snapshot cache)
//
// Values are layered, lowest first: defaults, the config file, GANTTREE_*
// environment variables (GANTTREE_SOURCE_TOKEN sets source.token), then
// command-line flags that were explicitly set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/tree"
)

const appName = "ganttree"

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "GANTTREE_"

// SourceConfig says where tasks come from.
type SourceConfig struct {
	Instance string `koanf:"instance" yaml:"instance,omitempty"`
	Token    string `koanf:"token" yaml:"token,omitempty"`
	Project  string `koanf:"project" yaml:"project,omitempty"`  // group/project
	Assignee string `koanf:"assignee" yaml:"assignee,omitempty"` // assigned-to view across projects
	File     string `koanf:"file" yaml:"file,omitempty"`         // JSONL snapshot instead of GitLab
	Offline  bool   `koanf:"offline" yaml:"offline,omitempty"`   // read the cached snapshot
}

// HierarchyConfig controls enrichment.
type HierarchyConfig struct {
	Enabled     bool `koanf:"enabled" yaml:"enabled"`
	Links       bool `koanf:"links" yaml:"links,omitempty"` // use issue links instead of work item hierarchy
	BatchSize   int  `koanf:"batch_size" yaml:"batch_size,omitempty"`
	Concurrency int  `koanf:"concurrency" yaml:"concurrency,omitempty"`
}

// FilterConfig is the initial filter.
type FilterConfig struct {
	Term string `koanf:"term" yaml:"term,omitempty"`
	Mode string `koanf:"mode" yaml:"mode,omitempty"`
}

// StateConfig says where expansion state is kept.
type StateConfig struct {
	Backend string `koanf:"backend" yaml:"backend,omitempty"` // memory, file, sqlite
	Path    string `koanf:"path" yaml:"path,omitempty"`
}

// ServerConfig configures `ganttree serve`.
type ServerConfig struct {
	Port          int    `koanf:"port" yaml:"port,omitempty"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Source    SourceConfig    `koanf:"source" yaml:"source"`
	Hierarchy HierarchyConfig `koanf:"hierarchy" yaml:"hierarchy"`
	Filter    FilterConfig    `koanf:"filter" yaml:"filter"`
	State     StateConfig     `koanf:"state" yaml:"state"`
	Server    ServerConfig    `koanf:"server" yaml:"server"`

	// File is the config file that was read, if any.
	File string `koanf:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{Instance: "https://gitlab.com"},
		Hierarchy: HierarchyConfig{
			Enabled:     true,
			BatchSize:   hierarchy.MaxBatchSize,
			Concurrency: 8,
		},
		Filter: FilterConfig{Mode: string(tree.ModeSimple)},
		State:  StateConfig{Backend: "file"},
		Server: ServerConfig{Port: 8080},
	}
}

func defaultsMap() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"source.instance":       d.Source.Instance,
		"hierarchy.enabled":     d.Hierarchy.Enabled,
		"hierarchy.batch_size":  d.Hierarchy.BatchSize,
		"hierarchy.concurrency": d.Hierarchy.Concurrency,
		"filter.mode":           d.Filter.Mode,
		"state.backend":         d.State.Backend,
		"server.port":           d.Server.Port,
	}
}

// ConfigDir returns the XDG config directory for ganttree.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for ganttree.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"instance":      "source.instance",
	"token":         "source.token",
	"project":       "source.project",
	"assignee":      "source.assignee",
	"file":          "source.file",
	"offline":       "source.offline",
	"no-hierarchy":  "hierarchy.enabled",
	"links":         "hierarchy.links",
	"batch-size":    "hierarchy.batch_size",
	"concurrency":   "hierarchy.concurrency",
	"filter":        "filter.term",
	"mode":          "filter.mode",
	"state-backend": "state.backend",
	"state-path":    "state.path",
	"port":          "server.port",
}

// envKey turns GANTTREE_HIERARCHY_BATCH_SIZE into hierarchy.batch_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads configuration from path (the XDG config file when empty), the
// environment and the explicitly set flags in flags, which may be nil. A
// missing config file is not an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = ConfigPath()
	}
	used := ""
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
			}
			used = path
		} else if explicit {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			if f.Name == "no-hierarchy" {
				on, _ := flags.GetBool(f.Name)
				return key, !on
			}
			return key, posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	cfg.Source.File = expandHome(cfg.Source.File)
	cfg.State.Path = expandHome(cfg.State.Path)
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be fixed up silently.
func (c Config) Validate() error {
	if _, err := tree.ParseFilterMode(c.Filter.Mode); err != nil {
		return fmt.Errorf("filter.mode: %w", err)
	}
	switch strings.ToLower(c.State.Backend) {
	case "", "memory", "file", "sqlite":
	default:
		return fmt.Errorf("state.backend: unknown backend %q (want memory, file or sqlite)", c.State.Backend)
	}
	if c.Hierarchy.BatchSize < 1 || c.Hierarchy.BatchSize > hierarchy.MaxBatchSize {
		return fmt.Errorf("hierarchy.batch_size: %d is outside 1..%d", c.Hierarchy.BatchSize, hierarchy.MaxBatchSize)
	}
	if c.Hierarchy.Concurrency < 1 {
		return fmt.Errorf("hierarchy.concurrency: must be at least 1")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d is not a valid port", c.Server.Port)
	}
	return nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c Config) Redacted() Config {
	if c.Source.Token != "" {
		c.Source.Token = "****"
	}
	if c.Server.SessionSecret != "" {
		c.Server.SessionSecret = "****"
	}
	return c
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. The file holds a token, so
// it is only readable by the owner.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
