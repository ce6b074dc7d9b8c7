// Package config handles loading and managing configuration for the tasklens CLI.
// It supports loading from YAML files, environment variables, and hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// Config holds all configuration settings for the tasklens CLI.
type Config struct {
	// Log controls the structured logger.
	Log LogConfig `yaml:"log"`

	// Providers are the task sources to aggregate.
	Providers []ProviderConfig `yaml:"providers"`

	// Filter is the default filter of list and tui.
	Filter FilterConfig `yaml:"filter"`

	// RefreshInterval is how often the TUI reloads tasks
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// LogConfig mirrors logging.LoggingConfig.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	JSON       bool   `yaml:"json"`
	Console    bool   `yaml:"console"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// ProviderConfig describes one task source. Which fields are used depends
// on Type.
type ProviderConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// obsidian
	Path      string `yaml:"path,omitempty"`
	DailyNote string `yaml:"daily_note,omitempty"`

	// github
	Owner string `yaml:"owner,omitempty"`
	Repo  string `yaml:"repo,omitempty"`

	// github and linear
	Token string `yaml:"token,omitempty"`

	// linear
	Team string `yaml:"team,omitempty"`

	// beads
	Cwd string `yaml:"cwd,omitempty"`

	// local
	RedisURL string `yaml:"redis_url,omitempty"`
	List     string `yaml:"list,omitempty"`
}

// FilterConfig selects tasks by state category and due bucket.
type FilterConfig struct {
	States []string `yaml:"states"`
	Due    []string `yaml:"due"`
}

// Default configuration values
const (
	DefaultLogLevel        = "warn"
	DefaultRefreshInterval = 30 * time.Second
	DefaultLogMaxSize      = 10
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAge       = 7
)

var (
	globalConfig *Config
	configOnce   sync.Once
	configErr    error
)

// Get returns the global configuration, loading it if necessary.
// This function is safe for concurrent use.
func Get() (*Config, error) {
	configOnce.Do(func() {
		globalConfig, configErr = Load()
	})
	return globalConfig, configErr
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	filter := types.DefaultFilter()
	cfg := &Config{
		Log: LogConfig{
			Level:      DefaultLogLevel,
			File:       logging.DefaultFilePath(),
			Console:    true,
			MaxSize:    DefaultLogMaxSize,
			MaxBackups: DefaultLogMaxBackups,
			MaxAge:     DefaultLogMaxAge,
			Compress:   true,
		},
		RefreshInterval: DefaultRefreshInterval,
	}
	for _, s := range filter.States {
		cfg.Filter.States = append(cfg.Filter.States, string(s))
	}
	for _, d := range filter.Due {
		cfg.Filter.Due = append(cfg.Filter.Due, string(d))
	}
	return cfg
}

// Load reads configuration from files and environment variables.
// Priority (highest to lowest):
// 1. Environment variables
// 2. ~/.config/tasklens/config.yml
// 3. ~/.config/tasklens/config.yaml
// 4. ~/.tasklens.yaml
// 5. Hardcoded defaults
//
// A file that exists but does not parse is an error.
func Load() (*Config, error) {
	cfg := Default()

	paths := Paths()
	// Paths lists the highest priority first; read it back to front.
	for i := len(paths) - 1; i >= 0; i-- {
		if err := cfg.mergeFile(paths[i]); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile reads a single file on top of the defaults, then applies the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv("TASKLENS_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("TASKLENS_LOG_FILE"); val != "" {
		c.Log.File = val
	}

	// Refresh interval
	if val := os.Getenv("TASKLENS_REFRESH_INTERVAL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.RefreshInterval = duration
		} else if secs, err := strconv.Atoi(val); err == nil {
			// Support plain seconds for convenience
			c.RefreshInterval = time.Duration(secs) * time.Second
		}
	}

	// Redis URL (support both TASKLENS_REDIS_URL and REDIS_URL) for local
	// providers without their own.
	redisURL := os.Getenv("TASKLENS_REDIS_URL")
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		switch p.Type {
		case string(tasksource.SourceTypeLocal):
			if p.RedisURL == "" {
				p.RedisURL = redisURL
			}
		case string(tasksource.SourceTypeGitHub):
			if p.Token == "" {
				p.Token = os.Getenv("GITHUB_TOKEN")
			}
		case string(tasksource.SourceTypeLinear):
			if p.Token == "" {
				p.Token = os.Getenv("LINEAR_API_KEY")
			}
		}
	}
}

// Reload forces a reload of the configuration.
// This resets the global singleton and returns the newly loaded config.
func Reload() (*Config, error) {
	configOnce = sync.Once{}
	return Get()
}

// Paths returns the paths where config files are searched, highest
// priority first.
func Paths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(homeDir, ".config", "tasklens", "config.yml"),
		filepath.Join(homeDir, ".config", "tasklens", "config.yaml"),
		filepath.Join(homeDir, ".tasklens.yaml"),
	}
}

// LoggingConfig converts the log section for logging.InitFromLogConfig.
func (c *Config) LoggingConfig() logging.LoggingConfig {
	return logging.LoggingConfig{
		Level:      c.Log.Level,
		FilePath:   c.Log.File,
		JSON:       c.Log.JSON,
		Console:    c.Log.Console,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}

// TaskFilter validates and converts the filter section.
func (c *Config) TaskFilter() (types.Filter, error) {
	var f types.Filter
	for _, s := range c.Filter.States {
		st, err := types.ParseFilterState(s)
		if err != nil {
			return f, err
		}
		f.States = append(f.States, st)
	}
	for _, d := range c.Filter.Due {
		b, err := types.ParseDueBucket(d)
		if err != nil {
			return f, err
		}
		f.Due = append(f.Due, b)
	}
	return f, nil
}

// SourceSpecs converts the providers section into factory specs.
func (c *Config) SourceSpecs() ([]tasksource.SourceSpec, error) {
	var specs []tasksource.SourceSpec
	for i, p := range c.Providers {
		if p.Type == "" {
			return nil, fmt.Errorf("provider %d: type is required", i+1)
		}
		params := map[string]string{
			"path":      p.Path,
			"daily":     p.DailyNote,
			"owner":     p.Owner,
			"repo":      p.Repo,
			"token":     p.Token,
			"team":      p.Team,
			"cwd":       p.Cwd,
			"redis_url": p.RedisURL,
			"list":      p.List,
		}
		for k, v := range params {
			if v == "" {
				delete(params, k)
			}
		}
		specs = append(specs, tasksource.SourceSpec{
			Type:   tasksource.SourceType(p.Type),
			Name:   p.Name,
			Config: params,
		})
	}
	return specs, nil
}

// Marshal renders the configuration as YAML, hiding tokens.
func (c *Config) Marshal() ([]byte, error) {
	out := *c
	out.Providers = make([]ProviderConfig, len(c.Providers))
	for i, p := range c.Providers {
		if p.Token != "" {
			p.Token = "********"
		}
		out.Providers[i] = p
	}
	return yaml.Marshal(&out)
}

// WriteExample writes an example configuration file to the specified path.
func WriteExample(path string) error {
	example := `# tasklens configuration file
# Place this file at ~/.config/tasklens/config.yaml or ~/.tasklens.yaml

log:
  level: warn          # debug, info, warn, error
  # file: ~/.local/state/tasklens/tasklens.log
  json: false
  console: true

# Task sources. Tokens can also come from GITHUB_TOKEN / LINEAR_API_KEY.
providers:
  - name: notes
    type: obsidian
    path: ~/notes
    daily_note: daily.md
  # - name: work
  #   type: github
  #   owner: acme
  #   repo: api
  # - type: linear
  #   team: TEAM_ID
  # - type: beads
  #   cwd: ~/src/project
  # - type: local
  #   redis_url: redis://localhost:6379
  #   list: default

# Default filter of list and tui
filter:
  states: [uncompleted, in_progress]
  due: [overdue, today, future, no_date]

# How often the TUI reloads tasks (Go duration format)
refresh_interval: 30s
`
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(example), 0644)
}
