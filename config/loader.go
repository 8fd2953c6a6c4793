// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// FormatOf determines the configuration format from a file extension.
func FormatOf(filename string) (ConfigFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/sngo",
			os.Getenv("HOME") + "/.sngo",
		},
		envPrefix:     "SNGO",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load loads configuration from the specified file, or from defaults and
// the environment when filename is empty.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.finish(nil)
	}

	config, err := l.loadFromFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file %s: %w", filename, err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	return l.loadFromFile(filename)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return l.finish(config)
}

// AutoLoad automatically discovers and loads configuration
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, err := l.findConfigFile()
	if errors.Is(err, ErrConfigFileNotFound) {
		// No config file: defaults plus environment.
		return l.finish(nil)
	}
	if err != nil {
		return nil, err
	}

	return l.loadFromFile(configFile)
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, error) {
	filenames := []string{
		"sngo.yaml", "sngo.yml",
		"config.yaml", "config.yml",
		"sngo.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}

	return "", ErrConfigFileNotFound
}

// loadFromFile loads configuration from a file
func (l *Loader) loadFromFile(filename string) (*Config, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return l.finish(config)
}

// finish merges user over the defaults, applies environment overrides and
// validates the result. A nil user config yields the defaults.
func (l *Loader) finish(user *Config) (*Config, error) {
	defaultConfig := l.defaultConfig
	if defaultConfig == nil {
		defaultConfig = DefaultConfig()
	}

	config := defaultConfig.Clone()
	if user != nil {
		config = l.mergeConfig(defaultConfig, user)
	}

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		err := yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		err := json.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return config, nil
}

// envOverride applies one environment variable to a configuration.
type envOverride struct {
	key   string
	apply func(c *Config, val string) error
}

func setString(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, val string) error {
		*dst(c) = val
		return nil
	}
}

func setBool(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, val string) error {
		*dst(c) = strings.EqualFold(val, "true")
		return nil
	}
}

var envOverrides = []envOverride{
	{"APP_NAME", setString(func(c *Config) *string { return &c.App.Name })},
	{"APP_VERSION", setString(func(c *Config) *string { return &c.App.Version })},
	{"APP_ENVIRONMENT", func(c *Config, val string) error {
		c.App.Environment = Environment(val)
		return nil
	}},
	{"APP_DEBUG", setBool(func(c *Config) *bool { return &c.App.Debug })},
	{"NODE_NO", func(c *Config, val string) error {
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return err
		}
		c.Node.NodeNo = uint16(n)
		return nil
	}},
	{"LOG_LEVEL", func(c *Config, val string) error {
		c.Log.Level = LogLevel(val)
		return nil
	}},
	{"LOG_FORMAT", setString(func(c *Config) *string { return &c.Log.Format })},
	{"LOG_OUTPUT", setString(func(c *Config) *string { return &c.Log.Output })},
	{"METRICS_ENABLED", setBool(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"METRICS_PORT", func(c *Config, val string) error {
		port, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
		c.Metrics.Port = port
		return nil
	}},
}

// loadFromEnv applies the PREFIX_* variables that are set.
func (l *Loader) loadFromEnv(config *Config) error {
	for _, o := range envOverrides {
		name := l.envPrefix + "_" + o.key
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if err := o.apply(config, val); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// overlay copies src into dst unless src is the zero value.
func overlay[T comparable](dst *T, src T) {
	var zero T
	if src != zero {
		*dst = src
	}
}

// mergeConfig overlays the non-zero fields of user on a copy of base.
// Booleans always come from user.
func (l *Loader) mergeConfig(base, user *Config) *Config {
	m := base.Clone()

	overlay(&m.App.Name, user.App.Name)
	overlay(&m.App.Version, user.App.Version)
	overlay(&m.App.Environment, user.App.Environment)
	overlay(&m.App.Description, user.App.Description)
	m.App.Debug = user.App.Debug
	if user.App.Metadata != nil {
		m.App.Metadata = user.App.Metadata
	}

	overlay(&m.Node.NodeNo, user.Node.NodeNo)

	overlay(&m.Log.Level, user.Log.Level)
	overlay(&m.Log.Format, user.Log.Format)
	overlay(&m.Log.Output, user.Log.Output)
	m.Log.AddSource = user.Log.AddSource
	if user.Log.Fields != nil {
		m.Log.Fields = user.Log.Fields
	}

	overlay(&m.Actor.MaxActors, user.Actor.MaxActors)
	overlay(&m.Actor.DefaultMailboxSize, user.Actor.DefaultMailboxSize)
	overlay(&m.Actor.Timeouts.Shutdown, user.Actor.Timeouts.Shutdown)
	overlay(&m.Actor.Timeouts.Process, user.Actor.Timeouts.Process)
	overlay(&m.Actor.Timeouts.Request, user.Actor.Timeouts.Request)

	m.Metrics.Enabled = user.Metrics.Enabled
	overlay(&m.Metrics.Address, user.Metrics.Address)
	overlay(&m.Metrics.Port, user.Metrics.Port)
	overlay(&m.Metrics.Path, user.Metrics.Path)
	overlay(&m.Metrics.Namespace, user.Metrics.Namespace)

	if len(user.Custom) > 0 && m.Custom == nil {
		m.Custom = make(map[string]any, len(user.Custom))
	}
	for k, v := range user.Custom {
		m.Custom[k] = v
	}

	return m
}
