package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hiteval configuration
type Config struct {
	Timeout  int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	Proxy    string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Encoding string            `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	EnvFile  string            `json:"envFile,omitempty" yaml:"envFile,omitempty"`
	Output   string            `json:"output,omitempty" yaml:"output,omitempty"`
	Bail     *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose  *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor  *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return boolPtr(b)
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts the millisecond timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".hiteval.json",
	"hiteval.json",
	".hiteval.yaml",
	".hiteval.yml",
	"hiteval.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks values that cannot be caught by the decoder.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	switch strings.ToLower(c.Output) {
	case "", "console", "json", "junit", "tap":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Encoding != "" {
		result.Encoding = other.Encoding
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Output != "" {
		result.Output = other.Output
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(c.Headers) > 0 || len(other.Headers) > 0 {
		result.Headers = make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			result.Headers[k] = v
		}
		for k, v := range other.Headers {
			result.Headers[k] = v
		}
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML when the extension
// says so and JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
