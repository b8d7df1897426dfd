package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:  30000, // 30 seconds
		Proxy:    "",
		Headers:  nil,
		Encoding: "utf8",
		Output:   "console",
		Bail:     boolPtr(false),
		Verbose:  boolPtr(false),
		NoColor:  boolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.Encoding == defaults.Encoding &&
		c.EnvFile == defaults.EnvFile &&
		c.Output == defaults.Output &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
