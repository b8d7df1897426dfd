// Package config handles configuration loading and management for hiteval.
//
// It provides functionality for:
//   - Loading configuration from .hiteval.json or .hiteval.yaml files
//   - Default configuration values
//   - Merging file settings with command-line overrides
package config
