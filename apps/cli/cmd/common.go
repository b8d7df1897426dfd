package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hiteval/packages/core/config"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/rs/zerolog"
)

// loadConfig reads the config file named by --config, or the first one found
// in the working directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}
	if verboseFlag > 0 {
		cfg.Verbose = config.BoolPtr(true)
	}
	return cfg, nil
}

// newClient builds the shared transport client from cfg.
func newClient(cfg *config.Config, log zerolog.Logger) (*http.Client, error) {
	opts := []http.ClientOption{http.WithLogger(log)}
	if cfg.Timeout > 0 {
		opts = append(opts, http.WithTimeout(cfg.TimeoutDuration()))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, http.WithDefaultHeaders(cfg.Headers))
	}
	if cfg.Proxy != "" {
		if err := http.ValidateURL(cfg.Proxy); err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("invalid proxy: %w", err))
		}
		opts = append(opts, http.WithProxy(cfg.Proxy))
	}
	return http.NewClient(opts...), nil
}

// parsePairs splits "key<sep>value" entries. Keys are trimmed, values keep
// everything after the first separator.
func parsePairs(entries []string, sep string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, sep)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid entry %q, want key%svalue", e, sep)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if isSuiteFile(arg) {
				files = append(files, arg)
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSuiteFile(path) && !isConfigFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func isSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.ConfigFilenames {
		if base == name {
			return true
		}
	}
	return false
}
