package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/core/config"
	"github.com/abdul-hamid-achik/hiteval/packages/core/env"
	"github.com/abdul-hamid-achik/hiteval/packages/output"
	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run YAML check suites",
	Long: `Run the checks defined in .yaml or .yml suite files. Directories are
searched recursively; config files found there are skipped.

Examples:
  hiteval run checks/smoke.yaml
  hiteval run ./checks/ --env-file .env.staging
  hiteval run ./checks/ --name "login*" --bail
  hiteval run ./checks/ -o junit --output-file report.xml
  hiteval run ./checks/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFileFlag    string
	nameFlag       string
	bailFlag       bool
	timeoutFlag    time.Duration
	proxyFlag      string
	encodingFlag   string
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	dryRunFlag     bool
)

func init() {
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITEVAL_ENV_FILE", ""), "Path to .env file for ${VAR} expansion (env: HITEVAL_ENV_FILE)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", getEnvString("HITEVAL_NAME", ""), "Run only checks matching name pattern (env: HITEVAL_NAME)")
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HITEVAL_BAIL", false), "Stop on first failure (env: HITEVAL_BAIL)")
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", time.Duration(getEnvInt("HITEVAL_TIMEOUT", 0))*time.Millisecond, "Request timeout, e.g. 5s (env: HITEVAL_TIMEOUT in ms)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITEVAL_PROXY", ""), "Proxy URL for HTTP requests (env: HITEVAL_PROXY)")
	runCmd.Flags().StringVar(&encodingFlag, "encoding", getEnvString("HITEVAL_ENCODING", ""), "Default response charset (env: HITEVAL_ENCODING)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITEVAL_OUTPUT", ""), "Output format: console, json, junit, tap (env: HITEVAL_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITEVAL_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HITEVAL_OUTPUT_FILE)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Load suites and list what would run without sending requests")
}

// runFlagOverrides turns the run flags into a config layer for Merge.
func runFlagOverrides() *config.Config {
	o := &config.Config{
		Timeout:  int(timeoutFlag.Milliseconds()),
		Proxy:    proxyFlag,
		Encoding: encodingFlag,
		EnvFile:  envFileFlag,
		Output:   outputFlag,
	}
	if bailFlag {
		o.Bail = config.BoolPtr(true)
	}
	return o
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := fileConfig.Merge(runFlagOverrides())
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, errors.New("no .yaml or .yml suite files found"))
	}

	resolver := env.NewResolver()
	if cfg.EnvFile != "" {
		if err := resolver.LoadFile(cfg.EnvFile); err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("loading env file: %w", err))
		}
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	r := suite.NewRunner(&suite.Config{
		NameFilter: nameFlag,
		Bail:       cfg.GetBail(),
		Encoding:   cfg.Encoding,
	}, suite.WithClient(client), suite.WithResolver(resolver), suite.WithLogger(logger))

	newFormatter := func() (output.Formatter, error) {
		return output.New(cfg.Output, output.Options{
			Writer:  out,
			Verbose: cfg.GetVerbose(),
			NoColor: cfg.GetNoColor(),
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runSuites(ctx, cmd, r, files, newFormatter, cfg.GetBail())
	if err != nil {
		return err
	}

	if watchFlag {
		return watchSuites(ctx, cmd, args, files, func() {
			if _, err := runSuites(ctx, cmd, r, files, newFormatter, cfg.GetBail()); err != nil {
				logger.Error().Err(err).Msg("re-run failed")
			}
		})
	}

	switch {
	case summary.loadErrors > 0:
		return withExitCode(ExitParseError, nil)
	case summary.failed > 0:
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

type runSummary struct {
	passed, failed, skipped int
	loadErrors              int
	duration                time.Duration
}

// runSuites runs every file once with a fresh formatter.
func runSuites(ctx context.Context, cmd *cobra.Command, r *suite.Runner, files []string, newFormatter func() (output.Formatter, error), bail bool) (runSummary, error) {
	var summary runSummary

	formatter, err := newFormatter()
	if err != nil {
		return summary, withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	start := time.Now()
	for _, file := range files {
		if dryRunFlag {
			if err := dryRun(cmd.OutOrStdout(), file); err != nil {
				formatter.FormatError(err)
				summary.loadErrors++
			}
			continue
		}

		result, err := r.RunFile(ctx, file)
		if err != nil {
			formatter.FormatError(err)
			summary.loadErrors++
			if bail {
				break
			}
			continue
		}

		formatter.FormatResult(result)
		summary.passed += result.Passed
		summary.failed += result.Failed
		summary.skipped += result.Skipped

		if bail && result.HasFailures() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	summary.duration = time.Since(start)

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(summary.duration); err != nil {
			return summary, fmt.Errorf("error writing output: %w", err)
		}
	}

	logger.Info().
		Int("passed", summary.passed).
		Int("failed", summary.failed).
		Int("skipped", summary.skipped).
		Dur("duration", summary.duration).
		Msg("run finished")
	return summary, nil
}

func dryRun(w io.Writer, file string) error {
	s, err := suite.Load(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Would run: %s (%d checks)\n", file, len(s.Checks))
	return nil
}

// watchSuites re-runs on writes to suite files until ctx is done.
func watchSuites(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	watch := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		watchedDirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		}
	}

	for _, file := range files {
		watch(filepath.Dir(file))
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			_ = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
				if err == nil && d.IsDir() {
					watch(path)
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	reruns := newDebouncer(WatchDebounceDelay, func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running checks...\n\n", name)
		rerun()
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})
	defer reruns.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isSuiteFile(event.Name) {
				continue
			}

			reruns.trigger(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// debouncer coalesces bursts of file events into a single call of fn. Calls
// never overlap: a rerun that fires while another is in progress waits for it.
type debouncer struct {
	delay time.Duration
	fn    func(name string)

	mu    sync.Mutex // guards timer
	timer *time.Timer
	runMu sync.Mutex
}

func newDebouncer(delay time.Duration, fn func(name string)) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

func (d *debouncer) trigger(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.runMu.Lock()
		defer d.runMu.Unlock()
		d.fn(name)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
