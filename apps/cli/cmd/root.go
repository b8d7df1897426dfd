package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	verboseFlag int // 0=warn, 1=-v info, 2=-vv debug, 3=-vvv trace
	logFileFlag string
	noColorFlag bool
	configFlag  string

	logger  = zerolog.Nop()
	logFile *lumberjack.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hiteval",
	Short: "Send HTTP requests and assert on what comes back.",
	Long: `hiteval sends HTTP requests and checks their responses: status codes,
headers, body text, regular expressions, JSON paths and golden files.

Run a single check from the command line, or describe many in a YAML
suite and run them all.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute(rootCmd, os.Stderr))
}

// execute runs cmd and maps its error to an exit code. The log file is
// closed before returning, including when the command failed.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if closeErr := closeLogging(); closeErr != nil {
		fmt.Fprintln(stderr, "Error: closing log file:", closeErr)
	}
	if err == nil {
		return ExitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(stderr, "Error:", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return ExitUsageError
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Log verbosity (-v, -vv, -vvv for more detail)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", getEnvString("HITEVAL_LOG_FILE", ""), "Also write logs to this file (env: HITEVAL_LOG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITEVAL_NO_COLOR", false), "Disable colored output (env: HITEVAL_NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITEVAL_CONFIG", ""), "Path to config file (env: HITEVAL_CONFIG)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	outputs := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColorFlag}}
	if logFileFlag != "" {
		logFile = &lumberjack.Logger{
			Filename:   logFileFlag,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		outputs = append(outputs, logFile)
	}

	logger = newLogger(verboseFlag, zerolog.MultiLevelWriter(outputs...))
	return nil
}

func closeLogging() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func newLogger(verbosity int, w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 3:
		level = zerolog.TraceLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("version", version).Logger()
}
