package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *suite.RunResult)
	FormatError(err error)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// Options are shared by every format; formats ignore what they don't use.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter for format, case-insensitively.
func New(format string, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		consoleOpts := []ConsoleOption{WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...), nil
	case "json":
		var jsonOpts []JSONOption
		if opts.Writer != nil {
			jsonOpts = append(jsonOpts, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(jsonOpts...), nil
	case "junit":
		var junitOpts []JUnitOption
		if opts.Writer != nil {
			junitOpts = append(junitOpts, JUnitWithWriter(opts.Writer))
		}
		return NewJUnitFormatter(junitOpts...), nil
	case "tap":
		var tapOpts []TAPOption
		if opts.Writer != nil {
			tapOpts = append(tapOpts, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(tapOpts...), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// failureLines renders the failed assertions of one check.
func failureLines(cr *suite.CheckResult) []string {
	var lines []string
	for _, a := range cr.Assertions {
		if a.Passed {
			continue
		}
		line := fmt.Sprintf("%s %s: expected %v, got %v", a.Subject, a.Operator, formatValue(a.Expected, 100), formatValue(a.Actual, 100))
		lines = append(lines, line)
	}
	return lines
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case []string:
		if len(val) > 3 {
			return fmt.Sprintf("[%d values]", len(val))
		}
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

func isFiltered(cr *suite.CheckResult) bool {
	return cr.Skipped && cr.SkipReason == suite.SkipReasonFiltered
}
