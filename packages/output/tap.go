package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
)

// TAPFormatter formats results in TAP (Test Anything Protocol) version 13
type TAPFormatter struct {
	writer  io.Writer
	results []tapResult
	errors  []string
}

type tapResult struct {
	name       string
	passed     bool
	skipped    bool
	skipReason string
	error      string
	failures   []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *suite.RunResult) {
	for _, r := range result.Results {
		tr := tapResult{
			name:       result.Name + " > " + r.Name,
			passed:     r.Passed,
			skipped:    r.Skipped,
			skipReason: r.SkipReason,
		}
		if r.Error != nil {
			tr.error = r.Error.Error()
		}
		if !r.Passed {
			tr.failures = failureLines(r)
		}
		f.results = append(f.results, tr)
	}
}

// FormatError is emitted as a diagnostic line on Flush.
func (f *TAPFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	var b strings.Builder

	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", len(f.results))

	for i, r := range f.results {
		n := i + 1
		switch {
		case r.skipped:
			reason := r.skipReason
			if reason == "" {
				reason = "skipped"
			}
			fmt.Fprintf(&b, "ok %d - %s # SKIP %s\n", n, r.name, reason)
		case r.error != "":
			fmt.Fprintf(&b, "not ok %d - %s\n", n, r.name)
			b.WriteString("  ---\n")
			fmt.Fprintf(&b, "  message: %s\n", escapeYAML(r.error))
			b.WriteString("  severity: error\n")
			b.WriteString("  ...\n")
		case r.passed:
			fmt.Fprintf(&b, "ok %d - %s\n", n, r.name)
		default:
			fmt.Fprintf(&b, "not ok %d - %s\n", n, r.name)
			if len(r.failures) > 0 {
				b.WriteString("  ---\n")
				b.WriteString("  failures:\n")
				for _, line := range r.failures {
					fmt.Fprintf(&b, "    - %s\n", escapeYAML(line))
				}
				b.WriteString("  ...\n")
			}
		}
	}

	for _, e := range f.errors {
		fmt.Fprintf(&b, "# error: %s\n", strings.ReplaceAll(e, "\n", " "))
	}
	fmt.Fprintf(&b, "# duration %dms\n", totalDuration.Milliseconds())

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", `\n`)
		return "\"" + s + "\""
	}
	return s
}
