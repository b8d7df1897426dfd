package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *suite.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Suite: "+result.Name))
	if f.verbose {
		fmt.Fprintf(f.writer, "  run %s\n", result.ID)
	}
	fmt.Fprintln(f.writer)

	for _, r := range result.Results {
		if r.Skipped {
			if isFiltered(r) && !f.verbose {
				continue
			}
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if !isFiltered(r) {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintln(f.writer)
			continue
		}

		if r.Error != nil {
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.Name, red(fmt.Sprintf("(%v)", r.Error)))
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose && r.Response != nil {
			fmt.Fprintf(f.writer, "    %s %s -> %s (%d bytes)\n", r.Method, r.URL, statusColor(r.Response).Sprintf("%d %s", r.Response.StatusCode, r.Response.StatusClass()), len(r.Response.Body))
		}

		if r.Passed {
			continue
		}
		for _, a := range r.Assertions {
			if a.Passed {
				continue
			}
			fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), a.Subject, a.Operator)
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
			if a.Message != "" {
				fmt.Fprintf(f.writer, "      %s\n", a.Message)
			}
		}
	}

	fmt.Fprintln(f.writer)
	fmt.Fprintf(f.writer, "Checks: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Results))
	fmt.Fprintf(f.writer, "Time:   %dms\n\n", result.Duration.Milliseconds())
}

func statusColor(resp *http.Response) *color.Color {
	switch {
	case resp.IsSuccess():
		return color.New(color.FgGreen)
	case resp.IsRedirect():
		return color.New(color.FgCyan)
	case resp.IsClientError():
		return color.New(color.FgYellow)
	case resp.IsServerError():
		return color.New(color.FgRed)
	}
	return color.New(color.Reset)
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hiteval"), version)
}
