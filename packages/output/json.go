package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Errors   []string    `json:"errors,omitempty"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary represents the totals across every suite
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONSuite is one suite run
type JSONSuite struct {
	RunID    string      `json:"runId"`
	Name     string      `json:"name"`
	File     string      `json:"file,omitempty"`
	Duration float64     `json:"duration"`
	Checks   []JSONCheck `json:"checks"`
}

// JSONCheck represents a single check result
type JSONCheck struct {
	Name       string          `json:"name"`
	Passed     bool            `json:"passed"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skipReason,omitempty"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode  int                 `json:"statusCode"`
	Status      string              `json:"status"`
	StatusClass string              `json:"statusClass"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Size        int                 `json:"size"`
	Encoding    string              `json:"encoding"`
	Duration    float64             `json:"duration"`
	Body        any                 `json:"body,omitempty"` // only for JSON responses
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats suite results as a single JSON document
type JSONFormatter struct {
	writer io.Writer
	suites []JSONSuite
	errors []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *suite.RunResult) {
	s := JSONSuite{
		RunID:    result.ID,
		Name:     result.Name,
		File:     result.File,
		Duration: float64(result.Duration.Milliseconds()),
		Checks:   make([]JSONCheck, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		check := JSONCheck{
			Name:     r.Name,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: float64(r.Duration.Milliseconds()),
		}

		if r.Skipped && !isFiltered(r) {
			check.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			check.Error = r.Error.Error()
		}

		if r.URL != "" {
			check.Request = &JSONRequest{Method: r.Method, URL: r.URL}
		}

		if r.Response != nil {
			check.Response = &JSONResponse{
				StatusCode:  r.Response.StatusCode,
				Status:      r.Response.Status,
				StatusClass: r.Response.StatusClass(),
				Headers:     r.Response.Headers,
				Size:        len(r.Response.Body),
				Encoding:    r.Response.Encoding.Name(),
				Duration:    float64(r.Response.DurationMs()),
			}
			if r.Response.IsJSON() {
				if body, err := r.Response.BodyJSON(); err == nil {
					check.Response.Body = body
				}
			}
		}

		for _, a := range r.Assertions {
			check.Assertions = append(check.Assertions, JSONAssertion{
				Subject:  a.Subject,
				Operator: a.Operator,
				Expected: a.Expected,
				Actual:   a.Actual,
				Passed:   a.Passed,
				Message:  a.Message,
			})
		}

		s.Checks = append(s.Checks, check)
	}

	f.suites = append(f.suites, s)
}

// FormatError records errors that happen outside a suite, such as a file
// that fails to load.
func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, s := range f.suites {
		for _, c := range s.Checks {
			summary.Total++
			switch {
			case c.Skipped:
				summary.Skipped++
			case c.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Errors:   f.errors,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
