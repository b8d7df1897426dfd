package output

import (
	"encoding/xml"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/suite"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one suite file
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	ID         string          `xml:"id,attr,omitempty"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase represents a single check
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats suite results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
	loadErrors []JUnitTestCase
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *suite.RunResult) {
	className := result.File
	if className == "" {
		className = result.Name
	}

	ts := JUnitTestSuite{
		ID:         result.ID,
		Name:       result.Name,
		Tests:      len(result.Results),
		Failures:   result.Failed,
		Skipped:    result.Skipped,
		Time:       result.Duration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		Properties: []JUnitProperty{{Name: "runId", Value: result.ID}},
		TestCases:  make([]JUnitTestCase, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		tc := JUnitTestCase{
			Name:      r.Name,
			ClassName: className,
			Time:      r.Duration.Seconds(),
		}

		switch {
		case r.Skipped:
			tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		case r.Error != nil:
			// errored checks are counted as errors, not failures
			ts.Failures--
			ts.Errors++
			tc.Error = &JUnitError{
				Message: r.Error.Error(),
				Type:    "Error",
			}
		case !r.Passed:
			tc.Failure = &JUnitFailure{
				Message: "Assertion failed",
				Type:    "AssertionError",
				Content: strings.Join(failureLines(r), "\n"),
			}
		}

		ts.TestCases = append(ts.TestCases, tc)
	}

	f.testSuites = append(f.testSuites, ts)
}

// FormatError reports a suite that could not be loaded as an errored case.
func (f *JUnitFormatter) FormatError(err error) {
	f.loadErrors = append(f.loadErrors, JUnitTestCase{
		Name:      "load",
		ClassName: "hiteval",
		Error:     &JUnitError{Message: err.Error(), Type: "LoadError"},
	})
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	testSuites := f.testSuites
	if len(f.loadErrors) > 0 {
		testSuites = append(testSuites, JUnitTestSuite{
			Name:      "load errors",
			Tests:     len(f.loadErrors),
			Errors:    len(f.loadErrors),
			TestCases: f.loadErrors,
		})
	}

	suites := JUnitTestSuites{
		Name:       "hiteval",
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: testSuites,
	}
	for _, s := range testSuites {
		suites.Tests += s.Tests
		suites.Failures += s.Failures
		suites.Errors += s.Errors
		suites.Skipped += s.Skipped
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
