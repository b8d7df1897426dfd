package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	nethttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *suite.RunResult {
	return &suite.RunResult{
		ID:       "0b7c1f5e-8f0e-4f55-9d7a-0d6a3c1e2f10",
		Name:     "smoke",
		File:     "checks/smoke.yaml",
		Duration: 120 * time.Millisecond,
		Passed:   1,
		Failed:   2,
		Skipped:  2,
		Results: []*suite.CheckResult{
			{
				Name:     "homepage",
				Passed:   true,
				Duration: 40 * time.Millisecond,
				Method:   "GET",
				URL:      "http://example.com/",
				Response: &http.Response{
					StatusCode: 200,
					Status:     "200 OK",
					Headers:    nethttp.Header{"Content-Type": {"text/html"}},
					Body:       []byte("<title>Example Domain</title>"),
					Encoding:   http.MustEncoding("utf8"),
				},
			},
			{
				Name:   "status",
				Method: "GET",
				URL:    "http://example.com/missing",
				Assertions: []*assertions.Result{
					{Subject: "status", Operator: "equals", Expected: 200, Actual: 404, Message: "expected 200, got 404"},
				},
			},
			{Name: "down", Error: errors.New("connection refused")},
			{Name: "flaky", Skipped: true, SkipReason: "flaky upstream"},
			{Name: "other", Skipped: true, SkipReason: suite.SkipReasonFiltered},
		},
	}
}

func TestNew(t *testing.T) {
	for _, format := range Formats {
		f, err := New(format, Options{Writer: &bytes.Buffer{}})
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	f, err := New("JSON", Options{})
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("html", Options{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatHeader("1.0.0")
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("boom"))
	out := buf.String()

	assert.Contains(t, out, "hiteval 1.0.0")
	assert.Contains(t, out, "Suite: smoke")
	assert.Contains(t, out, "✓ homepage")
	assert.Contains(t, out, "✗ status")
	assert.Contains(t, out, "expected 200, got 404")
	assert.Contains(t, out, "x down (connection refused)")
	assert.Contains(t, out, "- flaky (flaky upstream)")
	assert.NotContains(t, out, "other")
	assert.Contains(t, out, "1 passed, 2 failed, 2 skipped, 5 total")
	assert.Contains(t, out, "Error: boom")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatResult(sampleResult())
	out := buf.String()

	assert.Contains(t, out, "run 0b7c1f5e")
	assert.Contains(t, out, "GET http://example.com/ -> 200 success (29 bytes)")
	assert.Contains(t, out, "- other\n")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatResult(sampleResult())
	f.FormatError(errors.New("bad.yaml: suite has no checks"))
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 5, Passed: 1, Failed: 2, Skipped: 2}, out.Summary)
	require.Len(t, out.Suites, 1)
	s := out.Suites[0]
	assert.Equal(t, "0b7c1f5e-8f0e-4f55-9d7a-0d6a3c1e2f10", s.RunID)
	require.Len(t, s.Checks, 5)
	require.NotNil(t, s.Checks[0].Response)
	assert.Equal(t, 29, s.Checks[0].Response.Size)
	assert.Equal(t, "utf8", s.Checks[0].Response.Encoding)
	assert.Equal(t, "success", s.Checks[0].Response.StatusClass)
	assert.Nil(t, s.Checks[0].Response.Body)
	assert.Equal(t, "connection refused", s.Checks[2].Error)
	assert.Equal(t, "flaky upstream", s.Checks[3].SkipReason)
	assert.Empty(t, s.Checks[4].SkipReason)
	assert.Equal(t, []string{"bad.yaml: suite has no checks"}, out.Errors)
	assert.Equal(t, float64(1000), out.Duration)
}

func TestJSONFormatter_EmbedsJSONBodies(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatResult(&suite.RunResult{Name: "api", Results: []*suite.CheckResult{
		{Name: "user", Response: &http.Response{
			StatusCode: 404,
			Headers:    nethttp.Header{"Content-Type": {"application/problem+json"}},
			Body:       []byte(`{"title": "not found"}`),
		}},
		{Name: "broken", Response: &http.Response{
			StatusCode: 502,
			Headers:    nethttp.Header{"Content-Type": {"application/json"}},
			Body:       []byte(`<html>bad gateway</html>`),
		}},
	}})
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	checks := out.Suites[0].Checks
	assert.Equal(t, "client error", checks[0].Response.StatusClass)
	assert.Equal(t, map[string]any{"title": "not found"}, checks[0].Response.Body)
	assert.Equal(t, "server error", checks[1].Response.StatusClass)
	assert.Nil(t, checks[1].Response.Body)
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status int
		attr   color.Attribute
	}{
		{200, color.FgGreen},
		{302, color.FgCyan},
		{404, color.FgYellow},
		{503, color.FgRed},
		{101, color.Reset},
	}

	for _, tt := range tests {
		got := statusColor(&http.Response{StatusCode: tt.status})
		assert.True(t, got.Equals(color.New(tt.attr)), "status %d", tt.status)
	}
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))

	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))
	lines := strings.Split(buf.String(), "\n")

	assert.Equal(t, "TAP version 13", lines[0])
	assert.Equal(t, "1..5", lines[1])
	assert.Equal(t, "ok 1 - smoke > homepage", lines[2])
	assert.Equal(t, "not ok 2 - smoke > status", lines[3])
	assert.Contains(t, buf.String(), `    - "status equals: expected 200, got 404"`)
	assert.Contains(t, buf.String(), "not ok 3 - smoke > down")
	assert.Contains(t, buf.String(), "ok 4 - smoke > flaky # SKIP flaky upstream")
	assert.Contains(t, buf.String(), "ok 5 - smoke > other # SKIP filtered out")
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))

	f.FormatResult(sampleResult())
	f.FormatError(errors.New("broken.yaml: parsing suite"))
	require.NoError(t, f.Flush(time.Second))

	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 6, out.Tests)
	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, 2, out.Errors)
	assert.Equal(t, 2, out.Skipped)
	require.Len(t, out.TestSuites, 2)

	ts := out.TestSuites[0]
	assert.Equal(t, "smoke", ts.Name)
	require.Len(t, ts.TestCases, 5)
	assert.Equal(t, "checks/smoke.yaml", ts.TestCases[0].ClassName)
	require.NotNil(t, ts.TestCases[1].Failure)
	assert.Contains(t, ts.TestCases[1].Failure.Content, "expected 200, got 404")
	require.NotNil(t, ts.TestCases[2].Error)
	require.NotNil(t, ts.TestCases[3].Skipped)
	assert.Equal(t, "LoadError", out.TestSuites[1].TestCases[0].Error.Type)
}
