package assertions

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result is the outcome of one predicate in an Expectation.
type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

// Expectation groups predicates for a single response. Zero-valued fields are
// not checked.
type Expectation struct {
	Status       int               `yaml:"status,omitempty" json:"status,omitempty"`
	Headers      []string          `yaml:"headers,omitempty" json:"headers,omitempty"`
	HeaderValues map[string]string `yaml:"headerValues,omitempty" json:"headerValues,omitempty"`
	BodyContains []string          `yaml:"bodyContains,omitempty" json:"bodyContains,omitempty"`
	BodyMatches  []string          `yaml:"bodyMatches,omitempty" json:"bodyMatches,omitempty"`
	BodyFile     string            `yaml:"bodyFile,omitempty" json:"bodyFile,omitempty"`
	JSON         map[string]any    `yaml:"json,omitempty" json:"json,omitempty"`
	JSONExists   []string          `yaml:"jsonExists,omitempty" json:"jsonExists,omitempty"`
	Schema       string            `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// IsEmpty reports whether the expectation checks nothing.
func (x *Expectation) IsEmpty() bool {
	return x.Status == 0 &&
		len(x.Headers) == 0 &&
		len(x.HeaderValues) == 0 &&
		len(x.BodyContains) == 0 &&
		len(x.BodyMatches) == 0 &&
		x.BodyFile == "" &&
		len(x.JSON) == 0 &&
		len(x.JSONExists) == 0 &&
		x.Schema == ""
}

// Validate compiles every pattern so that a broken suite fails before any
// request is sent.
func (x *Expectation) Validate() error {
	for _, pattern := range x.BodyMatches {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
	}
	if x.Status < 0 || x.Status > 999 {
		return fmt.Errorf("invalid status code %d", x.Status)
	}
	return nil
}

// Check runs every predicate in x, in a stable order.
func (e *Evaluator) Check(x *Expectation) []*Result {
	var results []*Result

	if x.Status != 0 {
		r := &Result{Subject: "status", Operator: "equals", Expected: x.Status, Actual: e.StatusCode()}
		r.Passed = e.StatusCodeIs(x.Status)
		if !r.Passed {
			r.Message = fmt.Sprintf("expected %d, got %d", x.Status, e.StatusCode())
		}
		results = append(results, r)
	}

	for _, name := range x.Headers {
		r := &Result{Subject: "header " + name, Operator: "exists", Expected: true, Actual: e.HasHeader(name)}
		r.Passed = e.HasHeader(name)
		if !r.Passed {
			r.Message = "expected to exist"
		}
		results = append(results, r)
	}

	for _, name := range sortedKeys(x.HeaderValues) {
		want := x.HeaderValues[name]
		r := &Result{Subject: "header " + name, Operator: "equals", Expected: want, Actual: e.Header(name)}
		r.Passed = e.HasHeaderValue(name, want)
		if !r.Passed {
			r.Message = fmt.Sprintf("expected %q, got %q", want, e.Header(name))
		}
		results = append(results, r)
	}

	for _, substr := range x.BodyContains {
		r := &Result{Subject: "body", Operator: "contains", Expected: substr, Actual: e.BodyString()}
		r.Passed = e.BodyContains(substr)
		if !r.Passed {
			r.Message = fmt.Sprintf("expected body to contain '%s'", substr)
		}
		results = append(results, r)
	}

	for _, pattern := range x.BodyMatches {
		r := &Result{Subject: "body", Operator: "matches", Expected: pattern, Actual: e.BodyString()}
		re, err := regexp.Compile(pattern)
		switch {
		case err != nil:
			r.Message = fmt.Sprintf("invalid regex pattern: %v", err)
		case e.BodyMatches(re):
			r.Passed = true
		default:
			r.Message = fmt.Sprintf("expected body to match /%s/", pattern)
		}
		results = append(results, r)
	}

	if x.BodyFile != "" {
		r := &Result{Subject: "body", Operator: "identical", Expected: x.BodyFile, Actual: fmt.Sprintf("%d bytes", len(e.response.Body))}
		ok, err := e.BodyIdenticalToFile(x.BodyFile)
		switch {
		case err != nil:
			r.Message = fmt.Sprintf("failed to read body file: %v", err)
		case ok:
			r.Passed = true
		default:
			r.Message = fmt.Sprintf("body differs from %s", x.BodyFile)
		}
		results = append(results, r)
	}

	for _, path := range x.JSONExists {
		r := &Result{Subject: "body." + path, Operator: "exists", Expected: true, Actual: e.BodyJSONValue(path)}
		r.Passed = e.BodyJSONHas(path)
		if !r.Passed {
			r.Message = "expected to exist"
		}
		results = append(results, r)
	}

	for _, path := range sortedKeys(x.JSON) {
		want := x.JSON[path]
		got := e.BodyJSONValue(path)
		r := &Result{Subject: "body." + path, Operator: "equals", Expected: want, Actual: got}
		r.Passed = e.BodyJSONEquals(path, want)
		if !r.Passed {
			r.Message = fmt.Sprintf("expected %v, got %v", want, got)
		}
		results = append(results, r)
	}

	if x.Schema != "" {
		r := &Result{Subject: "body", Operator: "schema", Expected: x.Schema}
		ok, problems, err := e.validateSchema(x.Schema)
		switch {
		case err != nil:
			r.Message = err.Error()
		case ok:
			r.Passed = true
		default:
			r.Message = fmt.Sprintf("schema validation failed: %s", strings.Join(problems, "; "))
		}
		results = append(results, r)
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
