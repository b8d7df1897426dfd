package assertions

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/tidwall/gjson"
)

// Evaluator answers predicates about one captured response. It never
// changes after construction, so predicates may be called from any
// goroutine.
type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
	baseDir  string // Base directory for resolving file paths
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative file paths (golden bodies, schemas) against dir.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

// NewEvaluator takes a private copy of resp.
func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	frozen := *resp
	frozen.Headers = resp.Headers.Clone()
	frozen.Body = bytes.Clone(resp.Body)
	if frozen.Body == nil {
		frozen.Body = []byte{}
	}

	e := &Evaluator{response: &frozen}
	if gjson.ValidBytes(frozen.Body) {
		e.bodyJSON = gjson.ParseBytes(frozen.Body)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) StatusCode() int {
	return e.response.StatusCode
}

func (e *Evaluator) Status() string {
	return e.response.Status
}

// Header returns the raw header value, or "" when absent.
func (e *Evaluator) Header(name string) string {
	return e.response.Header(name)
}

// Body returns a copy of the captured body.
func (e *Evaluator) Body() []byte {
	return bytes.Clone(e.response.Body)
}

// BodyString decodes the body with the capture encoding.
func (e *Evaluator) BodyString() string {
	return e.response.BodyString()
}

// Encoding is the charset the body was captured with.
func (e *Evaluator) Encoding() http.Encoding {
	return e.response.Encoding
}

// Response returns a copy of the captured response.
func (e *Evaluator) Response() *http.Response {
	resp := *e.response
	resp.Headers = e.response.Headers.Clone()
	resp.Body = e.Body()
	return &resp
}

func (e *Evaluator) StatusCodeIs(code int) bool {
	return e.response.StatusCode == code
}

// HasHeader reports whether the header is present, whatever its value.
func (e *Evaluator) HasHeader(name string) bool {
	_, ok := e.response.HeaderValues(name)
	return ok
}

// HasHeaderValue reports whether the header's raw value is value, or whether
// value is one of its comma-separated tokens.
func (e *Evaluator) HasHeaderValue(name, value string) bool {
	values, ok := e.response.HeaderValues(name)
	if !ok {
		return false
	}
	if strings.Join(values, ", ") == value {
		return true
	}
	for _, raw := range values {
		if raw == value {
			return true
		}
		if !strings.Contains(raw, ",") {
			continue
		}
		for _, token := range strings.Split(raw, ",") {
			if strings.TrimSpace(token) == value {
				return true
			}
		}
	}
	return false
}

// HasHeaders reports whether every named header is present.
func (e *Evaluator) HasHeaders(names ...string) bool {
	for _, name := range names {
		if !e.HasHeader(name) {
			return false
		}
	}
	return true
}

// HasHeaderValues reports whether every name/value pair satisfies
// HasHeaderValue.
func (e *Evaluator) HasHeaderValues(headers map[string]string) bool {
	for name, value := range headers {
		if !e.HasHeaderValue(name, value) {
			return false
		}
	}
	return true
}

// BodyContains reports whether the decoded body contains substr literally.
func (e *Evaluator) BodyContains(substr string) bool {
	return e.BodyContainsIn(e.response.Encoding, substr)
}

// BodyContainsIn is BodyContains with the body decoded as enc.
func (e *Evaluator) BodyContainsIn(enc http.Encoding, substr string) bool {
	return strings.Contains(enc.Decode(e.response.Body), substr)
}

func (e *Evaluator) BodyMatches(re *regexp.Regexp) bool {
	return e.BodyMatchesIn(e.response.Encoding, re)
}

func (e *Evaluator) BodyMatchesIn(enc http.Encoding, re *regexp.Regexp) bool {
	return re.MatchString(enc.Decode(e.response.Body))
}

// BodyIdenticalToBuffer compares the raw body byte for byte.
func (e *Evaluator) BodyIdenticalToBuffer(buf []byte) bool {
	return bytes.Equal(e.response.Body, buf)
}

// BodyIdenticalToFile reads path and compares it with the raw body. Relative
// paths are resolved against the base directory and may not leave it.
func (e *Evaluator) BodyIdenticalToFile(path string) (bool, error) {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return false, err
	}
	return e.BodyIdenticalToBuffer(data), nil
}
