package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"gopkg.in/yaml.v3"
)

// Suite is a parsed check file.
type Suite struct {
	Name   string   `yaml:"name"`
	Checks []*Check `yaml:"checks"`

	// Path is the file the suite was loaded from, empty for Parse.
	Path string `yaml:"-"`
}

// Check pairs one request with its expectations.
type Check struct {
	Name    string                  `yaml:"name"`
	Skip    string                  `yaml:"skip,omitempty"`
	Request Request                 `yaml:"request"`
	Expect  *assertions.Expectation `yaml:"expect,omitempty"`
}

// Request is the YAML form of http.RequestConfig plus an optional body.
type Request struct {
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Params   map[string]string `yaml:"params,omitempty"`
	Payload  string            `yaml:"payload,omitempty"`
	Body     string            `yaml:"body,omitempty"`
	BodyFile string            `yaml:"bodyFile,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
}

// Load reads and validates a suite file.
func Load(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Parse decodes and validates a suite. Unknown fields are rejected.
func Parse(r io.Reader) (*Suite, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty suite")
		}
		return nil, fmt.Errorf("parsing suite: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every structural problem in the suite at once.
func (s *Suite) Validate() error {
	if len(s.Checks) == 0 {
		return errors.New("suite has no checks")
	}

	var errs []error
	seen := make(map[string]int, len(s.Checks))
	for i, c := range s.Checks {
		label := fmt.Sprintf("check %d", i+1)
		if c == nil {
			errs = append(errs, fmt.Errorf("%s: empty entry", label))
			continue
		}
		if c.Name != "" {
			label = fmt.Sprintf("check %q", c.Name)
			if prev, ok := seen[c.Name]; ok {
				errs = append(errs, fmt.Errorf("%s: duplicate name, first used by check %d", label, prev))
			}
			seen[c.Name] = i + 1
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks a single entry. URLs containing ${VAR} references are
// validated only after expansion, at run time.
func (c *Check) Validate() error {
	req := c.Request
	if req.URL == "" {
		return errors.New("request.url is required")
	}
	if !strings.Contains(req.URL, "${") {
		if err := http.ValidateURL(req.URL); err != nil {
			return fmt.Errorf("request.url: %w", err)
		}
	}
	if req.Body != "" && req.BodyFile != "" {
		return errors.New("request.body and request.bodyFile are mutually exclusive")
	}
	if req.Encoding != "" {
		if _, err := http.ParseEncoding(req.Encoding); err != nil {
			return fmt.Errorf("request.encoding: %w", err)
		}
	}
	if c.Expect != nil {
		if err := c.Expect.Validate(); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	return nil
}

// DisplayName is the check's name, or its method and URL when unnamed.
func (c *Check) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	method := c.Request.Method
	if method == "" {
		method = "GET"
	}
	return strings.ToUpper(method) + " " + c.Request.URL
}
