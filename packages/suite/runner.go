package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/core/env"
	"github.com/abdul-hamid-achik/hiteval/packages/dispatch"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SkipReasonFiltered marks checks excluded by the name filter.
const SkipReasonFiltered = "filtered out"

// Runner executes suites sequentially over a shared client.
type Runner struct {
	client   *http.Client
	resolver *env.Resolver
	config   *Config
	logger   zerolog.Logger
}

// Config controls which checks run and when a run stops.
type Config struct {
	NameFilter string // glob with a leading and/or trailing '*'
	Bail       bool   // stop at the first failing check
	Encoding   string // default response charset for checks that set none
}

type RunnerOption func(*Runner)

func WithClient(c *http.Client) RunnerOption {
	return func(r *Runner) {
		r.client = c
	}
}

func WithResolver(res *env.Resolver) RunnerOption {
	return func(r *Runner) {
		r.resolver = res
	}
}

func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(cfg *Config, opts ...RunnerOption) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Runner{
		config: cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.NewClient(http.WithLogger(r.logger))
	}
	if r.resolver == nil {
		r.resolver = env.NewResolver()
	}
	r.resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger.Warn().Msgf(format, args...)
	})
	return r
}

// RunResult summarizes one suite run.
type RunResult struct {
	ID       string
	Name     string
	File     string
	Results  []*CheckResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name       string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Method     string
	URL        string
	Response   *http.Response
	Assertions []*assertions.Result
	Error      error
}

// HasFailures reports whether any check failed.
func (res *RunResult) HasFailures() bool {
	return res.Failed > 0
}

// RunFile loads the suite at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, s)
}

// Run executes every check in s in order. A cancelled ctx stops the run and
// marks the remaining checks skipped.
func (r *Runner) Run(ctx context.Context, s *Suite) (*RunResult, error) {
	if s == nil {
		return nil, errors.New("nil suite")
	}

	start := time.Now()
	result := &RunResult{
		ID:   uuid.NewString(),
		Name: s.Name,
		File: s.Path,
	}

	baseDir := "."
	if s.Path != "" {
		baseDir = filepath.Dir(s.Path)
	}
	d := dispatch.New(
		dispatch.WithClient(r.client),
		dispatch.WithEvaluatorOptions(assertions.WithBaseDir(baseDir)),
	)

	log := r.logger.With().Str("run", result.ID).Str("suite", s.Name).Logger()
	log.Debug().Int("checks", len(s.Checks)).Msg("suite started")

	stopReason := ""
	for _, c := range s.Checks {
		name := c.DisplayName()

		switch {
		case stopReason != "":
			result.add(&CheckResult{Name: name, Skipped: true, SkipReason: stopReason})
			continue
		case !matchesPattern(name, r.config.NameFilter):
			result.add(&CheckResult{Name: name, Skipped: true, SkipReason: SkipReasonFiltered})
			continue
		case c.Skip != "":
			result.add(&CheckResult{Name: name, Skipped: true, SkipReason: c.Skip})
			continue
		}

		if err := ctx.Err(); err != nil {
			stopReason = err.Error()
			result.add(&CheckResult{Name: name, Skipped: true, SkipReason: stopReason})
			continue
		}

		cr := r.runCheck(ctx, d, c, baseDir)
		result.add(cr)
		log.Debug().Str("check", name).Bool("passed", cr.Passed).Dur("duration", cr.Duration).Msg("check finished")

		if !cr.Passed && r.config.Bail {
			stopReason = "bail after failure"
		}
	}

	result.Duration = time.Since(start)
	log.Debug().Int("passed", result.Passed).Int("failed", result.Failed).Int("skipped", result.Skipped).Msg("suite finished")
	return result, nil
}

func (res *RunResult) add(cr *CheckResult) {
	res.Results = append(res.Results, cr)
	switch {
	case cr.Skipped:
		res.Skipped++
	case cr.Passed:
		res.Passed++
	default:
		res.Failed++
	}
}

func (r *Runner) runCheck(ctx context.Context, d *dispatch.Dispatcher, c *Check, baseDir string) *CheckResult {
	start := time.Now()
	cr := &CheckResult{Name: c.DisplayName()}

	cfg, body, err := r.buildRequest(c, baseDir)
	if err != nil {
		cr.Error = err
		cr.Duration = time.Since(start)
		return cr
	}
	cr.Method = cfg.Method
	if cr.Method == "" {
		cr.Method = "GET"
	}
	cr.URL = cfg.URL

	ev, err := d.Do(ctx, cfg, body)
	cr.Duration = time.Since(start)
	if err != nil {
		cr.Error = err
		return cr
	}
	cr.Response = ev.Response()

	if c.Expect == nil || c.Expect.IsEmpty() {
		cr.Passed = cr.Response.IsSuccess()
		return cr
	}
	cr.Assertions = ev.Check(r.resolveExpectation(c.Expect))
	cr.Passed = assertions.AllPassed(cr.Assertions)
	return cr
}

// buildRequest expands variables and opens the body file, if any. The file
// is closed once the request is written, or by Prepare when it is dropped.
func (r *Runner) buildRequest(c *Check, baseDir string) (*http.RequestConfig, *http.Body, error) {
	req := c.Request
	cfg := &http.RequestConfig{
		URL:      r.resolver.Resolve(req.URL),
		Method:   strings.ToUpper(req.Method),
		Headers:  r.resolver.ResolveAll(req.Headers),
		Params:   r.resolver.ResolveAll(req.Params),
		Payload:  r.resolver.Resolve(req.Payload),
		Encoding: req.Encoding,
	}
	if cfg.Encoding == "" {
		cfg.Encoding = r.config.Encoding
	}

	if missing := r.resolver.Unresolved(req.URL); len(missing) > 0 {
		return nil, nil, fmt.Errorf("unresolved variables in url: %s", strings.Join(missing, ", "))
	}
	if err := http.ValidateURL(cfg.URL); err != nil {
		return nil, nil, err
	}

	switch {
	case req.Body != "":
		return cfg, http.StringBody(r.resolver.Resolve(req.Body)), nil
	case req.BodyFile != "":
		path := r.resolver.Resolve(req.BodyFile)
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening body file: %w", err)
		}
		return cfg, http.StreamBody(f), nil
	}
	return cfg, nil, nil
}

func (r *Runner) resolveExpectation(x *assertions.Expectation) *assertions.Expectation {
	out := *x
	out.HeaderValues = r.resolver.ResolveAll(x.HeaderValues)
	if len(x.BodyContains) > 0 {
		out.BodyContains = make([]string, len(x.BodyContains))
		for i, s := range x.BodyContains {
			out.BodyContains[i] = r.resolver.Resolve(s)
		}
	}
	return &out
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	prefix := strings.HasSuffix(pattern, "*")
	suffix := strings.HasPrefix(pattern, "*")
	core := strings.Trim(pattern, "*")

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case suffix:
		return strings.HasSuffix(name, core)
	case prefix:
		return strings.HasPrefix(name, core)
	}
	return name == pattern
}
