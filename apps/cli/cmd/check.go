package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/core/config"
	"github.com/abdul-hamid-achik/hiteval/packages/dispatch"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
	"github.com/abdul-hamid-achik/hiteval/packages/output"
	"github.com/abdul-hamid-achik/hiteval/packages/suite"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Send one request and check its response",
	Long: `Send a single HTTP request and evaluate the response against the
expectations given as flags. Without expectations the check passes as soon
as a response arrives.

Examples:
  hiteval check https://example.com --status 200 --contains "Example Domain"
  hiteval check example.com/login -X POST -p user=admin -p pass=secret
  hiteval check https://api.example.com/users -H "Accept: application/json" --header-value content-type=application/json
  hiteval check https://example.com/logo.png --identical-to ./golden/logo.png`,
	Args: cobra.ExactArgs(1),
	RunE: checkCommand,
}

// checkOptions holds the check flags.
type checkOptions struct {
	method       string
	headers      []string
	params       []string
	payload      string
	data         string
	bodyFile     string
	encoding     string
	secure       bool
	output       string
	status       int
	header       []string
	headerValues []string
	contains     []string
	matches      []string
	identicalTo  string
}

var checkOpts checkOptions

func init() {
	f := checkCmd.Flags()

	// Request flags
	f.StringVarP(&checkOpts.method, "request", "X", "GET", "HTTP method")
	f.StringArrayVarP(&checkOpts.headers, "header-line", "H", nil, `Request header "Name: value" (repeatable)`)
	f.StringArrayVarP(&checkOpts.params, "param", "p", nil, "Query or form parameter key=value (repeatable)")
	f.StringVar(&checkOpts.payload, "payload", "", "Pre-encoded POST payload, used when no params or body are given")
	f.StringVarP(&checkOpts.data, "data", "d", "", "Request body")
	f.StringVar(&checkOpts.bodyFile, "body-file", "", "Stream the request body from a file")
	f.StringVar(&checkOpts.encoding, "encoding", getEnvString("HITEVAL_ENCODING", ""), "Charset used to decode the response body (env: HITEVAL_ENCODING)")
	f.BoolVar(&checkOpts.secure, "secure", getEnvBool("HITEVAL_SECURE", false), "Use https for URLs given without a scheme (env: HITEVAL_SECURE)")
	f.StringVarP(&checkOpts.output, "output", "o", getEnvString("HITEVAL_OUTPUT", ""), "Output format: console, json, junit, tap (env: HITEVAL_OUTPUT)")

	// Expectation flags
	f.IntVar(&checkOpts.status, "status", 0, "Expected status code")
	f.StringArrayVar(&checkOpts.header, "header", nil, "Header that must be present (repeatable)")
	f.StringArrayVar(&checkOpts.headerValues, "header-value", nil, "Header name=token that must be present (repeatable)")
	f.StringArrayVar(&checkOpts.contains, "contains", nil, "Substring the body must contain (repeatable)")
	f.StringArrayVar(&checkOpts.matches, "matches", nil, "Regular expression the body must match (repeatable)")
	f.StringVar(&checkOpts.identicalTo, "identical-to", "", "File the body must equal byte for byte")

	checkCmd.MarkFlagsMutuallyExclusive("data", "body-file")
}

func checkCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format := checkOpts.output
	if format == "" {
		format = cfg.Output
	}
	formatter, err := output.New(format, output.Options{
		Writer:  cmd.OutOrStdout(),
		Verbose: cfg.GetVerbose(),
		NoColor: cfg.GetNoColor(),
	})
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executeCheck(ctx, client, cfg, args[0], &checkOpts)
	if err != nil {
		return err
	}

	formatter.FormatResult(result)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if cr := result.Results[0]; cr.Error != nil {
		return withExitCode(ExitNetworkError, nil)
	}
	if result.HasFailures() {
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

// executeCheck sends one request and evaluates it. Usage errors are
// returned; transport errors are recorded on the result.
func executeCheck(ctx context.Context, client *http.Client, cfg *config.Config, rawURL string, opts *checkOptions) (*suite.RunResult, error) {
	reqCfg, err := buildCheckRequest(cfg, rawURL, opts)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}

	expect, baseDir, err := buildCheckExpectation(opts)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}

	var body *http.Body
	switch {
	case opts.data != "":
		body = http.StringBody(opts.data)
	case opts.bodyFile != "":
		f, err := os.Open(opts.bodyFile)
		if err != nil {
			return nil, withExitCode(ExitUsageError, fmt.Errorf("opening body file: %w", err))
		}
		body = http.StreamBody(f)
	}

	start := time.Now()
	url := reqCfg.Target.URL()
	result := &suite.RunResult{ID: uuid.NewString(), Name: "check " + url}
	cr := &suite.CheckResult{
		Name:   reqCfg.Method + " " + url,
		Method: reqCfg.Method,
		URL:    url,
	}

	d := dispatch.New(
		dispatch.WithClient(client),
		dispatch.WithEvaluatorOptions(assertions.WithBaseDir(baseDir)),
	)
	err = d.SendWithBody(ctx, reqCfg, body, func(ev *assertions.Evaluator) {
		cr.Response = ev.Response()
		if expect.IsEmpty() {
			cr.Passed = cr.Response.IsSuccess()
			return
		}
		cr.Assertions = ev.Check(expect)
		cr.Passed = assertions.AllPassed(cr.Assertions)
	})
	if err != nil {
		cr.Error = err
		logger.Debug().Err(err).Str("url", url).Msg("check failed")
	}
	cr.Duration = time.Since(start)

	result.Results = []*suite.CheckResult{cr}
	result.Duration = cr.Duration
	if cr.Passed {
		result.Passed = 1
	} else {
		result.Failed = 1
	}
	return result, nil
}

func buildCheckRequest(cfg *config.Config, rawURL string, opts *checkOptions) (*http.RequestConfig, error) {
	headers, err := parsePairs(opts.headers, ":")
	if err != nil {
		return nil, fmt.Errorf("--header-line: %w", err)
	}
	params, err := parsePairs(opts.params, "=")
	if err != nil {
		return nil, fmt.Errorf("--param: %w", err)
	}

	if !strings.Contains(rawURL, "://") {
		scheme := "http://"
		if opts.secure {
			scheme = "https://"
		}
		rawURL = scheme + rawURL
	}
	target, err := http.ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.secure && !target.IsSecure() {
		return nil, fmt.Errorf("--secure given with a non-https URL: %s", rawURL)
	}

	encoding := opts.encoding
	if encoding == "" {
		encoding = cfg.Encoding
	}
	if _, err := http.ParseEncoding(encoding); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(opts.method))
	if method == "" {
		method = "GET"
	}

	return &http.RequestConfig{
		Target:   target,
		Method:   method,
		Headers:  headers,
		Params:   params,
		Payload:  opts.payload,
		Encoding: encoding,
	}, nil
}

// buildCheckExpectation also returns the directory --identical-to is read
// relative to.
func buildCheckExpectation(opts *checkOptions) (*assertions.Expectation, string, error) {
	headerValues, err := parsePairs(opts.headerValues, "=")
	if err != nil {
		return nil, "", fmt.Errorf("--header-value: %w", err)
	}

	expect := &assertions.Expectation{
		Status:       opts.status,
		Headers:      opts.header,
		HeaderValues: headerValues,
		BodyContains: opts.contains,
		BodyMatches:  opts.matches,
	}

	baseDir := "."
	if opts.identicalTo != "" {
		abs, err := filepath.Abs(opts.identicalTo)
		if err != nil {
			return nil, "", err
		}
		baseDir = filepath.Dir(abs)
		expect.BodyFile = filepath.Base(abs)
	}

	if err := expect.Validate(); err != nil {
		return nil, "", err
	}
	return expect, baseDir, nil
}
