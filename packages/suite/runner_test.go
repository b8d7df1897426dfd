package suite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/hiteval/packages/core/env"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<title>Example Domain</title>"))
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"id": 1, "name": "John"}}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		_, _ = w.Write(data)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeSuite(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestResolver(server *httptest.Server) *env.Resolver {
	res := env.NewResolver()
	res.DisableOSEnv()
	res.SetVariable("BASE_URL", server.URL)
	return res
}

func TestRunner_RunFile(t *testing.T) {
	server := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden.html"), []byte("<title>Example Domain</title>"), 0644))
	path := writeSuite(t, dir, `
name: smoke
checks:
  - name: homepage
    request:
      url: ${BASE_URL}/
    expect:
      status: 200
      headerValues:
        content-type: text/html
      bodyContains: ["Example Domain"]
      bodyMatches: ["Example\\s+Domain"]
      bodyFile: golden.html
  - name: user
    request:
      url: ${BASE_URL}/api/user
    expect:
      json:
        data.id: 1
      jsonExists: [data.name]
`)

	r := NewRunner(nil, WithResolver(newTestResolver(server)))
	result, err := r.RunFile(context.Background(), path)

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "smoke", result.Name)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.HasFailures())
	for _, cr := range result.Results {
		assert.True(t, cr.Passed, cr.Name)
		assert.Equal(t, "GET", cr.Method)
		require.NotNil(t, cr.Response)
		assert.Equal(t, 200, cr.Response.StatusCode)
	}
}

func TestRunner_FailingAssertion(t *testing.T) {
	server := newServer(t)
	path := writeSuite(t, t.TempDir(), `
checks:
  - name: wrong status
    request: {url: "${BASE_URL}/"}
    expect: {status: 404}
`)

	result, err := NewRunner(nil, WithResolver(newTestResolver(server))).RunFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.HasFailures())
	require.Len(t, result.Results[0].Assertions, 1)
	assert.Equal(t, "expected 404, got 200", result.Results[0].Assertions[0].Message)
}

func TestRunner_Bodies(t *testing.T) {
	server := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload.txt"), []byte("from file"), 0644))
	path := writeSuite(t, dir, `
checks:
  - name: string body
    request: {url: "${BASE_URL}/echo", method: put, body: "hello ${WHO}"}
    expect: {bodyContains: ["hello world"], headerValues: {x-method: PUT}}
  - name: file body
    request: {url: "${BASE_URL}/echo", method: post, bodyFile: payload.txt}
    expect: {bodyContains: ["from file"]}
  - name: form params
    request: {url: "${BASE_URL}/echo", method: post, params: {a: "1"}}
    expect: {bodyContains: ["a=1"]}
`)

	res := newTestResolver(server)
	res.SetVariable("WHO", "world")
	result, err := NewRunner(nil, WithResolver(res)).RunFile(context.Background(), path)

	require.NoError(t, err)
	for _, cr := range result.Results {
		assert.True(t, cr.Passed, "%s: %v", cr.Name, cr.Error)
	}
}

func TestRunner_NoExpectationRequiresSuccess(t *testing.T) {
	server := newServer(t)
	path := writeSuite(t, t.TempDir(), `
checks:
  - name: ok
    request: {url: "${BASE_URL}/"}
  - name: broken
    request: {url: "${BASE_URL}/broken"}
  - name: broken but expected
    request: {url: "${BASE_URL}/broken"}
    expect: {status: 502}
`)

	result, err := NewRunner(nil, WithResolver(newTestResolver(server))).RunFile(context.Background(), path)

	require.NoError(t, err)
	assert.True(t, result.Results[0].Passed)
	assert.False(t, result.Results[1].Passed)
	assert.Empty(t, result.Results[1].Assertions)
	assert.True(t, result.Results[2].Passed)
}

func TestRunner_BodyFileClosedWhenDropped(t *testing.T) {
	if _, err := os.ReadDir("/proc/self/fd"); err != nil {
		t.Skip("needs /proc/self/fd")
	}
	server := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("unused"), 0644))

	var content strings.Builder
	content.WriteString("checks:\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&content, "  - name: get %d\n    request: {url: \"${BASE_URL}/echo\", method: GET, bodyFile: b.txt}\n    expect: {status: 200}\n", i)
	}
	path := writeSuite(t, dir, content.String())

	before, _ := os.ReadDir("/proc/self/fd")
	result, err := NewRunner(nil, WithResolver(newTestResolver(server))).RunFile(context.Background(), path)
	after, _ := os.ReadDir("/proc/self/fd")

	require.NoError(t, err)
	assert.Equal(t, 50, result.Passed)
	assert.Less(t, len(after)-len(before), 10)
}

func TestRunner_NameFilterSkipAndBail(t *testing.T) {
	server := newServer(t)
	path := writeSuite(t, t.TempDir(), `
checks:
  - name: api first
    request: {url: "${BASE_URL}/"}
    expect: {status: 500}
  - name: api second
    request: {url: "${BASE_URL}/"}
  - name: web
    request: {url: "${BASE_URL}/"}
  - name: api skipped
    skip: flaky upstream
    request: {url: "${BASE_URL}/"}
`)

	t.Run("filter", func(t *testing.T) {
		r := NewRunner(&Config{NameFilter: "web*"}, WithResolver(newTestResolver(server)))
		result, err := r.RunFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Passed)
		assert.Equal(t, 3, result.Skipped)
		assert.Equal(t, SkipReasonFiltered, result.Results[0].SkipReason)
	})

	t.Run("bail", func(t *testing.T) {
		r := NewRunner(&Config{NameFilter: "api*", Bail: true}, WithResolver(newTestResolver(server)))
		result, err := r.RunFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 0, result.Passed)
		assert.Equal(t, "bail after failure", result.Results[1].SkipReason)
	})

	t.Run("skip", func(t *testing.T) {
		r := NewRunner(&Config{NameFilter: "*skipped"}, WithResolver(newTestResolver(server)))
		result, err := r.RunFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "flaky upstream", result.Results[3].SkipReason)
	})
}

func TestRunner_Errors(t *testing.T) {
	server := newServer(t)
	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	path := writeSuite(t, t.TempDir(), `
checks:
  - name: unresolved
    request: {url: "${NOPE}/x"}
  - name: missing file
    request: {url: "${BASE_URL}/echo", method: post, bodyFile: missing.txt}
  - name: connection refused
    request: {url: "`+unreachable.URL+`"}
`)

	var logs bytes.Buffer
	r := NewRunner(nil, WithResolver(newTestResolver(server)), WithLogger(zerolog.New(&logs)))
	result, err := r.RunFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Failed)
	assert.ErrorContains(t, result.Results[0].Error, "NOPE")
	assert.ErrorContains(t, result.Results[1].Error, "opening body file")
	assert.Error(t, result.Results[2].Error)
	assert.Contains(t, logs.String(), "unresolved variable: NOPE")
}

func TestRunner_CancelledContext(t *testing.T) {
	server := newServer(t)
	path := writeSuite(t, t.TempDir(), "checks:\n  - request: {url: \"${BASE_URL}/\"}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewRunner(nil, WithResolver(newTestResolver(server))).RunFile(ctx, path)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("anything", ""))
	assert.True(t, matchesPattern("get user", "get*"))
	assert.True(t, matchesPattern("get user", "*user"))
	assert.True(t, matchesPattern("get user", "*t u*"))
	assert.True(t, matchesPattern("get user", "get user"))
	assert.False(t, matchesPattern("get user", "post*"))
	assert.False(t, matchesPattern("get user", "get"))
}
