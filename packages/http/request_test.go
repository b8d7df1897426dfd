package http

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBody(t *testing.T, req *Request) string {
	t.Helper()
	if req.Body == nil {
		return ""
	}
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	return string(data)
}

func TestPrepare_URLReplacesTarget(t *testing.T) {
	req, err := Prepare(&RequestConfig{
		URL:    "https://example.com:8443/index.php?x=1",
		Target: Target{Hostname: "ignored.test", Path: "/nope"},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://example.com:8443/index.php?x=1", req.URL)
}

func TestPrepare_PostParams(t *testing.T) {
	req, err := Prepare(&RequestConfig{
		URL:    "http://example.com/form",
		Method: "POST",
		Headers: map[string]string{
			"content-type":   "text/plain",
			"Content-Length": "999",
		},
		Params: map[string]string{"a": "1", "b": "2"},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "http://example.com/form", req.URL)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers.Get("Content-Type"))
	assert.Equal(t, "7", req.Headers.Get("Content-Length"))
	assert.Equal(t, int64(7), req.ContentLength)
	assert.Equal(t, "a=1&b=2", readBody(t, req))
}

func TestPrepare_ParamsAppendToQuery(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *RequestConfig
		body   *Body
		wanted string
	}{
		{
			name:   "get without query",
			cfg:    &RequestConfig{URL: "http://example.com/search", Params: map[string]string{"q": "go lang"}},
			wanted: "http://example.com/search?q=go+lang",
		},
		{
			name:   "get with existing query",
			cfg:    &RequestConfig{URL: "http://example.com/search?page=2", Params: map[string]string{"q": "x"}},
			wanted: "http://example.com/search?page=2&q=x",
		},
		{
			name:   "post with payload",
			cfg:    &RequestConfig{URL: "http://example.com/p", Method: "POST", Payload: "raw", Params: map[string]string{"a": "1"}},
			wanted: "http://example.com/p?a=1",
		},
		{
			name:   "post with explicit body",
			cfg:    &RequestConfig{URL: "http://example.com/p", Method: "POST", Params: map[string]string{"a": "1"}},
			body:   StringBody("data"),
			wanted: "http://example.com/p?a=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Prepare(tt.cfg, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.wanted, req.URL)
		})
	}
}

func TestPrepare_PayloadOnlyForPost(t *testing.T) {
	post, err := Prepare(&RequestConfig{URL: "http://example.com", Method: "POST", Payload: `{"a":1}`}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, readBody(t, post))

	put, err := Prepare(&RequestConfig{URL: "http://example.com", Method: "PUT", Payload: `{"a":1}`}, nil)
	require.NoError(t, err)
	assert.Nil(t, put.Body)

	withParams, err := Prepare(&RequestConfig{URL: "http://example.com/f", Method: "POST", Payload: "raw", Params: map[string]string{"a": "1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "raw", readBody(t, withParams))
	assert.Equal(t, "http://example.com/f?a=1", withParams.URL)

	emptyPayload, err := Prepare(&RequestConfig{URL: "http://example.com/f", Method: "POST", Payload: "", Params: map[string]string{"a": "1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a=1", readBody(t, emptyPayload))
	assert.Equal(t, "http://example.com/f", emptyPayload.URL)
}

func TestPrepare_ExplicitBody(t *testing.T) {
	for _, method := range []string{"GET", "head", "DELETE"} {
		req, err := Prepare(&RequestConfig{URL: "http://example.com", Method: method}, StringBody("x"))
		require.NoError(t, err)
		assert.Nil(t, req.Body, method)
	}

	req, err := Prepare(&RequestConfig{URL: "http://example.com", Method: "PUT", Payload: "ignored"}, BytesBody([]byte{0, 1, 2}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), req.ContentLength)
	assert.Equal(t, string([]byte{0, 1, 2}), readBody(t, req))

	stream, err := Prepare(&RequestConfig{URL: "http://example.com", Method: "PATCH"}, StreamBody(strings.NewReader("streamed")))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), stream.ContentLength)
	assert.Equal(t, "streamed", readBody(t, stream))
}

func TestPrepare_Errors(t *testing.T) {
	_, err := Prepare(nil, nil)
	assert.Error(t, err)

	_, err = Prepare(&RequestConfig{URL: "ftp://example.com"}, nil)
	assert.ErrorContains(t, err, "unsupported URL scheme")

	_, err = Prepare(&RequestConfig{Target: Target{Path: "/"}}, nil)
	assert.ErrorContains(t, err, "host")

	_, err = Prepare(&RequestConfig{URL: "http://example.com", Encoding: "klingon"}, nil)
	assert.ErrorContains(t, err, "unknown encoding")

	_, err = Prepare(&RequestConfig{URL: "http://example.com", Method: "PUT"}, StreamBody(nil))
	assert.ErrorIs(t, err, ErrNilStream)
}

func TestPrepare_ClosesDroppedStream(t *testing.T) {
	for _, method := range []string{"GET", "HEAD", "DELETE"} {
		stream := &closeTracker{Reader: strings.NewReader("x")}
		req, err := Prepare(&RequestConfig{URL: "http://example.com", Method: method}, StreamBody(stream))
		require.NoError(t, err)
		assert.Nil(t, req.Body, method)
		assert.True(t, stream.closed, method)
	}

	failed := &closeTracker{Reader: strings.NewReader("x")}
	_, err := Prepare(&RequestConfig{URL: "ftp://example.com", Method: "PUT"}, StreamBody(failed))
	assert.Error(t, err)
	assert.True(t, failed.closed)

	kept := &closeTracker{Reader: strings.NewReader("x")}
	_, err = Prepare(&RequestConfig{URL: "http://example.com", Method: "PUT"}, StreamBody(kept))
	require.NoError(t, err)
	assert.False(t, kept.closed)
}

func TestBody_Close(t *testing.T) {
	var nilBody *Body
	assert.NoError(t, nilBody.Close())
	assert.NoError(t, StringBody("x").Close())
	assert.NoError(t, StreamBody(strings.NewReader("x")).Close())
}

func TestPrepare_DoesNotMutateConfig(t *testing.T) {
	cfg := &RequestConfig{
		URL:     "http://example.com/a",
		Method:  "POST",
		Headers: map[string]string{"X-Test": "1"},
		Params:  map[string]string{"a": "1"},
	}

	_, err := Prepare(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"X-Test": "1"}, cfg.Headers)
	assert.Empty(t, cfg.Payload)
}

func TestAppendQuery(t *testing.T) {
	assert.Equal(t, "/a?x=1", AppendQuery("/a", "x=1"))
	assert.Equal(t, "/a?b=2&x=1", AppendQuery("/a?b=2", "x=1"))
	assert.Equal(t, "/a?x=1", AppendQuery("/a?", "x=1"))
	assert.Equal(t, "/a", AppendQuery("/a", ""))
}

func TestEncodeParams(t *testing.T) {
	assert.Equal(t, "a=1&b=2", EncodeParams(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "q=a%26b%3Dc", EncodeParams(map[string]string{"q": "a&b=c"}))
}
