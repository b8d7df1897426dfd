package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// RequestConfig describes a single outbound request. When URL is set it
// replaces every field of Target.
type RequestConfig struct {
	URL      string
	Target   Target
	Method   string
	Headers  map[string]string
	Params   map[string]string
	Payload  string // pre-encoded POST data, sent only for POST without an explicit body; "" means none
	Encoding string // charset used to decode the captured body
}

type bodyKind int

const (
	bodyString bodyKind = iota
	bodyBytes
	bodyStream
)

// Body is an explicit request body. A nil *Body means no explicit body.
type Body struct {
	kind   bodyKind
	data   []byte
	stream io.Reader
}

func StringBody(s string) *Body {
	return &Body{kind: bodyString, data: []byte(s)}
}

func BytesBody(b []byte) *Body {
	return &Body{kind: bodyBytes, data: b}
}

// StreamBody forwards r until EOF. If r is an io.Closer it is closed once the
// request has been written, or when the body is dropped or never sent.
func StreamBody(r io.Reader) *Body {
	return &Body{kind: bodyStream, stream: r}
}

// Close releases a stream body that will not be sent. It is a no-op for nil
// bodies, in-memory bodies and streams that are not io.Closers.
func (b *Body) Close() error {
	if b == nil || b.kind != bodyStream {
		return nil
	}
	if c, ok := b.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Request is a validated, ready-to-send request.
type Request struct {
	Method        string
	URL           string
	Headers       http.Header
	Body          io.Reader
	ContentLength int64
	Encoding      Encoding
}

var ErrNilStream = errors.New("stream body has a nil reader")

// Prepare resolves cfg and the optional explicit body into a Request.
// cfg is not modified. A stream body is closed when Prepare fails or drops it.
func Prepare(cfg *RequestConfig, body *Body) (req *Request, err error) {
	defer func() {
		if err != nil {
			body.Close()
		}
	}()

	if cfg == nil {
		return nil, errors.New("request config cannot be nil")
	}
	if body != nil && body.kind == bodyStream && body.stream == nil {
		return nil, ErrNilStream
	}

	target := cfg.Target
	if cfg.URL != "" {
		parsed, err := ParseTarget(cfg.URL)
		if err != nil {
			return nil, err
		}
		target = parsed
	}
	if target.Hostname == "" {
		return nil, errors.New("request target must have a host")
	}

	enc, err := ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	headers := make(http.Header, len(cfg.Headers)+2)
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	payload := cfg.Payload
	hasPayload := payload != ""
	if len(cfg.Params) > 0 {
		encoded := EncodeParams(cfg.Params)
		if body == nil && method == http.MethodPost && !hasPayload {
			headers.Set("Content-Type", formContentType)
			headers.Set("Content-Length", strconv.Itoa(len(encoded)))
			payload = encoded
			hasPayload = true
		} else {
			target.Path = AppendQuery(target.Path, encoded)
		}
	}

	req = &Request{
		Method:   method,
		URL:      target.URL(),
		Headers:  headers,
		Encoding: enc,
	}

	switch {
	case body == nil:
		if method == http.MethodPost && hasPayload {
			req.Body = strings.NewReader(payload)
			req.ContentLength = int64(len(payload))
		}
	case carriesNoBody(method):
		// explicit bodies are dropped for methods without request content
		body.Close()
	case body.kind == bodyStream:
		req.Body = body.stream
		req.ContentLength = -1
		if n, err := strconv.ParseInt(headers.Get("Content-Length"), 10, 64); err == nil && n >= 0 {
			req.ContentLength = n
		}
	default:
		req.Body = bytes.NewReader(body.data)
		req.ContentLength = int64(len(body.data))
	}

	return req, nil
}

func carriesNoBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// EncodeParams form-encodes params with keys in sorted order.
func EncodeParams(params map[string]string) string {
	values := make(neturl.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// AppendQuery adds an encoded query to a request URI, joining with '&' when
// the URI already has a query.
func AppendQuery(path, encoded string) string {
	if encoded == "" {
		return path
	}
	if strings.Contains(path, "?") {
		if strings.HasSuffix(path, "?") || strings.HasSuffix(path, "&") {
			return path + encoded
		}
		return path + "&" + encoded
	}
	return path + "?" + encoded
}
