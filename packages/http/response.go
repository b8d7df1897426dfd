package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Response is a fully captured HTTP response. It is never exposed before the
// body stream has ended.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Headers    http.Header
	Body       []byte
	Encoding   Encoding
	Duration   time.Duration
}

// BodyString decodes the body with the capture encoding.
func (r *Response) BodyString() string {
	return r.Encoding.Decode(r.Body)
}

// BodyJSON decodes the body as a generic JSON value.
func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Header returns the raw value of a header, joining repeated fields with ", ".
func (r *Response) Header(key string) string {
	values, ok := r.HeaderValues(key)
	if !ok {
		return ""
	}
	return strings.Join(values, ", ")
}

// HeaderValues looks a header up case-insensitively.
func (r *Response) HeaderValues(key string) ([]string, bool) {
	if values, ok := r.Headers[http.CanonicalHeaderKey(key)]; ok {
		return values, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json") || strings.HasSuffix(strings.SplitN(ct, ";", 2)[0], "+json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

// StatusClass names the status family: success, redirect, client error,
// server error or informational.
func (r *Response) StatusClass() string {
	switch {
	case r.IsSuccess():
		return "success"
	case r.IsRedirect():
		return "redirect"
	case r.IsClientError():
		return "client error"
	case r.IsServerError():
		return "server error"
	}
	return "informational"
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
