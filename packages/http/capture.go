package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"
)

// bodySink collects a response stream into one contiguous buffer.
type bodySink struct {
	buf bytes.Buffer
}

func (s *bodySink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Freeze returns a copy of everything written so far and drops the sink's
// own data.
func (s *bodySink) Freeze() []byte {
	data := bytes.Clone(s.buf.Bytes())
	if data == nil {
		data = []byte{}
	}
	s.buf.Reset()
	return data
}

// maxSizeHint bounds the buffer preallocated from an advertised
// Content-Length. Larger bodies still grow the buffer as they arrive.
const maxSizeHint = 1 << 20

// sizeHint returns how many bytes to preallocate for resp's body. HEAD
// responses advertise a length but carry no body.
func sizeHint(resp *http.Response) int {
	if resp.ContentLength <= 0 {
		return 0
	}
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return 0
	}
	return int(min(resp.ContentLength, maxSizeHint))
}

// Capture drains resp.Body and returns the frozen Response. The body is
// closed in all cases.
func Capture(resp *http.Response, enc Encoding) (*Response, error) {
	return capture(resp, enc, time.Time{})
}

func capture(resp *http.Response, enc Encoding, start time.Time) (*Response, error) {
	if resp == nil {
		return nil, errors.New("response cannot be nil")
	}

	sink := &bodySink{}
	if resp.Body != nil {
		defer resp.Body.Close()
		if hint := sizeHint(resp); hint > 0 {
			sink.buf.Grow(hint)
		}
		if _, err := io.Copy(sink, resp.Body); err != nil {
			return nil, err
		}
	}

	var duration time.Duration
	if !start.IsZero() {
		duration = time.Since(start)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		Headers:    resp.Header.Clone(),
		Body:       sink.Freeze(),
		Encoding:   enc,
		Duration:   duration,
	}, nil
}
