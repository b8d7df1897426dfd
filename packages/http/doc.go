// Package http provides the request side of hiteval.
//
// It covers everything between a RequestConfig and a fully buffered Response:
//   - Target parsing from a single URL string
//   - Form encoding of params into a POST payload or the query string
//   - Plain or secure transport selection
//   - Explicit string, byte and streaming request bodies
//   - Draining the response stream into one immutable buffer
//   - Charset decoding of the captured body
package http
