package dispatch

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/abdul-hamid-achik/hiteval/packages/assertions"
	"github.com/abdul-hamid-achik/hiteval/packages/http"
)

// Callback receives the evaluator for a fully captured response.
type Callback func(*assertions.Evaluator)

var errNilCallback = errors.New("callback cannot be nil")

// Dispatcher sends requests and wraps their responses. The zero value is not
// usable; call New.
type Dispatcher struct {
	client   *http.Client
	evalOpts []assertions.EvaluatorOption
}

type Option func(*Dispatcher)

// WithClient replaces the default http.Client.
func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = c
	}
}

// WithEvaluatorOptions are applied to every evaluator the dispatcher builds.
func WithEvaluatorOptions(opts ...assertions.EvaluatorOption) Option {
	return func(d *Dispatcher) {
		d.evalOpts = append(d.evalOpts, opts...)
	}
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = http.NewClient()
	}
	return d
}

// Send is SendWithBody without an explicit body.
func (d *Dispatcher) Send(ctx context.Context, cfg *http.RequestConfig, cb Callback) error {
	return d.SendWithBody(ctx, cfg, nil, cb)
}

// SendWithBody sends cfg with an optional explicit body. cb runs exactly
// once, after the response body has been read to the end. On error cb is
// not called; transport errors are returned as net/http reports them.
func (d *Dispatcher) SendWithBody(ctx context.Context, cfg *http.RequestConfig, body *http.Body, cb Callback) error {
	if cb == nil {
		body.Close()
		return errNilCallback
	}

	ev, err := d.Do(ctx, cfg, body)
	if err != nil {
		return err
	}
	cb(ev)
	return nil
}

// Do is the synchronous form of SendWithBody.
func (d *Dispatcher) Do(ctx context.Context, cfg *http.RequestConfig, body *http.Body) (*assertions.Evaluator, error) {
	req, err := http.Prepare(cfg, body)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return assertions.NewEvaluator(resp, d.evalOpts...), nil
}

// CaptureResponse buffers a response made elsewhere. An empty encoding
// means UTF-8.
func (d *Dispatcher) CaptureResponse(resp *nethttp.Response, encoding string, cb Callback) error {
	if cb == nil {
		return errNilCallback
	}

	enc, err := http.ParseEncoding(encoding)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return err
	}

	captured, err := http.Capture(resp, enc)
	if err != nil {
		return err
	}
	cb(assertions.NewEvaluator(captured, d.evalOpts...))
	return nil
}
