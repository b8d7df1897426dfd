// Package dispatch is the entry point used from test code.
//
// A Dispatcher sends one request, buffers the whole response and hands the
// caller an assertions.Evaluator through a callback:
//
//	d := dispatch.New()
//	err := d.Send(ctx, &http.RequestConfig{URL: "https://example.com/"}, func(ev *assertions.Evaluator) {
//		assert.True(t, ev.HasHeaderValue("content-type", "text/html"))
//		assert.True(t, ev.BodyContains("Example Domain"))
//	})
//
// Responses obtained elsewhere can be wrapped with CaptureResponse. The whole
// body is held in memory, so very large responses are a poor fit.
package dispatch
