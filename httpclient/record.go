package httpclient

import (
	"bytes"
	"net/http"
	"net/url"
)

// Request is the orchestrator's resolved, transport-agnostic view of
// an outgoing call: everything RequestBuilder accumulates, converted
// to a concrete record once and then passed down the pipeline
// (plugins, retry, hedge, dedup, debounce, rate limiter) without
// needing a live *http.Request until the transport boundary.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	// Body is the already-encoded request body, buffered so it can be
	// replayed across retries and hedge racers.
	Body []byte

	Timeout          Timeout
	RetryPolicy      RetryPolicy
	HedgePolicy      HedgePolicy
	DedupPolicy      DedupPolicy
	DebouncePolicy   DebouncePolicy
	RateLimitPolicy  RateLimitPolicy
	ResponseTypeHint ResponseTypeHint

	Signal Signal
	Tags   []string
	// Meta is call-scoped metadata set at build time, seeded into the
	// Context's own Meta map when a call starts.
	Meta map[string]any
}

// toHTTPRequest builds a fresh *http.Request for one attempt, cloning
// Header and re-wrapping Body so concurrent attempts/hedge racers never
// share mutable state.
func (r *Request) toHTTPRequest(ctx *Context) (*http.Request, error) {
	return r.toHTTPRequestWithSignal(ctx.Controller.Signal())
}

// toHTTPRequestWithSignal builds a fresh *http.Request bound to sig
// directly, for callers (the leaf Transport) that only have a Signal,
// not a full Context.
func (r *Request) toHTTPRequestWithSignal(sig Signal) (*http.Request, error) {
	var body *bytes.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(sig.Context(), r.Method, r.URL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	return req, nil
}

// clone returns a deep-enough copy of r for a hedge racer or retry
// attempt to mutate its own *http.Request independently.
func (r *Request) clone() *Request {
	out := *r
	out.Header = r.Header.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}
