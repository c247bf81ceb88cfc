package httpclient

import "context"

// Context is the single mutable object the plugin pipeline, retry
// orchestrator, and hedging executor all read and write as a call
// progresses through attempts. Req mutations and Meta persist across
// attempts (a plugin refreshing credentials on retry sees its own
// earlier mutation); Res and Err are reset at the start of each
// attempt so a stale result from a prior attempt never leaks forward.
type Context struct {
	Req *Request
	Res *Response
	Err *Error

	// Attempt is 1-based: the attempt currently in flight.
	Attempt int
	// MaxRetries is the resolved retry budget for this call, so a
	// plugin can tell the last attempt from an earlier one.
	MaxRetries int

	// Meta is call-scoped mutable metadata, visible to every plugin and
	// to the caller after the call completes. Unlike Req.Meta (set once
	// at build time), Meta is the shared scratch space plugins use to
	// pass state to one another across the pipeline and across attempts.
	Meta map[string]any

	// Controller exposes the cancellation signal in effect for the
	// current attempt, composed from the caller's signal, any
	// client/call timeout, and (for a hedge racer) its siblings.
	Controller *SignalController
}

// SignalController is the Context's view onto cancellation: the
// Signal itself, plus the means to derive a child scoped to one
// attempt or one hedge racer.
type SignalController struct {
	signal Signal
	cancel context.CancelFunc
}

// NewSignalController wraps a root Signal for the lifetime of one call.
func NewSignalController(signal Signal, cancel context.CancelFunc) *SignalController {
	return &SignalController{signal: signal, cancel: cancel}
}

// Signal returns the controller's current signal.
func (c *SignalController) Signal() Signal {
	return c.signal
}

// Cancel fires the controller's signal, if it has a cancel func.
func (c *SignalController) Cancel() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Abort cancels the controller's signal and tags the reason, for
// callers (the debouncer, a hedge race) that need to distinguish why
// a given attempt was torn down.
func (c *SignalController) Abort(reason CancelReason) {
	if c == nil {
		return
	}
	c.signal, c.cancel = Compose(reason, c.signal)
	c.Cancel()
}

// newContext builds the per-call Context, seeding Meta from the
// request's own call-scoped metadata so plugins see it immediately.
func newContext(req *Request, maxRetries int, controller *SignalController) *Context {
	meta := make(map[string]any, len(req.Meta))
	for k, v := range req.Meta {
		meta[k] = v
	}
	return &Context{
		Req:        req,
		Attempt:    1,
		MaxRetries: maxRetries,
		Meta:       meta,
		Controller: controller,
	}
}

// resetAttempt clears the per-attempt Res/Err before the next attempt
// runs, leaving Req, Meta, and Controller untouched.
func (c *Context) resetAttempt(attempt int) {
	c.Attempt = attempt
	c.Res = nil
	c.Err = nil
}

// isLastAttempt reports whether the attempt in progress is the final
// one the retry budget allows.
func (c *Context) isLastAttempt() bool {
	return c.Attempt > c.MaxRetries
}
