package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// newOrchestrator assembles an orchestrator from cfg's defaults, wrapping
// base (the legacy transport chain: chaos/breaker/otel, as built by
// New()) as the orchestrator's leaf Transport.
func newOrchestrator(cfg *internalConfig, base http.RoundTripper) *orchestrator {
	bus := NewBus(256)
	bus.Subscribe(otelStatsSink(cfg.Metrics))
	if cfg.StatsSink != nil {
		bus.Subscribe(cfg.StatsSink)
	}

	var limiter *Limiter
	if cfg.RateLimitPolicy.Enabled {
		limiter = NewLimiter(cfg.RateLimitPolicy)
	}

	return &orchestrator{
		transport: newRoundTripperTransport(base),
		pipeline:  newPipeline(cfg.Plugins),
		limiter:   limiter,
		dedup:     NewDeduplicator(cfg.DedupPolicy),
		debouncer: newDebouncer(),
		bus:       bus,
		metrics:   cfg.Metrics,
	}
}

// orchestrator drives one call end to end: debounce wait, rate-limit
// admission, dedup coalescing, then the retry loop (which itself may
// hedge each attempt). It is the attempt-level and context-level
// control the teacher's http.RoundTripper stack couldn't express.
type orchestrator struct {
	transport  Transport
	pipeline   *pipeline
	limiter    *Limiter
	dedup      *Deduplicator
	debouncer  *debouncer
	bus        *Bus
	metrics    *metrics
}

// Execute runs req to completion, honoring its resolved policies.
func (o *orchestrator) Execute(req *Request, controller *SignalController) (*Response, error) {
	if req.DebouncePolicy.Enabled {
		ctx := newContext(req, 0, controller)
		if err := o.debouncer.Wait(ctx); err != nil {
			o.emit(EventDebounceCancel, req, 0)
			return nil, err
		}
		o.emit(EventDebounceDispatch, req, 0)
	}

	if req.RateLimitPolicy.Enabled && o.limiter != nil {
		start := time.Now()
		if _, err := o.limiter.Admit(controller.Signal().Context(), req); err != nil {
			return nil, newError(KindAbort, nil, nil, req.Tags, 0, err)
		}
		o.emit(EventRateLimitWait, req, time.Since(start))
	}

	run := func() (*Response, error) { return o.runRetryLoop(req, controller) }

	if req.DedupPolicy.Enabled && req.DedupPolicy.includesMethod(req.Method) && o.dedup != nil {
		resp, shared, err := o.dedup.Do(req, req.DedupPolicy, run)
		if shared {
			o.emit(EventDedupHit, req, 0)
		} else {
			o.emit(EventDedupMiss, req, 0)
		}
		return resp, err
	}

	return run()
}

func (o *orchestrator) emit(kind StatsEventKind, req *Request, d time.Duration) {
	if o.bus == nil {
		return
	}
	o.bus.Emit(StatsEvent{
		Kind:       kind,
		Method:     req.Method,
		Endpoint:   req.URL.String(),
		Tags:       req.Tags,
		DurationNs: int64(d),
	})
}

// maxRetries resolves the retry budget: MaxRetries (so MaxRetries+1
// total attempts), 0 when retries are disabled.
func maxRetries(policy RetryPolicy) int {
	if !policy.Enabled {
		return 0
	}
	return int(policy.MaxRetries)
}

// runRetryLoop drives attempts 1..N+1 using backoff.Retry from
// cenkalti/backoff/v5, exactly as the teacher's retry_transport.go
// does, generalized to call the hedging executor per attempt and to
// run the plugin pipeline's OnRequest/OnResponse/OnResponseError hooks
// around each one.
func (o *orchestrator) runRetryLoop(req *Request, controller *SignalController) (*Response, error) {
	policy := req.RetryPolicy
	ctx := newContext(req, maxRetries(policy), controller)

	op := func() (*Response, error) {
		resp, err := o.runOneAttempt(ctx)
		if err == nil {
			return resp, nil
		}

		httpErr, ok := err.(*Error)
		if !ok {
			return nil, err
		}

		if !o.shouldRetry(ctx, httpErr) {
			return nil, backoff.Permanent(err)
		}

		o.emit(EventRequestRetry, req, 0)
		if o.metrics != nil {
			o.metrics.recordRetryAttempt(ctx.Controller.Signal().Context(), nil, ctx.Attempt)
		}

		if delay := retryAfterDelay(httpErr); policy.RespectRetryAfter && delay > 0 {
			sig, cancel := ctx.Controller.Signal().WithTimeout(delay)
			<-sig.Done()
			cancel()
			if sig.Reason() == ReasonUser {
				return nil, backoff.Permanent(err)
			}
		}

		ctx.resetAttempt(ctx.Attempt + 1)
		return nil, err
	}

	if !policy.Enabled {
		resp, err := o.runOneAttempt(ctx)
		return resp, err
	}

	bo := getBackoffStrategy(policy)
	result, err := backoff.Retry(ctx.Controller.Signal().Context(), op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(policy.MaxRetries+1),
		backoff.WithMaxElapsedTime(policy.MaxElapsedTime),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// shouldRetry applies the attempt's classifier, honoring the ABORT/
// idempotency rules spec.md §4.4 requires regardless of classifier.
func (o *orchestrator) shouldRetry(ctx *Context, err *Error) bool {
	if ctx.isLastAttempt() {
		return false
	}
	if err.Kind == KindAbort {
		return false
	}
	if (err.Kind == KindTimeout || err.Kind == KindNetwork) && !isIdempotent(ctx.Req.Method) {
		return false
	}

	classifier := ctx.Req.RetryPolicy.Classifier
	if classifier == nil {
		classifier = DefaultClassifier
	}
	var statusResp *http.Response
	if err.Response != nil {
		statusResp = &http.Response{StatusCode: err.Response.StatusCode, Header: err.Response.Header}
	}
	return classifier(statusResp, err.Cause)
}

// runOneAttempt runs the plugin pipeline and transport call (through
// the hedging executor, if hedging is enabled) for the current attempt.
func (o *orchestrator) runOneAttempt(ctx *Context) (*Response, error) {
	if err := o.pipeline.runOnRequest(ctx); err != nil {
		return nil, err
	}

	var resp *Response
	var err error
	if ctx.Req.HedgePolicy.Enabled && ctx.Req.HedgePolicy.includesMethod(ctx.Req.Method) {
		resp, err = runHedged(o.transport, ctx, o.bus)
	} else {
		resp, err = o.transport.RoundTrip(ctx.Req, ctx.Controller.Signal())
	}

	if err != nil {
		ctx.Err = asError(err, ctx)
		o.pipeline.runOnResponseError(ctx)
		if ctx.Res != nil {
			return ctx.Res, nil
		}
		return nil, ctx.Err
	}

	ctx.Res = resp
	if pipeErr := o.pipeline.runOnResponse(ctx); pipeErr != nil {
		o.pipeline.runOnResponseError(ctx)
		if ctx.Res != nil {
			return ctx.Res, nil
		}
		return nil, ctx.Err
	}
	return ctx.Res, nil
}

// asError normalizes any error into *Error, tagging it KindNetwork if
// it wasn't already one of ours (defensive: every Transport in this
// package already returns *Error).
func asError(err error, ctx *Context) *Error {
	if httpErr, ok := err.(*Error); ok {
		return httpErr
	}
	return newError(KindNetwork, nil, nil, ctx.Req.Tags, ctx.Attempt, err)
}

// getBackoffStrategy picks the configured Backoff or falls back to the
// teacher's exponential-from-config construction.
func getBackoffStrategy(policy RetryPolicy) BackoffStrategy {
	if policy.Backoff != nil {
		return policy.Backoff
	}
	return ExponentialBackOffFromConfig(RetryConfig{
		MaxRetries:      policy.MaxRetries,
		InitialInterval: policy.InitialInterval,
		MaxInterval:     policy.MaxInterval,
		MaxElapsedTime:  policy.MaxElapsedTime,
		Multiplier:      policy.Multiplier,
		JitterFactor:    policy.JitterFactor,
	})
}

// retryAfterDelay parses a Retry-After header (seconds or HTTP-date)
// from err's response snapshot. Returns 0 if absent or invalid.
func retryAfterDelay(err *Error) time.Duration {
	if err.Response == nil {
		return 0
	}
	value := err.Response.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, ok := parseRetryAfterSeconds(value); ok {
		return time.Duration(seconds) * time.Second
	}
	if when, ok := parseRetryAfterDate(value); ok {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// parseRetryAfterSeconds parses the numeric-seconds form of Retry-After.
func parseRetryAfterSeconds(value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseRetryAfterDate parses the HTTP-date form of Retry-After.
func parseRetryAfterDate(value string) (time.Time, bool) {
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
