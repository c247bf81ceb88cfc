package httpclient

import (
	"fmt"
	"net/http"
)

// RoundTripper represents an HTTP round tripper for testing.
//
// Kept for backward compatibility with code written against the
// transport-wrapping entry points (NewTransport, NewWithTransport,
// WrapClient); the full orchestrator uses Transport (see transport_default.go)
// instead, since RoundTripper can't express attempt-scoped cancellation.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// ErrorKind tags every error the orchestrator surfaces to a caller.
// Exactly these six kinds exist; there is no seventh.
type ErrorKind int

const (
	// KindHTTP means the transport succeeded and the server returned a
	// status the caller's policy treats as failure.
	KindHTTP ErrorKind = iota
	// KindTimeout means the effective timeout (context deadline, client
	// timeout, or per-request timeout, whichever is shortest) elapsed.
	KindTimeout
	// KindAbort means a cancellation signal fired: user cancellation,
	// a debounce supersession, or a hedge loser being pruned.
	KindAbort
	// KindNetwork means the transport failed before a response was
	// received (DNS, connect, TLS, connection reset, etc.).
	KindNetwork
	// KindParse means the response body could not be decoded per the
	// response-type hint.
	KindParse
	// KindPlugin means a plugin step raised during onRequest, onResponse,
	// or onResponseError.
	KindPlugin
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "HTTP"
	case KindTimeout:
		return "TIMEOUT"
	case KindAbort:
		return "ABORT"
	case KindNetwork:
		return "NETWORK"
	case KindParse:
		return "PARSE"
	case KindPlugin:
		return "PLUGIN"
	default:
		return "UNKNOWN"
	}
}

// RequestSnapshot is an immutable copy of the fields of a Request that
// matter for error reporting, taken at the moment an Error is produced.
// Errors carry a snapshot rather than the live *http.Request because the
// request may keep mutating across retry attempts.
type RequestSnapshot struct {
	Method string
	URL    string
	Tags   []string
}

func snapshotRequest(req *http.Request, tags []string) RequestSnapshot {
	if req == nil {
		return RequestSnapshot{Tags: tags}
	}
	s := RequestSnapshot{Method: req.Method, Tags: tags}
	if req.URL != nil {
		s.URL = req.URL.String()
	}
	return s
}

// ResponseSnapshot is an immutable copy of response fields carried by an
// Error when the transport did succeed but produced an error-worthy
// status (KindHTTP).
type ResponseSnapshot struct {
	StatusCode int
	Status     string
	Header     http.Header
}

func snapshotResponse(resp *http.Response) *ResponseSnapshot {
	if resp == nil {
		return nil
	}
	return &ResponseSnapshot{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
	}
}

// Error is the single error type the orchestrator ever returns to a
// caller. Every user-visible failure is tagged with one of the six
// ErrorKind values and carries the attempt number it surfaced on.
type Error struct {
	Kind     ErrorKind
	Request  RequestSnapshot
	Response *ResponseSnapshot
	// Attempt is 1-based: the attempt on which this error was produced.
	Attempt int
	// Cause is the underlying error, if any (a wrapped transport error,
	// a parse error, or a plugin's returned error).
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("httpclient: %s (attempt %d) %s %s: %v",
			e.Kind, e.Attempt, e.Request.Method, e.Request.URL, e.Cause)
	}
	return fmt.Sprintf("httpclient: %s (attempt %d) %s %s",
		e.Kind, e.Attempt, e.Request.Method, e.Request.URL)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// newError builds an *Error, taking snapshots of the request and
// response as they stand at the moment of the failure.
func newError(kind ErrorKind, req *http.Request, resp *http.Response, tags []string, attempt int, cause error) *Error {
	return &Error{
		Kind:     kind,
		Request:  snapshotRequest(req, tags),
		Response: snapshotResponse(resp),
		Attempt:  attempt,
		Cause:    cause,
	}
}

// ResponseTypeHint tells the facade how to parse a response body.
type ResponseTypeHint int

const (
	// HintAuto sniffs the Content-Type header: application/json or any
	// "+json" suffix decodes as JSON, everything else falls back to text.
	HintAuto ResponseTypeHint = iota
	HintText
	HintJSON
	HintXML
	HintHTML
	HintBlob
	HintArrayBuffer
	HintStream
	HintNDJSON
)

// IdempotentMethods is the set of HTTP methods whose repetition is safe.
// Used by the default retry classifier and the hedging executor's
// default method gate.
var IdempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodTrace:   true,
}

// isIdempotent reports whether method is in IdempotentMethods.
func isIdempotent(method string) bool {
	return IdempotentMethods[method]
}
