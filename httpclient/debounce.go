package httpclient

import (
	"errors"
	"sync"
)

// ErrDebounced is the Cause wrapped in a KindAbort Error when a call
// is superseded by a newer one with the same debounce key before its
// delay elapses.
var ErrDebounced = errors.New("httpclient: superseded by a newer call")

// debounceEntry tracks one pending, not-yet-dispatched call for a
// given key. A newer call for the same key fires supersede, which
// Compose reports to the waiter as ReasonDebounced.
type debounceEntry struct {
	signal    Signal
	supersede func()
}

// debouncer holds one pending entry per key, guarded by a mutex — the
// same "timer + mutex-guarded map + replace-and-cancel-previous"
// shape the teacher uses for its windowed latency bookkeeping,
// generalized here to the debounce semantics spec.md requires (the
// teacher has no debounce feature of its own).
type debouncer struct {
	mu      sync.Mutex
	pending map[string]*debounceEntry
}

func newDebouncer() *debouncer {
	return &debouncer{pending: make(map[string]*debounceEntry)}
}

// debounceKey derives the coalescing key for req per policy.
func debounceKey(req *Request, policy DebouncePolicy) string {
	if policy.KeyFunc != nil {
		return policy.KeyFunc(req)
	}
	switch policy.Key {
	case DebounceKeyURLMethodBody:
		return req.Method + " " + req.URL.String() + ":" + string(req.Body)
	case DebounceKeyURLMethod:
		return req.Method + " " + req.URL.String()
	default:
		return req.URL.String()
	}
}

// Wait blocks until either the debounce delay elapses (returning nil,
// the call should proceed) or the entry is superseded by a newer call
// for the same key (returning a KindAbort error wrapping ErrDebounced)
// or the caller's own signal fires first.
func (d *debouncer) Wait(ctx *Context) error {
	policy := ctx.Req.DebouncePolicy
	if !policy.Enabled {
		return nil
	}
	key := debounceKey(ctx.Req, policy)

	timeoutSignal, cancelTimeout := ctx.Controller.Signal().WithTimeout(policy.Delay)
	supersedeSignal, supersede := newManualSignal()
	entrySignal, cancelComposed := Compose(ReasonDebounced, timeoutSignal, supersedeSignal)
	entry := &debounceEntry{signal: entrySignal, supersede: supersede}

	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.supersede()
	}
	d.pending[key] = entry
	d.mu.Unlock()

	defer cancelTimeout()
	defer cancelComposed()

	defer func() {
		d.mu.Lock()
		if d.pending[key] == entry {
			delete(d.pending, key)
		}
		d.mu.Unlock()
	}()

	<-entry.signal.Done()

	switch entry.signal.Reason() {
	case ReasonTimeout:
		// Delay elapsed without a newer call superseding this one.
		return nil
	case ReasonUser:
		return newError(KindAbort, nil, nil, ctx.Req.Tags, ctx.Attempt, ctx.Controller.Signal().Err())
	default:
		// Superseded: a newer call replaced our map entry and canceled us.
		return newError(KindAbort, nil, nil, ctx.Req.Tags, ctx.Attempt, ErrDebounced)
	}
}
