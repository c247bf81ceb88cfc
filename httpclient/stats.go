package httpclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// StatsEventKind is a closed tagged union: every event the core ever
// emits is one of these kinds. Sinks exhaustively match on Kind rather
// than type-switching over a variadic payload.
type StatsEventKind int

const (
	EventRequestStart StatsEventKind = iota
	EventRequestSuccess
	EventRequestFail
	EventRequestRetry
	EventDedupHit
	EventDedupMiss
	EventDebounceCancel
	EventDebounceDispatch
	EventRateLimitWait
	EventRateLimitAdmit
	EventHedgeLaunch
	EventHedgeWin
	EventHedgeCancel
)

// StatsEvent is the single value type the stats bus emits. Every field
// outside Kind is optional and interpreted per-kind; the consuming sink
// (external to this module) is expected to match on Kind before reading
// the event-specific numerics.
type StatsEvent struct {
	Kind      StatsEventKind
	RequestID string
	Domain    string
	Method    string
	Endpoint  string
	Tags      []string

	// Event-specific numerics. Not all fields apply to all kinds.
	Attempt    int           // EventRequestRetry, EventRequestFail
	DurationNs int64         // EventRequestSuccess, EventRequestFail, EventRateLimitWait
	HedgeIndex int           // EventHedgeLaunch, EventHedgeWin
	StatusCode int           // EventRequestSuccess, EventRequestFail
	ErrorKind  ErrorKind     // EventRequestFail
}

// StatsSink receives StatsEvents. Emission is fire-and-forget: a sink
// must not block, and a slow sink must not slow down request
// processing — see Bus.
type StatsSink func(StatsEvent)

// Bus is a fire-and-forget, non-blocking event emitter. It is the one
// shared mutable structure every call path writes to, so its internal
// queue is itself protected against concurrent publishers.
type Bus struct {
	mu      sync.RWMutex
	sinks   []StatsSink
	queue   chan StatsEvent
	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
}

// NewBus creates a Bus with the given buffered-channel capacity. A full
// buffer drops the oldest event rather than block the publisher —
// emission is best-effort per spec.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	b := &Bus{
		queue: make(chan StatsEvent, capacity),
		done:  make(chan struct{}),
	}
	go b.drain()
	return b
}

// Subscribe registers a sink. Safe to call concurrently with Emit.
func (b *Bus) Subscribe(sink StatsSink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Emit publishes an event without blocking the caller. If the internal
// queue is full, the oldest queued event is discarded to make room —
// an incident in progress is more interesting than one that already
// happened — and the dropped-event counter is incremented (observable
// via Dropped()).
func (b *Bus) Emit(ev StatsEvent) {
	select {
	case b.queue <- ev:
		return
	default:
	}
	select {
	case <-b.queue:
		b.dropped.Add(1)
	default:
	}
	select {
	case b.queue <- ev:
	default:
		// Drain raced with a concurrent publisher and refilled the slot;
		// count this event as dropped rather than block.
		b.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped due to a full queue.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) drain() {
	for {
		select {
		case ev := <-b.queue:
			b.mu.RLock()
			sinks := b.sinks
			b.mu.RUnlock()
			for _, sink := range sinks {
				sink(ev)
			}
		case <-b.done:
			return
		}
	}
}

// Close stops the drain goroutine. Safe to call multiple times.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}

// otelStatsSink adapts the typed stats bus into the OpenTelemetry meter
// instruments the ambient stack wires by default, so both observability
// paths share one emission point (§3 of SPEC_FULL.md).
func otelStatsSink(m *metrics) StatsSink {
	if m == nil {
		return func(StatsEvent) {}
	}
	ctx := context.Background()
	return func(ev StatsEvent) {
		attrs := []attribute.KeyValue{
			attribute.String("http.endpoint", ev.Endpoint),
			attribute.String("http.method", ev.Method),
		}
		switch ev.Kind {
		case EventRequestRetry:
			m.recordRetryAttempt(ctx, attrs, ev.Attempt)
		case EventRequestFail:
			if ev.Attempt > 0 {
				m.recordRetryExhausted(ctx, attrs)
			}
			m.recordError(ctx, ev.ErrorKind.String(), attrs)
		case EventDedupHit:
			m.recordDedupHit(ctx, attrs)
		case EventDedupMiss:
			m.recordDedupMiss(ctx, attrs)
		case EventDebounceCancel:
			m.recordDebounceCancel(ctx, attrs)
		case EventRateLimitWait:
			m.recordRateLimitWait(ctx, attrs, time.Duration(ev.DurationNs))
		case EventHedgeLaunch:
			m.recordHedgeLaunch(ctx, attrs)
		case EventHedgeWin:
			m.recordHedgeWin(ctx, attrs)
		}
	}
}
