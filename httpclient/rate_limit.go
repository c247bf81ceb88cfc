package httpclient

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a request is rejected due to rate limiting.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitStore lets a scoped Limiter observe a bucket's token count
// through something other than the in-process rate.Limiter — notably
// RedisBucketStore below. It's best-effort: a store that disagrees with
// another process's view does not stall requests, it just means the
// "requests per second" ceiling is approximate across processes.
type RateLimitStore interface {
	// Observe records that n tokens were drawn from key at t, so a
	// shared observer can reconstruct approximate usage.
	Observe(ctx context.Context, key string, n int, t time.Time) error
}

// RedisBucketStore mirrors token-bucket draws into a Redis key via a
// fixed-window counter, so an operator can observe aggregate draw rate
// across a process fleet. It never gates a request itself — the
// in-process rate.Limiter remains the sole admission decision, per
// spec.md's Non-goal on distributed coordination.
type RedisBucketStore struct {
	Client redis.UniversalClient
	Window time.Duration
}

// NewRedisBucketStore returns a RedisBucketStore with a 1-second window.
func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{Client: client, Window: time.Second}
}

// Observe increments a windowed counter for key in Redis.
func (s *RedisBucketStore) Observe(ctx context.Context, key string, n int, t time.Time) error {
	if s.Client == nil {
		return nil
	}
	window := s.Window
	if window <= 0 {
		window = time.Second
	}
	bucketKey := "httpclient:ratelimit:" + key + ":" + t.Truncate(window).Format(time.RFC3339)
	pipe := s.Client.TxPipeline()
	pipe.IncrBy(ctx, bucketKey, int64(n))
	pipe.Expire(ctx, bucketKey, window*2)
	_, err := pipe.Exec(ctx)
	return err
}

// Limiter is the orchestrator's scope-keyed rate limiter (C6): one
// rate.Limiter per scope key, created lazily.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	policy  RateLimitPolicy
	scopeFn func(*Request) string
}

// NewLimiter builds a Limiter from a resolved RateLimitPolicy, choosing
// a scope function from policy.Scope unless policy.ScopeFunc overrides it.
func NewLimiter(policy RateLimitPolicy) *Limiter {
	scopeFn := policy.ScopeFunc
	if scopeFn == nil {
		switch policy.Scope {
		case ScopeDomain:
			scopeFn = ScopeByDomain
		case ScopeEndpoint:
			scopeFn = ScopeByEndpoint
		default:
			scopeFn = ScopeByGlobal
		}
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		policy:  policy,
		scopeFn: scopeFn,
	}
}

// ScopeByGlobal puts every request in a single shared bucket.
func ScopeByGlobal(*Request) string { return "__global__" }

// ScopeByDomain buckets by the request's host.
func ScopeByDomain(r *Request) string {
	if r == nil || r.URL == nil {
		return "__unknown__"
	}
	return r.URL.Host
}

// ScopeByEndpoint buckets by method + path, query stripped.
func ScopeByEndpoint(r *Request) string {
	if r == nil || r.URL == nil {
		return "__unknown__"
	}
	return r.Method + " " + r.URL.Path
}

// subject reports whether req is subject to limiting at all, honoring
// Include/Exclude glob filters. No Include patterns means "all paths
// are subject" unless excluded.
func (l *Limiter) subject(req *Request) bool {
	if req == nil || req.URL == nil {
		return true
	}
	p := req.URL.Path
	for _, pattern := range l.policy.Exclude {
		if globMatch(pattern, p) {
			return false
		}
	}
	if len(l.policy.Include) == 0 {
		return true
	}
	for _, pattern := range l.policy.Include {
		if globMatch(pattern, p) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		return strings.Contains(name, pattern)
	}
	return ok
}

// bucket returns (creating if needed) the rate.Limiter for req's scope.
func (l *Limiter) bucket(req *Request) *rate.Limiter {
	key := l.scopeFn(req)

	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = rate.NewLimiter(rate.Limit(l.policy.RequestsPerSecond), l.policy.Burst)
	l.buckets[key] = b
	return b
}

// Admit blocks (or fails fast, per policy.WaitOnLimit) until req may
// proceed under its scope's bucket. Returns the time spent waiting.
func (l *Limiter) Admit(ctx context.Context, req *Request) (time.Duration, error) {
	if !l.policy.Enabled || !l.subject(req) {
		return 0, nil
	}
	b := l.bucket(req)
	start := time.Now()

	if l.policy.WaitOnLimit {
		if err := b.Wait(ctx); err != nil {
			return time.Since(start), err
		}
	} else if !b.Allow() {
		return 0, ErrRateLimited
	}

	wait := time.Since(start)
	if l.policy.Store != nil {
		_ = l.policy.Store.Observe(ctx, l.scopeFn(req), 1, start)
	}
	return wait, nil
}
