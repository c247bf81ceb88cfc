package httpclient

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Deduplicator coalesces concurrent identical requests via
// singleflight.Group (the teacher's exact library, generalized here
// from one group per client to one group plus an optional short-TTL
// result cache layered on top — spec.md §4.7's "cache entries stay
// at or under MaxCacheSize" invariant). No suitable third-party LRU
// appears anywhere in the retrieval pack, so the cache below is the
// one hand-rolled, stdlib-only piece of this component.
type Deduplicator struct {
	group singleflight.Group
	cache *lruCache
}

// NewDeduplicator builds a Deduplicator honoring policy's cache sizing.
func NewDeduplicator(policy DedupPolicy) *Deduplicator {
	d := &Deduplicator{}
	if policy.CacheTTL > 0 {
		d.cache = newLRUCache(policy.MaxCacheSize, policy.CacheTTL)
	}
	return d
}

// key derives the coalescing key for req per policy.
func dedupKey(req *Request, policy DedupPolicy) string {
	if policy.KeyFunc != nil {
		return policy.KeyFunc(req)
	}
	switch policy.Key {
	case KeyURLMethodBody:
		return GenerateCoalesceKey(req.Method, req.URL.String(), req.Body)
	case KeyURLMethod:
		return req.Method + "|" + req.URL.String()
	default:
		return req.URL.String()
	}
}

// Do runs fn, coalescing concurrent calls that share req's dedup key
// and, if a cache is configured, serving a recent result without
// calling fn at all. Returns the result, whether it was served from
// the in-flight group (shared==true means a concurrent caller, not
// this goroutine, actually ran fn), and any error.
func (d *Deduplicator) Do(req *Request, policy DedupPolicy, fn func() (*Response, error)) (*Response, bool, error) {
	key := dedupKey(req, policy)

	if d.cache != nil {
		if cached, ok := d.cache.get(key); ok {
			return cached.clone(), true, nil
		}
	}

	v, err, shared := d.group.Do(key, func() (any, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		// Drain the body into resp's cache now, while this is still the
		// only goroutine holding it: a follower's clone() below only
		// deep-copies already-cached bytes, so if the body were left
		// unread, leader and follower would race to read (and close)
		// the same underlying http.Response.Body.
		if _, err := resp.Body(); err != nil {
			return nil, err
		}
		if d.cache != nil {
			d.cache.put(key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, shared, err
	}
	resp := v.(*Response)
	if shared {
		// A follower attached to someone else's call must not share
		// the leader's mutable Response; clone it defensively, the
		// same way the teacher's mock_transport.go clones stubbed
		// responses before handing them to a second caller.
		resp = resp.clone()
	}
	return resp, shared, nil
}

// lruCache is a small, size-bounded, TTL-aware cache: a doubly-linked
// list for recency plus a map for O(1) lookup, the textbook LRU shape.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key      string
	value    *Response
	expireAt time.Time
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*lruEntry)
	if time.Now().After(entry.expireAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return entry.value, true
}

func (c *lruCache) put(key string, value *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruEntry).value = value
		el.Value.(*lruEntry).expireAt = time.Now().Add(c.ttl)
		return
	}

	el := c.ll.PushFront(&lruEntry{key: key, value: value, expireAt: time.Now().Add(c.ttl)})
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}
