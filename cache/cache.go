// Package cache is a read-through cache in front of Log.Read, generalizing
// the fixed-capacity LRU described in original_source/src/include/zlog/cache.h
// and eviction/lru.h (zlog::LRUEviction) onto
// github.com/hashicorp/golang-lru/v2, the way tessera's go.mod pulls in
// the same module for its own read caches.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/op/go-logging"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Options mirrors zlog::Options' cache-relevant fields: a fixed entry
// budget, no TTL (the C++ cache.h has no time-based eviction either).
type Options struct {
	// MaxEntries bounds the number of (position -> payload) pairs held at
	// once. Zero disables caching.
	MaxEntries int
}

// key identifies one cached read by the object the position maps to and
// the position itself, so two different logs (or, after a view_extend,
// two different objects backing the same stripe) never collide.
type key struct {
	oid      string
	position uint64
}

// ReadCache is a fixed-size LRU cache of successfully read entries. It
// never caches Unwritten or Invalidated outcomes: an Unwritten slot can
// still become Taken or Invalid, but a Taken slot's payload bytes are never
// rewritten (spec.md invariant 6), so only OK reads are cached.
type ReadCache struct {
	inner *lru.Cache[key, []byte]
}

// New returns a cache honoring opts. A zero-value Options disables
// caching: every Get reports a miss and every Put is a no-op.
func New(opts Options) *ReadCache {
	if opts.MaxEntries <= 0 {
		logger.Debugf("cache disabled: MaxEntries <= 0")
		return &ReadCache{}
	}
	c, err := lru.New[key, []byte](opts.MaxEntries)
	if err != nil {
		// Only returned for a non-positive size, already excluded above.
		panic(err)
	}
	return &ReadCache{inner: c}
}

// Get returns the cached payload for (oid, position), if present.
func (c *ReadCache) Get(oid string, position uint64) ([]byte, bool) {
	if c.inner == nil {
		return nil, false
	}
	return c.inner.Get(key{oid, position})
}

// Put records a successfully read, permanent payload.
func (c *ReadCache) Put(oid string, position uint64, data []byte) {
	if c.inner == nil {
		return
	}
	c.inner.Add(key{oid, position}, data)
}

// Len reports the number of entries currently cached.
func (c *ReadCache) Len() int {
	if c.inner == nil {
		return 0
	}
	return c.inner.Len()
}
