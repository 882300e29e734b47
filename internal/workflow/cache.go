package workflow

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// TTLCache memoizes collaborator calls by operation name, each with its
// own TTL. A read within the TTL returns the cached value without
// invoking the underlying call; a read past the TTL re-fetches.
//
// Reads are safe concurrently; writes are serialized per key so two
// concurrent misses on the same operation invoke the collaborator once.
type TTLCache struct {
	backing *cache.Cache
	ttlFor  func(operation string) time.Duration

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewTTLCache creates a cache. ttlFor maps an operation name to its
// TTL; zero or negative means the operation is never cached.
func NewTTLCache(ttlFor func(operation string) time.Duration) *TTLCache {
	return &TTLCache{
		// Default expiration is unused; every entry carries its own TTL.
		backing:  cache.New(cache.NoExpiration, time.Minute),
		ttlFor:   ttlFor,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// Do returns the cached value for the operation when fresh, otherwise
// invokes fetch and caches a successful result. Errors are never
// cached.
func (c *TTLCache) Do(operation string, fetch func() (interface{}, error)) (interface{}, error) {
	ttl := c.ttlFor(operation)
	if ttl <= 0 {
		return fetch()
	}

	lock := c.lockFor(operation)
	lock.Lock()
	defer lock.Unlock()

	if value, found := c.backing.Get(operation); found {
		return value, nil
	}

	value, err := fetch()
	if err != nil {
		return nil, err
	}
	c.backing.Set(operation, value, ttl)
	return value, nil
}

// Invalidate drops the cached value for an operation.
func (c *TTLCache) Invalidate(operation string) {
	c.backing.Delete(operation)
}

func (c *TTLCache) lockFor(operation string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.keyLocks[operation]
	if !ok {
		lock = &sync.Mutex{}
		c.keyLocks[operation] = lock
	}
	return lock
}
