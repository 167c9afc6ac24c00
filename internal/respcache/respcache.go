// Package respcache implements an in-memory store for cached HTTP responses.
package respcache

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gohugoio/httpcache"
)

const cleanUpIntervalDefault = time.Minute * 10

// Cache stores serialized responses for [httpcache.Transport].
// Entries expire after a fixed time to live, regardless of the caching headers of a response.
type Cache struct {
	closeC chan struct{}
	closed atomic.Bool
	items  sync.Map
	ttl    time.Duration
}

var _ httpcache.Cache = (*Cache)(nil)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New returns a new cache which keeps responses for ttl.
// A ttl of 0 means that responses never expire.
//
// Users should close the cache when it is no longer needed.
func New(ttl time.Duration) *Cache {
	return create(ttl, cleanUpIntervalDefault)
}

func create(ttl, cleanUpInterval time.Duration) *Cache {
	c := &Cache{
		closeC: make(chan struct{}),
		ttl:    ttl,
	}
	if ttl > 0 && cleanUpInterval > 0 {
		go func() {
			ticker := time.NewTicker(cleanUpInterval)
			defer ticker.Stop()
			for {
				select {
				case <-c.closeC:
					return
				case <-ticker.C:
				}
				c.CleanUp()
			}
		}()
	}
	return c
}

// Transport returns a caching transport storing its responses in c.
// If base is nil, [http.DefaultTransport] is used.
func (c *Cache) Transport(base http.RoundTripper) *httpcache.Transport {
	return &httpcache.Transport{Cache: c, Transport: base, MarkCachedResponses: true}
}

// CleanUp removes all expired responses.
func (c *Cache) CleanUp() {
	var n int
	c.items.Range(func(key, value any) bool {
		if value.(entry).isExpired() {
			c.items.Delete(key)
			n++
		}
		return true
	})
	slog.Debug("response cache clean-up completed", "removed", n)
}

// Close stops the automatic clean-up. It is safe to call Close more than once.
func (c *Cache) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.closeC)
	}
}

// Delete removes the response stored under key.
func (c *Cache) Delete(key string) {
	c.items.Delete(key)
}

// Get returns the response stored under key, unless it is expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if e.isExpired() {
		return nil, false
	}
	return e.data, true
}

// Len returns the number of stored responses, including expired ones.
func (c *Cache) Len() int {
	var n int
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Set stores a response under key. An existing response is replaced.
func (c *Cache) Set(key string, data []byte) {
	var at time.Time
	if c.ttl > 0 {
		at = time.Now().Add(c.ttl)
	}
	c.items.Store(key, entry{data: data, expiresAt: at})
}

func (e entry) isExpired() bool {
	return !e.expiresAt.IsZero() && time.Until(e.expiresAt) < 0
}
