// Package cache keeps rendered public responses in memory, indexed by path
// and tag so revalidation can drop them.
package cache

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"conciertapp/internal/metrics"
)

// Entry is a cached response.
type Entry struct {
	Key         string
	Path        string
	Tags        []string
	Status      int
	ContentType string
	Body        []byte
}

// Config sizes the cache.
type Config struct {
	MaxBytes int64
	TTL      time.Duration
}

// Cache is safe for concurrent use.
type Cache struct {
	store *ristretto.Cache[string, Entry]
	ttl   time.Duration

	mu     sync.Mutex
	byPath map[string]map[string]struct{}
	byTag  map[string]map[string]struct{}
}

// New creates a cache bounded by cfg.MaxBytes of response bodies.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}

	c := &Cache{
		ttl:    cfg.TTL,
		byPath: make(map[string]map[string]struct{}),
		byTag:  make(map[string]map[string]struct{}),
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		NumCounters: 1e5,
		MaxCost:     cfg.MaxBytes,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[Entry]) {
			c.unindex(item.Value)
		},
		OnReject: func(item *ristretto.Item[Entry]) {
			c.unindex(item.Value)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	c.store = store
	return c, nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.store.Get(key)
	if ok {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return e, ok
}

// Set stores e under e.Key and waits until it is visible to Get.
func (c *Cache) Set(e Entry) bool {
	cost := int64(len(e.Body)) + 1
	var ok bool
	if c.ttl > 0 {
		ok = c.store.SetWithTTL(e.Key, e, cost, c.ttl)
	} else {
		ok = c.store.Set(e.Key, e, cost)
	}
	if !ok {
		return false
	}
	c.store.Wait()
	c.index(e)
	return true
}

// InvalidatePath drops every entry cached for path and returns how many
// keys were dropped.
func (c *Cache) InvalidatePath(path string) int {
	n := c.invalidate(c.byPath, path)
	metrics.CacheInvalidations.WithLabelValues("path").Add(float64(n))
	return n
}

// InvalidateTag drops every entry labelled with tag.
func (c *Cache) InvalidateTag(tag string) int {
	n := c.invalidate(c.byTag, tag)
	metrics.CacheInvalidations.WithLabelValues("tag").Add(float64(n))
	return n
}

func (c *Cache) invalidate(index map[string]map[string]struct{}, name string) int {
	keys := c.snapshot(index, name)
	c.drop(index, name, keys)
	return len(keys)
}

func (c *Cache) snapshot(index map[string]map[string]struct{}, name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(index[name]))
	for k := range index[name] {
		keys = append(keys, k)
	}
	return keys
}

// drop deletes keys and unlinks only those keys from index[name]. Entries
// indexed after the snapshot stay reachable for the next invalidation.
func (c *Cache) drop(index map[string]map[string]struct{}, name string, keys []string) {
	for _, k := range keys {
		if e, ok := c.store.Get(k); ok {
			c.unindex(e)
		}
		c.store.Del(k)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		remove(index, name, k)
	}
}

func (c *Cache) index(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	add(c.byPath, e.Path, e.Key)
	for _, t := range e.Tags {
		add(c.byTag, t, e.Key)
	}
}

func (c *Cache) unindex(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remove(c.byPath, e.Path, e.Key)
	for _, t := range e.Tags {
		remove(c.byTag, t, e.Key)
	}
}

func add(index map[string]map[string]struct{}, name, key string) {
	set, ok := index[name]
	if !ok {
		set = make(map[string]struct{})
		index[name] = set
	}
	set[key] = struct{}{}
}

func remove(index map[string]map[string]struct{}, name, key string) {
	set, ok := index[name]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(index, name)
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware serves GET requests from the cache and stores successful
// responses labelled with tags.
func (c *Cache) Middleware(tags ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.Path + "?" + r.URL.RawQuery
			if e, ok := c.Get(key); ok {
				if e.ContentType != "" {
					w.Header().Set("Content-Type", e.ContentType)
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(e.Status)
				_, _ = w.Write(e.Body)
				return
			}

			w.Header().Set("X-Cache", "MISS")
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK {
				c.Set(Entry{
					Key:         key,
					Path:        r.URL.Path,
					Tags:        tags,
					Status:      rec.status,
					ContentType: w.Header().Get("Content-Type"),
					Body:        bytes.Clone(rec.body.Bytes()),
				})
			}
		})
	}
}
