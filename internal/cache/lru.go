// Package cache provides the in-memory caches used by the Bolder server:
// a byte-bounded LRU keyed by BLAKE3 digest for annotation results, and a
// single-value snapshot with time-based expiration for settings.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/blake3"
)

// Sum returns the hex BLAKE3-256 digest of data, as printed by b3sum.
func Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Key returns a cache key over several parts. Each part is length-framed
// so ("ab","c") and ("a","bc") differ.
func Key(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats contains cache statistics.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Size       int   `json:"size"`
	MaxSize    int   `json:"max_size"`
	TotalBytes int64 `json:"total_bytes"`
}

// Config contains LRU configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// MaxBytes bounds the summed entry sizes (0 = unlimited).
	MaxBytes int64

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration
}

// DefaultConfig returns the configuration used for annotation results.
func DefaultConfig() Config {
	return Config{
		MaxSize:  256,
		MaxBytes: 32 << 20,
		TTL:      10 * time.Minute,
	}
}

type entry[V any] struct {
	value V
	size  int64
}

// LRU is a thread-safe least-recently-used cache bounded by entry count
// and by the byte size reported by its size function. Entry order and
// expiry come from golang-lru's expirable cache; the byte budget is kept
// here through its eviction callback.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	config    Config
	sizeFunc  func(V) int64
	lru       *expirable.LRU[K, entry[V]]
	bytes     atomic.Int64
	hits      int64
	misses    int64
	evictions int64
}

// NewLRU creates a cache. A nil sizeFunc counts every entry as zero bytes,
// leaving only the entry limit in force.
func NewLRU[K comparable, V any](config Config, sizeFunc func(V) int64) *LRU[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	if sizeFunc == nil {
		sizeFunc = func(V) int64 { return 0 }
	}
	c := &LRU[K, V]{config: config, sizeFunc: sizeFunc}
	// The callback also runs from the expiry goroutine, so it only touches
	// the atomic byte count.
	c.lru = expirable.NewLRU[K, entry[V]](config.MaxSize, func(_ K, e entry[V]) {
		c.bytes.Add(-e.size)
	}, config.TTL)
	return c
}

// Get retrieves a value and marks it most recently used. Expired entries
// are misses.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put stores a value, evicting least recently used entries until both
// limits hold. A value larger than MaxBytes on its own is not cached.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing in place skips the callback, so drop the old entry first
	// to keep the byte count right.
	c.lru.Remove(key)

	size := c.sizeFunc(value)
	if c.config.MaxBytes > 0 && size > c.config.MaxBytes {
		return
	}
	c.bytes.Add(size)
	if c.lru.Add(key, entry[V]{value: value, size: size}) {
		c.evictions++
	}
	for c.overLimit() {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		c.evictions++
	}
}

func (c *LRU[K, V]) overLimit() bool {
	return c.config.MaxBytes > 0 && c.lru.Len() > 1 && c.bytes.Load() > c.config.MaxBytes
}

// Remove removes a value from the cache.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Clear removes all entries from the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of entries in the cache, counting expired entries
// the background cleanup has not reached yet.
func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		Size:       c.lru.Len(),
		MaxSize:    c.config.MaxSize,
		TotalBytes: c.bytes.Load(),
	}
}
