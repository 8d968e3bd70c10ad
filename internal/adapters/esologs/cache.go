package esologs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// CacheStats is a snapshot of cache counters since the client started.
type CacheStats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// responseCache keeps raw API responses in a bounded in-memory tier
// backed by an optional disk tier. Report data is immutable once the
// report exists, so entries never expire.
type responseCache struct {
	mem *lru.Cache[string, []byte]
	dir string

	memHits  atomic.Int64
	diskHits atomic.Int64
	misses   atomic.Int64
}

func newResponseCache(size int, dir string) (*responseCache, error) {
	mem, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
		}
	}
	return &responseCache{mem: mem, dir: dir}, nil
}

func (c *responseCache) get(key string) ([]byte, bool) {
	if data, ok := c.mem.Get(key); ok {
		c.memHits.Add(1)
		metrics.RecordCacheHit("memory")
		return data, true
	}
	metrics.RecordCacheMiss("memory")

	if c.dir != "" {
		if data, err := os.ReadFile(c.path(key)); err == nil {
			c.mem.Add(key, data)
			c.diskHits.Add(1)
			metrics.RecordCacheHit("disk")
			return data, true
		}
		metrics.RecordCacheMiss("disk")
	}

	c.misses.Add(1)
	return nil, false
}

func (c *responseCache) put(key string, data []byte) {
	c.mem.Add(key, data)
	if c.dir == "" {
		return
	}
	// Disk tier failures are invisible to callers; the entry stays
	// served from memory.
	_ = os.WriteFile(c.path(key), data, 0o644)
}

// path maps a cache key to a stable filename. Keys embed report codes
// from an external service, so they are hashed rather than trusted as
// path components.
func (c *responseCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *responseCache) stats() CacheStats {
	return CacheStats{
		MemoryHits: c.memHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}
