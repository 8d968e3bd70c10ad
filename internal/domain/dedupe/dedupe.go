// Package dedupe tracks observed player instances so consolidation folds
// stay idempotent.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// Deduper records seen provenance keys so a re-fetched or retried report
// can never inflate aggregate counts.
type Deduper interface {
	// SeenAndRecord atomically checks if the instance was seen and
	// records it if not. Returns true if it was already seen, false if
	// it was newly recorded. This is the ONLY method for deduplication,
	// thread-safe and atomic.
	SeenAndRecord(ctx context.Context, key types.InstanceKey) bool

	// Unrecord removes an instance from the seen list, allowing it to
	// be folded again. Use only when an instance was marked seen but
	// its fold never landed.
	Unrecord(ctx context.Context, key types.InstanceKey)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	key  types.InstanceKey
	next *node
}

// reset clears the node state for reuse.
func (n *node) reset() {
	n.key = types.InstanceKey{}
	n.next = nil
}

// inMemoryDeduper implements Deduper with an in-memory map.
// Bounded mode (maxSize > 0) keeps a linked list for LIFO eviction and a
// sync.Pool for nodes; unbounded mode (maxSize <= 0) is a plain map.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[types.InstanceKey]*node // node pointer in bounded mode, nil otherwise
	head     *node                       // most recently added
	maxSize  int                         // 0 or negative = unbounded
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000, // default max size
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[types.InstanceKey]*node)

	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return d
}

// SeenAndRecord atomically checks if the instance was seen and records it
// if not. Returns true if it was already seen, false if newly recorded.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key types.InstanceKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictLIFO()
		}

		n := d.nodePool.Get().(*node)
		n.key = key
		n.next = d.head

		d.head = n
		d.seen[key] = n
	} else {
		d.seen[key] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes an instance from the seen list.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, key types.InstanceKey) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.maxSize > 0 {
		if n, exists := d.seen[key]; exists {
			delete(d.seen, key)

			if d.head == n {
				d.head = n.next
			} else {
				current := d.head
				for current != nil && current.next != n {
					current = current.next
				}
				if current != nil {
					current.next = n.next
				}
			}

			n.reset()
			d.nodePool.Put(n)

			d.size.Add(-1)
		}
	} else {
		if _, exists := d.seen[key]; exists {
			delete(d.seen, key)
			d.size.Add(-1)
		}
	}
}

// evictLIFO removes the oldest entry (tail of the list) from the map.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictLIFO() {
	if len(d.seen) == 0 || d.head == nil {
		return
	}

	var prev *node
	current := d.head

	if current.next == nil {
		delete(d.seen, current.key)
		current.reset()
		d.nodePool.Put(current)
		d.head = nil
		d.size.Add(-1)
		return
	}

	for current.next != nil {
		prev = current
		current = current.next
	}

	if prev != nil {
		prev.next = nil
		delete(d.seen, current.key)
		current.reset()
		d.nodePool.Put(current)
		d.size.Add(-1)
	}
}

// Size returns the current number of tracked instances.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
