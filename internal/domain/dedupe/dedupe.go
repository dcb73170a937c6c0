// Package dedupe tracks claims on analysis targets so the same stream is
// never analyzed by two live pipelines at once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records claimed target keys until they are released.
type Guard interface {
	// Claim atomically records key if it is free. Returns false if the key
	// was already claimed. Safe for concurrent use.
	Claim(ctx context.Context, key string) bool

	// Release frees a claimed key so the target can be analyzed again.
	// Releasing an unclaimed key is a no-op.
	Release(ctx context.Context, key string)

	// Size returns the current number of claimed keys.
	Size() int64
}

// node is one entry in the bounded claim list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// memoryGuard implements Guard in memory. With maxSize > 0 the guard is
// bounded: a linked list evicts the oldest claim when the cap is reached,
// so a caller that leaks claims cannot grow memory without limit. With
// maxSize <= 0 claims live in a plain map until released.
type memoryGuard struct {
	mu       sync.RWMutex
	claimed  map[string]*node // key -> list node in bounded mode, nil in unbounded
	head     *node            // most recent claim
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// New creates an in-memory guard.
func New(opts ...Option) Guard {
	g := &memoryGuard{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.claimed = make(map[string]*node)
	if g.maxSize > 0 {
		g.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return g
}

// Claim atomically records key if it is free.
func (g *memoryGuard) Claim(ctx context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.claimed[key]; exists {
		return false
	}

	if g.maxSize > 0 {
		if len(g.claimed) >= g.maxSize {
			g.evictOldest()
		}

		n := g.nodePool.Get().(*node)
		n.key = key
		n.next = g.head

		g.head = n
		g.claimed[key] = n
	} else {
		g.claimed[key] = nil
	}
	g.size.Add(1)
	return true
}

// Release frees a claimed key.
func (g *memoryGuard) Release(ctx context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.claimed[key]
	if !exists {
		return
	}
	delete(g.claimed, key)
	g.size.Add(-1)

	if g.maxSize <= 0 {
		return
	}

	// Unlink from the bounded list and recycle the node.
	if g.head == n {
		g.head = n.next
	} else {
		current := g.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}
	n.reset()
	g.nodePool.Put(n)
}

// evictOldest drops the oldest claim, the tail of the list. Callers hold
// g.mu.
func (g *memoryGuard) evictOldest() {
	if len(g.claimed) == 0 || g.head == nil {
		return
	}

	current := g.head
	if current.next == nil {
		delete(g.claimed, current.key)
		current.reset()
		g.nodePool.Put(current)
		g.head = nil
		g.size.Add(-1)
		return
	}

	var prev *node
	for current.next != nil {
		prev = current
		current = current.next
	}

	prev.next = nil
	delete(g.claimed, current.key)
	current.reset()
	g.nodePool.Put(current)
	g.size.Add(-1)
}

// Size returns the current number of claimed keys.
func (g *memoryGuard) Size() int64 {
	return g.size.Load()
}
