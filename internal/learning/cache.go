// Package learning keeps the most recent learning pattern per contact.
package learning

import (
	"context"
	"hash/maphash"
	"sync"

	"github.com/sells-group/leadscore/internal/model"
)

// Cache stores one pattern per contact. Put overwrites.
type Cache interface {
	Get(ctx context.Context, contactID string) (model.LearningPattern, bool)
	Put(ctx context.Context, p model.LearningPattern)
	Len() int
}

const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	items map[string]model.LearningPattern
}

// MemoryCache is a sharded in-process Cache safe for concurrent use.
type MemoryCache struct {
	seed   maphash.Seed
	shards [shardCount]*shard
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{seed: maphash.MakeSeed()}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]model.LearningPattern)}
	}
	return c
}

func (c *MemoryCache) shardFor(contactID string) *shard {
	return c.shards[maphash.String(c.seed, contactID)%shardCount]
}

func (c *MemoryCache) Get(_ context.Context, contactID string) (model.LearningPattern, bool) {
	s := c.shardFor(contactID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[contactID]
	return p, ok
}

func (c *MemoryCache) Put(_ context.Context, p model.LearningPattern) {
	s := c.shardFor(p.ContactID)
	s.mu.Lock()
	s.items[p.ContactID] = p
	s.mu.Unlock()
}

// Len counts entries across all shards.
func (c *MemoryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
