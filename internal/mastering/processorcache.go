package mastering

import (
	"container/list"
	"sync"
)

// processorCacheEntry is the cached payload for one (track, preset,
// intensity) triple: its ProcessingState, so repeated chunk requests for the
// same configuration reuse warm envelope-follower state.
type processorCacheEntry struct {
	key   string
	state *ProcessingState
}

// ProcessorCache is a bounded LRU keyed by "trackID:preset:intensity"
// (see processorKey), evicting the
// least recently used entry once capacity is exceeded. Grounded on the
// OrderedDict + popitem(last=False) eviction pattern exercised by
// test_processor_cache_lru.py.
type ProcessorCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

// NewProcessorCache returns a cache bounded at ProcessorCacheMaxSize.
func NewProcessorCache() *ProcessorCache {
	return &ProcessorCache{
		capacity: ProcessorCacheMaxSize,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// GetOrCreate returns the cached ProcessingState for key, creating and
// inserting a fresh one on miss. Every access moves key to the most-recently
// used end.
func (c *ProcessorCache) GetOrCreate(key string) *ProcessingState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*processorCacheEntry).state
	}

	entry := &processorCacheEntry{key: key, state: NewProcessingState()}
	el := c.order.PushFront(entry)
	c.index[key] = el

	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
	return entry.state
}

// evictOldest removes the least recently used entry. Caller must hold mu.
func (c *ProcessorCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.index, oldest.Value.(*processorCacheEntry).key)
}

// Len reports the current number of cached entries.
func (c *ProcessorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
