package mastering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestProcessorCache_BasicLRUEviction mirrors test_processor_cache_lru.py's
// OrderedDict + popitem(last=False) behavior: inserting past capacity
// evicts the oldest unaccessed entry, not the newest.
func TestProcessorCache_BasicLRUEviction(t *testing.T) {
	t.Parallel()

	cache := NewProcessorCache()
	cache.capacity = 3

	keys := []string{"a", "b", "c"}
	states := make(map[string]*ProcessingState)
	for _, k := range keys {
		states[k] = cache.GetOrCreate(k)
	}
	assert.Equal(t, 3, cache.Len())

	// Touch "a" so it's most-recently-used, then insert "d" which should
	// evict "b" (the least recently used), not "a".
	cache.GetOrCreate("a")
	cache.GetOrCreate("d")

	assert.Equal(t, 3, cache.Len())
	assert.Same(t, states["a"], cache.GetOrCreate("a"), "a must still be cached")
	assert.NotSame(t, states["b"], cache.GetOrCreate("b"), "b must have been evicted and recreated")
}

func TestProcessorCache_GetOrCreateReturnsSameInstanceOnHit(t *testing.T) {
	t.Parallel()

	cache := NewProcessorCache()
	first := cache.GetOrCreate("track:adaptive:1.000")
	second := cache.GetOrCreate("track:adaptive:1.000")

	assert.Same(t, first, second)
}

func TestProcessorCache_RespectsDefaultCapacity(t *testing.T) {
	t.Parallel()

	cache := NewProcessorCache()
	for i := 0; i < ProcessorCacheMaxSize+10; i++ {
		cache.GetOrCreate(fmt.Sprintf("key-%d", i))
	}
	assert.Equal(t, ProcessorCacheMaxSize, cache.Len())
}
