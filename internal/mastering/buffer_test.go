package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBufferPool_GetReturnsExactlyRequestedFrames(t *testing.T) {
	t.Parallel()

	pool := NewFrameBufferPool(DefaultFrameBufferPoolConfig())
	pb := pool.Get(1024)

	assert.Equal(t, 1024, pb.buf.Frames())
}

func TestFrameBufferPool_ReleaseReturnsToPool(t *testing.T) {
	t.Parallel()

	pool := NewFrameBufferPool(DefaultFrameBufferPoolConfig())
	pb := pool.Get(512)
	pb.Acquire()
	pb.Release()
	pb.Release()

	stats := pool.Stats()
	assert.Equal(t, int64(0), stats.ActiveBuffers)
}

func TestFrameBufferPool_OversizedRequestGetsRequestedFrames(t *testing.T) {
	t.Parallel()

	config := DefaultFrameBufferPoolConfig()
	pool := NewFrameBufferPool(config)

	huge := config.LargeFrames * 4
	pb := pool.Get(huge)
	assert.Equal(t, huge, pb.buf.Frames())
}

func TestValidateFrameCount_RejectsNegative(t *testing.T) {
	t.Parallel()
	assert.Error(t, validateFrameCount(-1))
	assert.NoError(t, validateFrameCount(0))
}
