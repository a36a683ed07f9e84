package mastering

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/auralis/mastering-core/internal/errors"
	"github.com/auralis/mastering-core/internal/logging"
)

// FrameBufferPoolConfig sizes the three pool tiers, in stereo frames (not
// samples). Chunk-sized renders dominate, so MediumFrames defaults to one
// ChunkDuration's worth at DefaultSampleRate.
type FrameBufferPoolConfig struct {
	SmallFrames    int
	MediumFrames   int
	LargeFrames    int
	MaxPerTier     int
}

// DefaultFrameBufferPoolConfig sizes tiers around one analysis window, one
// full chunk, and one chunk-plus-context load.
func DefaultFrameBufferPoolConfig() FrameBufferPoolConfig {
	return FrameBufferPoolConfig{
		SmallFrames:  fftSize,
		MediumFrames: DefaultSampleRate * int(ChunkDuration.Seconds()),
		LargeFrames:  DefaultSampleRate * int((ChunkDuration + 2*ContextDuration).Seconds()),
		MaxPerTier:   64,
	}
}

// FrameBufferPoolStats reports coarse pool utilization for telemetry.
type FrameBufferPoolStats struct {
	TotalAcquired int64
	ActiveBuffers int64
}

// pooledFrameBuffer wraps AudioBuffer with refcounting so a holder can
// release a buffer back to its pool once no user of it remains.
type pooledFrameBuffer struct {
	buf      AudioBuffer
	refCount int32
	pool     *FrameBufferPool
}

// Acquire increments the reference count.
func (b *pooledFrameBuffer) Acquire() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release decrements the reference count and returns the buffer to its
// pool once it reaches zero.
func (b *pooledFrameBuffer) Release() {
	if atomic.AddInt32(&b.refCount, -1) == 0 && b.pool != nil {
		b.pool.put(b)
	}
}

// FrameBufferPool is a tiered sync.Pool of AudioBuffers. ChunkDriver and the
// pipeline stages do not draw from it; they allocate per stage.
type FrameBufferPool struct {
	small, medium, large sync.Pool
	config               FrameBufferPoolConfig
	stats                FrameBufferPoolStats
	statsMu              sync.Mutex
	logger               *slog.Logger
}

// NewFrameBufferPool builds a pool using the teacher's tiered-allocation
// pattern, sized for audio frames instead of raw bytes.
func NewFrameBufferPool(config FrameBufferPoolConfig) *FrameBufferPool {
	logger := logging.ForService("mastering")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "frame_buffer_pool")

	p := &FrameBufferPool{config: config, logger: logger}

	p.small.New = func() any {
		return &pooledFrameBuffer{buf: AudioBuffer{Samples: make([]float32, 0, config.SmallFrames*2)}, pool: p}
	}
	p.medium.New = func() any {
		return &pooledFrameBuffer{buf: AudioBuffer{Samples: make([]float32, 0, config.MediumFrames*2)}, pool: p}
	}
	p.large.New = func() any {
		return &pooledFrameBuffer{buf: AudioBuffer{Samples: make([]float32, 0, config.LargeFrames*2)}, pool: p}
	}

	logger.Info("frame buffer pool created",
		"small_frames", config.SmallFrames,
		"medium_frames", config.MediumFrames,
		"large_frames", config.LargeFrames,
		"max_per_tier", config.MaxPerTier)

	return p
}

// Get returns a buffer with at least frames stereo frames of capacity, with
// Samples sized to exactly frames*2 and zeroed.
func (p *FrameBufferPool) Get(frames int) *pooledFrameBuffer {
	p.updateStats(func() { p.stats.TotalAcquired++; p.stats.ActiveBuffers++ })

	var pb *pooledFrameBuffer
	var tier string
	switch {
	case frames <= p.config.SmallFrames:
		pb = p.small.Get().(*pooledFrameBuffer)
		tier = "small"
	case frames <= p.config.MediumFrames:
		pb = p.medium.Get().(*pooledFrameBuffer)
		tier = "medium"
	case frames <= p.config.LargeFrames:
		pb = p.large.Get().(*pooledFrameBuffer)
		tier = "large"
	default:
		pb = &pooledFrameBuffer{buf: AudioBuffer{Samples: make([]float32, 0, frames*2)}, pool: p}
		tier = "custom"
	}

	need := frames * 2
	if cap(pb.buf.Samples) < need {
		pb.buf.Samples = make([]float32, need)
	} else {
		pb.buf.Samples = pb.buf.Samples[:need]
		for i := range pb.buf.Samples {
			pb.buf.Samples[i] = 0
		}
	}
	pb.refCount = 1

	if p.logger.Enabled(context.TODO(), slog.LevelDebug) {
		p.logger.Debug("frame buffer allocated", "tier", tier, "frames", frames)
	}
	return pb
}

// put returns buffer to its tier pool, or discards it if oversized.
func (p *FrameBufferPool) put(pb *pooledFrameBuffer) {
	p.updateStats(func() { p.stats.ActiveBuffers-- })

	capacity := cap(pb.buf.Samples) / 2
	switch {
	case capacity <= p.config.SmallFrames:
		p.small.Put(pb)
	case capacity <= p.config.MediumFrames:
		p.medium.Put(pb)
	case capacity <= p.config.LargeFrames:
		p.large.Put(pb)
	default:
		p.logger.Debug("discarding custom-sized frame buffer", "frames", capacity)
	}
}

// Stats returns a snapshot of pool utilization.
func (p *FrameBufferPool) Stats() FrameBufferPoolStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *FrameBufferPool) updateStats(fn func()) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	fn()
}

// validateFrameCount rejects negative frame counts the same way the original
// byte-buffer implementation did. No code in the package calls it; stages
// allocate via amplify/Clone.
func validateFrameCount(frames int) error {
	if frames < 0 {
		return errors.New(nil).
			Component(ComponentMastering).
			Category(errors.CategoryValidation).
			Context("operation", "frame_buffer_resize").
			Context("frames", frames).
			Build()
	}
	return nil
}
