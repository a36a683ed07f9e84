package mastering

import (
	"fmt"
	"log/slog"
)

// ProcessorFactory hands out ChunkDrivers backed by a shared, bounded
// ProcessorCache so repeated renders of the same (track, preset, intensity)
// triple reuse warm ProcessingState instead of starting cold, per §4.8's
// "processors are expensive to build" design.
type ProcessorFactory struct {
	cache    *ProcessorCache
	chunks   ChunkCache
	logger   *slog.Logger
	metrics  *Metrics
	registry *ProfileRegistry
}

// NewProcessorFactory builds a factory sharing one ProcessorCache and one
// ChunkCache across every driver it opens.
func NewProcessorFactory(logger *slog.Logger, metrics *Metrics) *ProcessorFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessorFactory{
		cache:    NewProcessorCache(),
		chunks:   NewDefaultChunkCache(),
		logger:   logger,
		metrics:  metrics,
		registry: NewProfileRegistry(),
	}
}

// processorKey builds the cache key the factory uses, distinct from
// ChunkKey (which additionally carries chunk index and file signature).
func processorKey(trackID uint64, preset Preset, intensity float64) string {
	return fmt.Sprintf("%d:%s:%.3f", trackID, preset.String(), intensity)
}

// Open returns a ChunkDriver for the given track/preset/intensity,
// attaching the cached ProcessingState (or creating one on miss) so the
// driver's envelope followers and gain trajectories persist across
// repeated requests for the same triple.
func (f *ProcessorFactory) Open(trackID uint64, source FrameSource, preset Preset, intensity float64, fileSignature string) (*ChunkDriver, error) {
	driver, err := Open(trackID, source, preset, intensity,
		WithChunkCache(f.chunks),
		WithLogger(f.logger),
		WithFileSignature(fileSignature),
		WithProfileRegistry(f.registry),
		WithMetrics(f.metrics),
	)
	if err != nil {
		return nil, err
	}

	key := processorKey(trackID, preset, intensity)
	driver.pipeline.state = f.cache.GetOrCreate(key)
	f.metrics.RecordProcessorCacheSize(f.cache.Len())

	return driver, nil
}

// InvalidateFile drops any cached chunks for trackID whose file signature
// no longer matches currentSignature, called when a host detects the
// underlying file changed.
func (f *ProcessorFactory) InvalidateFile(trackID uint64, currentSignature string) {
	if dc, ok := f.chunks.(*DefaultChunkCache); ok {
		dc.InvalidateTrack(trackID, currentSignature)
	}
}

// ProfileRegistry exposes the factory's shared registry for external
// monitoring reads.
func (f *ProcessorFactory) ProfileRegistry() *ProfileRegistry {
	return f.registry
}
