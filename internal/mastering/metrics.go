package mastering

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the pipeline and driver export.
// A nil *Metrics is valid everywhere below and simply records nothing,
// matching the enabled/disabled toggle pattern of the ambient stack.
type Metrics struct {
	chunksRendered   *prometheus.CounterVec
	chunkDuration    *prometheus.HistogramVec
	chunkCacheHits   prometheus.Counter
	chunkCacheMisses prometheus.Counter
	lufs             *prometheus.GaugeVec
	appliedGainDB    *prometheus.GaugeVec
	smoothingDeltaDB *prometheus.GaugeVec
	processorCacheSize prometheus.Gauge
	sourceErrors     *prometheus.CounterVec
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// NewMetrics registers the mastering pipeline's collectors against reg.
// Passing prometheus.NewRegistry() keeps tests isolated from the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chunksRendered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunks_rendered_total",
			Help:      "Chunks rendered by the mastering pipeline, by preset.",
		}, []string{"preset"}),
		chunkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_render_seconds",
			Help:      "Wall-clock time to render one chunk.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"preset"}),
		chunkCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_cache_hits_total",
			Help:      "Chunk cache hits.",
		}),
		chunkCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_cache_misses_total",
			Help:      "Chunk cache misses.",
		}),
		lufs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_lufs",
			Help:      "Integrated LUFS of the most recently rendered chunk, by preset.",
		}, []string{"preset"}),
		appliedGainDB: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_applied_gain_db",
			Help:      "Total gain applied to the most recently rendered chunk, by preset.",
		}, []string{"preset"}),
		smoothingDeltaDB: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "chunk_smoothing_delta_db",
			Help:      "Inter-chunk level smoothing correction applied, by preset.",
		}, []string{"preset"}),
		processorCacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "processor_cache_entries",
			Help:      "Current number of entries in the processor LRU cache.",
		}),
		sourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralis",
			Subsystem: "mastering",
			Name:      "source_errors_total",
			Help:      "FrameSource read failures, by track.",
		}, []string{"track_id"}),
	}
}

// InitGlobalMetrics registers the default collector set exactly once,
// against the default Prometheus registry.
func InitGlobalMetrics() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// GlobalMetrics returns the process-wide metrics set, or nil if
// InitGlobalMetrics was never called.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordChunkRendered records one successful chunk render.
func (m *Metrics) RecordChunkRendered(preset Preset, seconds float64) {
	if m == nil {
		return
	}
	m.chunksRendered.WithLabelValues(preset.String()).Inc()
	m.chunkDuration.WithLabelValues(preset.String()).Observe(seconds)
}

// RecordChunkCacheResult records a cache hit or miss.
func (m *Metrics) RecordChunkCacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.chunkCacheHits.Inc()
		return
	}
	m.chunkCacheMisses.Inc()
}

// RecordChunkMetrics exports the per-chunk telemetry record as gauges.
func (m *Metrics) RecordChunkMetrics(preset Preset, cm ChunkMetrics) {
	if m == nil {
		return
	}
	m.lufs.WithLabelValues(preset.String()).Set(cm.LUFS)
	m.appliedGainDB.WithLabelValues(preset.String()).Set(cm.AppliedGainDB)
	m.smoothingDeltaDB.WithLabelValues(preset.String()).Set(cm.SmoothingDeltaDB)
}

// RecordProcessorCacheSize updates the processor cache gauge.
func (m *Metrics) RecordProcessorCacheSize(size int) {
	if m == nil {
		return
	}
	m.processorCacheSize.Set(float64(size))
}

// RecordSourceError records a FrameSource failure for trackID.
func (m *Metrics) RecordSourceError(trackID uint64) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(strconv.FormatUint(trackID, 10)).Inc()
}
