package mastering

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// FileSignature derives the stable "{8 hex chars}" identity a ChunkKey
// embeds, from mtime/size/path, so a chunk is never served after its
// source file changes underneath it.
func FileSignature(mtime, size int64, path string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d_%d_%s", mtime, size, path)))
	return fmt.Sprintf("%x", sum[:4])
}

// ChunkDriver partitions a FrameSource into overlapping chunks, runs the
// mastering pipeline across them with persisted state, and stitches the
// results for whole-file rendering.
type ChunkDriver struct {
	trackID       uint64
	source        FrameSource
	preset        Preset
	intensity     float64
	fileSignature string

	cache      ChunkCache
	pipeline   *Pipeline
	logger     *slog.Logger
	chunkCount uint32
	registry   *ProfileRegistry
	metrics    *Metrics
}

// ChunkDriverOption configures Open.
type ChunkDriverOption func(*ChunkDriver)

// WithChunkCache substitutes a non-default ChunkCache implementation.
func WithChunkCache(cache ChunkCache) ChunkDriverOption {
	return func(d *ChunkDriver) { d.cache = cache }
}

// WithLogger substitutes a non-default logger.
func WithLogger(logger *slog.Logger) ChunkDriverOption {
	return func(d *ChunkDriver) { d.logger = logger }
}

// WithFileSignature sets the signature embedded in every ChunkKey this
// driver produces; callers that skip this get an empty signature, which
// still round-trips but carries no staleness protection.
func WithFileSignature(sig string) ChunkDriverOption {
	return func(d *ChunkDriver) { d.fileSignature = sig }
}

// WithProfileRegistry attaches a shared registry this driver updates with
// its most recent ContentProfile after every chunk.
func WithProfileRegistry(r *ProfileRegistry) ChunkDriverOption {
	return func(d *ChunkDriver) { d.registry = r }
}

// WithMetrics attaches a Metrics instance this driver records chunk
// telemetry to; omitted, the driver records nothing.
func WithMetrics(m *Metrics) ChunkDriverOption {
	return func(d *ChunkDriver) { d.metrics = m }
}

// Open creates a driver for trackID reading from source, with a fresh
// ProcessingState scoped to this (track, preset, intensity) triple.
func Open(trackID uint64, source FrameSource, preset Preset, intensity float64, opts ...ChunkDriverOption) (*ChunkDriver, error) {
	if source == nil {
		return nil, NewShapeError(errEmptyBuffer, "chunk-driver")
	}

	d := &ChunkDriver{
		trackID:   trackID,
		source:    source,
		preset:    preset,
		intensity: intensity,
		cache:     NewDefaultChunkCache(),
		pipeline:  NewPipeline(nil),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	total := source.TotalFrames()
	rate := float64(source.SampleRate())
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	totalSeconds := float64(total) / rate
	d.chunkCount = chunkCountFor(totalSeconds)
	return d, nil
}

// chunkCountFor returns the number of 30s chunks (last one short) a
// totalSeconds-long file divides into; files shorter than ChunkDuration
// always have exactly one chunk.
func chunkCountFor(totalSeconds float64) uint32 {
	chunkSeconds := ChunkDuration.Seconds()
	if totalSeconds <= chunkSeconds {
		return 1
	}
	n := uint32(math.Ceil(totalSeconds / chunkSeconds))
	return n
}

// ChunkCount returns the number of chunks this driver will produce.
func (d *ChunkDriver) ChunkCount() uint32 {
	return d.chunkCount
}

// loadBounds computes the (start, end) frame span to load for chunk index,
// including CONTEXT_DURATION padding clamped to file bounds, per §4.8.
func (d *ChunkDriver) loadBounds(index uint32) (start, end uint64, isFirst, isLast bool) {
	rate := float64(d.source.SampleRate())
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	total := d.source.TotalFrames()

	isFirst = index == 0
	isLast = index == d.chunkCount-1

	chunkStartSec := float64(index)*ChunkDuration.Seconds() - OverlapDuration.Seconds()
	if isFirst {
		chunkStartSec = 0
	}
	chunkEndSec := chunkStartSec + ChunkDuration.Seconds() + OverlapDuration.Seconds()

	loadStartSec := chunkStartSec - ContextDuration.Seconds()
	loadEndSec := chunkEndSec + ContextDuration.Seconds()
	if loadStartSec < 0 {
		loadStartSec = 0
	}

	start = uint64(loadStartSec * rate)
	end = uint64(loadEndSec * rate)
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end, isFirst, isLast
}

// RenderChunk produces the rendered audio and metrics for chunk index,
// serving the audio from cache when available. The cache holds audio only:
// on a hit the returned metrics are those of the pipeline's most recent
// Process call, which need not be this chunk's.
func (d *ChunkDriver) RenderChunk(ctx context.Context, index uint32) (AudioBuffer, ChunkMetrics, error) {
	started := time.Now()
	key := NewChunkKey(d.trackID, d.fileSignature, d.preset, float32(d.intensity), index)
	if cached, ok := d.cache.Get(key); ok {
		d.metrics.RecordChunkCacheResult(true)
		return cached, d.pipeline.LastMetrics(), nil
	}
	d.metrics.RecordChunkCacheResult(false)

	start, end, isFirst, isLast := d.loadBounds(index)
	raw, err := d.source.ReadRange(ctx, start, end)
	if err != nil {
		d.logger.Warn("chunk read failed, substituting silence", "track_id", d.trackID, "chunk_index", index, "error", err)
		raw = silenceBuffer(ShortReadSilenceDuration.Seconds(), int(d.source.SampleRate()))
	}
	if raw.Frames() == 0 {
		d.logger.Warn("empty chunk read, substituting silence", "track_id", d.trackID, "chunk_index", index)
		raw = silenceBuffer(ShortReadSilenceDuration.Seconds(), int(d.source.SampleRate()))
	}

	processed, err := d.pipeline.Process(raw, d.preset, d.intensity)
	if err != nil {
		return AudioBuffer{}, ChunkMetrics{}, err
	}

	trimmed := trimContext(processed, raw.SampleRate, isFirst, isLast)
	blended := blendIntensity(raw, trimmed, d.intensity)

	smoothed, metrics := d.smoothLevel(blended)
	final := extractNonOverlap(smoothed, isFirst, isLast)

	if err := d.cache.Put(key, final); err != nil {
		d.logger.Warn("chunk cache put failed", "error", NewCacheError(err, key))
	}

	if d.registry != nil {
		profile, _ := d.analyzerProfileSnapshot(raw)
		d.registry.Set(d.preset, profile)
	}

	d.metrics.RecordChunkMetrics(d.preset, metrics)
	d.metrics.RecordChunkRendered(d.preset, time.Since(started).Seconds())

	return final, metrics, nil
}

// analyzerProfileSnapshot re-derives a ContentProfile for telemetry
// purposes only; the pipeline's own internal analysis already drove
// processing decisions.
func (d *ChunkDriver) analyzerProfileSnapshot(raw AudioBuffer) (ContentProfile, error) {
	return d.pipeline.analyzer.Analyze(raw)
}

// smoothLevel bounds the RMS delta between this chunk and the previous one
// to MaxLevelChangeDB, scaling the whole chunk if needed.
func (d *ChunkDriver) smoothLevel(buf AudioBuffer) (AudioBuffer, ChunkMetrics) {
	metrics := d.pipeline.LastMetrics()
	currentRMSDB := toDB(rmsAmplitude(buf.Samples))

	// Pipeline.Process has already appended this chunk's RMS, so the previous
	// chunk's entry is the one before it; the last entry becomes the emitted RMS.
	history := d.pipeline.State().rmsHistory
	if len(history) < 2 {
		if len(history) == 1 {
			history[0] = currentRMSDB
		}
		return buf, metrics
	}
	prevRMSDB := history[len(history)-2]

	delta := currentRMSDB - prevRMSDB
	if math.Abs(delta) <= MaxLevelChangeDB {
		history[len(history)-1] = currentRMSDB
		return buf, metrics
	}

	var boundedDelta float64
	if delta > 0 {
		boundedDelta = MaxLevelChangeDB
	} else {
		boundedDelta = -MaxLevelChangeDB
	}
	correctionDB := (prevRMSDB + boundedDelta) - currentRMSDB
	out := amplify(buf.Samples, correctionDB)
	history[len(history)-1] = prevRMSDB + boundedDelta
	metrics.SmoothingDeltaDB = correctionDB
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, metrics
}

// RenderAll renders every chunk in order and assembles them with
// overlap-add crossfades at the original OverlapDuration boundaries.
func (d *ChunkDriver) RenderAll(ctx context.Context) (AudioBuffer, error) {
	if d.chunkCount == 0 {
		return AudioBuffer{}, nil
	}

	chunks := make([]AudioBuffer, 0, d.chunkCount)
	for i := uint32(0); i < d.chunkCount; i++ {
		select {
		case <-ctx.Done():
			return AudioBuffer{}, ctx.Err()
		default:
		}
		chunk, _, err := d.RenderChunk(ctx, i)
		if err != nil {
			return AudioBuffer{}, err
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 1 {
		return chunks[0], nil
	}
	return crossfadeConcat(chunks, chunks[0].SampleRate), nil
}

// silenceBuffer returns durationSec of silence at sampleRate.
func silenceBuffer(durationSec float64, sampleRate int) AudioBuffer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	frames := int(durationSec * float64(sampleRate))
	return AudioBuffer{Samples: make([]float32, frames*2), SampleRate: sampleRate}
}

// trimContext removes ContextDuration from the start (unless first chunk)
// and the end (unless last chunk).
func trimContext(buf AudioBuffer, sampleRate int, isFirst, isLast bool) AudioBuffer {
	contextFrames := int(ContextDuration.Seconds() * float64(sampleRate))
	frames := buf.Frames()

	startFrame := 0
	if !isFirst {
		startFrame = contextFrames
	}
	endFrame := frames
	if !isLast {
		endFrame = frames - contextFrames
	}
	if startFrame < 0 {
		startFrame = 0
	}
	if endFrame > frames {
		endFrame = frames
	}
	if endFrame < startFrame {
		endFrame = startFrame
	}

	out := make([]float32, (endFrame-startFrame)*2)
	copy(out, buf.Samples[startFrame*2:endFrame*2])
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
}

// blendIntensity mixes original and processed by intensity, truncating to
// the shorter buffer.
func blendIntensity(original, processed AudioBuffer, intensity float64) AudioBuffer {
	n := original.Frames()
	if processed.Frames() < n {
		n = processed.Frames()
	}
	out := make([]float32, n*2)
	for i := 0; i < n*2; i++ {
		out[i] = float32((1-intensity)*float64(original.Samples[i]) + intensity*float64(processed.Samples[i]))
	}
	return AudioBuffer{Samples: out, SampleRate: processed.SampleRate}
}

// extractNonOverlap returns the non-overlapping region of a loaded chunk
// per §4.8 step 7.
func extractNonOverlap(buf AudioBuffer, isFirst, isLast bool) AudioBuffer {
	sampleRate := buf.SampleRate
	overlapFrames := int(OverlapDuration.Seconds() * float64(sampleRate))
	chunkFrames := int(ChunkDuration.Seconds() * float64(sampleRate))
	frames := buf.Frames()

	var startFrame, endFrame int
	switch {
	case isFirst:
		startFrame = 0
		endFrame = chunkFrames
	case isLast:
		startFrame = overlapFrames
		endFrame = frames
	default:
		startFrame = overlapFrames
		endFrame = startFrame + chunkFrames
	}
	if startFrame > frames {
		startFrame = frames
	}
	if endFrame > frames {
		endFrame = frames
	}
	if endFrame < startFrame {
		endFrame = startFrame
	}

	out := make([]float32, (endFrame-startFrame)*2)
	copy(out, buf.Samples[startFrame*2:endFrame*2])

	if endFrame-startFrame < chunkFrames && isFirst && !isLast {
		padded := make([]float32, chunkFrames*2)
		copy(padded, out)
		return AudioBuffer{Samples: padded, SampleRate: sampleRate}
	}
	return AudioBuffer{Samples: out, SampleRate: sampleRate}
}

// crossfadeConcat joins chunks with linear fade-out/fade-in at
// OverlapDuration boundaries, preserving total duration.
func crossfadeConcat(chunks []AudioBuffer, sampleRate int) AudioBuffer {
	overlapFrames := int(OverlapDuration.Seconds() * float64(sampleRate))

	total := 0
	for _, c := range chunks {
		total += c.Frames()
	}
	total -= overlapFrames * (len(chunks) - 1)
	if total < 0 {
		total = 0
	}

	out := make([]float32, total*2)
	writePos := 0

	for i, c := range chunks {
		frames := c.Frames()
		if i == 0 {
			copy(out[0:frames*2], c.Samples)
			writePos = frames
			continue
		}

		fadeFrames := overlapFrames
		if fadeFrames > frames {
			fadeFrames = frames
		}
		if fadeFrames > writePos {
			fadeFrames = writePos
		}

		fadeStartOut := (writePos - fadeFrames) * 2
		for f := 0; f < fadeFrames; f++ {
			t := float64(f) / float64(fadeFrames)
			fadeOut := 1 - t
			fadeIn := t
			for ch := 0; ch < 2; ch++ {
				prev := float64(out[fadeStartOut+f*2+ch])
				next := float64(c.Samples[f*2+ch])
				out[fadeStartOut+f*2+ch] = float32(prev*fadeOut + next*fadeIn)
			}
		}

		remaining := frames - fadeFrames
		copy(out[writePos*2:(writePos+remaining)*2], c.Samples[fadeFrames*2:])
		writePos += remaining
	}

	return AudioBuffer{Samples: out[:writePos*2], SampleRate: sampleRate}
}
