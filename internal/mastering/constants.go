package mastering

import "time"

// Chunk driver constants. These are fixed for a session: the cross-chunk
// state machine (envelope followers, RMS history) relies on them not
// changing between calls. Do not parameterize per request.
const (
	// ChunkDuration is the target output length of one rendered chunk.
	ChunkDuration = 30 * time.Second

	// OverlapDuration is how much consecutive chunks overlap, trimmed
	// and crossfaded during assembly.
	OverlapDuration = 3 * time.Second

	// ContextDuration is extra pre/post audio loaded around a chunk so the
	// EQ and dynamics stages see real surrounding material, then trimmed
	// before the chunk is stored.
	ContextDuration = 5 * time.Second

	// MaxLevelChangeDB bounds the RMS delta the driver will allow between
	// two consecutive output chunks before it scales the later one up or
	// down to meet the bound.
	MaxLevelChangeDB = 1.5

	// ProcessorCacheMaxSize bounds the number of cached processor
	// instances kept by the chunk driver (issue #2161).
	ProcessorCacheMaxSize = 32

	// DefaultSampleRate is the internal sample rate the pipeline assumes
	// when none is supplied by the caller.
	DefaultSampleRate = 44100

	// SafetyThresholdDB is the dBFS peak above which the loudness stage's
	// safety soft-clipper engages.
	SafetyThresholdDB = 1.0

	// SafetyClipThreshold is the linear amplitude (~-1 dB) below which the
	// soft clipper passes samples unchanged.
	SafetyClipThreshold = 0.89

	// ShortReadSilenceDuration is emitted (with a logged warning) when a
	// requested chunk slice is empty or runs past end of file.
	ShortReadSilenceDuration = 100 * time.Millisecond
)
