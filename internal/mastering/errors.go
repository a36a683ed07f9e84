package mastering

import (
	goerrors "errors"

	"github.com/auralis/mastering-core/internal/errors"
)

// errEmptyBuffer is the sentinel wrapped by stages that receive a
// zero-length AudioBuffer, where no amount of context makes the operation
// meaningful.
var errEmptyBuffer = goerrors.New("empty audio buffer")

// ComponentMastering identifies errors raised directly by the pipeline
// orchestration code (as opposed to one of its named sub-components).
const ComponentMastering = "mastering"

// NewSourceError wraps a FrameSource failure (read past EOF, decoder error).
// The driver logs these and substitutes silence rather than propagating
// them across a multi-chunk render; a caller invoking ReadRange directly
// sees the error unwrapped.
func NewSourceError(err error, trackID uint64, start, end uint64) *errors.EnhancedError {
	return errors.New(err).
		Component("chunk-driver").
		Category(errors.CategoryAudioSource).
		Context("operation", "read_range").
		Context("track_id", trackID).
		Context("start_frame", start).
		Context("end_frame", end).
		Build()
}

// NewShapeError wraps an unexpected channel count or non-recoverable
// non-finite sample condition. Pipeline stages return this instead of
// producing garbage output.
func NewShapeError(err error, stage string) *errors.EnhancedError {
	return errors.New(err).
		Component(ComponentMastering).
		Category(errors.CategoryValidation).
		Context("stage", stage).
		Build()
}

// NewCacheError wraps a storage failure reported by a caller-supplied
// ChunkCache.Put implementation. The rendered audio is still returned to
// the caller; only the caching side effect is lost.
func NewCacheError(err error, key ChunkKey) *errors.EnhancedError {
	return errors.New(err).
		Component("chunk-cache").
		Category(errors.CategoryChunkCache).
		Context("chunk_key", string(key)).
		Build()
}

// ErrEmptyPresetTable describes the programmer error of a preset table with
// no "adaptive" row. The table is a fixed array and GetPreset falls back to
// the adaptive row, so no code in this package returns it or panics with it.
var ErrEmptyPresetTable = errors.New(nil).
	Component("preset-table").
	Category(errors.CategoryState).
	Context("resource", "preset_table").
	Build()
