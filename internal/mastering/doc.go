// Package mastering implements Auralis's adaptive mastering pipeline: a
// stateful DSP graph that turns a stream of stereo float32 frames into a
// mastered rendering, and the chunked driver that runs that graph across a
// long recording while preserving cross-chunk state.
//
// # Architecture
//
// Eight components compose the core:
//
//   - ContentAnalyzer: extracts a ContentProfile from a frame buffer
//   - PresetTable: maps a Preset to target curves
//   - SpectrumMapper: ContentProfile + Preset -> ProcessingParameters
//   - PsychoacousticEQ: 26-band overlap-add FFT filter
//   - DynamicsEngine: soft-knee compressor / peak expander
//   - StereoWidthAdjuster: M/S width correction with safety clamps
//   - LoudnessStage: RMS boost, peak normalize, safety soft-clip
//   - ChunkDriver: chunking, cross-chunk state, crossfade stitching
//
// # Concurrency and Thread Safety
//
// A Pipeline owns exactly one ProcessingState and is not safe for concurrent
// use by multiple goroutines; parallelism across tracks is the caller's
// responsibility. The ChunkDriver's processor cache and the ChunkCache are
// the only state shared across concurrent calls, and both are guarded by a
// mutex whose hold time never spans a DSP call.
//
//   - ProcessorCache: concurrent Get/Put, serialized by a mutex
//   - ChunkCache (default impl): concurrent Get/Put, serialized by a mutex
//   - ProfileRegistry: RWMutex-guarded, writes at end-of-chunk, reads are snapshots
//   - Pipeline, ProcessingState: NOT safe for concurrent use; one owner
//
// # Buffer ownership
//
// DSP helpers never mutate their input buffer. Every stage takes a []float32
// and returns a freshly allocated []float32. This was an
// accidental mutation bug in the original implementation (issue #2150) and
// is treated here as a hard invariant, not a convention.
//
// # Error Handling
//
// Errors that cross the package boundary are one of three kinds (see
// errors.go): SourceError, ShapeError, CacheError, all built on
// internal/errors' EnhancedError so they carry component/category context.
// The pipeline never panics on audio content, and the package makes no
// explicit panic calls: chunk indices are unsigned and an unknown Preset
// falls back to the "adaptive" row.
package mastering
