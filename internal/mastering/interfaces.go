package mastering

import "context"

// FrameSource is the decoded-PCM source ChunkDriver pulls from. Any decoder
// a host provides satisfies this; the core never decodes or resamples
// itself.
type FrameSource interface {
	SampleRate() uint32
	TotalFrames() uint64
	ReadRange(ctx context.Context, start, end uint64) (AudioBuffer, error)
}

// ChunkCache is the content-addressed store ChunkDriver reads from and
// writes to. The core supplies DefaultChunkCache; hosts may substitute a
// disk-backed implementation.
type ChunkCache interface {
	Get(key ChunkKey) (AudioBuffer, bool)
	Put(key ChunkKey, buf AudioBuffer) error
}
