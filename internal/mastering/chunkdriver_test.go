package mastering

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrameSource is an in-memory FrameSource over a pre-generated stereo
// buffer, used so ChunkDriver tests don't depend on any decoder.
type fakeFrameSource struct {
	samples    []float32
	sampleRate uint32
}

func newSineFrameSource(seconds float64, sampleRate int, freqHz float64) *fakeFrameSource {
	frames := int(seconds * float64(sampleRate))
	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		v := float32(0.3 * math.Sin(2*math.Pi*freqHz*float64(f)/float64(sampleRate)))
		samples[2*f] = v
		samples[2*f+1] = v
	}
	return &fakeFrameSource{samples: samples, sampleRate: uint32(sampleRate)}
}

func (s *fakeFrameSource) SampleRate() uint32   { return s.sampleRate }
func (s *fakeFrameSource) TotalFrames() uint64  { return uint64(len(s.samples) / 2) }

func (s *fakeFrameSource) ReadRange(ctx context.Context, start, end uint64) (AudioBuffer, error) {
	total := uint64(len(s.samples) / 2)
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}
	out := make([]float32, (end-start)*2)
	copy(out, s.samples[start*2:end*2])
	return AudioBuffer{Samples: out, SampleRate: int(s.sampleRate)}, nil
}

func TestChunkDriver_ShortFileHasOneChunk(t *testing.T) {
	t.Parallel()

	source := newSineFrameSource(10, DefaultSampleRate, 440)
	driver, err := Open(1, source, PresetAdaptive, 1.0)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), driver.ChunkCount())
}

func TestChunkDriver_RenderChunkIsIdempotent(t *testing.T) {
	t.Parallel()

	source := newSineFrameSource(10, DefaultSampleRate, 440)
	driver, err := Open(2, source, PresetAdaptive, 1.0)
	require.NoError(t, err)

	ctx := context.Background()
	first, _, err := driver.RenderChunk(ctx, 0)
	require.NoError(t, err)
	second, _, err := driver.RenderChunk(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, first.Samples, second.Samples)
}

func TestChunkDriver_OutputNeverExceedsSafetyThreshold(t *testing.T) {
	t.Parallel()

	source := newSineFrameSource(70, DefaultSampleRate, 220)
	driver, err := Open(3, source, PresetPunchy, 1.0)
	require.NoError(t, err)

	ctx := context.Background()
	for i := uint32(0); i < driver.ChunkCount(); i++ {
		chunk, _, err := driver.RenderChunk(ctx, i)
		require.NoError(t, err)
		peak := peakAmplitude(chunk.Samples)
		assert.LessOrEqual(t, peak, toLinear(SafetyThresholdDB)+1e-3, "chunk %d peak", i)
	}
}

func TestChunkDriver_RenderAllPreservesApproximateDuration(t *testing.T) {
	t.Parallel()

	seconds := 75.0
	source := newSineFrameSource(seconds, DefaultSampleRate, 330)
	driver, err := Open(4, source, PresetAdaptive, 1.0)
	require.NoError(t, err)

	out, err := driver.RenderAll(context.Background())
	require.NoError(t, err)

	expectedFrames := int(seconds * DefaultSampleRate)
	overlapFrames := int(OverlapDuration.Seconds() * DefaultSampleRate)
	diff := out.Frames() - expectedFrames
	assert.LessOrEqual(t, diff, overlapFrames*int(driver.ChunkCount()))
}

func TestChunkDriver_InterChunkLevelSmoothingBound(t *testing.T) {
	t.Parallel()

	source := newSineFrameSource(70, DefaultSampleRate, 220)
	driver, err := Open(5, source, PresetAdaptive, 1.0)
	require.NoError(t, err)

	ctx := context.Background()
	var prevRMSDB float64
	hasPrev := false
	for i := uint32(0); i < driver.ChunkCount(); i++ {
		chunk, _, err := driver.RenderChunk(ctx, i)
		require.NoError(t, err)
		rmsDB := toDB(rmsAmplitude(chunk.Samples))
		if hasPrev {
			assert.LessOrEqual(t, math.Abs(rmsDB-prevRMSDB), MaxLevelChangeDB+1e-3)
		}
		prevRMSDB = rmsDB
		hasPrev = true
	}
}

func TestChunkDriver_FileSignatureChangeInvalidatesCache(t *testing.T) {
	t.Parallel()

	factory := NewProcessorFactory(nil, nil)
	source := newSineFrameSource(10, DefaultSampleRate, 440)

	driverA, err := factory.Open(6, source, PresetAdaptive, 1.0, "sig-a")
	require.NoError(t, err)
	_, _, err = driverA.RenderChunk(context.Background(), 0)
	require.NoError(t, err)

	factory.InvalidateFile(6, "sig-b")

	driverB, err := factory.Open(6, source, PresetAdaptive, 1.0, "sig-b")
	require.NoError(t, err)
	key := NewChunkKey(6, "sig-b", PresetAdaptive, 1.0, 0)
	_, ok := driverB.cache.Get(key)
	assert.False(t, ok, "new signature must not be served a stale chunk")
}
