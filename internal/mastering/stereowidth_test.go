package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeStereoBuffer(frames int, left, right float32) AudioBuffer {
	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		samples[2*f] = left
		samples[2*f+1] = right
	}
	return AudioBuffer{Samples: samples, SampleRate: DefaultSampleRate}
}

func TestStereoWidthAdjuster_ConservativeRefusesExpansionWhenLoud(t *testing.T) {
	t.Parallel()

	adj := &StereoWidthAdjuster{SafetyMode: StereoWidthConservative}
	buf := makeStereoBuffer(128, 0.5, 0.3)

	out := adj.Adjust(buf, 0.5, 1.0, 4.0)

	assert.Equal(t, buf.Samples, out.Samples)
}

func TestStereoWidthAdjuster_AdaptiveClampsExpansionWhenLoud(t *testing.T) {
	t.Parallel()

	adj := &StereoWidthAdjuster{SafetyMode: StereoWidthAdaptive}
	buf := makeStereoBuffer(128, 0.5, 0.3)

	withoutSafety := adj.Adjust(buf, 0.5, 0.6, 0)
	withSafety := adj.Adjust(buf, 0.5, 2.0, 4.0)

	assert.NotEqual(t, withoutSafety.Samples, withSafety.Samples)
}

func TestStereoWidthAdjuster_SkipsBelowMinChangeThreshold(t *testing.T) {
	t.Parallel()

	adj := NewStereoWidthAdjuster()
	buf := makeStereoBuffer(64, 0.4, 0.2)

	out := adj.Adjust(buf, 0.5, 0.55, 0)

	assert.Equal(t, buf.Samples, out.Samples)
}

func TestStereoWidthAdjuster_EmptyBufferPassesThrough(t *testing.T) {
	t.Parallel()

	adj := NewStereoWidthAdjuster()
	out := adj.Adjust(AudioBuffer{}, 0, 1, 0)
	assert.Equal(t, 0, out.Frames())
}
