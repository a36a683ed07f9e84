package mastering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentAnalyzer_SilentInputNoDivideByZero(t *testing.T) {
	t.Parallel()

	analyzer := NewContentAnalyzer()
	buf := AudioBuffer{Samples: make([]float32, DefaultSampleRate*2), SampleRate: DefaultSampleRate}

	profile, err := analyzer.Analyze(buf)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(profile.LUFS))
	assert.False(t, math.IsInf(profile.LUFS, 0))
	assert.Zero(t, profile.RMS)
	assert.Zero(t, profile.Peak)
}

func TestContentAnalyzer_EmptyBufferIsShapeError(t *testing.T) {
	t.Parallel()

	analyzer := NewContentAnalyzer()
	_, err := analyzer.Analyze(AudioBuffer{})
	require.Error(t, err)
}

func TestContentAnalyzer_ToneHasExpectedCentroidRange(t *testing.T) {
	t.Parallel()

	analyzer := NewContentAnalyzer()
	samples := make([]float32, DefaultSampleRate*2)
	freq := 440.0
	for f := 0; f < DefaultSampleRate; f++ {
		v := float32(0.5 * math.Sin(2*math.Pi*freq*float64(f)/float64(DefaultSampleRate)))
		samples[2*f] = v
		samples[2*f+1] = v
	}
	buf := AudioBuffer{Samples: samples, SampleRate: DefaultSampleRate}

	profile, err := analyzer.Analyze(buf)
	require.NoError(t, err)

	assert.InDelta(t, freq, profile.SpectralCentroidHz, 200)
	assert.InDelta(t, 0, profile.StereoWidth, 0.05, "identical L/R should read as mono")
}

func TestContentAnalyzer_DecorrelatedChannelsIncreaseWidth(t *testing.T) {
	t.Parallel()

	analyzer := NewContentAnalyzer()
	frames := DefaultSampleRate
	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		l := float32(0.5 * math.Sin(2*math.Pi*440*float64(f)/float64(DefaultSampleRate)))
		r := float32(0.5 * math.Sin(2*math.Pi*523*float64(f)/float64(DefaultSampleRate)))
		samples[2*f] = l
		samples[2*f+1] = r
	}
	buf := AudioBuffer{Samples: samples, SampleRate: DefaultSampleRate}

	profile, err := analyzer.Analyze(buf)
	require.NoError(t, err)
	assert.Greater(t, profile.StereoWidth, 0.3)
}
