package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToneBuffer(frames int, amplitude float32) AudioBuffer {
	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		samples[2*f] = amplitude
		samples[2*f+1] = amplitude
	}
	return AudioBuffer{Samples: samples, SampleRate: DefaultSampleRate}
}

func TestDynamicsEngine_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	engine := NewDynamicsEngine()
	buf := makeToneBuffer(512, 0.9)
	snapshot := append([]float32{}, buf.Samples...)

	params := ProcessingParameters{CompressionAmount: 0.6}
	state := NewProcessingState()

	_, err := engine.Apply(buf, params, state)
	require.NoError(t, err)
	assert.Equal(t, snapshot, buf.Samples)
}

func TestDynamicsEngine_CompressionReducesPeakAboveThreshold(t *testing.T) {
	t.Parallel()

	engine := NewDynamicsEngine()
	buf := makeToneBuffer(1024, 0.9)
	params := ProcessingParameters{CompressionAmount: 0.8}
	state := NewProcessingState()

	out, err := engine.Apply(buf, params, state)
	require.NoError(t, err)

	assert.LessOrEqual(t, peakAmplitude(out.Samples), peakAmplitude(buf.Samples)+1e-6)
	assert.True(t, state.compressor.initialized)
}

func TestDynamicsEngine_ExpansionIncreasesCrest(t *testing.T) {
	t.Parallel()

	engine := NewDynamicsEngine()

	samples := make([]float32, 2048)
	for i := 0; i < len(samples); i += 2 {
		if i%64 == 0 {
			samples[i] = 0.95
			samples[i+1] = 0.95
		} else {
			samples[i] = 0.1
			samples[i+1] = 0.1
		}
	}
	buf := AudioBuffer{Samples: samples, SampleRate: DefaultSampleRate}

	preRMSDB := toDB(rmsAmplitude(buf.Samples))
	prePeakDB := toDB(peakAmplitude(buf.Samples))
	preCrest := crestDB(prePeakDB, preRMSDB)

	params := ProcessingParameters{ExpansionAmount: 0.7}
	state := NewProcessingState()

	out, err := engine.Apply(buf, params, state)
	require.NoError(t, err)

	postRMSDB := toDB(rmsAmplitude(out.Samples))
	postPeakDB := toDB(peakAmplitude(out.Samples))
	postCrest := crestDB(postPeakDB, postRMSDB)

	assert.GreaterOrEqual(t, postCrest, preCrest)
	assert.True(t, state.expander.initialized)
}

func TestDynamicsEngine_BypassWhenNeitherAmountSet(t *testing.T) {
	t.Parallel()

	engine := NewDynamicsEngine()
	buf := makeToneBuffer(256, 0.3)
	state := NewProcessingState()

	out, err := engine.Apply(buf, ProcessingParameters{}, state)
	require.NoError(t, err)
	assert.Equal(t, buf.Samples, out.Samples)
}

func TestDynamicsEngine_EmptyBufferIsShapeError(t *testing.T) {
	t.Parallel()

	engine := NewDynamicsEngine()
	state := NewProcessingState()

	_, err := engine.Apply(AudioBuffer{}, ProcessingParameters{CompressionAmount: 0.5}, state)
	require.Error(t, err)
}
