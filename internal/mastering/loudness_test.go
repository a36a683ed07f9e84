package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoudnessStage_SafetyInvariant(t *testing.T) {
	t.Parallel()

	stage := NewLoudnessStage(nil)
	buf := makeToneBuffer(2048, 0.99)
	params := ProcessingParameters{TargetPeakDB: -0.2, OutputTargetRMSDB: -6}

	result, err := stage.Process(buf, params)
	require.NoError(t, err)

	peak := peakAmplitude(result.Buffer.Samples)
	assert.LessOrEqual(t, peak, toLinear(SafetyThresholdDB)+1e-3)
}

func TestLoudnessStage_PeakNormalizeHitsTarget(t *testing.T) {
	t.Parallel()

	stage := NewLoudnessStage(nil)
	buf := makeToneBuffer(2048, 0.2)
	params := ProcessingParameters{TargetPeakDB: -1.0, OutputTargetRMSDB: -30}

	result, err := stage.Process(buf, params)
	require.NoError(t, err)

	peakDB := toDB(peakAmplitude(result.Buffer.Samples))
	assert.InDelta(t, -1.0, peakDB, 0.05)
}

func TestLoudnessStage_RMSBoostSuppressedByExpansion(t *testing.T) {
	t.Parallel()

	stage := NewLoudnessStage(nil)
	buf := makeToneBuffer(2048, 0.05)
	params := ProcessingParameters{
		TargetPeakDB:      -1.0,
		OutputTargetRMSDB: -6,
		ExpansionAmount:   0.5,
	}

	result, err := stage.Process(buf, params)
	require.NoError(t, err)
	assert.Zero(t, result.AppliedGainDB)
}

func TestLoudnessStage_EmptyBufferIsShapeError(t *testing.T) {
	t.Parallel()

	stage := NewLoudnessStage(nil)
	_, err := stage.Process(AudioBuffer{}, ProcessingParameters{})
	require.Error(t, err)
}

func TestLoudnessStage_SilentInputStaysSilent(t *testing.T) {
	t.Parallel()

	stage := NewLoudnessStage(nil)
	buf := AudioBuffer{Samples: make([]float32, 512), SampleRate: DefaultSampleRate}
	params := ProcessingParameters{TargetPeakDB: -1.0, OutputTargetRMSDB: -12}

	result, err := stage.Process(buf, params)
	require.NoError(t, err)
	assert.Zero(t, peakAmplitude(result.Buffer.Samples))
}
