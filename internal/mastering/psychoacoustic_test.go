package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTargetCurve_HasAllBands(t *testing.T) {
	t.Parallel()

	preset := NewPresetTable().GetPreset(PresetWarm)
	profile := ContentProfile{SpectralCentroidHz: 1500, DynamicRangeDB: 10}

	curve := BuildTargetCurve(preset, profile, 1.0)

	assert.Len(t, curve, eqBandCount)
}

func TestBuildTargetCurve_DampensTrebleForBrightContent(t *testing.T) {
	t.Parallel()

	preset := NewPresetTable().GetPreset(PresetBright)

	brightProfile := ContentProfile{SpectralCentroidHz: 5000, DynamicRangeDB: 10}
	darkProfile := ContentProfile{SpectralCentroidHz: 500, DynamicRangeDB: 10}

	brightCurve := BuildTargetCurve(preset, brightProfile, 1.0)
	darkCurve := BuildTargetCurve(preset, darkProfile, 1.0)

	// The content-aware adjustment scales the preset's own tilts, so the
	// bright preset (non-zero treble tilt) is used; both curves share that
	// tilt, so any difference in the treble band comes from the adjustment.
	assert.NotEqual(t, brightCurve[25], darkCurve[25])
}

func TestPsychoacousticEQ_ProcessChunkPreservesShape(t *testing.T) {
	t.Parallel()

	eq := NewPsychoacousticEQ(nil)
	frames := fftSize * 4
	buf := makeToneBuffer(frames, 0.3)
	curve := BuildTargetCurve(NewPresetTable().GetPreset(PresetAdaptive), ContentProfile{}, 1.0)

	out, err := eq.ProcessChunk(buf, curve, NewProcessingState())
	require.NoError(t, err)
	assert.Equal(t, buf.Frames(), out.Frames())
}

func TestPsychoacousticEQ_ShortBufferUsesShelfFallback(t *testing.T) {
	t.Parallel()

	eq := NewPsychoacousticEQ(nil)
	buf := makeToneBuffer(16, 0.3)
	curve := BuildTargetCurve(NewPresetTable().GetPreset(PresetAdaptive), ContentProfile{}, 1.0)

	out, err := eq.ProcessChunk(buf, curve, NewProcessingState())
	require.NoError(t, err)
	assert.Equal(t, buf.Frames(), out.Frames())
}
