package mastering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDBAndToLinear_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []float64{0.001, 0.01, 0.1, 0.5, 0.89, 1.0}
	for _, linear := range cases {
		db := toDB(linear)
		back := toLinear(db)
		assert.InDelta(t, linear, back, 1e-9, "round trip for %v", linear)
	}
}

func TestToDB_SilenceFloor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, minDBFloor, toDB(0))
	assert.Equal(t, minDBFloor, toDB(1e-12))
}

func TestPeakAndRMSAmplitude_Silence(t *testing.T) {
	t.Parallel()

	samples := make([]float32, 200)
	assert.Zero(t, peakAmplitude(samples))
	assert.Zero(t, rmsAmplitude(samples))
}

func TestRMSAmplitude_KnownSignal(t *testing.T) {
	t.Parallel()

	samples := []float32{1, -1, 1, -1}
	require.InDelta(t, 1.0, rmsAmplitude(samples), 1e-9)
}

func TestAmplify_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	original := []float32{0.1, 0.2, 0.3, 0.4}
	snapshot := append([]float32{}, original...)

	out := amplify(original, 6.0)

	assert.Equal(t, snapshot, original, "amplify must not mutate its input")
	assert.NotEqual(t, original, out)
}

func TestClampNonFinite(t *testing.T) {
	t.Parallel()

	in := []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1)), 0.5}
	out := clampNonFinite(in)

	assert.Equal(t, float32(0), out[0])
	assert.Equal(t, float32(1), out[1])
	assert.Equal(t, float32(-1), out[2])
	assert.Equal(t, float32(0.5), out[3])
}

func TestSoftClip_PassesBelowThresholdUnchanged(t *testing.T) {
	t.Parallel()

	in := []float32{0.5, -0.5, 0.88}
	out := softClip(in, 0.89, toLinear(1.0))

	assert.Equal(t, in, out)
}

func TestSoftClip_CompressesAboveThreshold(t *testing.T) {
	t.Parallel()

	ceiling := toLinear(1.0)
	in := []float32{1.5, -1.5}
	out := softClip(in, 0.89, ceiling)

	for i, s := range out {
		assert.LessOrEqual(t, math.Abs(float64(s)), ceiling+1e-6)
		assert.Equal(t, in[i] > 0, s > 0, "sign must be preserved")
	}
}

func TestHannWindow_Endpoints(t *testing.T) {
	t.Parallel()

	w := hannWindow(8)
	assert.InDelta(t, 0.0, w[0], 1e-9)
	assert.InDelta(t, 0.0, w[len(w)-1], 1e-9)
	// Midpoint of an even-length Hann window is close to but not exactly 1.
	assert.Greater(t, w[4], 0.9)
}

func TestMapRange(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, mapRange(5, 0, 10, 0, 1), 1e-9)
	assert.InDelta(t, -1.0, mapRange(0, 0, 10, -1, 1), 1e-9)
}

func TestClamp01(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, clamp01(-5))
	assert.Equal(t, 1.0, clamp01(5))
	assert.Equal(t, 0.3, clamp01(0.3))
}
