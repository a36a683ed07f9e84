package mastering

import "math"

// dynamicsThresholdHeadroomDB is the fixed offset above measured RMS both
// the compressor and expander use to place their threshold, grounded on
// compression_expansion.py's shared `threshold_db = rms_db + 3.0`.
const dynamicsThresholdHeadroomDB = 3.0

// DynamicsEngine applies the soft-knee compressor or peak expander chosen
// by ProcessingParameters. The two modes are mutually exclusive per chunk.
type DynamicsEngine struct{}

// NewDynamicsEngine returns a stateless engine; all cross-chunk memory
// lives in the caller-supplied ProcessingState.
func NewDynamicsEngine() *DynamicsEngine { return &DynamicsEngine{} }

// Apply runs the compressor or expander selected by params.CompressionAmount
// / params.ExpansionAmount against buf, returning a new buffer. It never
// mutates buf (issue #2150) and updates state's envelope memory in place.
func (e *DynamicsEngine) Apply(buf AudioBuffer, params ProcessingParameters, state *ProcessingState) (AudioBuffer, error) {
	if buf.Frames() == 0 {
		return buf, NewShapeError(errEmptyBuffer, "dynamics-engine")
	}

	clean := clampNonFinite(buf.Samples)
	rmsDB := toDB(rmsAmplitude(clean))
	thresholdDB := rmsDB + dynamicsThresholdHeadroomDB

	switch {
	case params.CompressionAmount > 0.1:
		out := compress(clean, thresholdDB, compressionRatioFor(params.CompressionAmount))
		state.compressor.lastThresholdDB = thresholdDB
		state.compressor.initialized = true
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, nil

	case params.ExpansionAmount > 0.1:
		out := expand(clean, thresholdDB, expansionRatioFor(params.ExpansionAmount))
		state.expander.lastThresholdDB = thresholdDB
		state.expander.initialized = true
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, nil

	default:
		out := make([]float32, len(clean))
		copy(out, clean)
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, nil
	}
}

// compress attenuates samples whose magnitude exceeds thresholdDB by ratio,
// sign preserved. Grounded on CompressionStrategies.apply_soft_knee_compression.
func compress(samples []float32, thresholdDB, ratio float64) []float32 {
	thresholdLinear := toLinear(thresholdDB)
	out := make([]float32, len(samples))
	for i, s := range samples {
		v := float64(s)
		a := math.Abs(v)
		if a <= thresholdLinear || thresholdLinear <= 0 {
			out[i] = s
			continue
		}
		excessDB := toDB(a) - thresholdDB
		attenuatedExcessDB := excessDB / ratio
		resultDB := thresholdDB + attenuatedExcessDB
		out[i] = float32(math.Copysign(toLinear(resultDB), v))
	}
	return out
}

// expand boosts samples whose magnitude exceeds thresholdDB by ratio in the
// log domain, sign preserved. Grounded on
// ExpansionStrategies.apply_peak_enhancement_expansion.
func expand(samples []float32, thresholdDB, ratio float64) []float32 {
	thresholdLinear := toLinear(thresholdDB)
	out := make([]float32, len(samples))
	for i, s := range samples {
		v := float64(s)
		a := math.Abs(v)
		if a <= thresholdLinear || thresholdLinear <= 0 {
			out[i] = s
			continue
		}
		excessDB := toDB(a) - thresholdDB
		expandedExcessDB := excessDB * ratio
		resultDB := thresholdDB + expandedExcessDB
		out[i] = float32(math.Copysign(toLinear(resultDB), v))
	}
	return out
}
