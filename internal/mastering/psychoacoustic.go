package mastering

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// eqBandCount is the number of critical-band gains a target curve carries.
const eqBandCount = 26

// eqHop is the overlap-add hop size: 50% overlap at fftSize.
const eqHop = fftSize / 2

// TargetCurve is a 26-element vector of per-critical-band gains in dB,
// indexed per the band table in §4.4.
type TargetCurve [eqBandCount]float64

// BuildTargetCurve derives a 26-band curve from a preset's tilts, then
// applies content-aware adjustment and a global intensity multiplier.
func BuildTargetCurve(preset PresetProfile, profile ContentProfile, intensity float64) TargetCurve {
	var curve TargetCurve
	for i := range curve {
		curve[i] = eqBandBaseGain(i, preset.EQTilts)
	}

	if profile.SpectralCentroidHz > 3500 {
		dampenBands(&curve, 16, 26, 0.6)
	} else if profile.SpectralCentroidHz > 0 && profile.SpectralCentroidHz < 1000 {
		boostBands(&curve, 20, 26, 1.3)
		boostBands(&curve, 8, 16, 1.15)
	}

	dynamicScale := 1.0 - 0.3*clamp01(mapRange(profile.DynamicRangeDB, 6, 20, 0, 1))
	for i := range curve {
		curve[i] *= dynamicScale * intensity
	}
	return curve
}

func eqBandBaseGain(band int, tilts EQTilts) float64 {
	switch {
	case band <= 3:
		return tilts.Bass
	case band <= 7:
		return tilts.LowMid
	case band <= 15:
		return tilts.Mid
	case band <= 19:
		return tilts.HighMid
	default:
		return tilts.Treble
	}
}

func dampenBands(curve *TargetCurve, from, to int, factor float64) {
	for i := from; i < to && i < len(curve); i++ {
		curve[i] *= factor
	}
}

func boostBands(curve *TargetCurve, from, to int, factor float64) {
	for i := from; i < to && i < len(curve); i++ {
		curve[i] *= factor
	}
}

// PsychoacousticEQ applies a 26-band gain curve via overlap-add FFT
// processing, falling back to a single broadband gain (shelfFallback) if the
// buffer is shorter than one FFT window or the transform yields non-finite
// output.
type PsychoacousticEQ struct {
	fft    *fourier.FFT
	window []float64
	logger *slog.Logger
}

// NewPsychoacousticEQ builds an EQ with a pre-allocated FFT plan.
func NewPsychoacousticEQ(logger *slog.Logger) *PsychoacousticEQ {
	if logger == nil {
		logger = slog.Default()
	}
	return &PsychoacousticEQ{
		fft:    fourier.NewFFT(fftSize),
		window: hannWindow(fftSize),
		logger: logger,
	}
}

// ProcessChunk applies curve to buf via overlap-add, each FFT bin taking the
// gain of its band (see binGainsFromCurve).
func (eq *PsychoacousticEQ) ProcessChunk(buf AudioBuffer, curve TargetCurve, state *ProcessingState) (AudioBuffer, error) {
	if buf.Frames() == 0 {
		return buf, NewShapeError(errEmptyBuffer, "psychoacoustic-eq")
	}
	if buf.Frames() < fftSize {
		// Too short to window meaningfully; fall back directly.
		return eq.shelfFallback(buf, curve), nil
	}

	binGains := binGainsFromCurve(curve, buf.SampleRate)

	left := deinterleave(buf.Samples, 0)
	right := deinterleave(buf.Samples, 1)

	outLeft, ok1 := eq.overlapAdd(left, binGains)
	outRight, ok2 := eq.overlapAdd(right, binGains)
	if !ok1 || !ok2 {
		eq.logger.Debug("psychoacoustic eq falling back to shelf filter", "reason", "non-finite fft output")
		return eq.shelfFallback(buf, curve), nil
	}

	out := interleave(outLeft, outRight)
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, nil
}

// binGainsFromCurve maps the 26-band curve onto the fftSize/2+1 FFT bins by
// nearest-band lookup against the band table in §4.4.
func binGainsFromCurve(curve TargetCurve, sampleRate int) []float64 {
	binCount := fftSize/2 + 1
	binHz := float64(sampleRate) / float64(fftSize)
	gains := make([]float64, binCount)
	for i := range gains {
		freq := float64(i) * binHz
		band := bandForFrequency(freq)
		gains[i] = toLinear(curve[band])
	}
	return gains
}

func bandForFrequency(freq float64) int {
	switch {
	case freq < 250:
		return int(clamp(mapRange(freq, 20, 250, 0, 3), 0, 3))
	case freq < 500:
		return int(clamp(mapRange(freq, 250, 500, 4, 7), 4, 7))
	case freq < 2000:
		return int(clamp(mapRange(freq, 500, 2000, 8, 15), 8, 15))
	case freq < 4000:
		return int(clamp(mapRange(freq, 2000, 4000, 16, 19), 16, 19))
	default:
		return 25
	}
}

// overlapAdd windows, transforms, scales per-bin, inverse-transforms, and
// accumulates hop-shifted frames. Returns ok=false if any output sample is
// non-finite.
func (eq *PsychoacousticEQ) overlapAdd(mono []float64, binGains []float64) ([]float64, bool) {
	out := make([]float64, len(mono))
	windowSum := make([]float64, len(mono))
	fftIn := make([]float64, fftSize)

	for pos := 0; pos+fftSize <= len(mono); pos += eqHop {
		for i := 0; i < fftSize; i++ {
			fftIn[i] = mono[pos+i] * eq.window[i]
		}
		coeffs := eq.fft.Coefficients(nil, fftIn)
		for i, g := range binGains {
			if i < len(coeffs) {
				coeffs[i] *= complex(g, 0)
			}
		}
		timeDomain := eq.fft.Sequence(nil, coeffs)
		for i := 0; i < fftSize; i++ {
			scaled := timeDomain[i] / float64(fftSize)
			out[pos+i] += scaled * eq.window[i]
			windowSum[pos+i] += eq.window[i] * eq.window[i]
		}
	}

	for i := range out {
		if windowSum[i] > 1e-9 {
			out[i] /= windowSum[i]
		}
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

// shelfFallback applies one broadband gain, the mean of curve's first and
// last bands, for use when the FFT path is unavailable or unstable. It does
// no frequency-dependent shelving: bass and treble get the same gain.
func (eq *PsychoacousticEQ) shelfFallback(buf AudioBuffer, curve TargetCurve) AudioBuffer {
	bassGainDB := curve[0]
	trebleGainDB := curve[eqBandCount-1]
	avgGainDB := (bassGainDB + trebleGainDB) / 2
	out := amplify(buf.Samples, avgGainDB)
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
}

func deinterleave(samples []float32, channel int) []float64 {
	frames := len(samples) / 2
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		out[f] = float64(samples[2*f+channel])
	}
	return out
}

func interleave(left, right []float64) []float32 {
	out := make([]float32, len(left)*2)
	for f := range left {
		out[2*f] = float32(left[f])
		out[2*f+1] = float32(right[f])
	}
	return out
}
