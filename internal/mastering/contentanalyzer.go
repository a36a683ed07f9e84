package mastering

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fftSize is the analysis window size; overlap is 50%, matching the
// psychoacoustic EQ's processing window so the two stages agree on what a
// "frame" of spectral content looks like.
const fftSize = 2048

// lufsAbsoluteGateDB and lufsRelativeGateLU are the ITU-R BS.1770 gating
// thresholds: blocks quieter than the absolute gate never count, and blocks
// more than the relative gate below the mean of the absolute-gated blocks
// are dropped on the second pass.
const (
	lufsAbsoluteGateDB = -70.0
	lufsRelativeGateLU = -10.0
	lufsBlockSeconds   = 0.4
)

// ContentAnalyzer derives a ContentProfile from a window of audio: level,
// dynamic range, spectral shape, and an ITU-R BS.1770 LUFS estimate. It
// holds no per-track state and is safe for concurrent use.
type ContentAnalyzer struct {
	fft *fourier.FFT
	win []float64
}

// NewContentAnalyzer builds an analyzer with a pre-allocated FFT plan and
// Hann window, grounded on the FFT-plan-reuse pattern of spectral analysis
// in the example pack.
func NewContentAnalyzer() *ContentAnalyzer {
	return &ContentAnalyzer{
		fft: fourier.NewFFT(fftSize),
		win: hannWindow(fftSize),
	}
}

// Analyze computes a ContentProfile for buf. buf must be stereo-interleaved
// per AudioBuffer's contract.
func (a *ContentAnalyzer) Analyze(buf AudioBuffer) (ContentProfile, error) {
	if buf.Frames() == 0 {
		return ContentProfile{}, NewShapeError(errEmptyBuffer, "content-analyzer")
	}

	mono := downmix(buf.Samples)

	peak := peakAmplitude(buf.Samples)
	rms := rmsAmplitude(buf.Samples)
	peakDB := toDB(peak)
	rmsDB := toDB(rms)

	centroidHz, rolloffHz, flatness := a.spectralShape(mono, buf.SampleRate)
	lufs := a.integratedLUFS(buf.Samples, buf.SampleRate)
	width := stereoWidthOf(buf.Samples)

	return ContentProfile{
		RMS:                rms,
		Peak:               peak,
		CrestDB:            crestDB(peakDB, rmsDB),
		LUFS:                lufs,
		SpectralCentroidHz: centroidHz,
		SpectralRolloffHz:  rolloffHz,
		SpectralFlatness:   flatness,
		DynamicRangeDB:     crestDB(peakDB, rmsDB),
		StereoWidth:        width,
		GenreHint:          GenreUnknown,
		InputLevelInfo: InputLevelInfo{
			IntegratedLUFS:    lufs,
			TruePeakDB:        peakDB,
			EstimatedHeadroom: -peakDB,
		},
	}, nil
}

// spectralShape runs a single averaged-magnitude FFT pass over mono and
// returns the spectral centroid, 85%-energy rolloff, and spectral flatness
// (geometric mean / arithmetic mean of the magnitude spectrum).
func (a *ContentAnalyzer) spectralShape(mono []float64, sampleRate int) (centroidHz, rolloffHz, flatness float64) {
	if len(mono) < fftSize {
		return 0, 0, 0
	}

	binCount := fftSize/2 + 1
	magSum := make([]float64, binCount)
	fftIn := make([]float64, fftSize)

	hop := fftSize / 2
	windows := 0
	for pos := 0; pos+fftSize <= len(mono); pos += hop {
		for i := 0; i < fftSize; i++ {
			fftIn[i] = mono[pos+i] * a.win[i]
		}
		coeffs := a.fft.Coefficients(nil, fftIn)
		for i, c := range coeffs {
			magSum[i] += math.Hypot(real(c), imag(c))
		}
		windows++
	}
	if windows == 0 {
		return 0, 0, 0
	}

	binHz := float64(sampleRate) / float64(fftSize)

	var weightedSum, totalMag float64
	for i, m := range magSum {
		freq := float64(i) * binHz
		weightedSum += freq * m
		totalMag += m
	}
	if totalMag > 0 {
		centroidHz = weightedSum / totalMag
	}

	target := totalMag * 0.85
	var running float64
	for i, m := range magSum {
		running += m
		if running >= target {
			rolloffHz = float64(i) * binHz
			break
		}
	}

	flatness = spectralFlatness(magSum)
	return centroidHz, rolloffHz, flatness
}

// spectralFlatness is geometric mean / arithmetic mean over nonzero bins,
// in [0, 1]: near 1 is noise-like, near 0 is tonal.
func spectralFlatness(mag []float64) float64 {
	var logSum, arithSum float64
	n := 0
	for _, m := range mag {
		if m <= 1e-12 {
			continue
		}
		logSum += math.Log(m)
		arithSum += m
		n++
	}
	if n == 0 {
		return 0
	}
	geoMean := math.Exp(logSum / float64(n))
	arithMean := arithSum / float64(n)
	if arithMean <= 0 {
		return 0
	}
	return clamp01(geoMean / arithMean)
}

// integratedLUFS implements a simplified ITU-R BS.1770 gated loudness
// measurement: mean-square per 400ms block, K-weighting approximated by the
// already-stereo-summed power (no pre/high-shelf filter), absolute gate at
// -70 LUFS, relative gate at -10 LU below the absolute-gated mean.
func (a *ContentAnalyzer) integratedLUFS(samples []float32, sampleRate int) float64 {
	blockFrames := int(lufsBlockSeconds * float64(sampleRate))
	if blockFrames <= 0 {
		return minDBFloor
	}
	frames := len(samples) / 2

	var blockPowers []float64
	for start := 0; start+blockFrames <= frames; start += blockFrames {
		var sum float64
		for f := start; f < start+blockFrames; f++ {
			l := float64(samples[2*f])
			r := float64(samples[2*f+1])
			sum += l*l + r*r
		}
		power := sum / float64(blockFrames*2)
		blockPowers = append(blockPowers, power)
	}
	if len(blockPowers) == 0 {
		return minDBFloor
	}

	ungated := meanLoudness(blockPowers, -math.MaxFloat64)
	gated := meanLoudness(blockPowers, ungated+lufsRelativeGateLU)
	return gated
}

// meanLoudness averages blocks whose loudness exceeds gateLUFS and returns
// the loudness (LUFS) of that average, applying the -70 LUFS absolute gate
// unconditionally.
func meanLoudness(blockPowers []float64, gateLUFS float64) float64 {
	var sum float64
	var n int
	for _, p := range blockPowers {
		l := loudnessOf(p)
		if l < lufsAbsoluteGateDB {
			continue
		}
		if l < gateLUFS {
			continue
		}
		sum += p
		n++
	}
	if n == 0 {
		return minDBFloor
	}
	return loudnessOf(sum / float64(n))
}

// loudnessOf converts mean-square power to LUFS: -0.691 + 10*log10(power),
// the BS.1770 calibration constant.
func loudnessOf(power float64) float64 {
	if power <= 1e-12 {
		return minDBFloor
	}
	return -0.691 + 10*math.Log10(power)
}

// downmix averages interleaved stereo into mono for spectral analysis.
func downmix(samples []float32) []float64 {
	frames := len(samples) / 2
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		out[f] = (float64(samples[2*f]) + float64(samples[2*f+1])) / 2
	}
	return out
}

// stereoWidthOf estimates stereo width as 1 - correlation(L, R), in [0, 2]
// where 0 is mono and larger values indicate wider/out-of-phase content.
func stereoWidthOf(samples []float32) float64 {
	frames := len(samples) / 2
	if frames == 0 {
		return 0
	}
	var sumL, sumR, sumLR, sumLL, sumRR float64
	for f := 0; f < frames; f++ {
		l := float64(samples[2*f])
		r := float64(samples[2*f+1])
		sumL += l
		sumR += r
		sumLR += l * r
		sumLL += l * l
		sumRR += r * r
	}
	n := float64(frames)
	covLR := sumLR/n - (sumL/n)*(sumR/n)
	varL := sumLL/n - (sumL/n)*(sumL/n)
	varR := sumRR/n - (sumR/n)*(sumR/n)
	denom := math.Sqrt(varL * varR)
	if denom <= 1e-12 {
		return 0
	}
	correlation := clamp(covLR/denom, -1, 1)
	return 1 - correlation
}
