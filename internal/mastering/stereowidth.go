package mastering

import "math"

// StereoWidthSafetyMode selects how aggressively width changes are
// permitted on already-loud material.
type StereoWidthSafetyMode int

const (
	// StereoWidthAdaptive clamps expansion on loud material instead of
	// refusing it outright.
	StereoWidthAdaptive StereoWidthSafetyMode = iota
	// StereoWidthConservative refuses any expansion on loud material.
	StereoWidthConservative
)

// stereoWidthMinChangeThreshold is the smallest |target-current| the
// adjuster will bother acting on, avoiding numeric churn on near-unity
// requests.
const stereoWidthMinChangeThreshold = 0.1

// stereoWidthLoudPeakDB is the peak level above which the safety rules
// engage, grounded on stereo_width_processor.py's apply_stereo_width_safe.
const stereoWidthLoudPeakDB = 3.0

// stereoWidthMaxIncrease bounds how far above currentWidth the adaptive
// mode will allow target to be clamped when peak is loud.
const stereoWidthMaxIncrease = 0.6

// StereoWidthAdjuster rebalances the M/S ratio toward a target width,
// refusing or limiting expansion on loud material per SafetyMode.
type StereoWidthAdjuster struct {
	SafetyMode StereoWidthSafetyMode
}

// NewStereoWidthAdjuster returns an adjuster in adaptive mode.
func NewStereoWidthAdjuster() *StereoWidthAdjuster {
	return &StereoWidthAdjuster{SafetyMode: StereoWidthAdaptive}
}

// Adjust scales the side channel toward targetWidth. Mono buffers (all
// samples identical across channels within epsilon) pass through unchanged.
func (a *StereoWidthAdjuster) Adjust(buf AudioBuffer, currentWidth, targetWidth, peakDB float64) AudioBuffer {
	if buf.Frames() == 0 {
		return buf
	}

	target := targetWidth
	if peakDB > stereoWidthLoudPeakDB && target > currentWidth {
		switch a.SafetyMode {
		case StereoWidthConservative:
			out := make([]float32, len(buf.Samples))
			copy(out, buf.Samples)
			return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
		default:
			target = math.Min(target, currentWidth+stereoWidthMaxIncrease)
		}
	}

	if math.Abs(target-currentWidth) < stereoWidthMinChangeThreshold {
		out := make([]float32, len(buf.Samples))
		copy(out, buf.Samples)
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
	}

	scale := 1.0
	if currentWidth > 1e-9 {
		scale = target / currentWidth
	}

	frames := buf.Frames()
	out := make([]float32, len(buf.Samples))
	for f := 0; f < frames; f++ {
		l := float64(buf.Samples[2*f])
		r := float64(buf.Samples[2*f+1])
		mid := (l + r) / 2
		side := (l - r) / 2 * scale
		out[2*f] = float32(mid + side)
		out[2*f+1] = float32(mid - side)
	}
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
}
