package mastering

import "log/slog"

// loudnessRMSBoostMinDeltaDB, loudnessRMSBoostCeilingDB and
// loudnessRMSBoostMaxDB bound the optional RMS boost sub-stage, grounded on
// normalization_step.py's gain clamp.
const (
	loudnessRMSBoostMinDeltaDB  = 0.5
	loudnessRMSBoostCeilingDB   = -15.0
	loudnessRMSBoostMaxDB       = 12.0
)

// LoudnessStage runs RMSBoost, then PeakNormalize, then SafetySoftClip, in
// that fixed order (§9 resolved open question: RMS boost always precedes
// peak normalize, matching normalization_step.py/peak_management.py).
type LoudnessStage struct {
	logger *slog.Logger
}

// NewLoudnessStage returns a stage that logs its sub-stage decisions at
// debug level, matching the measure/apply/remeasure logging pattern of
// NormalizationStep.
func NewLoudnessStage(logger *slog.Logger) *LoudnessStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoudnessStage{logger: logger}
}

// LoudnessResult carries the measurements ChunkMetrics needs alongside the
// processed buffer.
type LoudnessResult struct {
	Buffer        AudioBuffer
	AppliedGainDB float64
	PreRMSDB      float64
	PostRMSDB     float64
	PrePeakDB     float64
	PostPeakDB    float64
}

// Process runs the three sub-stages against buf using params and returns
// the final buffer plus measurements.
func (s *LoudnessStage) Process(buf AudioBuffer, params ProcessingParameters) (LoudnessResult, error) {
	if buf.Frames() == 0 {
		return LoudnessResult{}, NewShapeError(errEmptyBuffer, "loudness-stage")
	}

	preRMSDB := toDB(rmsAmplitude(buf.Samples))
	prePeakDB := toDB(peakAmplitude(buf.Samples))

	boosted, gainApplied := s.rmsBoost(buf, params, preRMSDB)
	normalized := s.peakNormalize(boosted, params.TargetPeakDB)
	clipped := s.safetySoftClip(normalized)

	postRMSDB := toDB(rmsAmplitude(clipped.Samples))
	postPeakDB := toDB(peakAmplitude(clipped.Samples))

	s.logger.Debug("loudness stage complete",
		"pre_rms_db", preRMSDB, "post_rms_db", postRMSDB,
		"pre_peak_db", prePeakDB, "post_peak_db", postPeakDB,
		"applied_gain_db", gainApplied)

	return LoudnessResult{
		Buffer:        clipped,
		AppliedGainDB: gainApplied,
		PreRMSDB:      preRMSDB,
		PostRMSDB:     postRMSDB,
		PrePeakDB:     prePeakDB,
		PostPeakDB:    postPeakDB,
	}, nil
}

// rmsBoost applies the conditional gain described in §4.7: only when the
// target-vs-current delta exceeds 0.5dB, current RMS is already below
// -15dB, and expansion isn't already handling level.
func (s *LoudnessStage) rmsBoost(buf AudioBuffer, params ProcessingParameters, currentRMSDB float64) (AudioBuffer, float64) {
	delta := params.OutputTargetRMSDB - currentRMSDB
	if !(delta > loudnessRMSBoostMinDeltaDB && currentRMSDB < loudnessRMSBoostCeilingDB && params.ExpansionAmount < 0.1) {
		out := make([]float32, len(buf.Samples))
		copy(out, buf.Samples)
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}, 0
	}

	gainDB := clamp(delta, 0, loudnessRMSBoostMaxDB)
	return AudioBuffer{Samples: amplify(buf.Samples, gainDB), SampleRate: buf.SampleRate}, gainDB
}

// peakNormalize unconditionally scales buf so its peak matches
// targetPeakDB, grounded on PeakNormalizer.normalize_to_target.
func (s *LoudnessStage) peakNormalize(buf AudioBuffer, targetPeakDB float64) AudioBuffer {
	peak := peakAmplitude(buf.Samples)
	if peak <= 1e-10 {
		out := make([]float32, len(buf.Samples))
		copy(out, buf.Samples)
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
	}
	targetLinear := toLinear(targetPeakDB)
	gainDB := toDB(targetLinear / peak)
	return AudioBuffer{Samples: amplify(buf.Samples, gainDB), SampleRate: buf.SampleRate}
}

// safetySoftClip applies the tanh soft clipper only if the buffer's peak
// still exceeds SafetyThresholdDB, grounded on SafetyLimiter.apply_if_needed.
func (s *LoudnessStage) safetySoftClip(buf AudioBuffer) AudioBuffer {
	peakDB := toDB(peakAmplitude(buf.Samples))
	if peakDB <= SafetyThresholdDB {
		out := make([]float32, len(buf.Samples))
		copy(out, buf.Samples)
		return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
	}
	ceiling := toLinear(SafetyThresholdDB)
	out := softClip(buf.Samples, SafetyClipThreshold, ceiling)
	return AudioBuffer{Samples: out, SampleRate: buf.SampleRate}
}
