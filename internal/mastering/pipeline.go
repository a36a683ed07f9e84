package mastering

import "log/slog"

// Pipeline orchestrates the six processing stages over one ProcessingState.
// A Pipeline must not be shared across goroutines (ProcessingState invariant).
type Pipeline struct {
	analyzer     *ContentAnalyzer
	presets      *PresetTable
	eq           *PsychoacousticEQ
	dynamics     *DynamicsEngine
	stereoWidth  *StereoWidthAdjuster
	loudness     *LoudnessStage
	logger       *slog.Logger

	state        *ProcessingState
	lastMetrics  ChunkMetrics
}

// NewPipeline builds a pipeline with a fresh ProcessingState, suitable for
// one (track, preset, intensity) session.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		analyzer:    NewContentAnalyzer(),
		presets:     NewPresetTable(),
		eq:          NewPsychoacousticEQ(logger),
		dynamics:    NewDynamicsEngine(),
		stereoWidth: NewStereoWidthAdjuster(),
		loudness:    NewLoudnessStage(logger),
		logger:      logger,
		state:       NewProcessingState(),
	}
}

// Process runs the full content-analysis → EQ → dynamics → stereo-width →
// loudness chain over buf for the given preset. intensity scales only the
// EQ target curve (0 = flat EQ, 1 = full curve); dynamics, stereo width and
// loudness run at full strength whatever its value. ChunkDriver blends the
// result with the original audio by intensity.
func (p *Pipeline) Process(buf AudioBuffer, preset Preset, intensity float64) (AudioBuffer, error) {
	if buf.Frames() == 0 {
		return buf, NewShapeError(errEmptyBuffer, "mastering-pipeline")
	}
	if buf.Frames() == 1 {
		// Too short for any analysis window to mean anything; the safest
		// behavior is to return the input unchanged rather than run a
		// decision table over a degenerate profile.
		return buf.Clone(), nil
	}

	profile, err := p.analyzer.Analyze(buf)
	if err != nil {
		return buf, err
	}

	presetProfile := p.presets.GetPreset(preset)
	position := AnalyzeToSpectrumPosition(profile)
	params := CalculateProcessingParameters(position, presetProfile)
	if err := params.Validate(); err != nil {
		return buf, err
	}

	curve := BuildTargetCurve(presetProfile, profile, intensity)
	afterEQ, err := p.eq.ProcessChunk(buf, curve, p.state)
	if err != nil {
		return buf, err
	}

	gained := AudioBuffer{Samples: amplify(afterEQ.Samples, params.InputGainDB), SampleRate: afterEQ.SampleRate}

	afterDynamics, err := p.dynamics.Apply(gained, params, p.state)
	if err != nil {
		return buf, err
	}

	prePeakDB := toDB(peakAmplitude(afterDynamics.Samples))
	afterWidth := p.stereoWidth.Adjust(afterDynamics, profile.StereoWidth, params.TargetStereoWidth, prePeakDB)

	result, err := p.loudness.Process(afterWidth, params)
	if err != nil {
		return buf, err
	}

	p.state.RecordChunkRMSDB(result.PostRMSDB)
	p.lastMetrics = ChunkMetrics{
		PrePeakDB:        toDB(profile.Peak),
		PreRMSDB:         toDB(profile.RMS),
		PreCrestDB:       profile.CrestDB,
		PostPeakDB:       result.PostPeakDB,
		PostRMSDB:        result.PostRMSDB,
		PostCrestDB:      crestDB(result.PostPeakDB, result.PostRMSDB),
		LUFS:             profile.LUFS,
		AppliedGainDB:    params.InputGainDB + result.AppliedGainDB,
		SmoothingDeltaDB: 0,
		Parameters:       params,
	}

	return result.Buffer, nil
}

// LastMetrics returns the ChunkMetrics recorded by the most recent Process
// call.
func (p *Pipeline) LastMetrics() ChunkMetrics {
	return p.lastMetrics
}

// State exposes the pipeline's ProcessingState, primarily so ChunkDriver
// can smooth inter-chunk level deltas against LastChunkRMSDB.
func (p *Pipeline) State() *ProcessingState {
	return p.state
}
