package mastering

import "math"

// AnalyzeToSpectrumPosition derives four normalized scalars describing
// where profile sits along level, dynamic range, spectral balance, and
// energy. Pure function of profile.
func AnalyzeToSpectrumPosition(profile ContentProfile) SpectrumPosition {
	rmsDB := toDB(profile.RMS)

	inputLevel := clamp01(mapRange(rmsDB, -40, -6, 0, 1))
	dynamicRange := clamp01(mapRange(profile.CrestDB, 6, 20, 0, 1))

	var spectralBalance float64
	if profile.SpectralCentroidHz > 0 {
		octavesFrom1k := math.Log2(profile.SpectralCentroidHz / 1000)
		spectralBalance = clamp01(mapRange(octavesFrom1k, -2, 2, 0, 1))
	} else {
		spectralBalance = 0.5
	}

	tempoFactor := 0.5
	if profile.TempoBPMEstimate != nil {
		tempoFactor = clamp01(mapRange(*profile.TempoBPMEstimate, 60, 160, 0, 1))
	}
	energy := clamp01(0.5*inputLevel + 0.3*tempoFactor + 0.2*profile.SpectralFlatness)

	return SpectrumPosition{
		InputLevel:      inputLevel,
		DynamicRange:    dynamicRange,
		SpectralBalance: spectralBalance,
		Energy:          energy,
	}
}

// compressionRatioFor and expansionRatioFor implement the exact formulas
// grounded on compression_expansion.py: ratio scales linearly with amount
// over a fixed range, independent of content.
func compressionRatioFor(amount float64) float64 { return 3.0 + amount*4.0 }
func expansionRatioFor(amount float64) float64   { return 1.0 + amount }

// CalculateProcessingParameters turns a SpectrumPosition and preset hint
// into a concrete decision record. The logic is a quadrant decision table,
// not a learned model, matching the source's explicit-branches design.
func CalculateProcessingParameters(pos SpectrumPosition, preset PresetProfile) ProcessingParameters {
	var inputGainDB, compressionAmount, expansionAmount float64

	switch {
	case pos.InputLevel < 0.3 && pos.DynamicRange > 0.6:
		// Under-leveled, dynamic: bring up gain, light-to-moderate compression.
		inputGainDB = mapRange(pos.InputLevel, 0, 0.3, 6, 2)
		compressionAmount = mapRange(pos.DynamicRange, 0.6, 1.0, 0.3, 0.5)

	case pos.InputLevel > 0.7 && pos.DynamicRange < 0.3:
		// Loud, hypercompressed: de-master via expansion, leave gain alone.
		expansionAmount = mapRange(pos.DynamicRange, 0.3, 0.0, 0.4, 0.8)

	case pos.InputLevel > 0.6 && pos.DynamicRange > 0.5:
		// Loud, dynamic: tame peaks while preserving level.
		compressionAmount = mapRange(pos.DynamicRange, 0.5, 1.0, 0.6, 0.9)

	default:
		// Natural/balanced: EQ and normalization carry the work.
	}

	compressionAmount = clamp01(compressionAmount)
	expansionAmount = clamp01(expansionAmount)

	// Enforce mutual exclusion defensively even though the quadrants above
	// never set both: whichever is larger wins, the other is zeroed.
	if compressionAmount > 0.1 && expansionAmount > 0.1 {
		if compressionAmount >= expansionAmount {
			expansionAmount = 0
		} else {
			compressionAmount = 0
		}
	}

	inputGainDB += preset.DynamicsBias * 2
	inputGainDB = clamp(inputGainDB, -6, 12)

	targetRMSDB := mapRange(pos.Energy, 0, 1, -20, -8)
	targetWidth := clamp(1.0+preset.StereoBias, 0, 1.2)

	params := ProcessingParameters{
		InputGainDB:       inputGainDB,
		CompressionRatio:  compressionRatioFor(compressionAmount),
		CompressionAmount: compressionAmount,
		ExpansionAmount:   expansionAmount,
		OutputTargetRMSDB: targetRMSDB,
		TargetPeakDB:      preset.PeakTargetDB,
		TargetStereoWidth: targetWidth,
	}
	return params
}
