package mastering

// PresetTable is the immutable mapping from Preset to its target curves.
// The table is a fixed array indexed by the Preset enum rather than a
// string-keyed map, per the design note on replacing dynamic dispatch over
// presets with a static table.
type PresetTable struct {
	rows [5]PresetProfile
}

// NewPresetTable builds the closed five-preset table. Values mirror the
// original implementation's per-preset peak ceilings and EQ tilts.
func NewPresetTable() *PresetTable {
	t := &PresetTable{}
	t.rows[PresetAdaptive] = PresetProfile{
		Name: PresetAdaptive, PeakTargetDB: -1.0,
		EQTilts: EQTilts{}, StereoBias: 0, DynamicsBias: 0,
	}
	t.rows[PresetGentle] = PresetProfile{
		Name: PresetGentle, PeakTargetDB: -1.5,
		EQTilts: EQTilts{Bass: 0.5, Treble: 0.5}, StereoBias: -0.05, DynamicsBias: -0.2,
	}
	t.rows[PresetWarm] = PresetProfile{
		Name: PresetWarm, PeakTargetDB: -1.2,
		EQTilts: EQTilts{Bass: 1.5, LowMid: 0.5, Treble: -0.5}, StereoBias: 0, DynamicsBias: -0.1,
	}
	t.rows[PresetBright] = PresetProfile{
		Name: PresetBright, PeakTargetDB: -1.0,
		EQTilts: EQTilts{HighMid: 1.0, Treble: 1.5}, StereoBias: 0.05, DynamicsBias: 0,
	}
	t.rows[PresetPunchy] = PresetProfile{
		Name: PresetPunchy, PeakTargetDB: -0.5,
		EQTilts: EQTilts{Bass: 1.0, Mid: 0.5}, StereoBias: 0, DynamicsBias: 0.3,
	}
	return t
}

// Get returns the profile for name, case-insensitively, falling back to
// the adaptive profile for anything unrecognized. It never errors.
func (t *PresetTable) Get(name string) PresetProfile {
	return t.GetPreset(ParsePreset(name))
}

// GetPreset returns the profile for an already-parsed Preset.
func (t *PresetTable) GetPreset(p Preset) PresetProfile {
	if int(p) < 0 || int(p) >= len(t.rows) {
		return t.rows[PresetAdaptive]
	}
	return t.rows[p]
}
