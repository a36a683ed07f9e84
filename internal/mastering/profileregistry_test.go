package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileRegistry_SetAndSnapshot(t *testing.T) {
	t.Parallel()

	registry := NewProfileRegistry()
	_, ok := registry.Snapshot(PresetAdaptive)
	assert.False(t, ok)

	profile := ContentProfile{RMS: 0.2, LUFS: -14}
	registry.Set(PresetAdaptive, profile)

	got, ok := registry.Snapshot(PresetAdaptive)
	assert.True(t, ok)
	assert.Equal(t, profile, got)
}

func TestProfileRegistry_PresetsAreIndependent(t *testing.T) {
	t.Parallel()

	registry := NewProfileRegistry()
	registry.Set(PresetWarm, ContentProfile{LUFS: -10})
	registry.Set(PresetBright, ContentProfile{LUFS: -20})

	warm, _ := registry.Snapshot(PresetWarm)
	bright, _ := registry.Snapshot(PresetBright)
	assert.NotEqual(t, warm.LUFS, bright.LUFS)
}
