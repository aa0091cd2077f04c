package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingReturnsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultState(), state)
}

func TestStore_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewStore(path)

	_, err := store.Update(func(s *State) {
		s.DemoMode = true
		s.CurrentScenario = "chest-pain"
	})
	require.NoError(t, err)

	state, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.True(t, state.DemoMode)
	assert.Equal(t, "chest-pain", state.CurrentScenario)
	assert.True(t, state.ShowDemoIndicators)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}
