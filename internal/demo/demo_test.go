package demo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpal-ng/healthpal/internal/cli/userconfig"
)

func newTestService(t *testing.T, allowed bool) *Service {
	t.Helper()
	store := userconfig.NewStore(filepath.Join(t.TempDir(), "state.json"))
	return NewService(store, allowed)
}

func TestFindScenario(t *testing.T) {
	s, ok := FindScenario("chest-pain")
	require.True(t, ok)
	assert.Equal(t, "emergency", s.ExpectedUrgency)
	assert.Equal(t, 6.5244, s.Location.Latitude)

	_, ok = FindScenario("broken-leg")
	assert.False(t, ok)
}

func TestService_EnableTurnsOnMockData(t *testing.T) {
	svc := newTestService(t, true)

	state, err := svc.SetDemoMode(true)
	require.NoError(t, err)
	assert.True(t, state.DemoMode)
	assert.True(t, state.UseMockData)
	assert.True(t, svc.Enabled())
}

func TestService_DisableClearsScenario(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.SetDemoMode(true)
	require.NoError(t, err)
	_, err = svc.SetScenario("fever-cough")
	require.NoError(t, err)

	scenario, ok := svc.CurrentScenario()
	require.True(t, ok)
	assert.Equal(t, "Fever and Cough", scenario.Name)

	state, err := svc.SetDemoMode(false)
	require.NoError(t, err)
	assert.Empty(t, state.CurrentScenario)
	assert.False(t, state.UseMockData)
}

func TestService_DisallowedByEnvironment(t *testing.T) {
	svc := newTestService(t, false)

	_, err := svc.SetDemoMode(true)
	assert.ErrorIs(t, err, ErrDemoDisabled)
	assert.False(t, svc.Enabled())

	// Disabling is always allowed
	_, err = svc.SetDemoMode(false)
	assert.NoError(t, err)
}

func TestService_UnknownScenario(t *testing.T) {
	svc := newTestService(t, true)

	_, err := svc.SetScenario("nope")
	assert.Error(t, err)
}

func TestService_Reset(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.SetDemoMode(true)
	require.NoError(t, err)
	_, err = svc.SetScenario("stomach-ache")
	require.NoError(t, err)
	_, err = svc.ToggleIndicators()
	require.NoError(t, err)

	state, err := svc.Reset()
	require.NoError(t, err)
	assert.False(t, state.DemoMode)
	assert.False(t, state.UseMockData)
	assert.Empty(t, state.CurrentScenario)
	assert.False(t, state.ShowDemoIndicators, "reset leaves the indicator setting alone")
}
