// Package demo holds the canned demo scenarios and the persisted demo mode switch.
package demo

import (
	"errors"
	"fmt"

	"github.com/healthpal-ng/healthpal/internal/cli/userconfig"
)

// ErrDemoDisabled is returned when demo mode is disabled by configuration
var ErrDemoDisabled = errors.New("demo mode is disabled by HEALTHPAL_ENABLE_DEMO_MODE=false")

// Location is a named coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// Scenario is a prepared symptom description used to demo triage
type Scenario struct {
	ID              string
	Name            string
	Description     string
	Symptoms        string
	ExpectedUrgency string
	Location        *Location
}

var lagos = &Location{Latitude: 6.5244, Longitude: 3.3792, Name: "Lagos, Nigeria"}

// Scenarios are the fixed demo scenarios
var Scenarios = []Scenario{
	{
		ID:              "headache-mild",
		Name:            "Mild Headache",
		Description:     "Common headache with no severe symptoms",
		Symptoms:        "I have a mild headache that started this morning. No fever, no nausea, just a dull ache.",
		ExpectedUrgency: "low",
		Location:        lagos,
	},
	{
		ID:              "chest-pain",
		Name:            "Chest Pain",
		Description:     "Chest discomfort requiring immediate attention",
		Symptoms:        "I am experiencing sharp chest pain that radiates to my left arm. I feel short of breath and dizzy.",
		ExpectedUrgency: "emergency",
		Location:        lagos,
	},
	{
		ID:              "fever-cough",
		Name:            "Fever and Cough",
		Description:     "Flu-like symptoms needing medical attention",
		Symptoms:        "I have had a fever of 38.5°C for 2 days with a persistent cough and body aches.",
		ExpectedUrgency: "medium",
		Location:        lagos,
	},
	{
		ID:              "stomach-ache",
		Name:            "Stomach Ache",
		Description:     "Digestive discomfort",
		Symptoms:        "I have been having stomach cramps and nausea since yesterday evening after eating.",
		ExpectedUrgency: "low",
		Location:        lagos,
	},
}

// FindScenario returns the scenario with the given id
func FindScenario(id string) (*Scenario, bool) {
	for i := range Scenarios {
		if Scenarios[i].ID == id {
			return &Scenarios[i], true
		}
	}
	return nil, false
}

// Service switches demo mode on and off
type Service struct {
	store   *userconfig.Store
	allowed bool
}

// NewService creates a demo service. allowed is false when the environment
// disables demo mode; the mode can then never be turned on.
func NewService(store *userconfig.Store, allowed bool) *Service {
	return &Service{store: store, allowed: allowed}
}

// Allowed reports whether demo mode may be enabled
func (s *Service) Allowed() bool {
	return s.allowed
}

// State returns the current demo state
func (s *Service) State() (*userconfig.State, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if !s.allowed {
		state.DemoMode = false
		state.UseMockData = false
	}
	return state, nil
}

// Enabled reports whether demo mode is on
func (s *Service) Enabled() bool {
	state, err := s.State()
	return err == nil && state.DemoMode
}

// UseMockData reports whether failed calls should fall back to mock data
func (s *Service) UseMockData() bool {
	state, err := s.State()
	return err == nil && state.UseMockData
}

// SetDemoMode turns demo mode on or off. Enabling also enables mock data;
// disabling clears the selected scenario.
func (s *Service) SetDemoMode(enabled bool) (*userconfig.State, error) {
	if enabled && !s.allowed {
		return nil, ErrDemoDisabled
	}
	return s.store.Update(func(state *userconfig.State) {
		state.DemoMode = enabled
		state.UseMockData = enabled
		if !enabled {
			state.CurrentScenario = ""
		}
	})
}

// SetScenario selects a scenario by id, or clears it when id is empty
func (s *Service) SetScenario(id string) (*userconfig.State, error) {
	if id != "" {
		if _, ok := FindScenario(id); !ok {
			return nil, fmt.Errorf("unknown demo scenario %q", id)
		}
	}
	return s.store.Update(func(state *userconfig.State) {
		state.CurrentScenario = id
	})
}

// CurrentScenario returns the selected scenario, if any
func (s *Service) CurrentScenario() (*Scenario, bool) {
	state, err := s.State()
	if err != nil || state.CurrentScenario == "" {
		return nil, false
	}
	return FindScenario(state.CurrentScenario)
}

// ToggleIndicators flips whether the demo banner is shown
func (s *Service) ToggleIndicators() (*userconfig.State, error) {
	return s.store.Update(func(state *userconfig.State) {
		state.ShowDemoIndicators = !state.ShowDemoIndicators
	})
}

// SetUseMockData sets the mock data fallback independently of demo mode
func (s *Service) SetUseMockData(useMock bool) (*userconfig.State, error) {
	return s.store.Update(func(state *userconfig.State) {
		state.UseMockData = useMock
	})
}

// Reset turns demo mode off and clears the scenario and mock data
func (s *Service) Reset() (*userconfig.State, error) {
	return s.store.Update(func(state *userconfig.State) {
		state.DemoMode = false
		state.CurrentScenario = ""
		state.UseMockData = false
	})
}
