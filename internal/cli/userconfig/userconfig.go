package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	configDirName = "healthpal"
	stateFileName = "state.json"
)

// State represents the user's local state stored in ~/.config/healthpal/state.json
type State struct {
	DemoMode           bool   `json:"demo_mode"`
	CurrentScenario    string `json:"current_scenario,omitempty"`
	ShowDemoIndicators bool   `json:"show_demo_indicators"`
	UseMockData        bool   `json:"use_mock_data"`
}

// DefaultState is the state of a fresh install
func DefaultState() *State {
	return &State{
		ShowDemoIndicators: true,
	}
}

// GetStatePath returns the path to the user state file
func GetStatePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, stateFileName), nil
}

// Store reads and writes the state file
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for the state file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewDefaultStore creates a store for the default state file
func NewDefaultStore() (*Store, error) {
	path, err := GetStatePath()
	if err != nil {
		return nil, err
	}
	return NewStore(path), nil
}

// Load reads the state file
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*State, error) {
	// If state doesn't exist, return defaults
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return DefaultState(), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := DefaultState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return state, nil
}

// Save writes the state file
func (s *Store) Save(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *Store) save(state *State) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// Update loads the state, applies fn and saves the result
func (s *Store) Update(fn func(*State)) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := s.save(state); err != nil {
		return nil, err
	}
	return state, nil
}
