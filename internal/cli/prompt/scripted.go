package prompt

import (
	"fmt"
	"sync"
)

// Scripted answers prompts from a fixed list, in order. An empty answer
// keeps the default. It is used by tests and by piped input.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	// Asked records every label in order
	Asked []string
}

// NewScripted creates a prompter that replays answers
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Asked = append(s.Asked, label)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("no scripted answer for %q", label)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Select matches the answer against the items
func (s *Scripted) Select(label string, items []string) (int, error) {
	answer, err := s.next(label)
	if err != nil {
		return 0, err
	}
	for i, item := range items {
		if item == answer {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is not one of the choices for %q", answer, label)
}

// Input returns the answer, or an error if it fails validation
func (s *Scripted) Input(label, def string, validate func(string) error) (string, error) {
	answer, err := s.next(label)
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = def
	}
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
	return answer, nil
}

// Confirm parses y/yes and n/no
func (s *Scripted) Confirm(label string, def bool) (bool, error) {
	answer, err := s.next(label)
	if err != nil {
		return false, err
	}
	return parseYesNo(answer, def), nil
}

// Password returns the answer
func (s *Scripted) Password(label string) (string, error) {
	return s.next(label)
}

// Remaining reports how many answers were not consumed
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
