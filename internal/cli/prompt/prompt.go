// Package prompt asks the user questions on the terminal. Commands depend on
// the Prompter interface so tests can script the answers.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when input is needed but stdin is not a terminal
var ErrNonInteractive = errors.New("input required but stdin is not a terminal")

// Prompter asks questions
type Prompter interface {
	// Select returns the index of the chosen item
	Select(label string, items []string) (int, error)
	// Input reads a line, re-asking until validate passes. def is prefilled.
	Input(label, def string, validate func(string) error) (string, error)
	// Confirm asks a yes/no question
	Confirm(label string, def bool) (bool, error)
	// Password reads a line without echo
	Password(label string) (string, error)
}

// Terminal prompts on the controlling terminal with promptui
type Terminal struct{}

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Select shows an arrow-key selection list
func (Terminal) Select(label string, items []string) (int, error) {
	if !IsInteractive() {
		return 0, ErrNonInteractive
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("selection cancelled: %w", err)
	}
	return index, nil
}

// Input reads a validated line
func (Terminal) Input(label, def string, validate func(string) error) (string, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: def != "",
	}
	if validate != nil {
		prompt.Validate = promptui.ValidateFunc(validate)
	}

	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Confirm asks a y/N question. Enter keeps def.
func (Terminal) Confirm(label string, def bool) (bool, error) {
	if !IsInteractive() {
		return false, ErrNonInteractive
	}

	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	prompt := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, hint)}

	value, err := prompt.Run()
	if err != nil {
		return false, fmt.Errorf("input cancelled: %w", err)
	}
	return parseYesNo(value, def), nil
}

// Password reads without echo
func (Terminal) Password(label string) (string, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func parseYesNo(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}
