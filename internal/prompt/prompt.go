// Package prompt asks the user which engines to manage.
package prompt

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

var (
	// ErrNotInteractive is returned when stdin or stdout is not a terminal.
	ErrNotInteractive = errors.New("engine selection requires an interactive terminal; pass --engines instead")
	// ErrAborted is returned when the user cancels the prompt.
	ErrAborted = errors.New("engine selection aborted")
)

// Option is one engine offered in the prompt.
type Option struct {
	ID       string
	Label    string
	Selected bool
}

// Selector runs the engine selection form.
type Selector struct {
	isTerminal func() bool
	run        func(*huh.Form) error
}

// New returns a Selector on the process terminal.
func New() *Selector {
	return &Selector{
		isTerminal: isInteractive,
		run:        func(f *huh.Form) error { return f.Run() },
	}
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// SelectEngines shows a multi-select of options with the Selected ones
// pre-checked and returns the chosen ids in option order.
func (s *Selector) SelectEngines(options []Option) ([]string, error) {
	if !s.isTerminal() {
		return nil, ErrNotInteractive
	}

	selected := Defaults(options)
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		label := o.Label
		if label == "" {
			label = o.ID
		}
		opts[i] = huh.NewOption(label, o.ID).Selected(o.Selected)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Which engines would you like to install?").
				Filterable(false).
				Options(opts...).
				Value(&selected),
		),
	).WithProgramOptions(tea.WithOutput(os.Stderr))

	if err := s.run(form); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrAborted
		}
		return nil, err
	}
	return ordered(options, selected), nil
}

// Defaults returns the ids of the pre-selected options.
func Defaults(options []Option) []string {
	var ids []string
	for _, o := range options {
		if o.Selected {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func ordered(options []Option, chosen []string) []string {
	set := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		set[id] = true
	}
	ids := make([]string, 0, len(chosen))
	for _, o := range options {
		if set[o.ID] {
			ids = append(ids, o.ID)
		}
	}
	return ids
}
