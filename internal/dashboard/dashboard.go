package dashboard

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/conneroisu/shtml/internal/state"
)

// Mode selects how progress is shown.
type Mode int

const (
	// ModeTUI is the interactive dashboard.
	ModeTUI Mode = iota
	// ModeConsole prints one line per build transition.
	ModeConsole
)

// DetectMode picks the console reporter when stdout is not a terminal, when
// running under CI, or when the user disabled the dashboard.
func DetectMode(disabled bool) Mode {
	if disabled {
		return ModeConsole
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeConsole
	}
	if ci := os.Getenv("CI"); ci == "true" || ci == "1" {
		return ModeConsole
	}
	return ModeTUI
}

// Run shows the dashboard until the user quits or ctx is cancelled. The
// returned model records why it exited.
func Run(ctx context.Context, store *state.Store, url string, actions Actions, opts ...tea.ProgramOption) (*Model, error) {
	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)

	model := NewModel(store, url, actions, changes, done)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)

	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return model, nil
		}
		return model, err
	}
	return model, nil
}
