// Package dashboard is the terminal view of a running dev server: build
// status, server URL, last change and the keyboard controls.
package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/conneroisu/shtml/internal/state"
)

// TickInterval is the periodic redraw rate.
const TickInterval = 250 * time.Millisecond

// ExitReason says why the dashboard stopped.
type ExitReason int

const (
	// ExitNone means the dashboard is still running.
	ExitNone ExitReason = iota
	// ExitQuit is a plain quit (q or ctrl+c).
	ExitQuit
	// ExitRelease means a release build ran before exiting.
	ExitRelease
)

// Actions are the side effects bound to keys. Nil actions are ignored.
type Actions struct {
	// Rebuild requests a manual rebuild (r).
	Rebuild func()
	// Open opens url in a browser (b).
	Open func(url string) error
	// Release runs a release build and returns a one-line summary (d).
	Release func(ctx context.Context) (string, error)
}

type (
	tickMsg    time.Time
	changedMsg struct{}
	releaseMsg struct {
		summary string
		err     error
	}
	openMsg struct{ err error }
)

// Model is the bubbletea model.
type Model struct {
	store   *state.Store
	actions Actions
	url     string

	changes <-chan struct{}
	done    chan struct{}

	snapshot  state.Snapshot
	now       time.Time
	releasing bool
	notice    string
	width     int

	// Exit is set when the model asks the program to quit.
	Exit ExitReason
	// ReleaseSummary holds the release outcome after ExitRelease.
	ReleaseSummary string
	// ReleaseErr is the release failure, if any.
	ReleaseErr error
}

// NewModel builds a model observing store. changes is a store subscription
// and done is closed when the program ends.
func NewModel(store *state.Store, url string, actions Actions, changes <-chan struct{}, done chan struct{}) *Model {
	return &Model{
		store:    store,
		actions:  actions,
		url:      url,
		changes:  changes,
		done:     done,
		snapshot: store.Snapshot(),
		now:      time.Now(),
	}
}

// Init starts the redraw tick and the state subscription.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForChange())
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes, done := m.changes, m.done
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// Update handles keys, ticks and state changes.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.now = time.Time(msg)
		m.snapshot = m.store.Snapshot()
		return m, tick()

	case changedMsg:
		m.now = time.Now()
		m.snapshot = m.store.Snapshot()
		return m, m.waitForChange()

	case openMsg:
		if msg.err != nil {
			m.notice = "Could not open browser: " + msg.err.Error()
		}

	case releaseMsg:
		m.releasing = false
		m.Exit = ExitRelease
		m.ReleaseSummary = msg.summary
		m.ReleaseErr = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.releasing {
		// only a forced exit interrupts a release build
		if msg.String() == "ctrl+c" {
			m.Exit = ExitQuit
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.Exit = ExitQuit
		return m, tea.Quit

	case "r":
		if m.actions.Rebuild != nil {
			m.actions.Rebuild()
			m.notice = "Rebuild requested"
		}

	case "b":
		if m.actions.Open != nil {
			open, url := m.actions.Open, m.url
			return m, func() tea.Msg {
				return openMsg{err: open(url)}
			}
		}

	case "d":
		if m.actions.Release == nil {
			return m, nil
		}
		m.releasing = true
		m.notice = "Running release build..."
		release := m.actions.Release
		return m, func() tea.Msg {
			summary, err := release(context.Background())
			return releaseMsg{summary: summary, err: err}
		}
	}
	return m, nil
}
