package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/shtml/internal/state"
)

const controlsHelp = "[r] Rebuild  [b] Open Browser  [d] Release Build & Exit  [q] Quit  [ctrl+c] Force Exit"

var title = cases.Title(language.English)

// StatusLine describes a build state in one line without styling.
func StatusLine(st state.BuildState) string {
	label := title.String(st.Kind.String())
	switch st.Kind {
	case state.Building:
		return label + "..."
	case state.Success:
		return fmt.Sprintf("Build Successful (%.1fs, %s)", st.Duration.Seconds(), humanize.Bytes(uint64(st.ArtifactSize)))
	case state.Failed:
		return "Build " + label
	default:
		return label
	}
}

func statusStyle(kind state.Kind) lipgloss.Style {
	switch kind {
	case state.Building:
		return buildingStyle
	case state.Success:
		return successStyle
	case state.Failed:
		return failedStyle
	default:
		return idleStyle
	}
}

// firstLine returns the first non-empty line of a failure message after
// its heading.
func firstLine(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasSuffix(line, ":")) {
			continue
		}
		return line
	}
	return ""
}

func row(label, value string) string {
	return labelStyle.Render(label+": ") + value
}

// View renders the dashboard.
func (m *Model) View() string {
	snap := m.snapshot
	st := snap.State

	rows := []string{
		row("Status", statusStyle(st.Kind).Render(StatusLine(st))),
		row("Server", urlStyle.Render(m.url)),
	}
	if st.Kind == state.Failed {
		if line := firstLine(st.Message); line != "" {
			rows = append(rows, row("Error", failedStyle.UnsetBold().Render(line)))
		}
	}
	if snap.LastChanged != "" {
		rows = append(rows, row("Changed", changedStyle.Render(snap.LastChanged)))
	}
	if !snap.LastSuccess.IsZero() {
		when := snap.LastSuccess.Format(time.TimeOnly) + " (" + humanize.RelTime(snap.LastSuccess, m.now, "ago", "from now") + ")"
		rows = append(rows, row("Last Build", timeStyle.Render(when)))
	}
	if snap.Builds > 0 {
		rows = append(rows, row("Builds", fmt.Sprint(snap.Builds)))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SHTML Live Development Server"))
	b.WriteString("\n")
	panel := panelStyle
	if m.width > 4 {
		panel = panel.Width(m.width - 2)
	}
	b.WriteString(panel.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(controlsStyle.Render(controlsHelp))
	b.WriteString("\n")
	return b.String()
}
