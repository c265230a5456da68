package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/conneroisu/shtml/internal/state"
)

// RunConsole prints build transitions to out until ctx is cancelled.
func RunConsole(ctx context.Context, store *state.Store, url string, out io.Writer) error {
	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	fmt.Fprintf(out, "SHTML dev server running at %s\n", url)

	last := store.Snapshot()
	printSnapshot(out, last)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			snap := store.Snapshot()
			if snap.State.Kind != last.State.Kind || snap.Builds != last.Builds {
				printSnapshot(out, snap)
			}
			last = snap
		}
	}
}

func printSnapshot(out io.Writer, snap state.Snapshot) {
	stamp := snap.LastTransition
	if stamp.IsZero() {
		stamp = time.Now()
	}
	line := fmt.Sprintf("[%s] %s", stamp.Format(time.TimeOnly), StatusLine(snap.State))
	if snap.State.Kind == state.Building && snap.LastChanged != "" {
		line += " (" + snap.LastChanged + ")"
	}
	fmt.Fprintln(out, line)

	if snap.State.Kind == state.Failed {
		for _, l := range strings.Split(strings.TrimRight(snap.State.Message, "\n"), "\n") {
			fmt.Fprintln(out, "    "+l)
		}
	}
}
