// Package watcher detects source changes through two independent paths,
// filesystem notifications and a modification-time poll, and feeds both
// into one debounced build trigger.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/logging"
)

// ChangeEvent represents a detected file change
type ChangeEvent struct {
	Type    EventType
	Path    string
	Source  Source
	ModTime time.Time
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Source names the detection path that produced an event.
type Source int

const (
	SourceNotify Source = iota
	SourcePoll
	SourceManual
)

// String returns the string representation of the Source
func (s Source) String() string {
	switch s {
	case SourceNotify:
		return "notify"
	case SourcePoll:
		return "poll"
	case SourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// NotifySource wraps an fsnotify watcher registered on every directory
// below a root.
type NotifySource struct {
	watcher *fsnotify.Watcher
	filters []FileFilter
	logger  logging.Logger
}

// NewNotifySource creates a recursive watcher for root. Any failure is
// returned as a watch error and leaves nothing running.
func NewNotifySource(root string, filters []FileFilter, logger logging.Logger) (*NotifySource, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, shtmlerrors.NewWatchError("INIT", "failed to create watcher", err)
	}

	ns := &NotifySource{watcher: w, filters: filters, logger: logger}
	if err := ns.AddRecursive(root); err != nil {
		_ = w.Close()
		return nil, shtmlerrors.NewWatchError("INIT", "failed to watch "+root, err)
	}

	return ns, nil
}

// AddRecursive adds root and every kept directory below it.
func (n *NotifySource) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !Keep(path, n.filters) {
			return filepath.SkipDir
		}
		return n.watcher.Add(path)
	})
}

// Events exposes the raw notification channel.
func (n *NotifySource) Events() <-chan fsnotify.Event {
	return n.watcher.Events
}

// Errors exposes the raw error channel.
func (n *NotifySource) Errors() <-chan error {
	return n.watcher.Errors
}

// Translate filters a raw event and converts it. Newly created directories
// are registered so the watch stays recursive.
func (n *NotifySource) Translate(event fsnotify.Event) (ChangeEvent, bool) {
	if !Keep(event.Name, n.filters) {
		return ChangeEvent{}, false
	}
	// attribute-only changes do not alter sources
	if event.Op == fsnotify.Chmod {
		return ChangeEvent{}, false
	}

	var modTime time.Time
	info, err := os.Stat(event.Name)
	if err == nil {
		modTime = info.ModTime()
		if info.IsDir() && event.Has(fsnotify.Create) {
			if err := n.AddRecursive(event.Name); err != nil {
				n.logger.Warn(context.Background(), err, "Failed to watch new directory", "path", event.Name)
			}
		}
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventTypeCreated
	case event.Has(fsnotify.Write):
		eventType = EventTypeModified
	case event.Has(fsnotify.Remove):
		eventType = EventTypeDeleted
	case event.Has(fsnotify.Rename):
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	return ChangeEvent{
		Type:    eventType,
		Path:    event.Name,
		Source:  SourceNotify,
		ModTime: modTime,
	}, true
}

// Close stops the underlying watcher.
func (n *NotifySource) Close() error {
	return n.watcher.Close()
}

// FileFilter reports whether a path should be watched
type FileFilter func(path string) bool

// Keep reports whether every filter accepts path.
func Keep(path string, filters []FileFilter) bool {
	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

// DefaultFilters drops editor, backup, version-control and build-output noise.
func DefaultFilters(outputDir string, ignore []string) []FileFilter {
	filters := []FileFilter{
		NoSwapFilter,
		NoBackupFilter,
		NoVCSFilter,
		NoBuildOutputFilter(outputDir),
	}
	if len(ignore) > 0 {
		filters = append(filters, IgnoreFilter(ignore))
	}
	return filters
}

func NoSwapFilter(path string) bool {
	base := filepath.Base(path)
	switch filepath.Ext(base) {
	case ".swp", ".swo", ".swx":
		return false
	}
	return !strings.HasPrefix(base, ".#") && !strings.HasSuffix(base, ".tmp")
}

func NoBackupFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") {
		return false
	}
	switch filepath.Ext(base) {
	case ".bak", ".orig":
		return false
	}
	return !(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"))
}

func NoVCSFilter(path string) bool {
	return !hasSegment(path, ".git", ".hg", ".svn")
}

// NoBuildOutputFilter drops the toolchain's .build directory and any extra
// output directories.
func NoBuildOutputFilter(dirs ...string) FileFilter {
	names := []string{".build"}
	for _, d := range dirs {
		if d = filepath.Base(filepath.Clean(d)); d != "." && d != string(filepath.Separator) {
			names = append(names, d)
		}
	}
	return func(path string) bool {
		return !hasSegment(path, names...)
	}
}

// IgnoreFilter drops paths whose base name matches any glob pattern.
func IgnoreFilter(patterns []string) FileFilter {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, base); ok {
				return false
			}
		}
		return true
	}
}

func hasSegment(path string, names ...string) bool {
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	}) {
		for _, name := range names {
			if seg == name {
				return true
			}
		}
	}
	return false
}
