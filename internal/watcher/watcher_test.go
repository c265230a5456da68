package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestDefaultFilters(t *testing.T) {
	filters := DefaultFilters("public", []string{"*.generated.swift"})

	testCases := []struct {
		path string
		keep bool
	}{
		{"Sources/Site/main.swift", true},
		{"Sources/Site/Pages/About.swift", true},
		{"Sources/Site/.main.swift.swp", false},
		{"Sources/Site/main.swift.swo", false},
		{"Sources/Site/main.swift~", false},
		{"Sources/Site/main.swift.bak", false},
		{"Sources/Site/#main.swift#", false},
		{"Sources/.git/HEAD", false},
		{"Sources/.hg/store", false},
		{".build/debug/Site", false},
		{"Sources/.build/x.o", false},
		{"public/index.html", false},
		{"Sources/Site/Routes.generated.swift", false},
		{"Sources/Site/gitignore.swift", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.keep, Keep(tc.path, filters))
		})
	}
}

func TestQuietWindow(t *testing.T) {
	q := NewQuietWindow(300 * time.Millisecond)
	base := time.Now()

	assert.True(t, q.Accept(base), "first trigger is accepted")
	assert.False(t, q.Accept(base.Add(100*time.Millisecond)))
	assert.False(t, q.Accept(base.Add(300*time.Millisecond)), "window must be exceeded")
	assert.True(t, q.Accept(base.Add(301*time.Millisecond)))

	// dropped triggers do not extend the window
	assert.False(t, q.Accept(base.Add(500*time.Millisecond)))
	assert.True(t, q.Accept(base.Add(602*time.Millisecond)))

	q.Force(base.Add(time.Second))
	assert.False(t, q.Accept(base.Add(time.Second+100*time.Millisecond)))
}

func TestPollerSweep(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Now().Add(-time.Hour)

	write := func(path string, mod time.Time) {
		require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0o644))
		require.NoError(t, fs.Chtimes(path, mod, mod))
	}

	write("/p/Sources/Site/main.swift", base)
	write("/p/Sources/Site/Pages/About.swift", base)
	require.NoError(t, fs.Chtimes("/p/Sources/Site/Pages", base, base))
	require.NoError(t, fs.Chtimes("/p/Sources/Site", base, base))

	p := NewPoller(fs, "/p/Sources", DefaultFilters("public", nil))

	_, changed := p.Sweep()
	assert.False(t, changed, "first sweep only records the baseline")

	_, changed = p.Sweep()
	assert.False(t, changed)

	// one level below a top-level directory is covered
	write("/p/Sources/Site/main.swift", base.Add(time.Minute))
	ev, changed := p.Sweep()
	require.True(t, changed)
	assert.Equal(t, SourcePoll, ev.Source)
	assert.Equal(t, filepath.Join("/p/Sources/Site", "main.swift"), ev.Path)

	_, changed = p.Sweep()
	assert.False(t, changed, "same maximum does not retrigger")

	// two levels deep is outside the sweep
	require.NoError(t, fs.Chtimes("/p/Sources/Site/Pages/About.swift", base.Add(2*time.Minute), base.Add(2*time.Minute)))
	_, changed = p.Sweep()
	assert.False(t, changed)

	// filtered entries never count
	write("/p/Sources/Site/.main.swift.swp", base.Add(3*time.Minute))
	_, changed = p.Sweep()
	assert.False(t, changed)

	// an older timestamp is not an advance
	write("/p/Sources/old.swift", base.Add(-time.Minute))
	_, changed = p.Sweep()
	assert.False(t, changed)
}

func TestPollerMissingRoot(t *testing.T) {
	p := NewPoller(afero.NewMemMapFs(), "/missing", nil)
	_, changed := p.Sweep()
	assert.False(t, changed)
	assert.True(t, p.Latest().IsZero())
}

func TestNotifySourceTranslate(t *testing.T) {
	root := t.TempDir()
	ns, err := NewNotifySource(root, DefaultFilters("public", nil), nil)
	require.NoError(t, err)
	defer ns.Close()

	file := filepath.Join(root, "main.swift")
	require.NoError(t, os.WriteFile(file, []byte("print(1)"), 0o644))

	ev, keep := ns.Translate(fsnotify.Event{Name: file, Op: fsnotify.Write})
	require.True(t, keep)
	assert.Equal(t, EventTypeModified, ev.Type)
	assert.Equal(t, SourceNotify, ev.Source)
	assert.False(t, ev.ModTime.IsZero())

	_, keep = ns.Translate(fsnotify.Event{Name: file + ".swp", Op: fsnotify.Create})
	assert.False(t, keep)

	_, keep = ns.Translate(fsnotify.Event{Name: file, Op: fsnotify.Chmod})
	assert.False(t, keep)

	ev, keep = ns.Translate(fsnotify.Event{Name: filepath.Join(root, "gone.swift"), Op: fsnotify.Remove})
	require.True(t, keep)
	assert.Equal(t, EventTypeDeleted, ev.Type)
	assert.True(t, ev.ModTime.IsZero())
}

func TestNotifySourceMissingRoot(t *testing.T) {
	_, err := NewNotifySource(filepath.Join(t.TempDir(), "missing"), nil, nil)
	require.Error(t, err)
}
