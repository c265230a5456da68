package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buildLog struct {
	mu      sync.Mutex
	changed []string
	active  int
	overlap bool
}

func (b *buildLog) build(hold <-chan struct{}) BuildFunc {
	return func(ctx context.Context, changed string) {
		b.mu.Lock()
		b.active++
		if b.active > 1 {
			b.overlap = true
		}
		b.changed = append(b.changed, changed)
		b.mu.Unlock()

		if hold != nil {
			<-hold
		}

		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}
}

func (b *buildLog) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changed)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) NoteChange(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

func startDetector(t *testing.T, d *Detector) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, d.Run(ctx))
	}()
	return func() {
		cancel()
		<-done
	}
}

func touch(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(time.Now().String()), 0o644))
	now := time.Now()
	require.NoError(t, fs.Chtimes(path, now, now))
}

func TestDetectorDebouncesBurst(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/Sources", 0o755))

	var log buildLog
	rec := &recorder{}
	d := NewDetector(Options{
		Root:          "/p/Sources",
		Fs:            fs,
		PollInterval:  5 * time.Millisecond,
		Debounce:      time.Hour,
		DisableNotify: true,
		Recorder:      rec,
	}, log.build(nil))

	stop := startDetector(t, d)
	defer stop()

	// let the baseline sweep happen before the first change
	time.Sleep(20 * time.Millisecond)

	touch(t, fs, "/p/Sources/a.swift")
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	touch(t, fs, "/p/Sources/b.swift")
	require.Eventually(t, func() bool { return rec.last() == "/p/Sources/b.swift" }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, log.count(), "second change inside the quiet window is dropped")
	assert.Equal(t, "/p/Sources/a.swift", log.changed[0])
}

func TestDetectorAcceptsAfterWindow(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/Sources", 0o755))

	var log buildLog
	d := NewDetector(Options{
		Root:          "/p/Sources",
		Fs:            fs,
		PollInterval:  5 * time.Millisecond,
		Debounce:      30 * time.Millisecond,
		DisableNotify: true,
	}, log.build(nil))

	stop := startDetector(t, d)
	defer stop()
	time.Sleep(20 * time.Millisecond)

	touch(t, fs, "/p/Sources/a.swift")
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	touch(t, fs, "/p/Sources/b.swift")
	require.Eventually(t, func() bool { return log.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDetectorManualRebuildDuringBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/Sources", 0o755))

	hold := make(chan struct{})
	var log buildLog
	d := NewDetector(Options{
		Root:          "/p/Sources",
		Fs:            fs,
		PollInterval:  5 * time.Millisecond,
		Debounce:      time.Hour,
		DisableNotify: true,
	}, log.build(hold))

	stop := startDetector(t, d)
	defer stop()

	d.RequestRebuild()
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)

	// in flight: requests are deferred and coalesce into one
	d.RequestRebuild()
	d.RequestRebuild()
	hold <- struct{}{}

	require.Eventually(t, func() bool { return log.count() == 2 }, time.Second, 5*time.Millisecond)
	hold <- struct{}{}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, log.count())
	assert.False(t, log.overlap, "builds must never overlap")
	assert.Equal(t, "", log.changed[1])
}

func TestDetectorManualBypassesWindow(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/Sources", 0o755))

	var log buildLog
	d := NewDetector(Options{
		Root:          "/p/Sources",
		Fs:            fs,
		PollInterval:  5 * time.Millisecond,
		Debounce:      time.Hour,
		DisableNotify: true,
	}, log.build(nil))

	stop := startDetector(t, d)
	defer stop()

	d.RequestRebuild()
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)
	d.RequestRebuild()
	require.Eventually(t, func() bool { return log.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDetectorNotifyPath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "Site")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	var log buildLog
	d := NewDetector(Options{
		Root: root,
		// keep the poll path out of the way
		PollInterval: time.Hour,
		Debounce:     time.Hour,
		Filters:      DefaultFilters("public", nil),
	}, log.build(nil))

	stop := startDetector(t, d)
	defer stop()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "main.swift"), []byte("print(1)"), 0o644))
	require.Eventually(t, func() bool { return log.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	log.mu.Lock()
	assert.Contains(t, log.changed[0], "Site")
	log.mu.Unlock()
}

func TestDetectorPollsWhenNotifyFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/does/not/exist/on/disk", 0o755))

	var log buildLog
	d := NewDetector(Options{
		// fsnotify cannot watch a path that only exists in memory
		Root:         "/does/not/exist/on/disk",
		Fs:           fs,
		PollInterval: 5 * time.Millisecond,
		Debounce:     time.Hour,
	}, log.build(nil))

	stop := startDetector(t, d)
	defer stop()
	time.Sleep(20 * time.Millisecond)

	touch(t, fs, "/does/not/exist/on/disk/a.swift")
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)
}
