package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/monitoring"
)

// BuildFunc runs one build to completion. changed is empty for manual
// rebuilds.
type BuildFunc func(ctx context.Context, changed string)

// ChangeRecorder receives paths of changes that did not start a build.
type ChangeRecorder interface {
	NoteChange(path string)
}

// Options configures a Detector.
type Options struct {
	Root         string
	Fs           afero.Fs
	PollInterval time.Duration
	Debounce     time.Duration
	Filters      []FileFilter
	// DisableNotify runs with the poll path only.
	DisableNotify bool
	Recorder      ChangeRecorder
	Logger        logging.Logger
}

// Detector is the single loop that serializes every build trigger.
type Detector struct {
	opts   Options
	build  BuildFunc
	window *QuietWindow
	poller *Poller
	logger logging.Logger

	manual atomic.Bool
	wake   chan struct{}

	// modifications older than the last build start are already built
	lastBuildStart time.Time
	now            func() time.Time
}

// NewDetector creates a detector that calls build for each accepted trigger.
func NewDetector(opts Options, build BuildFunc) *Detector {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Detector{
		opts:   opts,
		build:  build,
		window: NewQuietWindow(opts.Debounce),
		poller: NewPoller(opts.Fs, opts.Root, opts.Filters),
		logger: opts.Logger.WithComponent("watcher"),
		wake:   make(chan struct{}, 1),
		now:    time.Now,
	}
}

// RequestRebuild sets the one-shot manual flag. The loop consumes it after
// any in-flight build, and repeated requests before that coalesce.
func (d *Detector) RequestRebuild() {
	d.manual.Store(true)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. Builds run synchronously on this
// goroutine, so two builds never overlap.
func (d *Detector) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var errs <-chan error

	var notify *NotifySource
	if !d.opts.DisableNotify {
		var err error
		notify, err = NewNotifySource(d.opts.Root, d.opts.Filters, d.logger)
		if err != nil {
			d.logger.Warn(ctx, err, "File notifications unavailable, continuing with polling only",
				"root", d.opts.Root)
		} else {
			defer notify.Close()
			events = notify.Events()
			errs = notify.Errors()
		}
	}

	d.poller.Sweep()

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	d.logger.Info(ctx, "Watching for changes",
		"root", d.opts.Root,
		"poll_interval", d.opts.PollInterval,
		"notify", notify != nil)

	for {
		select {
		case <-ctx.Done():
			return nil

		case raw, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev, keep := notify.Translate(raw); keep {
				d.trigger(ctx, ev)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Warn(ctx, err, "File watcher error")

		case <-ticker.C:
			if ev, changed := d.poller.Sweep(); changed {
				d.trigger(ctx, ev)
			}

		case <-d.wake:
		}

		if ctx.Err() == nil && d.manual.CompareAndSwap(true, false) {
			monitoring.RecordTrigger(SourceManual.String(), true)
			d.window.Force(d.now())
			d.runBuild(ctx, "")
		}
	}
}

func (d *Detector) trigger(ctx context.Context, ev ChangeEvent) {
	if !ev.ModTime.IsZero() && ev.ModTime.Before(d.lastBuildStart) {
		d.logger.Debug(ctx, "Change already covered by last build", "path", ev.Path)
		return
	}

	if !d.window.Accept(d.now()) {
		monitoring.RecordTrigger(ev.Source.String(), false)
		if d.opts.Recorder != nil {
			d.opts.Recorder.NoteChange(ev.Path)
		}
		return
	}

	monitoring.RecordTrigger(ev.Source.String(), true)
	d.logger.Debug(ctx, "Change detected", "path", ev.Path, "source", ev.Source, "type", ev.Type)
	d.runBuild(ctx, ev.Path)
}

func (d *Detector) runBuild(ctx context.Context, changed string) {
	// absorb the mtime advance that caused this build
	d.poller.Sweep()
	d.lastBuildStart = d.now()
	d.build(ctx, changed)
}
