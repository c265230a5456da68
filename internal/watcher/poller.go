package watcher

import (
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Poller sweeps the top-level entries of a root and one level of
// subdirectories, tracking the newest modification time seen.
type Poller struct {
	fs      afero.Fs
	root    string
	filters []FileFilter
	latest  time.Time
	primed  bool
}

// NewPoller creates a poller for root.
func NewPoller(fs afero.Fs, root string, filters []FileFilter) *Poller {
	return &Poller{fs: fs, root: root, filters: filters}
}

// Sweep scans once. It reports a synthetic change when the newest
// modification time advanced since the previous sweep. The first sweep only
// records the baseline.
func (p *Poller) Sweep() (ChangeEvent, bool) {
	newest, path := p.scan()

	if !p.primed {
		p.primed = true
		p.latest = newest
		return ChangeEvent{}, false
	}

	if !newest.After(p.latest) {
		return ChangeEvent{}, false
	}
	p.latest = newest

	return ChangeEvent{
		Type:    EventTypeModified,
		Path:    path,
		Source:  SourcePoll,
		ModTime: newest,
	}, true
}

// Latest returns the newest modification time recorded so far.
func (p *Poller) Latest() time.Time {
	return p.latest
}

func (p *Poller) scan() (time.Time, string) {
	var newest time.Time
	var newestPath string

	consider := func(path string, mod time.Time) {
		if mod.After(newest) {
			newest = mod
			newestPath = path
		}
	}

	entries, err := afero.ReadDir(p.fs, p.root)
	if err != nil {
		return newest, newestPath
	}

	for _, entry := range entries {
		path := filepath.Join(p.root, entry.Name())
		if !Keep(path, p.filters) {
			continue
		}
		consider(path, entry.ModTime())

		if !entry.IsDir() {
			continue
		}
		children, err := afero.ReadDir(p.fs, path)
		if err != nil {
			continue
		}
		for _, child := range children {
			childPath := filepath.Join(path, child.Name())
			if Keep(childPath, p.filters) {
				consider(childPath, child.ModTime())
			}
		}
	}

	return newest, newestPath
}
