package rules

import (
	"os"
	"time"
)

// Watcher polls rule file modification times and triggers a callback on
// change. Rule tables stay immutable within a session; the callback
// typically invalidates a Loader so the next session sees new tables.
type Watcher struct {
	paths     []string
	interval  time.Duration
	onChange  func(string) // called with the path that changed
	stopCh    chan struct{}
	lastMTime map[string]time.Time
}

// NewWatcher creates a watcher for the given paths and interval. Current
// modification times are recorded at construction; only changes after that
// point fire the callback.
func NewWatcher(paths []string, interval time.Duration, onChange func(string)) *Watcher {
	w := &Watcher{
		paths:     paths,
		interval:  interval,
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		lastMTime: make(map[string]time.Time, len(paths)),
	}
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			w.lastMTime[p] = fi.ModTime()
		}
	}
	return w
}

// Start begins polling in a goroutine.
func (w *Watcher) Start() {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.scan()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

// scan checks mtimes and invokes onChange for files changed since the last
// scan. A file first seen after construction is recorded without firing, so
// a late-appearing override only triggers on its next edit.
func (w *Watcher) scan() {
	for _, p := range w.paths {
		fi, err := os.Stat(p)
		if err != nil {
			// missing file: keep going, it may appear later
			continue
		}
		mt := fi.ModTime()
		last, seen := w.lastMTime[p]
		if !seen {
			w.lastMTime[p] = mt
			continue
		}
		if mt.After(last) {
			w.lastMTime[p] = mt
			if w.onChange != nil {
				w.onChange(p)
			}
		}
	}
}
