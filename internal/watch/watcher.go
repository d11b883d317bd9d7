// Package watch re-runs analysis when source files change. Events are
// debounced so editor save bursts trigger one run, and a run is always
// carried out in full: the callback either completes and reports, or its
// results are discarded, never partially emitted.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pedromsantos/dddlint/internal/logging"
)

// RunFunc performs one full analysis of the root.
type RunFunc func(ctx context.Context) error

// Watcher monitors a source tree and triggers re-analysis.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	extensions  map[string]bool
	run         RunFunc
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// New creates a watcher over root that calls run on relevant changes.
func New(root string, run RunFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fsw,
		root:        root,
		run:         run,
		extensions:  map[string]bool{".go": true, ".py": true, ".pyw": true},
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	logging.Watch("watching %s", w.root)

	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

// addRecursive registers root and every non-hidden subdirectory. fsnotify
// does not recurse on its own.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if aerr := w.watcher.Add(path); aerr != nil {
			logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", path, aerr)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerC <-chan time.Time

	trigger := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounceDur)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounceDur)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch; created files are
				// already covered by their parent's.
				if !strings.HasPrefix(filepath.Base(event.Name), ".") {
					if info, serr := os.Stat(event.Name); serr == nil && info.IsDir() {
						_ = w.watcher.Add(event.Name)
					}
				}
			}
			if !w.extensions[filepath.Ext(event.Name)] {
				continue
			}
			logging.Get(logging.CategoryWatch).Debug("event: %s %s", event.Op, event.Name)
			trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Warn("watch error: %v", err)
		case <-timerC:
			timerC = nil
			timer = nil
			logging.Watch("change detected, re-analyzing %s", w.root)
			if err := w.run(ctx); err != nil {
				logging.Get(logging.CategoryWatch).Error("analysis failed: %v", err)
			}
		}
	}
}
