// Package watcher observes the tracker's on-disk change indicator and
// schedules reconciliation passes.
//
// Bursts of file events collapse into one trigger via a debounce window.
// The watcher watches the indicator's parent directory rather than the file
// itself: the tracker rewrites the file atomically (write + rename), which
// would otherwise drop the watch.
package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window within which file-change bursts collapse
// into a single trigger.
const DefaultDebounce = 2 * time.Second

// Watcher observes one file and fires a trigger after changes settle.
type Watcher struct {
	path     string
	debounce time.Duration
	trigger  func()
	logger   *log.Logger

	fw       *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Watcher for the given file. trigger is invoked once
// immediately on Start and then after each settled burst of changes.
func New(path string, debounce time.Duration, trigger func(), logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins observation and fires the startup trigger.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	w.fw = fw

	w.wg.Add(1)
	go w.run()

	// One pass right away so a freshly started bridge converges without
	// waiting for the first change.
	w.trigger()
	return nil
}

// Stop releases the observation handle. No further triggers fire after
// Stop returns; a pass already handed to the runner is not aborted.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fw != nil {
			_ = w.fw.Close()
		}
		w.wg.Wait()
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()

	// The timer starts stopped; each relevant event rewinds it, so the
	// trigger fires only after debounce of quiet.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher: %v", err)

		case <-timer.C:
			select {
			case <-w.done:
				return
			default:
			}
			w.trigger()
		}
	}
}
