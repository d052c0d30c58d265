// Package watcher reports changes to graph documents on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher watches a set of files for changes
type Watcher struct {
	paths    []string
	debounce time.Duration
	logger   *log.Logger
}

// New creates a new file watcher
func New(paths ...string) *Watcher {
	return &Watcher{
		paths:    paths,
		debounce: 500 * time.Millisecond,
		logger:   log.With("component", "watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch calls onChange with the absolute path of a file once writes to it
// settle. Callbacks for one file never overlap. It blocks until ctx is
// done or the underlying watcher fails, and does not return while a
// callback is running.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch directories, not files, so that editors replacing the file
	// are still seen
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)
	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				return err
			}
			watchedDirs[dir] = true
		}

		fileSet[absPath] = true
		w.logger.Info("Watching for changes", "path", absPath)
	}

	var (
		mu       sync.Mutex
		timers   = make(map[string]*time.Timer)
		locks    = make(map[string]*sync.Mutex)
		inflight sync.WaitGroup
	)
	for path := range fileSet {
		locks[path] = &sync.Mutex{}
	}
	defer func() {
		mu.Lock()
		for _, timer := range timers {
			if timer.Stop() {
				inflight.Done()
			}
		}
		mu.Unlock()
		inflight.Wait()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if timer, exists := timers[absPath]; exists && timer.Stop() {
				inflight.Done()
			}
			inflight.Add(1)
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				defer inflight.Done()
				if ctx.Err() != nil {
					return
				}
				lock := locks[absPath]
				lock.Lock()
				defer lock.Unlock()

				w.logger.Info("File changed", "path", absPath)
				onChange(absPath)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "err", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
