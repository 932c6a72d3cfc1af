package lottieinline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kataras/lottie-inline/pkg/lottie"
)

const debounceDuration = 100 * time.Millisecond

// Watch runs the conversion once and then again whenever the input file or
// one of its images changes. onResult, if not nil, receives the outcome of
// every run; a failed run is reported there and watching continues.
//
// Watch returns nil when ctx is cancelled.
func Watch(ctx context.Context, opts Options, onResult func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	w := &watchState{
		opts:    opts,
		watcher: watcher,
		dirs:    make(map[string]bool),
		files:   make(map[string]bool),
	}
	w.run(onResult)

	timer := newDebounceTimer()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				resetDebounceTimer(timer)
			}

		case <-timer.C:
			opts.logInfo("Change detected, converting again...")
			w.run(onResult)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.logWarn("fsnotify: watcher error: %v", err)
		}
	}
}

type watchState struct {
	opts    Options
	watcher *fsnotify.Watcher
	dirs    map[string]bool // directories added to the watcher
	files   map[string]bool // files whose changes trigger a run
}

func (w *watchState) run(onResult func(*Result, error)) {
	res, err := Run(w.opts)
	if err != nil {
		w.opts.logError("%v", err)
	}

	w.track(w.opts.InputPath)
	if res != nil {
		for _, a := range res.Inlined {
			w.track(a.Path)
		}
	}
	var missing *lottie.MissingImageError
	if errors.As(err, &missing) {
		w.track(missing.Path)
	}

	if onResult != nil {
		onResult(res, err)
	}
}

// track watches the directory of path; directories are watched rather than
// files so that editors replacing a file through a rename are still seen.
func (w *watchState) track(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.files[abs] = true

	dir := filepath.Dir(abs)
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.opts.logWarn("fsnotify: failed to watch %s: %v", dir, err)
		return
	}
	w.dirs[dir] = true
}

func (w *watchState) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return timer
}

func resetDebounceTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(debounceDuration)
}
