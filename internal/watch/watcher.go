// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes to a fixed set of files in one directory,
// such as a project's conjure.cue and mise.toml.
//
// Events are debounced: a burst of writes (an editor saving through a temp
// file and a rename, for instance) yields one callback with every changed
// file name.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conjure-dev/conjure/internal/logging"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrNoFiles is returned by New when Config.Files is empty.
	ErrNoFiles = errors.New("watch: no files to watch")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory holding the watched files.
		Dir string

		// Files are base names inside Dir. Files that do not exist yet are
		// reported once they are created.
		Files []string

		// Debounce is the quiet period after the last event before OnChange
		// fires. Zero or negative values use DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted base names changed since the last
		// call. It is never called concurrently with itself.
		OnChange func(ctx context.Context, changed []string) error

		// Log receives non-fatal watcher errors and callback failures.
		Log logging.Sink
	}

	// Watcher fires a debounced callback when one of its files changes.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		files    map[string]struct{}
		dir      string
		debounce time.Duration
		log      logging.Sink
		started  atomic.Bool
	}
)

// New validates cfg and starts watching Dir. The directory is watched
// rather than the files themselves so atomic saves, which replace the
// file, keep being observed.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Files) == 0 {
		return nil, ErrNoFiles
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}

	files := make(map[string]struct{}, len(cfg.Files))
	for _, f := range cfg.Files {
		if f != filepath.Base(f) {
			return nil, fmt.Errorf("watch: %q is not a base name", f)
		}
		files[f] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add directory %q: %w", dir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		files:    files,
		dir:      dir,
		debounce: debounce,
		log:      log,
	}, nil
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	if w.started.Load() {
		return nil
	}
	return w.fsw.Close()
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the underlying watcher
// breaks. Run may be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after ctx is cancelled because it is scheduled by
	// time.AfterFunc; the callback still receives ctx.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.log.Log(logging.DebugLevel, "change callback busy, retrying later")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.log.Log(logging.WarnLevel, "change callback failed", "files", changed, "err", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.log.Log(logging.DebugLevel, "closing fsnotify watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			name, ok := w.relevant(evt)
			if !ok {
				continue
			}

			mu.Lock()
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.log.Log(logging.WarnLevel, "fsnotify error", "err", err)
		}
	}
}

// relevant returns the base name of evt when it names a watched file and
// changes its content or existence.
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	if filepath.Dir(evt.Name) != w.dir {
		return "", false
	}
	name := filepath.Base(evt.Name)
	if _, ok := w.files[name]; !ok {
		return "", false
	}
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) &&
		!evt.Has(fsnotify.Rename) && !evt.Has(fsnotify.Remove) {
		return "", false
	}
	return name, true
}
