package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/stubby/pkg/logging"
)

// DefaultDebounce coalesces bursts of file events into a single reload.
const DefaultDebounce = 250 * time.Millisecond

// WatchEvent carries the outcome of a reload triggered by a file change.
// Exactly one of Config and Err is set.
type WatchEvent struct {
	Path   string
	Config *Configuration
	Err    error
}

// Watcher reloads a stubs file whenever it or one of its includes changes.
type Watcher struct {
	path     string
	opts     []LoadOption
	logger   *slog.Logger
	debounce time.Duration

	fsw     *fsnotify.Watcher
	eventCh chan WatchEvent

	mu      sync.Mutex
	files   map[string]struct{}
	dirs    map[string]struct{}
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher watches path and the given sources (usually
// Configuration.Sources of the initial load). opts are reused on every reload.
func NewWatcher(path string, sources []string, logger *slog.Logger, opts ...LoadOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	w := &Watcher{
		path:     path,
		opts:     opts,
		logger:   logger,
		debounce: DefaultDebounce,
		fsw:      fsw,
		eventCh:  make(chan WatchEvent, 1),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}
	if err := w.watch(append([]string{path}, sources...)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// watch adds the parent directory of every file. Directories are watched
// rather than files so editors that replace files on save are still seen.
func (w *Watcher) watch(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		w.files[abs] = struct{}{}

		dir := filepath.Dir(abs)
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	return nil
}

func (w *Watcher) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[abs]
	return ok
}

// Start begins watching and returns the channel reload outcomes are sent on.
func (w *Watcher) Start() <-chan WatchEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return w.eventCh
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watchLoop(w.stopCh, w.doneCh)
	return w.eventCh
}

// Stop stops the watcher and releases the underlying file watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fsw.Close()
		return
	}
	close(w.stopCh)
	w.running = false
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	_ = w.fsw.Close()
}

func (w *Watcher) watchLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		changed string
	)

	for {
		select {
		case <-stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if !w.isWatched(event.Name) {
				continue
			}
			changed = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timerC:
			timerC = nil
			w.reload(changed, stopCh)
		}
	}
}

func (w *Watcher) reload(changed string, stopCh <-chan struct{}) {
	w.logger.Info("stubs changed, reloading", "path", changed)

	cfg, err := LoadFile(w.path, w.opts...)
	if err == nil {
		// New includes may have appeared.
		if werr := w.watch(cfg.Sources); werr != nil {
			w.logger.Warn("could not watch included files", "error", werr)
		}
	}

	select {
	case w.eventCh <- WatchEvent{Path: changed, Config: cfg, Err: err}:
	case <-stopCh:
	}
}
