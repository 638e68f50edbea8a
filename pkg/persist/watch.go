package persist

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces into one change.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes to one structure file made outside the process.
//
// The parent directory is watched rather than the file so that atomic
// replacements, which swap the inode, keep being observed.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	log      *zap.Logger
	debounce time.Duration
	changes  chan struct{}

	mu     sync.Mutex
	expect int

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watch starts watching path. The watcher runs until ctx is done or Close is
// called.
func Watch(ctx context.Context, path string, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("persist: watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("persist: watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("persist: watch %s: %w", path, err)
	}
	w := &Watcher{
		fs:       fsw,
		path:     abs,
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
		changes:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	go w.run(ctx)
	w.log.Info("watching structure file", zap.String("path", abs))
	return w, nil
}

// Changes delivers one value per settled burst of changes. Pending values
// are merged, so a slow reader sees at most one.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Expect marks the next burst as caused by this process, typically right
// before SaveFile, so it is not reported.
func (w *Watcher) Expect() {
	w.mu.Lock()
	w.expect++
	w.mu.Unlock()
}

// Unexpect withdraws an Expect whose write never happened, such as a failed
// SaveFile.
func (w *Watcher) Unexpect() {
	w.mu.Lock()
	if w.expect > 0 {
		w.expect--
	}
	w.mu.Unlock()
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.log.Debug("structure file event", zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.String("path", w.path), zap.Error(err))
		case <-timer.C:
			if w.consumeExpected() {
				w.log.Debug("ignoring own write", zap.String("path", w.path))
				continue
			}
			w.log.Info("structure file changed", zap.String("path", w.path))
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) consumeExpected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expect == 0 {
		return false
	}
	w.expect--
	return true
}
