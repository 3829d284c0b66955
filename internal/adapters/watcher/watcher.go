// Package watcher reports changes to the timetable data file.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/exambot/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// FileWatcher calls onChange once a burst of writes to one file settles.
// It watches the parent directory so replace-by-rename saves are seen.
type FileWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onChange func(ctx context.Context)
	debounce time.Duration
	logger   logger.Logger
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, onChange func(ctx context.Context), opts ...Option) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	fw := &FileWatcher{
		watcher:  w,
		path:     abs,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logger.Nop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw, nil
}

// Start begins watching. It does not block.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fw.running = true
	go fw.run(ctx)
	fw.logger.Info(ctx, "watching data file", logger.String("path", fw.path))
	return nil
}

// Stop stops watching and waits for the loop to exit. The watcher cannot be
// restarted.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}
	_ = fw.watcher.Close()
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return

		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, "watcher error", logger.Error(err))

		case <-fire:
			fire = nil
			fw.logger.Info(ctx, "data file changed", logger.String("path", fw.path))
			fw.onChange(ctx)
		}
	}
}
