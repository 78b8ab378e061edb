package filewatcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

// Factory creates one native watch per directory. Handles come back idle so
// the caller can register them before any event is delivered.
type Factory struct {
	debounce time.Duration
	logger   outbound.Logger
}

func NewFactory(debounce time.Duration, logger outbound.Logger) outbound.WatchFactory {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Factory{debounce: debounce, logger: logger}
}

func (f *Factory) NewWatch(dir string) (outbound.WatchHandle, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &fsWatch{
		dir:         dir,
		watcher:     fsWatcher,
		events:      make(chan outbound.WatchEvent, 1000),
		errors:      make(chan error, 100),
		writeEvents: make(chan fsnotify.Event, 100),
		debouncer:   make(map[string]*debounceEntry),
		debounce:    f.debounce,
		logger:      f.logger,
	}

	// watch the whole subtree; fsnotify is not recursive by itself
	if err := fw.addRecursive(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return fw, nil
}

type debounceEntry struct {
	timer *time.Timer
	op    fsnotify.Op
}

// fsWatch is a single-directory watch over its whole subtree. Created idle;
// Start launches the event goroutines, Close tears everything down and
// closes the outbound channels.
type fsWatch struct {
	dir         string
	watcher     *fsnotify.Watcher
	events      chan outbound.WatchEvent
	errors      chan error
	writeEvents chan fsnotify.Event
	debouncer   map[string]*debounceEntry
	debounce    time.Duration
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	wg          sync.WaitGroup
	closeOnce   sync.Once
	logger      outbound.Logger
}

func (fw *fsWatch) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.started {
		return fmt.Errorf("watch for %s already started", fw.dir)
	}
	fw.started = true
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	fw.wg.Add(2)
	go fw.filterEvents()
	go fw.processWriteEvents()

	return nil
}

func (fw *fsWatch) Events() <-chan outbound.WatchEvent {
	return fw.events
}

func (fw *fsWatch) Errors() <-chan error {
	return fw.errors
}

func (fw *fsWatch) Close() error {
	var err error
	fw.closeOnce.Do(func() {
		fw.mu.Lock()
		started := fw.started
		if started {
			fw.cancel()
		}
		fw.cleanupDebouncers()
		err = fw.watcher.Close()
		fw.mu.Unlock()

		if started {
			// wait for goroutines before closing outbound channels
			fw.wg.Wait()
		}
		close(fw.events)
		close(fw.errors)
	})
	return err
}

func (fw *fsWatch) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// filterEvents routes raw fsnotify events: deletes and renames pass through
// immediately, writes and creates go through the per-file debouncer. New
// subdirectories are added to the watch as they appear.
func (fw *fsWatch) filterEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			switch {
			case event.Has(fsnotify.Remove):
				fw.cancelDebounce(event.Name)
				fw.emit(outbound.WatchEvent{Path: event.Name, Op: "delete"})

			case event.Has(fsnotify.Rename):
				fw.cancelDebounce(event.Name)
				fw.emit(outbound.WatchEvent{Path: event.Name, Op: "rename"})

			case event.Has(fsnotify.Create):
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addRecursive(event.Name); err != nil {
						fw.logger.Warn("failed to watch new subdirectory", "path", event.Name, "error", err)
					}
				}
				fw.debounceEvent(event)

			case event.Has(fsnotify.Write):
				fw.debounceEvent(event)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.ctx.Done():
				return
			}
		}
	}
}

// processWriteEvents forwards debounced write events with a safety sweep
// against timer accumulation
func (fw *fsWatch) processWriteEvents() {
	defer fw.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			fw.mu.Lock()
			fw.cleanupDebouncers()
			fw.mu.Unlock()
			return

		case event := <-fw.writeEvents:
			op := "modify"
			if event.Has(fsnotify.Create) {
				op = "create"
			}
			fw.emit(outbound.WatchEvent{Path: event.Name, Op: op})

		case <-ticker.C:
			fw.cleanupExpiredDebouncers()
		}
	}
}

func (fw *fsWatch) emit(event outbound.WatchEvent) {
	select {
	case fw.events <- event:
	case <-fw.ctx.Done():
	}
}

// debounceEvent coalesces rapid save bursts per file. Ops accumulate across
// the burst so a create followed by writes still reports as a create.
func (fw *fsWatch) debounceEvent(event fsnotify.Event) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if entry, exists := fw.debouncer[event.Name]; exists {
		entry.timer.Stop()
		event.Op |= entry.op
	}

	pending := event
	fw.debouncer[event.Name] = &debounceEntry{
		op: pending.Op,
		timer: time.AfterFunc(fw.debounce, func() {
			select {
			case fw.writeEvents <- pending:
			case <-fw.ctx.Done():
			}

			fw.mu.Lock()
			delete(fw.debouncer, pending.Name)
			fw.mu.Unlock()
		}),
	}
}

func (fw *fsWatch) cancelDebounce(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if entry, exists := fw.debouncer[path]; exists {
		entry.timer.Stop()
		delete(fw.debouncer, path)
	}
}

// cleanupDebouncers stops and removes all debounce timers; callers hold mu
func (fw *fsWatch) cleanupDebouncers() {
	for _, entry := range fw.debouncer {
		entry.timer.Stop()
	}
	fw.debouncer = make(map[string]*debounceEntry)
}

// cleanupExpiredDebouncers prevents timer accumulation
func (fw *fsWatch) cleanupExpiredDebouncers() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if len(fw.debouncer) > 100 {
		fw.cleanupDebouncers()
	}
}
