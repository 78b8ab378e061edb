package service

import (
	"sync"
	"time"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

type watchEntry struct {
	handle     outbound.WatchHandle
	createdAt  time.Time
	eventCount uint64
}

// WatchRegistry owns the lifecycle of active directory watches. All methods
// are safe for concurrent use; a single mutex guards the map so replace and
// close of a displaced handle happen in the same critical section, leaving no
// window where two handles watch the same path.
type WatchRegistry struct {
	mu      sync.Mutex
	watches map[string]*watchEntry
	logger  outbound.Logger
}

func NewWatchRegistry(logger outbound.Logger) *WatchRegistry {
	return &WatchRegistry{
		watches: make(map[string]*watchEntry),
		logger:  logger,
	}
}

// Register stores the handle under path, closing and replacing any handle
// already registered there. Returns true when a previous handle was replaced.
func (r *WatchRegistry) Register(path string, handle outbound.WatchHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.watches[path]
	if replaced {
		if err := previous.handle.Close(); err != nil {
			r.logger.Warn("failed to close replaced watch", "path", path, "error", err)
		}
	}

	r.watches[path] = &watchEntry{
		handle:    handle,
		createdAt: time.Now(),
	}
	return replaced
}

// Remove closes and drops the watch for path. Returns false when no watch
// was registered there.
func (r *WatchRegistry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.watches[path]
	if !exists {
		return false
	}

	if err := entry.handle.Close(); err != nil {
		r.logger.Warn("failed to close watch", "path", path, "error", err)
	}
	delete(r.watches, path)
	return true
}

// ClearAll closes every registered watch and returns how many were closed.
func (r *WatchRegistry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.watches)
	for path, entry := range r.watches {
		if err := entry.handle.Close(); err != nil {
			r.logger.Warn("failed to close watch", "path", path, "error", err)
		}
	}
	r.watches = make(map[string]*watchEntry)
	return count
}

// Has reports whether a watch is registered for path.
func (r *WatchRegistry) Has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.watches[path]
	return exists
}

// Count returns the number of registered watches.
func (r *WatchRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watches)
}

// ListPaths returns the registered watch paths in unspecified order.
func (r *WatchRegistry) ListPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.watches))
	for path := range r.watches {
		paths = append(paths, path)
	}
	return paths
}

// RecordEvent increments the event counter for path and returns the new
// count. Returns model.ErrWatchNotFound when the watch was removed before
// the event arrived, which is normal during teardown.
func (r *WatchRegistry) RecordEvent(path string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.watches[path]
	if !exists {
		return 0, model.ErrWatchNotFound
	}
	entry.eventCount++
	return entry.eventCount, nil
}

// Stats returns a snapshot of the watch registered for path, or nil when
// none exists. Uptime is computed at call time.
func (r *WatchRegistry) Stats(path string) *model.WatcherStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.watches[path]
	if !exists {
		return nil
	}
	return &model.WatcherStats{
		Path:       path,
		CreatedAt:  entry.createdAt,
		EventCount: entry.eventCount,
		Uptime:     time.Since(entry.createdAt),
	}
}

// StatsAll returns snapshots for every registered watch.
func (r *WatchRegistry) StatsAll() []model.WatcherStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]model.WatcherStats, 0, len(r.watches))
	for path, entry := range r.watches {
		stats = append(stats, model.WatcherStats{
			Path:       path,
			CreatedAt:  entry.createdAt,
			EventCount: entry.eventCount,
			Uptime:     time.Since(entry.createdAt),
		})
	}
	return stats
}
