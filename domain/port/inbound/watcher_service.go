package inbound

import (
	"context"

	"github.com/mdreader/mdreaderd/domain/model"
)

// WatcherService manages long-lived directory watches for the UI layer.
type WatcherService interface {
	// StartWatching validates the directory against the workspace root and
	// registers a native watch for it; watching an already-watched directory
	// is a no-op
	StartWatching(ctx context.Context, dirPath string) error

	// StopWatching removes the watch and releases its OS resources; returns
	// whether a watch existed
	StopWatching(dirPath string) (bool, error)

	// StopAll tears down every active watch and returns how many were removed
	StopAll() int

	// ListWatchers returns stats projections for all active watches
	ListWatchers() []model.WatcherStats

	// WatcherStats returns stats for one directory, or nil when not watched
	WatcherStats(dirPath string) *model.WatcherStats
}
