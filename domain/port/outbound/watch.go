package outbound

import (
	"context"

	"github.com/mdreader/mdreaderd/domain/model"
)

// WatchEvent is a raw filesystem notification from a native watch.
type WatchEvent struct {
	Path string // absolute path of the affected file
	Op   string // "create", "modify", "delete", "rename"
}

// WatchHandle is an active native filesystem watch on one directory. The
// registry entry that holds it is its sole owner: closing the handle must
// release the OS resource and terminate the event feed, which in turn makes
// the Events channel drain and close.
type WatchHandle interface {
	// begins delivering events; must be called at most once, after the
	// handle has been registered
	Start(ctx context.Context) error

	// returns the channel of raw change events
	Events() <-chan WatchEvent

	// returns the channel of watch errors
	Errors() <-chan error

	// releases the OS watch and stops the feed
	Close() error
}

// WatchFactory creates idle watch handles for directories.
type WatchFactory interface {
	NewWatch(dir string) (WatchHandle, error)
}

// ChangeNotifier delivers change notifications to the UI layer.
type ChangeNotifier interface {
	NotifyFileChange(event model.FileChangeEvent)
}
