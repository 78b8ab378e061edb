package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWatchFactory struct {
	mu      sync.Mutex
	handles map[string]*mockWatchHandle
	err     error
}

func newMockWatchFactory() *mockWatchFactory {
	return &mockWatchFactory{handles: make(map[string]*mockWatchHandle)}
}

func (m *mockWatchFactory) NewWatch(dir string) (outbound.WatchHandle, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := newMockWatchHandle()
	m.handles[dir] = handle
	return handle, nil
}

func (m *mockWatchFactory) handleFor(dir string) *mockWatchHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[dir]
}

type mockNotifier struct {
	mu     sync.Mutex
	events []model.FileChangeEvent
}

func (m *mockNotifier) NotifyFileChange(event model.FileChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) received() []model.FileChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.FileChangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockNotifier) waitFor(t *testing.T, count int) []model.FileChangeEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if events := m.received(); len(events) >= count {
			return events
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", count, len(m.received()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func setupWatcherService(t *testing.T) (*watcherService, *WatchRegistry, *mockWatchFactory, *mockNotifier, string) {
	t.Helper()
	logger := &mockLogger{}
	registry := NewWatchRegistry(logger)
	workspace := NewWorkspaceService(registry, &mockConfigRepo{}, logger)
	root := t.TempDir()
	_, err := workspace.SelectWorkspace(context.Background(), root)
	require.NoError(t, err)
	canonical, err := workspace.GetWorkspace()
	require.NoError(t, err)

	factory := newMockWatchFactory()
	notifier := &mockNotifier{}
	svc := &watcherService{
		workspace:     workspace,
		guard:         &pathGuardService{logger: logger},
		registry:      registry,
		factory:       factory,
		notifier:      notifier,
		docExtensions: []string{"md"},
		logger:        logger,
	}
	return svc, registry, factory, notifier, canonical
}

func TestStartWatching(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a watch for an existing directory", func(t *testing.T) {
		svc, registry, factory, _, root := setupWatcherService(t)

		require.NoError(t, svc.StartWatching(ctx, root))
		assert.Equal(t, 1, registry.Count())
		assert.NotNil(t, factory.handleFor(root))
	})

	t.Run("watching twice is a no-op", func(t *testing.T) {
		svc, registry, _, _, root := setupWatcherService(t)

		require.NoError(t, svc.StartWatching(ctx, root))
		require.NoError(t, svc.StartWatching(ctx, root))
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("rejects directory outside workspace", func(t *testing.T) {
		svc, registry, _, _, _ := setupWatcherService(t)

		err := svc.StartWatching(ctx, t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrOutsideWorkspace))
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("rejects missing directory", func(t *testing.T) {
		svc, _, _, _, root := setupWatcherService(t)

		err := svc.StartWatching(ctx, filepath.Join(root, "gone"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrResolutionFailed))
	})

	t.Run("fails without a workspace", func(t *testing.T) {
		svc, _, _, _, _ := setupWatcherService(t)
		require.NoError(t, svc.workspace.ClearWorkspace())

		err := svc.StartWatching(ctx, "/anywhere")
		assert.ErrorIs(t, err, model.ErrNoWorkspace)
	})

	t.Run("factory failure leaves no registration", func(t *testing.T) {
		svc, registry, factory, _, root := setupWatcherService(t)
		factory.err = errors.New("inotify limit reached")

		err := svc.StartWatching(ctx, root)
		require.Error(t, err)
		assert.Equal(t, 0, registry.Count())
	})
}

func TestStopWatching(t *testing.T) {
	ctx := context.Background()

	t.Run("stops an active watch and closes its handle", func(t *testing.T) {
		svc, registry, factory, _, root := setupWatcherService(t)
		require.NoError(t, svc.StartWatching(ctx, root))

		removed, err := svc.StopWatching(root)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, 0, registry.Count())
		assert.True(t, factory.handleFor(root).isClosed())
	})

	t.Run("stopping an unwatched directory reports false", func(t *testing.T) {
		svc, _, _, _, root := setupWatcherService(t)

		removed, err := svc.StopWatching(root)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("stop all", func(t *testing.T) {
		svc, _, _, _, root := setupWatcherService(t)
		sub := filepath.Join(root, "notes")
		require.NoError(t, os.Mkdir(sub, 0755))
		require.NoError(t, svc.StartWatching(ctx, root))
		require.NoError(t, svc.StartWatching(ctx, sub))

		assert.Equal(t, 2, svc.StopAll())
		assert.Empty(t, svc.ListWatchers())
	})
}

func TestWatcherEventFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("document events reach the notifier with typed payloads", func(t *testing.T) {
		svc, registry, factory, notifier, root := setupWatcherService(t)
		require.NoError(t, svc.StartWatching(ctx, root))
		handle := factory.handleFor(root)

		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "a.md"), Op: "create"}
		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "a.md"), Op: "modify"}
		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "a.md"), Op: "delete"}

		events := notifier.waitFor(t, 3)
		assert.Equal(t, "created", events[0].EventType)
		assert.Equal(t, "modified", events[1].EventType)
		assert.Equal(t, "deleted", events[2].EventType)
		for _, e := range events {
			assert.NotEmpty(t, e.ID)
			assert.False(t, e.Timestamp.IsZero())
		}

		stats := registry.Stats(root)
		require.NotNil(t, stats)
		assert.Equal(t, uint64(3), stats.EventCount)
	})

	t.Run("non-document events are filtered", func(t *testing.T) {
		svc, registry, factory, notifier, root := setupWatcherService(t)
		require.NoError(t, svc.StartWatching(ctx, root))
		handle := factory.handleFor(root)

		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "image.png"), Op: "create"}
		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "doc.md"), Op: "create"}

		events := notifier.waitFor(t, 1)
		assert.Len(t, events, 1)
		assert.Equal(t, filepath.Join(root, "doc.md"), events[0].Path)

		stats := registry.Stats(root)
		require.NotNil(t, stats)
		assert.Equal(t, uint64(1), stats.EventCount)
	})

	t.Run("pump exits when the handle channels close", func(t *testing.T) {
		svc, _, factory, notifier, root := setupWatcherService(t)
		require.NoError(t, svc.StartWatching(ctx, root))
		handle := factory.handleFor(root)

		_, err := svc.StopWatching(root)
		require.NoError(t, err)
		close(handle.events)
		close(handle.errs)

		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, notifier.received())
	})

	t.Run("stats by directory", func(t *testing.T) {
		svc, _, factory, notifier, root := setupWatcherService(t)
		require.NoError(t, svc.StartWatching(ctx, root))
		handle := factory.handleFor(root)

		handle.events <- outbound.WatchEvent{Path: filepath.Join(root, "doc.md"), Op: "modify"}
		notifier.waitFor(t, 1)

		stats := svc.WatcherStats(root)
		require.NotNil(t, stats)
		assert.Equal(t, root, stats.Path)
		assert.Equal(t, uint64(1), stats.EventCount)

		assert.Nil(t, svc.WatcherStats(filepath.Join(root, "unwatched")))
	})
}
