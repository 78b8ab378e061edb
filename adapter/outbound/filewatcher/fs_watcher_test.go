package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdreader/mdreaderd/domain/port/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {}
func (l *testLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *testLogger) Warn(msg string, keysAndValues ...interface{})  {}

func newStartedWatch(t *testing.T, dir string) outbound.WatchHandle {
	t.Helper()
	factory := NewFactory(50*time.Millisecond, &testLogger{})
	handle, err := factory.NewWatch(dir)
	require.NoError(t, err)
	require.NoError(t, handle.Start(context.Background()))
	t.Cleanup(func() { handle.Close() })
	return handle
}

func waitForEvent(t *testing.T, handle outbound.WatchHandle, path, op string) outbound.WatchEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-handle.Events():
			if !ok {
				t.Fatal("events channel closed while waiting")
			}
			if event.Path == path && (op == "" || event.Op == op) {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event on %s", op, path)
		}
	}
}

func TestWatchDeliversFileEvents(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		dir := t.TempDir()
		handle := newStartedWatch(t, dir)

		path := filepath.Join(dir, "doc.md")
		require.NoError(t, os.WriteFile(path, []byte("# hi"), 0644))

		event := waitForEvent(t, handle, path, "create")
		assert.Equal(t, "create", event.Op)
	})

	t.Run("modify after debounce", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.md")
		require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))
		handle := newStartedWatch(t, dir)

		require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))

		waitForEvent(t, handle, path, "modify")
	})

	t.Run("delete passes through without debounce", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.md")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		handle := newStartedWatch(t, dir)

		require.NoError(t, os.Remove(path))

		waitForEvent(t, handle, path, "delete")
	})

	t.Run("rapid writes coalesce", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.md")
		require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))
		handle := newStartedWatch(t, dir)

		for i := 0; i < 10; i++ {
			require.NoError(t, os.WriteFile(path, []byte("burst"), 0644))
		}

		waitForEvent(t, handle, path, "modify")

		// the burst should not produce a backlog of further modify events
		extra := 0
	drain:
		for {
			select {
			case event := <-handle.Events():
				if event.Path == path && event.Op == "modify" {
					extra++
				}
			case <-time.After(300 * time.Millisecond):
				break drain
			}
		}
		assert.LessOrEqual(t, extra, 1)
	})
}

func TestWatchCoversSubtree(t *testing.T) {
	t.Run("existing subdirectory", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "notes")
		require.NoError(t, os.Mkdir(sub, 0755))
		handle := newStartedWatch(t, dir)

		path := filepath.Join(sub, "nested.md")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		waitForEvent(t, handle, path, "create")
	})

	t.Run("subdirectory created after start", func(t *testing.T) {
		dir := t.TempDir()
		handle := newStartedWatch(t, dir)

		sub := filepath.Join(dir, "new-folder")
		require.NoError(t, os.Mkdir(sub, 0755))
		// give the watcher a moment to pick up the new directory
		time.Sleep(200 * time.Millisecond)

		path := filepath.Join(sub, "nested.md")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		waitForEvent(t, handle, path, "create")
	})
}

func TestWatchLifecycle(t *testing.T) {
	t.Run("idle until started", func(t *testing.T) {
		dir := t.TempDir()
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		handle, err := factory.NewWatch(dir)
		require.NoError(t, err)
		defer handle.Close()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "early.md"), []byte("x"), 0644))

		select {
		case event := <-handle.Events():
			t.Fatalf("received event before start: %+v", event)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("start twice fails", func(t *testing.T) {
		dir := t.TempDir()
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		handle, err := factory.NewWatch(dir)
		require.NoError(t, err)
		defer handle.Close()

		require.NoError(t, handle.Start(context.Background()))
		assert.Error(t, handle.Start(context.Background()))
	})

	t.Run("close drains and closes channels", func(t *testing.T) {
		dir := t.TempDir()
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		handle, err := factory.NewWatch(dir)
		require.NoError(t, err)
		require.NoError(t, handle.Start(context.Background()))

		require.NoError(t, handle.Close())

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-handle.Events():
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("events channel never closed")
			}
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		handle, err := factory.NewWatch(dir)
		require.NoError(t, err)
		require.NoError(t, handle.Start(context.Background()))

		require.NoError(t, handle.Close())
		assert.NoError(t, handle.Close())
	})

	t.Run("close without start", func(t *testing.T) {
		dir := t.TempDir()
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		handle, err := factory.NewWatch(dir)
		require.NoError(t, err)

		assert.NoError(t, handle.Close())
	})

	t.Run("watching a missing directory fails", func(t *testing.T) {
		factory := NewFactory(50*time.Millisecond, &testLogger{})
		_, err := factory.NewWatch(filepath.Join(t.TempDir(), "gone"))
		assert.Error(t, err)
	})
}
