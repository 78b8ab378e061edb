package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

type watcherService struct {
	workspace     inbound.WorkspaceService
	guard         inbound.PathGuard
	registry      *WatchRegistry
	factory       outbound.WatchFactory
	notifier      outbound.ChangeNotifier
	docExtensions []string
	logger        outbound.Logger
}

// NewWatcherService creates the watch lifecycle service. Handles are
// registered before their native watch starts delivering events, so every
// event finds its registry entry.
func NewWatcherService(
	workspace inbound.WorkspaceService,
	guard inbound.PathGuard,
	registry *WatchRegistry,
	factory outbound.WatchFactory,
	notifier outbound.ChangeNotifier,
	docExtensions []string,
	logger outbound.Logger,
) inbound.WatcherService {
	if len(docExtensions) == 0 {
		docExtensions = []string{"md"}
	}
	return &watcherService{
		workspace:     workspace,
		guard:         guard,
		registry:      registry,
		factory:       factory,
		notifier:      notifier,
		docExtensions: docExtensions,
		logger:        logger,
	}
}

func (s *watcherService) StartWatching(ctx context.Context, dirPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validated, err := s.guard.ValidateDirectory(dirPath, root, true)
	if err != nil {
		return err
	}

	if s.registry.Has(validated) {
		s.logger.Debug("directory already watched", "path", validated)
		return nil
	}

	handle, err := s.factory.NewWatch(validated)
	if err != nil {
		return err
	}

	// registry first: an event arriving the instant the watch starts must
	// find its entry
	if replaced := s.registry.Register(validated, handle); replaced {
		s.logger.Warn("replaced concurrent watch registration", "path", validated)
	}

	if err := handle.Start(ctx); err != nil {
		s.registry.Remove(validated)
		return err
	}

	go s.pump(validated, handle)

	s.logger.Info("started watching directory", "path", validated)
	return nil
}

func (s *watcherService) StopWatching(dirPath string) (bool, error) {
	key, err := s.resolveKey(dirPath)
	if err != nil {
		return false, err
	}

	removed := s.registry.Remove(key)
	if removed {
		s.logger.Info("stopped watching directory", "path", key)
	}
	return removed, nil
}

func (s *watcherService) StopAll() int {
	count := s.registry.ClearAll()
	if count > 0 {
		s.logger.Info("stopped all watches", "count", count)
	}
	return count
}

func (s *watcherService) ListWatchers() []model.WatcherStats {
	return s.registry.StatsAll()
}

func (s *watcherService) WatcherStats(dirPath string) *model.WatcherStats {
	key, err := s.resolveKey(dirPath)
	if err != nil {
		return nil
	}
	return s.registry.Stats(key)
}

// resolveKey canonicalizes a directory path into the registry key form.
// Watches can outlive their directory, so existence is not required here.
func (s *watcherService) resolveKey(dirPath string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		if errors.Is(err, model.ErrNoWorkspace) {
			return dirPath, nil
		}
		return "", err
	}
	return s.guard.ValidateDirectory(dirPath, root, false)
}

// pump drains one handle's channels until the handle is closed, forwarding
// document events to the notifier. It exits when the events channel closes,
// so a removed watch never produces another notification.
func (s *watcherService) pump(watchPath string, handle outbound.WatchHandle) {
	events := handle.Events()
	errs := handle.Errors()

	for events != nil || errs != nil {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(watchPath, event)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Error("watch error", "path", watchPath, "error", err)
		}
	}

	s.logger.Debug("watch event pump stopped", "path", watchPath)
}

func (s *watcherService) handleEvent(watchPath string, event outbound.WatchEvent) {
	if !s.isDocument(event.Path) {
		return
	}

	if _, err := s.registry.RecordEvent(watchPath); err != nil {
		// watch removed while the event was in flight; drop it
		return
	}

	change := model.FileChangeEvent{
		ID:        uuid.New().String(),
		Path:      event.Path,
		EventType: eventType(event.Op),
		Timestamp: time.Now(),
	}
	s.notifier.NotifyFileChange(change)
}

func (s *watcherService) isDocument(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range s.docExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func eventType(op string) string {
	switch op {
	case "create":
		return "created"
	case "delete", "rename":
		return "deleted"
	default:
		return "modified"
	}
}
