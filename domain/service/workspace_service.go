package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

// defaultFolders is the starter structure created in a fresh workspace.
var defaultFolders = []string{"Quick Notes", "Projects"}

const welcomeDocument = `# Welcome to MDReader

This is your local workspace. All your documents are stored as ` + "`.md`" + ` files
on your computer.

## Getting started

- Create documents from the sidebar
- Import existing markdown files or whole folders
- Organize your notes with folders

## Your workspace location

` + "```" + `
%s
` + "```" + `

You can open this folder directly to back up your files, sync them with any
cloud drive, or edit them with another markdown editor.

Happy writing!
`

type workspaceService struct {
	mu         sync.RWMutex
	workspace  string
	registry   *WatchRegistry
	configRepo outbound.WorkspaceConfigRepository
	logger     outbound.Logger
}

// NewWorkspaceService creates the session holder for the single active
// workspace. Selecting a new workspace tears down every watch of the old one
// through the shared registry.
func NewWorkspaceService(
	registry *WatchRegistry,
	configRepo outbound.WorkspaceConfigRepository,
	logger outbound.Logger,
) inbound.WorkspaceService {
	return &workspaceService{
		registry:   registry,
		configRepo: configRepo,
		logger:     logger,
	}
}

func (s *workspaceService) SelectWorkspace(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Workspace: path,
			Reason:    "workspace directory does not exist",
		}
	}
	if !info.IsDir() {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Workspace: path,
			Reason:    "workspace path is not a directory",
		}
	}

	canonical, err := canonicalize(path)
	if err != nil {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Workspace: path,
			Reason:    fmt.Sprintf("cannot canonicalize workspace: %v", err),
		}
	}

	s.mu.Lock()
	previous := s.workspace
	s.workspace = canonical
	s.mu.Unlock()

	// watches of the previous workspace must not outlive the switch
	if previous != "" && previous != canonical {
		cleared := s.registry.ClearAll()
		if cleared > 0 {
			s.logger.Info("cleared watches from previous workspace", "workspace", previous, "count", cleared)
		}
	}

	if err := s.persistSelection(canonical); err != nil {
		s.logger.Warn("failed to persist workspace selection", "workspace", canonical, "error", err)
	}

	s.logger.Info("workspace selected", "workspace", canonical)
	return canonical, nil
}

func (s *workspaceService) GetWorkspace() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.workspace == "" {
		return "", model.ErrNoWorkspace
	}
	return s.workspace, nil
}

func (s *workspaceService) HasWorkspace() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace != ""
}

func (s *workspaceService) ClearWorkspace() error {
	s.mu.Lock()
	previous := s.workspace
	s.workspace = ""
	s.mu.Unlock()

	if previous != "" {
		cleared := s.registry.ClearAll()
		s.logger.Info("workspace cleared", "workspace", previous, "watchesCleared", cleared)
	}
	return nil
}

func (s *workspaceService) DefaultWorkspaceLocation() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "MDReader"), nil
}

func (s *workspaceService) EnsureDefaultFolders(ctx context.Context) ([]string, error) {
	workspace, err := s.GetWorkspace()
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(defaultFolders))
	for _, name := range defaultFolders {
		folder := filepath.Join(workspace, name)
		if err := os.MkdirAll(folder, 0755); err != nil {
			return created, fmt.Errorf("cannot create folder %q: %w", name, err)
		}
		created = append(created, folder)
	}

	welcomePath := filepath.Join(workspace, "Quick Notes", "Welcome.md")
	if _, err := os.Stat(welcomePath); os.IsNotExist(err) {
		content := fmt.Sprintf(welcomeDocument, workspace)
		if err := os.WriteFile(welcomePath, []byte(content), 0644); err != nil {
			return created, fmt.Errorf("cannot create welcome document: %w", err)
		}
		s.logger.Info("created welcome document", "path", welcomePath)
	}

	return created, nil
}

func (s *workspaceService) RecordRecentFile(path string) error {
	workspace, err := s.GetWorkspace()
	if err != nil {
		return err
	}

	config, err := s.configRepo.Load()
	if err != nil {
		config = &model.WorkspaceConfig{
			WorkspacePath: workspace,
			CreatedAt:     time.Now(),
		}
	}

	// most recent first, no duplicates
	recent := make([]string, 0, len(config.RecentFiles)+1)
	recent = append(recent, path)
	for _, existing := range config.RecentFiles {
		if existing != path {
			recent = append(recent, existing)
		}
	}
	if len(recent) > model.MaxRecentFiles {
		recent = recent[:model.MaxRecentFiles]
	}

	config.RecentFiles = recent
	config.LastOpened = path
	config.UpdatedAt = time.Now()

	return s.configRepo.Save(config)
}

func (s *workspaceService) LoadConfig() (*model.WorkspaceConfig, error) {
	return s.configRepo.Load()
}

func (s *workspaceService) persistSelection(workspace string) error {
	config, err := s.configRepo.Load()
	if err != nil {
		config = &model.WorkspaceConfig{CreatedAt: time.Now()}
	}
	if config.WorkspacePath != workspace {
		// recent files of the old workspace are meaningless in the new one
		config.RecentFiles = nil
		config.LastOpened = ""
	}
	config.WorkspacePath = workspace
	config.UpdatedAt = time.Now()
	return s.configRepo.Save(config)
}
