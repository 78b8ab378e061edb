package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

const (
	configDirName  = "mdreader"
	configFileName = "workspace-config.json"
)

// fileConfigRepository persists the workspace config as JSON in the user's
// OS config directory. The file deliberately lives outside any workspace so
// clearing a workspace never deletes it.
type fileConfigRepository struct {
	path   string
	logger outbound.Logger
}

func NewWorkspaceConfigRepository(logger outbound.Logger) (outbound.WorkspaceConfigRepository, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return &fileConfigRepository{
		path:   filepath.Join(base, configDirName, configFileName),
		logger: logger,
	}, nil
}

// NewWorkspaceConfigRepositoryAt stores the config at an explicit path.
func NewWorkspaceConfigRepositoryAt(path string, logger outbound.Logger) outbound.WorkspaceConfigRepository {
	return &fileConfigRepository{path: path, logger: logger}
}

func (r *fileConfigRepository) Load() (*model.WorkspaceConfig, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrWorkspaceConfigNotFound
		}
		return nil, fmt.Errorf("cannot read workspace config: %w", err)
	}

	var config model.WorkspaceConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("cannot parse workspace config: %w", err)
	}

	return &config, nil
}

func (r *fileConfigRepository) Save(config *model.WorkspaceConfig) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot serialize workspace config: %w", err)
	}

	// write-then-rename keeps the config readable if the process dies mid-save
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("cannot write workspace config: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("cannot replace workspace config: %w", err)
	}

	r.logger.Debug("workspace config saved", "path", r.path)
	return nil
}

func (r *fileConfigRepository) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}
