package outbound

import "github.com/mdreader/mdreaderd/domain/model"

// WorkspaceConfigRepository persists the workspace configuration outside the
// workspace itself, in the user's config directory.
type WorkspaceConfigRepository interface {
	// Load returns the stored config, or model.ErrWorkspaceConfigNotFound
	Load() (*model.WorkspaceConfig, error)

	// Save writes the config, creating the config directory if needed
	Save(config *model.WorkspaceConfig) error

	// Exists reports whether a config has been persisted
	Exists() bool
}

// MachineIDService provides a stable, hashed identifier for this machine.
type MachineIDService interface {
	GetMachineID() (string, error)
}

// SecretService derives signing material for session tokens.
type SecretService interface {
	// DeriveTokenSecret stretches the machine identifier into a signing key
	DeriveTokenSecret(machineID string) []byte
}
