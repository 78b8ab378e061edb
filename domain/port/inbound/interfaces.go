package inbound

import (
	"context"

	"github.com/mdreader/mdreaderd/domain/model"
)

// PathGuard decides whether an untrusted path resolves inside a trusted
// workspace root, and sanitizes untrusted filename fragments. Stateless;
// outcomes are produced fresh on every call and are only a hint valid until
// the next syscall (the filesystem may change underneath).
type PathGuard interface {
	// Validate resolves requested against root and returns the canonical
	// path when it is equal to or a descendant of the canonical root
	Validate(requested, root string) (string, error)

	// ValidateWithExtension additionally requires the resolved path's
	// extension to be in the allow-list (case-insensitive)
	ValidateWithExtension(requested, root string, allowedExtensions []string) (string, error)

	// ValidateDirectory additionally requires the resolved path to be an
	// existing directory when mustExist is set
	ValidateDirectory(requested, root string, mustExist bool) (string, error)

	// SanitizeFilename produces a safe, non-empty filename. Never fails.
	SanitizeFilename(raw string) string
}

// WorkspaceService manages the process-wide workspace session.
type WorkspaceService interface {
	// SelectWorkspace replaces the workspace root wholesale, tearing down
	// all watches of the previous workspace
	SelectWorkspace(ctx context.Context, path string) (string, error)

	// GetWorkspace returns the current root, or model.ErrNoWorkspace
	GetWorkspace() (string, error)

	HasWorkspace() bool

	// ClearWorkspace unsets the root and tears down all watches
	ClearWorkspace() error

	// DefaultWorkspaceLocation returns the OS-specific default workspace path
	DefaultWorkspaceLocation() (string, error)

	// EnsureDefaultFolders creates the starter folder structure and returns
	// the folders that were created
	EnsureDefaultFolders(ctx context.Context) ([]string, error)

	// RecordRecentFile tracks a recently opened document in the persisted config
	RecordRecentFile(path string) error

	// LoadConfig returns the persisted workspace config, if any
	LoadConfig() (*model.WorkspaceConfig, error)
}

// FileService exposes the validated file operations consumed by the UI layer.
type FileService interface {
	ListFiles(ctx context.Context, dirPath string) ([]model.FileMetadata, error)
	LoadDocument(ctx context.Context, filePath string) (string, error)
	SaveDocument(ctx context.Context, filePath, content string) (string, error)
	CreateFile(ctx context.Context, dirPath, fileName string) (string, error)
	DeleteFile(ctx context.Context, filePath string) error
	RenameFile(ctx context.Context, oldPath, newPath string) error
	CopyFile(ctx context.Context, sourcePath, destPath string) error
	MoveFile(ctx context.Context, sourcePath, destPath string) error

	// FileExists maps out-of-workspace paths to a soft false instead of an error
	FileExists(ctx context.Context, path string) (bool, error)

	GetMetadata(ctx context.Context, path string) (*model.FileMetadata, error)

	CreateDirectory(ctx context.Context, dirPath string) (string, error)
	RenameDirectory(ctx context.Context, oldPath, newPath string) error
	DeleteDirectory(ctx context.Context, dirPath string, recursive bool) error
}

// TransferService imports documents into and exports them out of the workspace.
type TransferService interface {
	// ImportFile copies an external file into a validated workspace folder
	ImportFile(ctx context.Context, sourcePath, destFolder string) (string, error)

	// ImportFolder recursively copies an external folder into the workspace
	// and returns the imported file paths
	ImportFolder(ctx context.Context, sourcePath, destFolder string) ([]string, error)

	// ExportDocument copies a validated workspace document to an external path
	ExportDocument(ctx context.Context, documentPath, destPath string) error
}
