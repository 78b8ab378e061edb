package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

type fileService struct {
	workspace     inbound.WorkspaceService
	guard         inbound.PathGuard
	docExtensions []string
	logger        outbound.Logger
}

// NewFileService creates the validated file operations service. Every
// operation resolves the current workspace and validates its paths through
// the guard before touching the filesystem.
func NewFileService(
	workspace inbound.WorkspaceService,
	guard inbound.PathGuard,
	docExtensions []string,
	logger outbound.Logger,
) inbound.FileService {
	if len(docExtensions) == 0 {
		docExtensions = []string{"md"}
	}
	return &fileService{
		workspace:     workspace,
		guard:         guard,
		docExtensions: docExtensions,
		logger:        logger,
	}
}

func (s *fileService) ListFiles(ctx context.Context, dirPath string) ([]model.FileMetadata, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return nil, err
	}

	validated, err := s.guard.ValidateDirectory(dirPath, root, true)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(validated)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	files := make([]model.FileMetadata, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.IsDir() && !s.isDocument(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// entry vanished between ReadDir and Info
			continue
		}

		files = append(files, model.FileMetadata{
			Name:        name,
			Path:        filepath.Join(validated, name),
			Size:        info.Size(),
			Modified:    info.ModTime(),
			IsDirectory: entry.IsDir(),
		})
	}

	// directories first, then files, each alphabetically
	sort.Slice(files, func(i, j int) bool {
		if files[i].IsDirectory != files[j].IsDirectory {
			return files[i].IsDirectory
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

func (s *fileService) LoadDocument(ctx context.Context, filePath string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return "", err
	}

	validated, err := s.guard.Validate(filePath, root)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(validated)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %w", err)
	}

	if err := s.workspace.RecordRecentFile(validated); err != nil {
		s.logger.Warn("failed to record recent file", "path", validated, "error", err)
	}

	s.logger.Debug("loaded document", "path", validated)
	return string(content), nil
}

func (s *fileService) SaveDocument(ctx context.Context, filePath, content string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return "", err
	}

	if !s.isDocument(filePath) {
		filePath += "." + s.docExtensions[0]
	}

	validated, err := s.guard.ValidateWithExtension(filePath, root, s.docExtensions)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(validated, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("cannot save file: %w", err)
	}

	s.logger.Debug("saved document", "path", validated, "bytes", len(content))
	return validated, nil
}

func (s *fileService) CreateFile(ctx context.Context, dirPath, fileName string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return "", err
	}

	validatedDir, err := s.guard.ValidateDirectory(dirPath, root, true)
	if err != nil {
		return "", err
	}

	name := s.guard.SanitizeFilename(fileName)
	if !s.isDocument(name) {
		name += "." + s.docExtensions[0]
	}

	filePath := filepath.Join(validatedDir, name)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	initial := fmt.Sprintf("# %s\n\nStart writing...", title)

	// O_EXCL makes creation atomic, no exists-then-create race
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", model.ErrFileExists
		}
		return "", fmt.Errorf("cannot create file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(initial); err != nil {
		return "", fmt.Errorf("cannot write initial content: %w", err)
	}

	s.logger.Info("created file", "path", filePath)
	return filePath, nil
}

func (s *fileService) DeleteFile(ctx context.Context, filePath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validated, err := s.guard.Validate(filePath, root)
	if err != nil {
		return err
	}

	// only documents may be deleted through this path
	if !s.isDocument(validated) {
		return fmt.Errorf("%w: only document files can be deleted", model.ErrProtectedPath)
	}

	if err := os.Remove(validated); err != nil {
		return fmt.Errorf("cannot delete file: %w", err)
	}

	s.logger.Info("deleted file", "path", validated)
	return nil
}

func (s *fileService) RenameFile(ctx context.Context, oldPath, newPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validatedOld, err := s.guard.Validate(oldPath, root)
	if err != nil {
		return err
	}
	validatedNew, err := s.guard.Validate(newPath, root)
	if err != nil {
		return err
	}

	if _, err := os.Stat(validatedOld); err != nil {
		return fmt.Errorf("file does not exist: %s", oldPath)
	}

	if err := os.Rename(validatedOld, validatedNew); err != nil {
		return fmt.Errorf("cannot rename file: %w", err)
	}

	s.logger.Info("renamed file", "from", validatedOld, "to", validatedNew)
	return nil
}

func (s *fileService) CopyFile(ctx context.Context, sourcePath, destPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validatedSource, err := s.guard.Validate(sourcePath, root)
	if err != nil {
		return err
	}
	validatedDest, err := s.guard.Validate(destPath, root)
	if err != nil {
		return err
	}

	if err := copyFileContents(validatedSource, validatedDest); err != nil {
		return fmt.Errorf("cannot copy file: %w", err)
	}

	s.logger.Info("copied file", "from", validatedSource, "to", validatedDest)
	return nil
}

func (s *fileService) MoveFile(ctx context.Context, sourcePath, destPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validatedSource, err := s.guard.Validate(sourcePath, root)
	if err != nil {
		return err
	}
	validatedDest, err := s.guard.Validate(destPath, root)
	if err != nil {
		return err
	}

	if _, err := os.Stat(validatedSource); err != nil {
		return fmt.Errorf("source file does not exist: %s", sourcePath)
	}

	if err := os.Rename(validatedSource, validatedDest); err != nil {
		return fmt.Errorf("cannot move file: %w", err)
	}

	s.logger.Info("moved file", "from", validatedSource, "to", validatedDest)
	return nil
}

func (s *fileService) FileExists(ctx context.Context, path string) (bool, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return false, err
	}

	// a path outside the workspace reads as absent rather than leaking
	// validation details to the caller
	validated, err := s.guard.Validate(path, root)
	if err != nil {
		s.logger.Warn("existence check for path outside workspace", "path", path)
		return false, nil
	}

	_, err = os.Stat(validated)
	return err == nil, nil
}

func (s *fileService) GetMetadata(ctx context.Context, path string) (*model.FileMetadata, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return nil, err
	}

	validated, err := s.guard.Validate(path, root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(validated)
	if err != nil {
		return nil, fmt.Errorf("cannot stat path: %w", err)
	}

	return &model.FileMetadata{
		Name:        info.Name(),
		Path:        validated,
		Size:        info.Size(),
		Modified:    info.ModTime(),
		IsDirectory: info.IsDir(),
	}, nil
}

func (s *fileService) CreateDirectory(ctx context.Context, dirPath string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return "", err
	}

	validated, err := s.guard.ValidateDirectory(dirPath, root, false)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(validated, 0755); err != nil {
		return "", fmt.Errorf("cannot create directory: %w", err)
	}

	s.logger.Info("created directory", "path", validated)
	return validated, nil
}

func (s *fileService) RenameDirectory(ctx context.Context, oldPath, newPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validatedOld, err := s.guard.ValidateDirectory(oldPath, root, true)
	if err != nil {
		return err
	}
	validatedNew, err := s.guard.Validate(newPath, root)
	if err != nil {
		return err
	}

	if err := os.Rename(validatedOld, validatedNew); err != nil {
		return fmt.Errorf("cannot rename directory: %w", err)
	}

	s.logger.Info("renamed directory", "from", validatedOld, "to", validatedNew)
	return nil
}

func (s *fileService) DeleteDirectory(ctx context.Context, dirPath string, recursive bool) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validated, err := s.guard.ValidateDirectory(dirPath, root, true)
	if err != nil {
		return err
	}

	rootCanonical, err := canonicalize(root)
	if err != nil {
		return fmt.Errorf("cannot canonicalize workspace: %w", err)
	}
	if validated == rootCanonical {
		return fmt.Errorf("%w: cannot delete the workspace root", model.ErrProtectedPath)
	}

	if recursive {
		if err := os.RemoveAll(validated); err != nil {
			return fmt.Errorf("cannot delete directory recursively: %w", err)
		}
	} else {
		if err := os.Remove(validated); err != nil {
			return fmt.Errorf("cannot delete directory: %w", err)
		}
	}

	s.logger.Info("deleted directory", "path", validated, "recursive", recursive)
	return nil
}

func (s *fileService) isDocument(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
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

func copyFileContents(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
