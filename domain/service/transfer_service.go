package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

// transferService moves documents across the workspace boundary. Imports
// accept an arbitrary source but validate the destination; exports accept an
// arbitrary destination but validate the source.
type transferService struct {
	workspace     inbound.WorkspaceService
	guard         inbound.PathGuard
	docExtensions []string
	logger        outbound.Logger
}

func NewTransferService(
	workspace inbound.WorkspaceService,
	guard inbound.PathGuard,
	docExtensions []string,
	logger outbound.Logger,
) inbound.TransferService {
	if len(docExtensions) == 0 {
		docExtensions = []string{"md"}
	}
	return &transferService{
		workspace:     workspace,
		guard:         guard,
		docExtensions: docExtensions,
		logger:        logger,
	}
}

func (s *transferService) ImportFile(ctx context.Context, sourcePath, destFolder string) (string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return "", err
	}

	validatedDest, err := s.guard.ValidateDirectory(destFolder, root, true)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("source file does not exist: %s", sourcePath)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source is not a file: %s", sourcePath)
	}

	// source filename is untrusted; sanitize before joining
	name := s.guard.SanitizeFilename(filepath.Base(sourcePath))
	if !s.hasDocExtension(name) {
		name += "." + s.docExtensions[0]
	}

	destPath := filepath.Join(validatedDest, name)
	if err := copyFileContents(sourcePath, destPath); err != nil {
		return "", fmt.Errorf("cannot import file: %w", err)
	}

	s.logger.Info("imported file", "source", sourcePath, "dest", destPath)
	return destPath, nil
}

func (s *transferService) ImportFolder(ctx context.Context, sourcePath, destFolder string) ([]string, error) {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return nil, err
	}

	validatedDest, err := s.guard.ValidateDirectory(destFolder, root, true)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("source folder does not exist: %s", sourcePath)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source is not a directory: %s", sourcePath)
	}

	folderName := s.guard.SanitizeFilename(filepath.Base(sourcePath))
	destPath := filepath.Join(validatedDest, folderName)

	if err := copyDirRecursive(sourcePath, destPath); err != nil {
		return nil, fmt.Errorf("cannot import folder: %w", err)
	}

	imported, err := listFilesRecursive(destPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("imported folder", "source", sourcePath, "dest", destPath, "files", len(imported))
	return imported, nil
}

func (s *transferService) ExportDocument(ctx context.Context, documentPath, destPath string) error {
	root, err := s.workspace.GetWorkspace()
	if err != nil {
		return err
	}

	validatedSource, err := s.guard.Validate(documentPath, root)
	if err != nil {
		return err
	}

	if _, err := os.Stat(validatedSource); err != nil {
		return fmt.Errorf("document does not exist: %s", documentPath)
	}

	destParent := filepath.Dir(destPath)
	if _, err := os.Stat(destParent); err != nil {
		return fmt.Errorf("destination directory does not exist: %s", destParent)
	}

	if err := copyFileContents(validatedSource, destPath); err != nil {
		return fmt.Errorf("cannot export document: %w", err)
	}

	s.logger.Info("exported document", "source", validatedSource, "dest", destPath)
	return nil
}

func (s *transferService) hasDocExtension(name string) bool {
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

func copyDirRecursive(source, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		sourceEntry := filepath.Join(source, entry.Name())
		destEntry := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if err := copyDirRecursive(sourceEntry, destEntry); err != nil {
				return err
			}
			continue
		}
		if err := copyFileContents(sourceEntry, destEntry); err != nil {
			return err
		}
	}

	return nil
}

func listFilesRecursive(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
