package model

import (
	"errors"
	"fmt"
)

// Validation error kinds. Callers branch with errors.Is on these sentinels;
// the structured context travels in ValidationError.
var (
	ErrOutsideWorkspace     = errors.New("path is outside workspace")
	ErrResolutionFailed     = errors.New("path cannot be resolved")
	ErrInvalidWorkspaceRoot = errors.New("invalid workspace root")
	ErrInvalidPathPattern   = errors.New("invalid path pattern")
)

var (
	ErrNoWorkspace             = errors.New("no workspace configured")
	ErrWatchNotFound           = errors.New("no watch registered for path")
	ErrFileExists              = errors.New("file already exists")
	ErrProtectedPath           = errors.New("operation not allowed on this path")
	ErrInvalidToken            = errors.New("invalid token")
	ErrWorkspaceConfigNotFound = errors.New("workspace config not found")
)

// ValidationError carries the structured context of a rejected path.
// It unwraps to its Kind sentinel.
type ValidationError struct {
	Kind      error
	Path      string
	Workspace string
	Reason    string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrOutsideWorkspace:
		return fmt.Sprintf("access denied: path %q is outside workspace %q", e.Path, e.Workspace)
	case ErrInvalidWorkspaceRoot:
		return fmt.Sprintf("invalid workspace root %q: %s", e.Workspace, e.Reason)
	default:
		return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }
