package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

// encoded traversal markers rejected before any filesystem access
var encodedTraversalMarkers = []string{"..%2f", "..%5c", "%2e%2e"}

// maxFilenameLength leaves headroom under the common 255-byte filesystem
// limit for appended extensions.
const maxFilenameLength = 200

type pathGuardService struct {
	logger outbound.Logger
}

// NewPathGuardService creates the stateless path validation service. Every
// call reads the filesystem fresh; results are a hint valid only until the
// next syscall, never a proof.
func NewPathGuardService(logger outbound.Logger) inbound.PathGuard {
	return &pathGuardService{logger: logger}
}

func (s *pathGuardService) Validate(requested, root string) (string, error) {
	// pre-resolution check: canonicalization would collapse ".." anyway,
	// but the explicit check gives a distinct error category and defends
	// against platform canonicalization quirks
	if reason, found := traversalPattern(requested); found {
		s.logger.Warn("rejected path with traversal pattern", "path", requested, "reason", reason)
		return "", &model.ValidationError{
			Kind:   model.ErrInvalidPathPattern,
			Path:   requested,
			Reason: reason,
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Path:      requested,
			Workspace: root,
			Reason:    "workspace directory does not exist",
		}
	}
	if !info.IsDir() {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Path:      requested,
			Workspace: root,
			Reason:    "workspace path is not a directory",
		}
	}

	rootCanonical, err := canonicalize(root)
	if err != nil {
		return "", &model.ValidationError{
			Kind:      model.ErrInvalidWorkspaceRoot,
			Path:      requested,
			Workspace: root,
			Reason:    fmt.Sprintf("cannot canonicalize workspace: %v", err),
		}
	}

	// relative paths are workspace-relative, never process-cwd-relative
	anchored := requested
	if !filepath.IsAbs(anchored) {
		anchored = filepath.Join(rootCanonical, anchored)
	}

	requestedCanonical, err := s.resolve(anchored)
	if err != nil {
		return "", err
	}

	if !isWithin(rootCanonical, requestedCanonical) {
		s.logger.Warn("rejected out-of-workspace access", "path", requested, "workspace", root)
		return "", &model.ValidationError{
			Kind:      model.ErrOutsideWorkspace,
			Path:      requested,
			Workspace: root,
		}
	}

	return requestedCanonical, nil
}

func (s *pathGuardService) ValidateWithExtension(requested, root string, allowedExtensions []string) (string, error) {
	path, err := s.Validate(requested, root)
	if err != nil {
		return "", err
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		if len(allowedExtensions) == 0 {
			return path, nil
		}
		return "", &model.ValidationError{
			Kind:   model.ErrInvalidPathPattern,
			Path:   requested,
			Reason: fmt.Sprintf("file must have one of these extensions: %v", allowedExtensions),
		}
	}

	for _, allowed := range allowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return path, nil
		}
	}

	s.logger.Warn("rejected path with disallowed extension", "path", requested, "extension", ext)
	return "", &model.ValidationError{
		Kind:   model.ErrInvalidPathPattern,
		Path:   requested,
		Reason: fmt.Sprintf("file extension %q not allowed, allowed: %v", ext, allowedExtensions),
	}
}

func (s *pathGuardService) ValidateDirectory(requested, root string, mustExist bool) (string, error) {
	path, err := s.Validate(requested, root)
	if err != nil {
		return "", err
	}

	if mustExist {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return "", &model.ValidationError{
				Kind:   model.ErrResolutionFailed,
				Path:   requested,
				Reason: "path is not a directory or does not exist",
			}
		}
	}

	return path, nil
}

func (s *pathGuardService) SanitizeFilename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if strings.ContainsRune(`<>:"/\|?*`, r) || unicode.IsControl(r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}

	// leading dots would hide the file, trailing dots confuse Windows
	sanitized := strings.Trim(strings.TrimSpace(b.String()), ".")

	if sanitized == "" {
		return "unnamed"
	}

	if len(sanitized) > maxFilenameLength {
		sanitized = truncateUTF8(sanitized, maxFilenameLength)
	}

	return sanitized
}

// resolve canonicalizes an existing path directly; for a path that does not
// exist yet (the "create new file" case) it canonicalizes the parent, which
// must exist, and rejoins the final component. Intermediate directories are
// never created here.
func (s *pathGuardService) resolve(requested string) (string, error) {
	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", &model.ValidationError{
			Kind:   model.ErrResolutionFailed,
			Path:   requested,
			Reason: fmt.Sprintf("cannot make path absolute: %v", err),
		}
	}

	if _, err := os.Stat(abs); err == nil {
		canonical, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", &model.ValidationError{
				Kind:   model.ErrResolutionFailed,
				Path:   requested,
				Reason: fmt.Sprintf("cannot resolve path: %v", err),
			}
		}
		return canonical, nil
	}

	parent := filepath.Dir(abs)
	base := filepath.Base(abs)
	if base == "." || base == string(filepath.Separator) {
		return "", &model.ValidationError{
			Kind:   model.ErrResolutionFailed,
			Path:   requested,
			Reason: "path has no filename",
		}
	}

	if _, err := os.Stat(parent); err != nil {
		return "", &model.ValidationError{
			Kind:   model.ErrResolutionFailed,
			Path:   requested,
			Reason: "parent directory does not exist",
		}
	}

	parentCanonical, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", &model.ValidationError{
			Kind:   model.ErrResolutionFailed,
			Path:   requested,
			Reason: fmt.Sprintf("cannot resolve parent directory: %v", err),
		}
	}

	return filepath.Join(parentCanonical, base), nil
}

// canonicalize resolves symlinks and normalizes to an absolute path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// isWithin reports whether path equals root or is a descendant of it,
// comparing path components rather than text so /workspace-evil does not
// match /workspace.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// traversalPattern reports whether the raw path string contains a parent
// directory component or a percent-encoded traversal marker. Dots embedded
// within a component (my..file.md) are not flagged.
func traversalPattern(path string) (string, bool) {
	lower := strings.ToLower(path)
	for _, marker := range encodedTraversalMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Sprintf("path contains encoded traversal sequence %q", marker), true
		}
	}

	components := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, component := range components {
		if component == ".." {
			return "path contains a parent directory component", true
		}
	}

	return "", false
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	for max > 0 && max < len(s) && !utf8.RuneStart(s[max]) {
		max--
	}
	if max < len(s) {
		return s[:max]
	}
	return s
}
