package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve validates a user-supplied path against the workspace root and
// returns its canonical absolute form. The check runs after
// canonicalization (".." segments, symlinks, redundant separators), never
// on the raw string. Resolve is pure validation: it never creates or
// touches the target.
func (w *Workspace) Resolve(requested string) (string, error) {
	candidate := requested
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	// Lexical containment before touching the filesystem.
	if !w.contains(candidate) {
		return "", w.escapeError(requested)
	}

	// Traversal sequences that land back on the root are rejected: a path
	// like "../<root-name>" is an escape attempt even though it resolves
	// inside.
	if candidate == w.root && strings.Contains(requested, "..") {
		return "", w.escapeError(requested)
	}

	// Resolve symlinks through the deepest existing ancestor so a link
	// inside the tree cannot point the operation outside it. The target
	// itself need not exist.
	// An unresolvable path (symlink cycle, unreadable ancestor) cannot be
	// proven to stay inside the root, so it is refused outright.
	canonical, err := resolveExisting(candidate)
	if err != nil {
		return "", &ToolError{
			Code:        ErrPermissionDenied,
			Message:     "Cannot resolve path '" + requested + "'",
			Suggestions: []string{"Check the path for symlink cycles", "Use relative paths within the workspace"},
			Context: map[string]any{
				"requested_path": requested,
				"workspace_root": w.root,
			},
		}
	}
	if !w.contains(canonical) {
		return "", w.escapeError(requested)
	}

	return canonical, nil
}

// ResolveForWrite applies Resolve plus the write-target extension
// blocklist.
func (w *Workspace) ResolveForWrite(requested string) (string, error) {
	target, err := w.Resolve(requested)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(target))
	if reason, blocked := w.blockedExts[ext]; blocked {
		return "", &ToolError{
			Code:        ErrPermissionDenied,
			Message:     "Cannot write " + reason + " file '" + requested + "'",
			Suggestions: []string{"Write text files only"},
			Context:     map[string]any{"file_extension": ext},
		}
	}
	return target, nil
}

// contains reports whether p is the root or beneath it.
func (w *Workspace) contains(p string) bool {
	if p == w.root {
		return true
	}
	return strings.HasPrefix(p, w.root+string(os.PathSeparator))
}

func (w *Workspace) escapeError(requested string) error {
	return &ToolError{
		Code:        ErrPermissionDenied,
		Message:     "Path '" + requested + "' is outside workspace",
		Suggestions: []string{"Use relative paths within the workspace"},
		Context: map[string]any{
			"requested_path": requested,
			"workspace_root": w.root,
		},
	}
}

// resolveExisting canonicalizes p by resolving symlinks on its deepest
// existing ancestor and re-joining the non-existent remainder.
func resolveExisting(p string) (string, error) {
	remainder := ""
	current := p
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Clean(filepath.Join(resolved, remainder)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
