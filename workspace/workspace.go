package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Limits bounds the resource usage of workspace operations.
type Limits struct {
	MaxReadSize       int64 // bytes, read_file cap
	MaxWriteSize      int   // bytes, write_file cap
	MaxSearchFileSize int64 // bytes, per-file cap during search
	MaxFilesPerSearch int   // files scanned per search
	MaxSearchResults  int   // matches returned per search
}

// DefaultLimits returns the standard operation limits.
func DefaultLimits() Limits {
	return Limits{
		MaxReadSize:       100 * 1024,
		MaxWriteSize:      1024 * 1024,
		MaxSearchFileSize: 1024 * 1024,
		MaxFilesPerSearch: 1000,
		MaxSearchResults:  100,
	}
}

// fill replaces zero values with defaults.
func (l Limits) fill() Limits {
	d := DefaultLimits()
	if l.MaxReadSize == 0 {
		l.MaxReadSize = d.MaxReadSize
	}
	if l.MaxWriteSize == 0 {
		l.MaxWriteSize = d.MaxWriteSize
	}
	if l.MaxSearchFileSize == 0 {
		l.MaxSearchFileSize = d.MaxSearchFileSize
	}
	if l.MaxFilesPerSearch == 0 {
		l.MaxFilesPerSearch = d.MaxFilesPerSearch
	}
	if l.MaxSearchResults == 0 {
		l.MaxSearchResults = d.MaxSearchResults
	}
	return l
}

// blockedWriteExtensions maps a blocked extension to the reason it is
// blocked. Kept as data so tests can inject synthetic entries.
var blockedWriteExtensions = map[string]string{
	".exe": "executable",
	".bat": "batch script",
	".sh":  "shell script",
	".cmd": "command script",
	".scr": "screensaver executable",
	".com": "DOS executable",
}

// Workspace is the confined directory tree all tool operations run against.
// The root is absolute, canonical, and immutable for the lifetime of an
// agent instance.
type Workspace struct {
	root        string
	limits      Limits
	blockedExts map[string]string
}

// New creates a Workspace rooted at dir, creating the directory if needed.
// The root is canonicalized once; all later guard checks compare against it.
func New(dir string, limits Limits) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}

	return &Workspace{
		root:        canonical,
		limits:      limits.fill(),
		blockedExts: blockedWriteExtensions,
	}, nil
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Limits returns the configured operation limits.
func (w *Workspace) Limits() Limits {
	return w.limits
}

// Rel returns path relative to the workspace root, falling back to the
// input when it is not beneath the root.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}
