package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// ReadFile returns the contents of path, truncated to maxChars with an
// explicit marker when clipped. Files larger than the read cap fail whole:
// no partial content is ever returned for an oversized file.
func (w *Workspace) ReadFile(path string, maxChars int) (string, error) {
	target, err := w.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return "", &ToolError{
			Code:    ErrFileNotFound,
			Message: fmt.Sprintf("File '%s' does not exist", path),
			Suggestions: []string{
				"Check the file path spelling",
				"Use list_files to see available files",
				"Create the file first with write_file",
			},
			Context: map[string]any{"requested_path": path},
		}
	}
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	if info.IsDir() {
		return "", &ToolError{
			Code:        ErrInvalidPath,
			Message:     fmt.Sprintf("'%s' is not a file", path),
			Suggestions: []string{"Use list_files to see file types"},
			Context:     map[string]any{"path_type": "directory"},
		}
	}
	if info.Size() > w.limits.MaxReadSize {
		return "", &ToolError{
			Code:    ErrFileTooLarge,
			Message: fmt.Sprintf("File '%s' is too large to read (%d bytes)", path, info.Size()),
			Suggestions: []string{
				fmt.Sprintf("File exceeds %d byte limit", w.limits.MaxReadSize),
				"Use search_files to find specific content",
			},
			Context: map[string]any{"file_size": info.Size(), "limit": w.limits.MaxReadSize},
		}
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", &ToolError{
			Code:        ErrInvalidPath,
			Message:     fmt.Sprintf("File '%s' is not a text file", path),
			Suggestions: []string{"Only text files can be read"},
			Context:     map[string]any{"file_path": path},
		}
	}

	content := string(data)
	if maxChars > 0 && utf8.RuneCountInString(content) > maxChars {
		// Clip on a rune boundary; a byte slice could split a multibyte
		// character and hand back invalid UTF-8.
		runes := []rune(content)
		content = string(runes[:maxChars]) + fmt.Sprintf("\n[... truncated to %d chars]", maxChars)
	}
	return content, nil
}

// WriteFile creates or overwrites path with content. The write is atomic
// from the caller's perspective: on any failure the pre-existing file, if
// any, is left untouched.
func (w *Workspace) WriteFile(path string, content string) (string, error) {
	if len(content) > w.limits.MaxWriteSize {
		return "", &ToolError{
			Code:    ErrFileTooLarge,
			Message: fmt.Sprintf("Content too large (%d chars)", len(content)),
			Suggestions: []string{
				"Write smaller files",
				"Split content into multiple files",
			},
			Context: map[string]any{"content_size": len(content), "limit": w.limits.MaxWriteSize},
		}
	}

	target, err := w.ResolveForWrite(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", w.writeDenied(path, target)
	}

	// Write to a temp file in the same directory, then rename over the
	// target so a failure never leaves a partially-written file.
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp*")
	if err != nil {
		return "", w.writeDenied(path, target)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", w.writeDenied(path, target)
	}

	return fmt.Sprintf("Successfully wrote %d characters to %s", len(content), path), nil
}

func (w *Workspace) writeDenied(path, target string) error {
	return &ToolError{
		Code:        ErrPermissionDenied,
		Message:     fmt.Sprintf("Permission denied writing to '%s'", path),
		Suggestions: []string{"Check file permissions", "Try a different location"},
		Context:     map[string]any{"target_path": target},
	}
}

// ListFiles returns a directory listing with sizes, one entry per line,
// sorted by name.
func (w *Workspace) ListFiles(directory string) (string, error) {
	target, err := w.Resolve(directory)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return "", &ToolError{
			Code:        ErrFileNotFound,
			Message:     fmt.Sprintf("Directory '%s' does not exist", directory),
			Suggestions: []string{"Use create_directory to create it"},
			Context:     map[string]any{"requested_path": directory},
		}
	}
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}
	if !info.IsDir() {
		return "", &ToolError{
			Code:        ErrInvalidPath,
			Message:     fmt.Sprintf("'%s' is not a directory", directory),
			Suggestions: []string{"Use read_file for files"},
			Context:     map[string]any{"requested_path": directory},
		}
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var lines []string
	for _, entry := range entries {
		var size int64
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		lines = append(lines, fmt.Sprintf("- %s: file_size=%d bytes, is_dir=%v", entry.Name(), size, entry.IsDir()))
	}
	if len(lines) == 0 {
		return "Directory is empty", nil
	}
	return strings.Join(lines, "\n"), nil
}

// CreateDirectory creates a directory at path. Existing directories are
// reported, not errored; a non-directory occupying the path is an error.
func (w *Workspace) CreateDirectory(path string, recursive bool) (string, error) {
	target, err := w.Resolve(path)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return fmt.Sprintf("Directory '%s' already exists", path), nil
		}
		return "", &ToolError{
			Code:        ErrInvalidPath,
			Message:     fmt.Sprintf("'%s' exists but is not a directory", path),
			Suggestions: []string{"Choose a different path"},
			Context:     map[string]any{"requested_path": path},
		}
	}

	if recursive {
		err = os.MkdirAll(target, 0o755)
	} else {
		err = os.Mkdir(target, 0o755)
	}
	if err != nil {
		return "", &ToolError{
			Code:        ErrPermissionDenied,
			Message:     fmt.Sprintf("Cannot create directory '%s'", path),
			Suggestions: []string{"Set recursive=true to create parent directories"},
			Context:     map[string]any{"requested_path": path},
		}
	}
	return fmt.Sprintf("Successfully created directory '%s'", path), nil
}
