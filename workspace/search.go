package workspace

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// binaryExtensions are skipped during content search without opening the
// file.
var binaryExtensions = map[string]struct{}{
	".pyc": {}, ".pyo": {}, ".so": {}, ".dylib": {}, ".dll": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".pdf": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".exe": {}, ".bin": {},
	".ico": {}, ".svg": {}, ".woff": {}, ".woff2": {}, ".ttf": {},
	".eot": {}, ".otf": {}, ".mp3": {}, ".mp4": {}, ".avi": {},
	".mov": {}, ".webm": {}, ".webp": {}, ".bmp": {}, ".tiff": {},
}

// isTextFile reports whether the file looks like text: known binary
// extensions fail fast, otherwise a NUL byte in the first 1KB marks the
// file as binary.
func isTextFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, binary := binaryExtensions[ext]; binary {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sample := make([]byte, 1024)
	n, err := f.Read(sample)
	if err != nil && n == 0 {
		return false
	}
	return !bytes.ContainsRune(sample[:n], 0)
}

// SearchResult carries the rendered output plus the counters the session
// tracker records.
type SearchResult struct {
	Output       string
	Matches      int
	FilesScanned int
}

// SearchFiles scans the workspace for lines matching pattern. Hidden
// entries and binary files are skipped; scanning stops after the
// file-count cap and match results are clamped to the configured ceiling.
func (w *Workspace) SearchFiles(pattern string, extensions []string, caseSensitive bool, maxResults int) (SearchResult, error) {
	if strings.TrimSpace(pattern) == "" {
		return SearchResult{}, &ToolError{
			Code:        ErrInvalidRegex,
			Message:     "Search pattern cannot be empty",
			Suggestions: []string{"Provide a non-empty search pattern"},
			Context:     map[string]any{},
		}
	}

	if maxResults <= 0 || maxResults > w.limits.MaxSearchResults {
		maxResults = w.limits.MaxSearchResults
	}

	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return SearchResult{}, &ToolError{
			Code:    ErrInvalidRegex,
			Message: fmt.Sprintf("Invalid regex pattern '%s': %v", pattern, err),
			Suggestions: []string{
				"Use simpler text search instead of regex",
				`Escape special characters like . * + ? ^ $ { } [ ] \ | ( )`,
			},
			Context: map[string]any{"pattern": pattern, "regex_error": err.Error()},
		}
	}

	var results []string
	matches := 0
	filesScanned := 0
	capped := false

	walkErr := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if path == w.root {
			return nil
		}
		// Hidden entries are invisible to search.
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		filesScanned++
		if filesScanned > w.limits.MaxFilesPerSearch {
			capped = true
			return filepath.SkipAll
		}

		if len(extensions) > 0 {
			ext := filepath.Ext(path)
			found := false
			for _, want := range extensions {
				if ext == want {
					found = true
					break
				}
			}
			if !found {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil || info.Size() > w.limits.MaxSearchFileSize {
			return nil
		}
		if !isTextFile(path) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		rel := w.Rel(path)
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), int(w.limits.MaxSearchFileSize))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				matches++
				results = append(results, fmt.Sprintf("%s:%d: %s", rel, lineNum, strings.TrimSpace(line)))
				if matches >= maxResults {
					results = append(results, fmt.Sprintf("... (truncated at %d matches)", maxResults))
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return SearchResult{}, fmt.Errorf("search_files: %w", walkErr)
	}
	if capped {
		filesScanned = w.limits.MaxFilesPerSearch
		results = append(results, fmt.Sprintf("... (stopped after scanning %d files)", w.limits.MaxFilesPerSearch))
	}

	res := SearchResult{Matches: matches, FilesScanned: filesScanned}
	if len(results) == 0 {
		res.Output = fmt.Sprintf("No matches found for pattern %q (scanned %d files)", pattern, filesScanned)
		return res, nil
	}
	header := fmt.Sprintf("Found %d matches for pattern %q (scanned %d files):", matches, pattern, filesScanned)
	res.Output = header + "\n" + strings.Join(results, "\n")
	return res, nil
}
