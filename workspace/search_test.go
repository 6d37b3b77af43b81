package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilesFindsMatches(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.WriteFile("main.go", "package main\n\nfunc main() {}\n")
	require.NoError(t, err)
	_, err = w.WriteFile("doc.txt", "nothing here\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("func main", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, 2, res.FilesScanned)
	assert.Contains(t, res.Output, "main.go:3: func main() {}")
	assert.Contains(t, res.Output, `Found 1 matches for pattern "func main"`)
}

func TestSearchFilesNoMatches(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.WriteFile("a.txt", "alpha\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("zebra", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Matches)
	assert.Contains(t, res.Output, "No matches found")
}

func TestSearchFilesCaseInsensitiveByDefault(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.WriteFile("a.txt", "Hello World\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("hello", nil, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)

	res, err = w.SearchFiles("hello", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Matches)
}

func TestSearchFilesEmptyPattern(t *testing.T) {
	w := newTestWorkspace(t)

	_, err := w.SearchFiles("   ", nil, true, 0)
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidRegex, te.Code)
}

func TestSearchFilesInvalidRegex(t *testing.T) {
	w := newTestWorkspace(t)

	_, err := w.SearchFiles("[unclosed", nil, true, 0)
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidRegex, te.Code)
	assert.Equal(t, "[unclosed", te.Context["pattern"])
	assert.NotEmpty(t, te.Context["regex_error"])
}

func TestSearchFilesExtensionFilter(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.WriteFile("a.go", "needle\n")
	require.NoError(t, err)
	_, err = w.WriteFile("a.txt", "needle\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("needle", []string{".go"}, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)
	assert.Contains(t, res.Output, "a.go:1")
	assert.NotContains(t, res.Output, "a.txt")
}

func TestSearchFilesSkipsHiddenEntries(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(w.Root(), ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), ".git", "config"), []byte("needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), ".hidden"), []byte("needle\n"), 0o644))
	_, err := w.WriteFile("seen.txt", "needle\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("needle", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, 1, res.FilesScanned)
}

func TestSearchFilesSkipsBinaryFiles(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), "blob.bin"), []byte("needle\x00needle"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(w.Root(), "data"), []byte("needle\x00needle"), 0o644))
	_, err := w.WriteFile("plain.txt", "needle\n")
	require.NoError(t, err)

	res, err := w.SearchFiles("needle", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)
	assert.Contains(t, res.Output, "plain.txt:1")
}

func TestSearchFilesResultCap(t *testing.T) {
	w, err := New(t.TempDir(), Limits{MaxSearchResults: 5})
	require.NoError(t, err)
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "needle")
	}
	_, err = w.WriteFile("many.txt", strings.Join(lines, "\n"))
	require.NoError(t, err)

	res, err := w.SearchFiles("needle", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Matches)
	assert.Contains(t, res.Output, "... (truncated at 5 matches)")
}

func TestSearchFilesFileCountCap(t *testing.T) {
	w, err := New(t.TempDir(), Limits{MaxFilesPerSearch: 3})
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err = w.WriteFile(fmt.Sprintf("f%d.txt", i), "nothing\n")
		require.NoError(t, err)
	}

	res, err := w.SearchFiles("needle", nil, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesScanned)
	assert.Contains(t, res.Output, "... (stopped after scanning 3 files)")
}
