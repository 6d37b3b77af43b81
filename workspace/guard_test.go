package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(t.TempDir(), Limits{})
	require.NoError(t, err)
	return w
}

func TestResolveRelativePathInsideRoot(t *testing.T) {
	w := newTestWorkspace(t)

	got, err := w.Resolve("sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root(), "sub", "file.txt"), got)
}

func TestResolveRejectsTraversal(t *testing.T) {
	w := newTestWorkspace(t)

	cases := []string{
		"../outside.txt",
		"../../etc/passwd",
		"sub/../../outside.txt",
	}
	for _, path := range cases {
		_, err := w.Resolve(path)
		te, ok := AsToolError(err)
		require.True(t, ok, "expected ToolError for %q", path)
		assert.Equal(t, ErrPermissionDenied, te.Code)
		assert.Equal(t, path, te.Context["requested_path"])
	}
}

func TestResolveRejectsAbsoluteOutside(t *testing.T) {
	w := newTestWorkspace(t)

	_, err := w.Resolve("/etc/passwd")
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrPermissionDenied, te.Code)
}

func TestResolveAllowsRootItself(t *testing.T) {
	w := newTestWorkspace(t)

	got, err := w.Resolve(".")
	require.NoError(t, err)
	assert.Equal(t, w.Root(), got)
}

func TestResolveRejectsTraversalLandingOnRoot(t *testing.T) {
	w := newTestWorkspace(t)

	// "../<root-name>" cleans back to the root but carries a traversal
	// sequence, so it is still refused.
	requested := filepath.Join("..", filepath.Base(w.Root()))
	_, err := w.Resolve(requested)
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrPermissionDenied, te.Code)
}

func TestResolveAllowsNonexistentTarget(t *testing.T) {
	w := newTestWorkspace(t)

	got, err := w.Resolve("new/deep/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root(), "new", "deep", "file.txt"), got)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	w := newTestWorkspace(t)

	outside := t.TempDir()
	link := filepath.Join(w.Root(), "escape")
	require.NoError(t, os.Symlink(outside, link))

	_, err := w.Resolve("escape/secret.txt")
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrPermissionDenied, te.Code)
}

func TestResolveRejectsSymlinkCycle(t *testing.T) {
	w := newTestWorkspace(t)

	require.NoError(t, os.Symlink(filepath.Join(w.Root(), "b"), filepath.Join(w.Root(), "a")))
	require.NoError(t, os.Symlink(filepath.Join(w.Root(), "a"), filepath.Join(w.Root(), "b")))

	_, err := w.Resolve("a/file.txt")
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, ErrPermissionDenied, te.Code)
}

func TestResolveFollowsInternalSymlink(t *testing.T) {
	w := newTestWorkspace(t)

	real := filepath.Join(w.Root(), "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	require.NoError(t, os.Symlink(real, filepath.Join(w.Root(), "alias")))

	got, err := w.Resolve("alias/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(real, "file.txt"), got)
}

func TestResolveForWriteBlocksExecutableExtensions(t *testing.T) {
	w := newTestWorkspace(t)

	for _, name := range []string{"run.exe", "run.bat", "run.sh", "run.cmd", "run.scr", "run.com", "RUN.EXE"} {
		_, err := w.ResolveForWrite(name)
		te, ok := AsToolError(err)
		require.True(t, ok, "expected ToolError for %q", name)
		assert.Equal(t, ErrPermissionDenied, te.Code)
		assert.Contains(t, te.Context, "file_extension")
	}
}

func TestResolveForWriteAllowsTextFiles(t *testing.T) {
	w := newTestWorkspace(t)

	got, err := w.ResolveForWrite("notes.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root(), "notes.md"), got)
}
