package pathsafety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/filequery/internal/query"
)

func TestRootConfinedAllowsPathsInsideRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.json"), []byte("{}"), 0o644))

	r := RootConfined{}
	resolved, err := r.Resolve("a.json", root, false, OperationRead)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.json"), resolved)
}

func TestRootConfinedRejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()
	r := RootConfined{}
	_, err := r.Resolve("../outside.json", root, false, OperationRead)
	require.Error(t, err)
	qe, ok := query.AsQueryError(err)
	require.True(t, ok)
	assert.Equal(t, query.AccessDenied, qe.Kind)
}

func TestRootConfinedAllowsNewFileUnderRoot(t *testing.T) {
	root := t.TempDir()
	r := RootConfined{}
	resolved, err := r.Resolve("nested/new.json", root, false, OperationWrite)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "nested", "new.json"), resolved)
}

func TestRootConfinedRejectsSymlinkEscapingRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte("{}"), 0o644))

	link := filepath.Join(root, "link.json")
	if err := os.Symlink(filepath.Join(outside, "secret.json"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := RootConfined{}
	_, err := r.Resolve("link.json", root, false, OperationRead)
	require.Error(t, err)
	qe, ok := query.AsQueryError(err)
	require.True(t, ok)
	assert.Equal(t, query.AccessDenied, qe.Kind)
}

func TestRootConfinedFollowSymlinksBypassesCheck(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte("{}"), 0o644))

	link := filepath.Join(root, "link.json")
	if err := os.Symlink(filepath.Join(outside, "secret.json"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := RootConfined{}
	resolved, err := r.Resolve("link.json", root, true, OperationRead)
	require.NoError(t, err)
	assert.Equal(t, link, resolved)
}
