package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/filequery/internal/commit"
	"github.com/oakwood-commons/filequery/internal/format"
	"github.com/oakwood-commons/filequery/internal/pathsafety"
)

func newTestDeps(root string) Deps {
	return Deps{
		Tracker:     commit.NewReadTracker(),
		Resolver:    pathsafety.RootConfined{},
		ProjectRoot: root,
	}
}

func TestHandleReadRendersJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.json"), []byte(`{"name":"ada","age":36}`), 0o644))

	resp, err := Handle(context.Background(), Request{
		FilePath:     "data.json",
		Query:        ".name",
		OutputFormat: format.OutputRaw,
	}, newTestDeps(root))
	require.NoError(t, err)
	assert.Equal(t, "ada", resp.Text)
}

func TestHandleReadMarksFileAsRead(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.json"), []byte(`{"n":1}`), 0o644))
	deps := newTestDeps(root)

	_, err := Handle(context.Background(), Request{
		FilePath:     "data.json",
		Query:        ".n",
		OutputFormat: format.OutputRaw,
	}, deps)
	require.NoError(t, err)
	assert.True(t, deps.Tracker.HasRead(filepath.Join(root, "data.json")))
}

func TestHandleWriteRequiresInPlace(t *testing.T) {
	root := t.TempDir()
	_, err := Handle(context.Background(), Request{
		FilePath:  "data.json",
		Query:     `.n = 1`,
		Operation: OperationWrite,
	}, newTestDeps(root))
	require.Error(t, err)
}

func TestHandleWriteRequiresPriorRead(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.json"), []byte(`{"n":1}`), 0o644))

	_, err := Handle(context.Background(), Request{
		FilePath:  "data.json",
		Query:     `.n = 2`,
		Operation: OperationWrite,
		InPlace:   true,
	}, newTestDeps(root))
	require.Error(t, err)
}

func TestHandleReadThenWriteSucceeds(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"n":1}`), 0o644))
	deps := newTestDeps(root)

	_, err := Handle(context.Background(), Request{
		FilePath:     "data.json",
		Query:        ".n",
		OutputFormat: format.OutputRaw,
	}, deps)
	require.NoError(t, err)

	resp, err := Handle(context.Background(), Request{
		FilePath:  "data.json",
		Query:     `.n = 2`,
		Operation: OperationWrite,
		InPlace:   true,
		Backup:    true,
	}, deps)
	require.NoError(t, err)
	require.NotNil(t, resp.Write)
	assert.True(t, resp.Write.Modified)

	updated, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(updated), `"n": 2`)
	assert.FileExists(t, path+".bak")
}

func TestHandleRejectsPathOutsideRoot(t *testing.T) {
	root := t.TempDir()
	_, err := Handle(context.Background(), Request{
		FilePath:     "../escape.json",
		Query:        ".",
		OutputFormat: format.OutputRaw,
	}, newTestDeps(root))
	require.Error(t, err)
}

func TestHandleWriteNewFileDetectsFormatByExtension(t *testing.T) {
	root := t.TempDir()
	deps := newTestDeps(root)

	resp, err := Handle(context.Background(), Request{
		FilePath:  "new.yaml",
		Query:     `.name = "filequery"`,
		Operation: OperationWrite,
		InPlace:   true,
	}, deps)
	require.NoError(t, err)
	require.NotNil(t, resp.Write)

	data, err := os.ReadFile(filepath.Join(root, "new.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: filequery")
}

func TestFormatErrorRendersToolPrefix(t *testing.T) {
	assert.Equal(t, "Error: jq - boom", FormatError(format.JSON, assertErr{"boom"}))
	assert.Equal(t, "Error: yq - boom", FormatError(format.YAML, assertErr{"boom"}))
	assert.Equal(t, "Error: tomlq - boom", FormatError(format.TOML, assertErr{"boom"}))
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
