package store

import (
	"context"
	"path/filepath"
	"testing"

	"ai_builder_server/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenFileAndMigrateIdempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "builder.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.migrate())
	require.NoError(t, s.Ping())
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "Todo App", "a todo list")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Todo App", got.Name)
	assert.Equal(t, "a todo list", got.Prompt)

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, p.ID), ErrProjectNotFound)
}

func TestFilesKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Ordered", "")
	require.NoError(t, err)

	for _, name := range []string{"index.html", "b.css", "a.css", "App.jsx"} {
		_, err := s.CreateFile(ctx, p.ID, name, "", "// "+name)
		require.NoError(t, err)
	}

	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, "index.html", files[0].Name)
	assert.Equal(t, "b.css", files[1].Path)
	assert.Equal(t, "a.css", files[2].Path)
	assert.Equal(t, "jsx", files[3].Type)
}

func TestCreateFileDerivesName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Names", "")
	require.NoError(t, err)

	f, err := s.CreateFile(ctx, p.ID, "", "./src/components/Navbar.jsx", "x")
	require.NoError(t, err)
	assert.Equal(t, "Navbar.jsx", f.Name)
	assert.Equal(t, "src/components/Navbar.jsx", f.Path)

	_, err = s.CreateFile(ctx, p.ID, "", "", "x")
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = s.CreateFile(ctx, "missing", "a.js", "", "x")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUpdateAndDeleteFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Edit", "")
	require.NoError(t, err)
	f, err := s.CreateFile(ctx, p.ID, "App.jsx", "", "old")
	require.NoError(t, err)

	content := "new"
	updated, err := s.UpdateFile(ctx, f.ID, types.FilePatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Content)
	assert.Equal(t, "App.jsx", updated.Name)

	path := "src/App.tsx"
	updated, err = s.UpdateFile(ctx, f.ID, types.FilePatch{Path: &path})
	require.NoError(t, err)
	assert.Equal(t, "tsx", updated.Type)

	_, err = s.UpdateFile(ctx, "missing", types.FilePatch{Content: &content})
	assert.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, s.DeleteFile(ctx, f.ID))
	assert.ErrorIs(t, s.DeleteFile(ctx, f.ID), ErrFileNotFound)
	_, err = s.GetFile(ctx, f.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFilePathsAreUniquePerProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Paths", "")
	require.NoError(t, err)
	other, err := s.CreateProject(ctx, "Other", "")
	require.NoError(t, err)

	a, err := s.CreateFile(ctx, p.ID, "", "a.js", "1")
	require.NoError(t, err)
	b, err := s.CreateFile(ctx, p.ID, "", "b.js", "2")
	require.NoError(t, err)

	_, err = s.CreateFile(ctx, p.ID, "", "./a.js", "3")
	assert.ErrorIs(t, err, ErrPathTaken)

	_, err = s.CreateFile(ctx, other.ID, "", "a.js", "4")
	assert.NoError(t, err)

	taken := "a.js"
	_, err = s.UpdateFile(ctx, b.ID, types.FilePatch{Path: &taken})
	assert.ErrorIs(t, err, ErrPathTaken)

	// Re-saving a file under its own path is fine.
	_, err = s.UpdateFile(ctx, a.ID, types.FilePatch{Path: &taken})
	assert.NoError(t, err)
}

func TestReplaceFilesUpsertsByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Upsert", "")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, p.ID, "App.jsx", "", "v1")
	require.NoError(t, err)

	n, err := s.ReplaceFiles(ctx, p.ID, []types.SourceFile{
		{Path: "App.jsx", Content: "v2"},
		{Name: "styles.css", Content: "body{}"},
		{Content: "skipped, no name"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "v2", files[0].Content)
	assert.Equal(t, "styles.css", files[1].Path)
}

func TestDeleteProjectCascadesFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Cascade", "")
	require.NoError(t, err)
	f, err := s.CreateFile(ctx, p.ID, "a.js", "", "x")
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetFile(ctx, f.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
