package export

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"ai_builder_server/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	files := []types.SourceFile{
		{Name: "App.jsx", Path: "src/App.jsx", Content: "```jsx\nfunction App(){return <p>hi</p>;}\n```"},
		{Name: "styles.css", Content: "body{margin:0}"},
	}

	written, err := NewExporter(nil, nil).Export(context.Background(), dir, "Demo", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.jsx", "styles.css", PreviewFile}, written)

	app, err := os.ReadFile(filepath.Join(dir, "src", "App.jsx"))
	require.NoError(t, err)
	assert.Equal(t, "function App(){return <p>hi</p>;}\n", string(app))

	doc, err := os.ReadFile(filepath.Join(dir, PreviewFile))
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<div id="root"></div>`)
	assert.Contains(t, string(doc), "<title>Demo</title>")
	assert.Contains(t, string(doc), "body{margin:0}")
}

func TestExportRefusesEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	files := []types.SourceFile{
		{Path: "ok.js", Content: "x"},
		{Path: "../../etc/passwd", Content: "root"},
	}

	_, err := NewExporter(nil, nil).Export(context.Background(), dir, "", files)
	require.ErrorIs(t, err, ErrUnsafePath)

	_, statErr := os.Stat(filepath.Join(dir, "ok.js"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written when a path is refused")
}

func TestExportReservesPreviewFile(t *testing.T) {
	for _, p := range []string{"preview.html", "Preview.HTML", "./PREVIEW.html"} {
		dir := t.TempDir()
		_, err := NewExporter(nil, nil).Export(context.Background(), dir, "", []types.SourceFile{{Path: "a.js"}, {Path: p}})
		require.ErrorIs(t, err, ErrReservedPath, p)

		_, statErr := os.Stat(filepath.Join(dir, "a.js"))
		assert.True(t, os.IsNotExist(statErr), p)
	}
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	written, err := NewExporter(nil, nil).Export(ctx, t.TempDir(), "", []types.SourceFile{{Path: "a.js"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, written)
}

func TestExportRunsHook(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hook test uses sh")
	}
	dir := t.TempDir()
	e := NewExporter(nil, nil)
	e.Hook = []string{"sh", "-c", "ls > listing.txt"}

	_, err := e.Export(context.Background(), dir, "", []types.SourceFile{{Path: "a.js", Content: "1"}})
	require.NoError(t, err)

	listing, err := os.ReadFile(filepath.Join(dir, "listing.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(listing), "a.js")
	assert.Contains(t, string(listing), PreviewFile)

	e.Hook = []string{"sh", "-c", "echo broken >&2; exit 3"}
	_, err = e.Export(context.Background(), dir, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		path, name string
		want       string
		wantErr    bool
	}{
		{path: "src/App.jsx", want: "src/App.jsx"},
		{path: "./src//App.jsx", want: "src/App.jsx"},
		{path: "", name: "index.html", want: "index.html"},
		{path: `src\win\a.js`, want: "src/win/a.js"},
		{path: "a/../b.js", want: "b.js"},
		{path: "../b.js", wantErr: true},
		{path: "a/../../b.js", wantErr: true},
		{path: "/etc/passwd", wantErr: true},
		{path: "C:/x.js", wantErr: true},
		{path: "..", wantErr: true},
		{path: " ", name: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SafePath(tt.path, tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsafePath, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got)
	}
}
