package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func paths(t *testing.T, root string, include, exclude []string) []string {
	t.Helper()
	files, err := LoadDir(root, include, exclude)
	require.NoError(t, err)
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":              "<p></p>",
		"src/App.jsx":             "function App(){}",
		"src/components/Nav.jsx":  "function Nav(){}",
		"styles.css":              "a{}",
		"node_modules/react/x.js": "nope",
		"logo.png":                "\x89PNG\x00\x00",
		"notes/todo.md":           "# todo",
	})

	assert.Equal(t,
		[]string{"index.html", "notes/todo.md", "src/App.jsx", "src/components/Nav.jsx", "styles.css"},
		paths(t, root, nil, nil))

	assert.Equal(t,
		[]string{"src/App.jsx", "src/components/Nav.jsx"},
		paths(t, root, []string{"src/**/*.jsx"}, nil))

	assert.Equal(t,
		[]string{"index.html", "src/App.jsx", "styles.css"},
		paths(t, root, nil, []string{"notes/**", "Nav.jsx"}))

	files, err := LoadDir(root, []string{"*.css"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "styles.css", files[0].Name)
	assert.Equal(t, "css", files[0].Type)
	assert.Equal(t, "a{}", files[0].Content)
}

func TestLoadDirRejectsMissingRoot(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.Error(t, err)
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, MatchesAny("src/a/b.tsx", []string{"**/*.tsx"}))
	assert.True(t, MatchesAny("src/a/b.tsx", []string{"b.tsx"}))
	assert.False(t, MatchesAny("src/a/b.tsx", []string{"*.css"}))
	assert.False(t, MatchesAny("src/a/b.tsx", nil))
}
