package export

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ai_builder_server/internal/types"
	"ai_builder_server/internal/utils"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFileSize is the largest file LoadDir reads (1 MB).
const MaxFileSize int64 = 1 << 20

// DefaultExcludes are directory names LoadDir never descends into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	".idea",
	".vscode",
	".DS_Store",
}

// LoadDir reads the project files below root in lexical order, the order the
// composer concatenates scripts in. Empty include means everything; exclude
// wins over include. Binary and oversized files are skipped.
func LoadDir(root string, include, exclude []string) ([]types.SourceFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []types.SourceFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if d.IsDir() {
			if p != root && isDefaultExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isDefaultExcluded(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if len(include) > 0 && !MatchesAny(rel, include) {
			return nil
		}
		if MatchesAny(rel, exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSize {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return nil
		}

		files = append(files, types.SourceFile{
			Name:    path.Base(rel),
			Path:    rel,
			Type:    utils.DetermineFileType(rel),
			Content: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isDefaultExcluded(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether relPath, or its base name, matches one of the
// doublestar patterns.
func MatchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := path.Base(normalized)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
