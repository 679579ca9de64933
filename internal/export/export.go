// Package export writes a project's files to disk together with the composed
// preview document, and loads file sets back from directories.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"ai_builder_server/internal/preview"
	"ai_builder_server/internal/sanitizer"
	"ai_builder_server/internal/types"

	"go.uber.org/zap"
)

// PreviewFile is the name of the composed document inside an export.
const PreviewFile = "preview.html"

// ErrUnsafePath is returned for file paths that would leave the export directory.
var ErrUnsafePath = errors.New("file path escapes export directory")

// ErrReservedPath is returned for a project file that would overwrite the
// composed preview.
var ErrReservedPath = errors.New("file path is reserved for the composed preview")

type Exporter struct {
	composer *preview.Composer
	// Hook, when set, is run inside the export directory after all files
	// were written, e.g. a static site publisher.
	Hook []string
	log  *zap.Logger
}

func NewExporter(composer *preview.Composer, log *zap.Logger) *Exporter {
	if composer == nil {
		composer = preview.NewComposer(preview.Runtime{}, "")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{composer: composer, log: log.Named("export")}
}

// Export writes every file under dir at its path with fences stripped, then
// the composed preview as PreviewFile. It returns the written paths relative
// to dir, preview last. Paths are all validated before anything is written.
func (e *Exporter) Export(ctx context.Context, dir, projectName string, files []types.SourceFile) ([]string, error) {
	targets := make([]string, len(files))
	for i, f := range files {
		rel, err := SafePath(f.Path, f.Name)
		if err != nil {
			return nil, err
		}
		// Case-insensitive file systems would map any casing onto the preview.
		if strings.EqualFold(rel, PreviewFile) {
			return nil, fmt.Errorf("%w: %s", ErrReservedPath, rel)
		}
		targets[i] = rel
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	written := make([]string, 0, len(files)+1)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := writeFile(dir, targets[i], sanitizer.Sanitize(f.Content)); err != nil {
			return written, err
		}
		written = append(written, targets[i])
	}

	doc := e.composer.Compose(preview.FileSet(files), projectName)
	if err := writeFile(dir, PreviewFile, doc.HTML); err != nil {
		return written, err
	}
	written = append(written, PreviewFile)
	e.log.Info("exported project", zap.String("dir", dir), zap.Int("files", len(written)))

	if len(e.Hook) > 0 {
		if err := e.runHook(ctx, dir); err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeFile(dir, rel, content string) error {
	target := filepath.Join(dir, filepath.FromSlash(rel))
	// Ensure subdirectories exist (if any specified in filename like 'js/app.js')
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create subdirectories for %s: %w", rel, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", rel, err)
	}
	return nil
}

func (e *Exporter) runHook(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, e.Hook[0], e.Hook[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.Info("running export hook", zap.String("cmd", cmd.String()))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("export hook failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		e.log.Info("export hook output", zap.String("stdout", out))
	}
	return nil
}

// SafePath returns the slash-separated relative path a file is written to,
// falling back to name when p is empty. Absolute paths and paths climbing
// out through ".." are refused.
func SafePath(p, name string) (string, error) {
	raw := strings.TrimSpace(p)
	if raw == "" {
		raw = strings.TrimSpace(name)
	}
	raw = strings.ReplaceAll(raw, `\`, "/")
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if strings.HasPrefix(raw, "/") || filepath.VolumeName(raw) != "" || strings.Contains(raw, ":") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}
	clean := path.Clean(raw)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}
	return clean, nil
}
