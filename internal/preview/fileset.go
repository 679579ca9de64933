package preview

import (
	"path"
	"strings"

	"ai_builder_server/internal/sanitizer"
	"ai_builder_server/internal/types"
)

// FileSet is an ordered, read-only snapshot of the files of one render.
type FileSet []types.SourceFile

// Kind classifies a file by its name suffix.
type Kind int

const (
	KindOther Kind = iota
	KindHTML
	KindStyle
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindStyle:
		return "style"
	case KindScript:
		return "script"
	default:
		return "other"
	}
}

// KindOf returns the kind of f, judged by Name and falling back to Path.
func KindOf(f types.SourceFile) Kind {
	name := f.Name
	if name == "" {
		name = f.Path
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".html":
		return KindHTML
	case ".css":
		return KindStyle
	case ".js", ".jsx", ".ts", ".tsx":
		return KindScript
	default:
		return KindOther
	}
}

// IsTypeScript reports whether f needs the TypeScript transform.
func IsTypeScript(f types.SourceFile) bool {
	name := f.Name
	if name == "" {
		name = f.Path
	}
	ext := strings.ToLower(path.Ext(name))
	return ext == ".ts" || ext == ".tsx"
}

// Partition is a FileSet split by kind. HTMLEntry is nil when the set has
// no .html file.
type Partition struct {
	HTMLEntry *types.SourceFile
	Styles    []types.SourceFile
	Scripts   []types.SourceFile
}

// Partition splits files into the first .html file, every style file and
// every script file, each in file-list order. Other files are ignored.
func (fs FileSet) Partition() Partition {
	var p Partition
	for i := range fs {
		switch KindOf(fs[i]) {
		case KindHTML:
			if p.HTMLEntry == nil {
				entry := fs[i]
				p.HTMLEntry = &entry
			}
		case KindStyle:
			p.Styles = append(p.Styles, fs[i])
		case KindScript:
			p.Scripts = append(p.Scripts, fs[i])
		}
	}
	return p
}

// Sanitized returns a copy of p with every file's content unwrapped from
// Markdown fences. p itself is left untouched.
func (p Partition) Sanitized() Partition {
	out := Partition{
		Styles:  sanitizeAll(p.Styles),
		Scripts: sanitizeAll(p.Scripts),
	}
	if p.HTMLEntry != nil {
		entry := *p.HTMLEntry
		entry.Content = sanitizer.Sanitize(entry.Content)
		out.HTMLEntry = &entry
	}
	return out
}

func sanitizeAll(files []types.SourceFile) []types.SourceFile {
	if files == nil {
		return nil
	}
	out := make([]types.SourceFile, len(files))
	for i, f := range files {
		f.Content = sanitizer.Sanitize(f.Content)
		out[i] = f
	}
	return out
}

// displayName is the label used for a file in generated markup.
func displayName(f types.SourceFile) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}
