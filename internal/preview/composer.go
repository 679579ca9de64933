// Package preview turns a project's source files into a single HTML
// document that runs inside a sandboxed frame, and tracks what the sandbox
// reports back.
package preview

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"ai_builder_server/internal/types"
)

// DefaultTitle is used when neither the project nor the composer has a name.
const DefaultTitle = "Preview"

// Document is one composed preview. HTML always has <html>, <head>, <body>
// and an element with id "root".
type Document struct {
	HTML        string   `json:"html"`
	Title       string   `json:"title"`
	EntryFile   string   `json:"entryFile,omitempty"`
	Synthesized bool     `json:"synthesized"`
	Repaired    bool     `json:"repaired"`
	Styles      int      `json:"styles"`
	Scripts     int      `json:"scripts"`
	Candidates  []string `json:"candidates,omitempty"`
}

// RenderContext carries everything one render needs. It is created per
// Compose call and dropped afterwards; nothing is shared between renders.
type RenderContext struct {
	Title      string
	Files      Partition
	Runtime    Runtime
	Candidates []string
	TypeScript bool
}

// Composer builds preview documents.
type Composer struct {
	runtime      Runtime
	defaultTitle string
}

// NewComposer returns a Composer loading rt's libraries. Empty runtime URLs
// fall back to DefaultRuntime.
func NewComposer(rt Runtime, defaultTitle string) *Composer {
	if strings.TrimSpace(defaultTitle) == "" {
		defaultTitle = DefaultTitle
	}
	return &Composer{runtime: rt.withDefaults(), defaultTitle: defaultTitle}
}

// Compose builds the preview document for files. It never fails: missing
// or broken pieces are replaced by a synthesized skeleton or by diagnostic
// markup, and the same input always yields the same bytes.
func (c *Composer) Compose(files FileSet, projectName string) (doc Document) {
	rc := c.newRenderContext(files, projectName)

	defer func() {
		if r := recover(); r != nil {
			doc = diagnosticDocument(rc.Title, fmt.Sprint(r))
		}
	}()

	return rc.compose()
}

func (c *Composer) newRenderContext(files FileSet, projectName string) *RenderContext {
	title := strings.TrimSpace(projectName)
	if title == "" {
		title = c.defaultTitle
	}
	rc := &RenderContext{
		Title:   title,
		Files:   files.Partition().Sanitized(),
		Runtime: c.runtime,
	}
	for _, f := range rc.Files.Scripts {
		if IsTypeScript(f) {
			rc.TypeScript = true
			break
		}
	}
	return rc
}

func (rc *RenderContext) compose() Document {
	doc := Document{
		Title:   rc.Title,
		Styles:  len(rc.Files.Styles),
		Scripts: len(rc.Files.Scripts),
	}

	var sk skeleton
	if rc.Files.HTMLEntry != nil {
		doc.EntryFile = displayName(*rc.Files.HTMLEntry)
		sk = fromEntry(rc.Files.HTMLEntry.Content, rc.Title)
		doc.Repaired = sk.repaired
	} else {
		sk = synthesize(rc.Title, "")
		doc.Synthesized = true
	}

	sk.injectHead(rc.headInjection())

	body, defaults := rc.scriptBody()
	rc.Candidates = entryCandidates(defaults)
	doc.Candidates = rc.Candidates

	var tail strings.Builder
	if !sk.hasRoot {
		tail.WriteString(rootElement)
		tail.WriteString("\n")
	}
	tail.WriteString(guardScript)
	if len(rc.Files.Scripts) > 0 || rc.Files.HTMLEntry == nil {
		tail.WriteString(mountBlock(body, rc.Candidates, rc.TypeScript))
	} else {
		tail.WriteString(readyScript)
	}
	sk.injectBody(tail.String())

	doc.HTML = sk.String()
	return doc
}

// headInjection is the runtime library references and the project styles.
func (rc *RenderContext) headInjection() string {
	css := make([]string, 0, len(rc.Files.Styles))
	for _, f := range rc.Files.Styles {
		css = append(css, f.Content)
	}

	var b strings.Builder
	b.WriteString(rc.Runtime.tags())
	b.WriteString("<style>")
	b.WriteString(escapeStyle(strings.Join(css, "\n")))
	b.WriteString("</style>\n")
	return b.String()
}

// scriptBody concatenates every script in file order as classic script
// source, and collects the default-export names found on the way. Names
// bound by react imports are declared once ahead of the first script.
func (rc *RenderContext) scriptBody() (string, []string) {
	var b strings.Builder
	var defaults []string
	var imports []importBinding
	for i, f := range rc.Files.Scripts {
		cs := classicScript(f.Content, defaultExportName+strconv.Itoa(i+1))
		defaults = append(defaults, cs.Defaults...)
		imports = append(imports, cs.Imports...)
		b.WriteString("// ")
		b.WriteString(strings.ReplaceAll(displayName(f), "\n", " "))
		b.WriteString("\n")
		b.WriteString(escapeScript(cs.Source))
		if !strings.HasSuffix(cs.Source, "\n") {
			b.WriteString("\n")
		}
	}
	body := b.String()
	return importPrelude(imports, body) + body, defaults
}

// diagnosticDocument is the last-resort output when composition itself
// failed. It still satisfies the document invariants.
func diagnosticDocument(title, message string) Document {
	body := `<div id="root"><div data-preview-error="" style="font-family:system-ui,sans-serif;margin:16px;padding:16px;border:1px solid #f5c2c7;border-radius:8px;background:#fff5f5;color:#842029;"><h3>` +
		TitlePreviewError + `</h3><pre>` + html.EscapeString(message) + `</pre></div></div>`
	sk := synthesize(title, body)
	return Document{HTML: sk.String(), Title: title, Synthesized: true}
}

// Compose is a convenience wrapper using the default runtime.
func Compose(files []types.SourceFile, projectName string) Document {
	return NewComposer(Runtime{}, "").Compose(FileSet(files), projectName)
}
