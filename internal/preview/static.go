package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"ai_builder_server/internal/sanitizer"
	"ai_builder_server/internal/utils"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"go.uber.org/zap"
)

// StaticRenderer builds the non-executing structural preview served when the
// sandbox cannot be initialized: every file listed with its sanitized source
// as a highlighted code block, and no script elements at all.
type StaticRenderer struct {
	md   goldmark.Markdown
	tmpl *template.Template
	min  *minify.M
	log  *zap.Logger
}

type staticFile struct {
	Path  string
	Type  string
	Kind  string
	Lines int
	Code  template.HTML
}

type staticPage struct {
	Title string
	Files []staticFile
}

// NewStaticRenderer returns a renderer using the github highlighting style.
func NewStaticRenderer(log *zap.Logger) *StaticRenderer {
	if log == nil {
		log = zap.NewNop()
	}

	// Raw HTML stays disabled: file contents only ever appear inside code
	// blocks, escaped.
	md := goldmark.New(
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
	)

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &mhtml.Minifier{KeepDocumentTags: true, KeepEndTags: true, KeepQuotes: true})

	return &StaticRenderer{
		md:   md,
		tmpl: template.Must(template.New("static").Parse(staticTemplate)),
		min:  m,
		log:  log.Named("static-preview"),
	}
}

// Render builds the structural preview of files. The result is minified when
// the minifier accepts it and returned as rendered otherwise.
func (r *StaticRenderer) Render(files FileSet, projectName string) (string, error) {
	title := strings.TrimSpace(projectName)
	if title == "" {
		title = DefaultTitle
	}

	page := staticPage{Title: title}
	for _, f := range files {
		content := sanitizer.Sanitize(f.Content)
		lang := f.Type
		if lang == "" {
			lang = sanitizer.Language(f.Content)
		}
		if lang == "" {
			lang = utils.DetermineFileType(displayName(f))
		}

		var buf bytes.Buffer
		if err := r.md.Convert([]byte(codeBlock(lang, content)), &buf); err != nil {
			return "", fmt.Errorf("rendering %s: %w", displayName(f), err)
		}
		page.Files = append(page.Files, staticFile{
			Path:  displayName(f),
			Type:  lang,
			Kind:  KindOf(f).String(),
			Lines: lineCount(content),
			Code:  template.HTML(buf.String()),
		})
	}

	var out bytes.Buffer
	if err := r.tmpl.Execute(&out, page); err != nil {
		return "", fmt.Errorf("executing static template: %w", err)
	}

	minified, err := r.min.Bytes("text/html", out.Bytes())
	if err != nil {
		r.log.Warn("minify failed, using original", zap.Error(err))
		return out.String(), nil
	}
	return string(minified), nil
}

// codeBlock wraps content in a fenced block whose fence is longer than any
// backtick run inside it, so the content can never close the block early.
func codeBlock(lang, content string) string {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))

	var b strings.Builder
	b.WriteString(fence)
	if fields := strings.Fields(strings.ReplaceAll(lang, "`", "")); len(fields) > 0 {
		b.WriteString(fields[0])
	}
	b.WriteString("\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)
	b.WriteString("\n")
	return b.String()
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

const staticTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; padding: 24px; background: #f6f8fa; color: #1f2328; }
h1 { font-size: 20px; margin: 0 0 16px; }
.notice { margin: 0 0 24px; color: #59636e; }
section { background: #fff; border: 1px solid #d1d9e0; border-radius: 8px; margin: 0 0 16px; overflow: hidden; }
header { padding: 8px 12px; border-bottom: 1px solid #d1d9e0; font-size: 13px; display: flex; gap: 12px; }
header code { font-weight: 600; }
header span { color: #59636e; }
pre { margin: 0; padding: 12px; overflow-x: auto; font-size: 13px; }
</style>
</head>
<body>
<div id="root">
<h1>{{.Title}}</h1>
<p class="notice">Static preview: the live sandbox could not be started, so the project files are shown without running them.</p>
{{range .Files}}<section>
<header><code>{{.Path}}</code><span>{{.Type}}</span><span>{{.Kind}}</span><span>{{.Lines}} lines</span></header>
{{.Code}}
</section>
{{else}}<p>This project has no files yet.</p>
{{end}}</div>
</body>
</html>
`
