package preview

import (
	"html"
	"strings"
)

// Runtime lists the browser libraries a composed document loads to run
// JSX-style components: the UI runtime, its DOM renderer and an in-browser
// transpiler.
type Runtime struct {
	ReactURL    string
	ReactDOMURL string
	BabelURL    string
}

// DefaultRuntime points at the UMD builds on unpkg.
func DefaultRuntime() Runtime {
	return Runtime{
		ReactURL:    "https://unpkg.com/react@18/umd/react.development.js",
		ReactDOMURL: "https://unpkg.com/react-dom@18/umd/react-dom.development.js",
		BabelURL:    "https://unpkg.com/@babel/standalone/babel.min.js",
	}
}

// withDefaults fills empty URLs from DefaultRuntime.
func (r Runtime) withDefaults() Runtime {
	d := DefaultRuntime()
	if r.ReactURL == "" {
		r.ReactURL = d.ReactURL
	}
	if r.ReactDOMURL == "" {
		r.ReactDOMURL = d.ReactDOMURL
	}
	if r.BabelURL == "" {
		r.BabelURL = d.BabelURL
	}
	return r
}

// tags renders the <script src> references in load order.
func (r Runtime) tags() string {
	var b strings.Builder
	for _, src := range []string{r.ReactURL, r.ReactDOMURL} {
		b.WriteString(`<script crossorigin src="`)
		b.WriteString(html.EscapeString(src))
		b.WriteString("\"></script>\n")
	}
	b.WriteString(`<script src="`)
	b.WriteString(html.EscapeString(r.BabelURL))
	b.WriteString("\"></script>\n")
	return b.String()
}
