package preview

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	htmllex "github.com/tdewolff/parse/v2/html"
)

const rootElement = `<div id="root"></div>`

var (
	doctypeRe   = regexp.MustCompile(`(?i)<!doctype[^>]*>`)
	htmlOpenRe  = regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`)
	htmlCloseRe = regexp.MustCompile(`(?i)</html\s*>`)
	headOpenRe  = regexp.MustCompile(`(?i)<head(?:\s[^>]*)?>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	bodyOpenRe  = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	titleRe     = regexp.MustCompile(`(?i)<title[\s>]`)
)

// Elements whose contents a browser keeps as text even though the lexer
// tokenizes them as markup.
var inertElements = map[string]bool{"noscript": true, "noembed": true, "noframes": true}

// Elements the lexer itself reads as raw text up to their end tag.
var rawTextElements = map[string]bool{
	"script": true, "style": true, "title": true, "textarea": true, "xmp": true, "iframe": true,
}

// scanMarkup walks markup with the HTML lexer. It reports whether a real
// start tag carries id="root", ignoring comments, raw text and template
// contents, and returns the markup that closes whatever is still open at
// the end: a start tag, a comment, a raw text element or a template.
func scanMarkup(markup string) (hasRoot bool, closing string) {
	l := htmllex.NewLexer(parse.NewInputString(markup))
	templates := 0
	inert, raw := "", ""
	inTag, escaped, seenID := false, false, false
	var quote byte
	comment := ""
	for {
		tt, data := l.Next()
		switch tt {
		case htmllex.ErrorToken:
			var b strings.Builder
			b.WriteString(comment)
			if inTag {
				if quote != 0 {
					b.WriteByte(quote)
				}
				b.WriteString(">")
			}
			if raw != "" {
				if escaped {
					// An open <!-- inside a script would swallow the end tag.
					b.WriteString("-->")
				}
				b.WriteString("</" + raw + ">")
			}
			if inert != "" {
				b.WriteString("</" + inert + ">")
			}
			b.WriteString(strings.Repeat("</template>", templates))
			return hasRoot, b.String()
		case htmllex.CommentToken, htmllex.DoctypeToken:
			if bytes.HasPrefix(data, []byte("<!--")) && !bytes.HasSuffix(data, []byte("-->")) && !bytes.HasSuffix(data, []byte("--!>")) {
				comment = "-->"
			} else if !bytes.HasSuffix(data, []byte(">")) {
				comment = ">"
			}
		case htmllex.TextToken:
			if raw == "script" {
				escaped = bytes.Contains(data, []byte("<!--"))
			} else if bytes.HasPrefix(data, []byte("<![CDATA[")) && !bytes.Contains(data, []byte(">")) {
				// Outside foreign content this is a comment that ends at the next '>'.
				comment = ">"
			}
		case htmllex.StartTagToken:
			inTag, quote, seenID = true, 0, false
			name := string(l.Text())
			if inert != "" {
				continue
			}
			switch {
			case name == "template":
				templates++
			case inertElements[name]:
				inert = name
			case rawTextElements[name]:
				raw, escaped = name, false
			}
		case htmllex.StartTagCloseToken, htmllex.StartTagVoidToken:
			inTag, quote = false, 0
		case htmllex.AttributeToken:
			quote = 0
			if v := l.AttrVal(); len(v) > 0 && (v[0] == '"' || v[0] == '\'') && (len(v) == 1 || v[len(v)-1] != v[0]) {
				quote = v[0]
			}
			if !bytes.Equal(l.AttrKey(), []byte("id")) || seenID {
				continue
			}
			// Browsers keep the first of repeated attributes.
			seenID = true
			if templates == 0 && inert == "" && attrValue(l.AttrVal()) == "root" {
				hasRoot = true
			}
		case htmllex.EndTagToken:
			name := strings.ToLower(string(l.Text()))
			switch {
			case name == raw:
				raw = ""
			case name == inert:
				inert = ""
			case inert == "" && name == "template" && templates > 0:
				templates--
			}
		}
	}
}

// hasRootElement reports whether markup has an element with id "root".
func hasRootElement(markup string) bool {
	hasRoot, _ := scanMarkup(markup)
	return hasRoot
}

// terminate closes whatever fragment leaves open at its end, so markup
// appended after it is parsed as part of the document.
func terminate(fragment string) string {
	_, closing := scanMarkup(fragment)
	return fragment + closing
}

func attrValue(v []byte) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	return string(v)
}

// skeleton is the HTML document the injections are spliced into.
type skeleton struct {
	doc      string
	hasRoot  bool
	repaired bool
}

func (s skeleton) String() string { return s.doc }

// synthesize builds a minimal HTML5 document. An empty bodyInner becomes
// the bare mount point.
func synthesize(title, bodyInner string) skeleton {
	if bodyInner == "" {
		bodyInner = rootElement
	}
	return skeleton{
		doc:     buildDocument(title, "", bodyInner, true),
		hasRoot: hasRootElement(bodyInner),
	}
}

func buildDocument(title, headInner, bodyInner string, withTitle bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	if withTitle {
		b.WriteString("<title>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</title>\n")
	}
	if headInner = strings.TrimSpace(headInner); headInner != "" {
		b.WriteString(headInner)
		b.WriteString("\n")
	}
	b.WriteString("</head>\n<body>\n")
	if bodyInner = strings.TrimSpace(bodyInner); bodyInner != "" {
		b.WriteString(bodyInner)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// fromEntry uses an HTML entry file as the skeleton. A complete document is
// kept byte for byte; anything missing one of the html, head or body tags
// is rebuilt around whatever head and body content can be located.
func fromEntry(content, title string) skeleton {
	complete := htmlOpenRe.MatchString(content) &&
		headOpenRe.MatchString(content) && headCloseRe.MatchString(content) &&
		bodyOpenRe.MatchString(content) && bodyCloseRe.MatchString(content) &&
		htmlCloseRe.MatchString(content)
	if complete {
		hasRoot, closing := scanMarkup(content)
		if closing == "" && len(realTags(content, headCloseRe)) > 0 && len(realTags(content, bodyCloseRe)) > 0 {
			return skeleton{doc: content, hasRoot: hasRoot}
		}
	}

	headInner, bodyInner := splitEntry(content)
	headInner, bodyInner = terminate(headInner), terminate(bodyInner)
	return skeleton{
		doc:      buildDocument(title, headInner, bodyInner, !titleRe.MatchString(headInner)),
		hasRoot:  hasRootElement(bodyInner),
		repaired: true,
	}
}

// splitEntry locates head and body content in a partial document.
func splitEntry(content string) (headInner, bodyInner string) {
	headOpen := headOpenRe.FindStringIndex(content)
	headClose := headCloseRe.FindStringIndex(content)
	rest := content

	if headOpen != nil && headClose != nil && headClose[0] >= headOpen[1] {
		headInner = content[headOpen[1]:headClose[0]]
		rest = content[headClose[1]:]
	} else if headOpen != nil {
		// Unclosed head: it runs up to <body> when there is one.
		if bodyOpen := bodyOpenRe.FindStringIndex(content); bodyOpen != nil && bodyOpen[0] > headOpen[1] {
			headInner = content[headOpen[1]:bodyOpen[0]]
			rest = content[bodyOpen[0]:]
		} else {
			rest = content[:headOpen[0]] + content[headOpen[1]:]
		}
	}

	if bodyOpen := bodyOpenRe.FindStringIndex(rest); bodyOpen != nil {
		rest = rest[bodyOpen[1]:]
	}
	if closes := bodyCloseRe.FindAllStringIndex(rest, -1); len(closes) > 0 {
		rest = rest[:closes[len(closes)-1][0]]
	}

	return stripStructural(headInner), stripStructural(rest)
}

// stripStructural removes stray document-level tags from a fragment.
func stripStructural(fragment string) string {
	for _, re := range []*regexp.Regexp{doctypeRe, htmlOpenRe, htmlCloseRe, headOpenRe, headCloseRe, bodyOpenRe, bodyCloseRe} {
		fragment = re.ReplaceAllString(fragment, "")
	}
	return fragment
}

// realTags returns the matches of re that are markup, not text inside a
// comment, a raw text element or a template.
func realTags(doc string, re *regexp.Regexp) [][]int {
	var out [][]int
	for _, loc := range re.FindAllStringIndex(doc, -1) {
		if _, closing := scanMarkup(doc[:loc[0]]); closing == "" {
			out = append(out, loc)
		}
	}
	return out
}

// injectHead inserts fragment immediately before the first </head>.
func (s *skeleton) injectHead(fragment string) {
	locs := realTags(s.doc, headCloseRe)
	if len(locs) == 0 {
		return
	}
	at := locs[0][0]
	s.doc = s.doc[:at] + fragment + s.doc[at:]
}

// injectBody inserts fragment immediately before the last </body>.
func (s *skeleton) injectBody(fragment string) {
	locs := realTags(s.doc, bodyCloseRe)
	if len(locs) == 0 {
		return
	}
	at := locs[len(locs)-1][0]
	s.doc = s.doc[:at] + fragment + s.doc[at:]
}
