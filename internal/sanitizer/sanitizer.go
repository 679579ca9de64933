// Package sanitizer recovers raw source text from LLM output that may be
// wrapped in a Markdown fenced code block.
package sanitizer

import (
	"regexp"
	"strings"
)

// Fence is the Markdown code fence marker.
const Fence = "```"

var (
	// fencedRe matches a complete block: opening fence, optional info string,
	// newline, body, closing fence at the very end of the input.
	fencedRe = regexp.MustCompile("(?s)\\A```[^\\n`]*\\n(.*?)```\\z")

	// openingRe matches only the opening fence line. The newline may be missing
	// when the output was cut off right after the info string.
	openingRe = regexp.MustCompile("\\A```[^\\n`]*(?:\\n|\\z)")
)

// IsFenced reports whether content starts with a code fence.
func IsFenced(content string) bool {
	return strings.HasPrefix(content, Fence)
}

// Sanitize unwraps a fenced code block. Content that does not start with a
// fence is returned unchanged. When the block is malformed (missing closing
// fence, truncated output) the opening line and a trailing fence are removed
// independently of each other. Sanitize never fails.
func Sanitize(content string) string {
	if !IsFenced(content) {
		return content
	}

	if m := fencedRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}

	out := content
	if loc := openingRe.FindStringIndex(out); loc != nil {
		out = out[loc[1]:]
	}
	out = strings.TrimSuffix(out, Fence)
	return out
}

// SanitizeJSON prepares a model response that should hold a JSON document,
// e.g. "```json\n[...]\n```", for decoding.
func SanitizeJSON(output string) string {
	return strings.TrimSpace(Sanitize(strings.TrimSpace(output)))
}

// Language returns the info string of the opening fence, or "" when content
// is not fenced.
func Language(content string) string {
	if !IsFenced(content) {
		return ""
	}
	line := content[len(Fence):]
	if i := strings.IndexAny(line, "\n`"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
