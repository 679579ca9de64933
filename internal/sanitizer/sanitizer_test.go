package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUnfencedIsIdentity(t *testing.T) {
	inputs := []string{
		"",
		"function App(){return null;}",
		"  ```jsx\nleading space means not fenced\n```",
		"body{color:red}",
		"``two backticks``",
		"line one\n```\nline three",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Sanitize(in), "input %q", in)
	}
}

func TestSanitizeCompleteFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with language", "```jsx\nfunction App(){return null;}\n```", "function App(){return null;}\n"},
		{"body without trailing newline", "```lang\nBODY```", "BODY"},
		{"no language", "```\nconst x = 1;\n```", "const x = 1;\n"},
		{"keeps indentation", "```css\n  body {\n\tcolor: red;\n  }\n```", "  body {\n\tcolor: red;\n  }\n"},
		{"keeps CRLF", "```js\r\nalert(1);\r\n```", "alert(1);\r\n"},
		{"empty body", "```\n```", ""},
		{"info string with attributes", "```tsx title=App.tsx\nexport default App;\n```", "export default App;\n"},
		{"inner fence kept", "```md\na\n```\nb\n```", "a\n```\nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeTruncatedFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing closing fence", "```jsx\nfunction App() {\n  return <div>", "function App() {\n  return <div>"},
		{"only opening line", "```jsx", ""},
		{"opening line and newline", "```tsx\n", ""},
		{"bare fence", "```", ""},
		{"trailing text after closing fence", "```js\nrun();\n```\n", "run();\n```\n"},
		{"no newline after info", "```js run();```", "```js run();"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			assert.NotPanics(t, func() { got = Sanitize(tt.in) })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeJSON(t *testing.T) {
	in := "\n```json\n[{\"filename\":\"App.jsx\"}]\n```\n"
	assert.Equal(t, `[{"filename":"App.jsx"}]`, SanitizeJSON(in))
	assert.Equal(t, `{"files":[]}`, SanitizeJSON(`  {"files":[]}  `))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "jsx", Language("```jsx\nx\n```"))
	assert.Equal(t, "tsx", Language("```tsx title=a\nx"))
	assert.Equal(t, "", Language("```\nx\n```"))
	assert.Equal(t, "", Language("plain"))
}
