package preview

import (
	"regexp"
	"strings"
)

// EntryComponent is the global name a composed document mounts.
const EntryComponent = "App"

// defaultExportName prefixes the names bound to anonymous default exports.
const defaultExportName = "__DefaultExport"

// The concatenated scripts run as one classic script, so ES module syntax is
// rewritten with line-level patterns. No parsing happens here: anything the
// patterns miss is left for the transpiler, whose errors end up in the
// document's diagnostic panel.
var (
	importRe = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:([\w*{}\s,$]+?)\s+from\s+)?['"]([^'"\n]+)['"][ \t]*;?[ \t]*$`)
	identRe  = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

	exportDefaultNamedDeclRe = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+((?:async\s+)?function(?:\s*\*\s*|\s+)|class\s+)([A-Za-z_$][\w$]*)`)
	exportDefaultAnonFuncRe  = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+((?:async\s+)?function)\s*(\*?)\s*\(`)
	exportDefaultIdentRe     = regexp.MustCompile(`(?m)^[ \t]*export\s+default\s+([A-Za-z_$][\w$]*)[ \t]*;?[ \t]*$`)
	exportDefaultExprRe      = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
	exportListRe             = regexp.MustCompile(`(?m)^[ \t]*export\s*\{[^}]*\}(?:\s*from\s*['"][^'"\n]+['"])?[ \t]*;?[ \t]*$`)
	exportDeclRe             = regexp.MustCompile(`(?m)^([ \t]*)export\s+((?:async\s+)?function|class|const|let|var|interface|type|enum)\b`)

	scriptCloseRe = regexp.MustCompile(`(?i)</script`)
	styleCloseRe  = regexp.MustCompile(`(?i)</style`)
)

var reserved = map[string]bool{
	"async": true, "await": true, "class": true, "const": true, "extends": true,
	"false": true, "function": true, "let": true, "new": true, "null": true,
	"this": true, "true": true, "typeof": true, "undefined": true, "var": true,
	"void": true, "yield": true,
}

// classicSource is one script rewritten to run as part of a classic script.
type classicSource struct {
	Source   string
	// Defaults are the names bound by default exports, in order.
	Defaults []string
	// Imports are the names the removed import statements bound.
	Imports  []importBinding
}

// classicScript strips module syntax from src. Anonymous default exports
// are bound to anonName, which must be unique within one document.
func classicScript(src, anonName string) classicSource {
	var defaults []string
	var imports []importBinding

	src = importRe.ReplaceAllStringFunc(src, func(match string) string {
		m := importRe.FindStringSubmatch(match)
		imports = append(imports, importBindings(m[1], runtimeGlobals[m[2]])...)
		return ""
	})

	src = exportDefaultNamedDeclRe.ReplaceAllStringFunc(src, func(match string) string {
		m := exportDefaultNamedDeclRe.FindStringSubmatch(match)
		if reserved[m[3]] {
			// "export default class extends Base" has no name; the
			// expression rewrite below binds it instead.
			return match
		}
		defaults = append(defaults, m[3])
		return m[1] + m[2] + m[3]
	})

	if exportDefaultAnonFuncRe.MatchString(src) {
		defaults = append(defaults, anonName)
		src = exportDefaultAnonFuncRe.ReplaceAllString(src, "${1}${2}${3} "+anonName+"(")
	}

	src = exportDefaultIdentRe.ReplaceAllStringFunc(src, func(match string) string {
		m := exportDefaultIdentRe.FindStringSubmatch(match)
		if !reserved[m[1]] {
			defaults = append(defaults, m[1])
		}
		return ""
	})

	if exportDefaultExprRe.MatchString(src) {
		defaults = append(defaults, anonName)
		src = exportDefaultExprRe.ReplaceAllString(src, "${1}var "+anonName+" = ")
	}

	src = exportListRe.ReplaceAllString(src, "")
	src = exportDeclRe.ReplaceAllString(src, "${1}${2}")

	return classicSource{Source: src, Defaults: defaults, Imports: imports}
}

// runtimeGlobals maps the modules the runtime libraries provide to the
// globals they define. Imports of anything else are dropped.
var runtimeGlobals = map[string]string{
	"react":            "React",
	"react-dom":        "ReactDOM",
	"react-dom/client": "ReactDOM",
}

// importBinding is one name an import statement bound, and the expression
// over a runtime global that provides it.
type importBinding struct {
	Name  string
	Value string
}

// importBindings reads the names an import clause binds from global:
// "React, { useState as use }" from "react" binds use to React.useState.
// Default and namespace imports alias the global itself and are skipped
// when they reuse its name. Type-only imports bind nothing.
func importBindings(clause, global string) []importBinding {
	clause = strings.TrimSpace(clause)
	if global == "" || clause == "" || strings.HasPrefix(clause, "type ") || strings.HasPrefix(clause, "type{") {
		return nil
	}

	var out []importBinding
	bind := func(name, value string) {
		if identRe.MatchString(name) && name != value && !reserved[name] {
			out = append(out, importBinding{Name: name, Value: value})
		}
	}

	if start := strings.Index(clause, "{"); start >= 0 {
		end := strings.LastIndex(clause, "}")
		if end < start {
			return nil
		}
		for _, item := range strings.Split(clause[start+1:end], ",") {
			fields := strings.Fields(item)
			switch {
			case len(fields) == 1 && identRe.MatchString(fields[0]):
				bind(fields[0], global+"."+fields[0])
			case len(fields) == 3 && fields[1] == "as" && fields[0] == "default":
				bind(fields[2], global)
			case len(fields) == 3 && fields[1] == "as" && identRe.MatchString(fields[0]):
				bind(fields[2], global+"."+fields[0])
			}
			// Anything else, "type X" included, binds nothing at runtime.
		}
		clause = clause[:start] + clause[end+1:]
	}

	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(strings.Replace(part, "*", " * ", 1))
		switch {
		case len(fields) == 1:
			bind(fields[0], global)
		case len(fields) == 3 && fields[0] == "*" && fields[1] == "as":
			bind(fields[2], global)
		}
	}
	return out
}

// importPrelude declares the imported names once for the whole block, in
// first-import order. Names the scripts declare themselves with const, let,
// class or function are left to them, since a second declaration of the
// same name in one block is a syntax error.
func importPrelude(bindings []importBinding, body string) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, ib := range bindings {
		if seen[ib.Name] || declaresName(body, ib.Name) {
			continue
		}
		seen[ib.Name] = true
		b.WriteString("var ")
		b.WriteString(ib.Name)
		b.WriteString(" = ")
		b.WriteString(ib.Value)
		b.WriteString(";\n")
	}
	return b.String()
}

// declaresName reports whether src declares name lexically, directly or
// inside an object destructuring pattern.
func declaresName(src, name string) bool {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?:\b(?:const|let|class|function)\s+` + q + `(?:[^\w$]|$))|(?:\b(?:const|let)\s*\{[^}]*(?:^|[^\w$.])` + q + `(?:[^\w$]|$)[^}]*\}\s*=)`)
	return re.MatchString(src)
}

// escapeScript keeps a script body from closing its <script> element early.
// "<!--" is escaped too: followed by "<script" it would make the parser
// skip the real end tag.
func escapeScript(src string) string {
	return strings.ReplaceAll(scriptCloseRe.ReplaceAllString(src, `<\/script`), "<!--", `<\!--`)
}

// escapeStyle keeps a stylesheet from closing its <style> element early.
func escapeStyle(css string) string {
	return styleCloseRe.ReplaceAllString(css, `<\/style`)
}

// entryCandidates lists the names the mount code probes, App first.
func entryCandidates(defaults []string) []string {
	seen := map[string]bool{EntryComponent: true}
	out := []string{EntryComponent}
	for _, name := range defaults {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// entryExpression builds a JS expression that yields the first defined
// candidate, or undefined.
func entryExpression(candidates []string) string {
	var b strings.Builder
	for _, name := range candidates {
		b.WriteString("typeof ")
		b.WriteString(name)
		b.WriteString(" !== 'undefined' ? ")
		b.WriteString(name)
		b.WriteString(" : ")
	}
	b.WriteString("undefined")
	return b.String()
}
