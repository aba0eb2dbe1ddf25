// Package docref links symbols of a document to their pages in the online
// language reference.
package docref

import (
	"strings"

	"vellum/internal/source"
	"vellum/internal/typeset"
)

// DefaultBaseURL is the root of the online documentation.
const DefaultBaseURL = "https://typst.app/docs"

// Reference is the documentation of the symbol under the cursor.
type Reference struct {
	Name string
	Docs string
	URL  string
}

// Resolver resolves documentation links.
type Resolver struct {
	base  string
	intro typeset.Introspector
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(base string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.base = strings.TrimSuffix(base, "/")
		}
	}
}

// New creates a resolver using intro for syntax and value analysis.
func New(intro typeset.Introspector, opts ...Option) *Resolver {
	r := &Resolver{base: DefaultBaseURL, intro: intro}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the function or type at cursor (a byte offset into src) and
// its reference page. The URL is empty when no page is known.
func (r *Resolver) Resolve(w typeset.World, src *source.Source, cursor int) (Reference, bool) {
	if r.intro == nil {
		return Reference{}, false
	}
	leaf, ok := r.intro.LeafAt(src, cursor)
	if !ok || leaf.IsTrivia() {
		return Reference{}, false
	}

	expr := leaf
	for !expr.IsExpr() {
		expr = expr.Parent()
		if expr == nil {
			return Reference{}, false
		}
	}

	values := r.intro.Analyze(w, expr)
	if len(values) != 1 {
		return Reference{}, false
	}
	v := values[0]
	if v.Kind != typeset.ValueFunc && v.Kind != typeset.ValueType || v.Name == "" {
		return Reference{}, false
	}

	var path []string
	if parent := expr.Parent(); parent != nil && expr.Index() > 0 {
		if _, isField := parent.FieldTarget(); isField {
			path, _ = r.fieldTargetPath(w, parent)
		}
	}
	path = append(path, v.Name)

	url, _ := r.Link(w.Library(), path)
	return Reference{Name: v.Name, Docs: r.expandDocLinks(w.Library(), v.Docs), URL: url}, true
}

// fieldTargetPath turns the target of a (possibly nested) field access into
// a qualified path in the library, e.g. "calc" for calc.pow or "str" for
// "abc".len.
func (r *Resolver) fieldTargetPath(w typeset.World, field typeset.Node) ([]string, bool) {
	target, ok := field.FieldTarget()
	if !ok {
		return nil, false
	}
	values := r.intro.Analyze(w, target)
	if len(values) != 1 {
		return nil, false
	}

	v := values[0]
	var name string
	switch v.Kind {
	case typeset.ValueModule, typeset.ValueFunc, typeset.ValueType:
		if v.Name == "" {
			return nil, false
		}
		name = v.Name
	default:
		return []string{v.TypeName}, v.TypeName != ""
	}

	if _, nested := target.FieldTarget(); nested {
		prefix, ok := r.fieldTargetPath(w, target)
		if !ok {
			return nil, false
		}
		return append(prefix, name), true
	}
	return []string{name}, true
}

// preludeAliases are functions re-exported at the top level whose pages live
// under another definition.
var preludeAliases = map[string]string{
	"luma":  "color",
	"oklab": "color",
	"oklch": "color",
	"rgb":   "color",
	"cmyk":  "color",
	"range": "array",
}

// Link returns the reference page of a dotted path such as
// ["outline", "entry", "indented"]. A leading "std" looks the path up in the
// std module instead of the global scope.
func (r *Resolver) Link(lib *typeset.Library, path []string) (string, bool) {
	if lib == nil || len(path) == 0 {
		return "", false
	}
	scope := lib.Global
	if path[0] == "std" {
		path = path[1:]
		scope = lib.Std
	}
	if len(path) > 0 {
		if owner, ok := preludeAliases[path[0]]; ok {
			path = append([]string{owner}, path...)
		}
	}
	return r.linkInScope(lib, scope, path)
}

func (r *Resolver) linkInScope(lib *typeset.Library, scope *typeset.Scope, path []string) (string, bool) {
	var (
		url    string
		inFunc *typeset.Value
	)
	for _, elem := range path {
		if inFunc != nil && inFunc.HasParam(elem) {
			if strings.Contains(url, "#") {
				return url + "-" + elem, true
			}
			return url + "#parameters-" + elem, true
		}

		binding, ok := scope.Get(elem)
		if !ok && inFunc != nil {
			if binding, ok = lib.FuncType.Get(elem); ok {
				url = r.base + "/reference/foundations/function"
			}
		}
		if !ok {
			return "", false
		}

		v := binding.Value
		switch v.Kind {
		case typeset.ValueModule:
			inFunc = nil
			scope = v.Scope
		case typeset.ValueType:
			if binding.Category == "" {
				return "", false
			}
			inFunc = nil
			scope = v.Scope
			url = r.base + "/reference/" + binding.Category + "/" + elem
		case typeset.ValueFunc:
			inFunc = &v
			scope = v.Scope
			switch {
			case url == "":
				if binding.Category == "" {
					return "", false
				}
				url = r.base + "/reference/" + binding.Category + "/" + elem
			case strings.Contains(url, "#"):
				url += "-definitions-" + elem
			default:
				url += "#definitions-" + elem
			}
		default:
			return "", false
		}
	}
	return url, url != ""
}

// DocLink expands an internal documentation link ("$outline.entry/#x" style,
// without the leading '$') into an absolute URL. Unknown paths fall back to
// a page of the same name under the reference.
func (r *Resolver) DocLink(lib *typeset.Library, link string) string {
	path, annex := link, ""
	if i := strings.IndexByte(link, '/'); i >= 0 {
		path, annex = link[:i], link[i:]
	}
	url, ok := r.Link(lib, strings.Split(path, "."))
	if !ok {
		switch path {
		case "tutorial", "guides", "reference":
			url = r.base + "/" + path
		default:
			url = r.base + "/reference/" + path
		}
	}
	if annex != "" && !strings.Contains(url, "#") {
		return url + annex
	}
	return url
}

// expandDocLinks rewrites every markdown link target of the form "($path)"
// in docs into an absolute URL.
func (r *Resolver) expandDocLinks(lib *typeset.Library, docs string) string {
	if !strings.Contains(docs, "]($") {
		return docs
	}
	var b strings.Builder
	for {
		i := strings.Index(docs, "]($")
		if i < 0 {
			break
		}
		end := strings.IndexByte(docs[i+3:], ')')
		if end < 0 {
			break
		}
		b.WriteString(docs[:i+2])
		b.WriteString(r.DocLink(lib, docs[i+3:i+3+end]))
		b.WriteByte(')')
		docs = docs[i+3+end+1:]
	}
	b.WriteString(docs)
	return b.String()
}
