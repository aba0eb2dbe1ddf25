package textbackend

import (
	"strings"

	"vellum/internal/paged"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

type nodeKind uint8

const (
	nodeText nodeKind = iota
	nodeTrivia
	nodeHash
	nodeIdent
	nodeField
)

// node is a syntax node of an embedded code expression such as
// "#calc.pow". Markup around expressions is represented by text and
// trivia leaves.
type node struct {
	kind   nodeKind
	name   string
	span   source.Span
	parent *node
	index  int
	target *node
	field  *node
}

var _ typeset.Node = (*node)(nil)

func (n *node) Parent() typeset.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Index() int        { return n.index }
func (n *node) IsExpr() bool      { return n.kind == nodeIdent || n.kind == nodeField }
func (n *node) IsTrivia() bool    { return n.kind == nodeTrivia }
func (n *node) Span() source.Span { return n.span }

func (n *node) FieldTarget() (typeset.Node, bool) {
	if n.kind != nodeField || n.target == nil {
		return nil, false
	}
	return n.target, true
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9', c == '-':
		return !first
	}
	return false
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' }

// scanIdent returns the end of the identifier starting at i, or i.
func scanIdent(text string, i int) int {
	if i >= len(text) || !isIdentByte(text[i], true) {
		return i
	}
	j := i + 1
	for j < len(text) && isIdentByte(text[j], false) {
		j++
	}
	return j
}

// LeafAt returns the leaf at cursor: an identifier of an embedded expression,
// the '#' introducing it, or a markup leaf.
func (b *Backend) LeafAt(src *source.Source, cursor int) (typeset.Node, bool) {
	if cursor < 0 || cursor > src.Len() {
		return nil, false
	}
	line, ok := src.ByteToLine(cursor)
	if !ok {
		return nil, false
	}
	start, _ := src.LineStart(line)
	text := src.Line(line)
	rel := cursor - start

	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		leaf, end := parseChain(src, text, start, i, rel)
		if leaf != nil {
			return leaf, true
		}
		if end > i {
			i = end - 1
		}
	}

	touchesText := rel > 0 && rel <= len(text) && !isSpace(text[rel-1]) ||
		rel < len(text) && !isSpace(text[rel])
	if touchesText {
		return &node{kind: nodeText, span: src.SpanFor(start, start+len(text))}, true
	}
	return &node{kind: nodeTrivia, span: src.SpanFor(cursor, cursor)}, true
}

// parseChain parses "#a.b.c" at text[hash]. It returns the leaf under rel, if
// any, and the end of the expression.
func parseChain(src *source.Source, text string, lineStart, hash, rel int) (*node, int) {
	var segs [][2]int
	pos := hash + 1
	for {
		end := scanIdent(text, pos)
		if end == pos {
			break
		}
		segs = append(segs, [2]int{pos, end})
		if end < len(text)-1 && text[end] == '.' && isIdentByte(text[end+1], true) {
			pos = end + 1
			continue
		}
		pos = end
		break
	}
	if len(segs) == 0 {
		return nil, hash + 1
	}
	if rel == hash {
		return &node{kind: nodeHash, span: src.SpanFor(lineStart+hash, lineStart+hash+1)}, pos
	}

	span := func(lo, hi int) source.Span { return src.SpanFor(lineStart+lo, lineStart+hi) }
	idents := make([]*node, len(segs))
	for i, s := range segs {
		idents[i] = &node{kind: nodeIdent, name: text[s[0]:s[1]], span: span(s[0], s[1])}
	}
	expr := idents[0]
	for i := 1; i < len(idents); i++ {
		field := &node{kind: nodeField, name: idents[i].name, span: span(segs[0][0], segs[i][1]), target: expr, field: idents[i]}
		expr.parent, expr.index = field, 0
		idents[i].parent, idents[i].index = field, 2
		expr = field
	}

	for i, s := range segs {
		if rel >= s[0] && rel <= s[1] {
			return idents[i], pos
		}
	}
	return nil, pos
}

// Analyze returns the value an expression evaluates to, as far as it can be
// known statically: identifiers resolve in the global scope, field accesses
// in the scope of their target.
func (b *Backend) Analyze(w typeset.World, expr typeset.Node) []typeset.Value {
	n, ok := expr.(*node)
	if !ok {
		return nil
	}
	lib := w.Library()
	if lib == nil {
		return nil
	}
	switch n.kind {
	case nodeField:
		return b.Analyze(w, n.field)
	case nodeIdent:
		if n.parent != nil && n.index > 0 {
			targets := b.Analyze(w, n.parent.target)
			if len(targets) != 1 {
				return nil
			}
			if v, ok := member(lib, targets[0], n.name); ok {
				return []typeset.Value{v}
			}
			return nil
		}
		if n.name == "std" {
			return []typeset.Value{module("std", lib.Std)}
		}
		if binding, ok := lib.Global.Get(n.name); ok {
			return []typeset.Value{binding.Value}
		}
	}
	return nil
}

func member(lib *typeset.Library, v typeset.Value, name string) (typeset.Value, bool) {
	scope := v.Scope
	if v.Kind == typeset.ValueOther && v.TypeName != "" {
		if t, ok := lib.Global.Get(v.TypeName); ok {
			scope = t.Value.Scope
		}
	}
	if binding, ok := scope.Get(name); ok {
		return binding.Value, true
	}
	if v.Kind == typeset.ValueFunc {
		if binding, ok := lib.FuncType.Get(name); ok {
			return binding.Value, true
		}
	}
	return typeset.Value{}, false
}

// Definition resolves "@name" references to the "#label name" line that
// defines them, and directive or library names to the standard library.
func (b *Backend) Definition(w typeset.World, doc *paged.Document, src *source.Source, cursor int) (typeset.Definition, bool) {
	word, ok := wordAt(src.Text(), cursor)
	if !ok {
		return typeset.Definition{}, false
	}
	switch {
	case strings.HasPrefix(word, "@"):
		return findLabel(doc, src, word[1:])
	case strings.HasPrefix(word, "#"):
		name := word[1:]
		if head, _, found := strings.Cut(name, "."); found {
			name = head
		}
		if _, ok := directives[name]; ok {
			return typeset.Definition{InStd: true}, true
		}
		if lib := w.Library(); lib != nil {
			if _, ok := lib.Global.Get(name); ok {
				return typeset.Definition{InStd: true}, true
			}
		}
	}
	return typeset.Definition{}, false
}

// directives lists the line directives the backend understands.
var directives = map[string]struct{}{
	"include":   {},
	"import":    {},
	"fill":      {},
	"pagebreak": {},
	"heading":   {},
	"label":     {},
	"today":     {},
	"outline":   {},
	"warn":      {},
}

func wordAt(text string, cursor int) (string, bool) {
	if cursor < 0 || cursor > len(text) {
		return "", false
	}
	isWord := func(c byte) bool {
		return isIdentByte(c, false) || c == '.' || c == '@' || c == '#'
	}
	lo, hi := cursor, cursor
	for lo > 0 && isWord(text[lo-1]) {
		lo--
	}
	for hi < len(text) && isWord(text[hi]) {
		hi++
	}
	if lo == hi {
		return "", false
	}
	return strings.TrimRight(text[lo:hi], "."), true
}

func findLabel(doc *paged.Document, src *source.Source, name string) (typeset.Definition, bool) {
	if name == "" {
		return typeset.Definition{}, false
	}
	if doc != nil {
		for _, el := range doc.Elements {
			if el.Label == name {
				return typeset.Definition{Span: el.Span}, true
			}
		}
		return typeset.Definition{}, false
	}
	for line := 0; line < src.LineCount(); line++ {
		if n, arg, _, ok := parseDirective(src.Line(line)); ok && n == "label" && arg == name {
			start, _ := src.LineStart(line)
			return typeset.Definition{Span: src.SpanFor(start, start+len(src.Line(line)))}, true
		}
	}
	return typeset.Definition{}, false
}
