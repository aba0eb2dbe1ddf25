package textbackend

import "vellum/internal/typeset"

func fn(name, docs string, scope *typeset.Scope, params ...string) typeset.Value {
	return typeset.Value{Kind: typeset.ValueFunc, Name: name, TypeName: "function", Params: params, Scope: scope, Docs: docs}
}

func ty(name, docs string, scope *typeset.Scope) typeset.Value {
	return typeset.Value{Kind: typeset.ValueType, Name: name, TypeName: "type", Scope: scope, Docs: docs}
}

func module(name string, scope *typeset.Scope) typeset.Value {
	return typeset.Value{Kind: typeset.ValueModule, Name: name, TypeName: "module", Scope: scope}
}

// NewLibrary builds the scope documents compiled by this backend see. It
// mirrors a slice of the typesetting language's standard library so that
// references in documents link to real documentation pages.
func NewLibrary() *typeset.Library {
	funcType := typeset.NewScope()
	funcType.Define("with", fn("with", "Returns a new function with the given arguments pre-applied.", nil, "arguments"), "foundations")
	funcType.Define("where", fn("where", "Returns a selector that filters for elements with the given fields.", nil, "fields"), "foundations")

	calc := typeset.NewScope()
	calc.Define("abs", fn("abs", "Calculates the absolute value of a numeric value.", nil, "value"), "foundations")
	calc.Define("pow", fn("pow", "Raises a value to some exponent.", nil, "base", "exponent"), "foundations")
	calc.Define("pi", typeset.Value{Kind: typeset.ValueOther, TypeName: "float"}, "foundations")

	colorScope := typeset.NewScope()
	for _, name := range []string{"rgb", "luma", "oklab", "oklch", "cmyk"} {
		colorScope.Define(name, fn(name, "Creates a color.", nil, "components"), "visualize")
	}
	colorScope.Define("lighten", fn("lighten", "Lightens a color by a given factor.", nil, "factor"), "visualize")
	colorScope.Define("negate", fn("negate", "Produces the complementary color.", nil, "space"), "visualize")

	datetime := typeset.NewScope()
	datetime.Define("today", fn("today", "Returns the current date.", nil, "offset"), "foundations")
	datetime.Define("display", fn("display", "Displays the datetime in a specified format.", nil, "pattern"), "foundations")

	strScope := typeset.NewScope()
	strScope.Define("len", fn("len", "The length of the string in UTF-8 encoded bytes.", nil), "foundations")

	entry := typeset.NewScope()
	entry.Define("indented", fn("indented", "A helper function for producing an indented entry layout.", nil, "prefix", "inner", "gap"), "model")
	outline := typeset.NewScope()
	outline.Define("entry", fn("entry", "Represents an entry line in an outline.", entry, "level", "element", "fill"), "model")

	pdf := typeset.NewScope()
	pdf.Define("attach", fn("attach", "A file that will be attached to the output PDF.", nil, "path", "data", "mime-type"), "pdf")

	global := typeset.NewScope()
	global.Define("text", fn("text", "Customizes the look and layout of text.", nil, "font", "fill", "size", "lang"), "text")
	global.Define("heading", fn("heading", "A section heading.", nil, "level", "outlined", "body"), "model")
	global.Define("outline", fn("outline", "A table of contents, figures, or other elements.", outline, "title", "target", "depth", "indent"), "model")
	global.Define("pagebreak", fn("pagebreak", "A manual page break.", nil, "weak", "to"), "layout")
	global.Define("page", fn("page", "Layouts its child onto one or multiple pages.", nil, "paper", "width", "height", "margin", "fill"), "layout")
	global.Define("label", ty("label", "A label for an element.", nil), "foundations")
	global.Define("datetime", ty("datetime", "Represents a date, a time, or a combination of both.", datetime), "foundations")
	global.Define("str", ty("str", "A sequence of Unicode codepoints.", strScope), "foundations")
	global.Define("color", ty("color", "A color in a specific color space.", colorScope), "visualize")
	for _, name := range []string{"rgb", "luma", "oklab", "oklch", "cmyk"} {
		global.Define(name, fn(name, "Creates a color.", nil, "components"), "visualize")
	}
	global.Define("calc", module("calc", calc), "foundations")
	global.Define("pdf", module("pdf", pdf), "pdf")

	std := typeset.NewScope()
	for _, name := range global.Names() {
		b, _ := global.Get(name)
		std.Define(name, b.Value, b.Category)
	}

	return &typeset.Library{Global: global, Std: std, FuncType: funcType}
}
