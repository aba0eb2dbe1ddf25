package typeset

import (
	"image"
	"strings"

	"vellum/internal/diag"
	"vellum/internal/paged"
	"vellum/internal/source"
)

// Result is the outcome of one compilation. Document is nil exactly when the
// compilation failed; Errors is then non-empty.
type Result struct {
	Document *paged.Document
	Errors   []diag.Diagnostic
	Warnings []diag.Diagnostic
}

// Compiler turns the world's main source into a paged document.
type Compiler interface {
	Compile(w World) Result
}

// Renderer rasterizes a page. The returned image is premultiplied RGBA with
// its origin at (0, 0).
type Renderer interface {
	Render(page *paged.Page, pixelPerPt float64) *image.RGBA
}

// JumpKind tells where a click in the preview leads.
type JumpKind uint8

const (
	JumpFile JumpKind = iota
	JumpURL
	JumpPosition
)

// Jump is the target of a click in the preview.
type Jump struct {
	Kind     JumpKind
	File     source.FileID
	Offset   int
	URL      string
	Position paged.Position
}

// Jumper maps between source offsets and page positions.
type Jumper interface {
	// JumpFromCursor returns every page position produced by the text at
	// cursor (a byte offset into src).
	JumpFromCursor(doc *paged.Document, src *source.Source, cursor int) []paged.Position
	// JumpFromClick resolves a click on a page frame.
	JumpFromClick(w World, doc *paged.Document, frame *paged.Frame, click paged.Point) (Jump, bool)
}

// Backend bundles the mandatory engine capabilities. Optional ones are
// discovered with type assertions.
type Backend interface {
	Compiler
	Renderer
	Jumper
}

// PDFOptions controls PDF output. Empty strings select the defaults.
type PDFOptions struct {
	Version  string
	Standard string
	Tagged   bool
}

// PDFExporter serializes documents as PDF. Compilation-style failures are
// returned as *DiagnosticError.
type PDFExporter interface {
	ExportPDF(doc *paged.Document, opts PDFOptions) ([]byte, error)
}

// DiagnosticError carries diagnostics out of operations that return errors.
type DiagnosticError struct {
	Diagnostics []diag.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, "; ")
}

// Evictor drops memoized compiler results older than maxAge compilations.
type Evictor interface {
	Evict(maxAge int)
}

// Definition is where a symbol is defined: the standard library, or a span.
type Definition struct {
	InStd bool
	Span  source.Span
}

// Definer finds the definition of the symbol at cursor.
type Definer interface {
	Definition(w World, doc *paged.Document, src *source.Source, cursor int) (Definition, bool)
}

// Node is a syntax node as seen by introspection.
type Node interface {
	Parent() Node
	// Index is the position of the node among its parent's children.
	Index() int
	IsExpr() bool
	IsTrivia() bool
	// FieldTarget returns the accessed expression when the node is a field
	// access.
	FieldTarget() (Node, bool)
	Span() source.Span
}

// Introspector exposes the syntax tree and expression analysis.
type Introspector interface {
	// LeafAt returns the leaf that ends at or contains cursor.
	LeafAt(src *source.Source, cursor int) (Node, bool)
	// Analyze returns the possible values of an expression node.
	Analyze(w World, node Node) []Value
}
