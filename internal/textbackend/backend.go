// Package textbackend is a draft typesetting backend: it lays out every
// source line as a plain text run and understands a handful of line
// directives. It exists so the session host can be driven end to end without
// the full compiler.
package textbackend

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fortio.org/safecast"

	"vellum/internal/diag"
	"vellum/internal/fonts"
	"vellum/internal/paged"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

// Page geometry in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
	Margin     = 72.0
	FontSize   = 10.0
	Leading    = 12.0
	// HeadingSize is the text size of level-1 headings; deeper levels
	// shrink by one point each down to FontSize.
	HeadingSize = 14.0
)

// maxIncludeDepth bounds nested #include and #import chains.
const maxIncludeDepth = 16

// packageEntrypoint is the file #import reads from a package.
const packageEntrypoint = "/lib.typ"

// Backend implements typeset.Backend together with the optional Evictor,
// Definer and Introspector capabilities. It is safe to share between
// sessions.
type Backend struct {
	library *typeset.Library
	family  string

	mu     sync.Mutex
	shaped map[shapeKey]*shapedRun
}

var (
	_ typeset.Backend      = (*Backend)(nil)
	_ typeset.Evictor      = (*Backend)(nil)
	_ typeset.Definer      = (*Backend)(nil)
	_ typeset.Introspector = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithFamily selects the font family runs are set in. Missing families fall
// back to the first font of the book.
func WithFamily(family string) Option {
	return func(b *Backend) { b.family = family }
}

// New creates a backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		library: NewLibrary(),
		family:  "Go",
		shaped:  make(map[shapeKey]*shapedRun),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Library returns the scope documents are evaluated against. Pass it to the
// session host so introspection and compilation agree.
func (b *Backend) Library() *typeset.Library { return b.library }

// block is one laid-out line before pagination.
type block struct {
	kind    blockKind
	text    string
	span    source.Span
	fill    paged.Color
	size    float64
	element int
}

type blockKind uint8

const (
	blockLine blockKind = iota
	blockBreak
	blockOutline
)

type compilation struct {
	backend  *Backend
	world    typeset.World
	font     int
	fill     paged.Color
	blocks   []block
	elements []paged.Element
	title    string
	errors   []diag.Diagnostic
	warnings []diag.Diagnostic
}

// Compile lays out the main source of w.
func (b *Backend) Compile(w typeset.World) typeset.Result {
	c := &compilation{backend: b, world: w, font: b.fontIndex(w.Book()), fill: paged.Black}
	main, err := w.Source(w.Main())
	if err != nil {
		return typeset.Result{Errors: []diag.Diagnostic{{
			Severity: diag.SevError,
			Span:     source.Detached(),
			Message:  err.Error(),
		}}}
	}
	c.run(main, nil, 0)
	if len(c.errors) > 0 {
		return typeset.Result{Errors: c.errors, Warnings: c.warnings}
	}
	return typeset.Result{Document: c.paginate(), Warnings: c.warnings}
}

func (b *Backend) fontIndex(book *fonts.Book) int {
	if book == nil {
		return 0
	}
	if i, ok := book.Select(b.family, fonts.StyleNormal, 400); ok {
		return i
	}
	return 0
}

func (c *compilation) diagnostic(sev diag.Severity, span source.Span, trace []diag.TracePoint, msg string, hints ...string) {
	d := diag.Diagnostic{
		Severity: sev,
		Span:     span,
		Message:  msg,
		Trace:    append([]diag.TracePoint(nil), trace...),
		Hints:    hints,
	}
	if sev == diag.SevError {
		c.errors = append(c.errors, d)
	} else {
		c.warnings = append(c.warnings, d)
	}
}

// parseDirective splits "#name rest" lines. Lines where the name is not
// followed by a space or the end of line are plain text.
func parseDirective(line string) (name, arg string, argOffset int, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return "", "", 0, false
	}
	end := 1
	for end < len(line) && line[end] >= 'a' && line[end] <= 'z' {
		end++
	}
	if end == 1 || (end < len(line) && line[end] != ' ') {
		return "", "", 0, false
	}
	rest := line[end:]
	trimmed := strings.TrimLeft(rest, " ")
	argOffset = end + len(rest) - len(trimmed)
	return line[1:end], strings.TrimRight(trimmed, " \t\r"), argOffset, true
}

func (c *compilation) run(src *source.Source, trace []diag.TracePoint, depth int) {
	for line := 0; line < src.LineCount(); line++ {
		start, _ := src.LineStart(line)
		text := strings.TrimSuffix(src.Line(line), "\r")
		span := src.SpanFor(start, start+len(text))

		name, arg, argOffset, ok := parseDirective(text)
		if !ok {
			c.line(text, span, FontSize, -1)
			continue
		}
		argSpan := src.SpanFor(start+argOffset, start+argOffset+len(arg))

		switch name {
		case "include":
			path, err := strconv.Unquote(arg)
			if err != nil || path == "" {
				c.diagnostic(diag.SevError, argSpan, trace, "expected a quoted path")
				continue
			}
			c.nested(src.ID().Join(path), span, trace, depth, "in this include")
		case "import":
			raw, err := strconv.Unquote(arg)
			if err != nil {
				c.diagnostic(diag.SevError, argSpan, trace, "expected a quoted package specification")
				continue
			}
			spec, err := source.ParsePackageSpec(raw)
			if err != nil {
				c.diagnostic(diag.SevError, argSpan, trace, err.Error())
				continue
			}
			c.nested(source.NewFileID(&spec, source.NewVirtualPath(packageEntrypoint)), span, trace, depth, "in this import")
		case "fill":
			col, err := paged.ParseHex(arg)
			if err != nil {
				c.diagnostic(diag.SevError, argSpan, trace, fmt.Sprintf("invalid color %q", arg),
					"colors are written as #rrggbb or #rrggbbaa")
				continue
			}
			c.fill = col
		case "pagebreak":
			c.blocks = append(c.blocks, block{kind: blockBreak, span: span, element: -1})
		case "heading":
			c.heading(arg, span, argSpan, trace)
		case "label":
			if arg == "" || strings.ContainsAny(arg, " \t") {
				c.diagnostic(diag.SevError, argSpan, trace, "expected a label name")
				continue
			}
			c.elements = append(c.elements, paged.Element{Kind: paged.ElemOther, Label: arg, Span: span})
		case "today":
			today, ok := c.world.Today(nil)
			if !ok {
				c.diagnostic(diag.SevError, span, trace, "current date is not available")
				continue
			}
			c.line(today.Format(time.DateOnly), span, FontSize, -1)
		case "outline":
			c.blocks = append(c.blocks, block{kind: blockOutline, span: span, element: -1})
		case "warn":
			c.diagnostic(diag.SevWarning, span, trace, arg)
		default:
			c.diagnostic(diag.SevError, span, trace, "unknown directive #"+name)
		}
	}
}

func (c *compilation) nested(id source.FileID, at source.Span, trace []diag.TracePoint, depth int, why string) {
	if depth >= maxIncludeDepth {
		c.diagnostic(diag.SevError, at, trace, "maximum include depth exceeded")
		return
	}
	src, err := c.world.Source(id)
	if err != nil {
		c.diagnostic(diag.SevError, at, trace, err.Error())
		return
	}
	next := append(append([]diag.TracePoint(nil), trace...), diag.TracePoint{Span: at, Message: why})
	c.run(src, next, depth+1)
}

func (c *compilation) heading(arg string, span, argSpan source.Span, trace []diag.TracePoint) {
	level := 1
	title := arg
	if head, rest, found := strings.Cut(arg, " "); found {
		if n, err := strconv.Atoi(head); err == nil {
			level, title = n, strings.TrimSpace(rest)
		}
	}
	if level < 1 || level > 6 {
		c.diagnostic(diag.SevError, argSpan, trace, fmt.Sprintf("heading level must be between 1 and 6, found %d", level))
		return
	}
	if title == "" {
		c.diagnostic(diag.SevWarning, span, trace, "heading has no title")
	}
	if c.title == "" {
		c.title = title
	}
	// The title is the tail of the directive line; the run spans just the
	// title so jumps land on it.
	titleSpan := argSpan
	if n, err := safecast.Conv[uint32](len(title)); err == nil && n <= argSpan.Len() {
		titleSpan.Start = argSpan.End - n
	}
	c.elements = append(c.elements, paged.Element{
		Kind:     paged.ElemHeading,
		Level:    level,
		Title:    title,
		Outlined: true,
		Span:     span,
		TextSpan: titleSpan,
	})
	size := max(HeadingSize-float64(level-1), FontSize)
	c.line(title, titleSpan, size, len(c.elements)-1)
}

func (c *compilation) line(text string, span source.Span, size float64, element int) {
	c.blocks = append(c.blocks, block{kind: blockLine, text: text, span: span, fill: c.fill, size: size, element: element})
}
