// Package paged is the laid-out document model handed over by the compiler:
// pages made of frames, frames made of positioned items.
package paged

import "vellum/internal/source"

// Document is a compiled, paginated document.
type Document struct {
	Pages    []*Page
	Title    string
	Elements []Element
}

// Page is one page of a document.
type Page struct {
	Frame *Frame
	// Fill is the page background; nil means transparent unless FillAuto.
	Fill Paint
	// FillAuto requests the default background.
	FillAuto bool
	// Number is the user-visible page number, starting at 1.
	Number int
}

// FillOrWhite resolves the page background, using white for FillAuto.
func (p *Page) FillOrWhite() Paint {
	if p.FillAuto {
		return Solid{Color: White}
	}
	return p.Fill
}

// Frame is a container of positioned items with a fixed size.
type Frame struct {
	Size  Size
	Items []Positioned
}

// NewFrame creates an empty frame.
func NewFrame(size Size) *Frame { return &Frame{Size: size} }

// Push appends item at pos.
func (f *Frame) Push(pos Point, item Item) {
	f.Items = append(f.Items, Positioned{Pos: pos, Item: item})
}

// Width returns the absolute frame width.
func (f *Frame) Width() float64 { return abs(f.Size.W) }

// Height returns the absolute frame height.
func (f *Frame) Height() float64 { return abs(f.Size.H) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Positioned is an item together with its position in the parent frame.
type Positioned struct {
	Pos  Point
	Item Item
}

// Item is one of *Group, *Text, *Shape, *Image, *Link or *Tag.
type Item interface {
	isItem()
}

// Group is a nested frame with a transform and an optional clip.
type Group struct {
	Frame     *Frame
	Transform Transform
	Clip      bool
	Label     string
}

// Glyph is a shaped glyph. Span and Offset locate the source text it came
// from; Range is the byte range of the glyph inside Text.Text.
type Glyph struct {
	ID       uint16
	XAdvance float64
	XOffset  float64
	Span     source.Span
	Offset   uint16
	Range    [2]int
}

// Text is a run of glyphs in a single font.
type Text struct {
	Font   int
	Size   float64
	Fill   Paint
	Stroke *Stroke
	Lang   string
	Text   string
	Glyphs []Glyph
}

// Width returns the advance width of the run in points.
func (t *Text) Width() float64 {
	var w float64
	for _, g := range t.Glyphs {
		w += g.XAdvance * t.Size
	}
	return w
}

// GeometryKind is the shape outline type.
type GeometryKind uint8

const (
	GeomLine GeometryKind = iota
	GeomRect
	GeomPath
)

// Geometry describes a shape outline. For lines Size is the end point
// relative to the start; Path holds absolute points of a closed polyline.
type Geometry struct {
	Kind GeometryKind
	Size Size
	Path []Point
}

// Shape is a filled and/or stroked geometric figure.
type Shape struct {
	Geometry Geometry
	Fill     Paint
	Stroke   *Stroke
	Span     source.Span
}

// Image is a raster or vector image placed with the given size.
type Image struct {
	Size   Size
	Format string
	Data   []byte
	Span   source.Span
}

// Link is a clickable area. Dest is a URL, or empty when Position is set.
type Link struct {
	Size     Size
	Dest     string
	Position *Position
}

// TagKind separates start and end introspection tags.
type TagKind uint8

const (
	TagStart TagKind = iota
	TagEnd
)

// Tag marks where an introspectable element sits in the layout.
type Tag struct {
	Kind    TagKind
	Element int
}

func (*Group) isItem() {}
func (*Text) isItem()  {}
func (*Shape) isItem() {}
func (*Image) isItem() {}
func (*Link) isItem()  {}
func (*Tag) isItem()   {}

// Position is a point on a page; Page starts at 1.
type Position struct {
	Page  int
	Point Point
}

// ElementKind classifies introspectable elements.
type ElementKind uint8

const (
	ElemOther ElementKind = iota
	ElemHeading
)

// Element is an introspectable element of the document (headings, labelled
// content).
type Element struct {
	Kind     ElementKind
	Label    string
	Level    int
	Title    string
	Outlined bool
	Span     source.Span
	// TextSpan covers the first text shown for the element, such as a
	// heading title; detached when the producer does not know it.
	TextSpan source.Span
}
