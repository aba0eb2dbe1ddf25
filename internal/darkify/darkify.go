// Package darkify produces dark-mode variants of rendered pages by inverting
// color lightness while keeping hue and saturation.
package darkify

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"vellum/internal/paged"
)

// InvertPage returns a new page whose colors have their HSL lightness
// inverted. Geometry, text, images and tiling paints are carried over
// unchanged; the input is not modified.
func InvertPage(page *paged.Page) *paged.Page {
	out := &paged.Page{
		Frame:  invertFrame(page.Frame),
		Number: page.Number,
	}
	if fill := page.FillOrWhite(); fill != nil {
		out.Fill = invertPaint(fill)
	}
	return out
}

// InvertColor inverts the lightness of c in HSL.
func InvertColor(c paged.Color) paged.Color {
	h, s, l := colorful.Color{R: c.R, G: c.G, B: c.B}.Hsl()
	inv := colorful.Hsl(h, s, 1-l).Clamped()
	return paged.Color{R: inv.R, G: inv.G, B: inv.B, A: c.A}
}

func invertFrame(f *paged.Frame) *paged.Frame {
	if f == nil {
		return nil
	}
	out := &paged.Frame{Size: f.Size, Items: make([]paged.Positioned, 0, len(f.Items))}
	for _, it := range f.Items {
		out.Items = append(out.Items, paged.Positioned{Pos: it.Pos, Item: invertItem(it.Item)})
	}
	return out
}

func invertItem(item paged.Item) paged.Item {
	switch v := item.(type) {
	case *paged.Group:
		g := *v
		g.Frame = invertFrame(v.Frame)
		return &g
	case *paged.Text:
		t := *v
		t.Fill = invertPaint(v.Fill)
		t.Stroke = invertStroke(v.Stroke)
		return &t
	case *paged.Shape:
		s := *v
		s.Fill = invertPaint(v.Fill)
		s.Stroke = invertStroke(v.Stroke)
		return &s
	default:
		return item
	}
}

func invertStroke(s *paged.Stroke) *paged.Stroke {
	if s == nil {
		return nil
	}
	out := *s
	out.Paint = invertPaint(s.Paint)
	return &out
}

func invertPaint(p paged.Paint) paged.Paint {
	switch v := p.(type) {
	case paged.Solid:
		return paged.Solid{Color: InvertColor(v.Color)}
	case *paged.Gradient:
		g := *v
		g.Stops = make([]paged.Stop, len(v.Stops))
		for i, s := range v.Stops {
			g.Stops[i] = paged.Stop{Color: InvertColor(s.Color), Offset: s.Offset}
		}
		g.Space = paged.SpaceHSL
		return &g
	default:
		return p
	}
}
