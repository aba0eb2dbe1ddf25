package textbackend

import (
	"fortio.org/safecast"

	"vellum/internal/paged"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

// descent is how far below the baseline a click still hits a run, in em.
const descent = 0.3

// walk visits every item of f with the transform from f's coordinates to
// the page. It stops when visit returns false.
func walk(f *paged.Frame, ts paged.Transform, visit func(it paged.Positioned, ts paged.Transform) bool) bool {
	for _, it := range f.Items {
		if g, ok := it.Item.(*paged.Group); ok {
			inner := g.Transform.Then(paged.Translate(it.Pos.X, it.Pos.Y)).Then(ts)
			if !walk(g.Frame, inner, visit) {
				return false
			}
			continue
		}
		if !visit(it, ts) {
			return false
		}
	}
	return true
}

// JumpFromCursor returns the position of every run produced by the text at
// cursor, page by page in layout order.
func (b *Backend) JumpFromCursor(doc *paged.Document, src *source.Source, cursor int) []paged.Position {
	at, err := safecast.Conv[uint32](cursor)
	if err != nil || doc == nil {
		return nil
	}
	var out []paged.Position
	for i, page := range doc.Pages {
		walk(page.Frame, paged.Identity(), func(it paged.Positioned, ts paged.Transform) bool {
			t, ok := it.Item.(*paged.Text)
			if !ok || len(t.Glyphs) == 0 {
				return true
			}
			span := t.Glyphs[0].Span
			if span.File != src.ID() || at < span.Start || at > span.End {
				return true
			}
			x := 0.0
			for _, g := range t.Glyphs {
				if span.Start+uint32(g.Offset) >= at {
					break
				}
				x += g.XAdvance * t.Size
			}
			pos := ts.Apply(paged.Point{X: it.Pos.X + x, Y: it.Pos.Y - t.Size})
			out = append(out, paged.Position{Page: i + 1, Point: pos})
			return true
		})
	}
	return out
}

// JumpFromClick resolves a click on frame. Links take precedence over text.
func (b *Backend) JumpFromClick(w typeset.World, _ *paged.Document, frame *paged.Frame, click paged.Point) (typeset.Jump, bool) {
	var jump typeset.Jump
	found := false
	walk(frame, paged.Identity(), func(it paged.Positioned, ts paged.Transform) bool {
		link, ok := it.Item.(*paged.Link)
		if !ok {
			return true
		}
		origin := ts.Apply(it.Pos)
		if !inside(click, origin, link.Size.W, link.Size.H) {
			return true
		}
		switch {
		case link.Dest != "":
			jump, found = typeset.Jump{Kind: typeset.JumpURL, URL: link.Dest}, true
		case link.Position != nil:
			jump, found = typeset.Jump{Kind: typeset.JumpPosition, Position: *link.Position}, true
		}
		return !found
	})
	if found {
		return jump, true
	}

	walk(frame, paged.Identity(), func(it paged.Positioned, ts paged.Transform) bool {
		t, ok := it.Item.(*paged.Text)
		if !ok || len(t.Glyphs) == 0 {
			return true
		}
		origin := ts.Apply(it.Pos)
		top := paged.Point{X: origin.X, Y: origin.Y - t.Size}
		if !inside(click, top, t.Width(), t.Size*(1+descent)) {
			return true
		}
		x := origin.X
		for _, g := range t.Glyphs {
			adv := g.XAdvance * t.Size
			if click.X < x+adv {
				jump, found = glyphTarget(w, g)
				return !found
			}
			x += adv
		}
		return true
	})
	return jump, found
}

func glyphTarget(w typeset.World, g paged.Glyph) (typeset.Jump, bool) {
	if g.Span.IsDetached() {
		return typeset.Jump{}, false
	}
	src, err := w.Source(g.Span.File)
	if err != nil {
		return typeset.Jump{}, false
	}
	start, _, ok := src.Range(g.Span)
	if !ok {
		return typeset.Jump{}, false
	}
	return typeset.Jump{Kind: typeset.JumpFile, File: g.Span.File, Offset: start + int(g.Offset)}, true
}

func inside(p, origin paged.Point, w, h float64) bool {
	return p.X >= origin.X && p.X <= origin.X+w && p.Y >= origin.Y && p.Y <= origin.Y+h
}
