package paged

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the rendered structure of f. Frames that render
// identically hash identically, wherever their text sits in the source; any
// change to geometry, paint, text or nesting changes the value with
// overwhelming probability.
func Fingerprint(f *Frame) uint64 {
	h := hasher{d: xxhash.New()}
	h.frame(f)
	return h.d.Sum64()
}

// Fingerprint hashes the page frame.
func (p *Page) Fingerprint() uint64 { return Fingerprint(p.Frame) }

type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

func (h *hasher) f64(v float64) { h.u64(math.Float64bits(v)) }
func (h *hasher) int(v int)     { h.u64(uint64(v)) }
func (h *hasher) tag(b byte)    { h.u64(uint64(b)) }

func (h *hasher) str(s string) {
	h.int(len(s))
	_, _ = h.d.WriteString(s)
}

func (h *hasher) bool(b bool) {
	if b {
		h.tag(1)
	} else {
		h.tag(0)
	}
}

func (h *hasher) frame(f *Frame) {
	if f == nil {
		h.tag(0)
		return
	}
	h.tag(1)
	h.f64(f.Size.W)
	h.f64(f.Size.H)
	h.int(len(f.Items))
	for _, it := range f.Items {
		h.f64(it.Pos.X)
		h.f64(it.Pos.Y)
		h.item(it.Item)
	}
}

func (h *hasher) item(it Item) {
	switch v := it.(type) {
	case *Group:
		h.tag(1)
		h.transform(v.Transform)
		h.bool(v.Clip)
		h.str(v.Label)
		h.frame(v.Frame)
	case *Text:
		h.tag(2)
		h.int(v.Font)
		h.f64(v.Size)
		h.paint(v.Fill)
		h.stroke(v.Stroke)
		h.str(v.Lang)
		h.str(v.Text)
		h.int(len(v.Glyphs))
		for _, g := range v.Glyphs {
			h.u64(uint64(g.ID))
			h.f64(g.XAdvance)
			h.f64(g.XOffset)
			h.int(g.Range[0])
			h.int(g.Range[1])
		}
	case *Shape:
		h.tag(3)
		h.u64(uint64(v.Geometry.Kind))
		h.f64(v.Geometry.Size.W)
		h.f64(v.Geometry.Size.H)
		h.int(len(v.Geometry.Path))
		for _, p := range v.Geometry.Path {
			h.f64(p.X)
			h.f64(p.Y)
		}
		h.paint(v.Fill)
		h.stroke(v.Stroke)
	case *Image:
		h.tag(4)
		h.f64(v.Size.W)
		h.f64(v.Size.H)
		h.str(v.Format)
		h.u64(xxhash.Sum64(v.Data))
	case *Link:
		h.tag(5)
		h.f64(v.Size.W)
		h.f64(v.Size.H)
		h.str(v.Dest)
		if v.Position != nil {
			h.int(v.Position.Page)
			h.f64(v.Position.Point.X)
			h.f64(v.Position.Point.Y)
		}
	case *Tag:
		// source spans and element indices are document-wide, so an edit
		// elsewhere must not change them here
		h.tag(6)
		h.u64(uint64(v.Kind))
	default:
		h.tag(0)
	}
}

func (h *hasher) transform(t Transform) {
	h.f64(t.SX)
	h.f64(t.KY)
	h.f64(t.KX)
	h.f64(t.SY)
	h.f64(t.TX)
	h.f64(t.TY)
}

func (h *hasher) color(c Color) {
	h.f64(c.R)
	h.f64(c.G)
	h.f64(c.B)
	h.f64(c.A)
}

func (h *hasher) paint(p Paint) {
	switch v := p.(type) {
	case Solid:
		h.tag(1)
		h.color(v.Color)
	case *Gradient:
		h.tag(2)
		h.u64(uint64(v.Kind))
		h.u64(uint64(v.Space))
		h.f64(v.Angle)
		h.f64(v.Center.X)
		h.f64(v.Center.Y)
		h.f64(v.Radius)
		h.int(len(v.Stops))
		for _, s := range v.Stops {
			h.color(s.Color)
			h.f64(s.Offset)
		}
	case *Tiling:
		h.tag(3)
		h.f64(v.Size.W)
		h.f64(v.Size.H)
		h.f64(v.Spacing.W)
		h.f64(v.Spacing.H)
		h.frame(v.Body)
	default:
		h.tag(0)
	}
}

func (h *hasher) stroke(s *Stroke) {
	if s == nil {
		h.tag(0)
		return
	}
	h.tag(1)
	h.paint(s.Paint)
	h.f64(s.Thickness)
	h.int(len(s.Dash))
	for _, d := range s.Dash {
		h.f64(d)
	}
}
