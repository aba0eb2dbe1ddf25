package textbackend

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"fortio.org/safecast"

	"vellum/internal/paged"
)

// Glyph boxes cover this share of the em square.
const (
	glyphAscent = 0.7
	glyphInset  = 0.1
)

// Render draws page at pixelPerPt. Text is drawn as one filled box per
// visible glyph; shapes are drawn by their bounding boxes.
func (b *Backend) Render(page *paged.Page, pixelPerPt float64) *image.RGBA {
	w := pixels(page.Frame.Width() * pixelPerPt)
	h := pixels(page.Frame.Height() * pixelPerPt)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if fill, ok := page.FillOrWhite().(paged.Solid); ok {
		draw.Draw(img, img.Bounds(), image.NewUniform(nrgba(fill.Color)), image.Point{}, draw.Src)
	}
	r := &rasterizer{img: img, scale: pixelPerPt}
	r.frame(page.Frame, paged.Identity())
	return img
}

// pixels rounds a device length up to whole pixels, at least one.
func pixels(v float64) int {
	c := math.Ceil(v)
	if !(c >= 1) || c > math.MaxInt32 {
		return 1
	}
	n, err := safecast.Conv[int](int64(c))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func nrgba(c paged.Color) color.NRGBA {
	r, g, b, a := c.RGBA8()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

type rasterizer struct {
	img   *image.RGBA
	scale float64
}

func (r *rasterizer) frame(f *paged.Frame, ts paged.Transform) {
	for _, it := range f.Items {
		pos := ts.Apply(it.Pos)
		switch v := it.Item.(type) {
		case *paged.Group:
			inner := v.Transform.Then(paged.Translate(it.Pos.X, it.Pos.Y)).Then(ts)
			r.frame(v.Frame, inner)
		case *paged.Text:
			r.text(v, pos)
		case *paged.Shape:
			r.shape(v, pos)
		case *paged.Image:
			r.box(pos.X, pos.Y, v.Size.W, v.Size.H, color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff})
		}
	}
}

func (r *rasterizer) text(t *paged.Text, baseline paged.Point) {
	fill, ok := t.Fill.(paged.Solid)
	if !ok {
		return
	}
	c := nrgba(fill.Color)
	x := baseline.X
	for _, g := range t.Glyphs {
		adv := g.XAdvance * t.Size
		if adv > 0 && !isBlank(t.Text, g.Range) {
			inset := adv * glyphInset
			top := baseline.Y - t.Size*glyphAscent
			r.box(x+g.XOffset*t.Size+inset, top, adv-2*inset, t.Size*glyphAscent, c)
		}
		x += adv
	}
}

func isBlank(text string, rng [2]int) bool {
	if rng[0] < 0 || rng[1] > len(text) || rng[0] >= rng[1] {
		return true
	}
	for _, b := range []byte(text[rng[0]:rng[1]]) {
		if b != ' ' && b != '\t' {
			return false
		}
	}
	return true
}

func (r *rasterizer) shape(s *paged.Shape, pos paged.Point) {
	fill, ok := s.Fill.(paged.Solid)
	if !ok {
		return
	}
	switch s.Geometry.Kind {
	case paged.GeomRect:
		r.box(pos.X, pos.Y, s.Geometry.Size.W, s.Geometry.Size.H, nrgba(fill.Color))
	case paged.GeomPath:
		if len(s.Geometry.Path) == 0 {
			return
		}
		minP, maxP := s.Geometry.Path[0], s.Geometry.Path[0]
		for _, p := range s.Geometry.Path[1:] {
			minP.X, minP.Y = min(minP.X, p.X), min(minP.Y, p.Y)
			maxP.X, maxP.Y = max(maxP.X, p.X), max(maxP.Y, p.Y)
		}
		r.box(pos.X+minP.X, pos.Y+minP.Y, maxP.X-minP.X, maxP.Y-minP.Y, nrgba(fill.Color))
	}
}

// box fills a rectangle given in points.
func (r *rasterizer) box(x, y, w, h float64, c color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	rect := image.Rect(
		int(math.Floor(x*r.scale)),
		int(math.Floor(y*r.scale)),
		int(math.Ceil((x+w)*r.scale)),
		int(math.Ceil((y+h)*r.scale)),
	).Intersect(r.img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(r.img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}
