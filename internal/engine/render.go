package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"fortio.org/safecast"

	"vellum/internal/darkify"
	"vellum/internal/paged"
)

// RenderedPage is a rasterized page. Pixels are premultiplied RGBA8 rows
// without padding.
type RenderedPage struct {
	WidthPx  uint32
	HeightPx uint32
	Pixels   []byte
}

func (e *Engine) page(index int) (*paged.Page, error) {
	if e.doc == nil {
		return nil, ErrInvalidState
	}
	if index < 0 || index >= len(e.doc.Pages) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchPage, index)
	}
	return e.doc.Pages[index], nil
}

// RenderPage rasterizes the zero-based page at pixelPerPt. With invert the
// page is rendered in dark mode; the snapshot itself is not changed.
func (e *Engine) RenderPage(index int, pixelPerPt float64, invert bool) (*RenderedPage, error) {
	page, err := e.page(index)
	if err != nil {
		return nil, err
	}
	if invert {
		page = darkify.InvertPage(page)
	}
	img := e.backend.Render(page, pixelPerPt)
	return packImage(img)
}

func packImage(img *image.RGBA) (*RenderedPage, error) {
	b := img.Bounds()
	w, err := safecast.Conv[uint32](b.Dx())
	if err != nil {
		return nil, fmt.Errorf("page width overflow: %w", err)
	}
	h, err := safecast.Conv[uint32](b.Dy())
	if err != nil {
		return nil, fmt.Errorf("page height overflow: %w", err)
	}

	rowLen := b.Dx() * 4
	if img.Stride == rowLen && b.Min == (image.Point{}) {
		return &RenderedPage{WidthPx: w, HeightPx: h, Pixels: img.Pix[:rowLen*b.Dy()]}, nil
	}
	pix := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+rowLen]...)
	}
	return &RenderedPage{WidthPx: w, HeightPx: h, Pixels: pix}, nil
}

// renderMerged stacks every page vertically on a white background.
func (e *Engine) renderMerged(pixelPerPt float64) *image.RGBA {
	images := make([]*image.RGBA, len(e.doc.Pages))
	width, height := 0, 0
	for i, page := range e.doc.Pages {
		img := e.backend.Render(page, pixelPerPt)
		images[i] = img
		width = max(width, img.Bounds().Dx())
		height += img.Bounds().Dy()
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	y := 0
	for _, img := range images {
		r := img.Bounds()
		dst := image.Rect(0, y, r.Dx(), y+r.Dy())
		draw.Draw(out, dst, img, r.Min, draw.Over)
		y += r.Dy()
	}
	return out
}
