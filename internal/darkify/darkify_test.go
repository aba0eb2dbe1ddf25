package darkify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/paged"
)

func assertColor(t *testing.T, want, got paged.Color) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1e-6)
	assert.InDelta(t, want.G, got.G, 1e-6)
	assert.InDelta(t, want.B, got.B, 1e-6)
	assert.InDelta(t, want.A, got.A, 1e-6)
}

func TestInvertColor(t *testing.T) {
	assertColor(t, paged.Black, InvertColor(paged.White))
	assertColor(t, paged.White, InvertColor(paged.Black))

	gray := paged.Color{R: 0.5, G: 0.5, B: 0.5, A: 0.25}
	assertColor(t, gray, InvertColor(gray))
}

func TestInvertColorKeepsHue(t *testing.T) {
	darkRed := paged.Color{R: 0.4, A: 1}
	got := InvertColor(darkRed)
	assert.InDelta(t, 1.0, got.R, 1e-6)
	assert.InDelta(t, 0.6, got.G, 1e-6)
	assert.InDelta(t, 0.6, got.B, 1e-6)
}

func TestInvertColorIsInvolution(t *testing.T) {
	c := paged.RGB8(30, 144, 255)
	assertColor(t, c, InvertColor(InvertColor(c)))
}

func TestInvertPage(t *testing.T) {
	tiling := &paged.Tiling{Size: paged.Size{W: 4, H: 4}}
	inner := paged.NewFrame(paged.Size{W: 50, H: 10})
	inner.Push(paged.Point{}, &paged.Text{
		Fill:   paged.Solid{Color: paged.Black},
		Stroke: &paged.Stroke{Paint: paged.Solid{Color: paged.Black}, Thickness: 1},
		Text:   "x",
	})
	frame := paged.NewFrame(paged.Size{W: 100, H: 100})
	frame.Push(paged.Point{X: 5, Y: 5}, &paged.Group{Frame: inner, Transform: paged.Translate(1, 2), Label: "g"})
	frame.Push(paged.Point{X: 1}, &paged.Shape{
		Fill: &paged.Gradient{
			Space: paged.SpaceOklab,
			Stops: []paged.Stop{{Color: paged.Black}, {Color: paged.White, Offset: 1}},
		},
	})
	frame.Push(paged.Point{X: 2}, &paged.Shape{Fill: tiling})
	img := &paged.Image{Format: "png", Data: []byte{1, 2, 3}}
	frame.Push(paged.Point{X: 3}, img)

	page := &paged.Page{Frame: frame, FillAuto: true, Number: 3}
	before := paged.Fingerprint(frame)

	dark := InvertPage(page)
	assert.Equal(t, before, paged.Fingerprint(frame), "input must stay untouched")
	assert.Equal(t, 3, dark.Number)
	assert.False(t, dark.FillAuto)
	require.IsType(t, paged.Solid{}, dark.Fill)
	assertColor(t, paged.Black, dark.Fill.(paged.Solid).Color)

	group := dark.Frame.Items[0].Item.(*paged.Group)
	assert.Equal(t, paged.Translate(1, 2), group.Transform)
	assert.Equal(t, "g", group.Label)
	text := group.Frame.Items[0].Item.(*paged.Text)
	assertColor(t, paged.White, text.Fill.(paged.Solid).Color)
	assertColor(t, paged.White, text.Stroke.Paint.(paged.Solid).Color)
	assert.Equal(t, "x", text.Text)

	grad := dark.Frame.Items[1].Item.(*paged.Shape).Fill.(*paged.Gradient)
	assert.Equal(t, paged.SpaceHSL, grad.Space)
	assertColor(t, paged.White, grad.Stops[0].Color)
	assertColor(t, paged.Black, grad.Stops[1].Color)
	assert.Equal(t, 1.0, grad.Stops[1].Offset)

	assert.Same(t, tiling, dark.Frame.Items[2].Item.(*paged.Shape).Fill)
	assert.Same(t, img, dark.Frame.Items[3].Item)
	assert.Equal(t, paged.Point{X: 5, Y: 5}, dark.Frame.Items[0].Pos)
}

func TestInvertPageKeepsTransparentFill(t *testing.T) {
	dark := InvertPage(&paged.Page{Frame: paged.NewFrame(paged.Size{W: 1, H: 1})})
	assert.Nil(t, dark.Fill)
}
