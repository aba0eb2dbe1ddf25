package paged

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/source"
)

func sampleFrame(fill Color) *Frame {
	inner := NewFrame(Size{W: 100, H: 20})
	inner.Push(Point{X: 0, Y: 12}, &Text{
		Size:   12,
		Fill:   Solid{Color: fill},
		Text:   "hello",
		Glyphs: []Glyph{{ID: 1, XAdvance: 0.5, Range: [2]int{0, 5}}},
	})
	f := NewFrame(Size{W: 595, H: 842})
	f.Push(Point{X: 72, Y: 72}, &Group{Frame: inner, Transform: Identity()})
	f.Push(Point{X: 10, Y: 10}, &Shape{
		Geometry: Geometry{Kind: GeomRect, Size: Size{W: 5, H: 5}},
		Fill:     &Gradient{Stops: []Stop{{Color: Black}, {Color: White, Offset: 1}}},
	})
	return f
}

func TestFingerprintIsStable(t *testing.T) {
	assert.Equal(t, Fingerprint(sampleFrame(Black)), Fingerprint(sampleFrame(Black)))
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := Fingerprint(sampleFrame(Black))
	assert.NotEqual(t, base, Fingerprint(sampleFrame(RGB8(255, 0, 0))))

	moved := sampleFrame(Black)
	moved.Items[0].Pos.X++
	assert.NotEqual(t, base, Fingerprint(moved))

	nested := sampleFrame(Black)
	nested.Items[0].Item.(*Group).Frame.Items[0].Item.(*Text).Text = "hellO"
	assert.NotEqual(t, base, Fingerprint(nested))
}

func TestFingerprintIgnoresSourceLocation(t *testing.T) {
	base := Fingerprint(sampleFrame(Black))

	shifted := sampleFrame(Black)
	text := shifted.Items[0].Item.(*Group).Frame.Items[0].Item.(*Text)
	text.Glyphs[0].Span = source.Span{File: source.NewFakeID("MAIN"), Start: 40, End: 45}
	text.Glyphs[0].Offset = 3
	shifted.Push(Point{}, &Tag{Kind: TagStart, Element: 7})

	other := sampleFrame(Black)
	other.Push(Point{}, &Tag{Kind: TagStart, Element: 2})
	assert.NotEqual(t, base, Fingerprint(shifted))
	assert.Equal(t, Fingerprint(other), Fingerprint(shifted))
}

func TestFingerprintOfEmptyFrames(t *testing.T) {
	assert.Equal(t, Fingerprint(NewFrame(Size{W: 1, H: 1})), Fingerprint(NewFrame(Size{W: 1, H: 1})))
	assert.NotEqual(t, Fingerprint(NewFrame(Size{W: 1, H: 1})), Fingerprint(NewFrame(Size{W: 1, H: 2})))
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#ffffffff"},
		{"000", "#000000ff"},
		{"#11223344", "#11223344"},
		{"#a1b2c3", "#a1b2c3ff"},
	}
	for _, tt := range tests {
		c, err := ParseHex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, c.Hex())
	}

	_, err := ParseHex("#12345")
	assert.Error(t, err)
	_, err = ParseHex("#zzzzzz")
	assert.Error(t, err)
}

func TestTransformInvert(t *testing.T) {
	tr := Scale(2, 4).Then(Translate(10, -3))
	p := Point{X: 3, Y: 5}
	q := tr.Apply(p)
	assert.Equal(t, Point{X: 16, Y: 17}, q)

	inv, ok := tr.Invert()
	require.True(t, ok)
	back := inv.Apply(q)
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = Scale(0, 1).Invert()
	assert.False(t, ok)
}

func TestFillOrWhite(t *testing.T) {
	assert.Equal(t, Solid{Color: White}, (&Page{FillAuto: true}).FillOrWhite())
	assert.Nil(t, (&Page{}).FillOrWhite())
	red := Solid{Color: RGB8(255, 0, 0)}
	assert.Equal(t, red, (&Page{Fill: red}).FillOrWhite())
}
