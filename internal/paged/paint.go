package paged

// Paint is how a shape or glyph run is filled: Solid, *Gradient or *Tiling.
type Paint interface {
	isPaint()
}

// Solid fills with a single color.
type Solid struct {
	Color Color
}

// ColorSpace is the space gradient stops are interpolated in.
type ColorSpace uint8

const (
	SpaceOklab ColorSpace = iota
	SpaceSRGB
	SpaceLinearRGB
	SpaceHSL
	SpaceHSV
	SpaceLuma
)

// GradientKind is the geometry of a gradient.
type GradientKind uint8

const (
	GradientLinear GradientKind = iota
	GradientRadial
	GradientConic
)

// Stop is a gradient color stop; Offset is in [0, 1].
type Stop struct {
	Color  Color
	Offset float64
}

// Gradient fills with interpolated stops.
type Gradient struct {
	Kind   GradientKind
	Stops  []Stop
	Space  ColorSpace
	Angle  float64
	Center Point
	Radius float64
}

// Tiling fills by repeating a frame.
type Tiling struct {
	Size    Size
	Spacing Size
	Body    *Frame
}

func (Solid) isPaint()     {}
func (*Gradient) isPaint() {}
func (*Tiling) isPaint()   {}

// Stroke outlines a shape.
type Stroke struct {
	Paint     Paint
	Thickness float64
	Dash      []float64
}
