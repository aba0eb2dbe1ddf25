package paged

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is a straight-alpha sRGB color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	White = Color{R: 1, G: 1, B: 1, A: 1}
	Black = Color{A: 1}
)

// RGB8 builds an opaque color from 8-bit components.
func RGB8(r, g, b uint8) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: 1}
}

// RGBA8 returns the color as straight-alpha 8-bit components.
func (c Color) RGBA8() (r, g, b, a uint8) {
	return to8(c.R), to8(c.G), to8(c.B), to8(c.A)
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ParseHex parses "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa"; the leading '#' is
// optional.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 || len(h) == 4 {
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	c := RGB8(uint8(v>>24), uint8(v>>16), uint8(v>>8))
	c.A = float64(uint8(v)) / 255
	return c, nil
}

// Hex renders the color as "#rrggbbaa".
func (c Color) Hex() string {
	r, g, b, a := c.RGBA8()
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}
