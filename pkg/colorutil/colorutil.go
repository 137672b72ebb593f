// Package colorutil provides shared color utilities for the spectrogram
// annotator.
package colorutil

import (
	"image/color"
	"math"
)

// Common overlay colors used throughout the application.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Red     = color.RGBA{R: 255, G: 40, B: 40, A: 255}
)

// Palette is the ordered list of tag colors. Tags receive colors in
// first-use order, wrapping around when the palette is exhausted.
var Palette = buildPalette(12)

// TagColors maps a tag key to its assigned color. It is owned by the caller
// and passed into rendering explicitly.
type TagColors map[string]color.RGBA

// Assign returns the color for tag and the mapping that includes it. The
// input map is never modified; a new map is returned when tag was unseen.
func Assign(existing TagColors, tag string) (color.RGBA, TagColors) {
	if c, ok := existing[tag]; ok {
		return c, existing
	}
	c := Palette[len(existing)%len(Palette)]
	updated := make(TagColors, len(existing)+1)
	for k, v := range existing {
		updated[k] = v
	}
	updated[tag] = c
	return c, updated
}

// AssignAll assigns colors to every tag in order, returning the final map.
func AssignAll(existing TagColors, tags []string) TagColors {
	out := existing
	for _, tag := range tags {
		_, out = Assign(out, tag)
	}
	return out
}

// WithAlpha returns c with the alpha channel replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// Highlight returns a lighter, less saturated version of c with the same
// hue and alpha.
func Highlight(c color.RGBA) color.RGBA {
	h, s, v := RGBToHSV(float64(c.R), float64(c.G), float64(c.B))
	s *= 0.5
	v = math.Max(v, 255)
	r, g, b := HSVToRGB(h, s, v)
	return color.RGBA{R: uint8(math.Round(r)), G: uint8(math.Round(g)), B: uint8(math.Round(b)), A: c.A}
}

// buildPalette spreads n hues around the color wheel, alternating value so
// neighbors stay distinguishable.
func buildPalette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		h := math.Mod(float64(i)*360.0/float64(n)*5, 360) // step by 5/n of a turn
		v := 255.0
		if i%2 == 1 {
			v = 200.0
		}
		r, g, b := HSVToRGB(h, 200, v)
		out[i] = color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
	}
	return out
}

// HSVToRGB converts HSV (H 0-360, S 0-255, V 0-255) to RGB (0-255).
func HSVToRGB(h, s, v float64) (r, g, b float64) {
	s /= 255.0
	v /= 255.0

	c := v * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r1, g1, b1 float64
	switch {
	case hp < 1:
		r1, g1, b1 = c, x, 0
	case hp < 2:
		r1, g1, b1 = x, c, 0
	case hp < 3:
		r1, g1, b1 = 0, c, x
	case hp < 4:
		r1, g1, b1 = 0, x, c
	case hp < 5:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	m := v - c
	return (r1 + m) * 255, (g1 + m) * 255, (b1 + m) * 255
}

// RGBToHSV converts RGB (0-255) to HSV (H 0-360, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}
