package image

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabelFace is the face used for axis and annotation labels.
var LabelFace font.Face = basicfont.Face7x13

// setPixel writes col at (x, y), alpha blending when col is translucent and
// ignoring points outside the image.
func setPixel(output *image.RGBA, x, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(output.Bounds()) {
		return
	}
	if col.A == 255 {
		output.SetRGBA(x, y, col)
		return
	}
	if col.A == 0 {
		return
	}
	a := float64(col.A) / 255
	inv := 1 - a
	existing := output.RGBAAt(x, y)
	output.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(col.R)*a + float64(existing.R)*inv),
		G: uint8(float64(col.G)*a + float64(existing.G)*inv),
		B: uint8(float64(col.B)*a + float64(existing.B)*inv),
		A: 255,
	})
}

// DrawLine draws a line between two points using Bresenham's algorithm.
func DrawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	half := thickness / 2

	for {
		for t := -half; t <= half; t++ {
			for s := -half; s <= half; s++ {
				setPixel(output, x1+s, y1+t, col)
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// VLine draws a full-height vertical line at column x.
func VLine(output *image.RGBA, x, y1, y2 int, col color.RGBA, thickness int) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	half := thickness / 2
	for y := y1; y <= y2; y++ {
		for s := -half; s <= half; s++ {
			setPixel(output, x+s, y, col)
		}
	}
}

// StrokeRect draws a rectangle outline.
func StrokeRect(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(output, x, y1+t, col)
			setPixel(output, x, y2-t, col)
		}
		for y := y1 + thickness; y <= y2-thickness; y++ {
			setPixel(output, x1+t, y, col)
			setPixel(output, x2-t, y, col)
		}
	}
}

// FillRect fills a rectangle, blending translucent colors.
func FillRect(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	r := image.Rect(x1, y1, x2+1, y2+1).Intersect(output.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setPixel(output, x, y, col)
		}
	}
}

// DashedRect draws a selection rectangle with a dashed outline.
func DashedRect(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for x := x1; x <= x2; x++ {
		if (x+y1)%4 < 2 {
			setPixel(output, x, y1, col)
		}
		if (x+y2)%4 < 2 {
			setPixel(output, x, y2, col)
		}
	}
	for y := y1; y <= y2; y++ {
		if (x1+y)%4 < 2 {
			setPixel(output, x1, y, col)
		}
		if (x2+y)%4 < 2 {
			setPixel(output, x2, y, col)
		}
	}
}

// FillPolygon fills a closed ring using a scanline algorithm.
func FillPolygon(output *image.RGBA, xs, ys []float64, col color.RGBA) {
	n := len(xs)
	if n < 3 || len(ys) != n {
		return
	}

	minY, maxY := ys[0], ys[0]
	for _, y := range ys[1:] {
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	bounds := output.Bounds()
	yStart := int(math.Max(minY, float64(bounds.Min.Y)))
	yEnd := int(math.Min(maxY, float64(bounds.Max.Y-1)))

	var crossings []float64
	for y := yStart; y <= yEnd; y++ {
		fy := float64(y) + 0.5
		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			if (ys[i] <= fy && ys[j] > fy) || (ys[j] <= fy && ys[i] > fy) {
				t := (fy - ys[i]) / (ys[j] - ys[i])
				crossings = append(crossings, xs[i]+t*(xs[j]-xs[i]))
			}
		}
		sort.Float64s(crossings)
		for i := 0; i+1 < len(crossings); i += 2 {
			for x := int(crossings[i]); x <= int(crossings[i+1]); x++ {
				setPixel(output, x, y, col)
			}
		}
	}
}

// DrawCircle draws a filled or outlined circle.
func DrawCircle(output *image.RGBA, cx, cy, r float64, col color.RGBA, filled bool) {
	minX := int(cx - r - 1)
	maxX := int(cx + r + 1)
	minY := int(cy - r - 1)
	maxY := int(cy + r + 1)

	r2 := r * r
	innerR2 := (r - 2) * (r - 2)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			dist2 := dx*dx + dy*dy
			if dist2 <= r2 && (filled || dist2 >= innerR2) {
				setPixel(output, x, y, col)
			}
		}
	}
}

// TextWidth returns the advance of label in pixels.
func TextWidth(label string) int {
	d := &font.Drawer{Face: LabelFace}
	return d.MeasureString(label).Ceil()
}

// DrawText draws label with its baseline-left corner at (x, y).
func DrawText(output *image.RGBA, label string, x, y int, col color.RGBA) {
	d := &font.Drawer{
		Dst:  output,
		Src:  image.NewUniform(col),
		Face: LabelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

// DrawTextBox draws label on a filled background box whose top-left corner
// is (x, y).
func DrawTextBox(output *image.RGBA, label string, x, y int, fg, bg color.RGBA) {
	m := LabelFace.Metrics()
	ascent := m.Ascent.Ceil()
	height := m.Height.Ceil()
	FillRect(output, x, y, x+TextWidth(label)+3, y+height+1, bg)
	DrawText(output, label, x+2, y+ascent+1, fg)
}
