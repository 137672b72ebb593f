package axis

import (
	"image"
	"image/color"
	"math"

	specimage "spectrogram-annotator/internal/image"
	"spectrogram-annotator/pkg/geometry"
)

// Style controls how axes are drawn.
type Style struct {
	Color       color.RGBA
	LabelBack   color.RGBA
	MajorLength int
	MinorLength int
	ShowGrid    bool
	GridColor   color.RGBA
}

// DefaultStyle returns light ticks with translucent label backgrounds.
func DefaultStyle() Style {
	return Style{
		Color:       color.RGBA{R: 230, G: 230, B: 230, A: 255},
		LabelBack:   color.RGBA{R: 0, G: 0, B: 0, A: 140},
		MajorLength: 8,
		MinorLength: 4,
		GridColor:   color.RGBA{R: 255, G: 255, B: 255, A: 40},
	}
}

// Draw draws the time axis along the bottom edge and the frequency axis
// along the left edge of output.
func Draw(output *image.RGBA, vp geometry.Window, style Style) {
	if !vp.Renderable() {
		return
	}
	b := output.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())

	drawTimeAxis(output, dims, vp, style)
	drawFreqAxis(output, dims, vp, style)
}

func drawTimeAxis(output *image.RGBA, dims geometry.Dimensions, vp geometry.Window, style Style) {
	b := output.Bounds()
	ticks := Ticks(dims.Width, vp.Time)
	bottom := b.Max.Y - 1

	for _, t := range ticks.Minor {
		x := b.Min.X + int(math.Round(geometry.TimeToX(dims, vp, t)))
		specimage.VLine(output, x, bottom-style.MinorLength, bottom, style.Color, 1)
	}
	for _, t := range ticks.Major {
		x := b.Min.X + int(math.Round(geometry.TimeToX(dims, vp, t)))
		if style.ShowGrid {
			specimage.VLine(output, x, b.Min.Y, bottom, style.GridColor, 1)
		}
		specimage.VLine(output, x, bottom-style.MajorLength, bottom, style.Color, 1)

		label := FormatTime(t, ticks.Step)
		h := specimage.LabelFace.Metrics().Height.Ceil()
		lx := x - specimage.TextWidth(label)/2
		specimage.DrawTextBox(output, label, lx, bottom-style.MajorLength-h-3, style.Color, style.LabelBack)
	}
}

func drawFreqAxis(output *image.RGBA, dims geometry.Dimensions, vp geometry.Window, style Style) {
	b := output.Bounds()
	ticks := Ticks(dims.Height, vp.Freq)
	left := b.Min.X

	for _, f := range ticks.Minor {
		y := b.Min.Y + int(math.Round(geometry.FreqToY(dims, vp, f)))
		specimage.DrawLine(output, left, y, left+style.MinorLength, y, style.Color, 1)
	}
	for _, f := range ticks.Major {
		y := b.Min.Y + int(math.Round(geometry.FreqToY(dims, vp, f)))
		if style.ShowGrid {
			specimage.DrawLine(output, left, y, b.Max.X-1, y, style.GridColor, 1)
		}
		specimage.DrawLine(output, left, y, left+style.MajorLength, y, style.Color, 1)

		label := FormatFreq(f, ticks.Step)
		h := specimage.LabelFace.Metrics().Height.Ceil()
		specimage.DrawTextBox(output, label, left+style.MajorLength+2, y-h/2, style.Color, style.LabelBack)
	}
}
