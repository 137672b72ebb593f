package image

import (
	"image"
	"image/color"
	"math"

	"spectrogram-annotator/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Composite is the image stage of a frame: a background color with the
// spectrogram layers scaled into place over it.
type Composite struct {
	Layers    []*Layer
	BackColor color.Color
	Scaler    xdraw.Interpolator
}

// NewComposite creates a Composite with the default background and scaler.
func NewComposite(layers ...*Layer) *Composite {
	return &Composite{
		Layers:    layers,
		BackColor: color.RGBA{20, 20, 24, 255},
		Scaler:    xdraw.ApproxBiLinear,
	}
}

// AddLayer adds a layer to the composite.
func (c *Composite) AddLayer(layer *Layer) {
	c.Layers = append(c.Layers, layer)
}

// Draw fills output with the background and draws every layer for vp.
// Layers outside vp, or a non-renderable vp, leave only the background.
func (c *Composite) Draw(output *image.RGBA, vp geometry.Window) {
	back := c.BackColor
	if back == nil {
		back = color.Black
	}
	xdraw.Draw(output, output.Bounds(), &image.Uniform{back}, image.Point{}, xdraw.Src)
	for _, layer := range c.Layers {
		DrawLayer(output, vp, layer, c.Scaler)
	}
}

// Render produces a width by height frame for vp.
func (c *Composite) Render(vp geometry.Window, width, height int) *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, width, height))
	c.Draw(result, vp)
	return result
}

// SourceRect returns the region of the layer image that shows the part of
// the layer inside vp, and the destination rectangle it occupies on a
// surface of the given size. ok is false when nothing is visible.
func SourceRect(dims geometry.Dimensions, vp geometry.Window, layer *Layer) (src, dst image.Rectangle, ok bool) {
	if layer == nil || layer.Image == nil || !vp.Renderable() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	if layer.Time.Degenerate() || layer.Freq.Degenerate() {
		return image.Rectangle{}, image.Rectangle{}, false
	}

	ot := geometry.Interval{Min: math.Max(vp.Time.Min, layer.Time.Min), Max: math.Min(vp.Time.Max, layer.Time.Max)}
	of := geometry.Interval{Min: math.Max(vp.Freq.Min, layer.Freq.Min), Max: math.Min(vp.Freq.Max, layer.Freq.Max)}
	if ot.Degenerate() || of.Degenerate() {
		return image.Rectangle{}, image.Rectangle{}, false
	}

	b := layer.Image.Bounds()
	imgW, imgH := float64(b.Dx()), float64(b.Dy())

	sx0 := (ot.Min - layer.Time.Min) / layer.Time.Width() * imgW
	sx1 := (ot.Max - layer.Time.Min) / layer.Time.Width() * imgW
	sy0 := (layer.Freq.Max - of.Max) / layer.Freq.Width() * imgH
	sy1 := (layer.Freq.Max - of.Min) / layer.Freq.Width() * imgH
	src = image.Rect(
		b.Min.X+int(math.Floor(sx0)), b.Min.Y+int(math.Floor(sy0)),
		b.Min.X+int(math.Ceil(sx1)), b.Min.Y+int(math.Ceil(sy1)),
	).Intersect(b)

	dst = image.Rect(
		int(math.Round(geometry.TimeToX(dims, vp, ot.Min))),
		int(math.Round(geometry.FreqToY(dims, vp, of.Max))),
		int(math.Round(geometry.TimeToX(dims, vp, ot.Max))),
		int(math.Round(geometry.FreqToY(dims, vp, of.Min))),
	)
	if src.Empty() || dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	return src, dst, true
}

// DrawLayer draws the visible portion of layer into output, cropped and
// scaled to its position within vp. Invisible or empty layers are skipped.
func DrawLayer(output *image.RGBA, vp geometry.Window, layer *Layer, scaler xdraw.Interpolator) {
	if layer == nil || !layer.Visible || layer.Opacity <= 0 {
		return
	}
	b := output.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())
	src, dst, ok := SourceRect(dims, vp, layer)
	if !ok {
		return
	}
	dst = dst.Add(b.Min)
	if scaler == nil {
		scaler = xdraw.ApproxBiLinear
	}

	if layer.Opacity >= 0.999 {
		scaler.Scale(output, dst, layer.Image, src, xdraw.Over, nil)
		return
	}

	tmp := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	scaler.Scale(tmp, tmp.Bounds(), layer.Image, src, xdraw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(layer.Opacity * 255)})
	xdraw.DrawMask(output, dst, tmp, image.Point{}, mask, image.Point{}, xdraw.Over)
}
