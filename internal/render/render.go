// Package render draws one frame of a spectrogram view.
//
// Draw is a pure function of its inputs: the target image, the viewport and
// a Scene holding everything else. Its stages run in a fixed order and each
// is skipped when it has nothing to draw:
//
//  1. spectrogram tiles clipped to the viewport
//  2. time and frequency axes
//  3. annotations inside the viewport
//  4. gesture feedback (zoom box, shape being drawn, handles, hover)
//  5. playback onset marker
package render

import (
	"image"
	"image/color"
	"math"

	"spectrogram-annotator/internal/annotation"
	"spectrogram-annotator/internal/axis"
	specimage "spectrogram-annotator/internal/image"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/pkg/colorutil"
	"spectrogram-annotator/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Style sets the colors and sizes used for overlays.
type Style struct {
	Background    color.RGBA
	Untagged      color.RGBA
	Selected      color.RGBA
	Hover         color.RGBA
	Transient     color.RGBA
	ZoomBox       color.RGBA
	Handle        color.RGBA
	Onset         color.RGBA
	FillAlpha     uint8
	LineWidth     int
	HandleSize    int
	PointRadius   float64
	ShowLabels    bool
	ShowAxes      bool
	Axis          axis.Style
	Interpolation xdraw.Interpolator
}

// DefaultStyle returns the standard overlay style.
func DefaultStyle() Style {
	return Style{
		Background:    color.RGBA{R: 20, G: 20, B: 24, A: 255},
		Untagged:      colorutil.White,
		Selected:      colorutil.Yellow,
		Hover:         colorutil.Cyan,
		Transient:     colorutil.Magenta,
		ZoomBox:       colorutil.White,
		Handle:        colorutil.Yellow,
		Onset:         colorutil.Red,
		FillAlpha:     48,
		LineWidth:     2,
		HandleSize:    6,
		PointRadius:   4,
		ShowLabels:    true,
		ShowAxes:      true,
		Axis:          axis.DefaultStyle(),
		Interpolation: xdraw.ApproxBiLinear,
	}
}

// Scene is the state drawn over a viewport. A nil Onset means playback is
// stopped.
type Scene struct {
	Tiles       []*specimage.Layer
	Annotations []annotation.Annotation
	TagColors   colorutil.TagColors
	Feedback    interaction.Feedback
	Onset       *float64
	Style       Style
}

// Draw renders the scene into dst. A viewport that cannot be rendered
// leaves only the background.
func Draw(dst *image.RGBA, vp geometry.Window, scene Scene) {
	st := scene.Style
	tiles := specimage.Composite{Layers: scene.Tiles, BackColor: st.Background, Scaler: st.Interpolation}
	tiles.Draw(dst, vp)
	if !vp.Renderable() || dst.Bounds().Empty() {
		return
	}

	if st.ShowAxes {
		axis.Draw(dst, vp, st.Axis)
	}
	drawAnnotations(dst, vp, scene.Annotations, scene.TagColors, st)
	drawFeedback(dst, vp, scene.Feedback, scene.TagColors, st)
	drawOnset(dst, vp, scene.Onset, st)
}

// ColorFor returns the stroke color of an annotation: its first tag's
// assigned color, or the untagged color.
func ColorFor(a annotation.Annotation, colors colorutil.TagColors, st Style) color.RGBA {
	if c, ok := colors[a.FirstTag()]; ok && a.FirstTag() != "" {
		return c
	}
	return st.Untagged
}

// HoverColor returns the highlight for a hovered annotation: a lighter
// shade of its tag color, or the hover color when untagged.
func HoverColor(a annotation.Annotation, colors colorutil.TagColors, st Style) color.RGBA {
	if c, ok := colors[a.FirstTag()]; ok && a.FirstTag() != "" {
		return colorutil.Highlight(c)
	}
	return st.Hover
}

func drawAnnotations(dst *image.RGBA, vp geometry.Window, list []annotation.Annotation, colors colorutil.TagColors, st Style) {
	visible := annotation.Visible(list, vp)
	if len(visible) == 0 {
		return
	}
	b := dst.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())
	for _, a := range visible {
		col := ColorFor(a, colors, st)
		drawGeometry(dst, dims, vp, a.Geometry, col, st.LineWidth, st)
		if st.ShowLabels && a.FirstTag() != "" {
			drawLabel(dst, dims, vp, a, col, st)
		}
	}
}

func drawLabel(dst *image.RGBA, dims geometry.Dimensions, vp geometry.Window, a annotation.Annotation, col color.RGBA, st Style) {
	bounds := a.Geometry.Bounds()
	x := geometry.TimeToX(dims, vp, bounds.Time.Min)
	y := 0.0
	if !math.IsInf(bounds.Freq.Max, 0) {
		y = geometry.FreqToY(dims, vp, bounds.Freq.Max) - float64(specimage.LabelFace.Metrics().Height.Ceil()) - 3
	}
	x = math.Max(0, x)
	y = math.Max(0, y)
	origin := dst.Bounds().Min
	specimage.DrawTextBox(dst, a.FirstTag(), origin.X+int(x)+2, origin.Y+int(y)+2, colorutil.Black, col)
}

// drawGeometry scales a domain geometry into the frame and strokes it.
func drawGeometry(dst *image.RGBA, dims geometry.Dimensions, vp geometry.Window, g geometry.Geometry, col color.RGBA, width int, st Style) {
	if g == nil {
		return
	}
	px := geometry.ScaleToViewport(dims, g, vp)
	px.Accept(&painter{dst: dst, col: col, width: width, st: st})
}

// painter draws pixel-space geometries. Each variant has its own method so
// a new variant cannot be left undrawn.
type painter struct {
	dst   *image.RGBA
	col   color.RGBA
	width int
	st    Style
}

func (p *painter) x(v float64) int { return p.dst.Bounds().Min.X + int(math.Round(v)) }
func (p *painter) y(v float64) int { return p.dst.Bounds().Min.Y + int(math.Round(v)) }

func (p *painter) TimeStamp(g geometry.TimeStamp) {
	b := p.dst.Bounds()
	specimage.VLine(p.dst, p.x(g.Time), b.Min.Y, b.Max.Y-1, p.col, p.width)
}

func (p *painter) TimeInterval(g geometry.TimeInterval) {
	b := p.dst.Bounds()
	x1, x2 := p.x(g.Start), p.x(g.End)
	specimage.FillRect(p.dst, min(x1, x2), b.Min.Y, max(x1, x2), b.Max.Y-1, colorutil.WithAlpha(p.col, p.st.FillAlpha))
	specimage.VLine(p.dst, x1, b.Min.Y, b.Max.Y-1, p.col, p.width)
	specimage.VLine(p.dst, x2, b.Min.Y, b.Max.Y-1, p.col, p.width)
}

func (p *painter) BoundingBox(g geometry.BoundingBox) {
	x1, x2 := p.x(g.StartTime), p.x(g.EndTime)
	y1, y2 := p.y(g.HighFreq), p.y(g.LowFreq)
	specimage.StrokeRect(p.dst, x1, y1, x2, y2, p.col, p.width)
}

func (p *painter) Point(g geometry.Point) {
	specimage.DrawCircle(p.dst, float64(p.x(g.Time)), float64(p.y(g.Freq)), p.st.PointRadius, p.col, true)
}

func (p *painter) MultiPoint(g geometry.MultiPoint) {
	for _, pt := range g {
		p.Point(geometry.Point(pt))
	}
}

func (p *painter) line(ps []geometry.Position, closed bool) {
	n := len(ps)
	for i := 0; i+1 < n; i++ {
		specimage.DrawLine(p.dst, p.x(ps[i].Time), p.y(ps[i].Freq), p.x(ps[i+1].Time), p.y(ps[i+1].Freq), p.col, p.width)
	}
	if closed && n > 2 {
		specimage.DrawLine(p.dst, p.x(ps[n-1].Time), p.y(ps[n-1].Freq), p.x(ps[0].Time), p.y(ps[0].Freq), p.col, p.width)
	}
}

func (p *painter) LineString(g geometry.LineString) {
	p.line(g, false)
}

func (p *painter) MultiLineString(g geometry.MultiLineString) {
	for _, l := range g {
		p.line(l, false)
	}
}

func (p *painter) Polygon(g geometry.Polygon) {
	if len(g) == 0 {
		return
	}
	outer := g[0]
	xs := make([]float64, len(outer))
	ys := make([]float64, len(outer))
	for i, pt := range outer {
		xs[i] = float64(p.x(pt.Time))
		ys[i] = float64(p.y(pt.Freq))
	}
	specimage.FillPolygon(p.dst, xs, ys, colorutil.WithAlpha(p.col, p.st.FillAlpha))
	for _, ring := range g {
		p.line(ring, true)
	}
}

func (p *painter) MultiPolygon(g geometry.MultiPolygon) {
	for _, poly := range g {
		p.Polygon(poly)
	}
}

func (p *painter) GeometryCollection(g geometry.GeometryCollection) {
	for _, child := range g {
		child.Accept(p)
	}
}

func drawFeedback(dst *image.RGBA, vp geometry.Window, fb interaction.Feedback, colors colorutil.TagColors, st Style) {
	b := dst.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())

	if fb.Hovered != nil {
		drawGeometry(dst, dims, vp, fb.Hovered.Geometry, HoverColor(*fb.Hovered, colors, st), st.LineWidth+1, st)
	}
	if fb.Selected != nil && fb.Transient == nil {
		drawGeometry(dst, dims, vp, fb.Selected.Geometry, st.Selected, st.LineWidth+1, st)
	}

	if fb.Transient != nil {
		if fb.Mode == interaction.ModeZooming {
			box := geometry.ScaleToViewport(dims, fb.Transient, vp).Bounds()
			specimage.DashedRect(dst,
				b.Min.X+int(math.Round(box.Time.Min)), b.Min.Y+int(math.Round(box.Freq.Min)),
				b.Min.X+int(math.Round(box.Time.Max)), b.Min.Y+int(math.Round(box.Freq.Max)),
				st.ZoomBox)
		} else {
			col := st.Transient
			if fb.Mode == interaction.ModeEditing && !fb.Copying {
				col = st.Selected
			}
			drawGeometry(dst, dims, vp, fb.Transient, col, st.LineWidth, st)
		}
	}

	half := st.HandleSize / 2
	for _, h := range fb.Handles {
		px := geometry.ToPixel(dims, vp, h.Position)
		x, y := b.Min.X+int(math.Round(px.X)), b.Min.Y+int(math.Round(px.Y))
		specimage.FillRect(dst, x-half, y-half, x+half, y+half, st.Handle)
		specimage.StrokeRect(dst, x-half, y-half, x+half, y+half, colorutil.Black, 1)
	}
}

func drawOnset(dst *image.RGBA, vp geometry.Window, onset *float64, st Style) {
	if onset == nil || !vp.Time.Contains(*onset) {
		return
	}
	b := dst.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())
	x := b.Min.X + int(math.Round(geometry.TimeToX(dims, vp, *onset)))
	specimage.VLine(dst, x, b.Min.Y, b.Max.Y-1, st.Onset, 2)
}
