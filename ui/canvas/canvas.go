// Package canvas provides the fyne widget that shows a spectrogram session
// and feeds pointer input to its gesture layer.
package canvas

import (
	"image"
	"math"
	"sync"

	"spectrogram-annotator/internal/app"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// SpectrogramCanvas draws a session into a raster and translates mouse,
// wheel and double-click events into the session's gesture props.
type SpectrogramCanvas struct {
	widget.BaseWidget

	session *app.Session
	props   interaction.Props
	raster  *fynecanvas.Raster

	mu      sync.Mutex
	pressed bool
	last    geometry.Point2D

	// Last rendered output for export
	lastOutput *image.RGBA
}

var (
	_ fyne.Draggable      = (*SpectrogramCanvas)(nil)
	_ fyne.Scrollable     = (*SpectrogramCanvas)(nil)
	_ fyne.DoubleTappable = (*SpectrogramCanvas)(nil)
	_ desktop.Mouseable   = (*SpectrogramCanvas)(nil)
	_ desktop.Hoverable   = (*SpectrogramCanvas)(nil)
)

// New creates a canvas showing session. The canvas redraws whenever the
// session reports a visible change.
func New(session *app.Session) *SpectrogramCanvas {
	c := &SpectrogramCanvas{
		session: session,
		props:   session.Props(),
	}

	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.raster.SetMinSize(fyne.NewSize(640, 320))

	refresh := func(interface{}) { c.Refresh() }
	for _, ev := range []app.EventType{
		app.EventRecordingLoaded,
		app.EventParamsChanged,
		app.EventViewportChanged,
		app.EventSegmentLoaded,
		app.EventModeChanged,
		app.EventAnnotationsChanged,
		app.EventSelectionChanged,
		app.EventPlayback,
	} {
		session.On(ev, refresh)
	}

	c.ExtendBaseWidget(c)
	return c
}

// Session returns the session shown by the canvas.
func (c *SpectrogramCanvas) Session() *app.Session {
	return c.session
}

// CreateRenderer implements fyne.Widget.
func (c *SpectrogramCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}

// Resize keeps the gesture layer's surface size in step with the widget.
func (c *SpectrogramCanvas) Resize(size fyne.Size) {
	c.BaseWidget.Resize(size)
	c.session.SetDimensions(int(math.Round(float64(size.Width))), int(math.Round(float64(size.Height))))
}

// Refresh redraws the raster.
func (c *SpectrogramCanvas) Refresh() {
	c.raster.Refresh()
}

// GetRenderedOutput returns the most recent frame, or nil before the first
// draw.
func (c *SpectrogramCanvas) GetRenderedOutput() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutput
}

func (c *SpectrogramCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	c.session.Draw(output)

	c.mu.Lock()
	c.lastOutput = output
	c.mu.Unlock()
	return output
}

// MouseDown starts a gesture on the primary button.
func (c *SpectrogramCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	at := toPoint(ev.Position)
	c.mu.Lock()
	c.pressed = true
	c.last = at
	c.mu.Unlock()

	c.props.OnPressStart(at, modifiers(ev.Modifier))
	c.Refresh()
}

// MouseUp finishes the gesture started by MouseDown.
func (c *SpectrogramCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.release(toPoint(ev.Position), modifiers(ev.Modifier))
}

// Dragged continues the current gesture.
func (c *SpectrogramCanvas) Dragged(ev *fyne.DragEvent) {
	at := toPoint(ev.Position)
	c.mu.Lock()
	pressed := c.pressed
	c.last = at
	c.mu.Unlock()
	if !pressed {
		return
	}
	c.props.OnMove(at, currentModifiers())
	c.Refresh()
}

// DragEnd finishes the gesture when the button is released outside the
// widget and no MouseUp arrives.
func (c *SpectrogramCanvas) DragEnd() {
	c.mu.Lock()
	at := c.last
	c.mu.Unlock()
	c.release(at, currentModifiers())
}

func (c *SpectrogramCanvas) release(at geometry.Point2D, mods interaction.Modifier) {
	c.mu.Lock()
	wasPressed := c.pressed
	c.pressed = false
	c.mu.Unlock()
	if !wasPressed {
		return
	}
	c.props.OnPressEnd(at, mods)
	c.Refresh()
}

// Scrolled pans or zooms. Wheel up moves toward earlier times and zooms in.
func (c *SpectrogramCanvas) Scrolled(ev *fyne.ScrollEvent) {
	c.props.OnScroll(toPoint(ev.Position), -float64(ev.Scrolled.DX), -float64(ev.Scrolled.DY), currentModifiers())
	c.Refresh()
}

// DoubleTapped seeks playback.
func (c *SpectrogramCanvas) DoubleTapped(ev *fyne.PointEvent) {
	c.props.OnDoubleClick(toPoint(ev.Position))
}

// MouseIn implements desktop.Hoverable.
func (c *SpectrogramCanvas) MouseIn(ev *desktop.MouseEvent) {
	c.MouseMoved(ev)
}

// MouseMoved tracks the hovered annotation.
func (c *SpectrogramCanvas) MouseMoved(ev *desktop.MouseEvent) {
	if c.props.OnHover(toPoint(ev.Position)) {
		c.Refresh()
	}
}

// MouseOut implements desktop.Hoverable.
func (c *SpectrogramCanvas) MouseOut() {
	c.props.OnLeave()
	c.Refresh()
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

func modifiers(m fyne.KeyModifier) interaction.Modifier {
	var out interaction.Modifier
	if m&fyne.KeyModifierShift != 0 {
		out |= interaction.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		out |= interaction.ModCtrl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= interaction.ModAlt
	}
	if m&fyne.KeyModifierSuper != 0 {
		out |= interaction.ModMeta
	}
	return out
}

// currentModifiers reads the held keys from the desktop driver. Drag and
// scroll events do not carry them.
func currentModifiers() interaction.Modifier {
	a := fyne.CurrentApp()
	if a == nil {
		return 0
	}
	if d, ok := a.Driver().(desktop.Driver); ok {
		return modifiers(d.CurrentKeyModifiers())
	}
	return 0
}
