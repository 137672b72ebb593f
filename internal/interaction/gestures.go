package interaction

import (
	"math"

	"spectrogram-annotator/internal/annotation"
	"spectrogram-annotator/internal/viewport"
	"spectrogram-annotator/pkg/geometry"
)

// Handlers receive the results of gestures. Every geometry is in domain
// space. Nil handlers are skipped.
type Handlers struct {
	OnCreate   func(g geometry.Geometry)
	OnChange   func(g geometry.Geometry)
	OnCommit   func(g geometry.Geometry)
	OnCopy     func(source annotation.Annotation, g geometry.Geometry)
	OnSelect   func(a annotation.Annotation)
	OnDeselect func()
	OnDelete   func(a annotation.Annotation)
	OnIdle     func()
	OnSeek     func(t float64)

	// OnViewport runs after a gesture changes the viewport.
	OnViewport func(w geometry.Window)
}

// Config tunes pointer handling.
type Config struct {
	HitTolerance  float64  // pixels around an annotation that count as a hit
	HandleRadius  float64  // pixels around an edit handle
	ClickSlop     float64  // motion below this is a click, not a drag
	CopyModifier  Modifier // held while editing to copy instead of move
	ZoomPerPixel  float64  // scroll zoom rate; factor = exp(delta * rate)
	ScrollPerLine float64  // pixels panned per scroll unit
}

// DefaultConfig returns the default pointer policy.
func DefaultConfig() Config {
	return Config{
		HitTolerance:  annotation.DefaultTolerance,
		HandleRadius:  6,
		ClickSlop:     3,
		CopyModifier:  ModCtrl,
		ZoomPerPixel:  0.005,
		ScrollPerLine: 1,
	}
}

// Props is the pointer-event bundle a surface attaches to its input events.
type Props struct {
	OnPressStart  func(at geometry.Point2D, mods Modifier)
	OnMove        func(at geometry.Point2D, mods Modifier)
	OnPressEnd    func(at geometry.Point2D, mods Modifier)
	OnScroll      func(at geometry.Point2D, dx, dy float64, mods Modifier)
	OnDoubleClick func(at geometry.Point2D)
	OnHover       func(at geometry.Point2D) bool
	OnLeave       func()
}

// Feedback is the transient state drawn over the spectrogram.
type Feedback struct {
	Mode      Mode
	Transient geometry.Geometry // shape being drawn, zoom box or live edit
	Selected  *annotation.Annotation
	Handles   []Handle
	Hovered   *annotation.Annotation
	Copying   bool
}

type dragState struct {
	start   geometry.Point2D
	last    geometry.Point2D
	current geometry.Point2D
	mods    Modifier
	moved   bool

	// editing
	target annotation.Annotation
	handle Handle
	source geometry.Geometry
	edited geometry.Geometry
}

// Gestures is the pointer state machine for one surface. Only one pointer
// gesture is active at a time. It is not safe for concurrent use.
type Gestures struct {
	vp       *viewport.Controller
	handlers Handlers
	cfg      Config

	dims        geometry.Dimensions
	mode        Mode
	shape       ShapeKind
	annotations []annotation.Annotation
	selected    *annotation.Annotation
	hovered     *annotation.Annotation

	drag *dragState
}

// New creates a gesture layer driving vp.
func New(vp *viewport.Controller, handlers Handlers, cfg Config) *Gestures {
	return &Gestures{vp: vp, handlers: handlers, cfg: cfg, shape: ShapeBoundingBox}
}

// Props returns the event bundle bound to g.
func (g *Gestures) Props() Props {
	return Props{
		OnPressStart:  g.OnPressStart,
		OnMove:        g.OnMove,
		OnPressEnd:    g.OnPressEnd,
		OnScroll:      g.OnScroll,
		OnDoubleClick: g.OnDoubleClick,
		OnHover:       g.OnHover,
		OnLeave:       g.OnLeave,
	}
}

// Mode returns the active mode.
func (g *Gestures) Mode() Mode { return g.mode }

// SetMode switches mode. An in-progress gesture is dropped without any
// callback.
func (g *Gestures) SetMode(m Mode) {
	g.drag = nil
	g.mode = m
}

// Shape returns the kind built in drawing mode.
func (g *Gestures) Shape() ShapeKind { return g.shape }

// SetShape selects the kind built in drawing mode.
func (g *Gestures) SetShape(k ShapeKind) { g.shape = k }

// SetDimensions updates the surface size in pixels.
func (g *Gestures) SetDimensions(d geometry.Dimensions) { g.dims = d }

// Dimensions returns the surface size in pixels.
func (g *Gestures) Dimensions() geometry.Dimensions { return g.dims }

// SetAnnotations replaces the list used for hit tests. A selection that is
// no longer listed is kept as is; the caller decides when to deselect.
func (g *Gestures) SetAnnotations(list []annotation.Annotation) {
	g.annotations = list
	g.hovered = nil
	if g.selected != nil {
		if a, ok := annotation.Find(list, g.selected.ID); ok {
			g.selected = &a
		}
	}
}

// Selected returns the annotation targeted by editing, if any.
func (g *Gestures) Selected() (annotation.Annotation, bool) {
	if g.selected == nil {
		return annotation.Annotation{}, false
	}
	return *g.selected, true
}

// SetSelected sets or, with nil, clears the editing target.
func (g *Gestures) SetSelected(a *annotation.Annotation) {
	if a == nil {
		g.selected = nil
		return
	}
	cp := *a
	g.selected = &cp
}

// Dragging reports whether a pointer gesture is in progress.
func (g *Gestures) Dragging() bool { return g.drag != nil }

// OnPressStart begins a pointer gesture.
func (g *Gestures) OnPressStart(at geometry.Point2D, mods Modifier) {
	d := &dragState{start: at, last: at, current: at, mods: mods}

	switch g.mode {
	case ModeIdle:
		return
	case ModePanning:
		g.vp.Save()
	case ModeEditing:
		if !g.beginEdit(d) {
			return
		}
	}
	g.drag = d
}

// OnMove continues a pointer gesture.
func (g *Gestures) OnMove(at geometry.Point2D, mods Modifier) {
	d := g.drag
	if d == nil {
		return
	}
	d.current = at
	d.mods = mods
	if !d.moved && d.start.Distance(at) > g.cfg.ClickSlop {
		d.moved = true
	}

	switch g.mode {
	case ModePanning:
		delta := geometry.ScaleDelta(g.dims, g.vp.Viewport(), at.X-d.last.X, at.Y-d.last.Y)
		g.vp.Shift(geometry.Position{Time: -delta.Time, Freq: -delta.Freq})
		g.viewportChanged()

	case ModeEditing:
		edited := g.editResult(d)
		if collapsed(edited) {
			break
		}
		d.edited = edited
		if !mods.Has(g.cfg.CopyModifier) && g.handlers.OnChange != nil {
			g.handlers.OnChange(d.edited)
		}
	}
	d.last = at
}

// OnPressEnd finishes a pointer gesture and reports its result.
func (g *Gestures) OnPressEnd(at geometry.Point2D, mods Modifier) {
	d := g.drag
	if d == nil {
		return
	}
	g.drag = nil
	d.current = at
	d.mods = mods
	if !d.moved && d.start.Distance(at) > g.cfg.ClickSlop {
		d.moved = true
	}

	switch g.mode {
	case ModeZooming:
		g.finishZoom(d)
	case ModeDrawing:
		g.finishDrawing(d)
	case ModeSelecting:
		g.finishSelect(d)
	case ModeDeleting:
		g.finishDelete(d)
	case ModeEditing:
		g.finishEdit(d)
	}
}

// OnScroll handles wheel input in any mode. Plain scroll pans time,
// shift+scroll pans frequency, ctrl+scroll expands around the center and
// alt+scroll zooms around the cursor.
func (g *Gestures) OnScroll(at geometry.Point2D, dx, dy float64, mods Modifier) {
	amount := dy
	if amount == 0 {
		amount = dx
	}
	amount *= g.cfg.ScrollPerLine
	if amount == 0 {
		return
	}
	vp := g.vp.Viewport()

	switch {
	case mods.Has(ModAlt):
		pos := geometry.ToDomain(g.dims, vp, at)
		g.vp.ZoomToPosition(pos, math.Exp(amount*g.cfg.ZoomPerPixel))
	case mods.Has(ModCtrl):
		k := math.Exp(amount*g.cfg.ZoomPerPixel) - 1
		g.vp.Expand(geometry.Position{Time: vp.Time.Width() * k, Freq: vp.Freq.Width() * k})
	case mods.Has(ModShift):
		delta := geometry.ScaleDelta(g.dims, vp, 0, -amount)
		g.vp.Shift(geometry.Position{Freq: delta.Freq})
	default:
		delta := geometry.ScaleDelta(g.dims, vp, amount, 0)
		g.vp.Shift(geometry.Position{Time: delta.Time})
	}
	g.viewportChanged()
}

// OnDoubleClick seeks playback to the clicked time in any mode.
func (g *Gestures) OnDoubleClick(at geometry.Point2D) {
	if g.handlers.OnSeek == nil {
		return
	}
	t := geometry.XToTime(g.dims, g.vp.Viewport(), at.X)
	g.handlers.OnSeek(g.vp.Bounds().Time.Clamp(t))
}

// OnHover tracks the annotation under the pointer and reports whether it
// changed.
func (g *Gestures) OnHover(at geometry.Point2D) bool {
	prev := g.hovered
	g.hovered = nil
	if hit, ok := annotation.Hovered(g.dims, g.vp.Viewport(), g.annotations, at, g.cfg.HitTolerance); ok {
		a := hit.Annotation
		g.hovered = &a
	}
	return !sameAnnotation(prev, g.hovered)
}

// OnLeave clears the hover state when the pointer leaves the surface.
func (g *Gestures) OnLeave() {
	g.hovered = nil
}

func sameAnnotation(a, b *annotation.Annotation) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// Feedback returns the transient state for the render stage.
func (g *Gestures) Feedback() Feedback {
	fb := Feedback{Mode: g.mode, Hovered: g.hovered}
	if g.mode == ModeEditing || g.mode == ModeSelecting {
		fb.Selected = g.selected
	}
	if g.mode == ModeEditing && g.selected != nil && g.selected.Geometry != nil {
		shown := g.selected.Geometry
		if g.drag != nil && g.drag.edited != nil {
			shown = g.drag.edited
			fb.Transient = g.drag.edited
			fb.Copying = g.drag.mods.Has(g.cfg.CopyModifier)
		}
		fb.Handles = Handles(shown, g.vp.Viewport())
	}

	if g.drag == nil {
		return fb
	}
	switch g.mode {
	case ModeZooming:
		fb.Transient = g.zoomBox(g.drag)
	case ModeDrawing:
		fb.Transient = g.drawnShape(g.drag)
	}
	return fb
}

func (g *Gestures) viewportChanged() {
	if g.handlers.OnViewport != nil {
		g.handlers.OnViewport(g.vp.Viewport())
	}
}

// toDomain converts a pixel-space geometry with the current viewport.
func (g *Gestures) toDomain(px geometry.Geometry) geometry.Geometry {
	return geometry.ScaleToWindow(g.dims, px, g.vp.Viewport())
}

func (g *Gestures) zoomBox(d *dragState) geometry.BoundingBox {
	px := geometry.BoundingBox{StartTime: d.start.X, LowFreq: d.start.Y, EndTime: d.current.X, HighFreq: d.current.Y}
	return normalize(g.toDomain(px)).(geometry.BoundingBox)
}

func (g *Gestures) finishZoom(d *dragState) {
	box := g.zoomBox(d)
	cfg := g.vp.Config()
	if box.EndTime-box.StartTime < cfg.MinTimeZoom || box.HighFreq-box.LowFreq < cfg.MinFreqZoom {
		return
	}
	g.vp.Save()
	if err := g.vp.Set(box.Bounds()); err != nil {
		g.vp.Back()
		return
	}
	g.viewportChanged()
}

// drawnShape builds the current drawing in domain space, clamped to the
// navigable bounds.
func (g *Gestures) drawnShape(d *dragState) geometry.Geometry {
	var px geometry.Geometry
	switch g.shape {
	case ShapeTimeStamp:
		px = geometry.TimeStamp{Time: d.current.X}
	case ShapeTimeInterval:
		px = geometry.TimeInterval{Start: d.start.X, End: d.current.X}
	case ShapePoint:
		px = geometry.Point{Time: d.current.X, Freq: d.current.Y}
	default:
		px = geometry.BoundingBox{StartTime: d.start.X, LowFreq: d.start.Y, EndTime: d.current.X, HighFreq: d.current.Y}
	}
	bounds := g.vp.Bounds()
	clamped := g.toDomain(px).Map(func(p geometry.Position) geometry.Position {
		return geometry.Position{Time: bounds.Time.Clamp(p.Time), Freq: bounds.Freq.Clamp(p.Freq)}
	})
	return normalize(clamped)
}

func (g *Gestures) finishDrawing(d *dragState) {
	shape := g.drawnShape(d)
	dx := math.Abs(d.current.X - d.start.X)
	dy := math.Abs(d.current.Y - d.start.Y)

	switch v := shape.(type) {
	case geometry.TimeInterval:
		if dx <= g.cfg.ClickSlop || !(v.End > v.Start) {
			return
		}
	case geometry.BoundingBox:
		if dx <= g.cfg.ClickSlop || dy <= g.cfg.ClickSlop || !(v.EndTime > v.StartTime) || !(v.HighFreq > v.LowFreq) {
			return
		}
	}
	if g.handlers.OnCreate != nil {
		g.handlers.OnCreate(shape)
	}
}

func (g *Gestures) hit(at geometry.Point2D) (annotation.Annotation, bool) {
	h, ok := annotation.Hovered(g.dims, g.vp.Viewport(), g.annotations, at, g.cfg.HitTolerance)
	return h.Annotation, ok
}

func (g *Gestures) finishSelect(d *dragState) {
	if d.moved {
		return
	}
	if a, ok := g.hit(d.current); ok {
		g.selected = &a
		if g.handlers.OnSelect != nil {
			g.handlers.OnSelect(a)
		}
		return
	}
	g.selected = nil
	if g.handlers.OnDeselect != nil {
		g.handlers.OnDeselect()
	}
}

func (g *Gestures) finishDelete(d *dragState) {
	if d.moved {
		return
	}
	if a, ok := g.hit(d.current); ok {
		if g.handlers.OnDelete != nil {
			g.handlers.OnDelete(a)
		}
		return
	}
	if g.handlers.OnIdle != nil {
		g.handlers.OnIdle()
	}
}

// beginEdit picks the handle under the pointer: a handle of the selected
// geometry first, then its body.
func (g *Gestures) beginEdit(d *dragState) bool {
	if g.selected == nil || g.selected.Geometry == nil {
		return false
	}
	src := g.selected.Geometry
	vp := g.vp.Viewport()

	if h, ok := nearestHandle(Handles(src, vp), g.dims, vp, d.start, g.cfg.HandleRadius); ok {
		d.handle = h
	} else {
		px := geometry.ScaleToViewport(g.dims, src, vp)
		if geometry.PixelDistance(px, d.start) > g.cfg.HitTolerance {
			return false
		}
		d.handle = Handle{Kind: HandleBody}
	}
	d.target = *g.selected
	d.source = src
	return true
}

// editResult applies the drag to the source geometry, kept inside the
// navigable bounds. A body move is stopped at the bounds so the shape keeps
// its size; other handles are clamped like a drawing.
func (g *Gestures) editResult(d *dragState) geometry.Geometry {
	delta := geometry.ScaleDelta(g.dims, g.vp.Viewport(), d.current.X-d.start.X, d.current.Y-d.start.Y)
	bounds := g.vp.Bounds()
	if d.handle.Kind == HandleBody {
		return Apply(d.source, d.handle, clampDelta(d.source.Bounds(), bounds, delta))
	}
	edited := Apply(d.source, d.handle, delta).Map(func(p geometry.Position) geometry.Position {
		return geometry.Position{Time: bounds.Time.Clamp(p.Time), Freq: bounds.Freq.Clamp(p.Freq)}
	})
	return normalize(edited)
}

func (g *Gestures) finishEdit(d *dragState) {
	if !d.moved {
		return
	}
	edited := g.editResult(d)
	if collapsed(edited) {
		return
	}
	if d.mods.Has(g.cfg.CopyModifier) {
		if g.handlers.OnCopy != nil {
			g.handlers.OnCopy(d.target, edited)
		}
		return
	}
	if g.handlers.OnCommit != nil {
		g.handlers.OnCommit(edited)
	}
}
