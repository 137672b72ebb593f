// Package viewport owns the visible window of a spectrogram view: its outer
// bounds, the current window, and a bounded navigation history.
//
// Every mutating operation leaves the viewport inside the bounds on both
// axes with a width no smaller than the configured minimum. Operations
// clamp rather than fail.
package viewport

import (
	"fmt"
	"math"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/pkg/geometry"
)

// Config holds the zoom and history policy.
type Config struct {
	MinTimeZoom  float64 // smallest visible time span, seconds
	MinFreqZoom  float64 // smallest visible frequency span, Hz
	HistoryLimit int     // maximum saved windows; oldest are dropped
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		MinTimeZoom:  0.001,
		MinFreqZoom:  1,
		HistoryLimit: 64,
	}
}

// Controller is the single source of truth for the visible window. It is
// not safe for concurrent use; a view owns exactly one.
type Controller struct {
	cfg      Config
	bounds   geometry.Window
	initial  geometry.Window
	viewport geometry.Window
	history  []geometry.Window
}

// New creates a controller. bounds must be renderable; initial is clamped
// into bounds.
func New(bounds, initial geometry.Window, cfg Config) (*Controller, error) {
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("viewport bounds: %w", err)
	}
	if !bounds.Renderable() {
		return nil, fmt.Errorf("viewport bounds %+v: %w", bounds, geometry.ErrInvertedInterval)
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial viewport: %w", err)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	c := &Controller{cfg: cfg, bounds: bounds}
	c.initial = c.clampWindow(initial)
	c.viewport = c.initial
	return c, nil
}

// InitialWindow returns the starting viewport for a recording: the full
// band and the first span seconds (the whole recording when span <= 0).
func InitialWindow(rec recording.Recording, band geometry.Interval, span float64) geometry.Window {
	end := rec.Duration
	if span > 0 && span < end {
		end = span
	}
	return geometry.Window{Time: geometry.Interval{Min: 0, Max: end}, Freq: band}
}

// ForRecording creates a controller bounded by the recording.
func ForRecording(rec recording.Recording, initialSpan float64, cfg Config) (*Controller, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	bounds := rec.Bounds()
	return New(bounds, InitialWindow(rec, bounds.Freq, initialSpan), cfg)
}

// Bounds returns the outer limits of navigation.
func (c *Controller) Bounds() geometry.Window { return c.bounds }

// Viewport returns the current window.
func (c *Controller) Viewport() geometry.Window { return c.viewport }

// Initial returns the window restored by Reset.
func (c *Controller) Initial() geometry.Window { return c.initial }

// Config returns the active policy.
func (c *Controller) Config() Config { return c.cfg }

// HistoryLen returns the number of saved windows.
func (c *Controller) HistoryLen() int { return len(c.history) }

// Set replaces the viewport, clamping each axis to the bounds. An inverted
// interval is a caller bug and is reported without changing state.
func (c *Controller) Set(w geometry.Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	c.viewport = c.clampWindow(w)
	return nil
}

// Shift pans by a domain delta. A window that would cross a bound is pinned
// to it, keeping its size.
func (c *Controller) Shift(delta geometry.Position) {
	c.viewport = geometry.Window{
		Time: pin(geometry.Interval{Min: c.viewport.Time.Min + delta.Time, Max: c.viewport.Time.Max + delta.Time}, c.bounds.Time),
		Freq: pin(geometry.Interval{Min: c.viewport.Freq.Min + delta.Freq, Max: c.viewport.Freq.Max + delta.Freq}, c.bounds.Freq),
	}
}

// Expand grows (positive) or shrinks (negative) the window around its
// center so each axis width changes by the given delta.
func (c *Controller) Expand(delta geometry.Position) {
	t, f := c.viewport.Time, c.viewport.Freq
	c.viewport = c.clampWindow(geometry.Window{
		Time: geometry.Interval{Min: t.Min - delta.Time/2, Max: t.Max + delta.Time/2},
		Freq: geometry.Interval{Min: f.Min - delta.Freq/2, Max: f.Max + delta.Freq/2},
	})
}

// Zoom scales both axes around the center by factor. Factors above 1 zoom
// out.
func (c *Controller) Zoom(factor float64) {
	c.ZoomToPosition(c.viewport.Center(), factor)
}

// CenterOn recenters the viewport on pos, preserving its size.
func (c *Controller) CenterOn(pos geometry.Position) {
	center := c.viewport.Center()
	c.Shift(pos.Sub(center))
}

// ZoomToPosition scales the window by factor keeping pos at the same
// relative location, as for cursor-anchored wheel zoom. Non-positive
// factors are ignored.
func (c *Controller) ZoomToPosition(pos geometry.Position, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	c.viewport = geometry.Window{
		Time: c.anchoredScale(c.viewport.Time, pos.Time, factor, c.bounds.Time, c.cfg.MinTimeZoom),
		Freq: c.anchoredScale(c.viewport.Freq, pos.Freq, factor, c.bounds.Freq, c.cfg.MinFreqZoom),
	}
}

// Save pushes the current viewport onto the history stack.
func (c *Controller) Save() {
	c.history = append(c.history, c.viewport)
	if over := len(c.history) - c.cfg.HistoryLimit; over > 0 {
		c.history = append(c.history[:0:0], c.history[over:]...)
	}
}

// Back restores the most recently saved viewport. It is a no-op when the
// history is empty and reports whether a window was restored.
func (c *Controller) Back() bool {
	n := len(c.history)
	if n == 0 {
		return false
	}
	c.viewport = c.history[n-1]
	c.history = c.history[:n-1]
	return true
}

// Reset restores the initial window and clears the history.
func (c *Controller) Reset() {
	c.viewport = c.initial
	c.history = nil
}

// Rebound replaces bounds and initial window, for example when the
// underlying recording changes, and resets the viewport.
func (c *Controller) Rebound(bounds, initial geometry.Window) error {
	next, err := New(bounds, initial, c.cfg)
	if err != nil {
		return err
	}
	*c = *next
	return nil
}

func (c *Controller) clampWindow(w geometry.Window) geometry.Window {
	return geometry.Window{
		Time: clampInterval(w.Time, c.bounds.Time, c.cfg.MinTimeZoom),
		Freq: clampInterval(w.Freq, c.bounds.Freq, c.cfg.MinFreqZoom),
	}
}

// clampInterval intersects iv with bounds and widens the result to at least
// minWidth, staying inside bounds.
func clampInterval(iv, bounds geometry.Interval, minWidth float64) geometry.Interval {
	if iv.Max < iv.Min {
		// Over-shrunk: collapse onto the center.
		c := iv.Center()
		iv = geometry.Interval{Min: c, Max: c}
	}
	out := geometry.Interval{Min: math.Max(iv.Min, bounds.Min), Max: math.Min(iv.Max, bounds.Max)}
	if out.Max < out.Min {
		// Entirely outside: collapse onto the nearest bound.
		edge := bounds.Clamp(iv.Min)
		out = geometry.Interval{Min: edge, Max: edge}
	}
	return widen(out, bounds, minWidth)
}

// widen grows iv around its center to minWidth, capped at the bounds width,
// then pins it inside bounds.
func widen(iv, bounds geometry.Interval, minWidth float64) geometry.Interval {
	minWidth = math.Min(math.Max(minWidth, 0), bounds.Width())
	if iv.Width() < minWidth || iv.Width() <= 0 {
		w := math.Max(minWidth, 0)
		if w <= 0 {
			w = bounds.Width()
		}
		c := iv.Center()
		iv = geometry.Interval{Min: c - w/2, Max: c + w/2}
	}
	return pin(iv, bounds)
}

// pin moves iv inside bounds without changing its width, or returns bounds
// when iv is wider.
func pin(iv, bounds geometry.Interval) geometry.Interval {
	w := iv.Width()
	if w >= bounds.Width() {
		return bounds
	}
	if iv.Min < bounds.Min {
		return geometry.Interval{Min: bounds.Min, Max: bounds.Min + w}
	}
	if iv.Max > bounds.Max {
		return geometry.Interval{Min: bounds.Max - w, Max: bounds.Max}
	}
	return iv
}

func (c *Controller) anchoredScale(iv geometry.Interval, anchor, factor float64, bounds geometry.Interval, minWidth float64) geometry.Interval {
	anchor = iv.Clamp(anchor)
	scaled := geometry.Interval{
		Min: anchor - (anchor-iv.Min)*factor,
		Max: anchor + (iv.Max-anchor)*factor,
	}
	if scaled.Width() < minWidth {
		// Keep the anchor's relative position while enforcing the minimum.
		rel := 0.5
		if iv.Width() > 0 {
			rel = (anchor - iv.Min) / iv.Width()
		}
		w := math.Min(minWidth, bounds.Width())
		scaled = geometry.Interval{Min: anchor - rel*w, Max: anchor - rel*w + w}
	}
	return widen(scaled, bounds, minWidth)
}
