// Package geometry provides the domain and pixel space types used by the
// spectrogram viewport, and the transforms between them.
//
// Domain space is measured in seconds (time) and Hz (frequency). Pixel space
// is measured in canvas pixels with y growing downward, so high frequencies
// map to small y values.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvertedInterval is returned when an interval has min > max.
var ErrInvertedInterval = errors.New("interval min is greater than max")

// Interval is a closed range over a single axis.
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewInterval creates an Interval, ordering the bounds.
func NewInterval(a, b float64) Interval {
	if a > b {
		a, b = b, a
	}
	return Interval{Min: a, Max: b}
}

// Width returns Max - Min.
func (i Interval) Width() float64 {
	return i.Max - i.Min
}

// Center returns the midpoint of the interval.
func (i Interval) Center() float64 {
	return (i.Min + i.Max) / 2
}

// Validate reports ErrInvertedInterval when Min > Max.
func (i Interval) Validate() error {
	if i.Min > i.Max || math.IsNaN(i.Min) || math.IsNaN(i.Max) {
		return fmt.Errorf("[%g, %g]: %w", i.Min, i.Max, ErrInvertedInterval)
	}
	return nil
}

// Degenerate returns true if the interval has no positive width.
func (i Interval) Degenerate() bool {
	return !(i.Max > i.Min)
}

// Contains returns true if v lies inside the interval (inclusive).
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// ContainsInterval returns true if other lies entirely inside i.
func (i Interval) ContainsInterval(other Interval) bool {
	return other.Min >= i.Min && other.Max <= i.Max
}

// Overlaps returns true if the two intervals share at least one point.
func (i Interval) Overlaps(other Interval) bool {
	return i.Min <= other.Max && other.Min <= i.Max
}

// Overlap returns the length of the intersection of the two intervals.
func (i Interval) Overlap(other Interval) float64 {
	lo := math.Max(i.Min, other.Min)
	hi := math.Min(i.Max, other.Max)
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Clamp returns v limited to the interval.
func (i Interval) Clamp(v float64) float64 {
	return math.Max(i.Min, math.Min(i.Max, v))
}

// Window is a rectangular region of the time/frequency plane. It is used both
// for the navigable bounds of a recording and for the visible viewport.
type Window struct {
	Time Interval `json:"time"`
	Freq Interval `json:"freq"`
}

// Validate checks both axes for inversion.
func (w Window) Validate() error {
	if err := w.Time.Validate(); err != nil {
		return fmt.Errorf("time axis: %w", err)
	}
	if err := w.Freq.Validate(); err != nil {
		return fmt.Errorf("freq axis: %w", err)
	}
	return nil
}

// Renderable returns true if both axes have positive width.
func (w Window) Renderable() bool {
	return !w.Time.Degenerate() && !w.Freq.Degenerate()
}

// Contains returns true if other lies entirely inside w on both axes.
func (w Window) Contains(other Window) bool {
	return w.Time.ContainsInterval(other.Time) && w.Freq.ContainsInterval(other.Freq)
}

// Overlaps returns true if the windows intersect on both axes.
func (w Window) Overlaps(other Window) bool {
	return w.Time.Overlaps(other.Time) && w.Freq.Overlaps(other.Freq)
}

// Center returns the center position of the window.
func (w Window) Center() Position {
	return Position{Time: w.Time.Center(), Freq: w.Freq.Center()}
}

// Dimensions is the pixel size of a rendering surface.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewDimensions creates Dimensions from integer pixel sizes.
func NewDimensions(width, height int) Dimensions {
	return Dimensions{Width: float64(width), Height: float64(height)}
}

// Position is a single (time, frequency) coordinate. Inside the render and
// gesture layers the same type carries pixel coordinates, with Time holding x
// and Freq holding y.
type Position struct {
	Time float64 `json:"time"`
	Freq float64 `json:"freq"`
}

// Add returns the component-wise sum of two positions.
func (p Position) Add(other Position) Position {
	return Position{Time: p.Time + other.Time, Freq: p.Freq + other.Freq}
}

// Sub returns the component-wise difference of two positions.
func (p Position) Sub(other Position) Position {
	return Position{Time: p.Time - other.Time, Freq: p.Freq - other.Freq}
}

// Point2D is a pixel-space point.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec converts the point to a gonum vector.
func (p Point2D) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return r2.Norm(r2.Sub(p.Vec(), other.Vec()))
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}
