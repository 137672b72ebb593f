package interaction

import (
	"math"

	"spectrogram-annotator/pkg/geometry"
)

// HandleKind identifies the part of a geometry being dragged.
type HandleKind int

const (
	HandleBody HandleKind = iota
	HandleStart
	HandleEnd
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
	HandleTop
	HandleBottom
	HandleLeft
	HandleRight
	HandleVertex
)

// Handle is a drag target on a selected geometry, located in domain space.
// Vertex indexes geometry.Positions order for HandleVertex.
type Handle struct {
	Kind     HandleKind
	Vertex   int
	Position geometry.Position
}

// Handles returns the drag handles of g. Time-only handles sit at the
// vertical center of the window.
func Handles(g geometry.Geometry, window geometry.Window) []Handle {
	h := &handleVisitor{mid: window.Freq.Center()}
	g.Accept(h)
	return h.out
}

type handleVisitor struct {
	mid float64
	out []Handle
}

func (h *handleVisitor) add(kind HandleKind, t, f float64) {
	h.out = append(h.out, Handle{Kind: kind, Position: geometry.Position{Time: t, Freq: f}})
}

func (h *handleVisitor) vertices(g geometry.Geometry) {
	for i, p := range geometry.Positions(g) {
		h.out = append(h.out, Handle{Kind: HandleVertex, Vertex: i, Position: p})
	}
}

func (h *handleVisitor) TimeStamp(g geometry.TimeStamp) {
	h.add(HandleBody, g.Time, h.mid)
}

func (h *handleVisitor) TimeInterval(g geometry.TimeInterval) {
	h.add(HandleStart, g.Start, h.mid)
	h.add(HandleEnd, g.End, h.mid)
}

func (h *handleVisitor) BoundingBox(g geometry.BoundingBox) {
	midT := (g.StartTime + g.EndTime) / 2
	midF := (g.LowFreq + g.HighFreq) / 2
	h.add(HandleTopLeft, g.StartTime, g.HighFreq)
	h.add(HandleTopRight, g.EndTime, g.HighFreq)
	h.add(HandleBottomLeft, g.StartTime, g.LowFreq)
	h.add(HandleBottomRight, g.EndTime, g.LowFreq)
	h.add(HandleTop, midT, g.HighFreq)
	h.add(HandleBottom, midT, g.LowFreq)
	h.add(HandleLeft, g.StartTime, midF)
	h.add(HandleRight, g.EndTime, midF)
}

func (h *handleVisitor) Point(g geometry.Point)                     { h.vertices(g) }
func (h *handleVisitor) MultiPoint(g geometry.MultiPoint)           { h.vertices(g) }
func (h *handleVisitor) LineString(g geometry.LineString)           { h.vertices(g) }
func (h *handleVisitor) MultiLineString(g geometry.MultiLineString) { h.vertices(g) }
func (h *handleVisitor) Polygon(g geometry.Polygon)                 { h.vertices(g) }
func (h *handleVisitor) MultiPolygon(g geometry.MultiPolygon)       { h.vertices(g) }

// Collections are only moved as a whole.
func (h *handleVisitor) GeometryCollection(geometry.GeometryCollection) {}

// Apply moves the handle of g by a domain delta and returns the edited
// geometry. Boxes and intervals are re-normalized when an edge crosses its
// opposite.
func Apply(g geometry.Geometry, handle Handle, d geometry.Position) geometry.Geometry {
	switch handle.Kind {
	case HandleBody:
		return geometry.Translate(g, d)

	case HandleVertex:
		i := 0
		return g.Map(func(p geometry.Position) geometry.Position {
			if i == handle.Vertex {
				p = p.Add(d)
			}
			i++
			return p
		})
	}

	switch v := g.(type) {
	case geometry.TimeInterval:
		switch handle.Kind {
		case HandleStart:
			v.Start += d.Time
		case HandleEnd:
			v.End += d.Time
		}
		return normalize(v)

	case geometry.BoundingBox:
		switch handle.Kind {
		case HandleTopLeft, HandleBottomLeft, HandleLeft:
			v.StartTime += d.Time
		case HandleTopRight, HandleBottomRight, HandleRight:
			v.EndTime += d.Time
		}
		switch handle.Kind {
		case HandleTopLeft, HandleTopRight, HandleTop:
			v.HighFreq += d.Freq
		case HandleBottomLeft, HandleBottomRight, HandleBottom:
			v.LowFreq += d.Freq
		}
		return normalize(v)
	}
	return geometry.Translate(g, d)
}

// clampDelta limits a translation of a shape spanning b so it stays inside
// bounds. Unbounded axes, such as the frequency span of a time interval,
// are left free.
func clampDelta(b, bounds geometry.Window, d geometry.Position) geometry.Position {
	return geometry.Position{
		Time: clampShift(b.Time, bounds.Time, d.Time),
		Freq: clampShift(b.Freq, bounds.Freq, d.Freq),
	}
}

func clampShift(span, bounds geometry.Interval, d float64) float64 {
	if math.IsInf(span.Min, 0) || math.IsInf(span.Max, 0) {
		return d
	}
	lo, hi := bounds.Min-span.Min, bounds.Max-span.Max
	if lo > hi {
		return 0
	}
	return math.Min(math.Max(d, lo), hi)
}

// collapsed reports an interval or box edited down to zero extent.
func collapsed(g geometry.Geometry) bool {
	switch v := g.(type) {
	case geometry.TimeInterval:
		return !(v.End > v.Start)
	case geometry.BoundingBox:
		return !(v.EndTime > v.StartTime) || !(v.HighFreq > v.LowFreq)
	}
	return false
}

// normalize orders interval endpoints and box edges.
func normalize(g geometry.Geometry) geometry.Geometry {
	switch v := g.(type) {
	case geometry.TimeInterval:
		return geometry.TimeInterval{Start: math.Min(v.Start, v.End), End: math.Max(v.Start, v.End)}
	case geometry.BoundingBox:
		b := v.Bounds()
		return geometry.BoundingBox{StartTime: b.Time.Min, LowFreq: b.Freq.Min, EndTime: b.Time.Max, HighFreq: b.Freq.Max}
	}
	return g
}

// nearestHandle returns the handle closest to at in pixel space, if any is
// within radius.
func nearestHandle(handles []Handle, dims geometry.Dimensions, vp geometry.Window, at geometry.Point2D, radius float64) (Handle, bool) {
	best, bestDist := Handle{}, math.Inf(1)
	for _, h := range handles {
		px := geometry.ToPixel(dims, vp, h.Position)
		var d float64
		switch h.Kind {
		case HandleStart, HandleEnd, HandleBody:
			// Time-only handles span the full height.
			d = math.Abs(px.X - at.X)
		default:
			d = px.Distance(at)
		}
		if d < bestDist {
			best, bestDist = h, d
		}
	}
	return best, bestDist <= radius
}
