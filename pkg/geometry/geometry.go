package geometry

import "math"

// Kind names a geometry variant. The values match the "type" field of the
// JSON encoding.
type Kind string

const (
	KindTimeStamp          Kind = "TimeStamp"
	KindTimeInterval       Kind = "TimeInterval"
	KindBoundingBox        Kind = "BoundingBox"
	KindPoint              Kind = "Point"
	KindMultiPoint         Kind = "MultiPoint"
	KindLineString         Kind = "LineString"
	KindMultiLineString    Kind = "MultiLineString"
	KindPolygon            Kind = "Polygon"
	KindMultiPolygon       Kind = "MultiPolygon"
	KindGeometryCollection Kind = "GeometryCollection"
)

// Geometry is a shape anchored in (time, frequency) coordinates.
//
// The set of implementations is closed. Code that must handle every variant
// implements Visitor; adding a variant adds a Visitor method, which breaks
// compilation of every dispatcher that has not been updated.
type Geometry interface {
	Kind() Kind

	// Accept calls the Visitor method matching the concrete variant.
	Accept(v Visitor)

	// Map returns a copy of the geometry with every coordinate passed
	// through fn. Time-only variants read and write only Position.Time.
	Map(fn func(Position) Position) Geometry

	// Bounds returns the smallest window containing the geometry. Time-only
	// variants are unbounded in frequency.
	Bounds() Window
}

// Visitor receives one call per concrete geometry variant.
type Visitor interface {
	TimeStamp(g TimeStamp)
	TimeInterval(g TimeInterval)
	BoundingBox(g BoundingBox)
	Point(g Point)
	MultiPoint(g MultiPoint)
	LineString(g LineString)
	MultiLineString(g MultiLineString)
	Polygon(g Polygon)
	MultiPolygon(g MultiPolygon)
	GeometryCollection(g GeometryCollection)
}

var allFreqs = Interval{Min: math.Inf(-1), Max: math.Inf(1)}

// TimeStamp marks a single instant.
type TimeStamp struct {
	Time float64
}

func (g TimeStamp) Kind() Kind       { return KindTimeStamp }
func (g TimeStamp) Accept(v Visitor) { v.TimeStamp(g) }

func (g TimeStamp) Map(fn func(Position) Position) Geometry {
	return TimeStamp{Time: fn(Position{Time: g.Time}).Time}
}

func (g TimeStamp) Bounds() Window {
	return Window{Time: Interval{Min: g.Time, Max: g.Time}, Freq: allFreqs}
}

// TimeInterval spans a range of time across all frequencies.
type TimeInterval struct {
	Start float64
	End   float64
}

func (g TimeInterval) Kind() Kind       { return KindTimeInterval }
func (g TimeInterval) Accept(v Visitor) { v.TimeInterval(g) }

func (g TimeInterval) Map(fn func(Position) Position) Geometry {
	return TimeInterval{
		Start: fn(Position{Time: g.Start}).Time,
		End:   fn(Position{Time: g.End}).Time,
	}
}

func (g TimeInterval) Bounds() Window {
	return Window{Time: NewInterval(g.Start, g.End), Freq: allFreqs}
}

// BoundingBox is an axis-aligned box in the time/frequency plane. After
// scaling to pixel space LowFreq holds the bottom edge and HighFreq the top
// edge, so HighFreq < LowFreq there.
type BoundingBox struct {
	StartTime float64
	LowFreq   float64
	EndTime   float64
	HighFreq  float64
}

func (g BoundingBox) Kind() Kind       { return KindBoundingBox }
func (g BoundingBox) Accept(v Visitor) { v.BoundingBox(g) }

func (g BoundingBox) Map(fn func(Position) Position) Geometry {
	lo := fn(Position{Time: g.StartTime, Freq: g.LowFreq})
	hi := fn(Position{Time: g.EndTime, Freq: g.HighFreq})
	return BoundingBox{StartTime: lo.Time, LowFreq: lo.Freq, EndTime: hi.Time, HighFreq: hi.Freq}
}

func (g BoundingBox) Bounds() Window {
	return Window{Time: NewInterval(g.StartTime, g.EndTime), Freq: NewInterval(g.LowFreq, g.HighFreq)}
}

// Point is a single (time, frequency) location.
type Point Position

func (g Point) Kind() Kind       { return KindPoint }
func (g Point) Accept(v Visitor) { v.Point(g) }

func (g Point) Map(fn func(Position) Position) Geometry {
	return Point(fn(Position(g)))
}

func (g Point) Bounds() Window {
	return boundsOf([]Position{Position(g)})
}

// MultiPoint is an unordered set of points.
type MultiPoint []Position

func (g MultiPoint) Kind() Kind       { return KindMultiPoint }
func (g MultiPoint) Accept(v Visitor) { v.MultiPoint(g) }

func (g MultiPoint) Map(fn func(Position) Position) Geometry {
	return MultiPoint(mapPositions(g, fn))
}

func (g MultiPoint) Bounds() Window { return boundsOf(g) }

// LineString is an open polyline.
type LineString []Position

func (g LineString) Kind() Kind       { return KindLineString }
func (g LineString) Accept(v Visitor) { v.LineString(g) }

func (g LineString) Map(fn func(Position) Position) Geometry {
	return LineString(mapPositions(g, fn))
}

func (g LineString) Bounds() Window { return boundsOf(g) }

// MultiLineString is a set of polylines.
type MultiLineString [][]Position

func (g MultiLineString) Kind() Kind       { return KindMultiLineString }
func (g MultiLineString) Accept(v Visitor) { v.MultiLineString(g) }

func (g MultiLineString) Map(fn func(Position) Position) Geometry {
	return MultiLineString(mapRings(g, fn))
}

func (g MultiLineString) Bounds() Window { return boundsOf(flatten(g)) }

// Polygon is an outer ring followed by optional holes. Rings are implicitly
// closed.
type Polygon [][]Position

func (g Polygon) Kind() Kind       { return KindPolygon }
func (g Polygon) Accept(v Visitor) { v.Polygon(g) }

func (g Polygon) Map(fn func(Position) Position) Geometry {
	return Polygon(mapRings(g, fn))
}

func (g Polygon) Bounds() Window {
	if len(g) == 0 {
		return boundsOf(nil)
	}
	return boundsOf(g[0])
}

// MultiPolygon is a set of polygons.
type MultiPolygon [][][]Position

func (g MultiPolygon) Kind() Kind       { return KindMultiPolygon }
func (g MultiPolygon) Accept(v Visitor) { v.MultiPolygon(g) }

func (g MultiPolygon) Map(fn func(Position) Position) Geometry {
	out := make(MultiPolygon, len(g))
	for i, poly := range g {
		out[i] = mapRings(poly, fn)
	}
	return out
}

func (g MultiPolygon) Bounds() Window {
	var outer []Position
	for _, poly := range g {
		if len(poly) > 0 {
			outer = append(outer, poly[0]...)
		}
	}
	return boundsOf(outer)
}

// GeometryCollection groups heterogeneous geometries.
type GeometryCollection []Geometry

func (g GeometryCollection) Kind() Kind       { return KindGeometryCollection }
func (g GeometryCollection) Accept(v Visitor) { v.GeometryCollection(g) }

func (g GeometryCollection) Map(fn func(Position) Position) Geometry {
	out := make(GeometryCollection, len(g))
	for i, child := range g {
		out[i] = child.Map(fn)
	}
	return out
}

func (g GeometryCollection) Bounds() Window {
	if len(g) == 0 {
		return boundsOf(nil)
	}
	b := g[0].Bounds()
	for _, child := range g[1:] {
		cb := child.Bounds()
		b.Time = Interval{Min: math.Min(b.Time.Min, cb.Time.Min), Max: math.Max(b.Time.Max, cb.Time.Max)}
		b.Freq = Interval{Min: math.Min(b.Freq.Min, cb.Freq.Min), Max: math.Max(b.Freq.Max, cb.Freq.Max)}
	}
	return b
}

// Translate shifts every coordinate of g by delta. Time-only variants ignore
// the frequency component.
func Translate(g Geometry, delta Position) Geometry {
	return g.Map(func(p Position) Position { return p.Add(delta) })
}

// Positions returns every vertex of g in encounter order. TimeStamp and
// TimeInterval yield positions with a zero frequency.
func Positions(g Geometry) []Position {
	var out []Position
	g.Map(func(p Position) Position {
		out = append(out, p)
		return p
	})
	return out
}

func mapPositions(ps []Position, fn func(Position) Position) []Position {
	out := make([]Position, len(ps))
	for i, p := range ps {
		out[i] = fn(p)
	}
	return out
}

func mapRings(rings [][]Position, fn func(Position) Position) [][]Position {
	out := make([][]Position, len(rings))
	for i, ring := range rings {
		out[i] = mapPositions(ring, fn)
	}
	return out
}

func flatten(rings [][]Position) []Position {
	var out []Position
	for _, ring := range rings {
		out = append(out, ring...)
	}
	return out
}

// boundsOf returns the bounding window of the positions. An empty input
// yields an inverted window that overlaps nothing.
func boundsOf(ps []Position) Window {
	if len(ps) == 0 {
		empty := Interval{Min: math.Inf(1), Max: math.Inf(-1)}
		return Window{Time: empty, Freq: empty}
	}
	w := Window{
		Time: Interval{Min: ps[0].Time, Max: ps[0].Time},
		Freq: Interval{Min: ps[0].Freq, Max: ps[0].Freq},
	}
	for _, p := range ps[1:] {
		w.Time.Min = math.Min(w.Time.Min, p.Time)
		w.Time.Max = math.Max(w.Time.Max, p.Time)
		w.Freq.Min = math.Min(w.Freq.Min, p.Freq)
		w.Freq.Max = math.Max(w.Freq.Max, p.Freq)
	}
	return w
}
