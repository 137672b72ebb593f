package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// PixelDistance returns the distance in pixels from p to a pixel-space
// geometry, as produced by ScaleToViewport. Points inside an area shape have
// distance 0. Empty geometries are infinitely far away.
func PixelDistance(g Geometry, p Point2D) float64 {
	d := &distanceVisitor{p: p.Vec(), dist: math.Inf(1)}
	g.Accept(d)
	return d.dist
}

type distanceVisitor struct {
	p    r2.Vec
	dist float64
}

func (d *distanceVisitor) update(v float64) {
	if v < d.dist {
		d.dist = v
	}
}

func (d *distanceVisitor) TimeStamp(g TimeStamp) {
	d.update(math.Abs(d.p.X - g.Time))
}

func (d *distanceVisitor) TimeInterval(g TimeInterval) {
	lo, hi := math.Min(g.Start, g.End), math.Max(g.Start, g.End)
	switch {
	case d.p.X < lo:
		d.update(lo - d.p.X)
	case d.p.X > hi:
		d.update(d.p.X - hi)
	default:
		d.update(0)
	}
}

func (d *distanceVisitor) BoundingBox(g BoundingBox) {
	box := r2.Box{
		Min: r2.Vec{X: math.Min(g.StartTime, g.EndTime), Y: math.Min(g.LowFreq, g.HighFreq)},
		Max: r2.Vec{X: math.Max(g.StartTime, g.EndTime), Y: math.Max(g.LowFreq, g.HighFreq)},
	}
	d.update(boxDistance(box, d.p))
}

func (d *distanceVisitor) Point(g Point) {
	d.update(r2.Norm(r2.Sub(d.p, vec(Position(g)))))
}

func (d *distanceVisitor) MultiPoint(g MultiPoint) {
	for _, p := range g {
		d.update(r2.Norm(r2.Sub(d.p, vec(p))))
	}
}

func (d *distanceVisitor) LineString(g LineString) {
	d.update(polylineDistance(g, d.p, false))
}

func (d *distanceVisitor) MultiLineString(g MultiLineString) {
	for _, line := range g {
		d.update(polylineDistance(line, d.p, false))
	}
}

func (d *distanceVisitor) Polygon(g Polygon) {
	d.update(polygonDistance(g, d.p))
}

func (d *distanceVisitor) MultiPolygon(g MultiPolygon) {
	for _, poly := range g {
		d.update(polygonDistance(poly, d.p))
	}
}

func (d *distanceVisitor) GeometryCollection(g GeometryCollection) {
	for _, child := range g {
		child.Accept(d)
	}
}

func vec(p Position) r2.Vec {
	return r2.Vec{X: p.Time, Y: p.Freq}
}

func boxDistance(b r2.Box, p r2.Vec) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	return math.Hypot(dx, dy)
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(a, b, p r2.Vec) float64 {
	ab := r2.Sub(b, a)
	lenSq := r2.Dot(ab, ab)
	if lenSq == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, closest))
}

func polylineDistance(line []Position, p r2.Vec, closed bool) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return r2.Norm(r2.Sub(p, vec(line[0])))
	}
	best := math.Inf(1)
	n := len(line)
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		best = math.Min(best, segmentDistance(vec(line[i]), vec(line[(i+1)%n]), p))
	}
	return best
}

func polygonDistance(rings [][]Position, p r2.Vec) float64 {
	if len(rings) == 0 {
		return math.Inf(1)
	}
	if PointInRing(Position{Time: p.X, Freq: p.Y}, rings[0]) {
		inHole := false
		for _, hole := range rings[1:] {
			if PointInRing(Position{Time: p.X, Freq: p.Y}, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return 0
		}
	}
	best := math.Inf(1)
	for _, ring := range rings {
		best = math.Min(best, polylineDistance(ring, p, true))
	}
	return best
}

// PointInRing tests if a position is inside a closed ring using ray casting.
func PointInRing(p Position, ring []Position) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	n := len(ring)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := ring[i], ring[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Freq > p.Freq) != (pj.Freq > p.Freq)) &&
			(p.Time < (pj.Time-pi.Time)*(p.Freq-pi.Freq)/(pj.Freq-pi.Freq)+pi.Time) {
			inside = !inside
		}
	}

	return inside
}
