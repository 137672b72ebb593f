package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnknownGeometry is returned when decoding an unrecognized type tag.
var ErrUnknownGeometry = errors.New("unknown geometry type")

// ErrMalformedGeometry is returned when coordinates do not match the shape.
var ErrMalformedGeometry = errors.New("malformed geometry coordinates")

type envelope struct {
	Type        Kind              `json:"type"`
	Coordinates json.RawMessage   `json:"coordinates,omitempty"`
	Geometries  []json.RawMessage `json:"geometries,omitempty"`
}

type pair [2]float64

func toPairs(ps []Position) []pair {
	out := make([]pair, len(ps))
	for i, p := range ps {
		out[i] = pair{p.Time, p.Freq}
	}
	return out
}

func fromPairs(ps []pair) []Position {
	out := make([]Position, len(ps))
	for i, p := range ps {
		out[i] = Position{Time: p[0], Freq: p[1]}
	}
	return out
}

func toRings(rings [][]Position) [][]pair {
	out := make([][]pair, len(rings))
	for i, r := range rings {
		out[i] = toPairs(r)
	}
	return out
}

func fromRings(rings [][]pair) [][]Position {
	out := make([][]Position, len(rings))
	for i, r := range rings {
		out[i] = fromPairs(r)
	}
	return out
}

// Marshal encodes a geometry as {"type": ..., "coordinates": ...}. A
// BoundingBox encodes as [startTime, highFreq, endTime, lowFreq].
func Marshal(g Geometry) ([]byte, error) {
	e := &encoder{}
	g.Accept(e)
	if e.err != nil {
		return nil, e.err
	}
	return json.Marshal(e.out)
}

type encoder struct {
	out any
	err error
}

func (e *encoder) set(kind Kind, coords any) {
	raw, err := json.Marshal(coords)
	if err != nil {
		e.err = err
		return
	}
	e.out = envelope{Type: kind, Coordinates: raw}
}

func (e *encoder) TimeStamp(g TimeStamp) { e.set(KindTimeStamp, g.Time) }

func (e *encoder) TimeInterval(g TimeInterval) {
	e.set(KindTimeInterval, [2]float64{g.Start, g.End})
}

func (e *encoder) BoundingBox(g BoundingBox) {
	e.set(KindBoundingBox, [4]float64{g.StartTime, g.HighFreq, g.EndTime, g.LowFreq})
}

func (e *encoder) Point(g Point)           { e.set(KindPoint, pair{g.Time, g.Freq}) }
func (e *encoder) MultiPoint(g MultiPoint) { e.set(KindMultiPoint, toPairs(g)) }
func (e *encoder) LineString(g LineString) { e.set(KindLineString, toPairs(g)) }

func (e *encoder) MultiLineString(g MultiLineString) {
	e.set(KindMultiLineString, toRings(g))
}

func (e *encoder) Polygon(g Polygon) { e.set(KindPolygon, toRings(g)) }

func (e *encoder) MultiPolygon(g MultiPolygon) {
	out := make([][][]pair, len(g))
	for i, poly := range g {
		out[i] = toRings(poly)
	}
	e.set(KindMultiPolygon, out)
}

func (e *encoder) GeometryCollection(g GeometryCollection) {
	env := envelope{Type: KindGeometryCollection, Geometries: make([]json.RawMessage, len(g))}
	for i, child := range g {
		raw, err := Marshal(child)
		if err != nil {
			e.err = err
			return
		}
		env.Geometries[i] = raw
	}
	e.out = env
}

// Unmarshal decodes a geometry produced by Marshal. Bounding boxes are
// normalized so LowFreq <= HighFreq and StartTime <= EndTime regardless of
// the order found in the input.
func Unmarshal(data []byte) (Geometry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	decode := func(v any) error {
		if len(env.Coordinates) == 0 {
			return fmt.Errorf("%s: missing coordinates: %w", env.Type, ErrMalformedGeometry)
		}
		if err := json.Unmarshal(env.Coordinates, v); err != nil {
			return fmt.Errorf("%s: %v: %w", env.Type, err, ErrMalformedGeometry)
		}
		return nil
	}

	switch env.Type {
	case KindTimeStamp:
		var t float64
		if err := decode(&t); err != nil {
			return nil, err
		}
		return TimeStamp{Time: t}, nil

	case KindTimeInterval:
		var c [2]float64
		if err := decode(&c); err != nil {
			return nil, err
		}
		return TimeInterval{Start: math.Min(c[0], c[1]), End: math.Max(c[0], c[1])}, nil

	case KindBoundingBox:
		var c [4]float64
		if err := decode(&c); err != nil {
			return nil, err
		}
		return BoundingBox{
			StartTime: math.Min(c[0], c[2]),
			EndTime:   math.Max(c[0], c[2]),
			LowFreq:   math.Min(c[1], c[3]),
			HighFreq:  math.Max(c[1], c[3]),
		}, nil

	case KindPoint:
		var c pair
		if err := decode(&c); err != nil {
			return nil, err
		}
		return Point{Time: c[0], Freq: c[1]}, nil

	case KindMultiPoint, KindLineString:
		var c []pair
		if err := decode(&c); err != nil {
			return nil, err
		}
		if env.Type == KindMultiPoint {
			return MultiPoint(fromPairs(c)), nil
		}
		return LineString(fromPairs(c)), nil

	case KindMultiLineString, KindPolygon:
		var c [][]pair
		if err := decode(&c); err != nil {
			return nil, err
		}
		if env.Type == KindPolygon {
			return Polygon(fromRings(c)), nil
		}
		return MultiLineString(fromRings(c)), nil

	case KindMultiPolygon:
		var c [][][]pair
		if err := decode(&c); err != nil {
			return nil, err
		}
		out := make(MultiPolygon, len(c))
		for i, poly := range c {
			out[i] = fromRings(poly)
		}
		return out, nil

	case KindGeometryCollection:
		out := make(GeometryCollection, 0, len(env.Geometries))
		for _, raw := range env.Geometries {
			child, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%q: %w", env.Type, ErrUnknownGeometry)
	}
}
