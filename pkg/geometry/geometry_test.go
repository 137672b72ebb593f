package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-9

func sampleGeometries() []Geometry {
	ring := []Position{{1, 100}, {3, 100}, {3, 900}, {1, 900}}
	return []Geometry{
		TimeStamp{Time: 4.2},
		TimeInterval{Start: 1.5, End: 7.25},
		BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000},
		Point{Time: 3, Freq: 440},
		MultiPoint{{1, 200}, {2, 300}},
		LineString{{0.5, 50}, {1.5, 5000}, {2.5, 12000}},
		MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}},
		Polygon{ring},
		MultiPolygon{{ring}, {{{5, 10}, {6, 10}, {6, 20}}}},
		GeometryCollection{TimeStamp{Time: 1}, Point{Time: 2, Freq: 3}},
	}
}

func assertPositionsEqual(t *testing.T, want, got Geometry) {
	t.Helper()
	require.Equal(t, want.Kind(), got.Kind())
	wp, gp := Positions(want), Positions(got)
	require.Len(t, gp, len(wp))
	for i := range wp {
		assert.Truef(t, scalar.EqualWithinAbsOrRel(wp[i].Time, gp[i].Time, tol, tol),
			"vertex %d time: want %v got %v", i, wp[i].Time, gp[i].Time)
		assert.Truef(t, scalar.EqualWithinAbsOrRel(wp[i].Freq, gp[i].Freq, tol, tol),
			"vertex %d freq: want %v got %v", i, wp[i].Freq, gp[i].Freq)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	viewports := []Window{
		{Time: Interval{0, 20}, Freq: Interval{0, 10000}},
		{Time: Interval{3.3, 3.31}, Freq: Interval{440, 445}},
		{Time: Interval{-5, 500}, Freq: Interval{0, 96000}},
	}
	dims := []Dimensions{{1000, 500}, {37, 911}, {1, 1}}

	for _, vp := range viewports {
		for _, d := range dims {
			for _, g := range sampleGeometries() {
				px := ScaleToViewport(d, g, vp)
				back := ScaleToWindow(d, px, vp)
				assertPositionsEqual(t, g, back)
			}
		}
	}
}

func TestScaleBoundingBoxToViewport(t *testing.T) {
	vp := Window{Time: Interval{0, 20}, Freq: Interval{0, 10000}}
	dims := Dimensions{Width: 1000, Height: 500}

	px := ScaleToViewport(dims, BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000}, vp)
	box, ok := px.(BoundingBox)
	require.True(t, ok)

	assert.InDelta(t, 500, box.StartTime, tol, "left")
	assert.InDelta(t, 600, box.EndTime, tol, "right")
	assert.InDelta(t, 100, box.HighFreq, tol, "top")
	assert.InDelta(t, 200, box.LowFreq, tol, "bottom")
}

func TestScaleDegenerateViewport(t *testing.T) {
	vp := Window{Time: Interval{5, 5}, Freq: Interval{100, 100}}
	dims := Dimensions{Width: 800, Height: 400}

	for _, g := range sampleGeometries() {
		px := ScaleToViewport(dims, g, vp)
		for _, p := range Positions(px) {
			assert.False(t, math.IsNaN(p.Time) || math.IsInf(p.Time, 0))
			assert.False(t, math.IsNaN(p.Freq) || math.IsInf(p.Freq, 0))
		}
	}

	assert.Equal(t, 5.0, XToTime(Dimensions{}, vp, 10))
}

func TestInWindow(t *testing.T) {
	w := Window{Time: Interval{10, 20}, Freq: Interval{1000, 2000}}

	tests := []struct {
		name string
		g    Geometry
		want bool
	}{
		{"stamp inside", TimeStamp{Time: 15}, true},
		{"stamp outside", TimeStamp{Time: 25}, false},
		{"interval straddling", TimeInterval{Start: 5, End: 11}, true},
		{"box above", BoundingBox{StartTime: 12, LowFreq: 3000, EndTime: 14, HighFreq: 4000}, false},
		{"box touching edge", BoundingBox{StartTime: 20, LowFreq: 2000, EndTime: 22, HighFreq: 2500}, true},
		{"point inside", Point{Time: 11, Freq: 1500}, true},
		{"empty line", LineString{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InWindow(tt.g, w))
		})
	}
}

func TestPixelDistance(t *testing.T) {
	p := Point2D{X: 10, Y: 10}

	assert.Equal(t, 0.0, PixelDistance(BoundingBox{StartTime: 0, LowFreq: 20, EndTime: 20, HighFreq: 0}, p))
	assert.InDelta(t, 5, PixelDistance(TimeStamp{Time: 15}, p), tol)
	assert.InDelta(t, 3, PixelDistance(TimeInterval{Start: 13, End: 40}, p), tol)
	assert.InDelta(t, 5, PixelDistance(Point{Time: 13, Freq: 14}, p), tol)
	assert.InDelta(t, 2, PixelDistance(LineString{{0, 12}, {20, 12}}, p), tol)
	assert.True(t, math.IsInf(PixelDistance(MultiPoint{}, p), 1))

	square := []Position{{0, 0}, {20, 0}, {20, 20}, {0, 20}}
	hole := []Position{{5, 5}, {15, 5}, {15, 15}, {5, 15}}
	assert.Equal(t, 0.0, PixelDistance(Polygon{square}, p))
	assert.InDelta(t, 5, PixelDistance(Polygon{square, hole}, p), tol)
}

func TestCodecRoundTrip(t *testing.T) {
	for _, g := range sampleGeometries() {
		t.Run(string(g.Kind()), func(t *testing.T) {
			data, err := Marshal(g)
			require.NoError(t, err)
			got, err := Unmarshal(data)
			require.NoError(t, err)
			assertPositionsEqual(t, g, got)
		})
	}
}

func TestUnmarshalBoundingBoxOrder(t *testing.T) {
	g, err := Unmarshal([]byte(`{"type":"BoundingBox","coordinates":[10,8000,12,6000]}`))
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000}, g)

	g, err = Unmarshal([]byte(`{"type":"BoundingBox","coordinates":[10,6000,12,8000]}`))
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000}, g)
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"Hexagon","coordinates":[1]}`))
	assert.ErrorIs(t, err, ErrUnknownGeometry)

	_, err = Unmarshal([]byte(`{"type":"TimeInterval","coordinates":"nope"}`))
	assert.ErrorIs(t, err, ErrMalformedGeometry)

	_, err = Unmarshal([]byte(`{"type":"Point"}`))
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestIntervalValidate(t *testing.T) {
	assert.NoError(t, Interval{1, 2}.Validate())
	assert.ErrorIs(t, Interval{2, 1}.Validate(), ErrInvertedInterval)
	assert.ErrorIs(t, Window{Time: Interval{0, 1}, Freq: Interval{5, 4}}.Validate(), ErrInvertedInterval)
}
