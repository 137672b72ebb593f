package axis

import (
	"image"
	"image/color"
	"testing"

	"spectrogram-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicksSpacing(t *testing.T) {
	tests := []struct {
		name   string
		pixels float64
		iv     geometry.Interval
	}{
		{"full recording", 800, geometry.Interval{Min: 0, Max: 120}},
		{"nyquist", 400, geometry.Interval{Min: 0, Max: 22050}},
		{"zoomed", 1000, geometry.Interval{Min: 3.217, Max: 3.291}},
		{"offset", 300, geometry.Interval{Min: 1234, Max: 5678}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := Ticks(tt.pixels, tt.iv)
			require.NotEmpty(t, ts.Major)
			assert.InDelta(t, ts.Step/MinorPerMajor, ts.MinorStep, 1e-12)
			assert.LessOrEqual(t, float64(len(ts.Major)), tt.pixels/MinTickSpacing)
			for _, v := range ts.Major {
				assert.True(t, tt.iv.Contains(v) || almost(v, tt.iv.Min) || almost(v, tt.iv.Max), "tick %v outside %v", v, tt.iv)
			}
		})
	}
}

func almost(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestTicksMonotonic(t *testing.T) {
	intervals := []geometry.Interval{
		{Min: 0, Max: 120},
		{Min: 0, Max: 22050},
		{Min: 17.3, Max: 19.9},
		{Min: 0.001, Max: 0.0042},
		{Min: 440, Max: 460},
	}
	for _, iv := range intervals {
		prev := -1
		for px := 10.0; px <= 3000; px += 7 {
			n := len(Ticks(px, iv).Major)
			assert.GreaterOrEqual(t, n, prev, "interval %v at %v px", iv, px)
			prev = n
		}
	}
}

func TestTicksHalvingCorrection(t *testing.T) {
	// A power-of-ten step gives only 0 and 10; halving adds 5.
	ts := Ticks(200, geometry.Interval{Min: 0, Max: 10})
	assert.Equal(t, 5.0, ts.Step)
	assert.Equal(t, []float64{0, 5, 10}, ts.Major)
}

func TestTicksDeterministic(t *testing.T) {
	iv := geometry.Interval{Min: 2.5, Max: 91.25}
	assert.Equal(t, Ticks(640, iv), Ticks(640, iv))
}

func TestTicksDegenerate(t *testing.T) {
	assert.Empty(t, Ticks(500, geometry.Interval{Min: 3, Max: 3}).Major)
	assert.Empty(t, Ticks(0, geometry.Interval{Min: 0, Max: 1}).Major)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.5s", FormatTime(1.5, 0.5))
	assert.Equal(t, "10s", FormatTime(10, 10))
	assert.Equal(t, "1:05", FormatTime(65, 5))
	assert.Equal(t, "2:00.5", FormatTime(120.5, 0.5))
	assert.Equal(t, "8kHz", FormatFreq(8000, 2000))
	assert.Equal(t, "500Hz", FormatFreq(500, 100))
	assert.Equal(t, "2.5kHz", FormatFreq(2500, 500))
}

func TestDrawDoesNotPanic(t *testing.T) {
	out := image.NewRGBA(image.Rect(0, 0, 320, 200))
	Draw(out, geometry.Window{Time: geometry.Interval{Min: 0, Max: 30}, Freq: geometry.Interval{Min: 0, Max: 22050}}, DefaultStyle())
	Draw(out, geometry.Window{}, DefaultStyle())

	var painted bool
	for y := 0; y < 200 && !painted; y++ {
		if out.RGBAAt(0, y) != (color.RGBA{}) {
			painted = true
		}
	}
	assert.True(t, painted)
}
