package image

import (
	"image"
	"image/color"
	"testing"

	"spectrogram-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return img
}

func TestSourceRectCropsToViewport(t *testing.T) {
	layer := NewLayer(solid(1000, 100, color.RGBA{A: 255}), geometry.Window{
		Time: geometry.Interval{Min: 0, Max: 10},
		Freq: geometry.Interval{Min: 0, Max: 1000},
	})
	vp := geometry.Window{Time: geometry.Interval{Min: 5, Max: 15}, Freq: geometry.Interval{Min: 500, Max: 1000}}

	src, dst, ok := SourceRect(geometry.Dimensions{Width: 200, Height: 100}, vp, layer)
	require.True(t, ok)
	assert.Equal(t, image.Rect(500, 0, 1000, 50), src)
	assert.Equal(t, image.Rect(0, 0, 100, 100), dst)
}

func TestSourceRectOutsideViewport(t *testing.T) {
	layer := NewLayer(solid(10, 10, color.RGBA{A: 255}), geometry.Window{
		Time: geometry.Interval{Min: 0, Max: 1},
		Freq: geometry.Interval{Min: 0, Max: 1},
	})
	vp := geometry.Window{Time: geometry.Interval{Min: 2, Max: 3}, Freq: geometry.Interval{Min: 0, Max: 1}}

	_, _, ok := SourceRect(geometry.Dimensions{Width: 10, Height: 10}, vp, layer)
	assert.False(t, ok)
	_, _, ok = SourceRect(geometry.Dimensions{Width: 10, Height: 10}, vp, &Layer{})
	assert.False(t, ok)
}

func TestCompositeDrawsOnlyCoveredRegion(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	c := NewComposite()
	c.Scaler = xdraw.NearestNeighbor
	c.AddLayer(NewLayer(solid(20, 20, red), geometry.Window{
		Time: geometry.Interval{Min: 0, Max: 5},
		Freq: geometry.Interval{Min: 0, Max: 100},
	}))

	out := c.Render(geometry.Window{Time: geometry.Interval{Min: 0, Max: 10}, Freq: geometry.Interval{Min: 0, Max: 100}}, 100, 50)

	assert.Equal(t, red, out.RGBAAt(10, 25))
	assert.Equal(t, c.BackColor, out.RGBAAt(75, 25))
}

func TestDrawLayerSkipsHidden(t *testing.T) {
	out := solid(10, 10, color.RGBA{A: 255})
	layer := NewLayer(solid(10, 10, color.RGBA{G: 255, A: 255}), geometry.Window{
		Time: geometry.Interval{Min: 0, Max: 1},
		Freq: geometry.Interval{Min: 0, Max: 1},
	})
	layer.Visible = false

	DrawLayer(out, layer.Window(), layer, nil)
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(5, 5))
}

func TestDrawLineAndRect(t *testing.T) {
	out := solid(20, 20, color.RGBA{A: 255})
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	DrawLine(out, 0, 0, 19, 19, white, 1)
	assert.Equal(t, white, out.RGBAAt(10, 10))

	StrokeRect(out, 2, 2, 8, 8, white, 1)
	assert.Equal(t, white, out.RGBAAt(2, 5))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(5, 4))

	// Out of bounds writes are ignored.
	DrawLine(out, -10, -10, -5, -5, white, 3)
}
