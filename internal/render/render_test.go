package render

import (
	"image"
	"image/color"
	"testing"

	"spectrogram-annotator/internal/annotation"
	specimage "spectrogram-annotator/internal/image"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/pkg/colorutil"
	"spectrogram-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	xdraw "golang.org/x/image/draw"
)

var testVP = geometry.Window{
	Time: geometry.Interval{Min: 0, Max: 20},
	Freq: geometry.Interval{Min: 0, Max: 10000},
}

// plainStyle turns off axes and labels so pixel checks only see overlays.
func plainStyle() Style {
	st := DefaultStyle()
	st.ShowAxes = false
	st.ShowLabels = false
	return st
}

func frame() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 1000, 500))
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestEmptySceneIsBackground(t *testing.T) {
	st := plainStyle()
	img := frame()
	Draw(img, testVP, Scene{Style: st})
	assert.Equal(t, 1000*500, countColor(img, st.Background))
}

func TestNonRenderableViewportDrawsNothing(t *testing.T) {
	st := DefaultStyle()
	img := frame()
	onset := 0.0
	vp := geometry.Window{Time: geometry.Interval{Min: 5, Max: 5}, Freq: testVP.Freq}
	Draw(img, vp, Scene{
		Style:       st,
		Onset:       &onset,
		Annotations: []annotation.Annotation{{ID: "a", Geometry: geometry.TimeStamp{Time: 5}}},
	})
	assert.Equal(t, 1000*500, countColor(img, st.Background))
}

func TestAxesDrawn(t *testing.T) {
	st := DefaultStyle()
	st.ShowLabels = false
	img := frame()
	Draw(img, testVP, Scene{Style: st})
	assert.Less(t, countColor(img, st.Background), 1000*500)
}

func TestBoundingBoxPlacement(t *testing.T) {
	st := plainStyle()
	st.LineWidth = 1
	img := frame()
	colors := colorutil.TagColors{"bird": colorutil.Green}
	Draw(img, testVP, Scene{
		Style:     st,
		TagColors: colors,
		Annotations: []annotation.Annotation{{
			ID:       "a",
			Geometry: geometry.BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000},
			Tags:     []string{"bird"},
		}},
	})

	// x = 500..600, y = 100..200
	assert.Equal(t, colorutil.Green, img.RGBAAt(500, 150))
	assert.Equal(t, colorutil.Green, img.RGBAAt(600, 150))
	assert.Equal(t, colorutil.Green, img.RGBAAt(550, 100))
	assert.Equal(t, colorutil.Green, img.RGBAAt(550, 200))
	assert.Equal(t, st.Background, img.RGBAAt(550, 150))
	assert.Equal(t, st.Background, img.RGBAAt(499, 150))
	assert.Equal(t, st.Background, img.RGBAAt(550, 99))
}

func TestUntaggedUsesDefaultColor(t *testing.T) {
	st := plainStyle()
	a := annotation.Annotation{ID: "a", Geometry: geometry.TimeStamp{Time: 10}}
	assert.Equal(t, st.Untagged, ColorFor(a, colorutil.TagColors{"bird": colorutil.Green}, st))

	img := frame()
	Draw(img, testVP, Scene{Style: st, Annotations: []annotation.Annotation{a}})
	assert.Equal(t, st.Untagged, img.RGBAAt(500, 0))
	assert.Equal(t, st.Untagged, img.RGBAAt(500, 499))
}

func TestOffscreenAnnotationSkipped(t *testing.T) {
	st := plainStyle()
	img := frame()
	Draw(img, testVP, Scene{
		Style:       st,
		Annotations: []annotation.Annotation{{ID: "a", Geometry: geometry.TimeStamp{Time: 40}}},
	})
	assert.Equal(t, 1000*500, countColor(img, st.Background))
}

func TestTilesComposited(t *testing.T) {
	st := plainStyle()
	st.Interpolation = xdraw.NearestNeighbor
	tile := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			tile.SetRGBA(x, y, colorutil.Blue)
		}
	}
	left := specimage.NewLayer(tile, geometry.Window{
		Time: geometry.Interval{Min: 0, Max: 10},
		Freq: testVP.Freq,
	})

	img := frame()
	Draw(img, testVP, Scene{Style: st, Tiles: []*specimage.Layer{left}})
	assert.Equal(t, colorutil.Blue, img.RGBAAt(200, 250))
	assert.Equal(t, st.Background, img.RGBAAt(800, 250))
}

func TestOnsetMarker(t *testing.T) {
	st := plainStyle()
	img := frame()
	onset := 5.0
	Draw(img, testVP, Scene{Style: st, Onset: &onset})
	assert.Equal(t, st.Onset, img.RGBAAt(250, 300))

	img = frame()
	outside := 25.0
	Draw(img, testVP, Scene{Style: st, Onset: &outside})
	assert.Zero(t, countColor(img, st.Onset))
}

func TestZoomFeedbackDashed(t *testing.T) {
	st := plainStyle()
	st.ZoomBox = color.RGBA{R: 1, G: 2, B: 3, A: 255}
	img := frame()
	Draw(img, testVP, Scene{
		Style: st,
		Feedback: interaction.Feedback{
			Mode:      interaction.ModeZooming,
			Transient: geometry.BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000},
		},
	})
	n := countColor(img, st.ZoomBox)
	assert.Positive(t, n)
	// Dashes cover part of the 100x100 outline, not all of it.
	assert.Less(t, n, 400)
}

func TestHandlesDrawnOverSelection(t *testing.T) {
	st := plainStyle()
	box := geometry.BoundingBox{StartTime: 10, LowFreq: 6000, EndTime: 12, HighFreq: 8000}
	sel := annotation.Annotation{ID: "a", Geometry: box}
	img := frame()
	Draw(img, testVP, Scene{
		Style:       st,
		Annotations: []annotation.Annotation{sel},
		Feedback: interaction.Feedback{
			Mode:     interaction.ModeEditing,
			Selected: &sel,
			Handles:  interaction.Handles(box, testVP),
		},
	})
	assert.Equal(t, st.Handle, img.RGBAAt(500, 100))
	assert.Equal(t, st.Handle, img.RGBAAt(600, 200))
	// Edge midpoint handles.
	assert.Equal(t, st.Handle, img.RGBAAt(550, 100))
	assert.Equal(t, st.Handle, img.RGBAAt(500, 150))
}

func TestHoverHighlightsTagColor(t *testing.T) {
	st := plainStyle()
	st.LineWidth = 1
	colors := colorutil.TagColors{"bird": colorutil.Green}
	tagged := annotation.Annotation{ID: "a", Geometry: geometry.TimeStamp{Time: 10}, Tags: []string{"bird"}}
	plain := annotation.Annotation{ID: "b", Geometry: geometry.TimeStamp{Time: 5}}

	light := colorutil.Highlight(colorutil.Green)
	assert.Equal(t, light, HoverColor(tagged, colors, st))
	assert.Equal(t, st.Hover, HoverColor(plain, colors, st))

	img := frame()
	Draw(img, testVP, Scene{
		Style:       st,
		TagColors:   colors,
		Annotations: []annotation.Annotation{tagged, plain},
		Feedback:    interaction.Feedback{Mode: interaction.ModeSelecting, Hovered: &tagged},
	})
	assert.Equal(t, light, img.RGBAAt(500, 250))
	assert.Equal(t, st.Untagged, img.RGBAAt(250, 250))
}
