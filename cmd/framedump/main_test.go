package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScene(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSceneDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, `
tile_dir = "tiles"

[recording]
id = "rec"
duration = 60.0
samplerate = 22050

[parameters]
cmap = "magma"
`)
	sc, err := LoadScene(path)
	require.NoError(t, err)

	assert.Equal(t, "frame.png", sc.Output)
	assert.Equal(t, 1200, sc.Width)
	assert.True(t, sc.Axes)
	assert.Nil(t, sc.Onset)
	assert.Equal(t, "magma", sc.Parameters.ColorMap)
	assert.Equal(t, recording.DefaultParameters().WindowSize, sc.Parameters.WindowSize)

	w := sc.Window()
	assert.Equal(t, geometry.Interval{Min: 0, Max: 60}, w.Time)
	assert.Equal(t, geometry.Interval{Min: 0, Max: 11025}, w.Freq)
}

func TestLoadSceneErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScene(writeScene(t, dir, `
[recording]
id = "rec"
duration = 60.0
samplerate = 22050
`))
	assert.ErrorIs(t, err, errNoSource)

	_, err = LoadScene(writeScene(t, dir, `
tile_dir = "tiles"
[recording]
id = "rec"
duration = 60.0
samplerate = 0
`))
	assert.ErrorIs(t, err, recording.ErrInvalidSampleRate)

	_, err = LoadScene(writeScene(t, dir, `width = "wide"`))
	assert.Error(t, err)
}

func TestRenderFromTileDir(t *testing.T) {
	dir := t.TempDir()
	tiles := filepath.Join(dir, "tiles")
	require.NoError(t, os.MkdirAll(tiles, 0o755))

	green := color.RGBA{0, 200, 0, 255}
	tile := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			tile.SetRGBA(x, y, green)
		}
	}

	// A 60s recording fits in one chunk at the default pixel budget.
	rec := recording.Recording{ID: "rec", Duration: 60, SampleRate: 22050, Channels: 1}
	name := segment.DirURL(tiles)(rec.ID, geometry.Interval{Min: 0, Max: 60}, recording.DefaultParameters())
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, tile))
	require.NoError(t, f.Close())

	path := writeScene(t, dir, `
width = 300
height = 100
tile_dir = "`+filepath.ToSlash(tiles)+`"
axes = false
labels = false
onset = 30.0

[recording]
id = "rec"
duration = 60.0
samplerate = 22050

[viewport]
start = 15.0
end = 45.0
`)
	sc, err := LoadScene(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Render(ctx, sc)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, geometry.Interval{Min: 15, Max: 45}, s.Viewport().Time)

	frame := s.Frame(sc.Width, sc.Height)
	assert.Equal(t, green, frame.RGBAAt(50, 50))
	assert.Equal(t, green, frame.RGBAAt(250, 50))
	assert.NotEqual(t, green, frame.RGBAAt(150, 50), "onset marker at the center")
}
