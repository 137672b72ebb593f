package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/internal/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileGivesDefaults(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "none.json"))

	v := p.Viewer()
	assert.Equal(t, recording.DefaultParameters(), v.Params)
	assert.Equal(t, viewport.DefaultConfig(), v.Viewport)
	assert.Equal(t, segment.DefaultPlannerConfig(), v.Planner)
	assert.Equal(t, segment.DefaultCacheConfig(), v.Cache)
	assert.Empty(t, v.ServiceURL)
	assert.Equal(t, 20.0, v.InitialSpan)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", prefsFile)
	p := LoadFrom(path)

	params := recording.DefaultParameters()
	params.ColorMap = "viridis"
	params.WindowSize = 0.05
	params.HighFreq = 8000
	p.SetParameters(params)
	p.SetFloat(KeyMinTimeZoom, 0.01)
	p.SetInt(KeyHistoryLimit, 8)
	p.SetInt(KeyPrefetchRadius, 2)
	p.SetFloat(KeyImageTimeout, 2.5)
	p.SetString(KeyServiceURL, "http://localhost:8000/spectrogram")
	p.SetBool("viewer.show_axes", false)
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	v := q.Viewer()
	assert.Equal(t, params, v.Params)
	assert.Equal(t, 0.01, v.Viewport.MinTimeZoom)
	assert.Equal(t, 8, v.Viewport.HistoryLimit)
	assert.Equal(t, 2, v.Cache.PrefetchRadius)
	assert.Equal(t, 2500*time.Millisecond, v.Cache.Timeout)
	assert.Equal(t, "http://localhost:8000/spectrogram", v.ServiceURL)
	assert.False(t, q.Bool("viewer.show_axes", true))
	assert.True(t, q.Bool("viewer.missing", true))
}

func TestInvalidParametersFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	data := `{"spectrogram.parameters": {"window_size": -1, "overlap": 0.5}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, recording.DefaultParameters(), p.Parameters())
}

func TestPartialParametersKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	data := `{"spectrogram.parameters": {"cmap": "magma"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	got := LoadFrom(path).Parameters()
	want := recording.DefaultParameters()
	want.ColorMap = "magma"
	assert.Equal(t, want, got)
}

func TestCorruptFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, 3, p.Int("missing", 3))
	assert.Equal(t, "x", p.String("missing", "x"))
}
