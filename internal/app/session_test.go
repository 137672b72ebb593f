package app

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"spectrogram-annotator/internal/annotation"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/pkg/colorutil"
	"spectrogram-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"
)

var testRec = recording.Recording{ID: "rec-1", Duration: 100, SampleRate: 44100, Channels: 1}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func testURL(id string, seg geometry.Interval, p recording.Parameters) string {
	return fmt.Sprintf("%s/%.3f-%.3f?%s", id, seg.Min, seg.Max, p.Key())
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Style.ShowAxes = false
	cfg.Style.ShowLabels = false
	cfg.Style.Interpolation = xdraw.NearestNeighbor
	return cfg
}

// newRegistry serves solid blue tiles. 800 columns of 552 bins give 10s
// chunks with the default parameters.
func newRegistry(fetcher segment.Fetcher) *segment.Registry {
	if fetcher == nil {
		fetcher = segment.FetcherFunc(func(ctx context.Context, url string) (image.Image, error) {
			return solid(colorutil.Blue), nil
		})
	}
	return segment.NewRegistry(fetcher, testURL,
		segment.PlannerConfig{MaxPixels: 800 * 552, BufferWindows: 40},
		segment.DefaultCacheConfig())
}

func newSession(t *testing.T, reg *segment.Registry) *Session {
	t.Helper()
	s, err := NewSession(reg, testRec, recording.DefaultParameters(), testConfig())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.SetDimensions(800, 400)
	return s
}

func waitLoads(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Cache().Wait(ctx))
}

// recorder collects events of one type.
type recorder struct {
	mu   sync.Mutex
	data []interface{}
}

func record(s *Session, ev EventType) *recorder {
	r := &recorder{}
	s.On(ev, func(d interface{}) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.data = append(r.data, d)
	})
	return r
}

func (r *recorder) all() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}(nil), r.data...)
}

func drag(s *Session, from, to geometry.Point2D) {
	p := s.Props()
	p.OnPressStart(from, 0)
	p.OnMove(to, 0)
	p.OnPressEnd(to, 0)
}

func click(s *Session, at geometry.Point2D) {
	p := s.Props()
	p.OnPressStart(at, 0)
	p.OnPressEnd(at, 0)
}

func TestNewSessionRejectsBadInput(t *testing.T) {
	reg := newRegistry(nil)

	_, err := NewSession(reg, recording.Recording{ID: "x", Duration: 10}, recording.DefaultParameters(), testConfig())
	assert.ErrorIs(t, err, recording.ErrInvalidSampleRate)

	params := recording.DefaultParameters()
	params.Overlap = 1
	_, err = NewSession(reg, testRec, params, testConfig())
	assert.ErrorIs(t, err, recording.ErrInvalidParameters)
	assert.Zero(t, reg.Len())
}

func TestSessionInitialFrame(t *testing.T) {
	s := newSession(t, newRegistry(nil))

	vp := s.Viewport()
	assert.Equal(t, geometry.Interval{Min: 0, Max: 20}, vp.Time)
	assert.Equal(t, geometry.Interval{Min: 0, Max: 22050}, vp.Freq)

	waitLoads(t, s)
	assert.Equal(t, 2, s.Cache().Stats().Requests)

	frame := s.Frame(200, 100)
	assert.Equal(t, colorutil.Blue, frame.RGBAAt(50, 50))
	assert.Equal(t, colorutil.Blue, frame.RGBAAt(150, 50))
}

func TestSegmentLoadedEvents(t *testing.T) {
	release := make(chan struct{})
	reg := newRegistry(segment.FetcherFunc(func(ctx context.Context, url string) (image.Image, error) {
		select {
		case <-release:
			return solid(colorutil.Blue), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	s := newSession(t, reg)
	loaded := record(s, EventSegmentLoaded)

	// Nothing loaded yet: the frame is background only.
	frame := s.Frame(200, 100)
	assert.Equal(t, s.cfg.Style.Background, frame.RGBAAt(50, 50))

	close(release)
	waitLoads(t, s)
	// Two covering chunks plus one prefetch.
	assert.Len(t, loaded.all(), 3)
	for _, d := range loaded.all() {
		assert.Equal(t, segment.StateLoaded, d.(*segment.Entry).State)
	}
}

func TestSessionZoomDragAndBack(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	changed := record(s, EventViewportChanged)
	modes := record(s, EventModeChanged)

	s.SetMode(interaction.ModeZooming)
	s.SetMode(interaction.ModeZooming)
	assert.Equal(t, []interface{}{interaction.ModeZooming}, modes.all())

	drag(s, geometry.Point2D{X: 100, Y: 50}, geometry.Point2D{X: 300, Y: 150})

	vp := s.Viewport()
	assert.InDelta(t, 2.5, vp.Time.Min, 1e-9)
	assert.InDelta(t, 7.5, vp.Time.Max, 1e-9)
	assert.InDelta(t, 13781.25, vp.Freq.Min, 1e-6)
	assert.InDelta(t, 19293.75, vp.Freq.Max, 1e-6)
	require.Len(t, changed.all(), 1)
	assert.Equal(t, vp, changed.all()[0])

	assert.True(t, s.CanGoBack())
	assert.True(t, s.Back())
	assert.Equal(t, geometry.Interval{Min: 0, Max: 20}, s.Viewport().Time)
	assert.False(t, s.Back())
	assert.Len(t, changed.all(), 2)
}

func TestListenersMayCallBack(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	s.On(EventGeometryCreated, func(d interface{}) {
		s.AddAnnotation(d.(geometry.Geometry), "bird")
	})
	changed := record(s, EventAnnotationsChanged)

	s.SetMode(interaction.ModeDrawing)
	s.SetShape(interaction.ShapeBoundingBox)
	drag(s, geometry.Point2D{X: 100, Y: 100}, geometry.Point2D{X: 300, Y: 200})

	list := s.Annotations()
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)
	assert.Equal(t, []string{"bird"}, list[0].Tags)
	box := list[0].Geometry.(geometry.BoundingBox)
	assert.InDelta(t, 2.5, box.StartTime, 1e-9)
	assert.InDelta(t, 7.5, box.EndTime, 1e-9)
	assert.Len(t, changed.all(), 1)

	_, ok := s.TagColors()["bird"]
	assert.True(t, ok)
}

func TestSessionSelectAndDelete(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	s.On(EventAnnotationDeleted, func(d interface{}) {
		s.RemoveAnnotation(d.(annotation.Annotation).ID)
	})
	selection := record(s, EventSelectionChanged)

	a := s.AddAnnotation(geometry.BoundingBox{StartTime: 5, LowFreq: 5000, EndTime: 10, HighFreq: 15000})

	// The box spans x 200..400 on the 800px surface.
	s.SetMode(interaction.ModeSelecting)
	click(s, geometry.Point2D{X: 200, Y: 200})
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, sel.ID)

	click(s, geometry.Point2D{X: 700, Y: 50})
	_, ok = s.Selected()
	assert.False(t, ok)

	assert.True(t, s.Select(a.ID))
	s.SetMode(interaction.ModeDeleting)
	click(s, geometry.Point2D{X: 400, Y: 200})
	assert.Empty(t, s.Annotations())
	_, ok = s.Selected()
	assert.False(t, ok)

	events := selection.all()
	require.Len(t, events, 4)
	assert.Equal(t, a.ID, events[0].(*annotation.Annotation).ID)
	assert.Nil(t, events[1].(*annotation.Annotation))
	assert.Equal(t, a.ID, events[2].(*annotation.Annotation).ID)
	assert.Nil(t, events[3].(*annotation.Annotation))
}

func TestSessionEditCommit(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	commits := record(s, EventGeometryCommitted)
	s.On(EventGeometryCommitted, func(d interface{}) {
		e := d.(Edit)
		s.UpdateAnnotation(e.Annotation.ID, e.Geometry)
	})

	a := s.AddAnnotation(geometry.TimeStamp{Time: 5})
	require.True(t, s.Select(a.ID))
	s.SetMode(interaction.ModeEditing)

	// 40px is 1s at 800px for a 20s window.
	drag(s, geometry.Point2D{X: 200, Y: 200}, geometry.Point2D{X: 240, Y: 200})

	require.Len(t, commits.all(), 1)
	assert.Equal(t, a.ID, commits.all()[0].(Edit).Annotation.ID)
	got := s.Annotations()[0].Geometry.(geometry.TimeStamp)
	assert.InDelta(t, 6, got.Time, 1e-9)
}

func TestSessionSetParamsSwapsCache(t *testing.T) {
	reg := newRegistry(nil)
	s := newSession(t, reg)
	events := record(s, EventParamsChanged)
	old := s.Cache()

	require.NoError(t, s.SetParams(recording.DefaultParameters()))
	assert.Same(t, old, s.Cache())
	assert.Empty(t, events.all())

	p := recording.DefaultParameters()
	p.ColorMap = "viridis"
	require.NoError(t, s.SetParams(p))
	assert.NotSame(t, old, s.Cache())
	assert.True(t, old.Closed())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "viridis", s.Params().ColorMap)
	assert.Len(t, events.all(), 1)

	bad := p
	bad.WindowSize = 0
	assert.ErrorIs(t, s.SetParams(bad), recording.ErrInvalidParameters)
}

func TestSharedCacheOutlivesOneSession(t *testing.T) {
	reg := newRegistry(nil)
	a := newSession(t, reg)
	b := newSession(t, reg)
	assert.Same(t, a.Cache(), b.Cache())

	c := a.Cache()
	a.Close()
	assert.False(t, c.Closed())
	b.Close()
	assert.True(t, c.Closed())
	assert.Zero(t, reg.Len())
}

func TestSessionSetRecording(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	loaded := record(s, EventRecordingLoaded)
	s.AddAnnotation(geometry.TimeStamp{Time: 3})
	onset := 4.0
	s.SetOnset(&onset)
	s.Zoom(0.5)

	next := recording.Recording{ID: "rec-2", Duration: 50, SampleRate: 22050, Channels: 2}
	require.NoError(t, s.SetRecording(next))

	assert.Equal(t, next, s.Recording())
	assert.Empty(t, s.Annotations())
	assert.Nil(t, s.Onset())
	assert.False(t, s.CanGoBack())
	assert.Equal(t, geometry.Interval{Min: 0, Max: 50}, s.Bounds().Time)
	assert.Equal(t, geometry.Interval{Min: 0, Max: 20}, s.Viewport().Time)
	assert.Equal(t, geometry.Interval{Min: 0, Max: 11025}, s.Viewport().Freq)
	assert.Equal(t, "rec-2", s.Cache().Key().RecordingID)
	assert.Len(t, loaded.all(), 1)

	assert.ErrorIs(t, s.SetRecording(recording.Recording{ID: "bad", SampleRate: 100}), recording.ErrInvalidDuration)
}

func TestSessionOnset(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	events := record(s, EventPlayback)

	t5 := 5.0
	s.SetOnset(&t5)
	s.SetOnset(&t5)
	require.NotNil(t, s.Onset())
	assert.Equal(t, 5.0, *s.Onset())
	s.SetOnset(nil)
	s.SetOnset(nil)
	assert.Nil(t, s.Onset())
	assert.Len(t, events.all(), 2)

	frame := s.Frame(800, 400)
	assert.NotEqual(t, s.cfg.Style.Onset, frame.RGBAAt(200, 300))
	s.SetOnset(&t5)
	frame = s.Frame(800, 400)
	assert.Equal(t, s.cfg.Style.Onset, frame.RGBAAt(200, 300))
}

func TestDoubleClickSeeks(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	seeks := record(s, EventSeek)
	s.Props().OnDoubleClick(geometry.Point2D{X: 400, Y: 10})
	require.Len(t, seeks.all(), 1)
	assert.InDelta(t, 10, seeks.all()[0].(float64), 1e-9)
}

func TestAnnotationsFile(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	s.AddAnnotation(geometry.TimeInterval{Start: 1, End: 2}, "frog")
	s.AddAnnotation(geometry.Point{Time: 3, Freq: 400})

	path := filepath.Join(t.TempDir(), "annotations.json")
	require.NoError(t, s.SaveAnnotations(path))

	other := newSession(t, newRegistry(nil))
	require.NoError(t, other.LoadAnnotations(path))
	assert.Equal(t, s.Annotations(), other.Annotations())

	// Generated ids skip the loaded ones.
	a := other.AddAnnotation(geometry.TimeStamp{Time: 1})
	assert.Equal(t, "a3", a.ID)

	assert.Error(t, other.LoadAnnotations(filepath.Join(t.TempDir(), "missing.json")))
}

func TestApplyEdits(t *testing.T) {
	s := newSession(t, newRegistry(nil))
	s.ApplyEdits(func() []string { return []string{"frog"} })

	// Draw: 200..400px is 5..10s.
	s.SetMode(interaction.ModeDrawing)
	s.SetShape(interaction.ShapeTimeInterval)
	drag(s, geometry.Point2D{X: 200, Y: 100}, geometry.Point2D{X: 400, Y: 100})
	list := s.Annotations()
	require.Len(t, list, 1)
	assert.Equal(t, []string{"frog"}, list[0].Tags)
	iv := list[0].Geometry.(geometry.TimeInterval)
	assert.InDelta(t, 5, iv.Start, 1e-9)
	assert.InDelta(t, 10, iv.End, 1e-9)

	// Copy: ctrl-drag the body 40px to the right.
	require.True(t, s.Select(list[0].ID))
	s.SetMode(interaction.ModeEditing)
	p := s.Props()
	p.OnPressStart(geometry.Point2D{X: 300, Y: 100}, interaction.ModCtrl)
	p.OnMove(geometry.Point2D{X: 340, Y: 100}, interaction.ModCtrl)
	p.OnPressEnd(geometry.Point2D{X: 340, Y: 100}, interaction.ModCtrl)

	list = s.Annotations()
	require.Len(t, list, 2)
	assert.InDelta(t, 5, list[0].Geometry.(geometry.TimeInterval).Start, 1e-9)
	moved := list[1].Geometry.(geometry.TimeInterval)
	assert.InDelta(t, 6, moved.Start, 1e-9)
	assert.InDelta(t, 11, moved.End, 1e-9)
	assert.Equal(t, []string{"frog"}, list[1].Tags)

	// Delete the copy.
	s.SetMode(interaction.ModeDeleting)
	click(s, geometry.Point2D{X: 440, Y: 100})
	list = s.Annotations()
	require.Len(t, list, 1)
	assert.InDelta(t, 5, list[0].Geometry.(geometry.TimeInterval).Start, 1e-9)
}
