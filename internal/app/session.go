// Package app ties one spectrogram view together: viewport, segment cache,
// gesture layer, annotations and playback position, with an event bus for
// the UI.
package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"
	"sync"

	"spectrogram-annotator/internal/annotation"
	specimage "spectrogram-annotator/internal/image"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/render"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/internal/viewport"
	"spectrogram-annotator/pkg/colorutil"
	"spectrogram-annotator/pkg/geometry"
)

// EventType identifies session events.
type EventType int

const (
	EventRecordingLoaded    EventType = iota // recording.Recording
	EventParamsChanged                       // recording.Parameters
	EventViewportChanged                     // geometry.Window
	EventSegmentLoaded                       // *segment.Entry
	EventModeChanged                         // interaction.Mode
	EventAnnotationsChanged                  // []annotation.Annotation
	EventSelectionChanged                    // *annotation.Annotation, nil when cleared
	EventHoverChanged                        // nil
	EventGeometryCreated                     // geometry.Geometry
	EventGeometryChanged                     // geometry.Geometry, live during an edit
	EventGeometryCommitted                   // Edit
	EventGeometryCopied                      // Edit
	EventAnnotationDeleted                   // annotation.Annotation
	EventIdle                                // nil
	EventSeek                                // float64
	EventPlayback                            // *float64, nil when stopped
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Edit is the payload of a finished edit or copy: the annotation that was
// dragged and its new geometry.
type Edit struct {
	Annotation annotation.Annotation
	Geometry   geometry.Geometry
}

// Config collects the policies of a session.
type Config struct {
	Viewport    viewport.Config
	Gestures    interaction.Config
	Style       render.Style
	InitialSpan float64 // seconds shown when a recording opens, 0 for all
}

// DefaultConfig returns the default session policies.
func DefaultConfig() Config {
	return Config{
		Viewport:    viewport.DefaultConfig(),
		Gestures:    interaction.DefaultConfig(),
		Style:       render.DefaultStyle(),
		InitialSpan: 20,
	}
}

type pendingEvent struct {
	event EventType
	data  interface{}
}

// Session is the state of one mounted spectrogram view. It is safe for
// concurrent use; events are delivered after the session lock is released,
// so listeners may call back into the session.
type Session struct {
	mu sync.Mutex

	cfg      Config
	registry *segment.Registry

	rec    recording.Recording
	params recording.Parameters
	cache  *segment.Cache

	vp       *viewport.Controller
	gestures *interaction.Gestures

	annotations []annotation.Annotation
	tagColors   colorutil.TagColors
	nextID      int

	onset  *float64
	closed bool

	pending []pendingEvent

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewSession opens rec with params, sharing segment caches through
// registry.
func NewSession(registry *segment.Registry, rec recording.Recording, params recording.Parameters, cfg Config) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	vp, err := viewport.ForRecording(rec, cfg.InitialSpan, cfg.Viewport)
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:       cfg,
		registry:  registry,
		rec:       rec,
		params:    params,
		vp:        vp,
		tagColors: colorutil.TagColors{},
		listeners: make(map[EventType][]EventListener),
	}
	s.gestures = interaction.New(vp, s.handlers(), cfg.Gestures)

	cache, err := registry.Acquire(rec, params)
	if err != nil {
		return nil, err
	}
	s.attach(cache)
	log.Printf("session: opened %s (%.1fs @ %d Hz)", rec.ID, rec.Duration, rec.SampleRate)
	return s, nil
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// queue records an event to emit once the lock is released. Callers hold mu.
func (s *Session) queue(event EventType, data interface{}) {
	s.pending = append(s.pending, pendingEvent{event, data})
}

// unlock releases mu and delivers queued events in order.
func (s *Session) unlock() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, e := range events {
		s.Emit(e.event, e.data)
	}
}

func (s *Session) handlers() interaction.Handlers {
	return interaction.Handlers{
		OnCreate: func(g geometry.Geometry) { s.queue(EventGeometryCreated, g) },
		OnChange: func(g geometry.Geometry) { s.queue(EventGeometryChanged, g) },
		OnCommit: func(g geometry.Geometry) {
			a, _ := s.gestures.Selected()
			s.queue(EventGeometryCommitted, Edit{Annotation: a, Geometry: g})
		},
		OnCopy: func(src annotation.Annotation, g geometry.Geometry) {
			s.queue(EventGeometryCopied, Edit{Annotation: src, Geometry: g})
		},
		OnSelect: func(a annotation.Annotation) { s.queue(EventSelectionChanged, &a) },
		OnDeselect: func() {
			s.queue(EventSelectionChanged, (*annotation.Annotation)(nil))
		},
		OnDelete:   func(a annotation.Annotation) { s.queue(EventAnnotationDeleted, a) },
		OnIdle:     func() { s.queue(EventIdle, nil) },
		OnSeek:     func(t float64) { s.queue(EventSeek, t) },
		OnViewport: func(geometry.Window) { s.viewportChangedLocked() },
	}
}

// attach makes cache the image source and requests the current window.
// Callers hold mu or own s exclusively.
func (s *Session) attach(cache *segment.Cache) {
	s.cache = cache
	cache.OnLoad(func(e *segment.Entry) {
		s.mu.Lock()
		current := s.cache == cache && !s.closed
		s.mu.Unlock()
		if current {
			s.Emit(EventSegmentLoaded, e)
		}
	})
	cache.Request(s.vp.Viewport().Time)
}

func (s *Session) viewportChangedLocked() {
	w := s.vp.Viewport()
	if s.cache != nil {
		s.cache.Request(w.Time)
	}
	s.queue(EventViewportChanged, w)
}

// Recording returns the open recording.
func (s *Session) Recording() recording.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Params returns the active spectrogram parameters.
func (s *Session) Params() recording.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Cache returns the segment cache backing the view.
func (s *Session) Cache() *segment.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Viewport returns the current window.
func (s *Session) Viewport() geometry.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vp.Viewport()
}

// Bounds returns the navigable limits.
func (s *Session) Bounds() geometry.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vp.Bounds()
}

// CanGoBack reports whether a saved viewport can be restored.
func (s *Session) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vp.HistoryLen() > 0
}

// SetViewport moves the view to w, clamped to the bounds, after saving the
// current window.
func (s *Session) SetViewport(w geometry.Window) error {
	s.mu.Lock()
	defer s.unlock()
	s.vp.Save()
	if err := s.vp.Set(w); err != nil {
		s.vp.Back()
		return err
	}
	s.viewportChangedLocked()
	return nil
}

// Zoom scales the view around its center. factor < 1 zooms in.
func (s *Session) Zoom(factor float64) {
	s.mu.Lock()
	defer s.unlock()
	s.vp.Save()
	s.vp.Zoom(factor)
	s.viewportChangedLocked()
}

// Back restores the last saved viewport.
func (s *Session) Back() bool {
	s.mu.Lock()
	defer s.unlock()
	if !s.vp.Back() {
		return false
	}
	s.viewportChangedLocked()
	return true
}

// Reset returns to the initial viewport and clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.unlock()
	s.vp.Reset()
	s.viewportChangedLocked()
}

// Mode returns the active interaction mode.
func (s *Session) Mode() interaction.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures.Mode()
}

// SetMode switches the interaction mode, discarding any gesture in
// progress.
func (s *Session) SetMode(m interaction.Mode) {
	s.mu.Lock()
	defer s.unlock()
	if s.gestures.Mode() == m {
		return
	}
	s.gestures.SetMode(m)
	s.queue(EventModeChanged, m)
}

// Shape returns the kind built in drawing mode.
func (s *Session) Shape() interaction.ShapeKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures.Shape()
}

// SetShape selects the kind built in drawing mode.
func (s *Session) SetShape(k interaction.ShapeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.SetShape(k)
}

// SetDimensions updates the surface size in pixels.
func (s *Session) SetDimensions(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.SetDimensions(geometry.NewDimensions(width, height))
}

// Props returns the pointer event bundle for the surface showing this
// session.
func (s *Session) Props() interaction.Props {
	return interaction.Props{
		OnPressStart: func(at geometry.Point2D, mods interaction.Modifier) {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnPressStart(at, mods)
		},
		OnMove: func(at geometry.Point2D, mods interaction.Modifier) {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnMove(at, mods)
		},
		OnPressEnd: func(at geometry.Point2D, mods interaction.Modifier) {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnPressEnd(at, mods)
		},
		OnScroll: func(at geometry.Point2D, dx, dy float64, mods interaction.Modifier) {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnScroll(at, dx, dy, mods)
		},
		OnDoubleClick: func(at geometry.Point2D) {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnDoubleClick(at)
		},
		OnHover: func(at geometry.Point2D) bool {
			s.mu.Lock()
			defer s.unlock()
			changed := s.gestures.OnHover(at)
			if changed {
				s.queue(EventHoverChanged, nil)
			}
			return changed
		},
		OnLeave: func() {
			s.mu.Lock()
			defer s.unlock()
			s.gestures.OnLeave()
			s.queue(EventHoverChanged, nil)
		},
	}
}

// Annotations returns a copy of the annotation list.
func (s *Session) Annotations() []annotation.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]annotation.Annotation(nil), s.annotations...)
}

// TagColors returns the tag color assignment used for drawing.
func (s *Session) TagColors() colorutil.TagColors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tagColors
}

// SetAnnotations replaces the annotation list. Tags seen for the first
// time get a color.
func (s *Session) SetAnnotations(list []annotation.Annotation) {
	s.mu.Lock()
	defer s.unlock()
	s.setAnnotationsLocked(append([]annotation.Annotation(nil), list...))
}

func (s *Session) setAnnotationsLocked(list []annotation.Annotation) {
	s.annotations = list
	s.tagColors = colorutil.AssignAll(s.tagColors, annotation.Tags(list))
	s.gestures.SetAnnotations(list)
	s.queue(EventAnnotationsChanged, append([]annotation.Annotation(nil), list...))
}

func (s *Session) newIDLocked() string {
	for {
		s.nextID++
		id := fmt.Sprintf("a%d", s.nextID)
		if _, taken := annotation.Find(s.annotations, id); !taken {
			return id
		}
	}
}

// AddAnnotation appends a new annotation with a generated id.
func (s *Session) AddAnnotation(g geometry.Geometry, tags ...string) annotation.Annotation {
	s.mu.Lock()
	defer s.unlock()
	a := annotation.Annotation{ID: s.newIDLocked(), Geometry: g, Tags: append([]string(nil), tags...)}
	list := append(append([]annotation.Annotation(nil), s.annotations...), a)
	s.setAnnotationsLocked(list)
	return a
}

// UpdateAnnotation replaces the geometry of annotation id.
func (s *Session) UpdateAnnotation(id string, g geometry.Geometry) bool {
	s.mu.Lock()
	defer s.unlock()
	list := append([]annotation.Annotation(nil), s.annotations...)
	for i := range list {
		if list[i].ID == id {
			list[i].Geometry = g
			s.setAnnotationsLocked(list)
			return true
		}
	}
	return false
}

// RemoveAnnotation deletes annotation id, clearing the selection if it
// pointed there.
func (s *Session) RemoveAnnotation(id string) bool {
	s.mu.Lock()
	defer s.unlock()
	list := make([]annotation.Annotation, 0, len(s.annotations))
	for _, a := range s.annotations {
		if a.ID != id {
			list = append(list, a)
		}
	}
	if len(list) == len(s.annotations) {
		return false
	}
	if sel, ok := s.gestures.Selected(); ok && sel.ID == id {
		s.gestures.SetSelected(nil)
		s.queue(EventSelectionChanged, (*annotation.Annotation)(nil))
	}
	s.setAnnotationsLocked(list)
	return true
}

// Selected returns the selected annotation, if any.
func (s *Session) Selected() (annotation.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures.Selected()
}

// Select makes annotation id the editing target.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.unlock()
	a, ok := annotation.Find(s.annotations, id)
	if !ok {
		return false
	}
	s.gestures.SetSelected(&a)
	s.queue(EventSelectionChanged, &a)
	return true
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.unlock()
	if _, ok := s.gestures.Selected(); !ok {
		return
	}
	s.gestures.SetSelected(nil)
	s.queue(EventSelectionChanged, (*annotation.Annotation)(nil))
}

// Onset returns the playback position, nil when stopped.
func (s *Session) Onset() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onset == nil {
		return nil
	}
	t := *s.onset
	return &t
}

// SetOnset sets the playback position. nil hides the marker.
func (s *Session) SetOnset(t *float64) {
	s.mu.Lock()
	defer s.unlock()
	if t == nil {
		if s.onset == nil {
			return
		}
		s.onset = nil
		s.queue(EventPlayback, (*float64)(nil))
		return
	}
	v := *t
	if s.onset != nil && *s.onset == v {
		return
	}
	s.onset = &v
	s.queue(EventPlayback, &v)
}

// SetParams switches the spectrogram parameters. Images are fetched again
// from the cache for the new parameter set; the viewport is kept.
func (s *Session) SetParams(params recording.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.unlock()
	if s.closed {
		return segment.ErrClosed
	}
	if params.Key() == s.params.Key() {
		return nil
	}
	cache, err := s.registry.Acquire(s.rec, params)
	if err != nil {
		return err
	}
	old := s.cache
	s.params = params
	s.attach(cache)
	s.registry.Release(old)
	log.Printf("session: %s parameters changed, cache invalidated", s.rec.ID)
	s.queue(EventParamsChanged, params)
	return nil
}

// SetRecording opens a different recording. Annotations, selection,
// history and playback position are cleared.
func (s *Session) SetRecording(rec recording.Recording) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.unlock()
	if s.closed {
		return segment.ErrClosed
	}
	cache, err := s.registry.Acquire(rec, s.params)
	if err != nil {
		return err
	}
	bounds := rec.Bounds()
	if err := s.vp.Rebound(bounds, viewport.InitialWindow(rec, bounds.Freq, s.cfg.InitialSpan)); err != nil {
		s.registry.Release(cache)
		return err
	}

	old := s.cache
	s.rec = rec
	// Re-entering the same mode drops any gesture in progress.
	s.gestures.SetMode(s.gestures.Mode())
	s.gestures.SetSelected(nil)
	s.onset = nil
	s.setAnnotationsLocked(nil)
	s.attach(cache)
	s.registry.Release(old)

	log.Printf("session: opened %s (%.1fs @ %d Hz)", rec.ID, rec.Duration, rec.SampleRate)
	s.queue(EventRecordingLoaded, rec)
	s.queue(EventViewportChanged, s.vp.Viewport())
	return nil
}

// Scene snapshots everything drawn over the current viewport.
func (s *Session) Scene() (geometry.Window, render.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vp := s.vp.Viewport()
	scene := render.Scene{
		Annotations: append([]annotation.Annotation(nil), s.annotations...),
		TagColors:   s.tagColors,
		Feedback:    s.gestures.Feedback(),
		Style:       s.cfg.Style,
	}
	if s.onset != nil {
		t := *s.onset
		scene.Onset = &t
	}
	if s.cache != nil {
		band := s.params.Band(s.rec)
		for _, e := range s.cache.Loaded(vp.Time) {
			scene.Tiles = append(scene.Tiles, specimage.NewLayer(e.Image, geometry.Window{Time: e.Segment.Interval, Freq: band}))
		}
	}
	return vp, scene
}

// Draw renders the current frame into dst.
func (s *Session) Draw(dst *image.RGBA) {
	vp, scene := s.Scene()
	render.Draw(dst, vp, scene)
}

// Frame renders the current frame into a new image of the given size.
func (s *Session) Frame(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	s.Draw(dst)
	return dst
}

// LoadAnnotations replaces the annotation list with the JSON array stored
// at path.
func (s *Session) LoadAnnotations(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var list []annotation.Annotation
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("annotations %s: %w", path, err)
	}
	s.SetAnnotations(list)
	log.Printf("session: loaded %d annotations from %s", len(list), path)
	return nil
}

// SaveAnnotations writes the annotation list to path as a JSON array.
func (s *Session) SaveAnnotations(path string) error {
	list := s.Annotations()
	if list == nil {
		list = []annotation.Annotation{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Close releases the segment cache. In-flight loads are cancelled when no
// other view shares the cache.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cache, id := s.cache, s.rec.ID
	s.cache = nil
	s.mu.Unlock()

	s.registry.Release(cache)
	log.Printf("session: closed %s", id)
}

// ApplyEdits makes gesture results update the annotation list: drawn
// shapes are added with the tags returned by tags, finished edits replace
// the edited geometry, copies are added with the source's tags and
// deletions remove the annotation.
func (s *Session) ApplyEdits(tags func() []string) {
	s.On(EventGeometryCreated, func(data interface{}) {
		var t []string
		if tags != nil {
			t = tags()
		}
		a := s.AddAnnotation(data.(geometry.Geometry), t...)
		log.Printf("session: added %s %s", a.ID, a.Geometry.Kind())
	})
	s.On(EventGeometryCommitted, func(data interface{}) {
		e := data.(Edit)
		s.UpdateAnnotation(e.Annotation.ID, e.Geometry)
	})
	s.On(EventGeometryCopied, func(data interface{}) {
		e := data.(Edit)
		s.AddAnnotation(e.Geometry, e.Annotation.Tags...)
	})
	s.On(EventAnnotationDeleted, func(data interface{}) {
		s.RemoveAnnotation(data.(annotation.Annotation).ID)
	})
}
