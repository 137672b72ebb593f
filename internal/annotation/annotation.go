// Package annotation holds the annotation records shown over a spectrogram
// and the culling and hit-testing used by the render and gesture layers.
//
// Annotations are read-only here: nothing in this package mutates a record.
package annotation

import (
	"encoding/json"
	"fmt"

	"spectrogram-annotator/pkg/geometry"
)

// DefaultTolerance is the hover radius in pixels.
const DefaultTolerance = 5.0

// Annotation is a tagged geometry owned by the caller.
type Annotation struct {
	ID       string
	Geometry geometry.Geometry
	Tags     []string
}

type annotationJSON struct {
	ID       string          `json:"id"`
	Geometry json.RawMessage `json:"geometry"`
	Tags     []string        `json:"tags,omitempty"`
}

// MarshalJSON encodes the annotation with its geometry as {type, coordinates}.
func (a Annotation) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if a.Geometry != nil {
		g, err := geometry.Marshal(a.Geometry)
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		raw = g
	}
	return json.Marshal(annotationJSON{ID: a.ID, Geometry: raw, Tags: a.Tags})
}

// UnmarshalJSON decodes an annotation, rejecting malformed geometry.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var aj annotationJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	g, err := geometry.Unmarshal(aj.Geometry)
	if err != nil {
		return fmt.Errorf("annotation %s: %w", aj.ID, err)
	}
	*a = Annotation{ID: aj.ID, Geometry: g, Tags: aj.Tags}
	return nil
}

// FirstTag returns the tag used for styling, or "" when untagged.
func (a Annotation) FirstTag() string {
	if len(a.Tags) == 0 {
		return ""
	}
	return a.Tags[0]
}

// Visible returns the annotations whose bounds overlap the window, keeping
// list order. Annotations without geometry are dropped.
func Visible(list []Annotation, w geometry.Window) []Annotation {
	var out []Annotation
	for _, a := range list {
		if a.Geometry != nil && geometry.InWindow(a.Geometry, w) {
			out = append(out, a)
		}
	}
	return out
}

// Hit is the result of a successful hit test.
type Hit struct {
	Index      int // position in the list passed to Hovered
	Annotation Annotation
	Distance   float64 // pixels
}

// Hovered finds the annotation under a pixel position. Any annotation
// within tolerance pixels counts; when several do, the one latest in the
// list wins, matching draw order. Off-screen annotations are skipped.
func Hovered(dims geometry.Dimensions, vp geometry.Window, list []Annotation, at geometry.Point2D, tolerance float64) (Hit, bool) {
	if !vp.Renderable() {
		return Hit{}, false
	}
	for i := len(list) - 1; i >= 0; i-- {
		a := list[i]
		if a.Geometry == nil || !geometry.InWindow(a.Geometry, vp) {
			continue
		}
		px := geometry.ScaleToViewport(dims, a.Geometry, vp)
		if d := geometry.PixelDistance(px, at); d <= tolerance {
			return Hit{Index: i, Annotation: a, Distance: d}, true
		}
	}
	return Hit{}, false
}

// Find returns the annotation with the given id.
func Find(list []Annotation, id string) (Annotation, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// Tags returns the distinct tags of the list in first-seen order.
func Tags(list []Annotation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range list {
		for _, t := range a.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
