// Package interaction turns pointer input on a spectrogram surface into
// viewport changes and proposed annotation edits.
//
// The active Mode is chosen by the caller (toolbar or hotkey); Gestures
// only decides how pointer motion is read within that mode. Results are
// reported through Handlers in domain coordinates and never applied to
// annotations directly.
package interaction

import (
	"fmt"
	"strings"
)

// Mode is the caller-selected interaction mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModePanning
	ModeZooming
	ModeDrawing
	ModeSelecting
	ModeEditing
	ModeDeleting
)

var modeNames = [...]string{
	ModeIdle:      "idle",
	ModePanning:   "panning",
	ModeZooming:   "zooming",
	ModeDrawing:   "drawing",
	ModeSelecting: "selecting",
	ModeEditing:   "editing",
	ModeDeleting:  "deleting",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Modes lists every mode in toolbar order.
func Modes() []Mode {
	return []Mode{ModeIdle, ModePanning, ModeZooming, ModeDrawing, ModeSelecting, ModeEditing, ModeDeleting}
}

// ParseMode returns the mode with the given name.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return ModeIdle, fmt.Errorf("unknown mode %q", s)
}

// ModeForKey maps a hotkey to a mode.
func ModeForKey(key string) (Mode, bool) {
	switch strings.ToLower(key) {
	case "escape":
		return ModeIdle, true
	case "x":
		return ModePanning, true
	case "z":
		return ModeZooming, true
	case "a":
		return ModeDrawing, true
	case "s":
		return ModeSelecting, true
	case "e":
		return ModeEditing, true
	case "d":
		return ModeDeleting, true
	}
	return ModeIdle, false
}

// ShapeKind is the geometry built in drawing mode.
type ShapeKind int

const (
	ShapeTimeStamp ShapeKind = iota
	ShapeTimeInterval
	ShapeBoundingBox
	ShapePoint
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeTimeStamp:
		return "TimeStamp"
	case ShapeTimeInterval:
		return "TimeInterval"
	case ShapeBoundingBox:
		return "BoundingBox"
	case ShapePoint:
		return "Point"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether all bits of m2 are set in m.
func (m Modifier) Has(m2 Modifier) bool {
	return m2 != 0 && m&m2 == m2
}
