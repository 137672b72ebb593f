// Package segment plans, fetches and caches the spectrogram images that
// back a viewport.
//
// The time axis of a recording is cut into fixed chunks sized so each
// rendered image stays near a pixel budget. A viewport is served by the
// chunk it overlaps most; when it reaches outside that chunk's padded
// buffer, every overlapping chunk is needed. Neighbouring chunks are
// prefetched so panning does not stall.
package segment

import (
	"fmt"
	"math"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/pkg/geometry"
)

// PlannerConfig sizes the chunks.
type PlannerConfig struct {
	MaxPixels     int // target width*height of one image
	BufferWindows int // STFT windows of padding on each side of a chunk
}

// DefaultPlannerConfig returns the default chunk sizing.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxPixels:     5_000_000,
		BufferWindows: 128,
	}
}

// Segment is one chunk of the time axis. Interval is the rendered range,
// Buffer the padded range inside which a viewport needs no other chunk.
type Segment struct {
	Index    int
	Interval geometry.Interval
	Buffer   geometry.Interval
}

func (s Segment) String() string {
	return fmt.Sprintf("#%d [%g, %g] buffer [%g, %g]", s.Index, s.Interval.Min, s.Interval.Max, s.Buffer.Min, s.Buffer.Max)
}

// Planner partitions one recording for one parameter set.
type Planner struct {
	duration float64
	chunk    float64
	pad      float64
	count    int
}

// NewPlanner computes the chunk partition. Parameters and recording are
// validated; an invalid descriptor is a caller bug.
func NewPlanner(rec recording.Recording, params recording.Parameters, cfg PlannerConfig) (*Planner, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultPlannerConfig().MaxPixels
	}
	if cfg.BufferWindows < 0 {
		cfg.BufferWindows = 0
	}

	// Taller images (more frequency bins) get narrower chunks.
	columns := math.Max(1, math.Floor(float64(cfg.MaxPixels)/float64(params.FreqBins(rec.SampleRate))))
	chunk := columns * params.Hop()

	count := int(math.Ceil(rec.Duration / chunk))
	if count < 1 {
		count = 1
	}
	return &Planner{
		duration: rec.Duration,
		chunk:    chunk,
		pad:      float64(cfg.BufferWindows) * params.WindowSize,
		count:    count,
	}, nil
}

// ChunkDuration returns the length in seconds of a full chunk.
func (p *Planner) ChunkDuration() float64 { return p.chunk }

// Len returns the number of chunks.
func (p *Planner) Len() int { return p.count }

// Segment returns chunk i. The last chunk ends at the recording duration.
func (p *Planner) Segment(i int) Segment {
	start := float64(i) * p.chunk
	end := math.Min(float64(i+1)*p.chunk, p.duration)
	return Segment{
		Index:    i,
		Interval: geometry.Interval{Min: start, Max: end},
		Buffer: geometry.Interval{
			Min: math.Max(0, start-p.pad),
			Max: math.Min(p.duration, end+p.pad),
		},
	}
}

// Segments returns the full partition in time order.
func (p *Planner) Segments() []Segment {
	out := make([]Segment, p.count)
	for i := range out {
		out[i] = p.Segment(i)
	}
	return out
}

// Plan is the chunk selection for one viewport.
type Plan struct {
	Selected Segment
	Needed   []Segment // chunks that must be loaded to cover the viewport
	Prefetch []Segment // neighbours loaded opportunistically
}

// Plan selects the chunks for a time window. radius neighbours on each
// side of the needed range are listed for prefetch.
func (p *Planner) Plan(window geometry.Interval, radius int) Plan {
	first, last := p.overlapping(window)

	selected := p.Segment(first)
	best := -1.0
	for i := first; i <= last; i++ {
		s := p.Segment(i)
		if ov := s.Interval.Overlap(window); ov > best {
			best = ov
			selected = s
		}
	}

	plan := Plan{Selected: selected}
	if selected.Buffer.ContainsInterval(window) {
		plan.Needed = []Segment{selected}
		first, last = selected.Index, selected.Index
	} else {
		for i := first; i <= last; i++ {
			plan.Needed = append(plan.Needed, p.Segment(i))
		}
	}

	plan.Prefetch = p.neighbours(first, last, radius)
	return plan
}

// neighbours lists up to radius chunks on each side of [first, last],
// nearest first.
func (p *Planner) neighbours(first, last, radius int) []Segment {
	var out []Segment
	for d := 1; d <= radius; d++ {
		if i := first - d; i >= 0 {
			out = append(out, p.Segment(i))
		}
		if i := last + d; i < p.count {
			out = append(out, p.Segment(i))
		}
	}
	return out
}

// overlapping returns the index range of chunks sharing a positive length
// with window. A window touching a boundary only belongs to the chunk it
// lies in.
func (p *Planner) overlapping(window geometry.Interval) (first, last int) {
	first = p.clampIndex(int(math.Floor(window.Min / p.chunk)))
	last = p.clampIndex(int(math.Ceil(window.Max/p.chunk)) - 1)
	if last < first {
		last = first
	}
	return first, last
}

func (p *Planner) clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= p.count {
		return p.count - 1
	}
	return i
}
