// Package axis selects and draws time and frequency axis ticks.
package axis

import (
	"fmt"
	"math"

	"spectrogram-annotator/pkg/geometry"

	"gonum.org/v1/gonum/floats/scalar"
)

// MinTickSpacing is the smallest pixel gap allowed between major ticks.
const MinTickSpacing = 50.0

// MinorPerMajor is the number of minor subdivisions per major step.
const MinorPerMajor = 5

// minMajorTicks triggers the halving correction when fewer major ticks
// would appear.
const minMajorTicks = 3

const tickEpsilon = 1e-9

// TickSet is the result of tick selection over one axis.
type TickSet struct {
	Step      float64
	MinorStep float64
	Major     []float64
	Minor     []float64
}

// Ticks chooses major and minor ticks for an axis of the given pixel length
// showing interval iv. Major steps are powers of ten, halved once when that
// still keeps the spacing constraint and too few ticks would otherwise
// appear. For a fixed interval the number of major ticks never decreases as
// pixels grows.
func Ticks(pixels float64, iv geometry.Interval) TickSet {
	if iv.Degenerate() || pixels <= 0 || math.IsInf(iv.Width(), 0) {
		return TickSet{}
	}

	maxTicks := math.Floor(pixels / MinTickSpacing)
	if maxTicks < 1 {
		maxTicks = 1
	}

	fits := func(step float64) bool {
		return float64(countMultiples(iv, step)) <= maxTicks
	}

	// Start at a step no smaller than the whole range, which always yields
	// at most two ticks, then descend while the next power still fits.
	exp := math.Ceil(math.Log10(iv.Width()))
	step := math.Pow(10, exp)
	for !fits(step) {
		exp++
		step = math.Pow(10, exp)
	}
	for fits(math.Pow(10, exp-1)) {
		exp--
		step = math.Pow(10, exp)
	}

	if countMultiples(iv, step) < minMajorTicks && fits(step/2) {
		step /= 2
	}

	ts := TickSet{Step: step, MinorStep: step / MinorPerMajor}
	ts.Major = multiples(iv, step)

	minor := multiples(iv, ts.MinorStep)
	for _, v := range minor {
		ratio := v / step
		if math.Abs(ratio-math.Round(ratio)) > 1e-6 {
			ts.Minor = append(ts.Minor, v)
		}
	}
	return ts
}

func multipleRange(iv geometry.Interval, step float64) (first, last int64) {
	first = int64(math.Ceil(iv.Min/step - tickEpsilon))
	last = int64(math.Floor(iv.Max/step + tickEpsilon))
	return first, last
}

func countMultiples(iv geometry.Interval, step float64) int64 {
	first, last := multipleRange(iv, step)
	if last < first {
		return 0
	}
	return last - first + 1
}

func multiples(iv geometry.Interval, step float64) []float64 {
	first, last := multipleRange(iv, step)
	if last < first {
		return nil
	}
	// Round away accumulated error so labels and positions are stable.
	places := decimalsFor(step) + 3
	out := make([]float64, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, scalar.Round(float64(i)*step, places))
	}
	return out
}

// FormatTime renders a time tick. Sub-minute values use seconds with as
// many decimals as the step needs; longer values use m:ss.
func FormatTime(t, step float64) string {
	decimals := decimalsFor(step)
	if math.Abs(t) < 60 {
		return fmt.Sprintf("%.*fs", decimals, t)
	}
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	minutes := math.Floor(t / 60)
	seconds := t - minutes*60
	width := 2
	if decimals > 0 {
		width = 3 + decimals
	}
	return fmt.Sprintf("%s%d:%0*.*f", sign, int(minutes), width, decimals, seconds)
}

// FormatFreq renders a frequency tick in Hz or kHz.
func FormatFreq(f, step float64) string {
	if step >= 1000 || (math.Abs(f) >= 1000 && step >= 100) {
		return fmt.Sprintf("%.*fkHz", decimalsFor(step/1000), f/1000)
	}
	return fmt.Sprintf("%.*fHz", decimalsFor(step), f)
}

func decimalsFor(step float64) int {
	if step <= 0 || step >= 1 {
		return 0
	}
	d := int(math.Ceil(-math.Log10(step) - tickEpsilon))
	if d > 6 {
		d = 6
	}
	return d
}
