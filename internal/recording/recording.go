// Package recording describes the audio recordings shown in a spectrogram
// view and the parameters used to render their spectrogram images.
package recording

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"spectrogram-annotator/pkg/geometry"
)

var (
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidDuration is returned for a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrInvalidParameters is returned for unusable spectrogram parameters.
	ErrInvalidParameters = errors.New("invalid spectrogram parameters")
)

// Recording is the descriptor of an audio file.
type Recording struct {
	ID         string  `json:"id" toml:"id"`
	Duration   float64 `json:"duration" toml:"duration"` // seconds
	SampleRate int     `json:"samplerate" toml:"samplerate"`
	Channels   int     `json:"channels" toml:"channels"`
}

// Validate reports contract violations in the descriptor.
func (r Recording) Validate() error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("recording %q: %d: %w", r.ID, r.SampleRate, ErrInvalidSampleRate)
	}
	if !(r.Duration > 0) {
		return fmt.Errorf("recording %q: %g: %w", r.ID, r.Duration, ErrInvalidDuration)
	}
	return nil
}

// Nyquist returns half the sample rate.
func (r Recording) Nyquist() float64 {
	return float64(r.SampleRate) / 2
}

// Bounds returns the full navigable window: the recording duration by the
// Nyquist band.
func (r Recording) Bounds() geometry.Window {
	return geometry.Window{
		Time: geometry.Interval{Min: 0, Max: r.Duration},
		Freq: geometry.Interval{Min: 0, Max: r.Nyquist()},
	}
}

// Scale selects the amplitude scale of the rendered image.
type Scale string

const (
	ScaleDB        Scale = "dB"
	ScaleAmplitude Scale = "amplitude"
	ScalePower     Scale = "power"
)

// Parameters control how spectrogram images are generated. Any change
// produces a different Key and therefore a separate image cache.
type Parameters struct {
	WindowSize float64 `json:"window_size" toml:"window_size"` // seconds
	Overlap    float64 `json:"overlap" toml:"overlap"`         // fraction in [0, 1)
	Window     string  `json:"window" toml:"window"`           // window function name
	ColorMap   string  `json:"cmap" toml:"cmap"`
	Scale      Scale   `json:"scale" toml:"scale"`
	MinDB      float64 `json:"min_dB" toml:"min_db"`
	MaxDB      float64 `json:"max_dB" toml:"max_db"`
	Normalize  bool    `json:"normalize" toml:"normalize"`
	PCEN       bool    `json:"pcen" toml:"pcen"`
	Channel    int     `json:"channel" toml:"channel"`
	LowFreq    float64 `json:"low_freq,omitempty" toml:"low_freq"`   // Hz, 0 = no high-pass
	HighFreq   float64 `json:"high_freq,omitempty" toml:"high_freq"` // Hz, 0 = no low-pass
}

// DefaultParameters returns the default rendering settings.
func DefaultParameters() Parameters {
	return Parameters{
		WindowSize: 0.025,
		Overlap:    0.5,
		Window:     "hann",
		ColorMap:   "gray",
		Scale:      ScaleDB,
		MinDB:      -90,
		MaxDB:      0,
		Normalize:  true,
	}
}

// Validate checks that the parameters describe a computable spectrogram.
func (p Parameters) Validate() error {
	switch {
	case !(p.WindowSize > 0):
		return fmt.Errorf("window size %g: %w", p.WindowSize, ErrInvalidParameters)
	case p.Overlap < 0 || p.Overlap >= 1:
		return fmt.Errorf("overlap %g: %w", p.Overlap, ErrInvalidParameters)
	case p.LowFreq < 0 || (p.HighFreq > 0 && p.HighFreq <= p.LowFreq):
		return fmt.Errorf("filter band [%g, %g]: %w", p.LowFreq, p.HighFreq, ErrInvalidParameters)
	}
	return nil
}

// Hop returns the time step between consecutive STFT windows.
func (p Parameters) Hop() float64 {
	return p.WindowSize * (1 - p.Overlap)
}

// FreqBins returns the number of frequency rows of a rendered image for a
// recording at sampleRate.
func (p Parameters) FreqBins(sampleRate int) int {
	samples := int(math.Round(p.WindowSize * float64(sampleRate)))
	return samples/2 + 1
}

// Band returns the frequency range depicted by rendered images, taking the
// filter settings into account.
func (p Parameters) Band(rec Recording) geometry.Interval {
	band := geometry.Interval{Min: 0, Max: rec.Nyquist()}
	if p.LowFreq > 0 {
		band.Min = math.Min(p.LowFreq, band.Max)
	}
	if p.HighFreq > 0 && p.HighFreq < band.Max {
		band.Max = p.HighFreq
	}
	return band
}

// Key returns a stable identifier for the parameter set.
func (p Parameters) Key() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strings.Join([]string{
		"ws=" + f(p.WindowSize),
		"ov=" + f(p.Overlap),
		"win=" + p.Window,
		"cmap=" + p.ColorMap,
		"scale=" + string(p.Scale),
		"db=" + f(p.MinDB) + ":" + f(p.MaxDB),
		"norm=" + strconv.FormatBool(p.Normalize),
		"pcen=" + strconv.FormatBool(p.PCEN),
		"ch=" + strconv.Itoa(p.Channel),
		"band=" + f(p.LowFreq) + ":" + f(p.HighFreq),
	}, ";")
}
