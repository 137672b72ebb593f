// Command framedump renders one spectrogram frame, with annotations and
// axes, to a PNG file. The frame is described by a TOML scene file:
//
//	output = "frame.png"
//	width = 1200
//	height = 400
//	tile_dir = "tiles"            # or service_url = "http://host/spectrogram"
//	annotations = "labels.json"
//	onset = 12.5
//
//	[recording]
//	id = "rec-1"
//	duration = 120.0
//	samplerate = 44100
//
//	[parameters]
//	window_size = 0.025
//	cmap = "viridis"
//
//	[viewport]
//	start = 10.0
//	end = 30.0
//	high_freq = 12000.0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"time"

	"spectrogram-annotator/internal/app"
	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/pkg/geometry"

	"github.com/BurntSushi/toml"
)

// Scene is the TOML description of one frame.
type Scene struct {
	Output      string               `toml:"output"`
	Width       int                  `toml:"width"`
	Height      int                  `toml:"height"`
	ServiceURL  string               `toml:"service_url"`
	TileDir     string               `toml:"tile_dir"`
	Annotations string               `toml:"annotations"`
	Onset       *float64             `toml:"onset"`
	Timeout     float64              `toml:"timeout"` // seconds to wait for images
	Axes        bool                 `toml:"axes"`
	Labels      bool                 `toml:"labels"`
	Recording   recording.Recording  `toml:"recording"`
	Parameters  recording.Parameters `toml:"parameters"`
	Viewport    ViewportSpec         `toml:"viewport"`
}

// ViewportSpec is the visible window. Zero values select the recording
// bounds on that edge.
type ViewportSpec struct {
	Start    float64 `toml:"start"`
	End      float64 `toml:"end"`
	LowFreq  float64 `toml:"low_freq"`
	HighFreq float64 `toml:"high_freq"`
}

var errNoSource = errors.New("scene needs service_url or tile_dir")

// LoadScene reads a scene file, filling unset fields with defaults.
func LoadScene(path string) (Scene, error) {
	sc := Scene{
		Output:     "frame.png",
		Width:      1200,
		Height:     400,
		Timeout:    segment.DefaultTimeout.Seconds(),
		Axes:       true,
		Labels:     true,
		Recording:  recording.Recording{Channels: 1},
		Parameters: recording.DefaultParameters(),
	}
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		return sc, fmt.Errorf("scene %s: %w", path, err)
	}
	if sc.ServiceURL == "" && sc.TileDir == "" {
		return sc, errNoSource
	}
	if err := sc.Recording.Validate(); err != nil {
		return sc, err
	}
	if err := sc.Parameters.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// Window resolves the viewport against the recording bounds.
func (sc Scene) Window() geometry.Window {
	w := sc.Recording.Bounds()
	if sc.Viewport.End > sc.Viewport.Start {
		w.Time = geometry.Interval{Min: sc.Viewport.Start, Max: sc.Viewport.End}
	}
	if sc.Viewport.HighFreq > sc.Viewport.LowFreq {
		w.Freq = geometry.Interval{Min: sc.Viewport.LowFreq, Max: sc.Viewport.HighFreq}
	}
	return w
}

// registry builds the image source named by the scene.
func (sc Scene) registry() *segment.Registry {
	cacheCfg := segment.DefaultCacheConfig()
	cacheCfg.Timeout = time.Duration(sc.Timeout * float64(time.Second))
	cacheCfg.PrefetchRadius = 0

	if sc.ServiceURL != "" {
		return segment.NewRegistry(segment.NewHTTPFetcher(cacheCfg.Timeout), segment.ServiceURL(sc.ServiceURL),
			segment.DefaultPlannerConfig(), cacheCfg)
	}
	return segment.NewRegistry(segment.FileFetcher{}, segment.DirURL(sc.TileDir),
		segment.DefaultPlannerConfig(), cacheCfg)
}

// Render draws the scene and returns the session used, which the caller
// must close.
func Render(ctx context.Context, sc Scene) (*app.Session, error) {
	cfg := app.DefaultConfig()
	cfg.Style.ShowAxes = sc.Axes
	cfg.Style.ShowLabels = sc.Labels

	s, err := app.NewSession(sc.registry(), sc.Recording, sc.Parameters, cfg)
	if err != nil {
		return nil, err
	}
	s.SetDimensions(sc.Width, sc.Height)
	if err := s.SetViewport(sc.Window()); err != nil {
		s.Close()
		return nil, err
	}
	if sc.Annotations != "" {
		if err := s.LoadAnnotations(sc.Annotations); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.SetOnset(sc.Onset)

	if err := s.Cache().Wait(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("waiting for images: %w", err)
	}
	return s, nil
}

func main() {
	scenePath := flag.String("scene", "", "Path to TOML scene file")
	output := flag.String("o", "", "Output PNG (overrides the scene)")
	flag.Parse()

	if *scenePath == "" {
		fmt.Println("Usage: framedump -scene <scene.toml> [-o frame.png]")
		os.Exit(1)
	}

	sc, err := LoadScene(*scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scene: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		sc.Output = *output
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(sc.Timeout*float64(time.Second))+time.Second)
	defer cancel()

	s, err := Render(ctx, sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	st := s.Cache().Stats()
	fmt.Printf("Viewport: %v\n", s.Viewport())
	fmt.Printf("Images: %d requested, %d prefetched\n", st.Requests, st.Prefetches)
	for _, e := range s.Cache().Entries(s.Viewport().Time) {
		if e.Err != nil {
			fmt.Printf("  %s: %v\n", e.Segment, e.Err)
		}
	}

	f, err := os.Create(sc.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := png.Encode(f, s.Frame(sc.Width, sc.Height)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", sc.Output, sc.Width, sc.Height)
}
