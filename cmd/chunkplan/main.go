// Command chunkplan prints how a recording is split into spectrogram
// images and which of them a viewport needs.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/pkg/geometry"
)

func main() {
	id := flag.String("id", "", "Recording ID")
	duration := flag.Float64("duration", 0, "Recording duration in seconds")
	rate := flag.Int("rate", 44100, "Sample rate in Hz")
	windowSize := flag.Float64("window-size", 0.025, "STFT window in seconds")
	overlap := flag.Float64("overlap", 0.5, "STFT window overlap fraction")
	maxPixels := flag.Int("max-pixels", segment.DefaultPlannerConfig().MaxPixels, "Pixel budget per image")
	buffer := flag.Int("buffer", segment.DefaultPlannerConfig().BufferWindows, "STFT windows of padding per chunk")
	start := flag.Float64("start", 0, "Viewport start time")
	end := flag.Float64("end", 0, "Viewport end time (0 lists chunks only)")
	radius := flag.Int("radius", segment.DefaultCacheConfig().PrefetchRadius, "Prefetch radius")
	service := flag.String("service", "", "Spectrogram service URL")
	dir := flag.String("dir", "", "Directory of pre-rendered tiles")
	flag.Parse()

	if *id == "" || *duration <= 0 {
		fmt.Println("Usage: chunkplan -id <recording> -duration <seconds> [-rate 44100] [-start s -end s] [-service url | -dir path]")
		os.Exit(1)
	}

	rec := recording.Recording{ID: *id, Duration: *duration, SampleRate: *rate, Channels: 1}
	params := recording.DefaultParameters()
	params.WindowSize = *windowSize
	params.Overlap = *overlap

	planner, err := segment.NewPlanner(rec, params, segment.PlannerConfig{MaxPixels: *maxPixels, BufferWindows: *buffer})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid input: %v\n", err)
		os.Exit(1)
	}

	var urlFor segment.URLFunc
	switch {
	case *service != "":
		urlFor = segment.ServiceURL(*service)
	case *dir != "":
		urlFor = segment.DirURL(*dir)
	}

	fmt.Printf("Recording %s: %.3fs at %d Hz\n", rec.ID, rec.Duration, rec.SampleRate)
	fmt.Printf("Parameters: window %.4fs overlap %.2f hop %.4fs, %d frequency bins\n",
		params.WindowSize, params.Overlap, params.Hop(), params.FreqBins(rec.SampleRate))
	fmt.Printf("Chunk duration: %.3fs, %d chunks\n\n", planner.ChunkDuration(), planner.Len())

	fmt.Printf("%-6s %22s %22s\n", "Index", "Interval", "Buffer")
	fmt.Println(strings.Repeat("-", 52))
	for _, s := range planner.Segments() {
		fmt.Printf("%-6d %22s %22s%s\n", s.Index, span(s.Interval), span(s.Buffer), location(urlFor, *dir, rec, s, params))
	}

	if *end <= *start {
		return
	}

	window := geometry.Interval{Min: *start, Max: *end}
	plan := planner.Plan(window, *radius)
	fmt.Printf("\nViewport %s\n", span(window))
	fmt.Printf("  Selected: %s\n", plan.Selected)
	for _, s := range plan.Needed {
		fmt.Printf("  Needed:   %s%s\n", s, location(urlFor, *dir, rec, s, params))
	}
	for _, s := range plan.Prefetch {
		fmt.Printf("  Prefetch: %s%s\n", s, location(urlFor, *dir, rec, s, params))
	}
}

func span(iv geometry.Interval) string {
	return fmt.Sprintf("[%.3f, %.3f]", iv.Min, iv.Max)
}

func location(urlFor segment.URLFunc, dir string, rec recording.Recording, s segment.Segment, params recording.Parameters) string {
	if urlFor == nil {
		return ""
	}
	u := urlFor(rec.ID, s.Interval, params)
	if dir != "" && !segment.Exists(u) {
		return "  " + u + " (missing)"
	}
	return "  " + u
}
