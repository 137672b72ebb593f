// Package main provides the entry point for the spectrogram annotator.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"spectrogram-annotator/internal/app"
	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/internal/version"
	"spectrogram-annotator/ui/mainwindow"
	"spectrogram-annotator/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const appTitle = "Spectrogram Annotator"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	id := flag.String("id", "", "Recording ID")
	duration := flag.Float64("duration", 0, "Recording duration in seconds")
	rate := flag.Int("rate", 44100, "Sample rate in Hz")
	channels := flag.Int("channels", 1, "Channel count")
	service := flag.String("service", "", "Spectrogram service URL (overrides preferences)")
	tileDir := flag.String("tiles", "", "Directory of pre-rendered tiles (overrides preferences)")
	annotations := flag.String("annotations", "", "Annotations JSON file")
	flag.Parse()

	log.Printf("Starting %s %s", appTitle, version.String())

	if *id == "" || *duration <= 0 {
		fmt.Println("Usage: spectrogram-annotator -id <recording> -duration <seconds> [-rate 44100] [-service url | -tiles dir] [-annotations file.json]")
		os.Exit(1)
	}

	appPrefs := prefs.Load()
	viewer := appPrefs.Viewer()
	if *service != "" {
		viewer.ServiceURL, viewer.TileDir = *service, ""
	}
	if *tileDir != "" {
		viewer.ServiceURL, viewer.TileDir = "", *tileDir
	}

	registry, err := newRegistry(viewer, appPrefs.Path())
	if err != nil {
		log.Fatal(err)
	}

	cfg := app.DefaultConfig()
	cfg.Viewport = viewer.Viewport
	cfg.InitialSpan = viewer.InitialSpan

	rec := recording.Recording{ID: *id, Duration: *duration, SampleRate: *rate, Channels: *channels}
	session, err := app.NewSession(registry, rec, viewer.Params, cfg)
	if err != nil {
		log.Fatalf("Failed to open recording: %v", err)
	}

	a := fyneapp.NewWithID("org.spectrogram-annotator")
	a.Settings().SetTheme(&app.ViewerTheme{})

	win := mainwindow.New(a, session, appPrefs)
	if *annotations != "" {
		if err := session.LoadAnnotations(*annotations); err != nil {
			log.Printf("Failed to load annotations %s: %v", *annotations, err)
		}
		win.SetAnnotationsPath(*annotations)
	}

	win.ShowAndRun()
}

// newRegistry picks the image source configured for the viewer.
func newRegistry(v prefs.Viewer, prefsPath string) (*segment.Registry, error) {
	switch {
	case v.ServiceURL != "":
		log.Printf("Images from %s", v.ServiceURL)
		return segment.NewRegistry(segment.NewHTTPFetcher(v.Cache.Timeout), segment.ServiceURL(v.ServiceURL), v.Planner, v.Cache), nil
	case v.TileDir != "":
		log.Printf("Images from %s", v.TileDir)
		return segment.NewRegistry(segment.FileFetcher{}, segment.DirURL(v.TileDir), v.Planner, v.Cache), nil
	}
	return nil, fmt.Errorf("no image source: pass -service or -tiles, or set %s or %s in %s",
		prefs.KeyServiceURL, prefs.KeyTileDir, prefsPath)
}
