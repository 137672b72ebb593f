// Package mainwindow provides the main viewer window.
package mainwindow

import (
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spectrogram-annotator/internal/annotation"
	"spectrogram-annotator/internal/app"
	"spectrogram-annotator/internal/interaction"
	"spectrogram-annotator/internal/version"
	"spectrogram-annotator/pkg/geometry"
	"spectrogram-annotator/ui/canvas"
	"spectrogram-annotator/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir  = "lastDirectory"
	prefKeyLastTags = "lastTags"
)

var shapes = []interaction.ShapeKind{
	interaction.ShapeTimeStamp,
	interaction.ShapeTimeInterval,
	interaction.ShapeBoundingBox,
	interaction.ShapePoint,
}

// MainWindow is the primary viewer window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	prefs   *prefs.Prefs
	canvas  *canvas.SpectrogramCanvas

	clock   *app.Clock
	tracker *app.PlaybackTracker

	modeSelect  *widget.Select
	shapeSelect *widget.Select
	tagsEntry   *widget.Entry
	statusBar   *widget.Label

	annotationsPath string
}

// New creates the window for session.
func New(fyneApp fyne.App, session *app.Session, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Spectrogram Annotator")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
		prefs:   p,
		clock:   app.NewClock(session.Recording().Duration),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupKeys()
	mw.setupEventHandlers()
	mw.setupPlayback()
	mw.updateTitle()

	win.SetOnClosed(func() {
		mw.tracker.Stop()
		mw.prefs.SetString(prefKeyLastTags, mw.tagsEntry.Text)
		if err := mw.prefs.Save(); err != nil {
			log.Printf("Failed to save preferences: %v", err)
		}
		mw.session.Close()
	})
	return mw
}

// Canvas returns the spectrogram widget.
func (mw *MainWindow) Canvas() *canvas.SpectrogramCanvas {
	return mw.canvas
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.session)
	mw.statusBar = widget.NewLabel("Ready")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1200, 520))
}

// createToolbar creates the mode, shape and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	var modeNames []string
	for _, m := range interaction.Modes() {
		modeNames = append(modeNames, m.String())
	}
	mw.modeSelect = widget.NewSelect(modeNames, func(name string) {
		if m, err := interaction.ParseMode(name); err == nil {
			mw.session.SetMode(m)
		}
	})
	mw.modeSelect.SetSelected(mw.session.Mode().String())

	var shapeNames []string
	for _, k := range shapes {
		shapeNames = append(shapeNames, k.String())
	}
	mw.shapeSelect = widget.NewSelect(shapeNames, func(name string) {
		for _, k := range shapes {
			if k.String() == name {
				mw.session.SetShape(k)
			}
		}
	})
	mw.shapeSelect.SetSelected(mw.session.Shape().String())

	mw.tagsEntry = widget.NewEntry()
	mw.tagsEntry.SetPlaceHolder("tags, comma separated")
	mw.tagsEntry.SetText(mw.prefs.String(prefKeyLastTags, ""))

	return container.NewBorder(nil, nil,
		container.NewHBox(
			widget.NewLabel("Mode:"), mw.modeSelect,
			widget.NewLabel("Shape:"), mw.shapeSelect,
			widget.NewLabel("Zoom:"),
			widget.NewButton("-", mw.onZoomOut),
			widget.NewButton("+", mw.onZoomIn),
			widget.NewButton("Back", mw.onBack),
			widget.NewButton("Reset", mw.onReset),
			widget.NewButton("Play", mw.clock.Toggle),
		),
		nil,
		mw.tagsEntry,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Annotations...", mw.onOpenAnnotations),
		fyne.NewMenuItem("Save Annotations", mw.onSaveAnnotations),
		fyne.NewMenuItem("Save Annotations As...", mw.onSaveAnnotationsAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Frame...", mw.onExportFrame),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Delete Selected", mw.onDeleteSelected),
		fyne.NewMenuItem("Deselect", mw.session.Deselect),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Back", mw.onBack),
		fyne.NewMenuItem("Reset View", mw.onReset),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupKeys binds mode hotkeys, backspace for history and space for
// playback. Keys typed into the tag entry do not reach the canvas.
func (mw *MainWindow) setupKeys() {
	mw.Window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyBackspace:
			mw.onBack()
			return
		case fyne.KeySpace:
			mw.clock.Toggle()
			return
		case fyne.KeyDelete:
			mw.onDeleteSelected()
			return
		}
		if m, ok := interaction.ModeForKey(string(ev.Name)); ok {
			mw.session.SetMode(m)
		}
	})
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.ApplyEdits(mw.tags)

	mw.session.On(app.EventModeChanged, func(data interface{}) {
		if m, ok := data.(interaction.Mode); ok {
			mw.modeSelect.SetSelected(m.String())
			mw.updateStatus("Mode: " + m.String())
		}
	})

	mw.session.On(app.EventViewportChanged, func(data interface{}) {
		if w, ok := data.(geometry.Window); ok {
			mw.updateStatus(fmt.Sprintf("Time %.3f-%.3f s, frequency %.0f-%.0f Hz",
				w.Time.Min, w.Time.Max, w.Freq.Min, w.Freq.Max))
		}
	})

	mw.session.On(app.EventSelectionChanged, func(data interface{}) {
		a, _ := data.(*annotation.Annotation)
		if a == nil {
			mw.updateStatus("Nothing selected")
			return
		}
		mw.updateStatus(fmt.Sprintf("Selected %s %s [%s]", a.ID, a.Geometry.Kind(), strings.Join(a.Tags, ", ")))
	})

	mw.session.On(app.EventAnnotationsChanged, func(interface{}) {
		mw.updateTitle()
	})

	mw.session.On(app.EventSeek, func(data interface{}) {
		if t, ok := data.(float64); ok {
			mw.clock.Seek(t)
			mw.updateStatus(fmt.Sprintf("Seek to %.3f s", t))
		}
	})
}

// setupPlayback feeds the playback clock into the session's onset marker.
func (mw *MainWindow) setupPlayback() {
	mw.tracker = app.NewPlaybackTracker(mw.clock, 50*time.Millisecond)
	mw.tracker.OnChange(mw.session.SetOnset)
	mw.tracker.Start()
}

// SetAnnotationsPath names the file Save writes to.
func (mw *MainWindow) SetAnnotationsPath(path string) {
	mw.annotationsPath = path
	mw.updateTitle()
}

func (mw *MainWindow) tags() []string {
	var out []string
	for _, t := range strings.Split(mw.tagsEntry.Text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (mw *MainWindow) updateTitle() {
	title := "Spectrogram Annotator - " + mw.session.Recording().ID
	if mw.annotationsPath != "" {
		title += " (" + filepath.Base(mw.annotationsPath) + ")"
	}
	mw.SetTitle(fmt.Sprintf("%s, %d annotations", title, len(mw.session.Annotations())))
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir, "")
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onOpenAnnotations() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.session.LoadAnnotations(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.SetAnnotationsPath(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveAnnotations() {
	if mw.annotationsPath == "" {
		mw.onSaveAnnotationsAs()
		return
	}
	if err := mw.session.SaveAnnotations(mw.annotationsPath); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus("Saved " + mw.annotationsPath)
}

func (mw *MainWindow) onSaveAnnotationsAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".json" {
			path += ".json"
		}
		mw.saveLastDir(path)
		mw.SetAnnotationsPath(path)
		mw.onSaveAnnotations()
	}, mw.Window)
	fd.SetFileName(mw.session.Recording().ID + ".json")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportFrame() {
	img := mw.canvas.GetRenderedOutput()
	if img == nil {
		mw.updateStatus("Nothing rendered yet")
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		mw.saveLastDir(path)

		f, err := os.Create(path)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName(mw.session.Recording().ID + ".png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onDeleteSelected() {
	if a, ok := mw.session.Selected(); ok {
		mw.session.RemoveAnnotation(a.ID)
		mw.updateStatus("Deleted " + a.ID)
	}
}

func (mw *MainWindow) onZoomIn() {
	mw.session.Zoom(0.5)
}

func (mw *MainWindow) onZoomOut() {
	mw.session.Zoom(2)
}

func (mw *MainWindow) onBack() {
	if !mw.session.Back() {
		mw.updateStatus("No earlier view")
	}
}

func (mw *MainWindow) onReset() {
	mw.session.Reset()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Spectrogram Annotator",
		fmt.Sprintf("Spectrogram Annotator v%s\n\n"+
			"Browse long recordings as tiled spectrograms and\n"+
			"annotate them with time stamps, intervals, boxes and points.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
