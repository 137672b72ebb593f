// Package prefs provides JSON-based viewer preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/internal/segment"
	"spectrogram-annotator/internal/viewport"
)

const prefsFile = "preferences.json"

// Preference keys.
const (
	KeyParameters     = "spectrogram.parameters"
	KeyMinTimeZoom    = "viewport.min_time_zoom"
	KeyMinFreqZoom    = "viewport.min_freq_zoom"
	KeyHistoryLimit   = "viewport.history_limit"
	KeyImageTimeout   = "segment.timeout_seconds"
	KeyChunkPixels    = "segment.max_pixels"
	KeyBufferWindows  = "segment.buffer_windows"
	KeyPrefetchRadius = "segment.prefetch_radius"
	KeyServiceURL     = "segment.service_url"
	KeyTileDir        = "segment.tile_dir"
	KeyInitialSpan    = "viewer.initial_span"
)

// Prefs stores viewer preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from ~/.config/spectrogram-annotator/preferences.json.
// Returns a Prefs with defaults if the file doesn't exist.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "spectrogram-annotator", prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file
// yields empty preferences that Save will create.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Path returns the file Save writes to.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Float returns a float64 preference, or fallback if not set.
func (p *Prefs) Float(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch n := p.values[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// Int returns an integer preference, or fallback if not set. JSON numbers
// decode as float64 and are truncated.
func (p *Prefs) Int(key string, fallback int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch n := p.values[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// SetInt stores an integer preference.
func (p *Prefs) SetInt(key string, val int) {
	p.set(key, val)
}

// String returns a string preference, or fallback if not set.
func (p *Prefs) String(key, fallback string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return fallback
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.set(key, val)
}

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.set(key, val)
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Parameters returns the stored render parameters. Fields missing from the
// stored object keep their defaults; an invalid object yields the defaults.
func (p *Prefs) Parameters() recording.Parameters {
	params := recording.DefaultParameters()

	p.mu.RLock()
	v, ok := p.values[KeyParameters]
	p.mu.RUnlock()
	if !ok {
		return params
	}
	// The stored value is a decoded JSON object; round-trip it into the struct.
	data, err := json.Marshal(v)
	if err != nil {
		return params
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return recording.DefaultParameters()
	}
	if params.Validate() != nil {
		return recording.DefaultParameters()
	}
	return params
}

// SetParameters stores render parameters.
func (p *Prefs) SetParameters(params recording.Parameters) {
	p.set(KeyParameters, params)
}

// Viewer is the configuration a viewer session is built from.
type Viewer struct {
	Params      recording.Parameters
	Viewport    viewport.Config
	Planner     segment.PlannerConfig
	Cache       segment.CacheConfig
	ServiceURL  string
	TileDir     string
	InitialSpan float64
}

// Viewer materializes the stored preferences, falling back to package
// defaults for anything unset.
func (p *Prefs) Viewer() Viewer {
	vp := viewport.DefaultConfig()
	pl := segment.DefaultPlannerConfig()
	cc := segment.DefaultCacheConfig()

	timeout := p.Float(KeyImageTimeout, cc.Timeout.Seconds())
	if timeout <= 0 {
		timeout = segment.DefaultTimeout.Seconds()
	}

	return Viewer{
		Params: p.Parameters(),
		Viewport: viewport.Config{
			MinTimeZoom:  p.Float(KeyMinTimeZoom, vp.MinTimeZoom),
			MinFreqZoom:  p.Float(KeyMinFreqZoom, vp.MinFreqZoom),
			HistoryLimit: p.Int(KeyHistoryLimit, vp.HistoryLimit),
		},
		Planner: segment.PlannerConfig{
			MaxPixels:     p.Int(KeyChunkPixels, pl.MaxPixels),
			BufferWindows: p.Int(KeyBufferWindows, pl.BufferWindows),
		},
		Cache: segment.CacheConfig{
			Timeout:        time.Duration(timeout * float64(time.Second)),
			PrefetchRadius: p.Int(KeyPrefetchRadius, cc.PrefetchRadius),
		},
		ServiceURL:  p.String(KeyServiceURL, ""),
		TileDir:     p.String(KeyTileDir, ""),
		InitialSpan: p.Float(KeyInitialSpan, 20),
	}
}
