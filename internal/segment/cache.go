package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sort"
	"sync"
	"time"

	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/pkg/geometry"
)

// ErrClosed is reported by Wait on a cache that has been closed.
var ErrClosed = errors.New("segment cache closed")

// ErrNoImage is recorded when a fetcher returns neither image nor error.
var ErrNoImage = errors.New("fetcher returned no image")

// DefaultTimeout bounds a single image load.
const DefaultTimeout = 30 * time.Second

// State is the load state of a cache entry.
type State int

const (
	StatePending State = iota
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entry is an immutable snapshot of one chunk's image. Completing a load
// replaces the entry rather than mutating it.
type Entry struct {
	Segment Segment
	URL     string
	State   State
	Image   image.Image
	Err     error
}

// Fetcher loads the image behind a URL. Implementations must honour ctx.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (image.Image, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

// URLFunc maps a chunk request to an opaque image URL.
type URLFunc func(recordingID string, segment geometry.Interval, params recording.Parameters) string

// Key identifies a cache: one recording rendered with one parameter set.
type Key struct {
	RecordingID string
	Params      string
}

// CacheConfig controls loading.
type CacheConfig struct {
	Timeout        time.Duration
	PrefetchRadius int
}

// DefaultCacheConfig returns the default load policy.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Timeout: DefaultTimeout, PrefetchRadius: 1}
}

// Stats counts load requests issued by a cache.
type Stats struct {
	Requests   int // loads for chunks covering a viewport
	Prefetches int // loads for neighbouring chunks
}

// Cache holds the chunk images of one recording and parameter set. Loads
// run in background goroutines; Request never blocks on the network.
type Cache struct {
	key     Key
	rec     recording.Recording
	params  recording.Parameters
	planner *Planner
	fetcher Fetcher
	urlFor  URLFunc
	cfg     CacheConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[int]*Entry
	stats   Stats
	closed  bool
	onLoad  []func(*Entry)
}

// NewCache creates an empty cache.
func NewCache(rec recording.Recording, params recording.Parameters, planner *Planner, fetcher Fetcher, urlFor URLFunc, cfg CacheConfig) *Cache {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PrefetchRadius < 0 {
		cfg.PrefetchRadius = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		key:     Key{RecordingID: rec.ID, Params: params.Key()},
		rec:     rec,
		params:  params,
		planner: planner,
		fetcher: fetcher,
		urlFor:  urlFor,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[int]*Entry),
	}
}

// Key returns the identity of the cache.
func (c *Cache) Key() Key { return c.key }

// Planner returns the chunk partition used by the cache.
func (c *Cache) Planner() *Planner { return c.planner }

// OnLoad registers a callback run after each load settles, loaded or
// errored. Callbacks run on the loading goroutine.
func (c *Cache) OnLoad(fn func(*Entry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLoad = append(c.onLoad, fn)
}

// Request makes sure the chunks covering window are loaded or loading.
// A window inside the buffer of any chunk already requested issues no new
// load. It returns the plan that was applied.
func (c *Cache) Request(window geometry.Interval) Plan {
	plan := c.planner.Plan(window, c.cfg.PrefetchRadius)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return plan
	}

	if e, ok := c.reusableLocked(window, plan.Selected.Index); ok {
		plan.Selected = e.Segment
		plan.Needed = []Segment{e.Segment}
		plan.Prefetch = c.planner.neighbours(e.Segment.Index, e.Segment.Index, c.cfg.PrefetchRadius)
	}
	for _, s := range plan.Needed {
		if c.startLocked(s) {
			c.stats.Requests++
		}
	}
	for _, s := range plan.Prefetch {
		if c.startLocked(s) {
			c.stats.Prefetches++
		}
	}
	return plan
}

// reusableLocked finds an entry whose buffer holds window, preferring the
// planned chunk and then the lowest index.
func (c *Cache) reusableLocked(window geometry.Interval, preferred int) (*Entry, bool) {
	if e, ok := c.entries[preferred]; ok && e.Segment.Buffer.ContainsInterval(window) {
		return e, true
	}
	var found *Entry
	for _, e := range c.entries {
		if !e.Segment.Buffer.ContainsInterval(window) {
			continue
		}
		if found == nil || e.Segment.Index < found.Segment.Index {
			found = e
		}
	}
	return found, found != nil
}

func (c *Cache) startLocked(s Segment) bool {
	if _, ok := c.entries[s.Index]; ok {
		return false
	}
	url := c.urlFor(c.rec.ID, s.Interval, c.params)
	c.entries[s.Index] = &Entry{Segment: s, URL: url, State: StatePending}
	c.wg.Add(1)
	go c.load(s, url)
	return true
}

type result struct {
	img image.Image
	err error
}

func (c *Cache) load(s Segment, url string) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout)
	defer cancel()

	// The fetch runs apart so a fetcher that ignores ctx still times out.
	done := make(chan result, 1)
	go func() {
		img, err := c.fetcher.Fetch(ctx, url)
		done <- result{img, err}
	}()

	next := &Entry{Segment: s, URL: url}
	select {
	case r := <-done:
		next.Image, next.Err = r.img, r.err
		if next.Err == nil && next.Image == nil {
			next.Err = ErrNoImage
		}
	case <-ctx.Done():
		next.Err = ctx.Err()
	}
	if next.Err != nil {
		next.State = StateErrored
		if !errors.Is(next.Err, context.Canceled) {
			log.Printf("segment: load %s failed: %v", s, next.Err)
		}
	} else {
		next.State = StateLoaded
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.entries[s.Index] = next
	callbacks := c.onLoad
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
}

// Entry returns the current snapshot for chunk i.
func (c *Cache) Entry(i int) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[i]
	return e, ok
}

// Entries returns the snapshots of chunks overlapping window in time
// order, in any state.
func (c *Cache) Entries(window geometry.Interval) []*Entry {
	c.mu.Lock()
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Segment.Interval.Overlaps(window) {
			out = append(out, e)
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Segment.Index < out[j].Segment.Index })
	return out
}

// Loaded returns the loaded entries overlapping window in time order.
func (c *Cache) Loaded(window geometry.Interval) []*Entry {
	all := c.Entries(window)
	out := all[:0]
	for _, e := range all {
		if e.State == StateLoaded {
			out = append(out, e)
		}
	}
	return out
}

// Stats returns the load counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Pending reports whether any load is still in flight.
func (c *Cache) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.State == StatePending {
			return true
		}
	}
	return false
}

// Wait blocks until all started loads settle or ctx is done.
func (c *Cache) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close cancels in-flight loads and drops every entry. Further requests
// are ignored.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.entries = make(map[int]*Entry)
	c.onLoad = nil
	c.mu.Unlock()

	c.cancel()
	log.Printf("segment: cache %s closed", c.key.RecordingID)
}

// Closed reports whether Close has been called.
func (c *Cache) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
