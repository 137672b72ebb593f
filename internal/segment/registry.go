package segment

import (
	"log"
	"sync"

	"spectrogram-annotator/internal/recording"
)

// Registry shares caches between views of the same recording rendered with
// the same parameters. Each Acquire must be paired with a Release; the
// last Release closes the cache.
type Registry struct {
	Planner PlannerConfig
	Cache   CacheConfig
	Fetcher Fetcher
	URL     URLFunc

	mu     sync.Mutex
	caches map[Key]*shared
}

type shared struct {
	cache *Cache
	refs  int
}

// NewRegistry creates a registry that builds caches with the given fetcher
// and URL provider.
func NewRegistry(fetcher Fetcher, url URLFunc, planner PlannerConfig, cache CacheConfig) *Registry {
	return &Registry{
		Planner: planner,
		Cache:   cache,
		Fetcher: fetcher,
		URL:     url,
		caches:  make(map[Key]*shared),
	}
}

// Acquire returns the cache for rec and params, creating it on first use.
func (r *Registry) Acquire(rec recording.Recording, params recording.Parameters) (*Cache, error) {
	key := Key{RecordingID: rec.ID, Params: params.Key()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.caches == nil {
		r.caches = make(map[Key]*shared)
	}
	if s, ok := r.caches[key]; ok {
		s.refs++
		return s.cache, nil
	}

	planner, err := NewPlanner(rec, params, r.Planner)
	if err != nil {
		return nil, err
	}
	c := NewCache(rec, params, planner, r.Fetcher, r.URL, r.Cache)
	r.caches[key] = &shared{cache: c, refs: 1}
	log.Printf("segment: cache for %s: %d chunks of %.3fs", rec.ID, planner.Len(), planner.ChunkDuration())
	return c, nil
}

// Release drops one reference to c. Releasing an unknown cache is a no-op.
func (r *Registry) Release(c *Cache) {
	if c == nil {
		return
	}
	r.mu.Lock()
	s, ok := r.caches[c.Key()]
	if !ok || s.cache != c {
		r.mu.Unlock()
		return
	}
	s.refs--
	last := s.refs <= 0
	if last {
		delete(r.caches, c.Key())
	}
	r.mu.Unlock()

	if last {
		c.Close()
	}
}

// Len returns the number of live caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}
