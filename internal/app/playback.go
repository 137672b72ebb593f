package app

import (
	"sync"
	"time"
)

// Player is the audio transport a view follows. Position returns the
// playhead in seconds and whether audio is playing.
type Player interface {
	Position() (t float64, playing bool)
}

// PlaybackTracker polls a Player and reports playhead changes. The onset
// passed to the callback is nil while playback is stopped.
type PlaybackTracker struct {
	player        Player
	checkInterval time.Duration
	stopCh        chan struct{}
	onChange      func(onset *float64)

	mu   sync.Mutex
	last *float64
}

// NewPlaybackTracker creates a tracker polling player every checkInterval.
func NewPlaybackTracker(player Player, checkInterval time.Duration) *PlaybackTracker {
	return &PlaybackTracker{
		player:        player,
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
}

// OnChange sets the callback invoked when the playhead moves, starts or
// stops. The callback is called from a background goroutine.
func (p *PlaybackTracker) OnChange(callback func(onset *float64)) {
	p.onChange = callback
}

// Start begins polling in a background goroutine.
func (p *PlaybackTracker) Start() {
	p.stopCh = make(chan struct{})
	go p.pollLoop()
}

// Stop stops the polling goroutine.
func (p *PlaybackTracker) Stop() {
	close(p.stopCh)
}

func (p *PlaybackTracker) pollLoop() {
	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if onset, changed := p.Poll(); changed && p.onChange != nil {
				p.onChange(onset)
			}
		}
	}
}

// Poll reads the player once and reports whether the onset differs from
// the previous poll.
func (p *PlaybackTracker) Poll() (*float64, bool) {
	t, playing := p.player.Position()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !playing {
		changed := p.last != nil
		p.last = nil
		return nil, changed
	}
	if p.last != nil && *p.last == t {
		return p.last, false
	}
	p.last = &t
	return &t, true
}

// Clock is a Player driven by the wall clock. It stands in for an audio
// backend: the playhead advances in real time from the last seek until the
// end of the recording.
type Clock struct {
	mu       sync.Mutex
	duration float64
	from     float64
	started  time.Time
	playing  bool
	now      func() time.Time
}

// NewClock creates a stopped clock for a recording of duration seconds.
func NewClock(duration float64) *Clock {
	return &Clock{duration: duration, now: time.Now}
}

// Play starts playback at t.
func (c *Clock) Play(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.from = clampTime(t, c.duration)
	c.started = c.now()
	c.playing = true
}

// Seek moves the playhead to t, keeping the play state.
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.from = clampTime(t, c.duration)
	c.started = c.now()
}

// Pause stops playback at the current position.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.from, _ = c.positionLocked()
	c.playing = false
}

// Toggle pauses a playing clock or resumes a paused one.
func (c *Clock) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.from, _ = c.positionLocked()
		c.playing = false
		return
	}
	c.started = c.now()
	c.playing = true
}

// Position implements Player.
func (c *Clock) Position() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Clock) positionLocked() (float64, bool) {
	if !c.playing {
		return c.from, false
	}
	t := c.from + c.now().Sub(c.started).Seconds()
	if t >= c.duration {
		c.playing = false
		c.from = c.duration
		return c.duration, false
	}
	return t, true
}

func clampTime(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}
