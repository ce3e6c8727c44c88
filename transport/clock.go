package transport

import (
	"sync"
	"time"

	"go-launcher/debug"
	"go-launcher/launch"
)

const (
	MinTempo = 20
	MaxTempo = 300
)

// Clock is a free-running beat clock. Beat position is derived from the
// anchor time, so a tempo change rebases the anchor and never jumps.
type Clock struct {
	mu          sync.Mutex
	now         func() time.Time
	tempo       float64
	beatsPerBar int
	running     bool
	anchor      time.Time // wall time of anchorBeat while running
	anchorBeat  float64
}

// NewClock returns a stopped clock at beat 0
func NewClock(bpm float64, beatsPerBar int) *Clock {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	return &Clock{now: time.Now, tempo: clampTempo(bpm), beatsPerBar: beatsPerBar}
}

func clampTempo(bpm float64) float64 {
	return min(max(bpm, MinTempo), MaxTempo)
}

func (c *Clock) beatAt(t time.Time) float64 {
	if !c.running {
		return c.anchorBeat
	}
	return c.anchorBeat + t.Sub(c.anchor).Minutes()*c.tempo
}

// Position implements launch.Transport
func (c *Clock) Position() launch.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return launch.Position{
		Beat:        c.beatAt(c.now()),
		Tempo:       c.tempo,
		BeatsPerBar: c.beatsPerBar,
		Running:     c.running,
	}
}

// Start runs the clock from its current beat
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start()
}

// Stop freezes the clock at its current beat
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
}

// Toggle starts a stopped clock and stops a running one
func (c *Clock) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.stop()
	} else {
		c.start()
	}
	return c.running
}

// start and stop expect c.mu held
func (c *Clock) start() {
	if c.running {
		return
	}
	c.anchor = c.now()
	c.running = true
	debug.Log("clock", "start at beat %.2f", c.anchorBeat)
}

func (c *Clock) stop() {
	if !c.running {
		return
	}
	c.anchorBeat = c.beatAt(c.now())
	c.running = false
	debug.Log("clock", "stop at beat %.2f", c.anchorBeat)
}

// Seek moves the playhead to beat
func (c *Clock) Seek(beat float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorBeat = max(beat, 0)
	c.anchor = c.now()
}

// SetTempo implements launch.TempoSetter
func (c *Clock) SetTempo(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.anchorBeat = c.beatAt(now)
	c.anchor = now
	c.tempo = clampTempo(bpm)
	debug.Log("clock", "tempo %.1f", c.tempo)
}

func (c *Clock) Tempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempo
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Bar returns the 1-based bar and beat of the playhead for display
func (c *Clock) Bar() (bar, beat int) {
	pos := c.Position()
	whole := int(pos.Beat)
	return whole/pos.BeatsPerBar + 1, whole%pos.BeatsPerBar + 1
}
