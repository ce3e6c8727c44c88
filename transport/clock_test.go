package transport

import (
	"math"
	"sync"
	"testing"
	"time"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }

func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestClock(bpm float64) (*Clock, *fakeNow) {
	f := &fakeNow{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewClock(bpm, 4)
	c.now = f.now
	return c, f
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestClockAdvancesWhileRunning(t *testing.T) {
	c, f := newTestClock(120)
	f.advance(time.Second)
	if b := c.Position().Beat; b != 0 {
		t.Errorf("stopped clock moved to %v", b)
	}

	c.Start()
	f.advance(time.Second)
	pos := c.Position()
	if !pos.Running || !near(pos.Beat, 2) {
		t.Errorf("Position = %+v, want running at beat 2", pos)
	}

	c.Stop()
	f.advance(time.Minute)
	if b := c.Position().Beat; !near(b, 2) {
		t.Errorf("stopped beat = %v, want 2", b)
	}
}

func TestClockTempoChangeKeepsBeat(t *testing.T) {
	c, f := newTestClock(120)
	c.Start()
	f.advance(time.Second)
	c.SetTempo(60)
	if b := c.Position().Beat; !near(b, 2) {
		t.Errorf("beat after tempo change = %v, want 2", b)
	}
	f.advance(time.Second)
	if b := c.Position().Beat; !near(b, 3) {
		t.Errorf("beat at 60 bpm = %v, want 3", b)
	}
}

func TestClockSeekAndClamp(t *testing.T) {
	c, _ := newTestClock(1000)
	if c.Tempo() != MaxTempo {
		t.Errorf("Tempo = %v, want clamp to %d", c.Tempo(), MaxTempo)
	}
	c.Seek(9.5)
	if bar, beat := c.Bar(); bar != 3 || beat != 2 {
		t.Errorf("Bar = %d.%d, want 3.2", bar, beat)
	}
	c.Seek(-4)
	if b := c.Position().Beat; b != 0 {
		t.Errorf("negative seek = %v, want 0", b)
	}
}

func TestClockToggle(t *testing.T) {
	c, _ := newTestClock(120)
	if !c.Toggle() || !c.Running() {
		t.Error("Toggle did not start the clock")
	}
	if c.Toggle() || c.Running() {
		t.Error("Toggle did not stop the clock")
	}
}

func TestClockConcurrentTogglesAlternate(t *testing.T) {
	c, _ := newTestClock(120)
	var wg sync.WaitGroup
	var mu sync.Mutex
	starts := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Toggle() {
				mu.Lock()
				starts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if starts != 50 {
		t.Errorf("starts = %d, want 50 of 100 toggles", starts)
	}
	if c.Running() {
		t.Error("clock running after an even number of toggles")
	}
}
