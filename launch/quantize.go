package launch

import (
	"math"
	"sort"
	"time"
)

// Quantize is a launch quantization setting
type Quantize string

const (
	QuantizeNone      Quantize = "none"
	QuantizeSixteenth Quantize = "1/16"
	QuantizeEighth    Quantize = "1/8"
	QuantizeQuarter   Quantize = "1/4"
	QuantizeHalf      Quantize = "1/2"
	QuantizeBar       Quantize = "1 bar"
	QuantizeTwoBars   Quantize = "2 bars"
	QuantizeFourBars  Quantize = "4 bars"
)

// QuantizeSettings lists the settings in ascending grid size
var QuantizeSettings = []Quantize{
	QuantizeNone, QuantizeSixteenth, QuantizeEighth, QuantizeQuarter,
	QuantizeHalf, QuantizeBar, QuantizeTwoBars, QuantizeFourBars,
}

// ParseQuantize accepts the setting names used in config files
func ParseQuantize(s string) (Quantize, error) {
	for _, q := range QuantizeSettings {
		if string(q) == s {
			return q, nil
		}
	}
	if s == "" {
		return QuantizeNone, nil
	}
	return QuantizeNone, validationError("unknown quantize setting "+s, "Unknown quantize setting")
}

// Beats returns the grid size in beats, 0 for none
func (q Quantize) Beats(beatsPerBar int) float64 {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	switch q {
	case QuantizeSixteenth:
		return 0.25
	case QuantizeEighth:
		return 0.5
	case QuantizeQuarter:
		return 1
	case QuantizeHalf:
		return 2
	case QuantizeBar:
		return float64(beatsPerBar)
	case QuantizeTwoBars:
		return float64(2 * beatsPerBar)
	case QuantizeFourBars:
		return float64(4 * beatsPerBar)
	}
	return 0
}

// Position is a reading of the transport
type Position struct {
	Beat        float64
	Tempo       float64 // BPM
	BeatsPerBar int
	Running     bool
}

// Transport is the moving clock quantized launches are aligned to
type Transport interface {
	Position() Position
}

// TempoSetter is implemented by transports that accept scene tempo overrides
type TempoSetter interface {
	SetTempo(bpm float64)
}

// beatEpsilon absorbs float drift when the playhead sits on a grid line
const beatEpsilon = 1e-9

// Boundary returns the beat at which a trigger at pos takes effect.
// A stopped transport never advances, so it always resolves immediately.
func Boundary(q Quantize, pos Position) float64 {
	quantum := q.Beats(pos.BeatsPerBar)
	if quantum <= 0 || !pos.Running {
		return pos.Beat
	}
	n := pos.Beat / quantum
	if r := math.Round(n); math.Abs(n-r) < beatEpsilon {
		return r * quantum
	}
	return math.Ceil(n) * quantum
}

// Immediate reports whether boundary has already been reached at pos
func Immediate(boundary float64, pos Position) bool {
	return !pos.Running || boundary <= pos.Beat+beatEpsilon
}

type pendingAction struct {
	id       string
	boundary float64
	seq      uint64
	run      func()
}

// Scheduler holds at most one deferred action per entity, keyed to beat
// positions rather than wall-clock delays.
type Scheduler struct {
	pending map[string]*pendingAction
	seq     uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[string]*pendingAction)}
}

// Schedule replaces any pending action for id
func (s *Scheduler) Schedule(id string, boundary float64, run func()) {
	s.seq++
	s.pending[id] = &pendingAction{id: id, boundary: boundary, seq: s.seq, run: run}
}

// Cancel drops the pending action for id, reporting whether one existed
func (s *Scheduler) Cancel(id string) bool {
	_, ok := s.pending[id]
	delete(s.pending, id)
	return ok
}

// CancelAll drops every pending action
func (s *Scheduler) CancelAll() int {
	n := len(s.pending)
	s.pending = make(map[string]*pendingAction)
	return n
}

// Pending returns the boundary of id's pending action
func (s *Scheduler) Pending(id string) (float64, bool) {
	p, ok := s.pending[id]
	if !ok {
		return 0, false
	}
	return p.boundary, true
}

func (s *Scheduler) Len() int {
	return len(s.pending)
}

// Due removes and returns the actions whose boundary has been reached,
// ordered by boundary then scheduling order.
func (s *Scheduler) Due(pos Position) []func() {
	var due []*pendingAction
	for id, p := range s.pending {
		if Immediate(p.boundary, pos) {
			due = append(due, p)
			delete(s.pending, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].boundary != due[j].boundary {
			return due[i].boundary < due[j].boundary
		}
		return due[i].seq < due[j].seq
	})
	out := make([]func(), len(due))
	for i, p := range due {
		out[i] = p.run
	}
	return out
}

// NextWake returns the wall-clock time until the earliest pending boundary,
// derived from the live position and tempo. ok is false when nothing is pending.
func (s *Scheduler) NextWake(pos Position) (d time.Duration, ok bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	if !pos.Running || pos.Tempo <= 0 {
		return 0, true
	}
	earliest := math.Inf(1)
	for _, p := range s.pending {
		earliest = math.Min(earliest, p.boundary)
	}
	beats := earliest - pos.Beat
	if beats <= 0 {
		return 0, true
	}
	return time.Duration(beats * 60 / pos.Tempo * float64(time.Second)), true
}
