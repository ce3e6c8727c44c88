package surface

import (
	"context"
	"sync"
	"time"

	"go-launcher/debug"
	"go-launcher/launch"
	"go-launcher/midi"
	"go-launcher/theme"
)

// LED refresh rate
const ledFPS = 30

// Launcher is the part of the trigger controller the surface drives
type Launcher interface {
	TriggerBatch(ctx context.Context, events ...launch.TriggerEvent) []error
	SelectBank(ctx context.Context, bankID string) error
	StopAll(ctx context.Context) error
	Session(ctx context.Context) (*launch.Session, error)
	Snapshot(ctx context.Context) (map[string]launch.PlaybackState, error)
	Watch() <-chan struct{}
}

type input struct {
	key     [2]int // grid row/col, or {-1, note} for keyboards
	pressed bool
	note    bool
}

// Surface turns controller buttons into triggers and mirrors launch state
// onto the Launchpad LEDs.
type Surface struct {
	ctrl  Launcher
	theme *theme.Theme
	input chan input

	mu    sync.Mutex
	lp    midi.Controller
	prev  *Frame
	dirty bool

	held map[[2]int]string // pad id per key still down
}

func New(ctrl Launcher, th *theme.Theme) *Surface {
	return &Surface{
		ctrl:  ctrl,
		theme: th,
		input: make(chan input, 128),
		held:  make(map[[2]int]string),
		dirty: true,
	}
}

// Attach starts reading a controller. A Launchpad also becomes the LED target.
// Reading stops when the controller closes its channels.
func (s *Surface) Attach(c midi.Controller) {
	if c.Type() == midi.ControllerLaunchpad {
		s.mu.Lock()
		s.lp = c
		s.prev = nil // diff will repaint everything
		s.dirty = true
		s.mu.Unlock()
	}
	go func() {
		pads, notes := c.PadEvents(), c.NoteEvents()
		for pads != nil || notes != nil {
			select {
			case ev, ok := <-pads:
				if !ok {
					pads = nil
					continue
				}
				s.input <- input{key: [2]int{ev.Row, ev.Col}, pressed: ev.Pressed}
			case ev, ok := <-notes:
				if !ok {
					notes = nil
					continue
				}
				s.input <- input{key: [2]int{-1, int(ev.Note)}, pressed: ev.Pressed, note: true}
			}
		}
		debug.Log("surface", "detached %s", c.ID())
	}()
}

// Detach stops sending LEDs to the controller with the given id
func (s *Surface) Detach(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lp != nil && s.lp.ID() == id {
		s.lp = nil
	}
}

// Run handles input and flushes LEDs until ctx is done
func (s *Surface) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()
	watch := s.ctrl.Watch()

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-s.input:
			batch := []input{in}
		drain:
			for {
				select {
				case more := <-s.input:
					batch = append(batch, more)
				default:
					break drain
				}
			}
			s.handle(ctx, batch)
		case <-watch:
			s.markDirty()
		case <-ticker.C:
			s.mu.Lock()
			dirty := s.dirty
			s.dirty = false
			s.mu.Unlock()
			if dirty {
				s.flush(ctx)
			}
		}
	}
}

func (s *Surface) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// handle applies inputs that arrived together. Pad, clip and scene gestures
// go to the controller as one batch; bank and stop-all buttons flush the
// batch first so ordering holds.
func (s *Surface) handle(ctx context.Context, batch []input) {
	sess, err := s.ctrl.Session(ctx)
	if err != nil {
		return
	}

	var events []launch.TriggerEvent
	flush := func() {
		if len(events) == 0 {
			return
		}
		for i, err := range s.ctrl.TriggerBatch(ctx, events...) {
			if err != nil {
				debug.Log("surface", "trigger %s: %v", events[i].ID, err)
			}
		}
		events = events[:0]
	}

	for _, in := range batch {
		if !in.pressed {
			// releases go to whatever pad was pressed, even across bank changes
			if id, ok := s.held[in.key]; ok {
				delete(s.held, in.key)
				events = append(events, launch.TriggerEvent{ID: id, Kind: launch.Release})
			}
			continue
		}

		var target Target
		if in.note {
			if id, ok := KeyboardPad(sess, uint8(in.key[1])); ok {
				target = Target{Kind: TargetPad, ID: id}
			}
		} else {
			target = Resolve(sess, in.key[0], in.key[1])
		}

		switch target.Kind {
		case TargetPad:
			s.held[in.key] = target.ID
			events = append(events, launch.TriggerEvent{ID: target.ID, Kind: launch.Press})
		case TargetClip, TargetScene:
			events = append(events, launch.TriggerEvent{ID: target.ID, Kind: launch.Click})
		case TargetBank:
			flush()
			if err := s.ctrl.SelectBank(ctx, target.ID); err != nil {
				debug.Log("surface", "select bank %s: %v", target.ID, err)
			}
			if sess, err = s.ctrl.Session(ctx); err != nil {
				return
			}
		case TargetStopAll:
			flush()
			if err := s.ctrl.StopAll(ctx); err != nil {
				debug.Log("surface", "stop all: %v", err)
			}
		}
	}
	flush()
	s.markDirty()
}

func (s *Surface) flush(ctx context.Context) {
	s.mu.Lock()
	lp := s.lp
	s.mu.Unlock()
	if lp == nil {
		return
	}

	sess, err := s.ctrl.Session(ctx)
	if err != nil {
		return
	}
	states, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		return
	}
	frame := Render(sess, states, s.theme)

	s.mu.Lock()
	updates := Diff(s.prev, frame)
	s.prev = &frame
	s.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	debug.LogEvery(30, "surface", "flush batch=%d", len(updates))
	if err := lp.SetLEDBatch(updates); err != nil {
		debug.Log("surface", "led flush: %v", err)
		s.mu.Lock()
		s.prev = nil
		s.mu.Unlock()
	}
}
