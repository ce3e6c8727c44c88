package launch

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-launcher/debug"
)

// Options tune a Controller
type Options struct {
	Quantize      Quantize
	ClipRelease   float64       // release used when stopping clips, seconds
	EngineTimeout time.Duration // upper bound on a single engine call
	PollInterval  time.Duration // longest the loop sleeps between transport reads
	Origin        string        // identifies this window on the sync stream
}

func DefaultOptions() Options {
	return Options{
		Quantize:      QuantizeBar,
		ClipRelease:   0.05,
		EngineTimeout: 2 * time.Second,
		PollInterval:  5 * time.Millisecond,
	}
}

// Controller turns user gestures into engine commands. It applies state
// optimistically, enforces choke groups and single-clip tracks, defers
// quantized launches to beat boundaries and rolls back on engine failure.
type Controller struct {
	opts      Options
	engine    EngineBridge
	transport Transport
	sync      StateSync

	// owned by the Run goroutine
	session       *Session
	registry      *Registry
	sched         *Scheduler
	inflight      int
	settleWaiters []chan struct{}
	runCtx        context.Context

	inbox   chan func()
	done    chan struct{}
	notices chan Notice

	watchMu  sync.Mutex
	watchers []chan struct{}
}

// New builds a controller for sess. sync may be nil for a single window.
func New(sess *Session, engine EngineBridge, transport Transport, stateSync StateSync, opts Options) *Controller {
	def := DefaultOptions()
	if opts.Quantize == "" {
		opts.Quantize = def.Quantize
	}
	if opts.EngineTimeout <= 0 {
		opts.EngineTimeout = def.EngineTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.ClipRelease < 0 {
		opts.ClipRelease = 0
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	c := &Controller{
		opts:      opts,
		engine:    engine,
		transport: transport,
		sync:      stateSync,
		session:   sess,
		registry:  NewRegistry(),
		sched:     NewScheduler(),
		runCtx:    context.Background(),
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		notices:   make(chan Notice, 16),
	}
	c.registry.Reset(sess.BaseStates())
	return c
}

// Origin returns the id this controller stamps on published states
func (c *Controller) Origin() string {
	return c.opts.Origin
}

// Trigger handles a single gesture
func (c *Controller) Trigger(ctx context.Context, id string, kind InputKind) error {
	return c.TriggerBatch(ctx, TriggerEvent{ID: id, Kind: kind})[0]
}

// TriggerBatch handles gestures that arrived together as one step. A repeated
// gesture on the same entity within a batch is applied once.
func (c *Controller) TriggerBatch(ctx context.Context, events ...TriggerEvent) []error {
	errs := make([]error, len(events))
	err := c.call(ctx, func() {
		seen := make(map[TriggerEvent]bool, len(events))
		for i, ev := range events {
			if seen[ev] {
				debug.Log("trigger", "collapse duplicate %s %s", ev.Kind, ev.ID)
				continue
			}
			seen[ev] = true
			errs[i] = c.trigger(ev)
		}
	})
	if err != nil {
		for i := range errs {
			errs[i] = err
		}
	}
	return errs
}

func (c *Controller) trigger(ev TriggerEvent) error {
	debug.Log("trigger", "%s %s", ev.Kind, ev.ID)
	switch c.session.Kind(ev.ID) {
	case EntityPad:
		return c.triggerPad(ev)
	case EntityClip:
		if ev.Kind == Release {
			return nil
		}
		return c.triggerClip(ev.ID)
	case EntityScene:
		if ev.Kind == Release {
			return nil
		}
		return c.launchScene(ev.ID)
	}
	return unknownEntity(ev.ID)
}

// Pads

func (c *Controller) triggerPad(ev TriggerEvent) error {
	pad, _, _ := c.session.Pad(ev.ID)
	playing := c.registry.Status(pad.ID, pad.BaseStatus()) == StatusPlaying

	if pad.Mode == ModeGate {
		switch ev.Kind {
		case Press:
			if !playing {
				c.startPad(pad)
			}
		case Release:
			if playing {
				c.stopPad(pad)
			}
		}
		return nil
	}

	if ev.Kind == Release {
		return nil
	}
	if playing {
		c.stopPad(pad)
		return nil
	}
	c.startPad(pad)
	return nil
}

func (c *Controller) startPad(pad Pad) {
	if pad.BaseStatus() != StatusLoaded {
		debug.Log("trigger", "pad %s is %s, ignoring", pad.ID, pad.BaseStatus())
		return
	}
	prev := c.stateOf(pad.ID, pad.BaseStatus())
	for _, other := range ChokeCompetitors(c.session, c.registry, pad.ID) {
		c.stopPad(other)
	}
	st := c.write(pad.ID, PlaybackState{Status: StatusPlaying})
	c.issue(command{
		op:     opPlay,
		id:     pad.ID,
		source: pad.Sample,
		params: padParams(pad),
		gen:    st.Generation,
		prev:   prev,
	})
}

func (c *Controller) stopPad(pad Pad) {
	prev := c.stateOf(pad.ID, pad.BaseStatus())
	st := c.write(pad.ID, PlaybackState{Status: pad.BaseStatus()})
	c.issue(command{
		op:      opStop,
		id:      pad.ID,
		release: pad.Release,
		gen:     st.Generation,
		prev:    prev,
	})
}

// Clips

func (c *Controller) triggerClip(id string) error {
	clip, _ := c.session.Clip(id)
	pos := c.transport.Position()
	boundary := Boundary(c.opts.Quantize, pos)

	if c.registry.Status(id, StatusIdle).Active() {
		c.stopClipAt(clip, boundary, pos)
		return nil
	}
	c.startClipAt(clip, boundary, pos, "")
	return nil
}

// startClipAt launches clip at boundary, stopping whatever else holds its
// track at the same boundary.
func (c *Controller) startClipAt(clip Clip, boundary float64, pos Position, sceneID string) {
	prev := c.stateOf(clip.ID, StatusIdle)
	c.sched.Cancel(clip.ID)
	for _, other := range TrackCompetitors(c.session, c.registry, clip.ID) {
		c.stopClipAt(other, boundary, pos)
	}

	if Immediate(boundary, pos) {
		c.playClip(clip, prev, pos.Beat, sceneID)
		return
	}

	st := c.write(clip.ID, PlaybackState{Status: StatusQueued, Boundary: boundary})
	gen := st.Generation
	c.sched.Schedule(clip.ID, boundary, func() {
		if !c.current(clip.ID, gen) {
			return
		}
		c.playClip(clip, prev, boundary, sceneID)
	})
}

func (c *Controller) playClip(clip Clip, prev PlaybackState, started float64, sceneID string) {
	st := c.write(clip.ID, PlaybackState{Status: StatusPlaying, Started: started})
	c.issue(command{
		op:     opPlay,
		id:     clip.ID,
		source: clip.Source(),
		params: clipParams(clip, c.opts.ClipRelease),
		gen:    st.Generation,
		prev:   prev,
		scene:  sceneID,
	})
}

// stopClipAt moves an active clip to stopping and silences it at boundary
func (c *Controller) stopClipAt(clip Clip, boundary float64, pos Position) {
	prev := c.stateOf(clip.ID, StatusIdle)
	c.sched.Cancel(clip.ID)

	if Immediate(boundary, pos) {
		c.haltClip(clip, prev)
		return
	}

	st := c.write(clip.ID, PlaybackState{Status: StatusStopping, Boundary: boundary, Started: prev.Started})
	gen := st.Generation
	c.sched.Schedule(clip.ID, boundary, func() {
		if !c.current(clip.ID, gen) {
			return
		}
		c.haltClip(clip, prev)
	})
}

func (c *Controller) haltClip(clip Clip, prev PlaybackState) {
	st := c.write(clip.ID, PlaybackState{Status: StatusIdle})
	if prev.Status == StatusQueued && !c.engine.IsPlaying(clip.ID) {
		// never reached the engine
		return
	}
	c.issue(command{
		op:      opStop,
		id:      clip.ID,
		release: c.opts.ClipRelease,
		gen:     st.Generation,
		prev:    prev,
	})
}

// Scenes

func (c *Controller) launchScene(id string) error {
	plan, err := ScenePlan(c.session, c.registry, id)
	if err != nil {
		return err
	}
	sc, _ := c.session.Scene(id)
	if sc.Tempo != nil {
		if ts, ok := c.transport.(TempoSetter); ok {
			ts.SetTempo(*sc.Tempo)
		}
	}

	pos := c.transport.Position()
	boundary := Boundary(c.opts.Quantize, pos)
	debug.Log("trigger", "scene %s: %d tracks at beat %.2f", id, len(plan), boundary)
	for _, change := range plan {
		if change.Start != nil {
			c.startClipAt(*change.Start, boundary, pos, id)
			continue
		}
		for _, clip := range change.Stop {
			c.stopClipAt(clip, boundary, pos)
		}
	}
	return nil
}

// StopTrack stops every active clip on a track at the next boundary
func (c *Controller) StopTrack(ctx context.Context, trackID string) error {
	var err error
	callErr := c.call(ctx, func() {
		if _, ok := c.session.Track(trackID); !ok {
			err = unknownEntity(trackID)
			return
		}
		pos := c.transport.Position()
		boundary := Boundary(c.opts.Quantize, pos)
		for _, clip := range c.session.ClipsOnTrack(trackID) {
			if c.registry.Status(clip.ID, StatusIdle).Active() {
				c.stopClipAt(clip, boundary, pos)
			}
		}
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// StopAll silences everything immediately and resets launch state
func (c *Controller) StopAll(ctx context.Context) error {
	return c.call(ctx, c.stopAll)
}

func (c *Controller) stopAll() {
	dropped := c.sched.CancelAll()
	stopped := 0
	for id, st := range c.registry.Snapshot() {
		if st.Status != StatusPlaying && st.Status != StatusStopping && !c.engine.IsPlaying(id) {
			continue
		}
		release := c.opts.ClipRelease
		if pad, _, ok := c.session.Pad(id); ok {
			release = pad.Release
		}
		// gen 0 never matches after the reset below, so failures only notify
		c.issue(command{op: opStop, id: id, release: release})
		stopped++
	}
	c.reset()
	debug.Log("trigger", "stop all: %d stopped, %d pending dropped", stopped, dropped)
}

// reset rewrites every entity to its base status and publishes the snapshot
func (c *Controller) reset() {
	c.registry.Reset(c.session.BaseStates())
	snap := c.registry.Snapshot()
	for id, st := range snap {
		st.Origin = c.opts.Origin
		snap[id] = st
	}
	if c.sync != nil {
		if p, err := SnapshotPayload(snap); err == nil {
			c.sync.Publish(ChannelState, p)
		} else {
			debug.Log("sync", "snapshot: %v", err)
		}
	}
	c.changed()
}

// SetQuantize changes the launch grid for future triggers
func (c *Controller) SetQuantize(ctx context.Context, q Quantize) error {
	return c.call(ctx, func() { c.opts.Quantize = q })
}

// Quantize returns the current launch grid
func (c *Controller) Quantize(ctx context.Context) (Quantize, error) {
	var q Quantize
	err := c.call(ctx, func() { q = c.opts.Quantize })
	return q, err
}

// Configuration changes

// SelectBank switches the active pad bank. Pads keep playing.
func (c *Controller) SelectBank(ctx context.Context, bankID string) error {
	return c.Apply(ctx, SelectBank(bankID))
}

// SetPadMuted mutes or unmutes a pad. Muting a playing pad stops it.
func (c *Controller) SetPadMuted(ctx context.Context, padID string, muted bool) error {
	return c.Apply(ctx, SetPadMuted(padID, muted))
}

// Apply runs a configuration action against the live session and brings
// pad states in line with the result.
func (c *Controller) Apply(ctx context.Context, a Action) error {
	var err error
	callErr := c.call(ctx, func() {
		var next *Session
		next, err = Reduce(c.session, a)
		if err != nil {
			return
		}
		old := c.session
		c.swap(next)
		c.realign(old)
		c.changed()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// realign updates pads whose configuration changed under them. Resting pads
// take their new base status. A playing pad stops when it became empty or
// muted, or when it joined a choke group another pad is already playing in.
func (c *Controller) realign(old *Session) {
	for _, b := range c.session.Banks() {
		for _, pad := range b.Pads {
			before, _, _ := old.Pad(pad.ID)
			status := c.registry.Status(pad.ID, before.BaseStatus())
			if status != StatusPlaying {
				if status != pad.BaseStatus() {
					c.write(pad.ID, PlaybackState{Status: pad.BaseStatus()})
				}
				continue
			}
			switch {
			case pad.BaseStatus() != StatusLoaded:
				c.stopPad(pad)
			case !sameGroup(before.ChokeGroup, pad.ChokeGroup) && len(ChokeCompetitors(c.session, c.registry, pad.ID)) > 0:
				debug.Log("trigger", "pad %s joined a busy choke group", pad.ID)
				c.stopPad(pad)
			}
		}
	}
}

func sameGroup(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// swap installs a new session and tells a session-aware engine about it
func (c *Controller) swap(next *Session) {
	c.session = next
	if o, ok := c.engine.(SessionObserver); ok {
		o.SessionChanged(next)
	}
}

// LoadComposition validates comp, stops everything and swaps it in
func (c *Controller) LoadComposition(ctx context.Context, comp Composition) error {
	next, err := NewSession(comp)
	if err != nil {
		return err
	}
	return c.call(ctx, func() {
		c.stopAll()
		c.swap(next)
		c.reset()
		debug.Log("trigger", "loaded composition %s", comp.ID)
	})
}

// Session returns the current configuration
func (c *Controller) Session(ctx context.Context) (*Session, error) {
	var s *Session
	err := c.call(ctx, func() { s = c.session })
	return s, err
}

// State returns the launch state of one entity
func (c *Controller) State(ctx context.Context, id string) (PlaybackState, error) {
	var st PlaybackState
	err := c.call(ctx, func() {
		st = c.stateOf(id, "")
		c.fillProgress(id, &st, c.transport.Position())
	})
	return st, err
}

// Snapshot returns the launch state of every pad and clip with clip progress
func (c *Controller) Snapshot(ctx context.Context) (map[string]PlaybackState, error) {
	var snap map[string]PlaybackState
	err := c.call(ctx, func() {
		snap = c.registry.Snapshot()
		pos := c.transport.Position()
		for id, st := range snap {
			c.fillProgress(id, &st, pos)
			snap[id] = st
		}
	})
	return snap, err
}

func (c *Controller) fillProgress(id string, st *PlaybackState, pos Position) {
	clip, ok := c.session.Clip(id)
	if !ok || clip.Duration <= 0 {
		return
	}
	if st.Status != StatusPlaying && st.Status != StatusStopping {
		return
	}
	elapsed := pos.Beat - st.Started
	if elapsed < 0 {
		return
	}
	st.Progress = math.Mod(elapsed, clip.Duration) / clip.Duration
}

// Sync

func (c *Controller) reconcile(p Payload) {
	states, err := DecodePayload(p)
	if err != nil {
		debug.Log("sync", "bad payload %s: %v", p.Key, err)
		return
	}
	applied := 0
	for id, st := range states {
		kind := c.session.Kind(id)
		if kind != EntityPad && kind != EntityClip {
			continue
		}
		if st.Origin != c.opts.Origin && holds(kind, st.Status) && !c.yield(id, st) {
			debug.Log("sync", "%s from %s lost to a rival launch", id, st.Origin)
			continue
		}
		if err := c.registry.Reconcile(id, st); err != nil {
			continue
		}
		applied++
	}
	if applied > 0 {
		c.changed()
	}
}

// holds reports whether status occupies a choke group or track
func holds(kind EntityKind, s Status) bool {
	if kind == EntityPad {
		return s == StatusPlaying
	}
	return s.Active()
}

// yield settles a remote launch that raced a rival on the same choke group
// or track. The state with the greater origin wins in every window, so
// windows agree whatever order they saw the launches in. It returns false
// when the remote launch loses. Rivals launched here are stopped; rivals
// owned by another window are left for that window to stop.
func (c *Controller) yield(id string, st PlaybackState) bool {
	var rivals []string
	switch c.session.Kind(id) {
	case EntityPad:
		for _, p := range ChokeCompetitors(c.session, c.registry, id) {
			rivals = append(rivals, p.ID)
		}
	case EntityClip:
		for _, cl := range TrackCompetitors(c.session, c.registry, id) {
			rivals = append(rivals, cl.ID)
		}
	}
	for _, r := range rivals {
		if c.stateOf(r, "").Origin > st.Origin {
			return false
		}
	}
	for _, r := range rivals {
		prev := c.stateOf(r, "")
		if prev.Origin != c.opts.Origin {
			continue
		}
		debug.Log("sync", "%s yields to %s from %s", r, id, st.Origin)
		if pad, _, ok := c.session.Pad(r); ok {
			c.stopPad(pad)
			continue
		}
		clip, _ := c.session.Clip(r)
		c.sched.Cancel(r)
		c.haltClip(clip, prev)
	}
	return true
}

// State helpers

func (c *Controller) stateOf(id string, fallback Status) PlaybackState {
	if st, ok := c.registry.Get(id); ok {
		return st
	}
	return PlaybackState{Status: fallback}
}

func (c *Controller) current(id string, gen uint64) bool {
	st, ok := c.registry.Get(id)
	return ok && st.Generation == gen
}

// write stores an optimistic state and mirrors it to other windows
func (c *Controller) write(id string, st PlaybackState) PlaybackState {
	st.Origin = c.opts.Origin
	stored := c.registry.Write(id, st)
	if c.sync != nil {
		if p, err := DeltaPayload(id, stored); err == nil {
			c.sync.Publish(ChannelState, p)
		} else {
			debug.Log("sync", "delta %s: %v", id, err)
		}
	}
	c.changed()
	return stored
}

// settled maps a transitional state to where it rests without a pending action
func (c *Controller) settled(id string, st PlaybackState) PlaybackState {
	switch st.Status {
	case StatusQueued:
		return PlaybackState{Status: StatusIdle}
	case StatusStopping:
		if c.engine.IsPlaying(id) {
			return PlaybackState{Status: StatusPlaying, Started: st.Started}
		}
		return PlaybackState{Status: StatusIdle}
	}
	return st
}

// contested reports whether another entity now holds id's choke group or track
func (c *Controller) contested(id string) bool {
	switch c.session.Kind(id) {
	case EntityPad:
		return len(ChokeCompetitors(c.session, c.registry, id)) > 0
	case EntityClip:
		return len(TrackCompetitors(c.session, c.registry, id)) > 0
	}
	return false
}

func (c *Controller) baseStatus(id string) Status {
	if pad, _, ok := c.session.Pad(id); ok {
		return pad.BaseStatus()
	}
	return StatusIdle
}

// Engine commands

type op int

const (
	opPlay op = iota
	opStop
)

type command struct {
	op      op
	id      string
	source  string
	params  PlayParams
	release float64
	gen     uint64        // generation written with the command
	prev    PlaybackState // state before the gesture, restored on failure
	scene   string
}

// issue runs cmd on its own goroutine, bounded by the engine timeout, and
// posts the outcome back to the loop.
func (c *Controller) issue(cmd command) {
	c.inflight++
	ctx := c.runCtx
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.EngineTimeout)
		defer cancel()

		res := make(chan error, 1)
		go func() {
			var err error
			switch cmd.op {
			case opPlay:
				_, err = c.engine.Play(callCtx, cmd.id, cmd.source, cmd.params)
			case opStop:
				_, err = c.engine.Stop(callCtx, cmd.id, cmd.release)
			}
			res <- err
		}()

		var err error
		select {
		case err = <-res:
		case <-callCtx.Done():
			err = callCtx.Err()
		}
		c.post(func() {
			c.inflight--
			c.complete(cmd, err)
		})
	}()
}

func (c *Controller) complete(cmd command, err error) {
	if err == nil {
		return
	}
	err = engineError(err, cmd.id)
	if cmd.gen != 0 && c.current(cmd.id, cmd.gen) {
		c.sched.Cancel(cmd.id)
		back := c.settled(cmd.id, cmd.prev)
		if back.Status == StatusPlaying && c.contested(cmd.id) {
			back = PlaybackState{Status: c.baseStatus(cmd.id)}
		}
		c.write(cmd.id, back)
		debug.Log("trigger", "rolled back %s to %s", cmd.id, back.Status)
	}
	if cmd.scene != "" {
		err = sceneError(err, cmd.scene)
	}
	c.notice(cmd.id, err)
}
