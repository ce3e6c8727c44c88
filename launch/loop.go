package launch

import (
	"context"
	"errors"
	"time"

	"go-launcher/debug"
)

// ErrStopped is returned by calls made after Run has exited
var ErrStopped = errors.New("controller stopped")

// inboxSize bounds the number of queued loop events
const inboxSize = 256

// TrySend sends v unless the channel is full. It never blocks.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// Run owns the controller state until ctx is cancelled. Every mutation
// happens on this goroutine; callers and engine completions post closures.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.done)

	if c.sync != nil {
		for _, ch := range []string{ChannelState, ChannelConfirm} {
			unsubscribe := c.sync.Subscribe(ch, c.onSync)
			defer unsubscribe()
		}
	}

	timer := time.NewTimer(c.opts.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			debug.Log("trigger", "loop stopped: %v", ctx.Err())
			return ctx.Err()
		case fn := <-c.inbox:
			fn()
		case <-timer.C:
		}
		c.poll()
		c.releaseSettled()
		timer.Reset(c.wakeIn())
	}
}

// wakeIn picks the next loop wake: the earliest pending boundary at the
// current tempo, capped by the poll interval so tempo changes are seen.
func (c *Controller) wakeIn() time.Duration {
	d, ok := c.sched.NextWake(c.transport.Position())
	if !ok || d > c.opts.PollInterval {
		return c.opts.PollInterval
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// call runs fn on the loop and waits for it to finish
func (c *Controller) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case c.inbox <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// post queues fn from another goroutine, dropping it once the loop is gone
func (c *Controller) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

func (c *Controller) onSync(p Payload) {
	if !TrySend(c.inbox, func() { c.reconcile(p) }) {
		debug.Log("sync", "inbox full, dropped update for %s", p.Key)
	}
}

func (c *Controller) poll() {
	for _, run := range c.sched.Due(c.transport.Position()) {
		run()
	}
}

// Poll evaluates pending actions against the transport immediately
func (c *Controller) Poll(ctx context.Context) error {
	return c.call(ctx, func() {})
}

// Settle waits until no engine call is outstanding
func (c *Controller) Settle(ctx context.Context) error {
	ready := make(chan struct{})
	err := c.call(ctx, func() {
		c.settleWaiters = append(c.settleWaiters, ready)
		c.releaseSettled()
	})
	if err != nil {
		return err
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

func (c *Controller) releaseSettled() {
	if c.inflight > 0 || len(c.settleWaiters) == 0 {
		return
	}
	for _, w := range c.settleWaiters {
		close(w)
	}
	c.settleWaiters = nil
}

// Notice is a transient, user-facing report of a failed trigger
type Notice struct {
	EntityID string
	Err      error
	Message  string
	At       time.Time
}

// Notices delivers transient errors. Notices are dropped when nobody reads.
func (c *Controller) Notices() <-chan Notice {
	return c.notices
}

func (c *Controller) notice(id string, err error) {
	n := Notice{EntityID: id, Err: err, Message: Describe(err), At: time.Now()}
	debug.Log("trigger", "notice %s: %v", id, err)
	TrySend(c.notices, n)
}

// Watch returns a channel signalled whenever playback state changes
func (c *Controller) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.watchMu.Lock()
	c.watchers = append(c.watchers, ch)
	c.watchMu.Unlock()
	return ch
}

func (c *Controller) changed() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, w := range c.watchers {
		TrySend(w, struct{}{})
	}
}
