package statesync

import (
	"sync"

	"github.com/google/uuid"

	"go-launcher/debug"
	"go-launcher/launch"
)

// subscriberBuffer is how many payloads a slow window may lag behind
const subscriberBuffer = 512

type subscriber struct {
	id      string
	channel string
	handler func(launch.Payload)
	c       chan launch.Payload
	done    chan struct{}
}

// Hub fans launch state out to every window in the process. All publishes
// pass through one lock, so every subscriber sees the same order.
type Hub struct {
	mu     sync.RWMutex // write lock orders publishes
	subs   map[string]*subscriber
	taps   []func(channel string, p launch.Payload)
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Subscribe implements launch.StateSync. handler runs on a goroutine owned
// by the subscription, one payload at a time.
func (h *Hub) Subscribe(channel string, handler func(launch.Payload)) func() {
	s := &subscriber{
		id:      uuid.NewString(),
		channel: channel,
		handler: handler,
		c:       make(chan launch.Payload, subscriberBuffer),
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	h.subs[s.id] = s
	h.mu.Unlock()

	go s.run()
	debug.Log("sync", "subscribe %s to %s", s.id[:8], channel)

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(s.id) })
	}
}

func (s *subscriber) run() {
	for {
		select {
		case p := <-s.c:
			s.handler(p)
		case <-s.done:
			return
		}
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		close(s.done)
	}
}

// Publish implements launch.StateSync. It never blocks: a subscriber whose
// buffer is full misses the payload.
func (h *Hub) Publish(channel string, p launch.Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.deliver(channel, p)
	for _, tap := range h.taps {
		tap(channel, p)
	}
}

// Deliver hands a payload that arrived from elsewhere to local subscribers
// only. Taps do not see it.
func (h *Hub) Deliver(channel string, p launch.Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.deliver(channel, p)
}

func (h *Hub) deliver(channel string, p launch.Payload) {
	for _, s := range h.subs {
		if s.channel != channel {
			continue
		}
		select {
		case s.c <- p:
		default:
			debug.Log("sync", "subscriber %s lagging, dropped %s", s.id[:8], p.Key)
		}
	}
}

// Tap registers fn to see every local publish, used to forward state to
// remote peers. fn must not block.
func (h *Hub) Tap(fn func(channel string, p launch.Payload)) {
	h.mu.Lock()
	h.taps = append(h.taps, fn)
	h.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close stops every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.closed = true
	h.mu.Unlock()
	for _, s := range subs {
		close(s.done)
	}
}
