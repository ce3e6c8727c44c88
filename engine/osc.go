package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/hypebeast/go-osc/osc"

	"go-launcher/debug"
	"go-launcher/launch"
)

// OSC addresses understood by the sampler
const (
	AddrPlay = "/launch/play"
	AddrStop = "/launch/stop"
)

// Sender is the part of an osc.Client the bridge needs
type Sender interface {
	Send(packet osc.Packet) error
}

// OSCBridge drives a SuperCollider style sampler. Every play carries the
// full voice so the sampler holds no per-pad state.
type OSCBridge struct {
	mu      sync.Mutex
	client  Sender
	playing map[string]bool
}

func NewOSCBridge(client Sender) *OSCBridge {
	return &OSCBridge{client: client, playing: make(map[string]bool)}
}

// DialOSC sends to a sampler listening on host:port
func DialOSC(host string, port int) *OSCBridge {
	return NewOSCBridge(osc.NewClient(host, port))
}

func (b *OSCBridge) Play(ctx context.Context, id, source string, p launch.PlayParams) (launch.Ack, error) {
	if err := ctx.Err(); err != nil {
		return launch.Ack{}, err
	}
	msg := osc.NewMessage(AddrPlay)
	msg.Append(id)
	msg.Append(source)
	msg.Append(float32(p.Volume))
	msg.Append(float32(p.Pitch))
	msg.Append(float32(p.Pan))
	msg.Append(float32(p.Attack))
	msg.Append(float32(p.Release))
	msg.Append(string(p.Mode))

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.client.Send(msg); err != nil {
		return launch.Ack{}, fault.Wrap(err, fmsg.With("osc play "+id))
	}
	b.playing[id] = true
	debug.Log("engine", "osc play %s %s", id, source)
	return launch.Ack{EntityID: id, At: time.Now()}, nil
}

func (b *OSCBridge) Stop(ctx context.Context, id string, releaseSeconds float64) (launch.Ack, error) {
	if err := ctx.Err(); err != nil {
		return launch.Ack{}, err
	}
	msg := osc.NewMessage(AddrStop, id, float32(releaseSeconds))

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.client.Send(msg); err != nil {
		return launch.Ack{}, fault.Wrap(err, fmsg.With("osc stop "+id))
	}
	delete(b.playing, id)
	debug.Log("engine", "osc stop %s release=%.2fs", id, releaseSeconds)
	return launch.Ack{EntityID: id, At: time.Now()}, nil
}

func (b *OSCBridge) IsPlaying(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing[id]
}
