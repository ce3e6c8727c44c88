package statesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"

	"go-launcher/debug"
	"go-launcher/launch"
)

// AddressPrefix is prepended to the sync channel name to form the OSC address
const AddressPrefix = "/launch/sync/"

// ErrBadMessage marks an OSC message that does not carry a sync payload
var ErrBadMessage = fault.New("bad sync message")

// Peer mirrors a Hub to launcher processes on other machines. Local
// publishes are sent to every remote; remote messages are delivered to
// local subscribers without being sent back out.
type Peer struct {
	hub     *Hub
	origin  string
	listen  string
	clients []*osc.Client
}

// NewPeer connects hub to remotes given as host:port. listen is the UDP
// address to receive on, empty to only send.
func NewPeer(hub *Hub, listen string, remotes []string) (*Peer, error) {
	p := &Peer{hub: hub, origin: uuid.NewString(), listen: listen}
	for _, r := range remotes {
		host, portStr, err := net.SplitHostPort(r)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("parse peer "+r, "Sync peers must be host:port"))
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("parse peer port "+r, "Sync peers must be host:port"))
		}
		p.clients = append(p.clients, osc.NewClient(host, port))
	}
	hub.Tap(p.forward)
	return p, nil
}

// Origin identifies this process on the wire
func (p *Peer) Origin() string {
	return p.origin
}

func (p *Peer) forward(channel string, pl launch.Payload) {
	msg := encodeMessage(channel, p.origin, pl)
	for _, c := range p.clients {
		if err := c.Send(msg); err != nil {
			debug.LogEvery(50, "sync", "send %s: %v", channel, err)
		}
	}
}

// Serve receives remote state until ctx is cancelled
func (p *Peer) Serve(ctx context.Context) error {
	if p.listen == "" {
		<-ctx.Done()
		return nil
	}
	conn, err := net.ListenPacket("udp", p.listen)
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("listen "+p.listen, "Could not open the sync port"))
	}
	return p.serveConn(ctx, conn)
}

func (p *Peer) serveConn(ctx context.Context, conn net.PacketConn) error {
	d := osc.NewStandardDispatcher()
	for _, ch := range []string{launch.ChannelState, launch.ChannelConfirm} {
		channel := ch
		err := d.AddMsgHandler(AddressPrefix+channel, func(msg *osc.Message) {
			p.receive(channel, msg)
		})
		if err != nil {
			conn.Close()
			return fault.Wrap(err, fmsg.With("register "+channel))
		}
	}

	server := &osc.Server{Dispatcher: d}
	errc := make(chan error, 1)
	go func() { errc <- server.Serve(conn) }()
	debug.Log("sync", "osc peer listening on %s", conn.LocalAddr())

	select {
	case <-ctx.Done():
		conn.Close()
		<-errc
		return nil
	case err := <-errc:
		return fault.Wrap(err, fmsg.With("osc serve"))
	}
}

func (p *Peer) receive(channel string, msg *osc.Message) {
	origin, pl, err := decodeMessage(msg)
	if err != nil {
		debug.Log("sync", "bad osc message on %s: %v", msg.Address, err)
		return
	}
	if origin == p.origin {
		return
	}
	p.hub.Deliver(channel, pl)
}

func encodeMessage(channel, origin string, pl launch.Payload) *osc.Message {
	return osc.NewMessage(AddressPrefix+channel, origin, pl.Key, string(pl.Value))
}

func decodeMessage(msg *osc.Message) (origin string, pl launch.Payload, err error) {
	if len(msg.Arguments) != 3 {
		return "", pl, fault.Wrap(ErrBadMessage, fmsg.With(fmt.Sprintf("want 3 arguments, got %d", len(msg.Arguments))))
	}
	var fields [3]string
	for i, a := range msg.Arguments {
		s, ok := a.(string)
		if !ok {
			return "", pl, fault.Wrap(ErrBadMessage, fmsg.With(fmt.Sprintf("argument %d is %T, want string", i, a)))
		}
		fields[i] = s
	}
	if !json.Valid([]byte(fields[2])) {
		return "", pl, fault.Wrap(ErrBadMessage, fmsg.With("value for "+fields[1]+" is not json"))
	}
	return fields[0], launch.Payload{Key: fields[1], Value: json.RawMessage(fields[2])}, nil
}
