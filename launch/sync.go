package launch

import (
	"encoding/json"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// Sync channels
const (
	// ChannelState mirrors speculative local state to other windows
	ChannelState = "launch/state"
	// ChannelConfirm carries authoritative confirmations from the backend
	ChannelConfirm = "launch/confirm"
)

// SnapshotKey marks a payload whose value maps every entity id to its state
const SnapshotKey = "*"

// Payload is one message on a sync channel
type Payload struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// StateSync is the cross-window broadcast and confirmation stream. Publish
// must not block; handlers may be called from any goroutine.
type StateSync interface {
	Subscribe(channel string, handler func(Payload)) (unsubscribe func())
	Publish(channel string, p Payload)
}

// DeltaPayload encodes one entity's state
func DeltaPayload(id string, st PlaybackState) (Payload, error) {
	v, err := json.Marshal(st)
	if err != nil {
		return Payload{}, fault.Wrap(err, fmsg.With("encode state"))
	}
	return Payload{Key: id, Value: v}, nil
}

// SnapshotPayload encodes a full registry snapshot
func SnapshotPayload(states map[string]PlaybackState) (Payload, error) {
	v, err := json.Marshal(states)
	if err != nil {
		return Payload{}, fault.Wrap(err, fmsg.With("encode snapshot"))
	}
	return Payload{Key: SnapshotKey, Value: v}, nil
}

// DecodePayload turns a snapshot or delta into id → state entries
func DecodePayload(p Payload) (map[string]PlaybackState, error) {
	if p.Key == SnapshotKey {
		var states map[string]PlaybackState
		if err := json.Unmarshal(p.Value, &states); err != nil {
			return nil, fault.Wrap(err, fmsg.With("decode snapshot"))
		}
		return states, nil
	}
	if p.Key == "" {
		return nil, validationError("payload without key", "Received a malformed update")
	}
	var st PlaybackState
	if err := json.Unmarshal(p.Value, &st); err != nil {
		return nil, fault.Wrap(err, fmsg.With("decode delta for "+p.Key))
	}
	return map[string]PlaybackState{p.Key: st}, nil
}
