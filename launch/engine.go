package launch

import (
	"context"
	"time"
)

// PlayParams are the voice settings sent with a play command
type PlayParams struct {
	Volume  float64
	Pitch   float64
	Pan     float64
	Attack  float64
	Release float64
	Mode    PlaybackMode
}

// Ack is the engine's acceptance of a command
type Ack struct {
	EntityID string
	At       time.Time
}

// EngineBridge is the external audio engine. Play and Stop may block and may
// complete out of order; IsPlaying is a local cache read.
type EngineBridge interface {
	Play(ctx context.Context, id, source string, p PlayParams) (Ack, error)
	Stop(ctx context.Context, id string, releaseSeconds float64) (Ack, error)
	IsPlaying(id string) bool
}

// SessionObserver is implemented by engines whose routing depends on the
// session. It is called from the controller loop after every swap.
type SessionObserver interface {
	SessionChanged(s *Session)
}

func padParams(p Pad) PlayParams {
	return PlayParams{
		Volume:  p.Volume,
		Pitch:   p.Pitch,
		Pan:     p.Pan,
		Attack:  p.Attack,
		Release: p.Release,
		Mode:    p.Mode,
	}
}

func clipParams(c Clip, release float64) PlayParams {
	vol := 1.0
	if c.Type == ClipAudio && c.Audio != nil && c.Audio.Gain > 0 {
		vol = c.Audio.Gain
	}
	return PlayParams{Volume: vol, Release: release, Mode: ModeLoop}
}
