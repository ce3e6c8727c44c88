package launch

// ChokeKey scopes a choke group to its bank
type ChokeKey struct {
	BankID string
	Group  int
}

// ChokeKeyOf returns the choke key of a pad, ok is false when the pad is not choked
func ChokeKeyOf(s *Session, padID string) (ChokeKey, bool) {
	p, bankID, found := s.Pad(padID)
	if !found || p.ChokeGroup == nil {
		return ChokeKey{}, false
	}
	return ChokeKey{BankID: bankID, Group: *p.ChokeGroup}, true
}

// ChokeCompetitors returns the other playing pads sharing padID's choke key
func ChokeCompetitors(s *Session, r *Registry, padID string) []Pad {
	key, ok := ChokeKeyOf(s, padID)
	if !ok {
		return nil
	}
	bank, _ := s.Bank(key.BankID)
	var out []Pad
	for _, p := range bank.Pads {
		if p.ID == padID || p.ChokeGroup == nil || *p.ChokeGroup != key.Group {
			continue
		}
		if r.Status(p.ID, p.BaseStatus()) == StatusPlaying {
			out = append(out, p)
		}
	}
	return out
}

// TrackCompetitors returns the other clips holding clipID's track
func TrackCompetitors(s *Session, r *Registry, clipID string) []Clip {
	c, ok := s.Clip(clipID)
	if !ok {
		return nil
	}
	var out []Clip
	for _, other := range s.ClipsOnTrack(c.TrackID) {
		if other.ID == clipID {
			continue
		}
		if r.Status(other.ID, StatusIdle).Active() {
			out = append(out, other)
		}
	}
	return out
}

// TrackChange is the part of a scene launch that touches one track
type TrackChange struct {
	TrackID string
	Start   *Clip  // nil when the scene's clip is already running
	Stop    []Clip // other clips active on the track
}

// ScenePlan resolves a scene launch into per-track changes before anything
// is issued. Tracks without a clip in the scene's slot are left alone.
func ScenePlan(s *Session, r *Registry, sceneID string) ([]TrackChange, error) {
	sc, ok := s.Scene(sceneID)
	if !ok {
		return nil, unknownEntity(sceneID)
	}
	var plan []TrackChange
	for _, t := range s.Tracks() {
		clip, ok := s.ClipAt(t.ID, sc.Slot)
		if !ok {
			continue
		}
		change := TrackChange{TrackID: t.ID, Stop: TrackCompetitors(s, r, clip.ID)}
		if !r.Status(clip.ID, StatusIdle).Active() {
			c := clip
			change.Start = &c
		}
		if change.Start == nil && len(change.Stop) == 0 {
			continue
		}
		plan = append(plan, change)
	}
	return plan, nil
}
