package launch

import (
	"maps"

	"go-launcher/debug"
)

// Registry caches the playback state of every entity. Local optimistic writes
// and authoritative reconciliations are ordered by a per-entity generation.
// A Registry belongs to a single goroutine.
type Registry struct {
	entries map[string]PlaybackState
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]PlaybackState)}
}

// Get returns the current state of id
func (r *Registry) Get(id string) (PlaybackState, bool) {
	st, ok := r.entries[id]
	return st, ok
}

// Status returns the status of id, or fallback if unknown
func (r *Registry) Status(id string, fallback Status) Status {
	if st, ok := r.entries[id]; ok {
		return st.Status
	}
	return fallback
}

// Write records an optimistic local state under the next generation and
// returns the stored value.
func (r *Registry) Write(id string, st PlaybackState) PlaybackState {
	st.Generation = r.entries[id].Generation + 1
	st.Progress = 0
	r.entries[id] = st
	return st
}

// Reconcile applies an authoritative state unless it is older than what is
// stored. Stale states are dropped and reported with ErrStaleConfirmation.
func (r *Registry) Reconcile(id string, st PlaybackState) error {
	cur, ok := r.entries[id]
	if ok && st.Generation < cur.Generation {
		debug.Log("registry", "drop %s gen=%d < %d", id, st.Generation, cur.Generation)
		return staleError(id)
	}
	st.Progress = 0
	r.entries[id] = st
	return nil
}

// Reset rewrites every entity to its base status. Generations keep rising so
// confirmations issued before the reset are recognised as stale.
func (r *Registry) Reset(base map[string]Status) {
	for id := range r.entries {
		if _, keep := base[id]; !keep {
			delete(r.entries, id)
		}
	}
	for id, s := range base {
		r.Write(id, PlaybackState{Status: s})
	}
}

// Snapshot returns a copy of all entries
func (r *Registry) Snapshot() map[string]PlaybackState {
	return maps.Clone(r.entries)
}

func (r *Registry) Len() int {
	return len(r.entries)
}
