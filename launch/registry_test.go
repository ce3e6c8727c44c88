package launch

import (
	"errors"
	"testing"
)

func TestRegistryWriteBumpsGeneration(t *testing.T) {
	r := NewRegistry()
	a := r.Write("p", PlaybackState{Status: StatusPlaying})
	b := r.Write("p", PlaybackState{Status: StatusLoaded})
	if a.Generation != 1 || b.Generation != 2 {
		t.Errorf("generations = %d, %d, want 1, 2", a.Generation, b.Generation)
	}
	if got := r.Status("p", StatusEmpty); got != StatusLoaded {
		t.Errorf("Status = %s, want loaded", got)
	}
	if got := r.Status("missing", StatusIdle); got != StatusIdle {
		t.Errorf("Status fallback = %s, want idle", got)
	}
}

func TestRegistryReconcile(t *testing.T) {
	r := NewRegistry()
	r.Write("p", PlaybackState{Status: StatusPlaying})
	r.Write("p", PlaybackState{Status: StatusLoaded})

	err := r.Reconcile("p", PlaybackState{Status: StatusPlaying, Generation: 1})
	if !errors.Is(err, ErrStaleConfirmation) {
		t.Errorf("stale Reconcile = %v, want ErrStaleConfirmation", err)
	}
	if got := r.Status("p", ""); got != StatusLoaded {
		t.Errorf("after stale: %s, want loaded", got)
	}

	if err := r.Reconcile("p", PlaybackState{Status: StatusPlaying, Generation: 2}); err != nil {
		t.Errorf("equal generation rejected: %v", err)
	}
	if err := r.Reconcile("p", PlaybackState{Status: StatusLoaded, Generation: 7}); err != nil {
		t.Errorf("newer generation rejected: %v", err)
	}
	if st, _ := r.Get("p"); st.Generation != 7 {
		t.Errorf("generation = %d, want 7", st.Generation)
	}
	if next := r.Write("p", PlaybackState{Status: StatusPlaying}); next.Generation != 8 {
		t.Errorf("write after reconcile = %d, want 8", next.Generation)
	}
}

// Replicas fed the same ordered stream end up identical whatever they
// wrote locally in between.
func TestRegistryConverges(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	var stream []PlaybackState

	stream = append(stream, a.Write("p", PlaybackState{Status: StatusPlaying}))
	stream = append(stream, b.Write("p", PlaybackState{Status: StatusPlaying}))
	stream = append(stream, b.Write("p", PlaybackState{Status: StatusLoaded}))
	stream = append(stream, a.Write("p", PlaybackState{Status: StatusLoaded}))

	for _, st := range stream {
		a.Reconcile("p", st)
		b.Reconcile("p", st)
	}
	sa, _ := a.Get("p")
	sb, _ := b.Get("p")
	if sa != sb {
		t.Errorf("replicas diverged: %+v vs %+v", sa, sb)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Write("p", PlaybackState{Status: StatusPlaying})
	r.Write("gone", PlaybackState{Status: StatusPlaying})
	r.Reset(map[string]Status{"p": StatusLoaded, "c": StatusIdle})

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	st, _ := r.Get("p")
	if st.Status != StatusLoaded || st.Generation != 2 {
		t.Errorf("p = %s gen %d, want loaded gen 2", st.Status, st.Generation)
	}
	if _, ok := r.Get("gone"); ok {
		t.Error("reset kept an entity outside the base set")
	}
}
