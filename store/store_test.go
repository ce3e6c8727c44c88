package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-launcher/launch"
)

func newTestStore(t *testing.T) (*FileStore, *time.Time) {
	s := NewFileStore(t.TempDir())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestSaveLoadLatest(t *testing.T) {
	s, clock := newTestStore(t)
	c := launch.Demo("gig")
	if err := s.Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	*clock = clock.Add(time.Minute)
	c.Name = "Second"
	if _, err := s.SaveNamed(c, "after soundcheck"); err != nil {
		t.Fatalf("SaveNamed: %v", err)
	}

	saves, err := s.ListSaves("gig")
	if err != nil {
		t.Fatal(err)
	}
	if len(saves) != 2 {
		t.Fatalf("ListSaves = %d, want 2", len(saves))
	}
	if saves[0].Name != "after-soundcheck" {
		t.Errorf("newest save name = %q, want after-soundcheck", saves[0].Name)
	}

	got, err := s.Load("gig")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "Second" {
		t.Errorf("Load picked %q, want newest", got.Name)
	}
	if len(got.Clips) != len(c.Clips) || got.Banks[0].Pads[2].ChokeGroup == nil {
		t.Errorf("composition lost detail: %d clips, choke %v", len(got.Clips), got.Banks[0].Pads[2].ChokeGroup)
	}
	if _, err := launch.NewSession(got); err != nil {
		t.Errorf("loaded composition invalid: %v", err)
	}

	older, err := s.LoadSave("gig", saves[1].Filename)
	if err != nil || older.Name != "Demo Set" {
		t.Errorf("LoadSave older = %q, %v", older.Name, err)
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Load("nothing"); !errors.Is(err, ErrNoSaves) {
		t.Errorf("Load missing = %v, want ErrNoSaves", err)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	c := launch.Demo("bad")
	c.ActiveBank = "nope"
	if err := s.Save(c); !errors.Is(err, launch.ErrValidation) {
		t.Errorf("Save invalid = %v, want ErrValidation", err)
	}
}

func TestLoadRejectsCorrupt(t *testing.T) {
	s, _ := newTestStore(t)
	dir := filepath.Join(s.root, "broken")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "2026-01-01_00-00-00.yaml"), []byte("banks: [unclosed"), 0644)
	if _, err := s.Load("broken"); err == nil {
		t.Error("Load accepted corrupt yaml")
	}
}

func TestListRenameDelete(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save(launch.Demo("b-set"))
	s.Save(launch.Demo("a-set"))

	ids, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "a-set" {
		t.Errorf("List = %v, want sorted [a-set b-set]", ids)
	}

	saves, _ := s.ListSaves("a-set")
	renamed, err := s.RenameSave("a-set", saves[0].Filename, "final mix")
	if err != nil {
		t.Fatalf("RenameSave: %v", err)
	}
	if renamed != "2026-03-01_12-00-00_final-mix.yaml" {
		t.Errorf("renamed = %q", renamed)
	}
	if err := s.DeleteSave("a-set", renamed); err != nil {
		t.Errorf("DeleteSave: %v", err)
	}
	if err := s.Delete("b-set"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	ids, _ = s.List()
	if len(ids) != 1 {
		t.Errorf("List after delete = %v", ids)
	}
}

func TestParseSaveName(t *testing.T) {
	if _, ok := parseSaveName("notes.yaml"); ok {
		t.Error("parsed non-timestamped file")
	}
	info, ok := parseSaveName("2026-02-03_04-05-06_live.yaml")
	if !ok || info.Name != "live" || info.Timestamp.Day() != 3 {
		t.Errorf("parseSaveName = %+v, %v", info, ok)
	}
}
