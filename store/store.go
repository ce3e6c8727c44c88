package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"gopkg.in/yaml.v3"

	"go-launcher/debug"
	"go-launcher/launch"
)

const (
	timestampLayout = "2006-01-02_15-04-05"
	saveExt         = ".yaml"
)

// ErrNoSaves is returned when a composition has never been saved
var ErrNoSaves = fault.New("no saves")

// SaveInfo represents a saved composition file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// FileStore keeps every composition in its own folder of timestamped YAML
// saves. Loading without a filename picks the newest.
type FileStore struct {
	root string
	now  func() time.Time
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root, now: time.Now}
}

// DefaultRoot returns ~/.config/go-launcher/sets
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-launcher", "sets"), nil
}

func (s *FileStore) dir(id string) string {
	return filepath.Join(s.root, sanitizeFilename(id))
}

// List returns all composition ids with a folder
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fault.Wrap(err, fmsg.With("list sets"))
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListSaves returns timestamped saves for a composition, newest first
func (s *FileStore) ListSaves(id string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.dir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, fault.Wrap(err, fmsg.With("list saves"))
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), saveExt) {
			continue
		}
		info, ok := parseSaveName(entry.Name())
		if ok {
			saves = append(saves, info)
		}
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// parseSaveName reads 2024-01-15_14-30-00.yaml or 2024-01-15_14-30-00_name.yaml
func parseSaveName(filename string) (SaveInfo, bool) {
	base := strings.TrimSuffix(filename, saveExt)
	if len(base) < len(timestampLayout) {
		return SaveInfo{}, false
	}
	ts, err := time.Parse(timestampLayout, base[:len(timestampLayout)])
	if err != nil {
		return SaveInfo{}, false
	}
	name := ""
	if rest := base[len(timestampLayout):]; len(rest) > 1 && rest[0] == '_' {
		name = rest[1:]
	}
	return SaveInfo{Filename: filename, Name: name, Timestamp: ts}, true
}

// Save implements launch.ConfigStore with an unnamed timestamped save
func (s *FileStore) Save(c launch.Composition) error {
	_, err := s.SaveNamed(c, "")
	return err
}

// SaveNamed writes a new timestamped save and returns its filename
func (s *FileStore) SaveNamed(c launch.Composition, name string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	if c.ID == "" {
		c.ID = "untitled"
	}
	dir := s.dir(c.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fault.Wrap(err, fmsg.With("create set dir"))
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("encode composition"))
	}

	filename := s.now().Format(timestampLayout)
	if name != "" {
		filename += "_" + sanitizeFilename(name)
	}
	filename += saveExt
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fault.Wrap(err, fmsg.WithDesc("write save", "Could not write the save file"))
	}
	debug.Log("store", "saved %s/%s", c.ID, filename)
	return filename, nil
}

// Load implements launch.ConfigStore and returns the newest save
func (s *FileStore) Load(id string) (launch.Composition, error) {
	return s.LoadSave(id, "")
}

// LoadSave loads a specific save, or the newest when filename is empty
func (s *FileStore) LoadSave(id, filename string) (launch.Composition, error) {
	if filename == "" {
		saves, err := s.ListSaves(id)
		if err != nil {
			return launch.Composition{}, err
		}
		if len(saves) == 0 {
			return launch.Composition{}, fault.Wrap(ErrNoSaves,
				fmsg.WithDesc("no saves for "+id, "That set has never been saved"))
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(s.dir(id), filename))
	if err != nil {
		return launch.Composition{}, fault.Wrap(err, fmsg.With("read save"))
	}
	var c launch.Composition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return launch.Composition{}, fault.Wrap(err, fmsg.WithDesc("decode "+filename, "The save file is corrupt"))
	}
	if err := c.Validate(); err != nil {
		return launch.Composition{}, err
	}
	return c, nil
}

// DeleteSave deletes a specific save file
func (s *FileStore) DeleteSave(id, filename string) error {
	return os.Remove(filepath.Join(s.dir(id), filename))
}

// RenameSave changes the name part of a save, keeping its timestamp
func (s *FileStore) RenameSave(id, oldFilename, newName string) (string, error) {
	info, ok := parseSaveName(oldFilename)
	if !ok {
		return "", fault.New("invalid save filename " + oldFilename)
	}
	newFilename := info.Timestamp.Format(timestampLayout)
	if newName != "" {
		newFilename += "_" + sanitizeFilename(newName)
	}
	newFilename += saveExt

	dir := s.dir(id)
	if err := os.Rename(filepath.Join(dir, oldFilename), filepath.Join(dir, newFilename)); err != nil {
		return "", fault.Wrap(err, fmsg.With("rename save"))
	}
	return newFilename, nil
}

// Delete removes a composition and all its saves
func (s *FileStore) Delete(id string) error {
	return os.RemoveAll(s.dir(id))
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(name)
}
