package launch

// ConfigStore persists compositions. Launch state is never stored.
type ConfigStore interface {
	Load(id string) (Composition, error)
	Save(c Composition) error
}
