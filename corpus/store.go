package corpus

import "sync/atomic"

// Store publishes the current corpus. A reload builds a complete Corpus first
// and then swaps the pointer, so readers see either the old or the new one.
type Store struct {
	current atomic.Pointer[Corpus]
}

func NewStore(c *Corpus) *Store {
	s := &Store{}
	if c != nil {
		s.current.Store(c)
	}
	return s
}

// Get returns the published corpus, or nil before the first load.
func (s *Store) Get() *Corpus {
	return s.current.Load()
}

// Swap publishes c and returns the previous corpus.
func (s *Store) Swap(c *Corpus) *Corpus {
	return s.current.Swap(c)
}

func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// LoadFile reads path, builds a corpus and publishes it.
func (s *Store) LoadFile(path, defaultNamespace string) (*Corpus, error) {
	chunks, err := Load(path)
	if err != nil {
		return nil, err
	}

	c := Build(chunks, defaultNamespace)
	s.Swap(c)
	return c, nil
}
