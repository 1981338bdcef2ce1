package corpus

import (
	"sort"
	"time"
)

// Corpus maps namespaces to their ordered chunks. It is never mutated after
// Build returns, so it can be shared between goroutines without locking.
type Corpus struct {
	namespaces map[string][]Chunk
	byID       map[string]map[string]int
	loadedAt   time.Time
}

type NamespaceStats struct {
	ChunkCount int `json:"chunk_count"`
	TotalWords int `json:"total_words"`
}

// Build groups chunks by namespace, preserving their order. Chunks without a
// namespace are placed in defaultNamespace.
func Build(chunks []Chunk, defaultNamespace string) *Corpus {
	if defaultNamespace == "" {
		defaultNamespace = DefaultNamespace
	}

	c := &Corpus{
		namespaces: make(map[string][]Chunk),
		byID:       make(map[string]map[string]int),
		loadedAt:   time.Now(),
	}
	for _, ch := range chunks {
		ns := ch.Namespace
		if ns == "" {
			ns = defaultNamespace
		}
		if c.byID[ns] == nil {
			c.byID[ns] = make(map[string]int)
		}
		c.byID[ns][ch.ID] = len(c.namespaces[ns])
		c.namespaces[ns] = append(c.namespaces[ns], ch)
	}

	return c
}

// Chunks returns the chunks of a namespace and whether the namespace exists.
func (c *Corpus) Chunks(namespace string) ([]Chunk, bool) {
	if c == nil {
		return nil, false
	}
	chunks, ok := c.namespaces[namespace]
	return chunks, ok
}

// Lookup finds a chunk by id within a namespace.
func (c *Corpus) Lookup(namespace, id string) (Chunk, bool) {
	if c == nil {
		return Chunk{}, false
	}
	i, ok := c.byID[namespace][id]
	if !ok {
		return Chunk{}, false
	}
	return c.namespaces[namespace][i], true
}

func (c *Corpus) Has(namespace string) bool {
	_, ok := c.Chunks(namespace)
	return ok
}

func (c *Corpus) Namespaces() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.namespaces))
	for ns := range c.namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// All returns every chunk, namespaces in name order.
func (c *Corpus) All() []Chunk {
	var all []Chunk
	for _, ns := range c.Namespaces() {
		all = append(all, c.namespaces[ns]...)
	}
	return all
}

func (c *Corpus) Size() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, chunks := range c.namespaces {
		n += len(chunks)
	}
	return n
}

func (c *Corpus) Stats() map[string]NamespaceStats {
	stats := make(map[string]NamespaceStats)
	if c == nil {
		return stats
	}
	for ns, chunks := range c.namespaces {
		s := NamespaceStats{ChunkCount: len(chunks)}
		for _, ch := range chunks {
			s.TotalWords += ch.WordCount
		}
		stats[ns] = s
	}
	return stats
}

func (c *Corpus) LoadedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.loadedAt
}
