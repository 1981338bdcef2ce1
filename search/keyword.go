package search

import (
	"context"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/scoring"
)

// KeywordSearch ranks the cached chunks of a namespace with the hybrid
// relevance scorer.
type KeywordSearch struct {
	store *corpus.Store
}

func NewKeywordSearch(store *corpus.Store) *KeywordSearch {
	return &KeywordSearch{store: store}
}

func (s *KeywordSearch) Search(_ context.Context, req Request) (*Response, error) {
	req = Normalize(req)

	c := s.corpus()
	if c == nil {
		return nil, ErrCorpusNotLoaded
	}

	chunks, ok := c.Chunks(req.Namespace)
	if !ok {
		return nil, &NamespaceError{Namespace: req.Namespace, Available: c.Namespaces()}
	}

	ranked := scoring.Rank(req.Query, chunks, req.TopK)
	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, fromChunk(r.Chunk, r.Score))
	}

	return &Response{Results: results, Method: MethodKeyword}, nil
}

// Serves reports whether the namespace is in the local cache.
func (s *KeywordSearch) Serves(namespace string) bool {
	return s.corpus().Has(namespace)
}

func (s *KeywordSearch) corpus() *corpus.Corpus {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Get()
}
