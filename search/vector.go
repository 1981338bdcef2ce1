package search

import (
	"context"
	"fmt"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

// VectorSearch asks the vector index for nearest chunks and, where the chunk
// is also cached locally, returns the cached content and metadata.
type VectorSearch struct {
	index    VectorIndex
	store    *corpus.Store
	minScore float64
}

func NewVectorSearch(index VectorIndex, store *corpus.Store, minScore float64) *VectorSearch {
	return &VectorSearch{index: index, store: store, minScore: minScore}
}

// Serves reports whether the index has a collection for the namespace.
func (s *VectorSearch) Serves(namespace string) bool {
	return s != nil && s.index != nil && s.index.Has(namespace)
}

// Search returns an empty response, not an error, when the index answered but
// nothing cleared the minimum score.
func (s *VectorSearch) Search(ctx context.Context, req Request) (*Response, error) {
	req = Normalize(req)
	if !s.Serves(req.Namespace) {
		return nil, fmt.Errorf("%w: %s", ErrVectorUnavailable, req.Namespace)
	}

	hits, err := s.index.Retrieve(ctx, req.Namespace, req.Query, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVectorUnavailable, err)
	}

	var cached *corpus.Corpus
	if s.store != nil {
		cached = s.store.Get()
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		score := float64(h.Score)
		if score < s.minScore {
			continue
		}

		if c, ok := cached.Lookup(req.Namespace, h.ID); ok {
			results = append(results, fromChunk(c, score))
			continue
		}
		if h.Text == "" {
			continue
		}
		results = append(results, Result{
			ID:      h.ID,
			Content: h.Text,
			Metadata: ResultMetadata{
				SourceFile: h.File,
				Framework:  h.Framework,
				Category:   h.Category,
				Section:    h.Section,
				WordCount:  corpus.CountWords(h.Text),
			},
			Score: score,
		})
	}

	if len(results) > req.TopK {
		results = results[:req.TopK]
	}

	return &Response{Results: results, Method: MethodVector}, nil
}
