package search

import (
	"context"
)

// HybridSearch answers from the local cache when it holds the namespace and
// asks the vector index only for namespaces the cache does not know.
type HybridSearch struct {
	keyword *KeywordSearch
	vector  *VectorSearch
}

func (s *HybridSearch) Search(ctx context.Context, req Request) (*Response, error) {
	req = Normalize(req)

	if s.keyword.Serves(req.Namespace) {
		return s.keyword.Search(ctx, req)
	}
	if s.vector.Serves(req.Namespace) {
		return s.vector.Search(ctx, req)
	}

	return nil, s.missing(req.Namespace)
}

func (s *HybridSearch) missing(namespace string) error {
	c := s.keyword.corpus()
	if c == nil {
		return ErrCorpusNotLoaded
	}
	return &NamespaceError{Namespace: namespace, Available: c.Namespaces()}
}

// VectorFirstSearch prefers the vector index and falls back to keyword
// scoring when the index fails or finds nothing usable.
type VectorFirstSearch struct {
	vector  *VectorSearch
	keyword *KeywordSearch
}

func (s *VectorFirstSearch) Search(ctx context.Context, req Request) (*Response, error) {
	req = Normalize(req)

	var (
		resp *Response
		err  error
	)
	if s.vector.Serves(req.Namespace) {
		resp, err = s.vector.Search(ctx, req)
		if err == nil && len(resp.Results) > 0 {
			return resp, nil
		}
	}

	if s.keyword.Serves(req.Namespace) {
		return s.keyword.Search(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp, nil
	}

	h := HybridSearch{keyword: s.keyword}
	return nil, h.missing(req.Namespace)
}
