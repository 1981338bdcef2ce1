// Package search answers queries against a namespace with a configurable
// strategy: keyword scoring over the local corpus, vector search, or both.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/docstore"
	"github.com/gamma-omg/mgmt-knowledge/scoring"
)

var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrCorpusNotLoaded   = errors.New("knowledge base not loaded")
	ErrVectorUnavailable = errors.New("vector search unavailable")
	ErrUnknownMode       = errors.New("unknown search strategy")
)

type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

type Method string

const (
	MethodKeyword Method = "keyword"
	MethodVector  Method = "vector"
)

type Request struct {
	Query     string
	TopK      int
	Namespace string
}

type ResultMetadata struct {
	SourceFile string `json:"source_file"`
	Framework  string `json:"framework"`
	Category   string `json:"category"`
	Section    string `json:"section"`
	WordCount  int    `json:"word_count"`
}

type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata ResultMetadata `json:"metadata"`
	Score    float64        `json:"score"`
}

type Response struct {
	Results []Result
	Method  Method
}

type Strategy interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// VectorIndex is a nearest-neighbour index partitioned by namespace.
type VectorIndex interface {
	Has(namespace string) bool
	Retrieve(ctx context.Context, namespace, query string, n int) ([]docstore.SearchResult, error)
}

// NamespaceError lists the namespaces that could have answered.
type NamespaceError struct {
	Namespace string
	Available []string
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("namespace %q not found in cache and vector search unavailable; cached namespaces: [%s]",
		e.Namespace, strings.Join(e.Available, ", "))
}

func (e *NamespaceError) Unwrap() error {
	return ErrNamespaceNotFound
}

type Deps struct {
	Store          *corpus.Store
	Index          VectorIndex
	MinVectorScore float64
}

// New builds the strategy for mode. Vector and hybrid modes work without an
// index and then behave like keyword search.
func New(mode Mode, deps Deps) (Strategy, error) {
	kw := &KeywordSearch{store: deps.Store}

	var vec *VectorSearch
	if deps.Index != nil {
		vec = &VectorSearch{index: deps.Index, store: deps.Store, minScore: deps.MinVectorScore}
	}

	switch mode {
	case ModeKeyword:
		return kw, nil
	case ModeVector:
		return &VectorFirstSearch{vector: vec, keyword: kw}, nil
	case ModeHybrid, "":
		return &HybridSearch{keyword: kw, vector: vec}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func fromChunk(c corpus.Chunk, score float64) Result {
	return Result{
		ID:      c.ID,
		Content: c.Content,
		Metadata: ResultMetadata{
			SourceFile: c.Metadata.SourceFile,
			Framework:  c.Metadata.Framework,
			Category:   c.Metadata.Category,
			Section:    c.Metadata.Section,
			WordCount:  c.WordCount,
		},
		Score: score,
	}
}

// Normalize clamps TopK into [1, scoring.MaxTopK] and fills the default
// namespace.
func Normalize(req Request) Request {
	req.TopK = scoring.ClampTopK(req.TopK, scoring.DefaultTopK, scoring.MaxTopK)
	if req.Namespace == "" {
		req.Namespace = corpus.DefaultNamespace
	}
	return req
}
