package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

var ErrUnknownNamespace = errors.New("namespace has no vector collection")

const (
	ChunkID    = "chunk_id"
	SourceFile = "source_file"
	Framework  = "framework"
	Category   = "category"
	Section    = "section"
)

const DefaultCollectionPrefix = "knowledge-"

type ChromaStoreConfig struct {
	BaseURL          string
	EmbeddingFunc    embeddings.EmbeddingFunction
	Results          int
	RequestSize      int
	Reset            bool
	CollectionPrefix string
	Namespaces       []string
}

// ChromaStore keeps one chroma collection per namespace.
type ChromaStore struct {
	results     int
	requestSize int
	cols        map[string]chroma.Collection
}

func NewChromaStore(ctx context.Context, cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}

	cols := make(map[string]chroma.Collection, len(cfg.Namespaces))
	for _, ns := range cfg.Namespaces {
		name := prefix + ns
		if cfg.Reset {
			// a missing collection is fine here
			_ = client.DeleteCollection(ctx, name)
		}

		col, err := client.GetOrCreateCollection(ctx, name, chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
		if err != nil {
			return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
		}
		cols[ns] = col
	}

	return NewChromaStoreWithCollections(cols, cfg.Results, cfg.RequestSize), nil
}

func NewChromaStoreWithCollections(cols map[string]chroma.Collection, results, requestSize int) *ChromaStore {
	if results <= 0 {
		results = 5
	}
	return &ChromaStore{
		results:     results,
		requestSize: requestSize,
		cols:        cols,
	}
}

func (ds *ChromaStore) Has(namespace string) bool {
	_, ok := ds.cols[namespace]
	return ok
}

func (ds *ChromaStore) Namespaces() []string {
	names := make([]string, 0, len(ds.cols))
	for ns := range ds.cols {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Index uploads chunks to the namespace collection, splitting the upload into
// requests of at most requestSize content bytes.
func (ds *ChromaStore) Index(ctx context.Context, namespace string, chunks []corpus.Chunk) error {
	col, err := ds.collection(namespace)
	if err != nil {
		return err
	}

	for _, bucket := range buckets(chunks, ds.requestSize) {
		texts := make([]string, 0, len(bucket))
		metas := make([]chroma.DocumentMetadata, 0, len(bucket))
		for _, c := range bucket {
			texts = append(texts, c.Content)
			metas = append(metas, chunkMetadata(c))
		}

		err := col.Add(ctx,
			chroma.WithTexts(texts...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to index %d chunks into %s: %w", len(bucket), namespace, err)
		}
	}

	return nil
}

func (ds *ChromaStore) Retrieve(ctx context.Context, namespace, query string, n int) ([]SearchResult, error) {
	col, err := ds.collection(namespace)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = ds.results
	}

	r, err := col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve texts: %w", err)
	}

	return collect(r), nil
}

// Forget removes every chunk of a source file from the namespace collection.
func (ds *ChromaStore) Forget(ctx context.Context, namespace, sourceFile string) error {
	col, err := ds.collection(namespace)
	if err != nil {
		return err
	}

	err = col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(SourceFile, sourceFile)))
	if err != nil {
		return fmt.Errorf("failed to forget doc %s: %w", sourceFile, err)
	}

	return nil
}

func (ds *ChromaStore) collection(namespace string) (chroma.Collection, error) {
	col, ok := ds.cols[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}
	return col, nil
}

func chunkMetadata(c corpus.Chunk) chroma.DocumentMetadata {
	return chroma.NewDocumentMetadata(
		chroma.NewStringAttribute(ChunkID, c.ID),
		chroma.NewStringAttribute(SourceFile, c.Metadata.SourceFile),
		chroma.NewStringAttribute(Framework, c.Metadata.Framework),
		chroma.NewStringAttribute(Category, c.Metadata.Category),
		chroma.NewStringAttribute(Section, c.Metadata.Section),
	)
}

func collect(r chroma.QueryResult) []SearchResult {
	docGroups := r.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return []SearchResult{}
	}

	docs := docGroups[0]
	var metadatas chroma.DocumentMetadatas
	if g := r.GetMetadatasGroups(); len(g) > 0 {
		metadatas = g[0]
	}
	var distances embeddings.Distances
	if g := r.GetDistancesGroups(); len(g) > 0 {
		distances = g[0]
	}

	res := make([]SearchResult, 0, len(docs))
	for i, doc := range docs {
		hit := SearchResult{Text: doc.ContentString()}
		if i < len(metadatas) && metadatas[i] != nil {
			meta := metadatas[i]
			hit.ID, _ = meta.GetString(ChunkID)
			hit.File, _ = meta.GetString(SourceFile)
			hit.Framework, _ = meta.GetString(Framework)
			hit.Category, _ = meta.GetString(Category)
			hit.Section, _ = meta.GetString(Section)
		}
		if i < len(distances) {
			hit.Score = 1 - float32(distances[i])
		}
		res = append(res, hit)
	}

	return res
}

func buckets(chunks []corpus.Chunk, requestSize int) [][]corpus.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	if requestSize <= 0 {
		return [][]corpus.Chunk{chunks}
	}

	var (
		res  [][]corpus.Chunk
		cur  []corpus.Chunk
		size int
	)
	for _, c := range chunks {
		l := len(c.Content)
		if len(cur) > 0 && size+l > requestSize {
			res = append(res, cur)
			cur, size = nil, 0
		}
		cur = append(cur, c)
		size += l
	}
	res = append(res, cur)

	return res
}
