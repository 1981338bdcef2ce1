package docstore

import (
	"context"
	"testing"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocument struct {
	chroma.Document
	text string
}

func (d fakeDocument) ContentString() string { return d.text }

type fakeQueryResult struct {
	chroma.QueryResult
	docs      []chroma.Documents
	metadatas []chroma.DocumentMetadatas
	distances []embeddings.Distances
}

func (r *fakeQueryResult) GetDocumentsGroups() []chroma.Documents { return r.docs }
func (r *fakeQueryResult) GetMetadatasGroups() []chroma.DocumentMetadatas { return r.metadatas }
func (r *fakeQueryResult) GetDistancesGroups() []embeddings.Distances { return r.distances }

func Test_collect(t *testing.T) {
	c := corpus.Chunk{
		ID:      "sbi.pdf_intro",
		Content: "A day on Venus is longer than its year.",
		Metadata: corpus.ChunkMetadata{
			SourceFile: "sbi.pdf",
			Framework:  "SBI Framework",
			Category:   "Feedback",
			Section:    "Intro",
		},
	}

	qr := &fakeQueryResult{
		docs:      []chroma.Documents{{fakeDocument{text: c.Content}, fakeDocument{text: "orphan"}}},
		metadatas: []chroma.DocumentMetadatas{{chunkMetadata(c)}},
		distances: []embeddings.Distances{{embeddings.Distance(0.25), embeddings.Distance(0.5)}},
	}

	res := collect(qr)
	require.Len(t, res, 2)
	assert.Equal(t, SearchResult{
		ID:        "sbi.pdf_intro",
		Text:      c.Content,
		File:      "sbi.pdf",
		Framework: "SBI Framework",
		Category:  "Feedback",
		Section:   "Intro",
		Score:     0.75,
	}, res[0])
	assert.Equal(t, SearchResult{Text: "orphan", Score: 0.5}, res[1])
}

func Test_collect_Empty(t *testing.T) {
	assert.Empty(t, collect(&fakeQueryResult{}))
}

func Test_buckets(t *testing.T) {
	chunks := make([]corpus.Chunk, 0, 6)
	for _, s := range []string{"Bananas", "are", "berries", "but", "strawberries", "aren't"} {
		chunks = append(chunks, corpus.Chunk{Content: s})
	}

	res := buckets(chunks, 13)
	sizes := make([]int, 0, len(res))
	for _, b := range res {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{2, 2, 1, 1}, sizes)

	assert.Len(t, buckets(chunks, 0), 1)
	assert.Nil(t, buckets(nil, 10))
}

func Test_UnknownNamespace(t *testing.T) {
	store := NewChromaStoreWithCollections(map[string]chroma.Collection{}, 0, 0)
	ctx := context.Background()

	_, err := store.Retrieve(ctx, "tenant-x", "query", 3)
	assert.ErrorIs(t, err, ErrUnknownNamespace)
	assert.ErrorIs(t, store.Index(ctx, "tenant-x", nil), ErrUnknownNamespace)
	assert.ErrorIs(t, store.Forget(ctx, "tenant-x", "a.pdf"), ErrUnknownNamespace)
	assert.False(t, store.Has("tenant-x"))
	assert.Empty(t, store.Namespaces())
}
