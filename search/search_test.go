package search

import (
	"context"
	"errors"
	"testing"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Has(namespace string) bool {
	return m.Called(namespace).Bool(0)
}

func (m *mockIndex) Retrieve(ctx context.Context, namespace, query string, n int) ([]docstore.SearchResult, error) {
	args := m.Called(ctx, namespace, query, n)
	res, _ := args.Get(0).([]docstore.SearchResult)
	return res, args.Error(1)
}

func testStore() *corpus.Store {
	return corpus.NewStore(corpus.Build([]corpus.Chunk{
		corpus.NewChunk("sbi_0", "Use the SBI model: situation, behavior, impact when giving feedback.",
			corpus.ChunkMetadata{SourceFile: "sbi.pdf", Framework: "SBI Framework", Category: "Feedback"}),
		corpus.NewChunk("grow_0", "The GROW model structures a coaching conversation.",
			corpus.ChunkMetadata{SourceFile: "grow.docx", Framework: "GROW Model", Category: "Coaching"}),
	}, ""))
}

func Test_New(t *testing.T) {
	cases := []struct {
		mode Mode
		want Strategy
	}{
		{ModeKeyword, &KeywordSearch{}},
		{ModeVector, &VectorFirstSearch{}},
		{ModeHybrid, &HybridSearch{}},
		{"", &HybridSearch{}},
	}

	for _, c := range cases {
		t.Run(string(c.mode), func(t *testing.T) {
			s, err := New(c.mode, Deps{Store: testStore()})
			require.NoError(t, err)
			assert.IsType(t, c.want, s)
		})
	}

	_, err := New("fuzzy", Deps{})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func Test_KeywordSearch(t *testing.T) {
	s := NewKeywordSearch(testStore())

	resp, err := s.Search(context.Background(), Request{Query: "feedback"})
	require.NoError(t, err)
	assert.Equal(t, MethodKeyword, resp.Method)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "sbi_0", resp.Results[0].ID)
	assert.Equal(t, "sbi.pdf", resp.Results[0].Metadata.SourceFile)
	assert.Greater(t, resp.Results[0].Score, 0.0)
}

func Test_KeywordSearch_NoMatches(t *testing.T) {
	resp, err := NewKeywordSearch(testStore()).Search(context.Background(), Request{Query: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func Test_KeywordSearch_Errors(t *testing.T) {
	_, err := NewKeywordSearch(corpus.NewStore(nil)).Search(context.Background(), Request{Query: "x"})
	assert.ErrorIs(t, err, ErrCorpusNotLoaded)

	_, err = NewKeywordSearch(testStore()).Search(context.Background(), Request{Query: "x", Namespace: "other"})
	assert.ErrorIs(t, err, ErrNamespaceNotFound)

	var nsErr *NamespaceError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "other", nsErr.Namespace)
	assert.Equal(t, []string{corpus.DefaultNamespace}, nsErr.Available)
}

func Test_VectorSearch(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Has", corpus.DefaultNamespace).Return(true)
	idx.On("Retrieve", mock.Anything, corpus.DefaultNamespace, "coaching", 2).Return([]docstore.SearchResult{
		{ID: "grow_0", Text: "stale", Score: 0.9},
		{ID: "remote_1", Text: "only in the index", File: "remote.md", Score: 0.8},
		{ID: "remote_2", Text: "", Score: 0.7},
		{ID: "remote_3", Text: "weak match", Score: 0.1},
	}, nil)

	s := NewVectorSearch(idx, testStore(), 0.3)
	resp, err := s.Search(context.Background(), Request{Query: "coaching", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, MethodVector, resp.Method)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "grow_0", resp.Results[0].ID)
	assert.Equal(t, "The GROW model structures a coaching conversation.", resp.Results[0].Content)
	assert.InDelta(t, 0.9, resp.Results[0].Score, 1e-6)
	assert.Equal(t, "remote.md", resp.Results[1].Metadata.SourceFile)
	assert.Equal(t, 4, resp.Results[1].Metadata.WordCount)
	idx.AssertExpectations(t)
}

func Test_VectorSearch_Unavailable(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Has", "other").Return(false)

	_, err := NewVectorSearch(idx, testStore(), 0).Search(context.Background(), Request{Query: "x", Namespace: "other"})
	assert.ErrorIs(t, err, ErrVectorUnavailable)

	var nilSearch *VectorSearch
	assert.False(t, nilSearch.Serves("other"))
}

func Test_HybridSearch(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Has", "tenant-b").Return(true)
	idx.On("Has", "tenant-c").Return(false)
	idx.On("Retrieve", mock.Anything, "tenant-b", "feedback", 5).Return([]docstore.SearchResult{
		{ID: "b_0", Text: "tenant b feedback notes", Score: 0.6},
	}, nil)

	s, err := New(ModeHybrid, Deps{Store: testStore(), Index: idx})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("cached", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{Query: "feedback"})
		require.NoError(t, err)
		assert.Equal(t, MethodKeyword, resp.Method)
		idx.AssertNotCalled(t, "Has", corpus.DefaultNamespace)
	})

	t.Run("vector_only", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{Query: "feedback", Namespace: "tenant-b"})
		require.NoError(t, err)
		assert.Equal(t, MethodVector, resp.Method)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "b_0", resp.Results[0].ID)
	})

	t.Run("nowhere", func(t *testing.T) {
		_, err := s.Search(ctx, Request{Query: "feedback", Namespace: "tenant-c"})
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
	})
}

func Test_HybridSearch_NoCorpus(t *testing.T) {
	s, err := New(ModeHybrid, Deps{Store: corpus.NewStore(nil)})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Request{Query: "feedback"})
	assert.ErrorIs(t, err, ErrCorpusNotLoaded)
}

func Test_VectorFirstSearch_FallsBack(t *testing.T) {
	cases := []struct {
		name string
		hits []docstore.SearchResult
		err  error
	}{
		{"error", nil, errors.New("connection refused")},
		{"empty", []docstore.SearchResult{}, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			idx := &mockIndex{}
			idx.On("Has", corpus.DefaultNamespace).Return(true)
			idx.On("Retrieve", mock.Anything, corpus.DefaultNamespace, "feedback", 5).Return(c.hits, c.err)

			s, err := New(ModeVector, Deps{Store: testStore(), Index: idx})
			require.NoError(t, err)

			resp, err := s.Search(context.Background(), Request{Query: "feedback"})
			require.NoError(t, err)
			assert.Equal(t, MethodKeyword, resp.Method)
			assert.Equal(t, "sbi_0", resp.Results[0].ID)
		})
	}
}

func Test_VectorFirstSearch_PrefersVector(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Has", corpus.DefaultNamespace).Return(true)
	idx.On("Retrieve", mock.Anything, corpus.DefaultNamespace, "feedback", 5).Return([]docstore.SearchResult{
		{ID: "sbi_0", Score: 0.7},
	}, nil)

	s, err := New(ModeVector, Deps{Store: testStore(), Index: idx})
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "feedback"})
	require.NoError(t, err)
	assert.Equal(t, MethodVector, resp.Method)
	assert.Contains(t, resp.Results[0].Content, "SBI model")
}

func Test_VectorFirstSearch_ErrorWithoutCache(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Has", "tenant-b").Return(true)
	idx.On("Retrieve", mock.Anything, "tenant-b", "x", 5).Return(nil, errors.New("boom"))

	s, err := New(ModeVector, Deps{Store: testStore(), Index: idx})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Request{Query: "x", Namespace: "tenant-b"})
	assert.ErrorIs(t, err, ErrVectorUnavailable)
}
