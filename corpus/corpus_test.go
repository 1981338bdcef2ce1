package corpus

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewChunk_DerivesCounts(t *testing.T) {
	c := NewChunk("a_0", "CONTEXT: a.txt\n\nשלום world", ChunkMetadata{SourceFile: "a.txt"})

	assert.Equal(t, 4, c.WordCount)
	assert.Equal(t, len([]rune(c.Content)), c.CharCount)
	assert.Equal(t, UnknownFramework, c.Metadata.Framework)
	assert.Equal(t, GeneralCategory, c.Metadata.Category)
	assert.Equal(t, LanguageUnknown, c.Metadata.Language)
	assert.Equal(t, []string{}, c.Metadata.Keywords)
}

func Test_ParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnglish, ParseLanguage("English"))
	assert.Equal(t, LanguageHebrew, ParseLanguage(" hebrew "))
	assert.Equal(t, LanguageUnknown, ParseLanguage("english or hebrew"))
}

func Test_ParseChunkType(t *testing.T) {
	assert.Equal(t, ChunkTypeSteps, ParseChunkType("Steps"))
	assert.Equal(t, ChunkTypeFrameworkExplanation, ParseChunkType("overview"))
}

func Test_Build_GroupsByNamespace(t *testing.T) {
	c := Build([]Chunk{
		{ID: "1"},
		{ID: "2", Namespace: "tenant-a"},
		{ID: "3"},
	}, "")

	assert.Equal(t, []string{"management-knowledge", "tenant-a"}, c.Namespaces())

	chunks, ok := c.Chunks(DefaultNamespace)
	require.True(t, ok)
	assert.Equal(t, "1", chunks[0].ID)
	assert.Equal(t, "3", chunks[1].ID)

	_, ok = c.Chunks("missing")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Size())
}

func Test_Stats(t *testing.T) {
	c := Build([]Chunk{{ID: "1", WordCount: 10}, {ID: "2", WordCount: 5}}, "ns")
	assert.Equal(t, map[string]NamespaceStats{"ns": {ChunkCount: 2, TotalWords: 15}}, c.Stats())
}

func Test_NilCorpus(t *testing.T) {
	var c *Corpus
	assert.False(t, c.Has("x"))
	assert.Nil(t, c.Namespaces())
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Stats())
}

func Test_WriteLoad(t *testing.T) {
	chunks := []Chunk{
		NewChunk("doc.txt_0", "CONTEXT: doc - Part 1\n\nhello world", ChunkMetadata{SourceFile: "doc.txt"}),
		NewChunk("doc.txt_1", "CONTEXT: doc - Part 2\n\nbye world", ChunkMetadata{SourceFile: "doc.txt", ChunkIndex: 1}),
	}

	for _, name := range []string{"chunks_data.json", "chunks_data.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, Write(path, chunks, ChromaFormat))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, chunks, loaded)
		})
	}
}

func Test_Decode_RejectsDuplicateIDs(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"chunks":[{"id":"a"},{"id":"a"}]}`))
	assert.ErrorIs(t, err, ErrInvalidCorpus)

	_, err = Decode(strings.NewReader(`{"chunks":[{"content":"x"}]}`))
	assert.ErrorIs(t, err, ErrInvalidCorpus)
}

func Test_Decode_SameIDInDifferentNamespaces(t *testing.T) {
	chunks, err := Decode(strings.NewReader(`{"chunks":[{"id":"a"},{"id":"a","namespace":"b"}]}`))
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func Test_LoadBase64(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"chunks":[{"id":"x","content":"feedback"}]}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	chunks, err := LoadBase64(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "feedback", chunks[0].Content)

	_, err = LoadBase64("not base64!")
	assert.Error(t, err)
}

func Test_Store_Swap(t *testing.T) {
	s := NewStore(nil)
	assert.False(t, s.Loaded())
	assert.Nil(t, s.Get())

	first := Build([]Chunk{{ID: "1"}}, "")
	second := Build([]Chunk{{ID: "2"}, {ID: "3"}}, "")
	s.Swap(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				size := s.Get().Size()
				assert.True(t, size == 1 || size == 2)
			}
		}()
	}
	prev := s.Swap(second)
	wg.Wait()

	assert.Same(t, first, prev)
	assert.Equal(t, 2, s.Get().Size())
}

func Test_Store_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chunks":[{"id":"x"}]}`), 0o644))

	s := NewStore(nil)
	c, err := s.LoadFile(path, "ns")
	require.NoError(t, err)
	assert.True(t, c.Has("ns"))
	assert.Same(t, c, s.Get())

	_, err = s.LoadFile(filepath.Join(t.TempDir(), "missing.json"), "ns")
	assert.Error(t, err)
	assert.Same(t, c, s.Get())
}

func Test_Lookup(t *testing.T) {
	c := Build([]Chunk{{ID: "a", Content: "first"}, {ID: "b", Namespace: "t", Content: "second"}}, "")

	ch, ok := c.Lookup(DefaultNamespace, "a")
	require.True(t, ok)
	assert.Equal(t, "first", ch.Content)

	_, ok = c.Lookup(DefaultNamespace, "b")
	assert.False(t, ok)

	ch, ok = c.Lookup("t", "b")
	require.True(t, ok)
	assert.Equal(t, "second", ch.Content)
}
