package readers

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenReader struct{}

func (r *brokenReader) CanRead(path string) bool { return filepath.Ext(path) == ".docx" }

func (r *brokenReader) ReadText(path string) (string, error) {
	return "", errors.New("corrupt archive")
}

func testExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)),
		&TxtFileReader{}, &MarkdownFileReader{}, &brokenReader{})
}

func Test_Extractor_Extract(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "one two three")

	doc := testExtractor().Extract(path)
	assert.True(t, doc.OK())
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, ".txt", doc.Extension)
	assert.Equal(t, 3, doc.WordCount)
	assert.Equal(t, 13, doc.CharCount)
	assert.Equal(t, int64(13), doc.SizeBytes)
}

func Test_Extractor_ExtractFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "deck.docx", "zip")

	doc := testExtractor().Extract(path)
	assert.Equal(t, StatusError, doc.ProcessingStatus)
	assert.Equal(t, "corrupt archive", doc.ErrorMessage)
	assert.Empty(t, doc.Content)
}

func Test_Extractor_Unsupported(t *testing.T) {
	doc := testExtractor().Extract("image.png")
	assert.False(t, doc.OK())
	assert.Contains(t, doc.ErrorMessage, "unsupported file type")
}

func Test_Extractor_ExtractDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "bravo")
	writeFile(t, dir, "nested/a.md", "# alpha")
	writeFile(t, dir, "c.docx", "zip")
	writeFile(t, dir, "skip.png", "png")

	docs, err := testExtractor().ExtractDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Filename)
	}
	assert.Equal(t, []string{"b.txt", "c.docx", "a.md"}, names)
	assert.Equal(t, "alpha", docs[2].Content)

	summary := Summarize(docs)
	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.TotalWords)
	assert.Equal(t, map[string]int{".txt": 1, ".md": 1, ".docx": 1}, summary.FileTypes)
	assert.Equal(t, []string{"c.docx"}, summary.FailedFiles)
}

func Test_Extractor_ExtractDir_Missing(t *testing.T) {
	_, err := testExtractor().ExtractDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to walk materials dir"))
}
