package chunker

import (
	"fmt"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/readers"
)

const DefaultWindowSize = 400

// Fallback segments a document mechanically into non-overlapping windows of
// size words. Word and char counts describe the window text, not the header.
func Fallback(doc readers.RawDocument, size int) []corpus.Chunk {
	if size <= 0 {
		size = DefaultWindowSize
	}

	windows := WordWindows(strings.Fields(doc.Content), size, 0)
	chunks := make([]corpus.Chunk, 0, len(windows))

	for i, words := range windows {
		body := strings.Join(words, " ")
		part := i + 1

		chunks = append(chunks, corpus.Chunk{
			ID:      fmt.Sprintf("%s_fallback_%d", doc.Filename, i),
			Content: fmt.Sprintf("%s%s - Part %d\n\n%s", ContextHeader, doc.Filename, part, body),
			Metadata: corpus.ChunkMetadata{
				SourceFile: doc.Filename,
				SourcePath: doc.Path,
				Framework:  corpus.UnknownFramework,
				Category:   corpus.GeneralCategory,
				Section:    fmt.Sprintf("Part %d", part),
				Keywords:   []string{},
				Language:   corpus.LanguageUnknown,
				ChunkType:  corpus.ChunkTypeFallback,
				ChunkIndex: i,
			},
			WordCount: len(words),
			CharCount: corpus.CountChars(body),
		})
	}

	return chunks
}

// StripHeader returns chunk content without its leading context header line.
func StripHeader(content string) string {
	if !HasHeader(content) {
		return content
	}

	_, body, found := strings.Cut(content, "\n")
	if !found {
		return ""
	}
	return strings.TrimLeft(body, "\n")
}
