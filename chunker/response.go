package chunker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/llmjson"
	"github.com/gamma-omg/mgmt-knowledge/readers"
)

type documentAnalysis struct {
	MainFramework string   `json:"main_framework"`
	Category      string   `json:"category"`
	KeyTopics     []string `json:"key_topics"`
}

type segmentMetadata struct {
	Framework string   `json:"framework"`
	Category  string   `json:"category"`
	Section   string   `json:"section"`
	Keywords  []string `json:"keywords"`
	Language  string   `json:"language"`
	ChunkType string   `json:"chunk_type"`
}

type segment struct {
	ChunkID  json.RawMessage `json:"chunk_id"`
	Content  string          `json:"content"`
	Metadata segmentMetadata `json:"metadata"`
}

type segmentation struct {
	Analysis documentAnalysis `json:"document_analysis"`
	Chunks   []segment        `json:"chunks"`
}

// parseSegmentation converts a model reply into chunks for doc.
func parseSegmentation(reply string, doc readers.RawDocument, maxChunks int) ([]corpus.Chunk, error) {
	var s segmentation
	if err := llmjson.Unmarshal(reply, &s); err != nil {
		return nil, err
	}
	if len(s.Chunks) == 0 {
		return nil, ErrNoSegments
	}
	if maxChunks > 0 && len(s.Chunks) > maxChunks {
		s.Chunks = s.Chunks[:maxChunks]
	}

	chunks := make([]corpus.Chunk, 0, len(s.Chunks))
	seen := make(map[string]struct{}, len(s.Chunks))

	for i, seg := range s.Chunks {
		content := strings.TrimSpace(seg.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: segment %d", ErrEmptySegment, i)
		}

		id := fmt.Sprintf("%s_%s", doc.Filename, segmentID(seg.ChunkID, i))
		if _, dup := seen[id]; dup {
			id = fmt.Sprintf("%s_%d", id, i)
		}
		seen[id] = struct{}{}

		meta := corpus.ChunkMetadata{
			SourceFile: doc.Filename,
			SourcePath: doc.Path,
			Framework:  firstNonEmpty(seg.Metadata.Framework, s.Analysis.MainFramework),
			Category:   firstNonEmpty(seg.Metadata.Category, s.Analysis.Category),
			Section:    seg.Metadata.Section,
			Keywords:   cleanKeywords(seg.Metadata.Keywords),
			Language:   corpus.ParseLanguage(seg.Metadata.Language),
			ChunkType:  corpus.ParseChunkType(seg.Metadata.ChunkType),
			ChunkIndex: i,
		}

		chunks = append(chunks, corpus.NewChunk(id, content, meta))
	}

	return chunks, nil
}

// segmentID renders chunk_id whether the model sent a string or a number,
// falling back to the position when it sent nothing usable.
func segmentID(raw json.RawMessage, i int) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return strconv.Itoa(i)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return strconv.Itoa(i)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return strconv.Itoa(i)
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
