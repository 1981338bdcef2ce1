package corpus

import (
	"strings"
	"unicode/utf8"
)

const DefaultNamespace = "management-knowledge"

type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHebrew  Language = "hebrew"
	LanguageUnknown Language = "unknown"
)

func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish
	case LanguageHebrew:
		return LanguageHebrew
	default:
		return LanguageUnknown
	}
}

type ChunkType string

const (
	ChunkTypeFrameworkExplanation ChunkType = "framework_explanation"
	ChunkTypeSteps                ChunkType = "steps"
	ChunkTypeExamples             ChunkType = "examples"
	ChunkTypeGuidelines           ChunkType = "guidelines"
	ChunkTypeFallback             ChunkType = "fallback"
)

// ParseChunkType maps free text produced by a model onto a known chunk type.
// Anything unrecognised is treated as a framework explanation.
func ParseChunkType(s string) ChunkType {
	switch ChunkType(strings.ToLower(strings.TrimSpace(s))) {
	case ChunkTypeSteps:
		return ChunkTypeSteps
	case ChunkTypeExamples:
		return ChunkTypeExamples
	case ChunkTypeGuidelines:
		return ChunkTypeGuidelines
	case ChunkTypeFallback:
		return ChunkTypeFallback
	default:
		return ChunkTypeFrameworkExplanation
	}
}

const (
	UnknownFramework = "Unknown"
	GeneralCategory  = "General"
)

type ChunkMetadata struct {
	SourceFile string    `json:"source_file"`
	SourcePath string    `json:"source_path,omitempty"`
	Framework  string    `json:"framework"`
	Category   string    `json:"category"`
	Section    string    `json:"section"`
	Keywords   []string  `json:"keywords"`
	Language   Language  `json:"language"`
	ChunkType  ChunkType `json:"chunk_type"`
	ChunkIndex int       `json:"chunk_index"`
}

// Normalize replaces missing labels with their explicit unknown variants.
func (m *ChunkMetadata) Normalize() {
	if strings.TrimSpace(m.Framework) == "" {
		m.Framework = UnknownFramework
	}
	if strings.TrimSpace(m.Category) == "" {
		m.Category = GeneralCategory
	}
	m.Language = ParseLanguage(string(m.Language))
	if m.ChunkType == "" {
		m.ChunkType = ChunkTypeFrameworkExplanation
	}
	if m.Keywords == nil {
		m.Keywords = []string{}
	}
}

type Chunk struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Metadata  ChunkMetadata `json:"metadata"`
	WordCount int           `json:"word_count"`
	CharCount int           `json:"char_count"`
	Namespace string        `json:"namespace,omitempty"`
}

// NewChunk builds a chunk whose counts are derived from content.
func NewChunk(id, content string, meta ChunkMetadata) Chunk {
	meta.Normalize()
	return Chunk{
		ID:        id,
		Content:   content,
		Metadata:  meta,
		WordCount: CountWords(content),
		CharCount: CountChars(content),
	}
}

func CountWords(s string) int {
	return len(strings.Fields(s))
}

func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}
