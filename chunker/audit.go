package chunker

import (
	"fmt"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

const ContextHeader = "CONTEXT: "

var headerMarkers = []string{"CONTEXT:", "FRAMEWORK:", "==="}

// WordRange is the target word count band for a chunk.
type WordRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var DefaultTarget = WordRange{Min: 300, Max: 500}

// LongLimit is the word count above which a chunk is flagged as long.
func (r WordRange) LongLimit() int {
	return r.Max * 3 / 2
}

func HasHeader(content string) bool {
	for _, m := range headerMarkers {
		if strings.HasPrefix(content, m) {
			return true
		}
	}
	return false
}

type FlagKind string

const (
	FlagShort            FlagKind = "short_chunk"
	FlagLong             FlagKind = "long_chunk"
	FlagMissingHeader    FlagKind = "missing_context_header"
	FlagUnknownFramework FlagKind = "unknown_framework"
)

type QualityFlag struct {
	ChunkID   string   `json:"chunk_id"`
	Kind      FlagKind `json:"kind"`
	WordCount int      `json:"word_count,omitempty"`
}

func (f QualityFlag) String() string {
	switch f.Kind {
	case FlagShort:
		return fmt.Sprintf("Short chunk: %s (%d words)", f.ChunkID, f.WordCount)
	case FlagLong:
		return fmt.Sprintf("Long chunk: %s (%d words)", f.ChunkID, f.WordCount)
	case FlagMissingHeader:
		return fmt.Sprintf("Missing context header: %s", f.ChunkID)
	case FlagUnknownFramework:
		return fmt.Sprintf("Unknown framework: %s", f.ChunkID)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.ChunkID)
	}
}

type WordCountStats struct {
	Min         int       `json:"min"`
	Max         int       `json:"max"`
	Average     float64   `json:"average"`
	TargetRange WordRange `json:"target_range"`
}

// QualityReport is advisory: it describes chunks and never removes any.
type QualityReport struct {
	TotalChunks           int             `json:"total_chunks"`
	WordCountStats        *WordCountStats `json:"word_count_stats,omitempty"`
	LanguageDistribution  map[string]int  `json:"language_distribution,omitempty"`
	FrameworkDistribution map[string]int  `json:"framework_distribution,omitempty"`
	Flags                 []QualityFlag   `json:"flags,omitempty"`
	QualityFlags          []string        `json:"quality_flags,omitempty"`
	Error                 string          `json:"error,omitempty"`
}

// FlagsOf returns the flags raised for one chunk id.
func (r QualityReport) FlagsOf(id string) []FlagKind {
	var kinds []FlagKind
	for _, f := range r.Flags {
		if f.ChunkID == id {
			kinds = append(kinds, f.Kind)
		}
	}
	return kinds
}

func Audit(chunks []corpus.Chunk, target WordRange) QualityReport {
	if len(chunks) == 0 {
		return QualityReport{Error: "No chunks to analyze"}
	}

	stats := &WordCountStats{
		Min:         chunks[0].WordCount,
		Max:         chunks[0].WordCount,
		TargetRange: target,
	}
	report := QualityReport{
		TotalChunks:           len(chunks),
		WordCountStats:        stats,
		LanguageDistribution:  make(map[string]int),
		FrameworkDistribution: make(map[string]int),
		Flags:                 []QualityFlag{},
	}

	total := 0
	for _, c := range chunks {
		total += c.WordCount
		stats.Min = min(stats.Min, c.WordCount)
		stats.Max = max(stats.Max, c.WordCount)

		lang := string(c.Metadata.Language)
		if lang == "" {
			lang = string(corpus.LanguageUnknown)
		}
		report.LanguageDistribution[lang]++

		fw := c.Metadata.Framework
		if fw == "" {
			fw = corpus.UnknownFramework
		}
		report.FrameworkDistribution[fw]++

		report.Flags = append(report.Flags, flagChunk(c, target)...)
	}
	stats.Average = float64(total) / float64(len(chunks))

	report.QualityFlags = make([]string, 0, len(report.Flags))
	for _, f := range report.Flags {
		report.QualityFlags = append(report.QualityFlags, f.String())
	}

	return report
}

func flagChunk(c corpus.Chunk, target WordRange) []QualityFlag {
	var flags []QualityFlag

	switch {
	case c.WordCount < target.Min:
		flags = append(flags, QualityFlag{ChunkID: c.ID, Kind: FlagShort, WordCount: c.WordCount})
	case c.WordCount > target.LongLimit():
		flags = append(flags, QualityFlag{ChunkID: c.ID, Kind: FlagLong, WordCount: c.WordCount})
	}

	if !HasHeader(c.Content) {
		flags = append(flags, QualityFlag{ChunkID: c.ID, Kind: FlagMissingHeader})
	}

	if fw := c.Metadata.Framework; fw == "" || fw == corpus.UnknownFramework {
		flags = append(flags, QualityFlag{ChunkID: c.ID, Kind: FlagUnknownFramework})
	}

	return flags
}
