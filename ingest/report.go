package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gamma-omg/mgmt-knowledge/chunker"
	"github.com/gamma-omg/mgmt-knowledge/readers"
)

// FailedDocument is a document that produced no chunks, either because its
// text could not be extracted or because chunking failed.
type FailedDocument struct {
	readers.RawDocument
	ChunkingError string `json:"chunking_error,omitempty"`
}

type ChunkingResults struct {
	TotalChunksCreated    int     `json:"total_chunks_created"`
	AverageChunkSizeWords float64 `json:"average_chunk_size_words"`
	SuccessfulDocuments   int     `json:"successful_documents"`
	FailedDocuments       int     `json:"failed_documents"`
	SkippedDocuments      int     `json:"skipped_documents"`
	FallbackDocuments     int     `json:"fallback_documents"`
	CachedDocuments       int     `json:"cached_documents"`
}

type Report struct {
	RunID             string                    `json:"run_id"`
	IngestionDate     time.Time                 `json:"ingestion_date"`
	AIProvider        string                    `json:"ai_provider"`
	SourceDirectory   string                    `json:"source_directory"`
	OutputDirectory   string                    `json:"output_directory"`
	ProcessingSummary readers.ProcessingSummary `json:"processing_summary"`
	ChunkingResults   ChunkingResults           `json:"chunking_results"`
	QualityMetrics    chunker.QualityReport     `json:"quality_metrics"`
	ExportResults     ExportResults             `json:"export_results"`
	FailedDocuments   []FailedDocument          `json:"failed_documents"`
}

func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

func writeReport(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

const shownQualityFlags = 5

// Print writes a human readable summary of the run.
func (r *Report) Print(w io.Writer) {
	rule := "============================================================"
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INGESTION REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run:         %s\n", r.RunID)
	fmt.Fprintf(w, "Date:        %s\n", r.IngestionDate.Format(time.RFC3339))
	fmt.Fprintf(w, "AI provider: %s\n", r.AIProvider)
	fmt.Fprintf(w, "Source:      %s\n", r.SourceDirectory)
	fmt.Fprintf(w, "Output:      %s\n", r.OutputDirectory)

	p := r.ProcessingSummary
	fmt.Fprintln(w, "\nDocuments:")
	fmt.Fprintf(w, "  total files: %d\n", p.TotalFiles)
	fmt.Fprintf(w, "  successful:  %d\n", p.Successful)
	fmt.Fprintf(w, "  failed:      %d\n", p.Failed)
	fmt.Fprintf(w, "  total words: %d\n", p.TotalWords)
	if len(p.FileTypes) > 0 {
		fmt.Fprintf(w, "  file types:  %v\n", p.FileTypes)
	}

	c := r.ChunkingResults
	fmt.Fprintln(w, "\nChunking:")
	fmt.Fprintf(w, "  total chunks:       %d\n", c.TotalChunksCreated)
	fmt.Fprintf(w, "  average chunk size: %.1f words\n", c.AverageChunkSizeWords)
	fmt.Fprintf(w, "  documents chunked:  %d\n", c.SuccessfulDocuments)
	fmt.Fprintf(w, "  skipped (short):    %d\n", c.SkippedDocuments)
	fmt.Fprintf(w, "  fallback:           %d\n", c.FallbackDocuments)

	q := r.QualityMetrics
	if q.WordCountStats != nil {
		s := q.WordCountStats
		fmt.Fprintln(w, "\nQuality:")
		fmt.Fprintf(w, "  word count range: %d-%d (avg: %.1f)\n", s.Min, s.Max, s.Average)
		fmt.Fprintf(w, "  target range:     %d-%d\n", s.TargetRange.Min, s.TargetRange.Max)
		if len(q.QualityFlags) == 0 {
			fmt.Fprintln(w, "  no quality issues detected")
		} else {
			fmt.Fprintf(w, "  issues found: %d\n", len(q.QualityFlags))
			for _, f := range q.QualityFlags[:min(shownQualityFlags, len(q.QualityFlags))] {
				fmt.Fprintf(w, "    - %s\n", f)
			}
		}
	}

	fmt.Fprintln(w, "\nExports:")
	if e := r.ExportResults.ChromaDB; e != nil {
		fmt.Fprintf(w, "  chromadb: %d chunks -> %s\n", e.ChunksExported, e.OutputPath)
	}
	if e := r.ExportResults.CustomGPT; e != nil {
		fmt.Fprintf(w, "  custom_gpt: %d files -> %s\n", e.FilesExported, e.OutputDirectory)
	}

	if len(r.FailedDocuments) > 0 {
		fmt.Fprintln(w, "\nFailed documents:")
		for _, d := range r.FailedDocuments {
			msg := firstNonEmpty(d.ChunkingError, d.ErrorMessage, "Unknown error")
			fmt.Fprintf(w, "  %s: %s\n", d.Filename, msg)
		}
	}

	fmt.Fprintln(w, rule)
}
