package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

const (
	FormatChromaDB  = corpus.ChromaFormat
	FormatCustomGPT = "custom_gpt"

	chromaDir     = "chromadb_data"
	chromaFile    = "chunks_data.json"
	customGPTDir  = "custom_gpt_files"
	maxFileStem   = 100
	ReportFile    = "ingestion_report.json"
	markdownTitle = "Management Framework"
)

var DefaultFormats = []string{FormatChromaDB, FormatCustomGPT}

type ChromaExport struct {
	Format         string `json:"format"`
	OutputPath     string `json:"output_path"`
	ChunksExported int    `json:"chunks_exported"`
}

type CustomGPTExport struct {
	Format          string   `json:"format"`
	OutputDirectory string   `json:"output_directory"`
	FilesExported   int      `json:"files_exported"`
	FileList        []string `json:"file_list"`
}

type ExportResults struct {
	ChromaDB  *ChromaExport    `json:"chromadb,omitempty"`
	CustomGPT *CustomGPTExport `json:"custom_gpt,omitempty"`
}

// ParseFormats validates output format names.
func ParseFormats(names []string) ([]string, error) {
	if len(names) == 0 {
		return DefaultFormats, nil
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		switch n {
		case FormatChromaDB, FormatCustomGPT:
			out = append(out, n)
		default:
			return nil, fmt.Errorf("unknown output format %q", n)
		}
	}
	return out, nil
}

func exportChroma(chunks []corpus.Chunk, outputDir string, compress bool) (*ChromaExport, error) {
	path := filepath.Join(outputDir, chromaDir, chromaFile)
	if compress {
		path += ".gz"
	}

	if err := corpus.Write(path, chunks, FormatChromaDB); err != nil {
		return nil, err
	}

	return &ChromaExport{
		Format:         FormatChromaDB,
		OutputPath:     path,
		ChunksExported: len(chunks),
	}, nil
}

// exportCustomGPT writes one markdown file per chunk for upload to a custom
// assistant's knowledge section.
func exportCustomGPT(chunks []corpus.Chunk, outputDir string) (*CustomGPTExport, error) {
	dir := filepath.Join(outputDir, customGPTDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	files := make([]string, 0, len(chunks))
	for i, c := range chunks {
		path := filepath.Join(dir, markdownName(i, c.Metadata))
		if err := os.WriteFile(path, []byte(renderMarkdown(c)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
	}

	return &CustomGPTExport{
		Format:          FormatCustomGPT,
		OutputDirectory: dir,
		FilesExported:   len(files),
		FileList:        files,
	}, nil
}

func markdownName(i int, meta corpus.ChunkMetadata) string {
	framework := firstNonEmpty(meta.Framework, corpus.UnknownFramework)
	section := firstNonEmpty(meta.Section, "Section")
	stem := fmt.Sprintf("chunk_%03d_%s_%s",
		i, strings.ReplaceAll(framework, " ", "_"), strings.ReplaceAll(section, " ", "_"))

	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, stem)

	if r := []rune(clean); len(r) > maxFileStem {
		clean = string(r[:maxFileStem])
	}
	return clean + ".md"
}

func renderMarkdown(c corpus.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstNonEmpty(c.Metadata.Framework, markdownTitle))
	fmt.Fprintf(&b, "**Section:** %s\n", firstNonEmpty(c.Metadata.Section, corpus.GeneralCategory))
	fmt.Fprintf(&b, "**Category:** %s\n", firstNonEmpty(c.Metadata.Category, "Management"))
	fmt.Fprintf(&b, "**Keywords:** %s\n\n", strings.Join(c.Metadata.Keywords, ", "))
	b.WriteString("---\n\n")
	b.WriteString(c.Content)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
