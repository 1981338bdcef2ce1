package corpus

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidCorpus = errors.New("invalid corpus")

const ChromaFormat = "chromadb"

type ExportMetadata struct {
	TotalChunks int       `json:"total_chunks"`
	ExportDate  time.Time `json:"export_date"`
	Format      string    `json:"format"`
}

// File is the on-disk envelope of a chunk corpus.
type File struct {
	Chunks   []Chunk         `json:"chunks"`
	Metadata *ExportMetadata `json:"metadata,omitempty"`
}

func Decode(r io.Reader) ([]Chunk, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}

	if err := validate(f.Chunks); err != nil {
		return nil, err
	}

	return f.Chunks, nil
}

// Load reads a corpus file. Files ending in .gz are decompressed first.
func Load(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Decode(r)
}

// LoadBase64 decodes a base64 encoded, gzip compressed corpus payload.
func LoadBase64(payload string) ([]Chunk, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 corpus: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	return Decode(gz)
}

// Write stores chunks in the export envelope, gzip compressed when path ends
// with .gz.
func Write(path string, chunks []Chunk, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create corpus dir: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create corpus file: %w", err)
	}
	defer out.Close()

	var w io.Writer = out
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(out)
		w = gz
	}

	if chunks == nil {
		chunks = []Chunk{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	err = enc.Encode(File{
		Chunks: chunks,
		Metadata: &ExportMetadata{
			TotalChunks: len(chunks),
			ExportDate:  time.Now().UTC(),
			Format:      format,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to flush gzip stream: %w", err)
		}
	}

	return out.Close()
}

func validate(chunks []Chunk) error {
	seen := make(map[string]struct{}, len(chunks))
	for i, ch := range chunks {
		if ch.ID == "" {
			return fmt.Errorf("%w: chunk %d has no id", ErrInvalidCorpus, i)
		}
		key := ch.Namespace + "\x00" + ch.ID
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate chunk id %q", ErrInvalidCorpus, ch.ID)
		}
		seen[key] = struct{}{}
	}
	return nil
}
