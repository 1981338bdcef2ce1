package readers

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
)

var ErrUnsupported = errors.New("unsupported file type")

type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// Extractor turns files into RawDocuments using the first reader that
// accepts each path.
type Extractor struct {
	log     *slog.Logger
	readers []FileReader
}

func NewExtractor(log *slog.Logger, readers ...FileReader) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		log:     log.With("component", "extractor"),
		readers: readers,
	}
}

// DefaultReaders covers .docx, .pptx, .odt, .rtf, .xml, .pdf, .md and .txt.
func DefaultReaders() []FileReader {
	return []FileReader{
		&PdfFileReader{},
		&MarkdownFileReader{},
		&TxtFileReader{},
		&UniversalFileReader{},
	}
}

func (e *Extractor) Supported(path string) bool {
	return e.findReader(path) != nil
}

// Extract never fails: errors are recorded on the returned document.
func (e *Extractor) Extract(path string) RawDocument {
	reader := e.findReader(path)
	if reader == nil {
		return failedDocument(path, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path)))
	}

	text, err := reader.ReadText(path)
	if err != nil {
		e.log.Error("extraction failed", "file", path, "err", err)
		return failedDocument(path, err)
	}

	return NewRawDocument(path, text)
}

// ExtractDir walks root and extracts every supported file, in path order.
func (e *Extractor) ExtractDir(root string) ([]RawDocument, error) {
	paths, err := e.Collect(root)
	if err != nil {
		return nil, err
	}

	docs := make([]RawDocument, 0, len(paths))
	for _, p := range paths {
		e.log.Info("processing", "file", p)
		docs = append(docs, e.Extract(p))
	}

	return docs, nil
}

// Collect lists the supported files below root.
func (e *Extractor) Collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !e.Supported(path) {
			e.log.Debug(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk materials dir %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (e *Extractor) findReader(path string) FileReader {
	for _, r := range e.readers {
		if r.CanRead(path) {
			return r
		}
	}
	return nil
}
