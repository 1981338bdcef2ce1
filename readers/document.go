package readers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// RawDocument is one source file after text extraction.
type RawDocument struct {
	Filename         string `json:"filename"`
	Path             string `json:"file_path"`
	Extension        string `json:"extension"`
	Content          string `json:"content,omitempty"`
	WordCount        int    `json:"word_count"`
	CharCount        int    `json:"char_count"`
	SizeBytes        int64  `json:"size_bytes,omitempty"`
	ProcessingStatus Status `json:"processing_status"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

func (d RawDocument) OK() bool {
	return d.ProcessingStatus == StatusSuccess
}

// NewRawDocument builds a successfully extracted document from its text.
func NewRawDocument(path, content string) RawDocument {
	doc := RawDocument{
		Filename:         filepath.Base(path),
		Path:             path,
		Extension:        strings.ToLower(filepath.Ext(path)),
		Content:          content,
		WordCount:        corpus.CountWords(content),
		CharCount:        corpus.CountChars(content),
		ProcessingStatus: StatusSuccess,
	}
	if info, err := os.Stat(path); err == nil {
		doc.SizeBytes = info.Size()
	}
	return doc
}

func failedDocument(path string, err error) RawDocument {
	return RawDocument{
		Filename:         filepath.Base(path),
		Path:             path,
		Extension:        strings.ToLower(filepath.Ext(path)),
		ProcessingStatus: StatusError,
		ErrorMessage:     err.Error(),
	}
}
