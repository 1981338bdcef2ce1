package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// UniversalFileReader extracts text from office formats through docconv.
type UniversalFileReader struct {
}

var officeExts = map[string]struct{}{
	".docx": {},
	".pptx": {},
	".odt":  {},
	".rtf":  {},
	".xml":  {},
}

func (r *UniversalFileReader) CanRead(path string) bool {
	_, ok := officeExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (r *UniversalFileReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return strings.TrimSpace(res.Body), nil
}
