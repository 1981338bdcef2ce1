package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PdfFileReader extracts text page by page, prefixing every non-empty page
// with a "=== Page N ===" marker.
type PdfFileReader struct {
}

func (r *PdfFileReader) CanRead(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

func (r *PdfFileReader) ReadText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf document: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}

		pages = appendPage(pages, i, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

func appendPage(pages []string, num int, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return pages
	}
	return append(pages, fmt.Sprintf("=== Page %d ===\n%s", num, text))
}
