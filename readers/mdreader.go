package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MarkdownFileReader returns the prose of a markdown file with markup removed.
type MarkdownFileReader struct{}

var (
	mdFence    = regexp.MustCompile("(?m)^\\s*(```|~~~).*$")
	mdHeading  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`)
	mdQuote    = regexp.MustCompile(`(?m)^\s*>\s?`)
	mdBullet   = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	mdRule     = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	mdImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis = regexp.MustCompile(`(\*\*|__|\*|_|~~|` + "`" + `)([^*_~` + "`" + `]+)(\*\*|__|\*|_|~~|` + "`" + `)`)
	mdHTML     = regexp.MustCompile(`<[^>]+>`)
)

func (r *MarkdownFileReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func (r *MarkdownFileReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading markdown file: %w", err)
	}

	return stripMarkdown(string(buf)), nil
}

func stripMarkdown(src string) string {
	text := mdFence.ReplaceAllString(src, "")
	text = mdRule.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdQuote.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdEmphasis.ReplaceAllString(text, "$2")
	text = mdHTML.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}

	return strings.Join(out, "\n")
}
