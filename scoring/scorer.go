// Package scoring ranks chunks against a query with deterministic keyword
// heuristics. It performs no I/O and is safe for concurrent use.
package scoring

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

const (
	DefaultTopK = 5
	MaxTopK     = 20
)

const (
	exactPhraseWeight   = 100
	sourceFileWeight    = 50
	frameworkWeight     = 30
	termFrequencyWeight = 5
	categoryTermWeight  = 20
	sbiCompletionBonus  = 100
	coachingSignalBonus = 50
	minTokenLen         = 3
	scoreNormalization  = 100.0
)

// Category associates a domain term in a query with terms that signal it in
// chunk content.
type Category struct {
	Name  string
	Terms []string
}

var Categories = []Category{
	{Name: "feedback", Terms: []string{"sbi", "situation", "behavior", "impact", "radical", "candor"}},
	{Name: "coaching", Terms: []string{"development", "1:1", "growth", "mentoring", "guidance"}},
	{Name: "delegation", Terms: []string{"authority", "responsibility", "accountability", "decision"}},
	{Name: "leadership", Terms: []string{"management", "leading", "influence", "direction"}},
	{Name: "communication", Terms: []string{"conversation", "discussion", "talking", "speaking"}},
}

var (
	sbiTerms      = []string{"situation", "behavior", "impact"}
	coachingTerms = []string{"development", "growth", "conversation"}
)

type ScoredResult struct {
	Chunk corpus.Chunk
	// Score is the raw score divided by 100.
	Score float64
	Rank  int
}

// Score returns the raw additive relevance of c for query.
func Score(query string, c corpus.Chunk) int {
	// surrounding whitespace is trimmed before the exact phrase match
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	return score(q, tokens(q), c)
}

// Rank scores every chunk, drops zero scores and returns at most topK results
// ordered by descending score. Equal scores keep corpus order.
func Rank(query string, chunks []corpus.Chunk, topK int) []ScoredResult {
	// trimmed like in Score
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(chunks) == 0 {
		return []ScoredResult{}
	}
	if topK < 1 {
		topK = DefaultTopK
	}

	toks := tokens(q)
	type candidate struct {
		idx   int
		score int
	}
	candidates := make([]candidate, 0, len(chunks))
	for i, c := range chunks {
		if s := score(q, toks, c); s > 0 {
			candidates = append(candidates, candidate{idx: i, score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := min(topK, len(candidates))
	results := make([]ScoredResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, ScoredResult{
			Chunk: chunks[candidates[i].idx],
			Score: float64(candidates[i].score) / scoreNormalization,
			Rank:  i + 1,
		})
	}

	return results
}

// ClampTopK maps a requested result count into [1, limit], using def for
// non-positive requests.
func ClampTopK(k, def, limit int) int {
	if def < 1 {
		def = DefaultTopK
	}
	if limit < 1 {
		limit = MaxTopK
	}
	if k < 1 {
		k = def
	}
	return min(k, limit)
}

func tokens(q string) []string {
	var out []string
	for _, t := range strings.Fields(q) {
		if utf8.RuneCountInString(t) >= minTokenLen {
			out = append(out, t)
		}
	}
	return out
}

func score(q string, toks []string, c corpus.Chunk) int {
	content := strings.ToLower(c.Content)
	source := strings.ToLower(c.Metadata.SourceFile)
	framework := strings.ToLower(c.Metadata.Framework)

	s := 0
	if strings.Contains(content, q) {
		s += exactPhraseWeight
	}

	for _, t := range toks {
		if strings.Contains(source, t) {
			s += sourceFileWeight
		}
		if strings.Contains(framework, t) {
			s += frameworkWeight
		}
		s += strings.Count(content, t) * utf8.RuneCountInString(t) * termFrequencyWeight
	}

	for _, cat := range Categories {
		if !strings.Contains(q, cat.Name) {
			continue
		}
		for _, term := range cat.Terms {
			if strings.Contains(content, term) {
				s += categoryTermWeight
			}
		}
	}

	if strings.Contains(q, "feedback") && containsAll(content, sbiTerms) {
		s += sbiCompletionBonus
	}
	if strings.Contains(q, "coaching") && containsAny(content, coachingTerms) {
		s += coachingSignalBonus
	}

	return s
}

func containsAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
