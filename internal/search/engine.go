package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/CaseMark/multi-language-processor/internal/document"
)

// FindMatches scans text line by line for case-insensitive substring
// occurrences of query and returns context-windowed candidates, best
// score first. An empty text or empty query yields no matches.
func FindMatches(text, query string) []Candidate {
	if text == "" || query == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	loweredQuery := strings.ToLower(query)

	candidates := make([]Candidate, 0)
	seen := make(map[string]struct{})

	for i, line := range lines {
		loweredLine := strings.ToLower(line)
		if !strings.Contains(loweredLine, loweredQuery) {
			continue
		}

		// Hit line plus one line of context on each side, clipped at
		// the document edges.
		start := max(0, i-1)
		end := min(len(lines), i+2)
		window := strings.Join(lines[start:end], "\n")

		// Two hits close enough to produce the same window collapse
		// into one candidate; the first (lowest line index) wins.
		if _, exists := seen[window]; exists {
			continue
		}
		seen[window] = struct{}{}

		// strings.Count scans non-overlapping occurrences, so "aaa"
		// contains "aa" once. A hit implies a non-empty line.
		occurrences := strings.Count(loweredLine, loweredQuery)
		candidates = append(candidates, Candidate{
			Text:  window,
			Score: float64(occurrences) / float64(len(line)),
		})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return candidates
}

// SearchCorpus runs FindMatches over every document in docs, on the
// side(s) selected by scope. Documents without a single match on a
// searched side are dropped; the rest are ordered by total match count
// descending, ties keeping corpus order.
func SearchCorpus(docs []document.Pair, query string, scope Scope) []Result {
	results := make([]Result, 0)
	for _, doc := range docs {
		var originalMatches, translatedMatches []Candidate
		if scope == ScopeBoth || scope == ScopeOriginal {
			originalMatches = FindMatches(doc.OriginalText, query)
		}
		if scope == ScopeBoth || scope == ScopeTranslated {
			translatedMatches = FindMatches(doc.TranslatedText, query)
		}
		if len(originalMatches) == 0 && len(translatedMatches) == 0 {
			continue
		}
		results = append(results, Result{
			DocumentID:        doc.ID,
			Filename:          doc.Filename,
			OriginalLanguage:  doc.OriginalLanguage,
			OriginalMatches:   originalMatches,
			TranslatedMatches: translatedMatches,
		})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(
			len(b.OriginalMatches)+len(b.TranslatedMatches),
			len(a.OriginalMatches)+len(a.TranslatedMatches),
		)
	})
	return results
}
