package search

import "fmt"

// Candidate is one located occurrence of a query substring: the hit
// line plus up to one line of context on each side, joined with
// newlines. The window text doubles as the deduplication key.
type Candidate struct {
	// Text is the context window around the hit line.
	Text string `json:"text"`
	// Score is the occurrence density of the query within the hit
	// line: occurrence count divided by line length. Occurrences in
	// the context lines do not count.
	Score float64 `json:"score"`
}

// Result aggregates the candidates for one document against one query.
// At least one of the two match slices is non-empty.
type Result struct {
	DocumentID        string      `json:"document_id"`
	Filename          string      `json:"filename"`
	OriginalLanguage  string      `json:"original_language"`
	OriginalMatches   []Candidate `json:"original_matches"`
	TranslatedMatches []Candidate `json:"translated_matches"`
}

// Scope selects which side(s) of a document pair a search covers.
type Scope int

const (
	ScopeBoth Scope = iota
	ScopeOriginal
	ScopeTranslated
)

func (s Scope) String() string {
	switch s {
	case ScopeOriginal:
		return "original"
	case ScopeTranslated:
		return "translated"
	default:
		return "both"
	}
}

// ParseScope maps the wire value to a Scope. An empty value means both sides.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "both":
		return ScopeBoth, nil
	case "original":
		return ScopeOriginal, nil
	case "translated":
		return ScopeTranslated, nil
	default:
		return ScopeBoth, fmt.Errorf("invalid scope %q", s)
	}
}
