package glossary

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match filters the glossary to only terms that appear in the given texts.
// Matching is case-sensitive (correct for proper nouns) and respects word
// boundaries, so "elf" does not match inside "herself".
func Match(g Glossary, texts []string) Glossary {
	matched := make(Glossary)

	for source, target := range g {
		for _, text := range texts {
			if containsWord(text, source) {
				matched[source] = target
				break
			}
		}
	}

	return matched
}

// containsWord reports whether term occurs in text as a whole word.
func containsWord(text, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; ; {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if isBoundary(text, start, end) {
			return true
		}
		offset = start + 1
	}
}

// isBoundary checks that text[start:end] is not flanked by letters or digits.
func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
