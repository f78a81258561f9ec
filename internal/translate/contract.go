package translate

import (
	"encoding/json"
	"fmt"
	"strings"
)

type indexedLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// buildTranslationUserMessage encodes the batch as 1-based indexed JSON so the
// model can return lines in any order without losing alignment.
func buildTranslationUserMessage(lines []string) (string, error) {
	payload := struct {
		Lines []indexedLine `json:"lines"`
	}{Lines: make([]indexedLine, 0, len(lines))}
	for i, text := range lines {
		payload.Lines = append(payload.Lines, indexedLine{Index: i + 1, Text: text})
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode translation payload: %w", err)
	}
	return string(encoded), nil
}

// parseTranslationOutput accepts either an indexed object array or a plain
// string array, and rebuilds the batch in input order. Anything else is a
// contract violation.
func parseTranslationOutput(content string, expected int) ([]string, error) {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return nil, fmt.Errorf("empty translation output")
	}

	var indexed []indexedLine
	if err := json.Unmarshal([]byte(trimmed), &indexed); err == nil {
		if len(indexed) != expected {
			return nil, fmt.Errorf("translation output has %d lines, expected %d", len(indexed), expected)
		}
		ret := make([]string, expected)
		seen := make(map[int]bool, expected)
		for _, line := range indexed {
			if line.Index < 1 || line.Index > expected {
				return nil, fmt.Errorf("translation output index %d out of range 1..%d", line.Index, expected)
			}
			if seen[line.Index] {
				return nil, fmt.Errorf("translation output has duplicate index %d", line.Index)
			}
			seen[line.Index] = true
			ret[line.Index-1] = line.Text
		}
		return ret, nil
	}

	var plain []string
	if err := json.Unmarshal([]byte(trimmed), &plain); err == nil {
		if len(plain) != expected {
			return nil, fmt.Errorf("translation output has %d lines, expected %d", len(plain), expected)
		}
		return plain, nil
	}

	return nil, fmt.Errorf("translation output is not valid json: %q", truncateForError(trimmed))
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncateForError(s string) string {
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
