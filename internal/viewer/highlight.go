package viewer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpanKind distinguishes the two highlight sources.
type SpanKind string

const (
	// SpanLive marks an occurrence of the query currently typed in
	// the search box.
	SpanLive SpanKind = "live"
	// SpanPinned marks a match window carried over from an executed
	// search into the viewer.
	SpanPinned SpanKind = "pinned"
)

// Span is a half-open byte range [Start, End) within a rendered text.
// Spans from the two sources may overlap; overlapping spans are all
// kept and rendered as nested marks.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Kind  SpanKind `json:"kind"`
}

// Segment is one slice of the rendered text: either plain, or covered
// by a highlight span.
type Segment struct {
	Text string   `json:"text"`
	Kind SpanKind `json:"kind,omitempty"`
}

// ComputeSpans finds the highlight spans for one pane's text: every
// case-insensitive occurrence of liveQuery, plus the first exact
// occurrence of each pinned chunk. A pinned chunk no longer present in
// the text is skipped silently. Spans come back ordered by start
// offset; equal starts keep emission order (live before pinned).
func ComputeSpans(text, liveQuery string, pinnedChunks []string) []Span {
	spans := make([]Span, 0)

	if liveQuery != "" {
		// Case mapping can change rune byte length (e.g. U+0130 "İ" → "i"),
		// so indices into the lowered text are mapped back to offsets in
		// the original before they become spans.
		loweredText, offsets := lowerWithOffsets(text)
		loweredQuery := strings.ToLower(liveQuery)
		for from := 0; ; {
			idx := strings.Index(loweredText[from:], loweredQuery)
			if idx < 0 {
				break
			}
			at := from + idx
			end := at + len(loweredQuery)
			from = end
			if !utf8.RuneStart(loweredText[at]) || (end < len(loweredText) && !utf8.RuneStart(loweredText[end])) {
				// Byte-level hit that splits a rune; not a real occurrence.
				from = at + 1
				continue
			}
			spans = append(spans, Span{
				Start: offsets[at],
				End:   offsets[end],
				Kind:  SpanLive,
			})
		}
	}

	for _, chunk := range pinnedChunks {
		if chunk == "" {
			continue
		}
		idx := strings.Index(text, chunk)
		if idx < 0 {
			continue
		}
		spans = append(spans, Span{
			Start: idx,
			End:   idx + len(chunk),
			Kind:  SpanPinned,
		})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
	return spans
}

// lowerWithOffsets lowercases s rune by rune and records, for every
// byte of the lowered string, the offset of the originating rune in s.
// The returned slice has one extra entry mapping len(lowered) to len(s).
func lowerWithOffsets(s string) (string, []int) {
	var lowered strings.Builder
	lowered.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			offsets = append(offsets, i)
		}
		lowered.WriteRune(lr)
	}
	offsets = append(offsets, len(s))
	return lowered.String(), offsets
}

// Segments slices text into alternating plain and highlighted pieces
// per the given spans. Concatenating the segment texts reproduces the
// input exactly. Overlapping spans are flattened in order: a span that
// starts inside an already-emitted region contributes only its
// remainder, so no byte is emitted twice.
func Segments(text string, spans []Span) []Segment {
	segments := make([]Segment, 0, 2*len(spans)+1)
	cursor := 0
	for _, span := range spans {
		start := span.Start
		if start < cursor {
			start = cursor
		}
		if span.End <= cursor {
			continue
		}
		if start > cursor {
			segments = append(segments, Segment{Text: text[cursor:start]})
		}
		segments = append(segments, Segment{Text: text[start:span.End], Kind: span.Kind})
		cursor = span.End
	}
	if cursor < len(text) {
		segments = append(segments, Segment{Text: text[cursor:]})
	}
	return segments
}
