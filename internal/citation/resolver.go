package citation

import (
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// Span is a half-open range relative to a chunk's text, marking the exact
// substring a rule or extract matched.
type Span struct {
	Start int
	End   int
}

// Resolver maps a chunk, and optionally a tighter span inside it, to a
// Citation in the page's coordinate space. It is the only constructor of
// Citations in the system: the returned text_snippet is sliced directly out
// of the page text at the returned char_range, so the round-trip law
// page_text[start:end] == text_snippet holds by construction.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve builds the citation for a chunk. When span is non-nil the absolute
// range is the span shifted by the chunk's start offset and expanded to
// whole-sentence bounds, so evidence reads as a complete clause. When span
// is nil the chunk bounds are snapped inward to complete sentences where
// detectable, falling back to the full chunk bounds.
func (r *Resolver) Resolve(pageText string, ch models.Chunk, span *Span) models.Citation {
	var start, end int
	if span != nil {
		start = clamp(ch.StartOffset+span.Start, 0, len(pageText))
		end = clamp(ch.StartOffset+span.End, start, len(pageText))
		start, end = expandToSentence(pageText, start, end)
	} else {
		start = clamp(ch.StartOffset, 0, len(pageText))
		end = clamp(ch.EndOffset, start, len(pageText))
		start, end = snapToSentences(pageText, start, end)
	}

	return models.Citation{
		DocumentID:  ch.DocumentID,
		Page:        ch.Page,
		CharRange:   models.CharRange{start, end},
		TextSnippet: pageText[start:end],
	}
}

const sentenceTerminators = ".!?"

// expandToSentence widens [start, end) outward to the enclosing sentence:
// back to just after the previous terminator, forward through the next one.
func expandToSentence(text string, start, end int) (int, int) {
	newStart := start
	for newStart > 0 {
		if isTerminator(text[newStart-1]) {
			break
		}
		newStart--
	}
	// Skip whitespace between the previous sentence and this one.
	for newStart < start && (text[newStart] == ' ' || text[newStart] == '\n' || text[newStart] == '\t') {
		newStart++
	}

	newEnd := end
	for newEnd < len(text) {
		if isTerminator(text[newEnd-1]) && newEnd >= end {
			break
		}
		newEnd++
	}

	if newStart >= newEnd {
		return start, end
	}
	return newStart, newEnd
}

// snapToSentences trims a chunk-shaped range inward so it starts at the first
// full sentence and ends after the last complete one. A range with no
// detectable sentence structure is returned untouched.
func snapToSentences(text string, start, end int) (int, int) {
	segment := text[start:end]

	newStart := start
	if start > 0 && !beginsAfterTerminator(text, start) {
		if idx := firstSentenceStart(segment); idx >= 0 {
			newStart = start + idx
		}
	}

	newEnd := end
	if end < len(text) && !isTerminator(text[end-1]) {
		if idx := lastTerminator(text[newStart:end]); idx >= 0 {
			newEnd = newStart + idx + 1
		}
	}

	if newStart >= newEnd {
		return start, end
	}
	return newStart, newEnd
}

func beginsAfterTerminator(text string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\n', '\t':
			continue
		default:
			return isTerminator(text[i])
		}
	}
	return true
}

func firstSentenceStart(segment string) int {
	idx := strings.IndexAny(segment, sentenceTerminators)
	if idx < 0 {
		return -1
	}
	idx++
	for idx < len(segment) && (segment[idx] == ' ' || segment[idx] == '\n' || segment[idx] == '\t') {
		idx++
	}
	if idx >= len(segment) {
		return -1
	}
	return idx
}

func lastTerminator(segment string) int {
	return strings.LastIndexAny(segment, sentenceTerminators)
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
