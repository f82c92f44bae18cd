package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// Chunker splits page-tagged document text into overlapping, position-tracked
// chunks. Chunk boundaries never cross a page boundary, and every chunk's
// text is a verbatim substring of its page at the recorded offsets.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker with a target chunk size and overlap, both in bytes.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk produces the ordered chunk set for a document. Pure function of its
// input: identical pages always yield identical chunks. Empty pages yield no
// chunks.
func (c *Chunker) Chunk(documentID string, pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		chunks = append(chunks, c.chunkPage(documentID, page)...)
	}
	return chunks
}

func (c *Chunker) chunkPage(documentID string, page models.Page) []models.Chunk {
	text := page.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else if brk := breakPoint(text[start:end]); brk > c.size/2 {
			// Prefer ending on a sentence or line boundary when one falls
			// past the halfway mark.
			end = start + brk + 1
		} else {
			// Offsets are bytes; never cut a multi-byte rune in half.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}

		chunks = append(chunks, models.Chunk{
			DocumentID:  documentID,
			Page:        page.Number,
			StartOffset: start,
			EndOffset:   end,
			Text:        text[start:end],
		})

		if end == len(text) {
			break
		}
		next := end - c.overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}

	return chunks
}

// breakPoint returns the last sentence or line boundary in window, or -1.
func breakPoint(window string) int {
	lastPeriod := strings.LastIndex(window, ".")
	lastNewline := strings.LastIndex(window, "\n")
	if lastPeriod > lastNewline {
		return lastPeriod
	}
	return lastNewline
}
