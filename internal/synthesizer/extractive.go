package synthesizer

import (
	"context"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/citation"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/retrieval"
)

// Extractive answers by quoting the highest-scoring chunk verbatim. No
// external calls: as long as any relevant chunk exists, the answer is
// grounded in at least one citation.
type Extractive struct {
	resolver *citation.Resolver
	tokens   Tokenizer
}

func NewExtractive(resolver *citation.Resolver, tokens Tokenizer) *Extractive {
	return &Extractive{resolver: resolver, tokens: tokens}
}

func (e *Extractive) Answer(_ context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) *models.Answer {
	if len(ranked) == 0 {
		return emptyAnswer()
	}

	top := ranked[0].Chunk
	pageText := pages.Text(top.DocumentID, top.Page)

	span := e.bestSentenceSpan(question, top.Text)
	cited := e.resolver.Resolve(pageText, top, span)

	return &models.Answer{
		Text:      "Based on the document: " + strings.TrimSpace(cited.TextSnippet),
		Citations: []models.Citation{cited},
	}
}

func (e *Extractive) Stream(ctx context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) <-chan models.StreamEvent {
	out := make(chan models.StreamEvent)
	go func() {
		defer close(out)
		streamAnswer(ctx, out, e.Answer(ctx, question, ranked, pages))
	}()
	return out
}

// bestSentenceSpan picks the sentence of the chunk that shares the most
// tokens with the question; earliest sentence wins ties. A chunk with no
// matching sentence is cited whole (nil span lets the resolver snap to
// sentence bounds).
func (e *Extractive) bestSentenceSpan(question, chunkText string) *citation.Span {
	queryTokens := e.tokens.Tokenize(question)
	if len(queryTokens) == 0 {
		return nil
	}
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}

	bestHits := 0
	var best *citation.Span
	for _, sent := range splitSentences(chunkText) {
		hits := 0
		for _, tok := range e.tokens.Tokenize(chunkText[sent.Start:sent.End]) {
			if _, ok := querySet[tok]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			span := sent
			best = &span
		}
	}
	return best
}

// splitSentences returns spans of sentence-like segments within text,
// bounded by '.', '!' or '?'. Trailing text without a terminator counts as
// a final sentence.
func splitSentences(text string) []citation.Span {
	var spans []citation.Span
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			if strings.TrimSpace(text[start:i+1]) != "" {
				spans = append(spans, citation.Span{Start: start, End: i + 1})
			}
			start = i + 1
		}
	}
	if strings.TrimSpace(text[start:]) != "" {
		spans = append(spans, citation.Span{Start: start, End: len(text)})
	}
	return spans
}
