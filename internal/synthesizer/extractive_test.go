package synthesizer

import (
	"context"
	"testing"

	"github.com/Dhruv501/contract-intelligence-api/internal/citation"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractPage = "This Agreement is effective as of January 1, 2025. " +
	"Either party may terminate with ninety days written notice. " +
	"Payment is due within thirty days of invoicing."

func rankedFixture() ([]retrieval.ScoredChunk, PageTexts) {
	chunk := models.Chunk{
		DocumentID:  "doc-1",
		Page:        1,
		StartOffset: 0,
		EndOffset:   len(contractPage),
		Text:        contractPage,
	}
	ranked := []retrieval.ScoredChunk{{Chunk: chunk, Score: 1.0}}
	pages := PageTexts{"doc-1": {1: contractPage}}
	return ranked, pages
}

func newExtractive() *Extractive {
	return NewExtractive(citation.NewResolver(), retrieval.NewScorer(3, 0.05))
}

func TestExtractiveAnswerQuotesBestSentence(t *testing.T) {
	ranked, pages := rankedFixture()

	answer := newExtractive().Answer(context.Background(), "What is the effective date?", ranked, pages)

	require.Len(t, answer.Citations, 1)
	cited := answer.Citations[0]
	assert.Equal(t, "This Agreement is effective as of January 1, 2025.", cited.TextSnippet)
	assert.Equal(t, contractPage[cited.CharRange.Start():cited.CharRange.End()], cited.TextSnippet)
	assert.Equal(t, "Based on the document: This Agreement is effective as of January 1, 2025.", answer.Text)
	assert.False(t, answer.NoSignal)
}

func TestExtractiveAnswerPicksQuestionSentence(t *testing.T) {
	ranked, pages := rankedFixture()

	answer := newExtractive().Answer(context.Background(), "How many days notice to terminate?", ranked, pages)

	require.Len(t, answer.Citations, 1)
	assert.Contains(t, answer.Citations[0].TextSnippet, "ninety days written notice")
}

func TestExtractiveEmptyRankingAnswersWithoutCitations(t *testing.T) {
	answer := newExtractive().Answer(context.Background(), "anything", nil, PageTexts{})

	assert.Empty(t, answer.Citations)
	assert.True(t, answer.NoSignal)
	assert.Equal(t, noRelevantInformation, answer.Text)
}

func TestExtractiveStreamEndsWithCitations(t *testing.T) {
	ranked, pages := rankedFixture()

	events := newExtractive().Stream(context.Background(), "What is the effective date?", ranked, pages)

	var tokens []string
	var terminal *models.StreamEvent
	for ev := range events {
		if ev.Done {
			require.Nil(t, terminal, "exactly one terminal event")
			e := ev
			terminal = &e
			continue
		}
		tokens = append(tokens, ev.Token)
	}

	require.NotNil(t, terminal)
	require.NotEmpty(t, tokens)
	require.Len(t, terminal.Citations, 1)
	assert.Empty(t, terminal.Token)
}

func TestExtractiveStreamCancellation(t *testing.T) {
	ranked, pages := rankedFixture()
	ctx, cancel := context.WithCancel(context.Background())

	events := newExtractive().Stream(ctx, "What is the effective date?", ranked, pages)
	<-events
	cancel()

	for ev := range events {
		assert.False(t, ev.Done, "no terminal event after cancellation")
	}
}
