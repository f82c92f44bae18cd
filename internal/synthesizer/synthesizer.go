package synthesizer

import (
	"context"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/retrieval"
)

// PageTexts maps document id -> page number -> raw page text. Citation
// resolution needs the original page text so snippets stay verbatim.
type PageTexts map[string]map[int]string

// Text returns the raw text of one page, or "" when unknown.
func (p PageTexts) Text(documentID string, page int) string {
	return p[documentID][page]
}

// Tokenizer is the token space shared with relevance scoring, used for the
// post-hoc attribution check. *retrieval.Scorer satisfies it.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Strategy synthesizes an answer from ranked chunks. Implementations never
// return an error to the caller: provider failures recover internally, and
// an unanswerable question produces a well-formed answer with no citations.
//
// Stream is the streaming coordinator contract: a finite, non-restartable
// sequence of token events, terminated by exactly one event carrying the
// resolved citations. Cancelling the context stops the stream without a
// terminal event and releases any open provider call.
type Strategy interface {
	Answer(ctx context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) *models.Answer
	Stream(ctx context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) <-chan models.StreamEvent
}

const noRelevantInformation = "No relevant information was found in the provided documents to answer this question."

func emptyAnswer() *models.Answer {
	return &models.Answer{
		Text:      noRelevantInformation,
		Citations: []models.Citation{},
		NoSignal:  true,
	}
}
