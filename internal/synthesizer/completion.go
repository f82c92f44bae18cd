package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/citation"
	"github.com/Dhruv501/contract-intelligence-api/internal/completion"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/retrieval"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
)

// Prompt bounds. The context given to the provider is capped so a handful of
// large chunks cannot produce an oversized prompt.
const (
	maxPromptContext = 6000
	maxAnswerTokens  = 500
)

// Attribution floor: a supplied chunk is cited when at least this many of
// its distinct content tokens reappear in the answer text.
const minSharedTokens = 2

// CompletionBacked synthesizes answers through the completion-provider
// collaborator and fails over to the extractive strategy on any provider
// error, timeout, or malformed output. Citations are never parsed out of the
// provider's free text: they are derived from the chunks that were supplied,
// filtered by a post-hoc token-overlap check between answer and chunk.
type CompletionBacked struct {
	provider completion.Provider
	fallback *Extractive
	resolver *citation.Resolver
	tokens   Tokenizer
	timeout  time.Duration
	logger   *utils.Logger
}

func NewCompletionBacked(
	provider completion.Provider,
	fallback *Extractive,
	resolver *citation.Resolver,
	tokens Tokenizer,
	timeout time.Duration,
	logger *utils.Logger,
) *CompletionBacked {
	return &CompletionBacked{
		provider: provider,
		fallback: fallback,
		resolver: resolver,
		tokens:   tokens,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *CompletionBacked) Answer(ctx context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) *models.Answer {
	if len(ranked) == 0 {
		return emptyAnswer()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.provider.Complete(callCtx, buildPrompt(question, ranked), s.options())
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("completion provider failed, using extractive fallback", "error", err)
		return s.fallback.Answer(ctx, question, ranked, pages)
	}

	return &models.Answer{
		Text:      text,
		Citations: s.attribute(text, ranked, pages),
	}
}

func (s *CompletionBacked) Stream(ctx context.Context, question string, ranked []retrieval.ScoredChunk, pages PageTexts) <-chan models.StreamEvent {
	out := make(chan models.StreamEvent)
	go func() {
		defer close(out)

		if len(ranked) == 0 {
			streamAnswer(ctx, out, emptyAnswer())
			return
		}

		fragments, err := s.provider.CompleteStream(ctx, buildPrompt(question, ranked), s.options())
		if err != nil {
			s.logger.Warn("completion stream failed to start, using extractive fallback", "error", err)
			streamAnswer(ctx, out, s.fallback.Answer(ctx, question, ranked, pages))
			return
		}

		var assembled strings.Builder
		for fragment := range fragments {
			if fragment.Err != nil {
				if assembled.Len() == 0 {
					s.logger.Warn("completion stream failed, using extractive fallback", "error", fragment.Err)
					streamAnswer(ctx, out, s.fallback.Answer(ctx, question, ranked, pages))
					return
				}
				// Mid-stream failure after tokens went out: keep what the
				// consumer already has and attribute the partial text.
				s.logger.Warn("completion stream interrupted", "error", fragment.Err)
				break
			}
			if !send(ctx, out, models.StreamEvent{Token: fragment.Text}) {
				return
			}
			assembled.WriteString(fragment.Text)
		}
		if ctx.Err() != nil {
			return
		}

		if assembled.Len() == 0 {
			streamAnswer(ctx, out, s.fallback.Answer(ctx, question, ranked, pages))
			return
		}

		send(ctx, out, models.StreamEvent{
			Citations: s.attribute(assembled.String(), ranked, pages),
			Done:      true,
		})
	}()
	return out
}

func (s *CompletionBacked) options() completion.Options {
	return completion.Options{MaxTokens: maxAnswerTokens, Temperature: 0.1}
}

// attribute keeps the citations of supplied chunks the answer actually drew
// on, judged by shared content tokens. Every chunk given to the provider is
// a candidate; nothing outside the supplied set can ever be cited. If the
// overlap check matches nothing the top-ranked chunk is cited, so a
// completion-backed answer stays traceable.
func (s *CompletionBacked) attribute(answerText string, ranked []retrieval.ScoredChunk, pages PageTexts) []models.Citation {
	answerSet := make(map[string]struct{})
	for _, tok := range s.tokens.Tokenize(answerText) {
		answerSet[tok] = struct{}{}
	}

	citations := make([]models.Citation, 0, len(ranked))
	for _, rc := range ranked {
		shared := 0
		seen := make(map[string]struct{})
		for _, tok := range s.tokens.Tokenize(rc.Chunk.Text) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := answerSet[tok]; ok {
				shared++
			}
		}
		if shared < minSharedTokens {
			continue
		}
		pageText := pages.Text(rc.Chunk.DocumentID, rc.Chunk.Page)
		citations = append(citations, s.resolver.Resolve(pageText, rc.Chunk, nil))
	}

	if len(citations) == 0 {
		top := ranked[0].Chunk
		citations = append(citations, s.resolver.Resolve(pages.Text(top.DocumentID, top.Page), top, nil))
	}

	return citations
}

// buildPrompt assembles a bounded prompt: the question plus the top chunks,
// each tagged with an internal reference id.
func buildPrompt(question string, ranked []retrieval.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("You are a contract analysis assistant. Answer the question using only the contract excerpts below.\n\n")

	used := 0
	for i, rc := range ranked {
		text := rc.Chunk.Text
		if used+len(text) > maxPromptContext {
			text = text[:maxPromptContext-used]
		}
		if strings.TrimSpace(text) == "" {
			break
		}
		fmt.Fprintf(&b, "[C%d] (page %d)\n%s\n\n", i+1, rc.Chunk.Page, text)
		used += len(text)
		if used >= maxPromptContext {
			break
		}
	}

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}
