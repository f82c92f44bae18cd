package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// ScoredChunk pairs a chunk with its relevance score for one query.
type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

// Result is a ranked chunk set. NoSignal is set when the query carried no
// scorable tokens, in which case chunks come back in document order instead
// of being ranked.
type Result struct {
	Chunks   []ScoredChunk
	NoSignal bool
}

// Scorer ranks chunks against a query with a deterministic lexical score:
// term-frequency overlap weighted by smoothed inverse document frequency
// over the scored chunk set, plus a proximity bonus when distinct query
// tokens land within a short window of each other.
type Scorer struct {
	topK         int
	floor        float64
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

const proximityWindow = 8

func NewScorer(topK int, floor float64) *Scorer {
	if topK <= 0 {
		topK = 3
	}
	return &Scorer{
		topK:         topK,
		floor:        floor,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
		stopwords:    defaultStopwords(),
	}
}

// Score ranks chunks against query and returns at most topK of them. Chunks
// at or below the relevance floor are never returned; the result may hold
// fewer than topK entries rather than padding with irrelevant chunks.
func (s *Scorer) Score(query string, chunks []models.Chunk) Result {
	if len(chunks) == 0 {
		return Result{}
	}

	queryTokens := s.tokenize(query)
	if len(queryTokens) == 0 {
		return Result{Chunks: s.documentOrder(chunks), NoSignal: true}
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}

	// Document frequency of each query term across the chunk set.
	chunkTokens := make([][]string, len(chunks))
	df := make(map[string]int, len(querySet))
	for i, ch := range chunks {
		chunkTokens[i] = s.tokenize(ch.Text)
		seen := make(map[string]struct{})
		for _, tok := range chunkTokens[i] {
			if _, isQuery := querySet[tok]; !isQuery {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	n := float64(len(chunks))
	idf := make(map[string]float64, len(querySet))
	for term := range querySet {
		idf[term] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for i, ch := range chunks {
		score := s.scoreChunk(chunkTokens[i], querySet, idf)
		if score <= s.floor {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: ch, Score: score})
	}

	sortRanked(scored)
	if len(scored) > s.topK {
		scored = scored[:s.topK]
	}

	return Result{Chunks: scored}
}

func (s *Scorer) scoreChunk(tokens []string, querySet map[string]struct{}, idf map[string]float64) float64 {
	if len(tokens) == 0 {
		return 0
	}

	score := 0.0
	matched := 0
	lastHit := -1
	proximity := false
	var lastTerm string

	for i, tok := range tokens {
		if _, ok := querySet[tok]; !ok {
			continue
		}
		score += idf[tok]
		matched++
		if lastHit >= 0 && i-lastHit <= proximityWindow && tok != lastTerm {
			proximity = true
		}
		lastHit = i
		lastTerm = tok
	}

	if matched == 0 {
		return 0
	}

	// Length-normalize so long chunks do not win on bulk alone.
	score /= 1 + math.Log(float64(len(tokens)))

	if proximity {
		score *= 1.5
	}

	return score
}

// documentOrder returns the first topK chunks in (page, start_offset) order,
// each with a zero score.
func (s *Scorer) documentOrder(chunks []models.Chunk) []ScoredChunk {
	ordered := make([]ScoredChunk, 0, len(chunks))
	for _, ch := range chunks {
		ordered = append(ordered, ScoredChunk{Chunk: ch})
	}
	sortRanked(ordered)
	if len(ordered) > s.topK {
		ordered = ordered[:s.topK]
	}
	return ordered
}

// sortRanked orders by descending score, then (document, page, start_offset)
// ascending so ties are deterministic regardless of input order.
func sortRanked(ranked []ScoredChunk) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		a, b := ranked[i].Chunk, ranked[j].Chunk
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.StartOffset < b.StartOffset
	})
}

// SortRanked is the exported tie-break ordering used when merging ranked
// chunks from multiple documents.
func SortRanked(ranked []ScoredChunk) {
	sortRanked(ranked)
}

func (s *Scorer) tokenize(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, isStop := s.stopwords[tok]; isStop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Tokenize exposes the scorer's tokenization so answer attribution uses the
// same token space as relevance scoring.
func (s *Scorer) Tokenize(text string) []string {
	return s.tokenize(text)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "what", "which", "who", "whom", "when", "where", "how", "shall",
		"will", "does", "do", "did", "can", "may", "such", "any", "all", "its",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
