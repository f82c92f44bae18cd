package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/audit"
	"github.com/Dhruv501/contract-intelligence-api/internal/chunker"
	"github.com/Dhruv501/contract-intelligence-api/internal/citation"
	"github.com/Dhruv501/contract-intelligence-api/internal/completion"
	"github.com/Dhruv501/contract-intelligence-api/internal/config"
	"github.com/Dhruv501/contract-intelligence-api/internal/extractor"
	"github.com/Dhruv501/contract-intelligence-api/internal/fields"
	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/repository"
	"github.com/Dhruv501/contract-intelligence-api/internal/retrieval"
	"github.com/Dhruv501/contract-intelligence-api/internal/storage"
	"github.com/Dhruv501/contract-intelligence-api/internal/synthesizer"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/Dhruv501/contract-intelligence-api/internal/webhook"
)

type ContractService interface {
	IngestDocument(ctx context.Context, filename, contentType string, data []byte) (*models.Document, []string, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	Ask(ctx context.Context, question string, documentIDs []string) (*models.Answer, error)
	AskStream(ctx context.Context, question string, documentIDs []string) (<-chan models.StreamEvent, error)
	Audit(ctx context.Context, documentID string) (*models.AuditResponse, error)
	ExtractFields(ctx context.Context, documentID string) (*models.ExtractedFields, error)
	Chunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}

type contractService struct {
	repo     repository.Repository
	storage  storage.Storage
	chunker  *chunker.Chunker
	cache    *chunker.Cache
	scorer   *retrieval.Scorer
	auditor  *audit.Auditor
	strategy synthesizer.Strategy
	metrics  *metrics.Collector
	webhook  *webhook.Emitter
	logger   *utils.Logger
	topK     int
}

// NewService wires the retrieval, citation, and rule-evidence engine. A
// malformed rule pattern fails here, before the server starts serving.
func NewService(
	repo repository.Repository,
	store storage.Storage,
	cfg *config.Config,
	collector *metrics.Collector,
	emitter *webhook.Emitter,
	logger *utils.Logger,
) (ContractService, error) {
	resolver := citation.NewResolver()
	scorer := retrieval.NewScorer(cfg.TopK, cfg.RelevanceFloor)

	auditor, err := audit.NewAuditor(audit.DefaultRules(audit.Policy{
		AutoRenewalNoticeDays:        cfg.AutoRenewalNoticeDays,
		ConfidentialitySurvivalYears: cfg.ConfidentialitySurvivalYears,
	}), resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk rule library: %w", err)
	}

	extractive := synthesizer.NewExtractive(resolver, scorer)
	var strategy synthesizer.Strategy = extractive
	if cfg.LLMEnabled {
		provider := completion.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.ProviderTimeout, logger)
		strategy = synthesizer.NewCompletionBacked(provider, extractive, resolver, scorer, cfg.ProviderTimeout, logger)
	}

	return &contractService{
		repo:     repo,
		storage:  store,
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		cache:    chunker.NewCache(),
		scorer:   scorer,
		auditor:  auditor,
		strategy: strategy,
		metrics:  collector,
		webhook:  emitter,
		logger:   logger,
		topK:     cfg.TopK,
	}, nil
}

func (s *contractService) IngestDocument(ctx context.Context, filename, contentType string, data []byte) (*models.Document, []string, error) {
	var result *extractor.Result
	var err error

	switch contentType {
	case "application/pdf":
		result, err = extractor.ExtractPDF(data)
	case "text/plain":
		result, err = extractor.ExtractTXT(data)
	default:
		s.logger.Warn("unsupported content type", "content_type", contentType, "filename", filename)
		return nil, nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported file type '%s'. Only PDF and plain text are allowed", contentType))
	}
	if err != nil {
		s.logger.Error("failed to extract text", "error", err, "filename", filename)
		return nil, nil, utils.NewBadRequestError(fmt.Sprintf("Failed to extract text from document: %v", err))
	}

	docID := utils.GenerateDocumentID(data)
	s3Key := fmt.Sprintf("contracts/%s/%s", docID, filename)

	if err := s.storage.Upload(ctx, s3Key, data, contentType); err != nil {
		s.logger.Error("failed to upload to S3", "error", err, "s3_key", s3Key)
		return nil, nil, utils.NewInternalError("Failed to store document")
	}

	doc := &models.Document{
		ID:          docID,
		Filename:    filename,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		S3Key:       s3Key,
		PageCount:   result.PageCount,
		Truncated:   result.Truncated,
		CreatedAt:   time.Now(),
	}

	pages := make([]models.Page, len(result.Pages))
	for i, page := range result.Pages {
		page.DocumentID = docID
		pages[i] = page
	}

	if err := s.repo.Create(ctx, doc, pages); err != nil {
		s.logger.Error("failed to save document", "error", err, "doc_id", docID)
		_ = s.storage.Delete(ctx, s3Key)
		return nil, nil, utils.NewInternalError("Failed to save document")
	}

	s.metrics.Increment("documents_ingested")
	go s.webhook.Emit(context.Background(), "document.ingested", map[string]any{
		"document_id": docID,
		"filename":    filename,
	})

	s.logger.Info("document ingested",
		"id", docID,
		"filename", filename,
		"pages", doc.PageCount,
		"truncated", doc.Truncated)

	return doc, result.Warnings, nil
}

func (s *contractService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get document", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve document")
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}
	return doc, nil
}

func (s *contractService) Ask(ctx context.Context, question string, documentIDs []string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, utils.NewBadRequestError("Question is required")
	}

	ranked, pages, err := s.retrieve(ctx, question, documentIDs)
	if err != nil {
		return nil, err
	}

	answer := s.strategy.Answer(ctx, question, ranked, pages)
	s.metrics.Increment("questions_asked")

	return answer, nil
}

func (s *contractService) AskStream(ctx context.Context, question string, documentIDs []string) (<-chan models.StreamEvent, error) {
	if strings.TrimSpace(question) == "" {
		return nil, utils.NewBadRequestError("Question is required")
	}

	ranked, pages, err := s.retrieve(ctx, question, documentIDs)
	if err != nil {
		return nil, err
	}

	s.metrics.Increment("questions_asked")
	return s.strategy.Stream(ctx, question, ranked, pages), nil
}

func (s *contractService) Audit(ctx context.Context, documentID string) (*models.AuditResponse, error) {
	pages, err := s.pagesOf(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunks := s.chunksOf(documentID, pages)
	findings := s.auditor.Audit(documentID, pages, chunks)

	s.metrics.Increment("audits_performed")
	go s.webhook.Emit(context.Background(), "document.audited", map[string]any{
		"document_id":    documentID,
		"findings_count": len(findings),
	})

	return &models.AuditResponse{
		DocumentID: documentID,
		Findings:   findings,
		Count:      len(findings),
	}, nil
}

func (s *contractService) ExtractFields(ctx context.Context, documentID string) (*models.ExtractedFields, error) {
	existing, err := s.repo.GetExtractedFields(ctx, documentID)
	if err != nil {
		s.logger.Error("failed to load extracted fields", "error", err, "id", documentID)
		return nil, utils.NewInternalError("Failed to load extracted fields")
	}
	if existing != nil {
		return existing, nil
	}

	pages, err := s.pagesOf(ctx, documentID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}

	extracted := fields.Extract(strings.Join(texts, "\n"))
	if err := s.repo.SaveExtractedFields(ctx, documentID, extracted); err != nil {
		s.logger.Error("failed to save extracted fields", "error", err, "id", documentID)
		return nil, utils.NewInternalError("Failed to save extracted fields")
	}

	s.metrics.Increment("extractions_performed")
	go s.webhook.Emit(context.Background(), "document.extracted", map[string]any{
		"document_id": documentID,
	})

	return extracted, nil
}

// Chunks exposes the cached chunk set, for cache warm-up and testing.
func (s *contractService) Chunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	pages, err := s.pagesOf(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.chunksOf(documentID, pages), nil
}

// retrieve ranks chunks of the candidate documents against the question.
// Explicitly named unknown documents are an input error; when querying the
// whole corpus, documents without pages are skipped. Per-document work is
// independent; the chunk cache is the only shared state.
func (s *contractService) retrieve(ctx context.Context, question string, documentIDs []string) ([]retrieval.ScoredChunk, synthesizer.PageTexts, error) {
	explicit := len(documentIDs) > 0
	if !explicit {
		ids, err := s.repo.ListIDs(ctx)
		if err != nil {
			s.logger.Error("failed to list documents", "error", err)
			return nil, nil, utils.NewInternalError("Failed to list documents")
		}
		documentIDs = ids
	}

	var ranked []retrieval.ScoredChunk
	pageTexts := synthesizer.PageTexts{}

	for _, id := range documentIDs {
		pages, err := s.repo.GetPages(ctx, id)
		if err != nil {
			s.logger.Error("failed to load pages", "error", err, "id", id)
			return nil, nil, utils.NewInternalError("Failed to load document pages")
		}
		if pages == nil {
			if explicit {
				return nil, nil, utils.NewNotFoundError(fmt.Sprintf("Document %s not found", id))
			}
			continue
		}

		chunks := s.chunksOf(id, pages)
		result := s.scorer.Score(question, chunks)
		if result.NoSignal {
			// A query with no scorable tokens ranks nothing. The document-order
			// chunks the scorer returns are not relevance hits and must never
			// become citations; an empty ranking makes the synthesizer produce
			// the no-signal answer.
			continue
		}
		ranked = append(ranked, result.Chunks...)

		texts := make(map[int]string, len(pages))
		for _, page := range pages {
			texts[page.Number] = page.Text
		}
		pageTexts[id] = texts
	}

	retrieval.SortRanked(ranked)
	if len(ranked) > s.topK {
		ranked = ranked[:s.topK]
	}

	return ranked, pageTexts, nil
}

func (s *contractService) pagesOf(ctx context.Context, documentID string) ([]models.Page, error) {
	pages, err := s.repo.GetPages(ctx, documentID)
	if err != nil {
		s.logger.Error("failed to load pages", "error", err, "id", documentID)
		return nil, utils.NewInternalError("Failed to load document pages")
	}
	if pages == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}
	return pages, nil
}

func (s *contractService) chunksOf(documentID string, pages []models.Page) []models.Chunk {
	return s.cache.GetOrCompute(documentID, func() []models.Chunk {
		return s.chunker.Chunk(documentID, pages)
	})
}
