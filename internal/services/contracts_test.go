package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/Dhruv501/contract-intelligence-api/internal/config"
	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/Dhruv501/contract-intelligence-api/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	docs   map[string]*models.Document
	pages  map[string][]models.Page
	fields map[string]*models.ExtractedFields
	order  []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:   make(map[string]*models.Document),
		pages:  make(map[string][]models.Page),
		fields: make(map[string]*models.ExtractedFields),
	}
}

func (r *fakeRepo) Create(_ context.Context, doc *models.Document, pages []models.Page) error {
	r.docs[doc.ID] = doc
	r.pages[doc.ID] = pages
	r.order = append(r.order, doc.ID)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	return r.docs[id], nil
}

func (r *fakeRepo) GetPages(_ context.Context, id string) ([]models.Page, error) {
	return r.pages[id], nil
}

func (r *fakeRepo) ListIDs(_ context.Context) ([]string, error) {
	return r.order, nil
}

func (r *fakeRepo) SaveExtractedFields(_ context.Context, id string, fields *models.ExtractedFields) error {
	r.fields[id] = fields
	return nil
}

func (r *fakeRepo) GetExtractedFields(_ context.Context, id string) (*models.ExtractedFields, error) {
	return r.fields[id], nil
}

// fakeStorage records uploads and deletes.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Download(_ context.Context, key string) ([]byte, error) {
	return s.objects[key], nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:                    800,
		ChunkOverlap:                 160,
		TopK:                         3,
		RelevanceFloor:               0.05,
		AutoRenewalNoticeDays:        30,
		ConfidentialitySurvivalYears: 5,
		LLMEnabled:                   false,
	}
}

func newTestService(t *testing.T) (ContractService, *fakeRepo, *fakeStorage) {
	t.Helper()
	repo := newFakeRepo()
	store := newFakeStorage()
	logger := utils.NewLogger("error")

	service, err := NewService(repo, store, testConfig(), metrics.NewCollector(), webhook.NewEmitter("", logger), logger)
	require.NoError(t, err)
	return service, repo, store
}

func seedDocument(t *testing.T, repo *fakeRepo, id, text string) {
	t.Helper()
	err := repo.Create(context.Background(),
		&models.Document{ID: id, Filename: id + ".txt", ContentType: "text/plain", PageCount: 1},
		[]models.Page{{DocumentID: id, Number: 1, Text: text}})
	require.NoError(t, err)
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok, "expected AppError, got %T", err)
	return appErr.StatusCode
}

func TestIngestTextDocument(t *testing.T) {
	service, repo, store := newTestService(t)

	doc, warnings, err := service.IngestDocument(context.Background(),
		"msa.txt", "text/plain", []byte("The parties agree to the attached statement of work."))

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, doc.PageCount)
	assert.NotEmpty(t, doc.ID)

	assert.Contains(t, repo.docs, doc.ID)
	assert.Len(t, repo.pages[doc.ID], 1)
	assert.Contains(t, store.objects, doc.S3Key)
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	service, _, _ := newTestService(t)

	_, _, err := service.IngestDocument(context.Background(), "sheet.xlsx",
		"application/vnd.ms-excel", []byte("binary"))

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
}

func TestGetDocumentNotFound(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.GetDocument(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestAskRequiresQuestion(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Ask(context.Background(), "   ", nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
}

func TestAskUnknownExplicitDocument(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1", "Termination requires ninety days notice.")

	_, err := service.Ask(context.Background(), "termination notice", []string{"doc-missing"})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestAskAnswersWithCitations(t *testing.T) {
	service, repo, _ := newTestService(t)
	text := "Either party may terminate this agreement with ninety days written notice. " +
		"Payment is due within thirty days of invoicing."
	seedDocument(t, repo, "doc-1", text)

	answer, err := service.Ask(context.Background(), "How much notice to terminate?", nil)

	require.NoError(t, err)
	require.Len(t, answer.Citations, 1)
	cited := answer.Citations[0]
	assert.Equal(t, "doc-1", cited.DocumentID)
	assert.Equal(t, text[cited.CharRange.Start():cited.CharRange.End()], cited.TextSnippet)
	assert.Contains(t, cited.TextSnippet, "ninety days written notice")
}

func TestAskSearchesWholeCorpusByDefault(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1", "Payment is due within thirty days of invoicing.")
	seedDocument(t, repo, "doc-2", "Confidential information survives termination for two years.")

	answer, err := service.Ask(context.Background(), "How long does confidential information survive?", nil)

	require.NoError(t, err)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, "doc-2", answer.Citations[0].DocumentID)
}

func TestAskStopwordOnlyQuestionHasNoSignal(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1", "The vendor delivers the services described in Annex A.")

	answer, err := service.Ask(context.Background(), "What is this for?", nil)

	require.NoError(t, err)
	assert.True(t, answer.NoSignal)
	assert.Empty(t, answer.Citations, "zero-relevance chunks must never be cited")
}

func TestAskEmptyCorpus(t *testing.T) {
	service, _, _ := newTestService(t)

	answer, err := service.Ask(context.Background(), "anything at all?", nil)

	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
	assert.True(t, answer.NoSignal)
}

func TestAskStreamDeliversTerminalCitations(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1", "Either party may terminate with ninety days written notice.")

	events, err := service.AskStream(context.Background(), "How much notice to terminate?", nil)
	require.NoError(t, err)

	var sawToken, sawTerminal bool
	for ev := range events {
		if ev.Done {
			sawTerminal = true
			assert.NotEmpty(t, ev.Citations)
			continue
		}
		sawToken = true
	}
	assert.True(t, sawToken)
	assert.True(t, sawTerminal)
}

func TestAuditFindsRisks(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1",
		"The vendor accepts unlimited liability for all damages arising hereunder. "+
			"This agreement is governed by the laws of the State of New York.")

	resp, err := service.Audit(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1", resp.DocumentID)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "unlimited_liability", resp.Findings[0].RiskType)
}

func TestAuditUnknownDocument(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Audit(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestExtractFieldsPersistsAndCaches(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1",
		"This Agreement is between Acme Corporation and Beta Industries Ltd. "+
			"Effective Date: January 1, 2025.")

	first, err := service.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Contains(t, first.Parties, "Acme Corporation")
	require.NotNil(t, repo.fields["doc-1"])

	// Second call serves the stored result.
	repo.pages["doc-1"] = nil
	second, err := service.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunksAreCached(t *testing.T) {
	service, repo, _ := newTestService(t)
	seedDocument(t, repo, "doc-1", "Some page text worth chunking into pieces.")

	first, err := service.Chunks(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Pages disappearing no longer matters once the chunk set is cached,
	// but the lookup still needs the document to exist.
	second, err := service.Chunks(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
