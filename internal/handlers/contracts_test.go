package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService scripts the service layer for handler tests.
type fakeService struct {
	doc     *models.Document
	answer  *models.Answer
	events  []models.StreamEvent
	audit   *models.AuditResponse
	fields  *models.ExtractedFields
	err     error
	askedQ  string
	askedID []string
}

func (s *fakeService) IngestDocument(_ context.Context, filename, contentType string, data []byte) (*models.Document, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return &models.Document{ID: "doc-1", Filename: filename, ContentType: contentType, FileSize: int64(len(data))}, nil, nil
}

func (s *fakeService) GetDocument(_ context.Context, id string) (*models.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *fakeService) Ask(_ context.Context, question string, ids []string) (*models.Answer, error) {
	s.askedQ, s.askedID = question, ids
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *fakeService) AskStream(_ context.Context, question string, ids []string) (<-chan models.StreamEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan models.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (s *fakeService) Audit(_ context.Context, id string) (*models.AuditResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.audit, nil
}

func (s *fakeService) ExtractFields(_ context.Context, id string) (*models.ExtractedFields, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.fields, nil
}

func (s *fakeService) Chunks(_ context.Context, id string) ([]models.Chunk, error) {
	return nil, nil
}

func newTestHandler(service *fakeService) *ContractHandler {
	return NewContractHandler(service, metrics.NewCollector(), utils.NewLogger("error"))
}

func TestAskReturnsAnswer(t *testing.T) {
	service := &fakeService{answer: &models.Answer{
		Text: "Ninety days.",
		Citations: []models.Citation{{
			DocumentID: "doc-1", Page: 1,
			CharRange: models.CharRange{0, 12}, TextSnippet: "Ninety days.",
		}},
	}}
	handler := newTestHandler(service)

	body := `{"question":"How much notice?","document_ids":["doc-1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "How much notice?", service.askedQ)
	assert.Equal(t, []string{"doc-1"}, service.askedID)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "Ninety days.", answer.Text)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, models.CharRange{0, 12}, answer.Citations[0].CharRange)
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskPropagatesServiceErrors(t *testing.T) {
	handler := newTestHandler(&fakeService{err: utils.NewNotFoundError("Document not found")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask",
		strings.NewReader(`{"question":"anything"}`))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Document not found")
}

func TestAskStreamEmitsServerSentEvents(t *testing.T) {
	service := &fakeService{events: []models.StreamEvent{
		{Token: "Ninety "},
		{Token: "days. "},
		{Citations: []models.Citation{{DocumentID: "doc-1", Page: 1}}, Done: true},
	}}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask/stream",
		strings.NewReader(`{"question":"How much notice?"}`))
	rec := httptest.NewRecorder()

	handler.AskStream(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 3)
	for _, frame := range frames {
		assert.True(t, strings.HasPrefix(frame, "data: "))
	}

	var last models.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[2], "data: ")), &last))
	assert.True(t, last.Done)
	require.Len(t, last.Citations, 1)
}

func TestAuditRequiresDocumentID(t *testing.T) {
	handler := newTestHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Audit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditReturnsFindings(t *testing.T) {
	cr := models.CharRange{10, 52}
	service := &fakeService{audit: &models.AuditResponse{
		DocumentID: "doc-1",
		Findings: []models.Finding{{
			RiskType: "unlimited_liability", Severity: models.SeverityHigh,
			DocumentID: "doc-1", Page: 1, CharRange: &cr, TextSnippet: "snippet",
		}},
		Count: 1,
	}}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit",
		strings.NewReader(`{"document_id":"doc-1"}`))
	rec := httptest.NewRecorder()

	handler.Audit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "unlimited_liability", resp.Findings[0].RiskType)
}

func TestIngestMultipleFiles(t *testing.T) {
	handler := newTestHandler(&fakeService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range []string{"a.txt", "b.txt"} {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("contract body"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/ingest", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.DocumentIDs, 2)
}

func TestIngestRejectsEmptyForm(t *testing.T) {
	handler := newTestHandler(&fakeService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/ingest", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument(t *testing.T) {
	service := &fakeService{doc: &models.Document{ID: "doc-1", Filename: "msa.pdf"}}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "doc-1"})
	rec := httptest.NewRecorder()

	handler.GetDocument(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "msa.pdf", doc.Filename)
}

func TestMetricsSnapshot(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Increment("questions_asked")
	handler := NewContractHandler(&fakeService{}, collector, utils.NewLogger("error"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()

	handler.Metrics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Counters["questions_asked"])
}
