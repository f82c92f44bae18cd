package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/Dhruv501/contract-intelligence-api/internal/services"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/gorilla/mux"
)

const (
	MaxFileSize = 10 << 20 // 10MB per file
)

type ContractHandler struct {
	service   services.ContractService
	collector *metrics.Collector
	logger    *utils.Logger
}

func NewContractHandler(service services.ContractService, collector *metrics.Collector, logger *utils.Logger) *ContractHandler {
	return &ContractHandler{
		service:   service,
		collector: collector,
		logger:    logger,
	}
}

// Ingest accepts one or more contract files in the multipart "files" field
// and returns the IDs of every stored document. The batch is atomic per file:
// one bad file fails the whole request before anything else is reported.
func (h *ContractHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, utils.NewBadRequestError("File size exceeds 10MB limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		h.respondError(w, utils.NewBadRequestError("No files provided"))
		return
	}

	resp := &models.IngestResponse{}
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			h.respondError(w, utils.NewBadRequestError("Failed to open uploaded file"))
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
		file.Close()
		if err != nil {
			h.respondError(w, utils.NewInternalError("Failed to read file"))
			return
		}
		if len(data) > MaxFileSize {
			h.respondError(w, utils.NewBadRequestError("File size exceeds 10MB limit"))
			return
		}
		if len(data) == 0 {
			h.respondError(w, utils.NewBadRequestError("Uploaded file is empty"))
			return
		}

		contentType := determineContentType(header.Filename, header.Header.Get("Content-Type"))
		doc, warnings, err := h.service.IngestDocument(r.Context(), header.Filename, contentType, data)
		if err != nil {
			h.respondError(w, err)
			return
		}

		resp.DocumentIDs = append(resp.DocumentIDs, doc.ID)
		resp.Warnings = append(resp.Warnings, warnings...)
	}
	resp.Count = len(resp.DocumentIDs)

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *ContractHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Document ID is required"))
		return
	}

	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, doc)
}

func (h *ContractHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}

	answer, err := h.service.Ask(r.Context(), req.Question, req.DocumentIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, answer)
}

// AskStream answers over server-sent events. Each token is one
// `data: {"token":...,"done":false}` event; the stream ends with a single
// `{"citations":[...],"done":true}` event. A client disconnect just stops
// the stream, with no terminal event.
func (h *ContractHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, utils.NewInternalError("Streaming is not supported"))
		return
	}

	events, err := h.service.AskStream(r.Context(), req.Question, req.DocumentIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal stream event", "error", err)
			return
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *ContractHandler) Audit(w http.ResponseWriter, r *http.Request) {
	var req models.AuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}
	if req.DocumentID == "" {
		h.respondError(w, utils.NewBadRequestError("Document ID is required"))
		return
	}

	resp, err := h.service.Audit(r.Context(), req.DocumentID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ContractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}
	if req.DocumentID == "" {
		h.respondError(w, utils.NewBadRequestError("Document ID is required"))
		return
	}

	fields, err := h.service.ExtractFields(r.Context(), req.DocumentID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, fields)
}

func (h *ContractHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.collector.Snapshot())
}

// determineContentType resolves the content type from the filename extension,
// falling back to the multipart header.
func determineContentType(filename, headerContentType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	}
	return headerContentType
}

func (h *ContractHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *ContractHandler) respondError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch e := err.(type) {
	case *utils.AppError:
		status = e.StatusCode
		message = e.Message
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	h.logger.Error("Request error", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
