package router

import (
	"net/http"

	"github.com/Dhruv501/contract-intelligence-api/internal/handlers"
	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/middleware"
	"github.com/Dhruv501/contract-intelligence-api/internal/services"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(service services.ContractService, collector *metrics.Collector, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	handler := handlers.NewContractHandler(service, collector, logger)

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/metrics", handler.Metrics).Methods(http.MethodGet)

	// Contract endpoints
	api.HandleFunc("/documents/ingest", handler.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}", handler.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/ask", handler.Ask).Methods(http.MethodPost)
	api.HandleFunc("/ask/stream", handler.AskStream).Methods(http.MethodPost)
	api.HandleFunc("/audit", handler.Audit).Methods(http.MethodPost)
	api.HandleFunc("/extract", handler.Extract).Methods(http.MethodPost)

	return r
}
