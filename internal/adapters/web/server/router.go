package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netwarden/netwarden/internal/adapters/web/middleware"
)

// SetupRoutes builds the full HTTP surface.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	// Ingestion is the only rate-limited surface: collectors batch on their
	// side, operators browse freely.
	ingest := http.Handler(http.HandlerFunc(s.IngestHandler.HandleIngest))
	if s.IngestRateLimit > 0 {
		limiter := middleware.NewRateLimiter(s.IngestRateLimit, 1*time.Minute)
		ingest = limiter.Middleware(ingest)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/ingest", ingest).Methods(http.MethodPost)
	api.HandleFunc("/predict", s.PredictHandler.HandlePredict).Methods(http.MethodPost)
	api.HandleFunc("/predict/batch", s.PredictHandler.HandlePredictBatch).Methods(http.MethodPost)

	api.HandleFunc("/anomalies", s.AnomalyHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/anomalies/stats", s.AnomalyHandler.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/anomalies/{id}", s.AnomalyHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/anomalies/{id}/status", s.AnomalyHandler.HandleTransition).Methods(http.MethodPut)

	api.HandleFunc("/alerts", s.AlertHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}", s.AlertHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/ack", s.AlertHandler.HandleAcknowledge).Methods(http.MethodPost)

	api.HandleFunc("/models", s.ModelHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/models/{version}", s.ModelHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/models/{version}", s.ModelHandler.HandleRetire).Methods(http.MethodDelete)
	api.HandleFunc("/models/{version}/metrics", s.ModelHandler.HandleReportMetrics).Methods(http.MethodPost)

	api.HandleFunc("/audit", s.AuditHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/reports/incidents", s.ReportHandler.HandleIncidentReport).Methods(http.MethodGet)

	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
