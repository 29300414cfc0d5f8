package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/services/pipeline"
)

// PredictHandler is the scoring boundary: single-sample and batch prediction
// without recording or alerting.
type PredictHandler struct {
	Pipeline *pipeline.Pipeline
}

func NewPredictHandler(p *pipeline.Pipeline) *PredictHandler {
	return &PredictHandler{Pipeline: p}
}

type predictResponse struct {
	pipeline.Prediction
	ProcessingMs float64 `json:"processing_time_ms"`
}

type batchPredictRequest struct {
	Samples []domain.FlowRecord `json:"samples"`
}

type batchPredictResponse struct {
	Predictions       []predictResponse `json:"predictions"`
	TotalSamples      int               `json:"total_samples"`
	AnomaliesDetected int               `json:"anomalies_detected"`
	ProcessingMs      float64           `json:"processing_time_ms"`
}

// HandlePredict scores one raw flow record.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var raw domain.FlowRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	pred, err := h.Pipeline.Predict(r.Context(), raw)
	if err != nil {
		h.predictionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, predictResponse{
		Prediction:   pred,
		ProcessingMs: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// HandlePredictBatch scores multiple samples in one call.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Samples) == 0 {
		respondError(w, http.StatusBadRequest, "no samples supplied")
		return
	}

	start := time.Now()
	resp := batchPredictResponse{TotalSamples: len(req.Samples)}
	for _, raw := range req.Samples {
		pred, err := h.Pipeline.Predict(r.Context(), raw)
		if err != nil {
			h.predictionError(w, err)
			return
		}
		if pred.IsAnomaly {
			resp.AnomaliesDetected++
		}
		resp.Predictions = append(resp.Predictions, predictResponse{Prediction: pred})
	}
	resp.ProcessingMs = float64(time.Since(start).Microseconds()) / 1000

	respondJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) predictionError(w http.ResponseWriter, err error) {
	var schemaErr *domain.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		respondError(w, http.StatusUnprocessableEntity, schemaErr.Error())
	case errors.Is(err, domain.ErrNoModelAvailable), errors.Is(err, domain.ErrEnsembleUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "prediction failed")
	}
}
