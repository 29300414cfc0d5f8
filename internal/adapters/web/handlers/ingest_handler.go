package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/services/pipeline"
)

// IngestHandler is the ingestion boundary consumed by traffic collectors.
type IngestHandler struct {
	Pipeline *pipeline.Pipeline
}

func NewIngestHandler(p *pipeline.Pipeline) *IngestHandler {
	return &IngestHandler{Pipeline: p}
}

type ingestRequest struct {
	Flows []domain.FlowRecord `json:"flows"`
}

type ingestResult struct {
	Accepted bool              `json:"accepted"`
	Error    string            `json:"error,omitempty"`
	Verdict  *pipeline.Verdict `json:"verdict,omitempty"`
}

type ingestResponse struct {
	Results  []ingestResult `json:"results"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
}

// HandleIngest runs a batch of raw flow records through the pipeline.
// Schema rejections are reported per record; an unavailable ensemble aborts
// the batch with 503 so the collector can retry or queue — an unscored
// sample is never reported as non-anomalous.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Flows) == 0 {
		respondError(w, http.StatusBadRequest, "no flow records supplied")
		return
	}

	resp := ingestResponse{Results: make([]ingestResult, 0, len(req.Flows))}
	for _, raw := range req.Flows {
		verdict, err := h.Pipeline.Ingest(r.Context(), raw)
		if err != nil {
			var schemaErr *domain.SchemaError
			switch {
			case errors.As(err, &schemaErr):
				resp.Results = append(resp.Results, ingestResult{Accepted: false, Error: schemaErr.Error()})
				resp.Rejected++
				continue
			case errors.Is(err, domain.ErrNoModelAvailable), errors.Is(err, domain.ErrEnsembleUnavailable):
				respondError(w, http.StatusServiceUnavailable, err.Error())
				return
			default:
				log.Printf("Ingest failed: %v", err)
				respondError(w, http.StatusInternalServerError, "ingest failed")
				return
			}
		}
		v := verdict
		resp.Results = append(resp.Results, ingestResult{Accepted: true, Verdict: &v})
		resp.Accepted++
	}

	respondJSON(w, http.StatusOK, resp)
}
