package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/audit"
)

// ModelHandler exposes registry metadata and the operator-facing model
// operations: retirement and metrics reporting. Model code itself is loaded
// at startup; the API never accepts model binaries.
type ModelHandler struct {
	Registry ports.ModelRegistry
	Audit    ports.AuditService
}

func NewModelHandler(reg ports.ModelRegistry, auditSvc ports.AuditService) *ModelHandler {
	return &ModelHandler{Registry: reg, Audit: auditSvc}
}

type modelListResponse struct {
	Models []domain.ModelInfo `json:"models"`
	Active int                `json:"active"`
}

// HandleList returns metadata for every known model version.
func (h *ModelHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	models := h.Registry.List()
	sort.Slice(models, func(i, j int) bool { return models[i].Version < models[j].Version })

	active := 0
	for _, m := range models {
		if m.Active {
			active++
		}
	}

	respondJSON(w, http.StatusOK, modelListResponse{Models: models, Active: active})
}

// HandleGet returns metadata for one model version, active or retired.
func (h *ModelHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]
	info, err := h.Registry.Info(version)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotFound) {
			respondError(w, http.StatusNotFound, "model version not found")
			return
		}
		log.Printf("Get model %s failed: %v", version, err)
		respondError(w, http.StatusInternalServerError, "failed to load model info")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// HandleRetire removes a version from the active set. In-flight scoring calls
// holding a snapshot finish with the retired model.
func (h *ModelHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	ctx := audit.WithActor(r.Context(), operatorFrom(r))
	if err := h.Registry.Retire(version); err != nil {
		if errors.Is(err, domain.ErrModelNotFound) {
			respondError(w, http.StatusNotFound, "model version not found or already retired")
			return
		}
		log.Printf("Retire model %s failed: %v", version, err)
		respondError(w, http.StatusInternalServerError, "failed to retire model")
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Log(ctx, domain.ActionModelRetire, version, "model retired"); err != nil {
			log.Printf("Audit log for model %s failed: %v", version, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"version": version, "status": "retired"})
}

// HandleReportMetrics records performance figures for a model version.
func (h *ModelHandler) HandleReportMetrics(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	var metrics domain.ModelMetrics
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for name, v := range map[string]float64{
		"accuracy": metrics.Accuracy, "precision": metrics.Precision, "recall": metrics.Recall,
	} {
		if v < 0 || v > 1 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("%s must be within [0,1]", name))
			return
		}
	}

	ctx := audit.WithActor(r.Context(), operatorFrom(r))
	if err := h.Registry.ReportMetrics(version, metrics); err != nil {
		if errors.Is(err, domain.ErrModelNotFound) {
			respondError(w, http.StatusNotFound, "model version not found")
			return
		}
		log.Printf("Report metrics for model %s failed: %v", version, err)
		respondError(w, http.StatusInternalServerError, "failed to record metrics")
		return
	}

	if h.Audit != nil {
		details := fmt.Sprintf("accuracy=%.3f precision=%.3f recall=%.3f", metrics.Accuracy, metrics.Precision, metrics.Recall)
		if err := h.Audit.Log(ctx, domain.ActionModelMetrics, version, details); err != nil {
			log.Printf("Audit log for model %s failed: %v", version, err)
		}
	}

	info, err := h.Registry.Info(version)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"version": version, "status": "recorded"})
		return
	}
	respondJSON(w, http.StatusOK, info)
}
