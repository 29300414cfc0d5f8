package handlers

import (
	"log"
	"net/http"

	"github.com/netwarden/netwarden/internal/core/ports"
)

const maxAuditLimit = 500

// AuditHandler exposes the operator action trail, newest first.
type AuditHandler struct {
	Audit ports.AuditService
}

func NewAuditHandler(auditSvc ports.AuditService) *AuditHandler {
	return &AuditHandler{Audit: auditSvc}
}

func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 100)
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	logs, err := h.Audit.GetLogs(r.Context(), limit)
	if err != nil {
		log.Printf("List audit logs failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}
