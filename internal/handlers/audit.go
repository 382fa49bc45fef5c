package handlers

import (
	"net/http"
	"strconv"

	apperrors "steam_bridge/internal/errors"
	"steam_bridge/internal/services"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	deps *Dependencies
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(deps *Dependencies) *AuditHandler {
	return &AuditHandler{deps: deps}
}

// Recent returns the latest audit entries, newest first. The limit query
// parameter caps the page size at 500, defaulting to 50.
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.deps.AuditService == nil {
		writeError(w, apperrors.NotFound("Audit log"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperrors.Validation("limit must be a positive integer"))
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	var (
		entries any
		err     error
	)
	switch {
	case r.URL.Query().Get("sessionId") != "":
		entries, err = h.deps.AuditService.GetBySessionID(r.URL.Query().Get("sessionId"), limit, 0)
	case r.URL.Query().Get("action") != "":
		entries, err = h.deps.AuditService.GetByAction(services.AuditAction(r.URL.Query().Get("action")), limit, 0)
	default:
		entries, err = h.deps.AuditService.GetRecent(limit)
	}
	if err != nil {
		writeError(w, apperrors.Internal("reading audit log", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
	})
}
