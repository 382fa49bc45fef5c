package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "steam_bridge/internal/errors"
	"steam_bridge/internal/middleware"
	"steam_bridge/internal/services"
	"steam_bridge/internal/steam"
)

// ConfirmationsHandler handles mobile confirmation routes.
type ConfirmationsHandler struct {
	deps *Dependencies
}

// NewConfirmationsHandler creates a new ConfirmationsHandler.
func NewConfirmationsHandler(deps *Dependencies) *ConfirmationsHandler {
	return &ConfirmationsHandler{deps: deps}
}

// List returns the pending confirmations for a session.
func (h *ConfirmationsHandler) List(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	confirmations, err := client.GetConfirmations()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"confirmations": confirmations,
	})
}

// Accept approves a single confirmation.
func (h *ConfirmationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accepted", services.AuditConfAccepted, (*steam.Client).AcceptConfirmation)
}

// Cancel cancels a single confirmation.
func (h *ConfirmationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "cancelled", services.AuditConfCanceled, (*steam.Client).CancelConfirmation)
}

// respond runs a single-confirmation action and reports its outcome.
func (h *ConfirmationsHandler) respond(w http.ResponseWriter, r *http.Request, action string, auditAction services.AuditAction, op func(*steam.Client, string) error) {
	sessionID := sessionFromRequest(r)
	rec, client, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	confirmationID := chi.URLParam(r, "confirmationId")
	if err := op(client, confirmationID); err != nil {
		if errors.Is(err, steam.ErrConfirmationNotFound) {
			writeError(w, apperrors.NotFound("Confirmation"))
			return
		}
		writeError(w, apperrors.External(err))
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, auditAction, confirmationID, nil, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"confirmationId": confirmationID,
		"action":         action,
	})
}

// AcceptAll approves every pending confirmation with one bulk vendor call.
func (h *ConfirmationsHandler) AcceptAll(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r)
	rec, client, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	accepted, err := client.AcceptAllConfirmations()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	if len(accepted) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"accepted": 0,
			"message":  "No confirmations to accept",
		})
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, services.AuditConfAcceptedAll, "",
		map[string]any{"count": len(accepted)}, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"accepted":      len(accepted),
		"confirmations": accepted,
	})
}

// CancelAll cancels pending confirmations one at a time. Per-item failures
// land in the errors array, the batch itself still succeeds.
func (h *ConfirmationsHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r)
	rec, client, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	cancelled, itemErrors, err := client.CancelAllConfirmations()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	if cancelled == 0 && len(itemErrors) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"cancelled": 0,
			"message":   "No confirmations to cancel",
		})
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, services.AuditConfCanceledAll, "",
		map[string]any{"cancelled": cancelled, "failed": len(itemErrors)}, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"cancelled": cancelled,
		"errors":    itemErrors,
	})
}

// Details resolves the trade offer behind a confirmation.
func (h *ConfirmationsHandler) Details(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	confirmationID := chi.URLParam(r, "confirmationId")
	offerID, err := client.ConfirmationOfferID(confirmationID)
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"confirmationId": confirmationID,
		"offerID":        offerID,
	})
}
