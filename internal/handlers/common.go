// Package handlers provides HTTP handlers for the trading bridge.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "steam_bridge/internal/errors"
	"steam_bridge/internal/session"
	"steam_bridge/internal/steam"
)

// writeJSON serializes payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps an error to its HTTP status and emits the bridge's error
// shape. Vendor messages pass through verbatim.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("Invalid JSON body")
	}
	return nil
}

// clientFor extracts the adapter client from a session record.
func clientFor(rec *session.Record) (*steam.Client, error) {
	client, ok := rec.Client.(*steam.Client)
	if !ok || client == nil {
		return nil, apperrors.Internal("session has no client", nil)
	}
	return client, nil
}

// resolveSession looks the session up and unwraps its client. Absence is a
// single unauthorized signal, expired and never-created are not
// distinguishable from the caller's side.
func resolveSession(registry *session.Registry, sessionID string) (*session.Record, *steam.Client, error) {
	if sessionID == "" {
		return nil, nil, apperrors.Unauthorized("")
	}
	rec, ok := registry.Get(sessionID)
	if !ok {
		return nil, nil, apperrors.Unauthorized("")
	}
	client, err := clientFor(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, client, nil
}

// sessionFromRequest reads the session identifier from the query string
// first, then from a JSON body for mutating requests.
func sessionFromRequest(r *http.Request) string {
	if id := r.URL.Query().Get("sessionId"); id != "" {
		return id
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		return body.SessionID
	}
	return ""
}
