package handlers

import (
	"log"
	"net/http"
	"time"

	apperrors "steam_bridge/internal/errors"
	"steam_bridge/internal/guard"
	"steam_bridge/internal/middleware"
	"steam_bridge/internal/services"
	"steam_bridge/internal/session"
	"steam_bridge/internal/steam"
)

// AuthHandler handles login, logout and health routes.
type AuthHandler struct {
	deps  *Dependencies
	start time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{deps: deps, start: time.Now()}
}

type loginRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	SharedSecret   string `json:"sharedSecret"`
	TwoFactorCode  string `json:"twoFactorCode"`
	IdentitySecret string `json:"identitySecret"`
	DeviceID       string `json:"deviceId"`
	SessionID      string `json:"sessionId"`
}

// maFileData mirrors the mobile authenticator export format.
type maFileData struct {
	SharedSecret   string `json:"shared_secret"`
	IdentitySecret string `json:"identity_secret"`
	DeviceID       string `json:"device_id"`
	AccountName    string `json:"account_name"`
}

type maFileLoginRequest struct {
	MAFileData *maFileData `json:"maFileData"`
	Password   string      `json:"password"`
	SessionID  string      `json:"sessionId"`
}

// register stores a freshly logged-in client and reports the session back.
// The record carries the client's secret material so the registry holds the
// full session state; the secrets never reach the response payload.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, client *steam.Client, sessionID string, extra map[string]any) {
	sharedSecret, identitySecret, deviceID := client.Secrets()
	rec := &session.Record{
		ID:             sessionID,
		Client:         client,
		SteamID:        client.SteamID(),
		AccountName:    client.AccountName(),
		SharedSecret:   sharedSecret,
		IdentitySecret: identitySecret,
		DeviceID:       deviceID,
		LoggedIn:       true,
	}
	sid := h.deps.Registry.Create(rec)

	if h.deps.OfferPollInterval > 0 {
		client.StartPolling(h.deps.OfferPollInterval)
	}

	h.deps.audit(sid, rec.SteamID, rec.AccountName, services.AuditLogin, "", nil, middleware.GetIP(r))

	payload := map[string]any{
		"success":   true,
		"sessionId": sid,
		"steamID":   rec.SteamID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}

// loginFailure reports a vendor login error, with the two-factor hint when
// the vendor message points at SteamGuard.
func (h *AuthHandler) loginFailure(w http.ResponseWriter, r *http.Request, username string, err error) {
	log.Printf("[Auth] Login failed for account: %v", err)
	h.deps.audit("", "", username, services.AuditLoginFailed, "", nil, middleware.GetIP(r))

	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":       err.Error(),
		"requires2FA": steam.RequiresTwoFactor(err),
	})
}

// Login authenticates with username and password, computing the auth code
// when a shared secret is supplied.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, apperrors.Validation("Username and password required"))
		return
	}

	client := steam.NewClient(h.deps.ClientOptions)
	var err error
	if req.SharedSecret != "" {
		err = client.LoginWithSharedSecret(req.Username, req.Password, req.SharedSecret)
	} else {
		err = client.Login(req.Username, req.Password, "")
	}
	if err != nil {
		client.Close()
		h.loginFailure(w, r, req.Username, err)
		return
	}

	h.register(w, r, client, req.SessionID, nil)
}

// Login2FA authenticates with a caller-supplied two-factor code.
func (h *AuthHandler) Login2FA(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" || req.TwoFactorCode == "" {
		writeError(w, apperrors.Validation("Username, password and 2FA code required"))
		return
	}

	client := steam.NewClient(h.deps.ClientOptions)
	if err := client.Login(req.Username, req.Password, req.TwoFactorCode); err != nil {
		client.Close()
		h.loginFailure(w, r, req.Username, err)
		return
	}

	h.register(w, r, client, req.SessionID, nil)
}

// LoginMAFile authenticates from a mobile authenticator export, keeping the
// identity secret and device id for later confirmation proofs.
func (h *AuthHandler) LoginMAFile(w http.ResponseWriter, r *http.Request) {
	var req maFileLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MAFileData == nil {
		writeError(w, apperrors.Validation("maFile data required"))
		return
	}
	ma := req.MAFileData
	if ma.AccountName == "" || ma.SharedSecret == "" {
		writeError(w, apperrors.Validation("maFile must contain account_name and shared_secret"))
		return
	}

	client := steam.NewClient(h.deps.ClientOptions)
	if err := client.LoginWithSharedSecret(ma.AccountName, req.Password, ma.SharedSecret); err != nil {
		client.Close()
		h.loginFailure(w, r, ma.AccountName, err)
		return
	}
	client.SetSecrets(ma.SharedSecret, ma.IdentitySecret, ma.DeviceID)

	h.register(w, r, client, req.SessionID, map[string]any{
		"accountName": ma.AccountName,
	})
}

// LoginWithSecrets authenticates with explicit shared and identity secrets.
// A missing device id is synthesized.
func (h *AuthHandler) LoginWithSecrets(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" || req.SharedSecret == "" || req.IdentitySecret == "" {
		writeError(w, apperrors.Validation("Username, password, sharedSecret and identitySecret required"))
		return
	}

	client := steam.NewClient(h.deps.ClientOptions)
	if err := client.LoginWithSharedSecret(req.Username, req.Password, req.SharedSecret); err != nil {
		client.Close()
		h.loginFailure(w, r, req.Username, err)
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = guard.SynthesizeDeviceID()
	}
	client.SetSecrets(req.SharedSecret, req.IdentitySecret, deviceID)

	h.register(w, r, client, req.SessionID, nil)
}

// Logout deletes the session and releases its client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r)
	rec, _, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, services.AuditLogout, "", nil, middleware.GetIP(r))
	h.deps.Registry.Delete(sessionID)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Health reports liveness, session count and uptime in seconds.
func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeSessions": h.deps.Registry.Count(),
		"uptime":         time.Since(h.start).Seconds(),
	})
}
