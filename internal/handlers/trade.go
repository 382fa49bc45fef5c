package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	apperrors "steam_bridge/internal/errors"
	"steam_bridge/internal/middleware"
	"steam_bridge/internal/services"
	"steam_bridge/internal/steam"
)

// TradeHandler handles trade offer, inventory, wallet and trade URL routes.
type TradeHandler struct {
	deps *Dependencies
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(deps *Dependencies) *TradeHandler {
	return &TradeHandler{deps: deps}
}

type createOfferRequest struct {
	SessionID       string        `json:"sessionId"`
	PartnerSteamID  string        `json:"partnerSteamId"`
	PartnerTradeURL string        `json:"partnerTradeUrl"`
	Token           string        `json:"token"`
	ItemsFromMe     []steam.Asset `json:"itemsFromMe"`
	ItemsFromThem   []steam.Asset `json:"itemsFromThem"`
	Message         string        `json:"message"`
}

// Create sends a new trade offer.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, client, err := resolveSession(h.deps.Registry, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.PartnerSteamID == "" && req.PartnerTradeURL == "" {
		writeError(w, apperrors.Validation("Either partnerTradeUrl or partnerSteamId must be provided"))
		return
	}

	req.Message = middleware.SanitizeString(req.Message)
	var verr middleware.ValidationErrors
	if req.PartnerSteamID != "" && !middleware.ValidateSteamID(req.PartnerSteamID) {
		verr.Add("partnerSteamId", "must be a 64-bit account id")
	}
	if !middleware.ValidateLength(req.Message, 0, 128) {
		verr.Add("message", "must be at most 128 characters")
	}
	if verr.HasErrors() {
		writeError(w, apperrors.Validation(verr.Error()))
		return
	}

	offerID, status, err := client.CreateOffer(steam.CreateOfferOptions{
		PartnerSteamID:  req.PartnerSteamID,
		PartnerTradeURL: req.PartnerTradeURL,
		Token:           req.Token,
		ItemsFromMe:     req.ItemsFromMe,
		ItemsFromThem:   req.ItemsFromThem,
		Message:         req.Message,
	})
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	h.deps.audit(req.SessionID, rec.SteamID, rec.AccountName, services.AuditOfferCreated, offerID,
		map[string]any{"status": status}, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"offerId": offerID,
		"status":  status,
	})
}

// Get returns one offer's state snapshot.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	offerID := chi.URLParam(r, "offerId")
	if !middleware.ValidateOfferID(offerID) {
		writeError(w, apperrors.Validation("offerId must be numeric"))
		return
	}

	offer, err := client.GetOffer(offerID)
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"offer":   offer,
	})
}

// Accept accepts a received offer.
func (h *TradeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r)
	rec, client, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	offerID := chi.URLParam(r, "offerId")
	if !middleware.ValidateOfferID(offerID) {
		writeError(w, apperrors.Validation("offerId must be numeric"))
		return
	}

	status, err := client.AcceptOffer(offerID)
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, services.AuditOfferAccepted, offerID,
		map[string]any{"status": status}, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"offerId": offerID,
		"status":  status,
	})
}

// Decline declines a received offer.
func (h *TradeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, services.AuditOfferDeclined, (*steam.Client).DeclineOffer)
}

// Cancel cancels a sent offer.
func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, services.AuditOfferCanceled, (*steam.Client).CancelOffer)
}

func (h *TradeHandler) respond(w http.ResponseWriter, r *http.Request, auditAction services.AuditAction, op func(*steam.Client, string) error) {
	sessionID := sessionFromRequest(r)
	rec, client, err := resolveSession(h.deps.Registry, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	offerID := chi.URLParam(r, "offerId")
	if !middleware.ValidateOfferID(offerID) {
		writeError(w, apperrors.Validation("offerId must be numeric"))
		return
	}

	if err := op(client, offerID); err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	h.deps.audit(sessionID, rec.SteamID, rec.AccountName, auditAction, offerID, nil, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"offerId": offerID,
	})
}

// Offers lists sent and received offers, filtered to active by default.
func (h *TradeHandler) Offers(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	sent, received, err := client.GetOffers(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sent":     sent,
		"received": received,
	})
}

// Incoming lists active offers other accounts sent to this one.
func (h *TradeHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	incoming, err := client.IncomingOffers()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"offers":  incoming,
		"count":   len(incoming),
	})
}

type autoAcceptRequest struct {
	SessionID      string `json:"sessionId"`
	PartnerSteamID string `json:"partnerSteamId"`
	AcceptAll      bool   `json:"acceptAll"`
}

// AutoAccept accepts active incoming offers, optionally only from one
// partner. Per-offer failures are collected, not fatal.
func (h *TradeHandler) AutoAccept(w http.ResponseWriter, r *http.Request) {
	var req autoAcceptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, client, err := resolveSession(h.deps.Registry, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.PartnerSteamID == "" && !req.AcceptAll {
		writeError(w, apperrors.Validation("Either partnerSteamId or acceptAll required"))
		return
	}

	accepted, itemErrors, err := client.AutoAcceptOffers(req.PartnerSteamID, req.AcceptAll)
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	h.deps.audit(req.SessionID, rec.SteamID, rec.AccountName, services.AuditOfferAccepted, "",
		map[string]any{"accepted": len(accepted), "failed": len(itemErrors)}, middleware.GetIP(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accepted": accepted,
		"errors":   itemErrors,
	})
}

// TradeURL returns the account's shareable trade URL and its token.
func (h *TradeHandler) TradeURL(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	token, url, err := client.TradeURL()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"token":    token,
		"tradeUrl": url,
	})
}

// TradeURLQR renders the trade URL as a PNG QR code.
func (h *TradeHandler) TradeURLQR(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	_, url, err := client.TradeURL()
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		writeError(w, apperrors.Internal("generating QR code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Inventory lists a user inventory for one app and context.
func (h *TradeHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	steamID := chi.URLParam(r, "steamId")
	if !middleware.ValidateSteamID(steamID) {
		writeError(w, apperrors.Validation("steamId must be a 64-bit account id"))
		return
	}
	appID, err := strconv.Atoi(chi.URLParam(r, "appId"))
	if err != nil {
		writeError(w, apperrors.Validation("appId must be numeric"))
		return
	}

	items, currencies, total, err := client.GetInventory(steamID, appID, chi.URLParam(r, "contextId"))
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"items":      items,
		"currencies": currencies,
		"total":      total,
	})
}

// Wallet scrapes and formats the account's wallet balance. Best effort, the
// market page markup is not a stable contract.
func (h *TradeHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	_, client, err := resolveSession(h.deps.Registry, chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	wallet, err := client.WalletBalance(h.deps.BalanceParser)
	if err != nil {
		writeError(w, apperrors.External(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"balance":   h.deps.CurrencyService.Major(wallet.Balance),
		"currency":  h.deps.CurrencyService.Code(wallet.Currency),
		"formatted": h.deps.CurrencyService.Format(wallet.Balance, wallet.Currency),
	})
}
