package handlers

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"steam_bridge/internal/services"
	"steam_bridge/internal/session"
	"steam_bridge/internal/steam"
)

const (
	testSteamID        = "76561198000000001"
	testSharedSecret   = "c2hhcmVkLXNlY3JldC0wMTIzNDU2Nzg5"
	testIdentitySecret = "aWRlbnRpdHktc2VjcmV0LTQyNDI0Mg=="
)

// vendorStub fakes the community and web API endpoints the client calls.
// Response payloads are settable per test; counters record what was hit.
type vendorStub struct {
	srv *httptest.Server

	loginResponse    map[string]any
	confListResponse map[string]any
	opResponse       map[string]any
	opResponseQueue  []map[string]any
	detailsResponse  map[string]any

	newOfferResponse    map[string]any
	offerResponse       map[string]any
	offersResponse      map[string]any
	offerActionResponse map[string]any
	inventoryResponse   map[string]any
	marketHTML          string
	privacyHTML         string

	ajaxopCalls      int
	ajaxopOps        []string
	multiajaxopCalls int
	offerActionPaths []string
}

func newVendorStub(t *testing.T) *vendorStub {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}

	v := &vendorStub{
		loginResponse: map[string]any{
			"success":             true,
			"transfer_parameters": map[string]any{"steamid": testSteamID},
		},
		confListResponse: map[string]any{"success": true, "conf": []any{}},
		opResponse:       map[string]any{"success": true},
		detailsResponse:  map[string]any{"success": true, "html": ""},

		newOfferResponse:    map[string]any{"tradeofferid": "4400000001"},
		offerResponse:       map[string]any{"response": map[string]any{}},
		offersResponse:      map[string]any{"response": map[string]any{}},
		offerActionResponse: map[string]any{"tradeofferid": "4400000001"},
		inventoryResponse:   map[string]any{"success": 1},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/getrsakey/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, map[string]any{
			"success":       true,
			"publickey_mod": key.N.Text(16),
			"publickey_exp": fmt.Sprintf("%x", key.E),
			"timestamp":     "123456",
		})
	})
	mux.HandleFunc("/login/dologin/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.loginResponse)
	})
	mux.HandleFunc("/mobileconf/getlist", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.confListResponse)
	})
	mux.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, r *http.Request) {
		v.ajaxopCalls++
		v.ajaxopOps = append(v.ajaxopOps, r.URL.Query().Get("op"))
		if len(v.opResponseQueue) > 0 {
			next := v.opResponseQueue[0]
			v.opResponseQueue = v.opResponseQueue[1:]
			stubJSON(w, next)
			return
		}
		stubJSON(w, v.opResponse)
	})
	mux.HandleFunc("/mobileconf/multiajaxop", func(w http.ResponseWriter, r *http.Request) {
		v.multiajaxopCalls++
		stubJSON(w, v.opResponse)
	})
	mux.HandleFunc("/mobileconf/details/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.detailsResponse)
	})
	mux.HandleFunc("/tradeoffer/new/send", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.newOfferResponse)
	})
	mux.HandleFunc("/tradeoffer/", func(w http.ResponseWriter, r *http.Request) {
		v.offerActionPaths = append(v.offerActionPaths, r.URL.Path)
		stubJSON(w, v.offerActionResponse)
	})
	mux.HandleFunc("/IEconService/GetTradeOffer/v1/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.offerResponse)
	})
	mux.HandleFunc("/IEconService/GetTradeOffers/v1/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.offersResponse)
	})
	mux.HandleFunc("/inventory/", func(w http.ResponseWriter, r *http.Request) {
		stubJSON(w, v.inventoryResponse)
	})
	mux.HandleFunc("/market/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(v.marketHTML))
	})
	mux.HandleFunc("/profiles/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(v.privacyHTML))
	})

	v.srv = httptest.NewServer(mux)
	t.Cleanup(v.srv.Close)
	return v
}

func stubJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func newTestDeps(t *testing.T, v *vendorStub) *Dependencies {
	t.Helper()
	registry := session.NewRegistry()
	t.Cleanup(registry.Close)

	return NewDependencies().
		WithRegistry(registry).
		WithClientOptions(steam.Options{CommunityURL: v.srv.URL, APIBaseURL: v.srv.URL}).
		WithBalanceParser(steam.RegexBalanceParser{}).
		WithCurrencyService(services.NewCurrencyService())
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

// loginSession authenticates against the stub and returns the session id.
func loginSession(t *testing.T, deps *Dependencies) string {
	t.Helper()
	h := NewAuthHandler(deps)
	w := postJSON(t, h.Login, map[string]string{"username": "alice", "password": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	decodeResponse(t, w, &resp)
	if resp.SessionID == "" {
		t.Fatal("login returned empty session id")
	}
	return resp.SessionID
}

func TestAuthHandler_Login_RegistersSession(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)

	w := postJSON(t, h.Login, map[string]string{"username": "alice", "password": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
		SteamID   string `json:"steamID"`
	}
	decodeResponse(t, w, &resp)
	if !resp.Success {
		t.Error("expected success true")
	}
	if !strings.HasPrefix(resp.SessionID, "session_") {
		t.Errorf("session id = %q, want session_ prefix", resp.SessionID)
	}
	if resp.SteamID != testSteamID {
		t.Errorf("steamID = %q, want %q", resp.SteamID, testSteamID)
	}
	if deps.Registry.Count() != 1 {
		t.Errorf("registry count = %d, want 1", deps.Registry.Count())
	}
}

func TestAuthHandler_Login_MissingCredentials_Returns400(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.Login, map[string]string{"username": "alice"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_Login_VendorRejection_Returns401WithHint(t *testing.T) {
	v := newVendorStub(t)
	v.loginResponse = map[string]any{
		"success": false,
		"message": "SteamGuard Mobile Authenticator code required",
	}
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)

	w := postJSON(t, h.Login, map[string]string{"username": "alice", "password": "hunter2"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var resp struct {
		Error       string `json:"error"`
		Requires2FA bool   `json:"requires2FA"`
	}
	decodeResponse(t, w, &resp)
	if !resp.Requires2FA {
		t.Error("expected requires2FA true for a SteamGuard message")
	}
	if resp.Error != "SteamGuard Mobile Authenticator code required" {
		t.Errorf("error = %q, want vendor message verbatim", resp.Error)
	}
	if deps.Registry.Count() != 0 {
		t.Errorf("registry count = %d after failed login, want 0", deps.Registry.Count())
	}
}

func TestAuthHandler_Login_WrongPassword_NoTwoFactorHint(t *testing.T) {
	v := newVendorStub(t)
	v.loginResponse = map[string]any{
		"success": false,
		"message": "The account name or password that you have entered is incorrect.",
	}
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.Login, map[string]string{"username": "alice", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var resp struct {
		Requires2FA bool `json:"requires2FA"`
	}
	decodeResponse(t, w, &resp)
	if resp.Requires2FA {
		t.Error("expected requires2FA false for a password error")
	}
}

func TestAuthHandler_Login2FA_MissingCode_Returns400(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.Login2FA, map[string]string{"username": "alice", "password": "hunter2"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_LoginMAFile_RegistersSessionWithAccountName(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)

	w := postJSON(t, h.LoginMAFile, map[string]any{
		"password": "hunter2",
		"maFileData": map[string]string{
			"account_name":    "alice",
			"shared_secret":   testSharedSecret,
			"identity_secret": testIdentitySecret,
			"device_id":       "android:11111111-2222-3333-4444-555555555555",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success     bool   `json:"success"`
		AccountName string `json:"accountName"`
	}
	decodeResponse(t, w, &resp)
	if !resp.Success || resp.AccountName != "alice" {
		t.Errorf("got success=%v accountName=%q", resp.Success, resp.AccountName)
	}
}

func TestAuthHandler_LoginMAFile_StoresSecretsOnRecord(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)
	deviceID := "android:11111111-2222-3333-4444-555555555555"

	w := postJSON(t, h.LoginMAFile, map[string]any{
		"password": "hunter2",
		"maFileData": map[string]string{
			"account_name":    "alice",
			"shared_secret":   testSharedSecret,
			"identity_secret": testIdentitySecret,
			"device_id":       deviceID,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	decodeResponse(t, w, &resp)

	rec, ok := deps.Registry.Get(resp.SessionID)
	if !ok {
		t.Fatalf("no record for session %q", resp.SessionID)
	}
	if rec.SharedSecret != testSharedSecret {
		t.Error("record is missing the shared secret")
	}
	if rec.IdentitySecret != testIdentitySecret {
		t.Error("record is missing the identity secret")
	}
	if rec.DeviceID != deviceID {
		t.Errorf("record device id = %q, want %q", rec.DeviceID, deviceID)
	}
}

func TestAuthHandler_LoginMAFile_DoesNotEchoSecrets(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.LoginMAFile, map[string]any{
		"password": "hunter2",
		"maFileData": map[string]string{
			"account_name":    "alice",
			"shared_secret":   testSharedSecret,
			"identity_secret": testIdentitySecret,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	for _, secret := range []string{testSharedSecret, testIdentitySecret, "hunter2"} {
		if strings.Contains(body, secret) {
			t.Errorf("response echoes secret material: %s", body)
		}
	}
}

func TestAuthHandler_LoginMAFile_MissingData_Returns400(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.LoginMAFile, map[string]string{"password": "hunter2"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_LoginWithSecrets_MissingIdentitySecret_Returns400(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.LoginWithSecrets, map[string]string{
		"username":     "alice",
		"password":     "hunter2",
		"sharedSecret": testSharedSecret,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_LoginWithSecrets_SynthesizesDeviceID(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)

	w := postJSON(t, h.LoginWithSecrets, map[string]string{
		"username":       "alice",
		"password":       "hunter2",
		"sharedSecret":   testSharedSecret,
		"identitySecret": testIdentitySecret,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if deps.Registry.Count() != 1 {
		t.Errorf("registry count = %d, want 1", deps.Registry.Count())
	}
}

func TestAuthHandler_Logout_RemovesSession(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)
	sid := loginSession(t, deps)

	w := postJSON(t, h.Logout, map[string]string{"sessionId": sid})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if deps.Registry.Count() != 0 {
		t.Errorf("registry count = %d after logout, want 0", deps.Registry.Count())
	}

	// The session is gone; a second logout is unauthorized.
	w = postJSON(t, h.Logout, map[string]string{"sessionId": sid})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("repeat logout status = %d, want 401", w.Code)
	}
}

func TestAuthHandler_Logout_UnknownSession_Returns401(t *testing.T) {
	v := newVendorStub(t)
	h := NewAuthHandler(newTestDeps(t, v))

	w := postJSON(t, h.Logout, map[string]string{"sessionId": "session_1_nosuch"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthHandler_Health_ReportsActiveSessions(t *testing.T) {
	v := newVendorStub(t)
	deps := newTestDeps(t, v)
	h := NewAuthHandler(deps)
	loginSession(t, deps)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	var resp struct {
		Status         string  `json:"status"`
		ActiveSessions int     `json:"activeSessions"`
		Uptime         float64 `json:"uptime"`
	}
	decodeResponse(t, w, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.ActiveSessions != 1 {
		t.Errorf("activeSessions = %d, want 1", resp.ActiveSessions)
	}
	if resp.Uptime < 0 {
		t.Errorf("uptime = %f, want non-negative", resp.Uptime)
	}
}

// authedClient logs in through the stub and attaches confirmation secrets to
// the session's client, the state a mobile-authenticator login leaves behind.
func authedClient(t *testing.T, deps *Dependencies) string {
	t.Helper()
	sid := loginSession(t, deps)
	rec, ok := deps.Registry.Get(sid)
	if !ok {
		t.Fatal("session missing after login")
	}
	client, ok := rec.Client.(*steam.Client)
	if !ok {
		t.Fatal("session record holds no client")
	}
	client.SetSecrets(testSharedSecret, testIdentitySecret, "")
	return sid
}
