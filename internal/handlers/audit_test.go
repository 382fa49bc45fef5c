package handlers

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"steam_bridge/internal/database"
	"steam_bridge/internal/services"
)

func newAuditDeps(t *testing.T) (*Dependencies, *services.AuditService) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	audit := services.NewAuditService(db)
	deps := NewDependencies().WithAuditService(audit)
	return deps, audit
}

func auditRequest(t *testing.T, h *AuditHandler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	h.Recent(w, req)
	return w
}

func TestAuditHandler_Recent_WithoutService_Returns404(t *testing.T) {
	h := NewAuditHandler(NewDependencies())

	w := auditRequest(t, h, "/audit")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAuditHandler_Recent_ReturnsEntries(t *testing.T) {
	deps, audit := newAuditDeps(t)
	audit.LogAction("session_1_aaa", testSteamID, "alice", services.AuditLogin, "", nil, "10.0.0.1")
	audit.LogAction("session_1_aaa", testSteamID, "alice", services.AuditConfAccepted, "101", nil, "10.0.0.1")
	h := NewAuditHandler(deps)

	w := auditRequest(t, h, "/audit")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Entries []struct {
			SessionID string `json:"session_id"`
			Action    string `json:"action"`
		} `json:"entries"`
	}
	decodeResponse(t, w, &resp)
	if !resp.Success || len(resp.Entries) != 2 {
		t.Fatalf("got success=%v entries=%d", resp.Success, len(resp.Entries))
	}
	for _, e := range resp.Entries {
		if e.SessionID != "session_1_aaa" {
			t.Errorf("session_id = %q", e.SessionID)
		}
	}
}

func TestAuditHandler_Recent_FiltersBySession(t *testing.T) {
	deps, audit := newAuditDeps(t)
	audit.LogAction("session_1_aaa", testSteamID, "alice", services.AuditLogin, "", nil, "")
	audit.LogAction("session_2_bbb", testSteamID, "bob", services.AuditLogin, "", nil, "")
	h := NewAuditHandler(deps)

	w := auditRequest(t, h, "/audit?sessionId=session_2_bbb")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entries []struct {
			SessionID string `json:"session_id"`
		} `json:"entries"`
	}
	decodeResponse(t, w, &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].SessionID != "session_2_bbb" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestAuditHandler_Recent_InvalidLimit_Returns400(t *testing.T) {
	deps, _ := newAuditDeps(t)
	h := NewAuditHandler(deps)

	w := auditRequest(t, h, "/audit?limit=zero")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuditHandler_Recent_CapsLimit(t *testing.T) {
	deps, audit := newAuditDeps(t)
	audit.LogAction("session_1_aaa", testSteamID, "alice", services.AuditLogin, "", nil, "")
	h := NewAuditHandler(deps)

	// An oversized limit is clamped, not rejected.
	w := auditRequest(t, h, "/audit?limit=10000")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
