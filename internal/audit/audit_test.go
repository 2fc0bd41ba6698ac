package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldops/internal/testutil"
	"fieldops/internal/websocket"
)

func TestLogWritesRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	Log(db, nil, "admin", ActionCreate, "project", "PRJ-202503-001", "Created project")

	var username, action, module, recordID string
	err := db.QueryRow("SELECT username,action,module,record_id FROM audit_log").
		Scan(&username, &action, &module, &recordID)
	if err != nil {
		t.Fatalf("audit row missing: %v", err)
	}
	if username != "admin" || action != ActionCreate || module != "project" || recordID != "PRJ-202503-001" {
		t.Errorf("unexpected row: %s %s %s %s", username, action, module, recordID)
	}
}

func TestLogBroadcastsEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	hub := websocket.NewHub()
	// No clients connected; Broadcast must be a no-op, not a panic
	Log(db, hub, "admin", ActionUpdate, "stock", "PRD-001", "Opname")
}

func TestGetUsernameFromSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	var userID int64
	db.QueryRow("SELECT id FROM users WHERE username='admin'").Scan(&userID)
	testutil.SeedSession(t, db, userID, "tok-123")

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.AddCookie(&http.Cookie{Name: "fieldops_session", Value: "tok-123"})
	if got := GetUsername(db, req); got != "admin" {
		t.Errorf("want admin, got %s", got)
	}
}

func TestGetUsernameFallsBackToSystem(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	if got := GetUsername(db, req); got != "system" {
		t.Errorf("want system, got %s", got)
	}

	req.AddCookie(&http.Cookie{Name: "fieldops_session", Value: "bogus"})
	if got := GetUsername(db, req); got != "system" {
		t.Errorf("stale token must fall back to system, got %s", got)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	if got := GetClientIP(req); got != "10.0.0.5" {
		t.Errorf("want 10.0.0.5, got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := GetClientIP(req); got != "203.0.113.9" {
		t.Errorf("want first forwarded hop, got %s", got)
	}
}
