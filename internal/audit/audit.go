package audit

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"fieldops/internal/websocket"
)

// Action constants.
const (
	ActionCreate  = "CREATE"
	ActionUpdate  = "UPDATE"
	ActionDelete  = "DELETE"
	ActionExport  = "EXPORT"
	ActionLogin   = "LOGIN"
	ActionLogout  = "LOGOUT"
	ActionReceive = "RECEIVE"
	ActionOpname  = "OPNAME"
)

// Entry is one audit log row.
type Entry struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

// Log writes an audit row and broadcasts the change to websocket clients.
// Audit failures are logged, never surfaced: the mutation already happened.
func Log(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	_, err := db.Exec("INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{
			Type:   module + "_" + strings.ToLower(action),
			ID:     recordID,
			Action: action,
		})
	}
}

// GetUsername resolves the acting username from the session cookie,
// falling back to "system" for unauthenticated callers.
func GetUsername(db *sql.DB, r *http.Request) string {
	cookie, err := r.Cookie("fieldops_session")
	if err != nil {
		return "system"
	}
	var username string
	err = db.QueryRow("SELECT u.username FROM users u JOIN sessions s ON u.id = s.user_id WHERE s.token = ?", cookie.Value).Scan(&username)
	if err != nil {
		return "system"
	}
	return username
}

// GetClientIP extracts the real client IP from the request (handles proxies).
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
