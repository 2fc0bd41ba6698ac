package main

import (
	"net/http"
	"strconv"

	"fieldops/internal/audit"
)

type AuditEntry = audit.Entry

// Wrappers injecting the global db and wsHub.
func logAudit(username, action, module, recordID, summary string) {
	audit.Log(db, wsHub, username, action, module, recordID, summary)
}

func getUsername(r *http.Request) string {
	return audit.GetUsername(db, r)
}

func handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	module := r.URL.Query().Get("module")

	query := "SELECT id,username,action,module,record_id,COALESCE(summary,''),created_at FROM audit_log"
	var args []interface{}
	if module != "" {
		query += " WHERE module=?"
		args = append(args, module)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.CreatedAt)
		entries = append(entries, e)
	}
	if entries == nil { entries = []AuditEntry{} }
	jsonResp(w, entries)
}
