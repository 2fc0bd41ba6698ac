package main

import (
	"net/http"
	"time"
)

func handleListWarranties(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,project_id,COALESCE(product_id,''),months,COALESCE(starts_on,''),COALESCE(expires_on,''),COALESCE(notes,''),created_at FROM warranties"
	var args []interface{}
	if p := r.URL.Query().Get("project_id"); p != "" {
		query += " WHERE project_id=?"
		args = append(args, p)
	}
	query += " ORDER BY id DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Warranty
	for rows.Next() {
		var wr Warranty
		rows.Scan(&wr.ID, &wr.ProjectID, &wr.ProductID, &wr.Months, &wr.StartsOn, &wr.ExpiresOn, &wr.Notes, &wr.CreatedAt)
		items = append(items, wr)
	}
	if items == nil { items = []Warranty{} }
	jsonResp(w, items)
}

func handleGetWarranty(w http.ResponseWriter, r *http.Request, id string) {
	var wr Warranty
	err := db.QueryRow("SELECT id,project_id,COALESCE(product_id,''),months,COALESCE(starts_on,''),COALESCE(expires_on,''),COALESCE(notes,''),created_at FROM warranties WHERE id=?", id).
		Scan(&wr.ID, &wr.ProjectID, &wr.ProductID, &wr.Months, &wr.StartsOn, &wr.ExpiresOn, &wr.Notes, &wr.CreatedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, wr)
}

// handleCreateWarranty registers coverage for a project. The start date
// defaults to today and the expiry is derived from the month count.
func handleCreateWarranty(w http.ResponseWriter, r *http.Request) {
	var wr Warranty
	if err := decodeBody(r, &wr); err != nil { jsonErr(w, "invalid body", 400); return }
	if wr.ProjectID == "" { jsonErr(w, "project_id is required", 400); return }
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM projects WHERE id=?", wr.ProjectID).Scan(&exists)
	if exists == 0 { jsonErr(w, "project not found", 404); return }
	if wr.Months <= 0 {
		wr.Months = 12
	}

	starts := time.Now()
	if wr.StartsOn != "" {
		t, err := time.Parse("2006-01-02", wr.StartsOn)
		if err != nil { jsonErr(w, "starts_on must be YYYY-MM-DD", 400); return }
		starts = t
	}
	wr.StartsOn = starts.Format("2006-01-02")
	wr.ExpiresOn = starts.AddDate(0, wr.Months, 0).Format("2006-01-02")

	username := getUsername(r)
	id, err := createNumbered(DocWarranty, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO warranties (id,project_id,product_id,months,starts_on,expires_on,notes) VALUES (?,?,?,?,?,?,?)",
			id, wr.ProjectID, wr.ProductID, wr.Months, wr.StartsOn, wr.ExpiresOn, wr.Notes)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "warranty", id, "Created warranty "+id+" for project "+wr.ProjectID)
	handleGetWarranty(w, r, id)
}

// handleCreateClaim opens a claim against a warranty. Claims are numbered
// per day, not per month.
func handleCreateClaim(w http.ResponseWriter, r *http.Request, warrantyID string) {
	var expiresOn string
	err := db.QueryRow("SELECT COALESCE(expires_on,'') FROM warranties WHERE id=?", warrantyID).Scan(&expiresOn)
	if err != nil { jsonErr(w, "warranty not found", 404); return }
	if expiresOn != "" && expiresOn < time.Now().Format("2006-01-02") {
		jsonErr(w, "warranty has expired", 409)
		return
	}

	var c WarrantyClaim
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	if c.Issue == "" { jsonErr(w, "issue is required", 400); return }

	username := getUsername(r)
	id, err := createNumbered(DocClaim, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO warranty_claims (id,warranty_id,issue,status) VALUES (?,?,?,'open')",
			id, warrantyID, c.Issue)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "claim", id, "Opened claim "+id+" on warranty "+warrantyID)

	var out WarrantyClaim
	var resolvedAt nullString
	db.QueryRow("SELECT id,warranty_id,issue,status,COALESCE(resolution,''),created_at,resolved_at FROM warranty_claims WHERE id=?", id).
		Scan(&out.ID, &out.WarrantyID, &out.Issue, &out.Status, &out.Resolution, &out.CreatedAt, &resolvedAt)
	out.ResolvedAt = resolvedAt.ptr()
	jsonResp(w, out)
}

func handleListClaims(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,warranty_id,issue,status,COALESCE(resolution,''),created_at,resolved_at FROM warranty_claims"
	var args []interface{}
	var where []string
	if s := r.URL.Query().Get("status"); s != "" {
		where = append(where, "status=?")
		args = append(args, s)
	}
	if wid := r.URL.Query().Get("warranty_id"); wid != "" {
		where = append(where, "warranty_id=?")
		args = append(args, wid)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []WarrantyClaim
	for rows.Next() {
		var c WarrantyClaim
		var resolvedAt nullString
		rows.Scan(&c.ID, &c.WarrantyID, &c.Issue, &c.Status, &c.Resolution, &c.CreatedAt, &resolvedAt)
		c.ResolvedAt = resolvedAt.ptr()
		items = append(items, c)
	}
	if items == nil { items = []WarrantyClaim{} }
	jsonResp(w, items)
}

func handleUpdateClaim(w http.ResponseWriter, r *http.Request, id string) {
	var cur string
	if err := db.QueryRow("SELECT status FROM warranty_claims WHERE id=?", id).Scan(&cur); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if cur == "resolved" || cur == "rejected" {
		jsonErr(w, "claim is already "+cur, 409)
		return
	}

	var c WarrantyClaim
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	valid := map[string]bool{"open": true, "in_progress": true, "resolved": true, "rejected": true}
	if !valid[c.Status] { jsonErr(w, "invalid status", 400); return }

	if c.Status == "resolved" || c.Status == "rejected" {
		_, err := db.Exec("UPDATE warranty_claims SET status=?, resolution=?, resolved_at=CURRENT_TIMESTAMP WHERE id=?",
			c.Status, c.Resolution, id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	} else {
		_, err := db.Exec("UPDATE warranty_claims SET status=?, resolution=? WHERE id=?", c.Status, c.Resolution, id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
	}

	logAudit(getUsername(r), "UPDATE", "claim", id, "Claim "+id+" marked "+c.Status)

	var out WarrantyClaim
	var resolvedAt nullString
	db.QueryRow("SELECT id,warranty_id,issue,status,COALESCE(resolution,''),created_at,resolved_at FROM warranty_claims WHERE id=?", id).
		Scan(&out.ID, &out.WarrantyID, &out.Issue, &out.Status, &out.Resolution, &out.CreatedAt, &resolvedAt)
	out.ResolvedAt = resolvedAt.ptr()
	jsonResp(w, out)
}
