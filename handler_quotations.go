package main

import (
	"net/http"
	"time"
)

func loadQuotationItems(id string) []QuotationItem {
	rows, err := db.Query("SELECT id,quotation_id,COALESCE(product_id,''),COALESCE(description,''),qty,unit_price FROM quotation_items WHERE quotation_id=? ORDER BY id", id)
	if err != nil {
		return []QuotationItem{}
	}
	defer rows.Close()
	items := []QuotationItem{}
	for rows.Next() {
		var it QuotationItem
		rows.Scan(&it.ID, &it.QuotationID, &it.ProductID, &it.Description, &it.Qty, &it.UnitPrice)
		items = append(items, it)
	}
	return items
}

func handleListQuotations(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,customer_id,COALESCE(title,''),status,total,COALESCE(valid_until,''),COALESCE(notes,''),COALESCE(created_by,''),created_at,accepted_at FROM quotations"
	var args []interface{}
	if s := r.URL.Query().Get("status"); s != "" {
		query += " WHERE status=?"
		args = append(args, s)
	}
	query += " ORDER BY id DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Quotation
	for rows.Next() {
		var q Quotation
		var acceptedAt nullString
		rows.Scan(&q.ID, &q.CustomerID, &q.Title, &q.Status, &q.Total, &q.ValidUntil, &q.Notes, &q.CreatedBy, &q.CreatedAt, &acceptedAt)
		q.AcceptedAt = acceptedAt.ptr()
		items = append(items, q)
	}
	if items == nil { items = []Quotation{} }
	jsonResp(w, items)
}

func handleGetQuotation(w http.ResponseWriter, r *http.Request, id string) {
	var q Quotation
	var acceptedAt nullString
	err := db.QueryRow("SELECT id,customer_id,COALESCE(title,''),status,total,COALESCE(valid_until,''),COALESCE(notes,''),COALESCE(created_by,''),created_at,accepted_at FROM quotations WHERE id=?", id).
		Scan(&q.ID, &q.CustomerID, &q.Title, &q.Status, &q.Total, &q.ValidUntil, &q.Notes, &q.CreatedBy, &q.CreatedAt, &acceptedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	q.AcceptedAt = acceptedAt.ptr()
	q.Items = loadQuotationItems(id)
	jsonResp(w, q)
}

func handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	var q Quotation
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }
	if q.CustomerID == "" { jsonErr(w, "customer_id is required", 400); return }
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM customers WHERE id=?", q.CustomerID).Scan(&exists)
	if exists == 0 { jsonErr(w, "customer not found", 404); return }
	for _, it := range q.Items {
		if it.Qty <= 0 { jsonErr(w, "item qty must be positive", 400); return }
	}

	username := getUsername(r)
	now := time.Now()
	id, err := createNumbered(DocQuotation, now, func(id string) error {
		_, err := db.Exec("INSERT INTO quotations (id,customer_id,title,status,valid_until,notes,created_by) VALUES (?,?,?,'draft',?,?,?)",
			id, q.CustomerID, q.Title, q.ValidUntil, q.Notes, username)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()
	for _, it := range q.Items {
		if _, err := tx.Exec("INSERT INTO quotation_items (quotation_id,product_id,description,qty,unit_price) VALUES (?,?,?,?,?)",
			id, it.ProductID, it.Description, it.Qty, it.UnitPrice); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}
	if _, err := tx.Exec(`UPDATE quotations SET total=(SELECT COALESCE(SUM(qty*unit_price),0) FROM quotation_items WHERE quotation_id=?) WHERE id=?`, id, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "quotation", id, "Created quotation "+id)
	handleGetQuotation(w, r, id)
}

func handleUpdateQuotation(w http.ResponseWriter, r *http.Request, id string) {
	var cur Quotation
	err := db.QueryRow("SELECT status FROM quotations WHERE id=?", id).Scan(&cur.Status)
	if err != nil { jsonErr(w, "not found", 404); return }
	if cur.Status == "accepted" { jsonErr(w, "accepted quotations are read-only", 409); return }

	var q Quotation
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }
	_, err = db.Exec("UPDATE quotations SET title=?,valid_until=?,notes=? WHERE id=?",
		q.Title, q.ValidUntil, q.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	// Item list is replaced wholesale while still editable
	if q.Items != nil {
		for _, it := range q.Items {
			if it.Qty <= 0 { jsonErr(w, "item qty must be positive", 400); return }
		}
		tx, err := db.Begin()
		if err != nil { jsonErr(w, err.Error(), 500); return }
		defer tx.Rollback()
		if _, err := tx.Exec("DELETE FROM quotation_items WHERE quotation_id=?", id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		for _, it := range q.Items {
			if _, err := tx.Exec("INSERT INTO quotation_items (quotation_id,product_id,description,qty,unit_price) VALUES (?,?,?,?,?)",
				id, it.ProductID, it.Description, it.Qty, it.UnitPrice); err != nil {
				jsonErr(w, err.Error(), 500)
				return
			}
		}
		if _, err := tx.Exec(`UPDATE quotations SET total=(SELECT COALESCE(SUM(qty*unit_price),0) FROM quotation_items WHERE quotation_id=?) WHERE id=?`, id, id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }
	}

	logAudit(getUsername(r), "UPDATE", "quotation", id, "Updated quotation "+id)
	handleGetQuotation(w, r, id)
}

func handleQuotationStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }
	valid := map[string]bool{"draft": true, "sent": true, "rejected": true, "expired": true, "cancelled": true}
	if !valid[body.Status] {
		jsonErr(w, "invalid status (use the accept endpoint to accept)", 400)
		return
	}
	var cur string
	if err := db.QueryRow("SELECT status FROM quotations WHERE id=?", id).Scan(&cur); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if cur == "accepted" { jsonErr(w, "accepted quotations are read-only", 409); return }
	_, err := db.Exec("UPDATE quotations SET status=? WHERE id=?", body.Status, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "quotation", id, "Quotation "+id+" marked "+body.Status)
	handleGetQuotation(w, r, id)
}

// handleAcceptQuotation marks the quotation accepted and spawns a project
// carrying its customer and line items. Each copied item immediately gets a
// procurement evaluation against current stock.
func handleAcceptQuotation(w http.ResponseWriter, r *http.Request, id string) {
	var q Quotation
	err := db.QueryRow("SELECT id,customer_id,COALESCE(title,''),status FROM quotations WHERE id=?", id).
		Scan(&q.ID, &q.CustomerID, &q.Title, &q.Status)
	if err != nil { jsonErr(w, "not found", 404); return }
	if q.Status == "accepted" { jsonErr(w, "quotation already accepted", 409); return }
	if q.Status == "cancelled" || q.Status == "rejected" {
		jsonErr(w, "quotation is "+q.Status, 409)
		return
	}

	username := getUsername(r)
	now := time.Now()
	projectID, err := createNumbered(DocProject, now, func(pid string) error {
		_, err := db.Exec("INSERT INTO projects (id,quotation_id,customer_id,name,status) VALUES (?,?,?,?,'quotation')",
			pid, q.ID, q.CustomerID, q.Title)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	// Copied items, their reservations and the accepted flag land together:
	// either the whole acceptance happens or none of it does.
	items := loadQuotationItems(id)
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	for _, it := range items {
		res, err := tx.Exec("INSERT INTO project_items (project_id,product_id,description,qty,unit_price) VALUES (?,?,?,?,?)",
			projectID, it.ProductID, it.Description, it.Qty, it.UnitPrice)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		itemID, _ := res.LastInsertId()
		if err := refreshItemProcurement(tx, itemID); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	if _, err := tx.Exec("UPDATE quotations SET status='accepted', accepted_at=CURRENT_TIMESTAMP WHERE id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "UPDATE", "quotation", id, "Accepted quotation "+id+" into project "+projectID)
	handleGetProject(w, r, projectID)
}

func handleDeleteQuotation(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM quotations WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status == "accepted" { jsonErr(w, "accepted quotations cannot be deleted", 409); return }
	_, err := db.Exec("DELETE FROM quotations WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "DELETE", "quotation", id, "Deleted quotation "+id)
	jsonResp(w, map[string]string{"deleted": id})
}
