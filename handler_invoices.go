package main

import (
	"fmt"
	"net/http"
	"time"
)

func loadPayments(invoiceID string) []Payment {
	rows, err := db.Query("SELECT id,invoice_id,amount,COALESCE(method,''),COALESCE(reference,''),COALESCE(notes,''),created_at FROM payments WHERE invoice_id=? ORDER BY id", invoiceID)
	if err != nil {
		return []Payment{}
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		var p Payment
		rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.Notes, &p.CreatedAt)
		items = append(items, p)
	}
	return items
}

func handleListInvoices(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,project_id,COALESCE(customer_id,''),status,total,paid,COALESCE(due_date,''),COALESCE(notes,''),created_at,paid_at FROM invoices"
	var args []interface{}
	var where []string
	if s := r.URL.Query().Get("status"); s != "" {
		where = append(where, "status=?")
		args = append(args, s)
	}
	if p := r.URL.Query().Get("project_id"); p != "" {
		where = append(where, "project_id=?")
		args = append(args, p)
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
	var items []Invoice
	for rows.Next() {
		var inv Invoice
		var paidAt nullString
		rows.Scan(&inv.ID, &inv.ProjectID, &inv.CustomerID, &inv.Status, &inv.Total, &inv.Paid, &inv.DueDate, &inv.Notes, &inv.CreatedAt, &paidAt)
		inv.PaidAt = paidAt.ptr()
		items = append(items, inv)
	}
	if items == nil { items = []Invoice{} }
	jsonResp(w, items)
}

func handleGetInvoice(w http.ResponseWriter, r *http.Request, id string) {
	var inv Invoice
	var paidAt nullString
	err := db.QueryRow("SELECT id,project_id,COALESCE(customer_id,''),status,total,paid,COALESCE(due_date,''),COALESCE(notes,''),created_at,paid_at FROM invoices WHERE id=?", id).
		Scan(&inv.ID, &inv.ProjectID, &inv.CustomerID, &inv.Status, &inv.Total, &inv.Paid, &inv.DueDate, &inv.Notes, &inv.CreatedAt, &paidAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	inv.PaidAt = paidAt.ptr()
	inv.Payments = loadPayments(id)
	jsonResp(w, inv)
}

// handleCreateInvoice invoices a project. Total defaults to the sum of the
// project's line items when not given.
func handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv Invoice
	if err := decodeBody(r, &inv); err != nil { jsonErr(w, "invalid body", 400); return }
	if inv.ProjectID == "" { jsonErr(w, "project_id is required", 400); return }

	var customerID, status string
	err := db.QueryRow("SELECT customer_id, status FROM projects WHERE id=?", inv.ProjectID).Scan(&customerID, &status)
	if err != nil { jsonErr(w, "project not found", 404); return }
	if status == StatusCancelled { jsonErr(w, "cannot invoice a cancelled project", 409); return }

	if inv.Total <= 0 {
		db.QueryRow("SELECT COALESCE(SUM((qty-returned_qty)*unit_price),0) FROM project_items WHERE project_id=?", inv.ProjectID).Scan(&inv.Total)
	}
	if inv.Total <= 0 { jsonErr(w, "invoice total must be positive", 400); return }

	username := getUsername(r)
	id, err := createNumbered(DocInvoice, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO invoices (id,project_id,customer_id,status,total,due_date,notes) VALUES (?,?,?,'unpaid',?,?,?)",
			id, inv.ProjectID, customerID, inv.Total, inv.DueDate, inv.Notes)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "invoice", id, "Created invoice "+id+" for project "+inv.ProjectID)
	handleGetInvoice(w, r, id)
}

func handleUpdateInvoice(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM invoices WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status == "paid" { jsonErr(w, "paid invoices are read-only", 409); return }

	var inv Invoice
	if err := decodeBody(r, &inv); err != nil { jsonErr(w, "invalid body", 400); return }
	_, err := db.Exec("UPDATE invoices SET due_date=?, notes=? WHERE id=?", inv.DueDate, inv.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "invoice", id, "Updated invoice "+id)
	handleGetInvoice(w, r, id)
}

// handleAddPayment records a payment against an invoice. Full payment flips
// the invoice to paid, writes a cashflow entry, and moves a completed project
// to paid.
func handleAddPayment(w http.ResponseWriter, r *http.Request, invoiceID string) {
	var inv Invoice
	err := db.QueryRow("SELECT id,project_id,status,total,paid FROM invoices WHERE id=?", invoiceID).
		Scan(&inv.ID, &inv.ProjectID, &inv.Status, &inv.Total, &inv.Paid)
	if err != nil { jsonErr(w, "not found", 404); return }
	if inv.Status == "paid" { jsonErr(w, "invoice is already paid", 409); return }
	if inv.Status == "cancelled" { jsonErr(w, "invoice is cancelled", 409); return }

	var p Payment
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }
	if p.Amount <= 0 { jsonErr(w, "amount must be positive", 400); return }
	if inv.Paid+p.Amount > inv.Total {
		jsonErr(w, "payment exceeds outstanding balance", 400)
		return
	}
	if p.Method == "" {
		p.Method = "transfer"
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO payments (invoice_id,amount,method,reference,notes) VALUES (?,?,?,?,?)",
		invoiceID, p.Amount, p.Method, p.Reference, p.Notes); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	newPaid := inv.Paid + p.Amount
	newStatus := "partial"
	if newPaid >= inv.Total {
		newStatus = "paid"
	}
	if newStatus == "paid" {
		if _, err := tx.Exec("UPDATE invoices SET paid=?, status='paid', paid_at=CURRENT_TIMESTAMP WHERE id=?", newPaid, invoiceID); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	} else {
		if _, err := tx.Exec("UPDATE invoices SET paid=?, status='partial' WHERE id=?", newPaid, invoiceID); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	entryDate := time.Now().Format("2006-01-02")
	if _, err := tx.Exec("INSERT INTO cashflow (type,category,amount,reference,notes,entry_date) VALUES ('in','sales',?,?,?,?)",
		p.Amount, invoiceID, fmt.Sprintf("Payment on %s", invoiceID), entryDate); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	if newStatus == "paid" {
		var projStatus string
		tx.QueryRow("SELECT status FROM projects WHERE id=?", inv.ProjectID).Scan(&projStatus)
		if canTransitionProject(projStatus, StatusPaid) {
			tx.Exec("UPDATE projects SET status='paid', updated_at=CURRENT_TIMESTAMP WHERE id=?", inv.ProjectID)
		}
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "CREATE", "payment", invoiceID, fmt.Sprintf("Recorded payment of %.2f on %s", p.Amount, invoiceID))
	handleGetInvoice(w, r, invoiceID)
}
