package main

import (
	"net/http"
	"strconv"
	"time"
)

func loadProjectItems(id string) []ProjectItem {
	rows, err := db.Query(`SELECT id,project_id,COALESCE(product_id,''),COALESCE(description,''),qty,returned_qty,reserved_qty,unit_price,needs_po,po_status
		FROM project_items WHERE project_id=? ORDER BY id`, id)
	if err != nil {
		return []ProjectItem{}
	}
	defer rows.Close()
	items := []ProjectItem{}
	for rows.Next() {
		var it ProjectItem
		rows.Scan(&it.ID, &it.ProjectID, &it.ProductID, &it.Description, &it.Qty, &it.ReturnedQty, &it.ReservedQty, &it.UnitPrice, &it.NeedsPO, &it.POStatus)
		items = append(items, it)
	}
	return items
}

func handleListProjects(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,COALESCE(quotation_id,''),customer_id,COALESCE(name,''),status,COALESCE(address,''),COALESCE(notes,''),created_at,updated_at,completed_at FROM projects"
	var args []interface{}
	if s := r.URL.Query().Get("status"); s != "" {
		query += " WHERE status=?"
		args = append(args, s)
	}
	query += " ORDER BY id DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Project
	for rows.Next() {
		var p Project
		var completedAt nullString
		rows.Scan(&p.ID, &p.QuotationID, &p.CustomerID, &p.Name, &p.Status, &p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &completedAt)
		p.CompletedAt = completedAt.ptr()
		items = append(items, p)
	}
	if items == nil { items = []Project{} }
	jsonResp(w, items)
}

func handleGetProject(w http.ResponseWriter, r *http.Request, id string) {
	var p Project
	var completedAt nullString
	err := db.QueryRow("SELECT id,COALESCE(quotation_id,''),customer_id,COALESCE(name,''),status,COALESCE(address,''),COALESCE(notes,''),created_at,updated_at,completed_at FROM projects WHERE id=?", id).
		Scan(&p.ID, &p.QuotationID, &p.CustomerID, &p.Name, &p.Status, &p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &completedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	p.CompletedAt = completedAt.ptr()
	p.Items = loadProjectItems(id)
	jsonResp(w, p)
}

func handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p Project
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }
	if p.CustomerID == "" { jsonErr(w, "customer_id is required", 400); return }
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM customers WHERE id=?", p.CustomerID).Scan(&exists)
	if exists == 0 { jsonErr(w, "customer not found", 404); return }

	username := getUsername(r)
	id, err := createNumbered(DocProject, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO projects (id,customer_id,name,status,address,notes) VALUES (?,?,?,'quotation',?,?)",
			id, p.CustomerID, p.Name, p.Address, p.Notes)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "project", id, "Created project "+id)
	handleGetProject(w, r, id)
}

func handleUpdateProject(w http.ResponseWriter, r *http.Request, id string) {
	var cur string
	if err := db.QueryRow("SELECT status FROM projects WHERE id=?", id).Scan(&cur); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	var p Project
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }
	_, err := db.Exec("UPDATE projects SET name=?,address=?,notes=?,updated_at=CURRENT_TIMESTAMP WHERE id=?",
		p.Name, p.Address, p.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "project", id, "Updated project "+id)
	handleGetProject(w, r, id)
}

// handleProjectStatus moves the project along its lifecycle. Completing a
// project consumes every item's reserved stock; cancelling gives all
// reservations back.
func handleProjectStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }

	var cur string
	if err := db.QueryRow("SELECT status FROM projects WHERE id=?", id).Scan(&cur); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if !canTransitionProject(cur, body.Status) {
		jsonErr(w, "cannot move project from "+cur+" to "+body.Status, 409)
		return
	}

	items := loadProjectItems(id)

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	switch body.Status {
	case StatusCompleted:
		for _, it := range items {
			if err := consumeItemStock(tx, it.ProductID, it.ReservedQty, id); err != nil {
				jsonErr(w, "stock reconciliation failed for "+it.ProductID, 409)
				return
			}
			if it.ReservedQty > 0 {
				tx.Exec("UPDATE project_items SET reserved_qty=0 WHERE id=?", it.ID)
			}
		}
		tx.Exec("UPDATE projects SET completed_at=CURRENT_TIMESTAMP WHERE id=?", id)
	case StatusCancelled:
		for _, it := range items {
			if err := releaseItemReservation(tx, it.ProductID, it.ReservedQty, id); err != nil {
				jsonErr(w, "release failed for "+it.ProductID, 409)
				return
			}
			if it.ReservedQty > 0 {
				tx.Exec("UPDATE project_items SET reserved_qty=0 WHERE id=?", it.ID)
			}
		}
	}

	if _, err := tx.Exec("UPDATE projects SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", body.Status, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "UPDATE", "project", id, "Project "+id+" moved to "+body.Status)
	handleGetProject(w, r, id)
}

func projectEditableOr409(w http.ResponseWriter, id string) bool {
	var status string
	if err := db.QueryRow("SELECT status FROM projects WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "project not found", 404)
		return false
	}
	if !projectItemsEditable(status) {
		jsonErr(w, ErrStatusLocked.Error(), 409)
		return false
	}
	return true
}

func handleAddProjectItem(w http.ResponseWriter, r *http.Request, projectID string) {
	if !projectEditableOr409(w, projectID) {
		return
	}
	var it ProjectItem
	if err := decodeBody(r, &it); err != nil { jsonErr(w, "invalid body", 400); return }
	if it.Qty <= 0 { jsonErr(w, "qty must be positive", 400); return }
	if it.ProductID != "" {
		var exists int
		db.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", it.ProductID).Scan(&exists)
		if exists == 0 { jsonErr(w, "product not found", 404); return }
	}

	// Item row and its reservation commit together
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO project_items (project_id,product_id,description,qty,unit_price) VALUES (?,?,?,?,?)",
		projectID, it.ProductID, it.Description, it.Qty, it.UnitPrice)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	itemID, _ := res.LastInsertId()

	if err := refreshItemProcurement(tx, itemID); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "UPDATE", "project", projectID, "Added item to project "+projectID)
	handleGetProject(w, r, projectID)
}

func handleUpdateProjectItem(w http.ResponseWriter, r *http.Request, projectID, itemIDStr string) {
	if !projectEditableOr409(w, projectID) {
		return
	}
	itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil { jsonErr(w, "invalid item id", 400); return }

	var cur ProjectItem
	err = db.QueryRow("SELECT id,COALESCE(product_id,''),qty,returned_qty FROM project_items WHERE id=? AND project_id=?", itemID, projectID).
		Scan(&cur.ID, &cur.ProductID, &cur.Qty, &cur.ReturnedQty)
	if err != nil { jsonErr(w, "item not found", 404); return }

	var it ProjectItem
	if err := decodeBody(r, &it); err != nil { jsonErr(w, "invalid body", 400); return }
	if it.Qty <= 0 { jsonErr(w, "qty must be positive", 400); return }
	if it.ReturnedQty < 0 || it.ReturnedQty > it.Qty {
		jsonErr(w, "returned_qty must be between 0 and qty", 400)
		return
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	_, err = tx.Exec("UPDATE project_items SET description=?,qty=?,returned_qty=?,unit_price=? WHERE id=?",
		it.Description, it.Qty, it.ReturnedQty, it.UnitPrice, itemID)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if err := refreshItemProcurement(tx, itemID); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "UPDATE", "project", projectID, "Updated item on project "+projectID)
	handleGetProject(w, r, projectID)
}

func handleDeleteProjectItem(w http.ResponseWriter, r *http.Request, projectID, itemIDStr string) {
	if !projectEditableOr409(w, projectID) {
		return
	}
	itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil { jsonErr(w, "invalid item id", 400); return }

	var productID string
	var reserved float64
	err = db.QueryRow("SELECT COALESCE(product_id,''),reserved_qty FROM project_items WHERE id=? AND project_id=?", itemID, projectID).
		Scan(&productID, &reserved)
	if err != nil { jsonErr(w, "item not found", 404); return }

	// Release and row delete commit together; a failure on either side
	// must leave both the reservation and the item in place.
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if err := releaseItemReservation(tx, productID, reserved, projectID); err != nil {
		jsonErr(w, err.Error(), 409)
		return
	}
	if _, err := tx.Exec("DELETE FROM project_items WHERE id=?", itemID); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "UPDATE", "project", projectID, "Removed item from project "+projectID)
	handleGetProject(w, r, projectID)
}
