package main

import (
	"net/http"
	"time"
)

func loadPOItems(id string) []POItem {
	rows, err := db.Query(`SELECT id,po_id,product_id,project_item_id,COALESCE(description,''),qty,qty_received,unit_id,unit_price
		FROM po_items WHERE po_id=? ORDER BY id`, id)
	if err != nil {
		return []POItem{}
	}
	defer rows.Close()
	items := []POItem{}
	for rows.Next() {
		var it POItem
		rows.Scan(&it.ID, &it.POID, &it.ProductID, &it.ProjectItemID, &it.Description, &it.Qty, &it.QtyReceived, &it.UnitID, &it.UnitPrice)
		items = append(items, it)
	}
	return items
}

func handleListPOs(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,supplier_id,COALESCE(project_id,''),status,total,COALESCE(notes,''),COALESCE(created_by,''),created_at,ordered_at,received_at FROM purchase_orders"
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
	var items []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		var orderedAt, receivedAt nullString
		rows.Scan(&po.ID, &po.SupplierID, &po.ProjectID, &po.Status, &po.Total, &po.Notes, &po.CreatedBy, &po.CreatedAt, &orderedAt, &receivedAt)
		po.OrderedAt = orderedAt.ptr()
		po.ReceivedAt = receivedAt.ptr()
		items = append(items, po)
	}
	if items == nil { items = []PurchaseOrder{} }
	jsonResp(w, items)
}

func handleGetPO(w http.ResponseWriter, r *http.Request, id string) {
	var po PurchaseOrder
	var orderedAt, receivedAt nullString
	err := db.QueryRow("SELECT id,supplier_id,COALESCE(project_id,''),status,total,COALESCE(notes,''),COALESCE(created_by,''),created_at,ordered_at,received_at FROM purchase_orders WHERE id=?", id).
		Scan(&po.ID, &po.SupplierID, &po.ProjectID, &po.Status, &po.Total, &po.Notes, &po.CreatedBy, &po.CreatedAt, &orderedAt, &receivedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	po.OrderedAt = orderedAt.ptr()
	po.ReceivedAt = receivedAt.ptr()
	po.Items = loadPOItems(id)
	jsonResp(w, po)
}

func handleCreatePO(w http.ResponseWriter, r *http.Request) {
	var po PurchaseOrder
	if err := decodeBody(r, &po); err != nil { jsonErr(w, "invalid body", 400); return }
	if po.SupplierID == "" { jsonErr(w, "supplier_id is required", 400); return }
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM suppliers WHERE id=?", po.SupplierID).Scan(&exists)
	if exists == 0 { jsonErr(w, "supplier not found", 404); return }
	for _, it := range po.Items {
		if it.Qty <= 0 { jsonErr(w, "item qty must be positive", 400); return }
		if it.ProductID == "" { jsonErr(w, "item product_id is required", 400); return }
	}

	username := getUsername(r)
	id, err := createNumbered(DocPO, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO purchase_orders (id,supplier_id,project_id,status,notes,created_by) VALUES (?,?,?,'draft',?,?)",
			id, po.SupplierID, po.ProjectID, po.Notes, username)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()
	for _, it := range po.Items {
		if _, err := tx.Exec("INSERT INTO po_items (po_id,product_id,project_item_id,description,qty,unit_id,unit_price) VALUES (?,?,?,?,?,?,?)",
			id, it.ProductID, it.ProjectItemID, it.Description, it.Qty, it.UnitID, it.UnitPrice); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}
	if _, err := tx.Exec(`UPDATE purchase_orders SET total=(SELECT COALESCE(SUM(qty*unit_price),0) FROM po_items WHERE po_id=?) WHERE id=?`, id, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "purchase_order", id, "Created purchase order "+id)
	handleGetPO(w, r, id)
}

// handleGeneratePO builds a draft PO from a project's pending procurement
// items. Each covered item moves to ordered so repeated generation never
// double-orders.
func handleGeneratePO(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID  string `json:"project_id"`
		SupplierID string `json:"supplier_id"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }
	if body.ProjectID == "" || body.SupplierID == "" {
		jsonErr(w, "project_id and supplier_id are required", 400)
		return
	}
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM projects WHERE id=?", body.ProjectID).Scan(&exists)
	if exists == 0 { jsonErr(w, "project not found", 404); return }
	db.QueryRow("SELECT COUNT(*) FROM suppliers WHERE id=?", body.SupplierID).Scan(&exists)
	if exists == 0 { jsonErr(w, "supplier not found", 404); return }

	type pending struct {
		itemID    int64
		productID string
		shortfall float64
		buyPrice  float64
		unitID    int64
	}
	rows, err := db.Query(`SELECT pi.id, pi.product_id, (pi.qty - pi.returned_qty - pi.reserved_qty), p.buy_price, p.purchase_unit_id
		FROM project_items pi JOIN products p ON p.id = pi.product_id
		WHERE pi.project_id=? AND pi.needs_po=1 AND pi.po_status='pending'`, body.ProjectID)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	var shorts []pending
	for rows.Next() {
		var s pending
		rows.Scan(&s.itemID, &s.productID, &s.shortfall, &s.buyPrice, &s.unitID)
		if s.shortfall > 0 {
			shorts = append(shorts, s)
		}
	}
	rows.Close()
	if len(shorts) == 0 {
		jsonErr(w, "no pending procurement items on this project", 409)
		return
	}

	username := getUsername(r)
	id, err := createNumbered(DocPO, time.Now(), func(id string) error {
		_, err := db.Exec("INSERT INTO purchase_orders (id,supplier_id,project_id,status,created_by) VALUES (?,?,?,'draft',?)",
			id, body.SupplierID, body.ProjectID, username)
		return err
	})
	if err == ErrNumberConflict { jsonErr(w, err.Error(), 409); return }
	if err != nil { jsonErr(w, err.Error(), 500); return }

	// PO lines and the ordered flags flip together, or the generation
	// could double-order on a retry.
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()
	for _, s := range shorts {
		if _, err := tx.Exec("INSERT INTO po_items (po_id,product_id,project_item_id,qty,unit_id,unit_price) VALUES (?,?,?,?,?,?)",
			id, s.productID, s.itemID, s.shortfall, s.unitID, s.buyPrice); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		if _, err := tx.Exec("UPDATE project_items SET po_status='ordered' WHERE id=?", s.itemID); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}
	if _, err := tx.Exec(`UPDATE purchase_orders SET total=(SELECT COALESCE(SUM(qty*unit_price),0) FROM po_items WHERE po_id=?) WHERE id=?`, id, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(username, "CREATE", "purchase_order", id, "Generated purchase order "+id+" from project "+body.ProjectID)
	handleGetPO(w, r, id)
}

func handleUpdatePO(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status != "draft" { jsonErr(w, "only draft purchase orders can be edited", 409); return }

	var po PurchaseOrder
	if err := decodeBody(r, &po); err != nil { jsonErr(w, "invalid body", 400); return }
	_, err := db.Exec("UPDATE purchase_orders SET notes=? WHERE id=?", po.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if po.Items != nil {
		for _, it := range po.Items {
			if it.Qty <= 0 { jsonErr(w, "item qty must be positive", 400); return }
		}
		tx, err := db.Begin()
		if err != nil { jsonErr(w, err.Error(), 500); return }
		defer tx.Rollback()
		if _, err := tx.Exec("DELETE FROM po_items WHERE po_id=?", id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		for _, it := range po.Items {
			if _, err := tx.Exec("INSERT INTO po_items (po_id,product_id,project_item_id,description,qty,unit_id,unit_price) VALUES (?,?,?,?,?,?,?)",
				id, it.ProductID, it.ProjectItemID, it.Description, it.Qty, it.UnitID, it.UnitPrice); err != nil {
				jsonErr(w, err.Error(), 500)
				return
			}
		}
		if _, err := tx.Exec(`UPDATE purchase_orders SET total=(SELECT COALESCE(SUM(qty*unit_price),0) FROM po_items WHERE po_id=?) WHERE id=?`, id, id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }
	}

	logAudit(getUsername(r), "UPDATE", "purchase_order", id, "Updated purchase order "+id)
	handleGetPO(w, r, id)
}

func handleOrderPO(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status != "draft" { jsonErr(w, "purchase order is already "+status, 409); return }
	_, err := db.Exec("UPDATE purchase_orders SET status='ordered', ordered_at=CURRENT_TIMESTAMP WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "purchase_order", id, "Purchase order "+id+" sent to supplier")
	handleGetPO(w, r, id)
}

// handleReceivePO books received goods into stock. A partial list of item
// quantities may be posted; omitted items receive their full outstanding
// amount. Linked project items flip to received and get re-evaluated so the
// new stock is reserved for them.
func handleReceivePO(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status != "ordered" && status != "partial" {
		jsonErr(w, "purchase order must be ordered before receiving", 409)
		return
	}

	var body struct {
		Items []struct {
			ItemID int64   `json:"item_id"`
			Qty    float64 `json:"qty"`
		} `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }
	received := map[int64]float64{}
	for _, it := range body.Items {
		if it.Qty < 0 { jsonErr(w, "received qty cannot be negative", 400); return }
		received[it.ItemID] = it.Qty
	}

	poItems := loadPOItems(id)

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	allDone := true
	var refreshItems []int64
	for _, it := range poItems {
		outstanding := it.Qty - it.QtyReceived
		qty, ok := received[it.ID]
		if !ok {
			qty = outstanding
		}
		if qty > outstanding {
			jsonErr(w, "received more than outstanding on item", 400)
			return
		}
		if qty > 0 {
			if err := receiveStock(tx, it.ProductID, qty, id); err != nil {
				jsonErr(w, err.Error(), 500)
				return
			}
			if _, err := tx.Exec("UPDATE po_items SET qty_received=qty_received+? WHERE id=?", qty, it.ID); err != nil {
				jsonErr(w, err.Error(), 500)
				return
			}
		}
		if it.QtyReceived+qty < it.Qty {
			allDone = false
		}
		if it.ProjectItemID != 0 && qty > 0 {
			refreshItems = append(refreshItems, it.ProjectItemID)
		}
	}

	newStatus := "partial"
	if allDone {
		newStatus = "received"
		if _, err := tx.Exec("UPDATE purchase_orders SET status='received', received_at=CURRENT_TIMESTAMP WHERE id=?", id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	} else {
		if _, err := tx.Exec("UPDATE purchase_orders SET status='partial' WHERE id=?", id); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	for _, itemID := range refreshItems {
		if allDone {
			tx.Exec("UPDATE project_items SET po_status='received', needs_po=0 WHERE id=?", itemID)
		}
		if err := refreshItemProcurement(tx, itemID); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), "RECEIVE", "purchase_order", id, "Received goods on purchase order "+id+" ("+newStatus+")")
	handleGetPO(w, r, id)
}

func handleDeletePO(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := db.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status != "draft" && status != "cancelled" {
		jsonErr(w, "only draft purchase orders can be deleted", 409)
		return
	}
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()
	// Items generated from a project go back to pending
	if _, err := tx.Exec(`UPDATE project_items SET po_status='pending'
		WHERE po_status='ordered' AND id IN (SELECT project_item_id FROM po_items WHERE po_id=? AND project_item_id != 0)`, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec("DELETE FROM purchase_orders WHERE id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "DELETE", "purchase_order", id, "Deleted purchase order "+id)
	jsonResp(w, map[string]string{"deleted": id})
}
