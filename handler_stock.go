package main

import (
	"net/http"
	"strconv"
)

// StockRow joins the stock record with its product for list views.
type StockRow struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitID      int64   `json:"unit_id"`
	Quantity    float64 `json:"quantity"`
	Reserved    float64 `json:"reserved"`
	Available   float64 `json:"available"`
	UpdatedAt   string  `json:"updated_at"`
}

func handleListStock(w http.ResponseWriter, r *http.Request) {
	query := `SELECT p.id, p.name, p.unit_id,
		COALESCE(s.quantity,0), COALESCE(s.reserved,0), COALESCE(s.available,0), COALESCE(s.updated_at,'')
		FROM products p LEFT JOIN product_stock s ON s.product_id = p.id
		WHERE p.type = 'goods'`
	var args []interface{}
	if q := r.URL.Query().Get("q"); q != "" {
		query += " AND p.name LIKE ?"
		args = append(args, "%"+q+"%")
	}
	if r.URL.Query().Get("short") == "1" {
		query += " AND COALESCE(s.available,0) <= 0"
	}
	query += " ORDER BY p.name"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []StockRow
	for rows.Next() {
		var s StockRow
		rows.Scan(&s.ProductID, &s.ProductName, &s.UnitID, &s.Quantity, &s.Reserved, &s.Available, &s.UpdatedAt)
		items = append(items, s)
	}
	if items == nil { items = []StockRow{} }
	jsonResp(w, items)
}

func handleGetStock(w http.ResponseWriter, r *http.Request, productID string) {
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", productID).Scan(&exists)
	if exists == 0 { jsonErr(w, "product not found", 404); return }
	var s ProductStock
	s.ProductID = productID
	db.QueryRow("SELECT COALESCE(quantity,0),COALESCE(reserved,0),COALESCE(available,0),COALESCE(updated_at,'') FROM product_stock WHERE product_id=?", productID).
		Scan(&s.Quantity, &s.Reserved, &s.Available, &s.UpdatedAt)
	jsonResp(w, s)
}

func handleStockMovements(w http.ResponseWriter, r *http.Request, productID string) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := db.Query(`SELECT id,product_id,type,qty,COALESCE(reference,''),COALESCE(notes,''),created_at
		FROM stock_movements WHERE product_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, productID, limit)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []StockMovement
	for rows.Next() {
		var m StockMovement
		rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Qty, &m.Reference, &m.Notes, &m.CreatedAt)
		items = append(items, m)
	}
	if items == nil { items = []StockMovement{} }
	jsonResp(w, items)
}

type OpnameRequest struct {
	ProductID string  `json:"product_id"`
	ActualQty float64 `json:"actual_qty"`
	Notes     string  `json:"notes"`
}

func handleStockOpname(w http.ResponseWriter, r *http.Request) {
	var req OpnameRequest
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	username := getUsername(r)
	op, err := applyStockOpname(req.ProductID, req.ActualQty, req.Notes, username)
	switch err {
	case nil:
	case ErrInvalidQuantity:
		jsonErr(w, "actual quantity cannot be negative", 400)
		return
	case ErrProductNotFound:
		jsonErr(w, "product not found", 404)
		return
	case ErrStockIntegrity:
		jsonErr(w, "count conflicts with reserved stock", 409)
		return
	default:
		jsonErr(w, err.Error(), 500)
		return
	}
	logAudit(username, "OPNAME", "stock", req.ProductID,
		"Stock opname for "+req.ProductID)
	jsonResp(w, op)
}

func handleListOpnames(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,product_id,system_qty,actual_qty,difference,COALESCE(notes,''),COALESCE(created_by,''),created_at FROM stock_opnames"
	var args []interface{}
	if pid := r.URL.Query().Get("product_id"); pid != "" {
		query += " WHERE product_id=?"
		args = append(args, pid)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 200"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []StockOpname
	for rows.Next() {
		var o StockOpname
		rows.Scan(&o.ID, &o.ProductID, &o.SystemQty, &o.ActualQty, &o.Difference, &o.Notes, &o.CreatedBy, &o.CreatedAt)
		items = append(items, o)
	}
	if items == nil { items = []StockOpname{} }
	jsonResp(w, items)
}
