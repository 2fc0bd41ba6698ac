package main

import (
	"fmt"
	"net/http"
)

func handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,name,type,unit_id,purchase_unit_id,sell_price,buy_price,COALESCE(notes,''),created_at FROM products"
	var args []interface{}
	var where []string
	if q := r.URL.Query().Get("q"); q != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if t := r.URL.Query().Get("type"); t != "" {
		where = append(where, "type = ?")
		args = append(args, t)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY name"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		rows.Scan(&p.ID, &p.Name, &p.Type, &p.UnitID, &p.PurchaseUnitID, &p.SellPrice, &p.BuyPrice, &p.Notes, &p.CreatedAt)
		items = append(items, p)
	}
	if items == nil { items = []Product{} }
	jsonResp(w, items)
}

func handleGetProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p Product
	err := db.QueryRow("SELECT id,name,type,unit_id,purchase_unit_id,sell_price,buy_price,COALESCE(notes,''),created_at FROM products WHERE id=?", id).
		Scan(&p.ID, &p.Name, &p.Type, &p.UnitID, &p.PurchaseUnitID, &p.SellPrice, &p.BuyPrice, &p.Notes, &p.CreatedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, p)
}

func handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }
	if p.Name == "" { jsonErr(w, "name is required", 400); return }
	if p.Type == "" { p.Type = ProductGoods }
	if p.Type != ProductGoods && p.Type != ProductService {
		jsonErr(w, "type must be goods or service", 400)
		return
	}
	var maxNum int
	db.QueryRow("SELECT COALESCE(MAX(CAST(SUBSTR(id,5) AS INTEGER)),0) FROM products WHERE id LIKE 'PRD-%'").Scan(&maxNum)
	p.ID = fmt.Sprintf("PRD-%03d", maxNum+1)
	_, err := db.Exec("INSERT INTO products (id,name,type,unit_id,purchase_unit_id,sell_price,buy_price,notes) VALUES (?,?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Type, p.UnitID, p.PurchaseUnitID, p.SellPrice, p.BuyPrice, p.Notes)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if p.Type == ProductGoods {
		ensureStockRow(db, p.ID)
	}
	logAudit(getUsername(r), "CREATE", "product", p.ID, "Created product "+p.Name)
	jsonResp(w, p)
}

func handleUpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p Product
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }
	if p.Name == "" { jsonErr(w, "name is required", 400); return }
	if p.Type != ProductGoods && p.Type != ProductService {
		jsonErr(w, "type must be goods or service", 400)
		return
	}
	_, err := db.Exec("UPDATE products SET name=?,type=?,unit_id=?,purchase_unit_id=?,sell_price=?,buy_price=?,notes=? WHERE id=?",
		p.Name, p.Type, p.UnitID, p.PurchaseUnitID, p.SellPrice, p.BuyPrice, p.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "product", id, "Updated product "+p.Name)
	handleGetProduct(w, r, id)
}

func handleDeleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	// Block deletion while stock remains on hand
	var qty float64
	db.QueryRow("SELECT COALESCE(quantity,0) FROM product_stock WHERE product_id=?", id).Scan(&qty)
	if qty > 0 {
		jsonErr(w, "product still has stock on hand", 409)
		return
	}
	db.Exec("DELETE FROM product_stock WHERE product_id=?", id)
	_, err := db.Exec("DELETE FROM products WHERE id=?", id)
	if err != nil { jsonErr(w, "product has linked records", 409); return }
	logAudit(getUsername(r), "DELETE", "product", id, "Deleted product "+id)
	jsonResp(w, map[string]string{"deleted": id})
}
