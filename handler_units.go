package main

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

func handleListUnits(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query("SELECT id,name,COALESCE(symbol,'') FROM units ORDER BY name")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Unit
	for rows.Next() {
		var u Unit
		rows.Scan(&u.ID, &u.Name, &u.Symbol)
		items = append(items, u)
	}
	if items == nil { items = []Unit{} }
	jsonResp(w, items)
}

func handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var u Unit
	if err := decodeBody(r, &u); err != nil { jsonErr(w, "invalid body", 400); return }
	if u.Name == "" { jsonErr(w, "name is required", 400); return }
	res, err := db.Exec("INSERT INTO units (name,symbol) VALUES (?,?)", u.Name, u.Symbol)
	if err != nil {
		if isUniqueViolation(err) { jsonErr(w, "unit name already exists", 409); return }
		jsonErr(w, err.Error(), 500)
		return
	}
	u.ID, _ = res.LastInsertId()
	logAudit(getUsername(r), "CREATE", "unit", u.Name, "Created unit "+u.Name)
	jsonResp(w, u)
}

func handleUpdateUnit(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil { jsonErr(w, "invalid id", 400); return }
	var u Unit
	if err := decodeBody(r, &u); err != nil { jsonErr(w, "invalid body", 400); return }
	if u.Name == "" { jsonErr(w, "name is required", 400); return }
	_, err = db.Exec("UPDATE units SET name=?,symbol=? WHERE id=?", u.Name, u.Symbol, id)
	if err != nil {
		if isUniqueViolation(err) { jsonErr(w, "unit name already exists", 409); return }
		jsonErr(w, err.Error(), 500)
		return
	}
	u.ID = id
	logAudit(getUsername(r), "UPDATE", "unit", u.Name, "Updated unit "+u.Name)
	jsonResp(w, u)
}

func handleDeleteUnit(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil { jsonErr(w, "invalid id", 400); return }
	var inUse int
	db.QueryRow("SELECT COUNT(*) FROM products WHERE unit_id=? OR purchase_unit_id=?", id, id).Scan(&inUse)
	if inUse > 0 { jsonErr(w, "unit is in use by products", 409); return }
	_, err = db.Exec("DELETE FROM units WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "DELETE", "unit", idStr, "Deleted unit "+idStr)
	jsonResp(w, map[string]string{"deleted": idStr})
}

func handleListConversions(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query("SELECT id,from_unit_id,to_unit_id,factor FROM unit_conversions ORDER BY id")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []UnitConversion
	for rows.Next() {
		var c UnitConversion
		rows.Scan(&c.ID, &c.FromUnitID, &c.ToUnitID, &c.Factor)
		items = append(items, c)
	}
	if items == nil { items = []UnitConversion{} }
	jsonResp(w, items)
}

func handleCreateConversion(w http.ResponseWriter, r *http.Request) {
	var c UnitConversion
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	factor, err := decimal.NewFromString(c.Factor)
	if err != nil { jsonErr(w, "factor must be a decimal number", 400); return }
	id, err := createUnitConversion(db, c.FromUnitID, c.ToUnitID, factor)
	switch {
	case err == ErrSelfConversion:
		jsonErr(w, err.Error(), 400)
		return
	case err == ErrInvalidQuantity:
		jsonErr(w, "factor must be positive", 400)
		return
	case err == ErrUnitNotFound:
		jsonErr(w, err.Error(), 404)
		return
	case isUniqueViolation(err):
		jsonErr(w, "conversion for this unit pair already exists", 409)
		return
	case err != nil:
		jsonErr(w, err.Error(), 500)
		return
	}
	c.ID = id
	c.Factor = factor.String()
	logAudit(getUsername(r), "CREATE", "unit_conversion", strconv.FormatInt(id, 10), "Created unit conversion")
	jsonResp(w, c)
}

func handleDeleteConversion(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil { jsonErr(w, "invalid id", 400); return }
	res, err := db.Exec("DELETE FROM unit_conversions WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), "DELETE", "unit_conversion", idStr, "Deleted unit conversion "+idStr)
	jsonResp(w, map[string]string{"deleted": idStr})
}

type ConvertRequest struct {
	FromUnitID int64  `json:"from_unit_id"`
	ToUnitID   int64  `json:"to_unit_id"`
	Qty        string `json:"qty"`
}

type ConvertResponse struct {
	FromUnitID int64  `json:"from_unit_id"`
	ToUnitID   int64  `json:"to_unit_id"`
	Qty        string `json:"qty"`
	Result     string `json:"result"`
	Factor     string `json:"factor"`
	IsReverse  bool   `json:"is_reverse"`
}

func handleConvertUnits(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil { jsonErr(w, "qty must be a decimal number", 400); return }
	res, err := resolveUnitConversion(db, req.FromUnitID, req.ToUnitID, qty)
	if err == ErrConversionNotFound {
		jsonErr(w, err.Error(), 404)
		return
	}
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, ConvertResponse{
		FromUnitID: req.FromUnitID,
		ToUnitID:   req.ToUnitID,
		Qty:        qty.String(),
		Result:     res.Quantity.String(),
		Factor:     res.Factor.String(),
		IsReverse:  res.IsReverse,
	})
}
