package main

import (
	"fmt"
	"net/http"
)

func handleListCustomers(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,name,COALESCE(phone,''),COALESCE(email,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers"
	var args []interface{}
	if q := r.URL.Query().Get("q"); q != "" {
		query += " WHERE name LIKE ? OR phone LIKE ?"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	query += " ORDER BY name"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var c Customer
		rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.CreatedAt)
		items = append(items, c)
	}
	if items == nil { items = []Customer{} }
	jsonResp(w, items)
}

func handleGetCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c Customer
	err := db.QueryRow("SELECT id,name,COALESCE(phone,''),COALESCE(email,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, c)
}

func handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	if c.Name == "" { jsonErr(w, "name is required", 400); return }
	// Auto-generate ID
	var maxNum int
	db.QueryRow("SELECT COALESCE(MAX(CAST(SUBSTR(id,6) AS INTEGER)),0) FROM customers WHERE id LIKE 'CUST-%'").Scan(&maxNum)
	c.ID = fmt.Sprintf("CUST-%03d", maxNum+1)
	_, err := db.Exec("INSERT INTO customers (id,name,phone,email,address,notes) VALUES (?,?,?,?,?,?)",
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.Notes)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "CREATE", "customer", c.ID, "Created customer "+c.Name)
	jsonResp(w, c)
}

func handleUpdateCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c Customer
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	if c.Name == "" { jsonErr(w, "name is required", 400); return }
	_, err := db.Exec("UPDATE customers SET name=?,phone=?,email=?,address=?,notes=? WHERE id=?",
		c.Name, c.Phone, c.Email, c.Address, c.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "customer", id, "Updated customer "+c.Name)
	handleGetCustomer(w, r, id)
}

func handleDeleteCustomer(w http.ResponseWriter, r *http.Request, id string) {
	_, err := db.Exec("DELETE FROM customers WHERE id=?", id)
	if err != nil { jsonErr(w, "customer has linked records", 409); return }
	logAudit(getUsername(r), "DELETE", "customer", id, "Deleted customer "+id)
	jsonResp(w, map[string]string{"deleted": id})
}

func handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,name,COALESCE(contact_name,''),COALESCE(phone,''),COALESCE(email,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM suppliers"
	var args []interface{}
	if q := r.URL.Query().Get("q"); q != "" {
		query += " WHERE name LIKE ?"
		args = append(args, "%"+q+"%")
	}
	query += " ORDER BY name"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Supplier
	for rows.Next() {
		var s Supplier
		rows.Scan(&s.ID, &s.Name, &s.ContactName, &s.Phone, &s.Email, &s.Address, &s.Notes, &s.CreatedAt)
		items = append(items, s)
	}
	if items == nil { items = []Supplier{} }
	jsonResp(w, items)
}

func handleGetSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s Supplier
	err := db.QueryRow("SELECT id,name,COALESCE(contact_name,''),COALESCE(phone,''),COALESCE(email,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM suppliers WHERE id=?", id).
		Scan(&s.ID, &s.Name, &s.ContactName, &s.Phone, &s.Email, &s.Address, &s.Notes, &s.CreatedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, s)
}

func handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var s Supplier
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }
	if s.Name == "" { jsonErr(w, "name is required", 400); return }
	var maxNum int
	db.QueryRow("SELECT COALESCE(MAX(CAST(SUBSTR(id,5) AS INTEGER)),0) FROM suppliers WHERE id LIKE 'SUP-%'").Scan(&maxNum)
	s.ID = fmt.Sprintf("SUP-%03d", maxNum+1)
	_, err := db.Exec("INSERT INTO suppliers (id,name,contact_name,phone,email,address,notes) VALUES (?,?,?,?,?,?,?)",
		s.ID, s.Name, s.ContactName, s.Phone, s.Email, s.Address, s.Notes)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "CREATE", "supplier", s.ID, "Created supplier "+s.Name)
	jsonResp(w, s)
}

func handleUpdateSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s Supplier
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }
	if s.Name == "" { jsonErr(w, "name is required", 400); return }
	_, err := db.Exec("UPDATE suppliers SET name=?,contact_name=?,phone=?,email=?,address=?,notes=? WHERE id=?",
		s.Name, s.ContactName, s.Phone, s.Email, s.Address, s.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), "UPDATE", "supplier", id, "Updated supplier "+s.Name)
	handleGetSupplier(w, r, id)
}

func handleDeleteSupplier(w http.ResponseWriter, r *http.Request, id string) {
	_, err := db.Exec("DELETE FROM suppliers WHERE id=?", id)
	if err != nil { jsonErr(w, "supplier has linked records", 409); return }
	logAudit(getUsername(r), "DELETE", "supplier", id, "Deleted supplier "+id)
	jsonResp(w, map[string]string{"deleted": id})
}
