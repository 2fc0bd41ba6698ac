package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// setupTestDB swaps the global db for an in-memory database with the full
// schema and seed data. The returned func restores the previous handle.
func setupTestDB(t *testing.T) func() {
	t.Helper()
	oldDB := db
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	// One connection, or each pooled conn would see its own empty :memory: db
	testDB.SetMaxOpenConns(1)
	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	db = testDB
	if err := runMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	seedDB()
	return func() {
		db.Close()
		db = oldDB
	}
}

// authedRequest builds a request carrying a valid session for the admin user.
func authedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)

	var userID int
	if err := db.QueryRow("SELECT id FROM users WHERE username='admin'").Scan(&userID); err != nil {
		t.Fatalf("admin user missing: %v", err)
	}
	token := "test-session-token"
	db.Exec("INSERT OR IGNORE INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, time.Now().Add(time.Hour).Format("2006-01-02 15:04:05"))
	req.AddCookie(&http.Cookie{Name: "fieldops_session", Value: token})
	return req
}

// decodeData unwraps the data field of the standard response envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("Failed to decode data: %v (body: %s)", err, rec.Body.String())
	}
}

func mustExec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec failed: %v\nquery: %s", err, query)
	}
}

// insertTestCustomer, insertTestSupplier and insertTestProduct create minimal
// rows for handler tests.
func insertTestCustomer(t *testing.T, id string) {
	t.Helper()
	mustExec(t, "INSERT INTO customers (id,name) VALUES (?,?)", id, "Customer "+id)
}

func insertTestSupplier(t *testing.T, id string) {
	t.Helper()
	mustExec(t, "INSERT INTO suppliers (id,name) VALUES (?,?)", id, "Supplier "+id)
}

func insertTestProduct(t *testing.T, id, typ string, stockQty float64) {
	t.Helper()
	mustExec(t, "INSERT INTO products (id,name,type,buy_price,sell_price) VALUES (?,?,?,10,15)", id, "Product "+id, typ)
	if typ == ProductGoods {
		mustExec(t, "INSERT INTO product_stock (product_id,quantity,reserved,available) VALUES (?,?,0,?)", id, stockQty, stockQty)
	}
}
