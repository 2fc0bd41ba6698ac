package main

import (
	"net/http"
	"time"
)

func handleListCashflow(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,type,COALESCE(category,''),amount,COALESCE(reference,''),COALESCE(notes,''),COALESCE(entry_date,''),created_at FROM cashflow"
	var args []interface{}
	var where []string
	if t := r.URL.Query().Get("type"); t != "" {
		where = append(where, "type=?")
		args = append(args, t)
	}
	if c := r.URL.Query().Get("category"); c != "" {
		where = append(where, "category=?")
		args = append(args, c)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		where = append(where, "entry_date >= ?")
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		where = append(where, "entry_date <= ?")
		args = append(args, to)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY entry_date DESC, id DESC LIMIT 500"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []CashflowEntry
	for rows.Next() {
		var e CashflowEntry
		rows.Scan(&e.ID, &e.Type, &e.Category, &e.Amount, &e.Reference, &e.Notes, &e.EntryDate, &e.CreatedAt)
		items = append(items, e)
	}
	if items == nil { items = []CashflowEntry{} }
	jsonResp(w, items)
}

func handleCreateCashflow(w http.ResponseWriter, r *http.Request) {
	var e CashflowEntry
	if err := decodeBody(r, &e); err != nil { jsonErr(w, "invalid body", 400); return }
	if e.Type != "in" && e.Type != "out" {
		jsonErr(w, "type must be in or out", 400)
		return
	}
	if e.Amount <= 0 { jsonErr(w, "amount must be positive", 400); return }
	if e.Category == "" {
		e.Category = "general"
	}
	if e.EntryDate == "" {
		e.EntryDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", e.EntryDate); err != nil {
		jsonErr(w, "entry_date must be YYYY-MM-DD", 400)
		return
	}
	res, err := db.Exec("INSERT INTO cashflow (type,category,amount,reference,notes,entry_date) VALUES (?,?,?,?,?,?)",
		e.Type, e.Category, e.Amount, e.Reference, e.Notes, e.EntryDate)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	e.ID, _ = res.LastInsertId()
	logAudit(getUsername(r), "CREATE", "cashflow", e.Category, "Recorded cashflow entry")
	jsonResp(w, e)
}

type CashflowSummary struct {
	TotalIn    float64            `json:"total_in"`
	TotalOut   float64            `json:"total_out"`
	Net        float64            `json:"net"`
	ByCategory map[string]float64 `json:"by_category"`
}

func handleCashflowSummary(w http.ResponseWriter, r *http.Request) {
	var where string
	var args []interface{}
	if from := r.URL.Query().Get("from"); from != "" {
		where = " WHERE entry_date >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if where == "" {
			where = " WHERE entry_date <= ?"
		} else {
			where += " AND entry_date <= ?"
		}
		args = append(args, to)
	}

	var s CashflowSummary
	s.ByCategory = map[string]float64{}
	db.QueryRow("SELECT COALESCE(SUM(CASE WHEN type='in' THEN amount ELSE 0 END),0), COALESCE(SUM(CASE WHEN type='out' THEN amount ELSE 0 END),0) FROM cashflow"+where, args...).
		Scan(&s.TotalIn, &s.TotalOut)
	s.Net = s.TotalIn - s.TotalOut

	rows, err := db.Query("SELECT category, SUM(CASE WHEN type='in' THEN amount ELSE -amount END) FROM cashflow"+where+" GROUP BY category", args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	for rows.Next() {
		var cat string
		var net float64
		rows.Scan(&cat, &net)
		s.ByCategory[cat] = net
	}
	jsonResp(w, s)
}
