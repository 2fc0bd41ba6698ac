package main

import "net/http"

type DashboardStats struct {
	OpenQuotations   int     `json:"open_quotations"`
	ActiveProjects   int     `json:"active_projects"`
	PendingPOItems   int     `json:"pending_po_items"`
	OpenPOs          int     `json:"open_pos"`
	UnpaidInvoices   int     `json:"unpaid_invoices"`
	OutstandingTotal float64 `json:"outstanding_total"`
	OpenClaims       int     `json:"open_claims"`
	ShortProducts    int     `json:"short_products"`
	CashNet          float64 `json:"cash_net"`
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	var s DashboardStats
	db.QueryRow("SELECT COUNT(*) FROM quotations WHERE status IN ('draft','sent')").Scan(&s.OpenQuotations)
	db.QueryRow("SELECT COUNT(*) FROM projects WHERE status IN ('approved','ongoing')").Scan(&s.ActiveProjects)
	db.QueryRow("SELECT COUNT(*) FROM project_items WHERE needs_po=1 AND po_status='pending'").Scan(&s.PendingPOItems)
	db.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE status IN ('ordered','partial')").Scan(&s.OpenPOs)
	db.QueryRow("SELECT COUNT(*), COALESCE(SUM(total-paid),0) FROM invoices WHERE status IN ('unpaid','partial')").Scan(&s.UnpaidInvoices, &s.OutstandingTotal)
	db.QueryRow("SELECT COUNT(*) FROM warranty_claims WHERE status IN ('open','in_progress')").Scan(&s.OpenClaims)
	db.QueryRow("SELECT COUNT(*) FROM product_stock WHERE available <= 0 AND quantity > 0 OR product_id IN (SELECT product_id FROM project_items WHERE needs_po=1)").Scan(&s.ShortProducts)
	db.QueryRow("SELECT COALESCE(SUM(CASE WHEN type='in' THEN amount ELSE -amount END),0) FROM cashflow").Scan(&s.CashNet)
	jsonResp(w, s)
}
