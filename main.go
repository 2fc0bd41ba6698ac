package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"fieldops/internal/response"
)

var companyName string
var companyEmail string

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func decodeBody(r *http.Request, dst interface{}) error {
	return response.DecodeBody(r, dst)
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("Config load failed:", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	companyName = cfg.CompanyName
	companyEmail = cfg.CompanyEmail

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed:", err)
	}
	seedDB()

	mux := buildRouter()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("%s backend listening on %s", companyName, addr)
	log.Fatal(http.ListenAndServe(addr, logging(requireAuth(requireRole(mux)))))
}

func buildRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", handleWS)

	// Auth routes
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		handleMe(w, r)
	})

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Dashboard
		case path == "dashboard" && r.Method == "GET":
			handleDashboard(w, r)

		// Customers
		case path == "customers" && r.Method == "GET":
			handleListCustomers(w, r)
		case path == "customers" && r.Method == "POST":
			handleCreateCustomer(w, r)
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "GET":
			handleGetCustomer(w, r, parts[1])
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateCustomer(w, r, parts[1])
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteCustomer(w, r, parts[1])

		// Suppliers
		case path == "suppliers" && r.Method == "GET":
			handleListSuppliers(w, r)
		case path == "suppliers" && r.Method == "POST":
			handleCreateSupplier(w, r)
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "GET":
			handleGetSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteSupplier(w, r, parts[1])

		// Products
		case path == "products" && r.Method == "GET":
			handleListProducts(w, r)
		case path == "products" && r.Method == "POST":
			handleCreateProduct(w, r)
		case parts[0] == "products" && len(parts) == 2 && r.Method == "GET":
			handleGetProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteProduct(w, r, parts[1])

		// Units and conversions
		case path == "units" && r.Method == "GET":
			handleListUnits(w, r)
		case path == "units" && r.Method == "POST":
			handleCreateUnit(w, r)
		case path == "units/conversions" && r.Method == "GET":
			handleListConversions(w, r)
		case path == "units/conversions" && r.Method == "POST":
			handleCreateConversion(w, r)
		case parts[0] == "units" && len(parts) == 3 && parts[1] == "conversions" && r.Method == "DELETE":
			handleDeleteConversion(w, r, parts[2])
		case path == "units/convert" && r.Method == "POST":
			handleConvertUnits(w, r)
		case parts[0] == "units" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateUnit(w, r, parts[1])
		case parts[0] == "units" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteUnit(w, r, parts[1])

		// Stock
		case path == "stock" && r.Method == "GET":
			handleListStock(w, r)
		case path == "stock/opname" && r.Method == "POST":
			handleStockOpname(w, r)
		case path == "stock/opnames" && r.Method == "GET":
			handleListOpnames(w, r)
		case path == "stock/export" && r.Method == "GET":
			handleExportStock(w, r)
		case parts[0] == "stock" && len(parts) == 3 && parts[2] == "movements" && r.Method == "GET":
			handleStockMovements(w, r, parts[1])
		case parts[0] == "stock" && len(parts) == 2 && r.Method == "GET":
			handleGetStock(w, r, parts[1])

		// Quotations
		case path == "quotations" && r.Method == "GET":
			handleListQuotations(w, r)
		case path == "quotations" && r.Method == "POST":
			handleCreateQuotation(w, r)
		case parts[0] == "quotations" && len(parts) == 2 && r.Method == "GET":
			handleGetQuotation(w, r, parts[1])
		case parts[0] == "quotations" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateQuotation(w, r, parts[1])
		case parts[0] == "quotations" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteQuotation(w, r, parts[1])
		case parts[0] == "quotations" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			handleQuotationStatus(w, r, parts[1])
		case parts[0] == "quotations" && len(parts) == 3 && parts[2] == "accept" && r.Method == "POST":
			handleAcceptQuotation(w, r, parts[1])

		// Projects
		case path == "projects" && r.Method == "GET":
			handleListProjects(w, r)
		case path == "projects" && r.Method == "POST":
			handleCreateProject(w, r)
		case parts[0] == "projects" && len(parts) == 2 && r.Method == "GET":
			handleGetProject(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateProject(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			handleProjectStatus(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 3 && parts[2] == "items" && r.Method == "POST":
			handleAddProjectItem(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 4 && parts[2] == "items" && r.Method == "PUT":
			handleUpdateProjectItem(w, r, parts[1], parts[3])
		case parts[0] == "projects" && len(parts) == 4 && parts[2] == "items" && r.Method == "DELETE":
			handleDeleteProjectItem(w, r, parts[1], parts[3])

		// Purchase orders
		case path == "purchase-orders" && r.Method == "GET":
			handleListPOs(w, r)
		case path == "purchase-orders" && r.Method == "POST":
			handleCreatePO(w, r)
		case path == "purchase-orders/generate" && r.Method == "POST":
			handleGeneratePO(w, r)
		case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "GET":
			handleGetPO(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "PUT":
			handleUpdatePO(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "DELETE":
			handleDeletePO(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 3 && parts[2] == "order" && r.Method == "POST":
			handleOrderPO(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 3 && parts[2] == "receive" && r.Method == "POST":
			handleReceivePO(w, r, parts[1])

		// Invoices and payments
		case path == "invoices" && r.Method == "GET":
			handleListInvoices(w, r)
		case path == "invoices" && r.Method == "POST":
			handleCreateInvoice(w, r)
		case parts[0] == "invoices" && len(parts) == 2 && r.Method == "GET":
			handleGetInvoice(w, r, parts[1])
		case parts[0] == "invoices" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateInvoice(w, r, parts[1])
		case parts[0] == "invoices" && len(parts) == 3 && parts[2] == "payments" && r.Method == "POST":
			handleAddPayment(w, r, parts[1])

		// Warranties and claims
		case path == "warranties" && r.Method == "GET":
			handleListWarranties(w, r)
		case path == "warranties" && r.Method == "POST":
			handleCreateWarranty(w, r)
		case parts[0] == "warranties" && len(parts) == 2 && r.Method == "GET":
			handleGetWarranty(w, r, parts[1])
		case parts[0] == "warranties" && len(parts) == 3 && parts[2] == "claims" && r.Method == "POST":
			handleCreateClaim(w, r, parts[1])
		case path == "claims" && r.Method == "GET":
			handleListClaims(w, r)
		case parts[0] == "claims" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateClaim(w, r, parts[1])

		// Cashflow
		case path == "cashflow" && r.Method == "GET":
			handleListCashflow(w, r)
		case path == "cashflow" && r.Method == "POST":
			handleCreateCashflow(w, r)
		case path == "cashflow/summary" && r.Method == "GET":
			handleCashflowSummary(w, r)
		case path == "cashflow/export" && r.Method == "GET":
			handleExportCashflow(w, r)

		// Audit log
		case path == "audit" && r.Method == "GET":
			handleAuditLog(w, r)

		default:
			jsonErr(w, "Not found", 404)
		}
	})

	return mux
}
