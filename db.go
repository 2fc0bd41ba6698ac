package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Some drivers don't parse connection string params correctly
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			phone TEXT DEFAULT '', email TEXT DEFAULT '',
			address TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			contact_name TEXT DEFAULT '', phone TEXT DEFAULT '', email TEXT DEFAULT '',
			address TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS units (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			symbol TEXT DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS unit_conversions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_unit_id INTEGER NOT NULL,
			to_unit_id INTEGER NOT NULL,
			factor TEXT NOT NULL,
			UNIQUE(from_unit_id, to_unit_id),
			CHECK(from_unit_id != to_unit_id),
			FOREIGN KEY (from_unit_id) REFERENCES units(id) ON DELETE CASCADE,
			FOREIGN KEY (to_unit_id) REFERENCES units(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			type TEXT DEFAULT 'goods' CHECK(type IN ('goods','service')),
			unit_id INTEGER DEFAULT 0, purchase_unit_id INTEGER DEFAULT 0,
			sell_price REAL DEFAULT 0 CHECK(sell_price >= 0),
			buy_price REAL DEFAULT 0 CHECK(buy_price >= 0),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS product_stock (
			product_id TEXT PRIMARY KEY,
			quantity REAL DEFAULT 0 CHECK(quantity >= 0),
			reserved REAL DEFAULT 0 CHECK(reserved >= 0 AND reserved <= quantity),
			available REAL DEFAULT 0 CHECK(available >= 0),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('opname_in','opname_out','receipt','consumption','release')),
			qty REAL NOT NULL CHECK(qty > 0),
			reference TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stock_opnames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			system_qty REAL NOT NULL,
			actual_qty REAL NOT NULL CHECK(actual_qty >= 0),
			difference REAL NOT NULL,
			notes TEXT DEFAULT '', created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quotations (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			title TEXT DEFAULT '',
			status TEXT DEFAULT 'draft' CHECK(status IN ('draft','sent','accepted','rejected','expired','cancelled')),
			total REAL DEFAULT 0,
			valid_until TEXT DEFAULT '', notes TEXT DEFAULT '', created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			accepted_at DATETIME,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS quotation_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quotation_id TEXT NOT NULL,
			product_id TEXT DEFAULT '', description TEXT DEFAULT '',
			qty REAL NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			quotation_id TEXT DEFAULT '',
			customer_id TEXT NOT NULL,
			name TEXT DEFAULT '',
			status TEXT DEFAULT 'quotation' CHECK(status IN ('quotation','approved','ongoing','completed','paid','closed','cancelled')),
			address TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS project_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			product_id TEXT DEFAULT '', description TEXT DEFAULT '',
			qty REAL NOT NULL CHECK(qty > 0),
			returned_qty REAL DEFAULT 0 CHECK(returned_qty >= 0),
			reserved_qty REAL DEFAULT 0 CHECK(reserved_qty >= 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			needs_po INTEGER DEFAULT 0,
			po_status TEXT DEFAULT 'none' CHECK(po_status IN ('none','pending','ordered','received')),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			project_id TEXT DEFAULT '',
			status TEXT DEFAULT 'draft' CHECK(status IN ('draft','ordered','partial','received','cancelled')),
			total REAL DEFAULT 0,
			notes TEXT DEFAULT '', created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ordered_at DATETIME, received_at DATETIME,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS po_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			po_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			project_item_id INTEGER DEFAULT 0,
			description TEXT DEFAULT '',
			qty REAL NOT NULL CHECK(qty > 0),
			qty_received REAL DEFAULT 0 CHECK(qty_received >= 0),
			unit_id INTEGER DEFAULT 0,
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			FOREIGN KEY (po_id) REFERENCES purchase_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			customer_id TEXT DEFAULT '',
			status TEXT DEFAULT 'unpaid' CHECK(status IN ('unpaid','partial','paid','cancelled')),
			total REAL DEFAULT 0 CHECK(total >= 0),
			paid REAL DEFAULT 0 CHECK(paid >= 0),
			due_date TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			paid_at DATETIME,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invoice_id TEXT NOT NULL,
			amount REAL NOT NULL CHECK(amount > 0),
			method TEXT DEFAULT 'transfer',
			reference TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (invoice_id) REFERENCES invoices(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS warranties (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			product_id TEXT DEFAULT '',
			months INTEGER DEFAULT 12 CHECK(months > 0),
			starts_on TEXT DEFAULT '', expires_on TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS warranty_claims (
			id TEXT PRIMARY KEY,
			warranty_id TEXT NOT NULL,
			issue TEXT DEFAULT '',
			status TEXT DEFAULT 'open' CHECK(status IN ('open','in_progress','resolved','rejected')),
			resolution TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			resolved_at DATETIME,
			FOREIGN KEY (warranty_id) REFERENCES warranties(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS cashflow (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL CHECK(type IN ('in','out')),
			category TEXT DEFAULT 'general',
			amount REAL NOT NULL CHECK(amount > 0),
			reference TEXT DEFAULT '', notes TEXT DEFAULT '',
			entry_date TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			role TEXT DEFAULT 'user',
			active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_login DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration error: %w\nSQL: %s", err, t)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_quotations_customer_id ON quotations(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_quotations_status ON quotations(status)",
		"CREATE INDEX IF NOT EXISTS idx_quotation_items_quotation_id ON quotation_items(quotation_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_customer_id ON projects(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)",
		"CREATE INDEX IF NOT EXISTS idx_project_items_project_id ON project_items(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_project_items_product_id ON project_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_project_items_po_status ON project_items(po_status)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_supplier_id ON purchase_orders(supplier_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_project_id ON purchase_orders(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_status ON purchase_orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_po_items_po_id ON po_items(po_id)",
		"CREATE INDEX IF NOT EXISTS idx_po_items_product_id ON po_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_id ON stock_movements(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_created_at ON stock_movements(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_opnames_product_id ON stock_opnames(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_project_id ON invoices(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status)",
		"CREATE INDEX IF NOT EXISTS idx_payments_invoice_id ON payments(invoice_id)",
		"CREATE INDEX IF NOT EXISTS idx_warranties_project_id ON warranties(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_warranty_claims_warranty_id ON warranty_claims(warranty_id)",
		"CREATE INDEX IF NOT EXISTS idx_cashflow_entry_date ON cashflow(entry_date)",
		"CREATE INDEX IF NOT EXISTS idx_cashflow_category ON cashflow(category)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_module ON audit_log(module)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_record_id ON audit_log(record_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index creation: %w\nSQL: %s", err, idx)
		}
	}

	return nil
}

func seedDB() {
	// Always ensure admin user exists
	var userCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'admin'").Scan(&userCount)
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash admin password: %v", err)
		} else {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)",
				"admin", string(hash), "Administrator", "admin")
		}
	}

	// Seed base units and conversions once
	var unitCount int
	db.QueryRow("SELECT COUNT(*) FROM units").Scan(&unitCount)
	if unitCount == 0 {
		units := []struct{ name, symbol string }{
			{"piece", "pcs"}, {"meter", "m"}, {"roll", "roll"}, {"box", "box"},
		}
		for _, u := range units {
			db.Exec("INSERT INTO units (name, symbol) VALUES (?, ?)", u.name, u.symbol)
		}
		// 1 roll of cable = 305 meters (standard UTP box)
		var rollID, meterID int64
		db.QueryRow("SELECT id FROM units WHERE name='roll'").Scan(&rollID)
		db.QueryRow("SELECT id FROM units WHERE name='meter'").Scan(&meterID)
		if rollID != 0 && meterID != 0 {
			db.Exec("INSERT INTO unit_conversions (from_unit_id, to_unit_id, factor) VALUES (?, ?, ?)",
				rollID, meterID, "305")
		}
	}
}

// nullString scans a nullable timestamp column straight into an optional
// string for the JSON layer.
type nullString struct{ sql.NullString }

func (n nullString) ptr() *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
