package main

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

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
	// busy_timeout and foreign_keys are per-connection pragmas, so they go in
	// the DSN where the driver applies them to every pooled connection.
	// _txlock=immediate makes transactions take the write lock up front,
	// so concurrent writers queue instead of failing on lock upgrade.
	db, err = sql.Open("sqlite", path+sep+"_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_txlock=immediate")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// journal_mode persists in the database file, one-time Exec is enough
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			sku TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			category TEXT DEFAULT '',
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			reorder_level REAL DEFAULT 0 CHECK(reorder_level >= 0),
			active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			product_id TEXT PRIMARY KEY,
			quantity_on_hand REAL NOT NULL DEFAULT 0 CHECK(quantity_on_hand >= 0),
			quantity_reserved REAL NOT NULL DEFAULT 0 CHECK(quantity_reserved >= 0),
			quantity_available REAL GENERATED ALWAYS AS (quantity_on_hand - quantity_reserved) VIRTUAL,
			location TEXT DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS staff (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT DEFAULT '',
			role TEXT DEFAULT 'clerk' CHECK(role IN ('manager','clerk','technician')),
			active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			staff_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('receive','issue','adjust','return','scrap')),
			quantity REAL NOT NULL,
			reference TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT,
			FOREIGN KEY (staff_id) REFERENCES staff(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			asset_tag TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			category TEXT DEFAULT '',
			status TEXT DEFAULT 'in_service' CHECK(status IN ('in_service','in_repair','in_storage','retired','missing')),
			serial_number TEXT DEFAULT '',
			location TEXT DEFAULT '',
			assigned_to TEXT,
			purchase_date DATE,
			purchase_cost REAL DEFAULT 0 CHECK(purchase_cost >= 0),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (assigned_to) REFERENCES staff(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS asset_maintenance (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id TEXT NOT NULL,
			staff_id TEXT,
			type TEXT DEFAULT 'service' CHECK(type IN ('inspection','repair','service','calibration','upgrade')),
			status TEXT DEFAULT 'scheduled' CHECK(status IN ('scheduled','in_progress','completed','cancelled')),
			description TEXT DEFAULT '',
			cost REAL DEFAULT 0 CHECK(cost >= 0),
			scheduled_date DATE,
			completed_at DATETIME,
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE,
			FOREIGN KEY (staff_id) REFERENCES staff(id) ON DELETE RESTRICT
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
		`CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			key_hash TEXT NOT NULL,
			key_prefix TEXT NOT NULL,
			created_by TEXT DEFAULT 'admin',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used DATETIME,
			expires_at DATETIME,
			enabled INTEGER DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS saved_views (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			entity TEXT NOT NULL,
			filters TEXT DEFAULT '{}',
			created_by TEXT DEFAULT '',
			is_public INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration error: %w\nSQL: %s", err, t)
		}
	}

	// Add columns to existing tables if missing
	alterStmts := []string{
		"ALTER TABLE users ADD COLUMN active INTEGER DEFAULT 1",
		"ALTER TABLE staff ADD COLUMN phone TEXT DEFAULT ''",
		"ALTER TABLE assets ADD COLUMN serial_number TEXT DEFAULT ''",
		"ALTER TABLE asset_maintenance ADD COLUMN notes TEXT DEFAULT ''",
		"ALTER TABLE saved_views ADD COLUMN is_public INTEGER DEFAULT 0",
	}
	for _, s := range alterStmts {
		db.Exec(s) // ignore errors (column already exists)
	}

	auditMigrations := []string{
		`ALTER TABLE audit_log ADD COLUMN ip_address TEXT`,
		`ALTER TABLE audit_log ADD COLUMN user_agent TEXT`,
	}
	for _, migration := range auditMigrations {
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				log.Printf("Audit migration warning: %v\nSQL: %s", err, migration)
			}
		}
	}

	// Create indexes on frequently queried columns
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(active)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_location ON inventory(location)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_transactions_product_id ON inventory_transactions(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_transactions_staff_id ON inventory_transactions(staff_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_transactions_type ON inventory_transactions(type)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_transactions_created_at ON inventory_transactions(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status)",
		"CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category)",
		"CREATE INDEX IF NOT EXISTS idx_assets_assigned_to ON assets(assigned_to)",
		"CREATE INDEX IF NOT EXISTS idx_asset_maintenance_asset_id ON asset_maintenance(asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_asset_maintenance_status ON asset_maintenance(status)",
		"CREATE INDEX IF NOT EXISTS idx_asset_maintenance_scheduled_date ON asset_maintenance(scheduled_date)",
		"CREATE INDEX IF NOT EXISTS idx_staff_role ON staff(role)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_module ON audit_log(module)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_record_id ON audit_log(record_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action)",
		"CREATE INDEX IF NOT EXISTS idx_saved_views_entity ON saved_views(entity)",
		"CREATE INDEX IF NOT EXISTS idx_saved_views_created_by ON saved_views(created_by)",

		// Composite indexes for the report queries
		"CREATE INDEX IF NOT EXISTS idx_transactions_product_created ON inventory_transactions(product_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_maintenance_status_scheduled ON asset_maintenance(status, scheduled_date)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_user_created ON audit_log(user_id, created_at)",
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

	var clerkCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'clerk'").Scan(&clerkCount)
	if clerkCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err == nil {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, 1)",
				"clerk", string(hash), "Stock Clerk", "user")
		}
	}

	var viewCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'viewer'").Scan(&viewCount)
	if viewCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err == nil {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, 1)",
				"viewer", string(hash), "Viewer", "readonly")
		}
	}

	// Check if already seeded
	var count int
	db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count)
	if count > 0 {
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	year := time.Now().Format("2006")

	// Staff
	db.Exec(`INSERT INTO staff (id,name,email,phone,role) VALUES (?,?,?,?,?)`,
		"STF-001", "Dana Reyes", "dana@example.com", "555-0101", "manager")
	db.Exec(`INSERT INTO staff (id,name,email,phone,role) VALUES (?,?,?,?,?)`,
		"STF-002", "Sam Okafor", "sam@example.com", "555-0102", "technician")
	db.Exec(`INSERT INTO staff (id,name,email,role) VALUES (?,?,?,?)`,
		"STF-003", "Lee Tran", "lee@example.com", "clerk")

	// Products and their stock rows
	db.Exec(`INSERT INTO products (id,sku,name,description,category,unit_price,reorder_level,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		"PRD-"+year+"-0001", "TP-10G", "Thermal Paste 10g", "Silver compound, 10 gram tube", "consumables", 7.50, 20, now, now)
	db.Exec(`INSERT INTO products (id,sku,name,description,category,unit_price,reorder_level,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		"PRD-"+year+"-0002", "HDMI-2M", "HDMI Cable 2m", "High speed with ethernet", "accessories", 4.25, 50, now, now)
	db.Exec(`INSERT INTO products (id,sku,name,category,unit_price,reorder_level,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		"PRD-"+year+"-0003", "LBL-57", "Label Roll 57mm", "consumables", 2.10, 100, now, now)

	db.Exec(`INSERT INTO inventory (product_id,quantity_on_hand,quantity_reserved,location) VALUES (?,?,?,?)`,
		"PRD-"+year+"-0001", 105, 10, "Bin A-12")
	db.Exec(`INSERT INTO inventory (product_id,quantity_on_hand,quantity_reserved,location) VALUES (?,?,?,?)`,
		"PRD-"+year+"-0002", 30, 0, "Bin B-03")
	db.Exec(`INSERT INTO inventory (product_id,quantity_on_hand,location) VALUES (?,?,?)`,
		"PRD-"+year+"-0003", 450, "Shelf C-1")

	// Transactions record the signed delta that was applied
	db.Exec(`INSERT INTO inventory_transactions (product_id,staff_id,type,quantity,reference,notes,created_at) VALUES (?,?,?,?,?,?,?)`,
		"PRD-"+year+"-0001", "STF-001", "receive", 120, "PO-1001", "Initial stock", now)
	db.Exec(`INSERT INTO inventory_transactions (product_id,staff_id,type,quantity,reference,created_at) VALUES (?,?,?,?,?,?)`,
		"PRD-"+year+"-0001", "STF-002", "issue", -15, "JOB-114", now)

	// Assets
	db.Exec(`INSERT INTO assets (id,asset_tag,name,category,status,serial_number,location,assigned_to,purchase_date,purchase_cost,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		"AST-"+year+"-0001", "FLT-01", "Forklift A", "equipment", "in_service", "FK5520431", "Warehouse 1", "STF-002", "2024-03-10", 18500, now, now)
	db.Exec(`INSERT INTO assets (id,asset_tag,name,category,status,purchase_date,purchase_cost,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		"AST-"+year+"-0002", "PRN-03", "Label Printer", "office", "in_repair", "2023-08-22", 320, now, now)

	// Maintenance history
	db.Exec(`INSERT INTO asset_maintenance (asset_id,staff_id,type,status,description,cost,scheduled_date,completed_at) VALUES (?,?,?,?,?,?,?,?)`,
		"AST-"+year+"-0001", "STF-002", "service", "completed", "Annual hydraulic service", 150, "2026-02-01", now)
	db.Exec(`INSERT INTO asset_maintenance (asset_id,type,status,description,scheduled_date) VALUES (?,?,?,?,?)`,
		"AST-"+year+"-0002", "repair", "scheduled", "Print head replacement", "2026-09-15")
}

// ID generation helpers
func nextID(prefix string, table string, digits int) string {
	year := time.Now().Format("2006")
	pattern := prefix + "-" + year + "-%"
	var maxID sql.NullString
	db.QueryRow("SELECT id FROM "+table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", pattern).Scan(&maxID)

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if len(parts) >= 3 {
			if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, year, digits, next)
}

// nextSeqID generates year-less sequential IDs like STF-001.
func nextSeqID(prefix string, table string, digits int) string {
	start := len(prefix) + 2
	var max int
	db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM %s WHERE id LIKE '%s-%%'",
		start, table, prefix)).Scan(&max)
	return fmt.Sprintf("%s-%0*d", prefix, digits, max+1)
}

func ns(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func sp(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// nz maps the empty string to NULL. Nullable FK columns reject '', so
// writes of optional references go through this.
func nz(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
