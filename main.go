package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"stockroom/internal/response"
)

func main() {
	configPath := flag.String("config", "stockroom.yml", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	staticDir := flag.String("static", "", "Directory with frontend assets (overrides config)")
	flag.Parse()

	var err error
	cfg, err = loadConfig(*configPath)
	if err != nil {
		log.Fatal("Config load failed: ", err)
	}
	cfg.applyEnv()
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed:", err)
	}
	seedDB()

	mux := buildMux()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("stockroom serving on http://localhost%s (db: %s)", addr, cfg.DBPath)
	log.Fatal(http.ListenAndServe(addr, logging(requireAuth(requireRBAC(mux)))))
}

// buildMux wires every route. Split out of main so tests can stand up the
// full handler chain against a test database.
func buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Static frontend. Any unknown path falls through to the SPA shell.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(cfg.StaticDir, "index.html"))
	})

	// Live updates
	mux.HandleFunc("/ws", handleWebSocket)

	// Session endpoints
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			jsonErr(w, "method not allowed", 405)
			return
		}
		handleLogin(w, r)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			jsonErr(w, "method not allowed", 405)
			return
		}
		handleLogout(w, r)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			jsonErr(w, "method not allowed", 405)
			return
		}
		handleMe(w, r)
	})

	// API routes
	mux.HandleFunc("/api/v1/", routeAPI)

	return mux
}

// routeAPI dispatches /api/v1/ requests by path segment and method.
func routeAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")

	switch {
	// Products
	case path == "products" && r.Method == "GET":
		handleListProducts(w, r)
	case path == "products" && r.Method == "POST":
		handleCreateProduct(w, r)
	case len(parts) == 2 && parts[0] == "products" && r.Method == "GET":
		handleGetProduct(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "products" && r.Method == "PUT":
		handleUpdateProduct(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "products" && r.Method == "DELETE":
		handleDeleteProduct(w, r, parts[1])

	// Inventory
	case path == "inventory" && r.Method == "GET":
		handleListInventory(w, r)
	case path == "inventory/transact" && r.Method == "POST":
		handleInventoryTransact(w, r)
	case len(parts) == 2 && parts[0] == "inventory" && r.Method == "GET":
		handleGetInventory(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "inventory" && r.Method == "PUT":
		handleUpdateInventory(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "inventory" && parts[2] == "history" && r.Method == "GET":
		handleInventoryHistory(w, r, parts[1])

	// Transactions are an immutable ledger: read only.
	case path == "transactions" && r.Method == "GET":
		handleListTransactions(w, r)
	case len(parts) == 2 && parts[0] == "transactions" && r.Method == "GET":
		handleGetTransaction(w, r, parts[1])

	// Assets
	case path == "assets" && r.Method == "GET":
		handleListAssets(w, r)
	case path == "assets" && r.Method == "POST":
		handleCreateAsset(w, r)
	case len(parts) == 2 && parts[0] == "assets" && r.Method == "GET":
		handleGetAsset(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "assets" && r.Method == "PUT":
		handleUpdateAsset(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "assets" && r.Method == "DELETE":
		handleDeleteAsset(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "assets" && parts[2] == "maintenance" && r.Method == "GET":
		handleAssetMaintenance(w, r, parts[1])

	// Maintenance
	case path == "maintenance" && r.Method == "GET":
		handleListMaintenance(w, r)
	case path == "maintenance" && r.Method == "POST":
		handleCreateMaintenance(w, r)
	case len(parts) == 2 && parts[0] == "maintenance" && r.Method == "GET":
		handleGetMaintenance(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "maintenance" && r.Method == "PUT":
		handleUpdateMaintenance(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "maintenance" && r.Method == "DELETE":
		handleDeleteMaintenance(w, r, parts[1])

	// Staff
	case path == "staff" && r.Method == "GET":
		handleListStaff(w, r)
	case path == "staff" && r.Method == "POST":
		handleCreateStaff(w, r)
	case len(parts) == 2 && parts[0] == "staff" && r.Method == "GET":
		handleGetStaff(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "staff" && r.Method == "PUT":
		handleUpdateStaff(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "staff" && r.Method == "DELETE":
		handleDeleteStaff(w, r, parts[1])

	// Reports
	case path == "reports/inventory-valuation" && r.Method == "GET":
		handleReportInventoryValuation(w, r)
	case path == "reports/low-stock" && r.Method == "GET":
		handleReportLowStock(w, r)
	case path == "reports/transaction-summary" && r.Method == "GET":
		handleReportTransactionSummary(w, r)
	case path == "reports/asset-summary" && r.Method == "GET":
		handleReportAssetSummary(w, r)
	case path == "reports/maintenance-cost" && r.Method == "GET":
		handleReportMaintenanceCost(w, r)
	case path == "dashboard" && r.Method == "GET":
		handleDashboard(w, r)

	// Exports
	case len(parts) == 2 && parts[0] == "export" && r.Method == "GET":
		handleExport(w, r, parts[1])

	// Saved views
	case path == "views" && r.Method == "GET":
		handleListViews(w, r)
	case path == "views" && r.Method == "POST":
		handleCreateView(w, r)
	case len(parts) == 2 && parts[0] == "views" && r.Method == "DELETE":
		handleDeleteView(w, r, parts[1])

	// Admin: users
	case path == "users" && r.Method == "GET":
		handleListUsers(w, r)
	case path == "users" && r.Method == "POST":
		handleCreateUser(w, r)
	case len(parts) == 2 && parts[0] == "users" && r.Method == "PUT":
		handleUpdateUser(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "password" && r.Method == "PUT":
		handleResetPassword(w, r, parts[1])

	// Admin: API keys
	case path == "apikeys" && r.Method == "GET":
		handleListAPIKeys(w, r)
	case path == "apikeys" && r.Method == "POST":
		handleCreateAPIKey(w, r)
	case len(parts) == 2 && parts[0] == "apikeys" && r.Method == "PUT":
		handleToggleAPIKey(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "apikeys" && r.Method == "DELETE":
		handleDeleteAPIKey(w, r, parts[1])

	// Barcode / quick lookup
	case len(parts) == 2 && parts[0] == "scan" && r.Method == "GET":
		handleScanLookup(w, r, parts[1])

	// Audit trail
	case path == "audit" && r.Method == "GET":
		handleAuditLog(w, r)

	// Instance info for the frontend
	case path == "config" && r.Method == "GET":
		handleInstanceConfig(w, r)

	default:
		jsonErr(w, "not found", 404)
	}
}

func handleInstanceConfig(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, map[string]string{
		"company_name":  cfg.CompanyName,
		"company_email": cfg.CompanyEmail,
	})
}

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func decodeBody(r *http.Request, v interface{}) error {
	return response.DecodeBody(r, v)
}
