package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

// TestAPIHealth walks every route through the real middleware chain as a
// regression net: nothing should 500, and every wired path should resolve.
func TestAPIHealth(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	// Seed one record per entity so detail routes have something to hit.
	createTestStaff(t, db, "STF-001", "Dana Reyes", "manager")
	createTestProduct(t, db, "PRD-2026-0001", "TP-10G", 7.5, 100)
	createTestAsset(t, db, "AST-2026-0001", "FLT-01", "in_service")
	createTestMaintenance(t, db, "AST-2026-0001", "scheduled", 0)
	transact(t, map[string]interface{}{
		"product_id": "PRD-2026-0001", "staff_id": "STF-001", "type": "receive", "quantity": 5,
	})
	db.Exec(`INSERT INTO saved_views (id, name, entity, filters, created_by, is_public)
		VALUES ('11111111-1111-1111-1111-111111111111', 'all', 'products', '{}', 'admin', 1)`)

	token := loginAdmin(t, db)
	chain := logging(requireAuth(requireRBAC(buildMux())))

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"list products", "GET", "/api/v1/products", "", 200},
		{"get product", "GET", "/api/v1/products/PRD-2026-0001", "", 200},
		{"create product", "POST", "/api/v1/products", `{"sku":"NEW-1","name":"New thing","unit_price":1}`, 200},
		{"update product", "PUT", "/api/v1/products/PRD-2026-0001", `{"name":"Renamed"}`, 200},

		{"list inventory", "GET", "/api/v1/inventory", "", 200},
		{"get stock level", "GET", "/api/v1/inventory/PRD-2026-0001", "", 200},
		{"update location", "PUT", "/api/v1/inventory/PRD-2026-0001", `{"location":"Bin A-2"}`, 200},
		{"stock history", "GET", "/api/v1/inventory/PRD-2026-0001/history", "", 200},
		{"record movement", "POST", "/api/v1/inventory/transact", `{"product_id":"PRD-2026-0001","staff_id":"STF-001","type":"issue","quantity":1}`, 200},

		{"list transactions", "GET", "/api/v1/transactions", "", 200},
		{"get transaction", "GET", "/api/v1/transactions/1", "", 200},

		{"list assets", "GET", "/api/v1/assets", "", 200},
		{"get asset", "GET", "/api/v1/assets/AST-2026-0001", "", 200},
		{"create asset", "POST", "/api/v1/assets", `{"asset_tag":"NEW-TAG","name":"New asset"}`, 200},
		{"update asset", "PUT", "/api/v1/assets/AST-2026-0001", `{"location":"Shop floor"}`, 200},
		{"asset maintenance", "GET", "/api/v1/assets/AST-2026-0001/maintenance", "", 200},

		{"list maintenance", "GET", "/api/v1/maintenance", "", 200},
		{"get maintenance", "GET", "/api/v1/maintenance/1", "", 200},
		{"create maintenance", "POST", "/api/v1/maintenance", `{"asset_id":"AST-2026-0001","type":"inspection"}`, 200},
		{"update maintenance", "PUT", "/api/v1/maintenance/1", `{"status":"in_progress"}`, 200},

		{"list staff", "GET", "/api/v1/staff", "", 200},
		{"get staff", "GET", "/api/v1/staff/STF-001", "", 200},
		{"create staff", "POST", "/api/v1/staff", `{"name":"Sam Okafor","email":"sam@example.com","role":"technician"}`, 200},
		{"update staff", "PUT", "/api/v1/staff/STF-001", `{"phone":"555-0100"}`, 200},

		{"valuation report", "GET", "/api/v1/reports/inventory-valuation", "", 200},
		{"low stock report", "GET", "/api/v1/reports/low-stock", "", 200},
		{"transaction summary", "GET", "/api/v1/reports/transaction-summary", "", 200},
		{"asset summary", "GET", "/api/v1/reports/asset-summary", "", 200},
		{"maintenance cost report", "GET", "/api/v1/reports/maintenance-cost", "", 200},
		{"dashboard", "GET", "/api/v1/dashboard", "", 200},

		{"export inventory csv", "GET", "/api/v1/export/inventory", "", 200},
		{"export assets xlsx", "GET", "/api/v1/export/assets?format=xlsx", "", 200},
		{"export transactions", "GET", "/api/v1/export/transactions", "", 200},

		{"list views", "GET", "/api/v1/views", "", 200},
		{"create view", "POST", "/api/v1/views", `{"name":"probe","entity":"assets"}`, 200},
		{"delete view", "DELETE", "/api/v1/views/11111111-1111-1111-1111-111111111111", "", 200},

		{"list users", "GET", "/api/v1/users", "", 200},
		{"create user", "POST", "/api/v1/users", `{"username":"probe","password":"Str0ngPass!"}`, 201},

		{"list api keys", "GET", "/api/v1/apikeys", "", 200},
		{"create api key", "POST", "/api/v1/apikeys", `{"name":"probe"}`, 201},

		{"scan lookup", "GET", "/api/v1/scan/TP-10G", "", 200},
		{"audit log", "GET", "/api/v1/audit", "", 200},
		{"instance config", "GET", "/api/v1/config", "", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, authedRequest(tt.method, tt.path, body, token))
			if w.Code != tt.wantCode {
				t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.wantCode, w.Code, w.Body.String())
			}
			if w.Code >= 500 {
				t.Errorf("%s %s returned a server error: %s", tt.method, tt.path, w.Body.String())
			}
		})
	}

	// Every API response is JSON.
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, authedRequest("GET", "/api/v1/products", nil, token))
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("API responses must be JSON, got %q", ct)
	}
}
