package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// End-to-end workflows driven over real HTTP against the full production
// handler chain (logging -> auth -> RBAC -> mux), the same way the frontend
// talks to the server. Each test stands up its own server and database.

const (
	adminUser = "admin"
	adminPass = "changeme"
)

// startTestServer wires the production handler chain over a fresh database
// and returns the server's base URL.
func startTestServer(t *testing.T) string {
	t.Helper()
	oldDB := db
	db = setupTestDB(t)
	srv := httptest.NewServer(logging(requireAuth(requireRBAC(buildMux()))))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
		db = oldDB
	})
	return srv.URL
}

// testClient drives the JSON API with a cookie jar carrying the session,
// like a browser would.
type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestClient(t *testing.T, base string) *testClient {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	return &testClient{
		t:      t,
		base:   base,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

func (tc *testClient) login(username, password string) *http.Response {
	tc.t.Helper()
	resp, _ := tc.request("POST", "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	return resp
}

func (tc *testClient) mustLogin(username, password string) {
	tc.t.Helper()
	if resp := tc.login(username, password); resp.StatusCode != 200 {
		tc.t.Fatalf("Login as %s failed: %d", username, resp.StatusCode)
	}
}

func (tc *testClient) request(method, path string, body interface{}) (*http.Response, []byte) {
	tc.t.Helper()
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			tc.t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, tc.base+path, reqBody)
	if err != nil {
		tc.t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, respBody
}

// mustRequest is request plus a status check, for steps where anything but
// success ends the story.
func (tc *testClient) mustRequest(method, path string, body interface{}, wantCode int) []byte {
	tc.t.Helper()
	resp, respBody := tc.request(method, path, body)
	if resp.StatusCode != wantCode {
		tc.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantCode, resp.StatusCode, respBody)
	}
	return respBody
}

// envelopeData unmarshals the data field of an API envelope into v.
func envelopeData(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body: %s)", err, body)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("Failed to decode data: %v (body: %s)", err, body)
	}
}

// TestWorkflow_StockIntakeToReport follows a product from creation through
// receive/issue/adjust to the reports and the exported ledger.
func TestWorkflow_StockIntakeToReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := newTestClient(t, startTestServer(t))
	tc.mustLogin(adminUser, adminPass)

	// A clerk joins.
	var clerk Staff
	envelopeData(t, tc.mustRequest("POST", "/api/v1/staff", map[string]interface{}{
		"name": "Priya Shah", "email": "priya@example.com", "role": "clerk",
	}, 200), &clerk)
	if clerk.ID == "" {
		t.Fatal("Staff create returned no ID")
	}

	// A new product goes on the shelf.
	var prod Product
	envelopeData(t, tc.mustRequest("POST", "/api/v1/products", map[string]interface{}{
		"sku": "CBL-3M", "name": "3m patch cable", "unit_price": 6.25, "reorder_level": 20,
	}, 200), &prod)
	t.Logf("Created product %s", prod.ID)

	// Goods come in against a purchase order.
	var move struct {
		Transaction StockTransaction `json:"transaction"`
		Stock       StockLevel       `json:"stock"`
	}
	envelopeData(t, tc.mustRequest("POST", "/api/v1/inventory/transact", map[string]interface{}{
		"product_id": prod.ID, "staff_id": clerk.ID, "type": "receive", "quantity": 40, "reference": "PO-7001",
	}, 200), &move)
	if move.Stock.QuantityOnHand != 40 {
		t.Errorf("After receive: on hand = %v, want 40", move.Stock.QuantityOnHand)
	}
	if move.Transaction.Quantity != 40 {
		t.Errorf("Receive ledger quantity = %v, want 40", move.Transaction.Quantity)
	}

	// Fifteen issued to a job.
	envelopeData(t, tc.mustRequest("POST", "/api/v1/inventory/transact", map[string]interface{}{
		"product_id": prod.ID, "staff_id": clerk.ID, "type": "issue", "quantity": 15, "reference": "JOB-220",
	}, 200), &move)
	if move.Stock.QuantityOnHand != 25 {
		t.Errorf("After issue: on hand = %v, want 25", move.Stock.QuantityOnHand)
	}

	// An oversell is refused and nothing moves.
	resp, body := tc.request("POST", "/api/v1/inventory/transact", map[string]interface{}{
		"product_id": prod.ID, "staff_id": clerk.ID, "type": "issue", "quantity": 100,
	})
	if resp.StatusCode != 409 {
		t.Fatalf("Oversell: expected 409, got %d: %s", resp.StatusCode, body)
	}
	var level StockLevel
	envelopeData(t, tc.mustRequest("GET", "/api/v1/inventory/"+prod.ID, nil, 200), &level)
	if level.QuantityOnHand != 25 {
		t.Errorf("After refused oversell: on hand = %v, want 25", level.QuantityOnHand)
	}

	// A physical count finds 18; the adjust books the difference.
	envelopeData(t, tc.mustRequest("POST", "/api/v1/inventory/transact", map[string]interface{}{
		"product_id": prod.ID, "staff_id": clerk.ID, "type": "adjust", "quantity": 18, "notes": "cycle count",
	}, 200), &move)
	if move.Stock.QuantityOnHand != 18 {
		t.Errorf("After adjust: on hand = %v, want 18", move.Stock.QuantityOnHand)
	}
	if move.Transaction.Quantity != -7 {
		t.Errorf("Adjust ledger delta = %v, want -7", move.Transaction.Quantity)
	}

	// The history shows all three movements, newest first.
	var history []StockTransaction
	envelopeData(t, tc.mustRequest("GET", "/api/v1/inventory/"+prod.ID+"/history", nil, 200), &history)
	if len(history) != 3 {
		t.Fatalf("History length = %d, want 3", len(history))
	}
	if history[0].Type != "adjust" || history[2].Type != "receive" {
		t.Errorf("History order wrong: %s ... %s", history[0].Type, history[2].Type)
	}

	// At 18 on hand against a reorder level of 20 the product is low stock.
	var low []StockLevel
	envelopeData(t, tc.mustRequest("GET", "/api/v1/reports/low-stock", nil, 200), &low)
	if len(low) != 1 || low[0].SKU != "CBL-3M" {
		t.Errorf("Low stock report: %+v", low)
	}

	// Valuation: 18 on hand at 6.25 each.
	var valuation ValuationReport
	envelopeData(t, tc.mustRequest("GET", "/api/v1/reports/inventory-valuation", nil, 200), &valuation)
	if valuation.GrandTotal != 112.5 {
		t.Errorf("Valuation grand total = %v, want 112.5", valuation.GrandTotal)
	}

	// Save the low-stock filter for tomorrow's check.
	var view SavedView
	envelopeData(t, tc.mustRequest("POST", "/api/v1/views", map[string]interface{}{
		"name": "Below reorder", "entity": "inventory", "filters": map[string]string{"low_stock": "true"},
	}, 200), &view)
	if view.CreatedBy != adminUser {
		t.Errorf("Saved view creator = %q, want %q", view.CreatedBy, adminUser)
	}

	// Every movement was audited under the admin account.
	var trail struct {
		Entries []AuditEntry `json:"entries"`
		Total   int          `json:"total"`
	}
	envelopeData(t, tc.mustRequest("GET", "/api/v1/audit?module=transactions", nil, 200), &trail)
	if trail.Total != 3 {
		t.Errorf("Audit total for transactions = %d, want 3", trail.Total)
	}
	for _, e := range trail.Entries {
		if e.Username != adminUser {
			t.Errorf("Audit entry recorded as %q, want %q", e.Username, adminUser)
		}
	}

	// The ledger exports as CSV, and the export itself lands in the trail.
	resp, raw := tc.request("GET", "/api/v1/export/transactions", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("Export failed: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Export Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Errorf("Export has %d lines, want header + 3 rows", len(lines))
	}
	envelopeData(t, tc.mustRequest("GET", "/api/v1/audit?module=transactions", nil, 200), &trail)
	if trail.Total != 4 {
		t.Errorf("Audit total after export = %d, want 4", trail.Total)
	}

	// Sign out: the API goes dark for this client.
	tc.mustRequest("POST", "/auth/logout", nil, 200)
	resp, _ = tc.request("GET", "/api/v1/products", nil)
	if resp.StatusCode != 401 {
		t.Errorf("After logout: expected 401, got %d", resp.StatusCode)
	}
}

// TestWorkflow_AssetMaintenance walks an asset from purchase through an
// inspection, a repair visit, and back into service.
func TestWorkflow_AssetMaintenance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := newTestClient(t, startTestServer(t))
	tc.mustLogin(adminUser, adminPass)

	var tech Staff
	envelopeData(t, tc.mustRequest("POST", "/api/v1/staff", map[string]interface{}{
		"name": "Sam Okafor", "email": "sam@example.com", "role": "technician",
	}, 200), &tech)

	// A forklift enters service, assigned to the technician.
	var asset Asset
	envelopeData(t, tc.mustRequest("POST", "/api/v1/assets", map[string]interface{}{
		"asset_tag": "FLT-02", "name": "Forklift B", "category": "warehouse",
		"assigned_to": tech.ID, "purchase_date": "2026-03-10", "purchase_cost": 21500,
	}, 200), &asset)
	if asset.Status != "in_service" {
		t.Errorf("New asset status = %q, want in_service", asset.Status)
	}

	// Annual inspection on the calendar.
	var inspection MaintenanceRecord
	envelopeData(t, tc.mustRequest("POST", "/api/v1/maintenance", map[string]interface{}{
		"asset_id": asset.ID, "staff_id": tech.ID, "type": "inspection",
		"scheduled_date": "2026-09-01", "description": "Annual inspection",
	}, 200), &inspection)
	if inspection.Status != "scheduled" {
		t.Errorf("New record status = %q, want scheduled", inspection.Status)
	}

	// The inspection finds a hydraulic leak: complete it, open a repair,
	// and pull the asset out of service.
	maintenancePath := func(id int) string {
		return "/api/v1/maintenance/" + strconv.Itoa(id)
	}
	envelopeData(t, tc.mustRequest("PUT", maintenancePath(inspection.ID), map[string]interface{}{
		"status": "completed", "cost": 260, "notes": "Hydraulic leak found",
	}, 200), &inspection)
	if inspection.CompletedAt == nil {
		t.Error("Completed inspection has no completed_at")
	}

	var repair MaintenanceRecord
	envelopeData(t, tc.mustRequest("POST", "/api/v1/maintenance", map[string]interface{}{
		"asset_id": asset.ID, "staff_id": tech.ID, "type": "repair",
		"description": "Replace hydraulic line",
	}, 200), &repair)
	tc.mustRequest("PUT", "/api/v1/assets/"+asset.ID, map[string]interface{}{"status": "in_repair"}, 200)

	// Repair done, asset back on the floor.
	envelopeData(t, tc.mustRequest("PUT", maintenancePath(repair.ID), map[string]interface{}{
		"status": "completed", "cost": 410,
	}, 200), &repair)
	envelopeData(t, tc.mustRequest("PUT", "/api/v1/assets/"+asset.ID, map[string]interface{}{
		"status": "in_service",
	}, 200), &asset)

	// The asset record carries its full history, newest first.
	if len(asset.Maintenance) != 2 {
		t.Fatalf("Asset history length = %d, want 2", len(asset.Maintenance))
	}
	if asset.Maintenance[0].Type != "repair" || asset.Maintenance[1].Type != "inspection" {
		t.Errorf("History order: %s, %s", asset.Maintenance[0].Type, asset.Maintenance[1].Type)
	}

	// Costs roll up per asset.
	var costs MaintenanceCostReport
	envelopeData(t, tc.mustRequest("GET", "/api/v1/reports/maintenance-cost", nil, 200), &costs)
	if costs.TotalCost != 670 {
		t.Errorf("Maintenance total cost = %v, want 670", costs.TotalCost)
	}
	if len(costs.Assets) != 1 || costs.Assets[0].Count != 2 {
		t.Errorf("Maintenance cost rows: %+v", costs.Assets)
	}

	// The summary shows the fleet fully in service again.
	var summary AssetSummary
	envelopeData(t, tc.mustRequest("GET", "/api/v1/reports/asset-summary", nil, 200), &summary)
	if summary.TotalAssets != 1 || summary.InServiceRatio != 1 {
		t.Errorf("Asset summary: total=%d ratio=%v", summary.TotalAssets, summary.InServiceRatio)
	}

	// A scan of the tag jumps straight to the record.
	var scan struct {
		Results []ScanResult `json:"results"`
	}
	envelopeData(t, tc.mustRequest("GET", "/api/v1/scan/FLT-02", nil, 200), &scan)
	if len(scan.Results) != 1 || scan.Results[0].Link != "/assets/"+asset.ID {
		t.Errorf("Scan results: %+v", scan.Results)
	}
}

// TestWorkflow_AccountsAndAccess covers the admin account workflow: a
// read-only login, an API key for an integration, and a deactivation that
// takes effect immediately.
func TestWorkflow_AccountsAndAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	base := startTestServer(t)
	admin := newTestClient(t, base)
	admin.mustLogin(adminUser, adminPass)

	// A read-only account for the front desk.
	var created struct {
		ID int `json:"id"`
	}
	envelopeData(t, admin.mustRequest("POST", "/api/v1/users", map[string]interface{}{
		"username": "frontdesk", "password": "Viewer#2026", "display_name": "Front Desk", "role": "readonly",
	}, 201), &created)

	viewer := newTestClient(t, base)
	viewer.mustLogin("frontdesk", "Viewer#2026")

	// Read-only means exactly that: lists are visible, writes are not.
	viewer.mustRequest("GET", "/api/v1/products", nil, 200)
	viewer.mustRequest("GET", "/api/v1/users", nil, 200)
	resp, body := viewer.request("POST", "/api/v1/products", map[string]interface{}{
		"sku": "X-1", "name": "Not allowed",
	})
	if resp.StatusCode != 403 || !strings.Contains(string(body), "Read-only") {
		t.Errorf("Readonly write: expected 403 Read-only, got %d: %s", resp.StatusCode, body)
	}

	// An integration gets an API key and talks to the API without a cookie.
	var minted struct {
		Key string `json:"key"`
	}
	envelopeData(t, admin.mustRequest("POST", "/api/v1/apikeys", map[string]interface{}{
		"name": "warehouse-sync",
	}, 201), &minted)
	if len(minted.Key) != 67 {
		t.Fatalf("Minted key length = %d, want 67", len(minted.Key))
	}

	raw := &http.Client{Timeout: 10 * time.Second}
	req, _ := http.NewRequest("GET", base+"/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+minted.Key)
	keyResp, err := raw.Do(req)
	if err != nil {
		t.Fatalf("Bearer request failed: %v", err)
	}
	io.Copy(io.Discard, keyResp.Body)
	keyResp.Body.Close()
	if keyResp.StatusCode != 200 {
		t.Errorf("Bearer request: expected 200, got %d", keyResp.StatusCode)
	}

	noAuth, err := raw.Get(base + "/api/v1/products")
	if err != nil {
		t.Fatalf("Anonymous request failed: %v", err)
	}
	io.Copy(io.Discard, noAuth.Body)
	noAuth.Body.Close()
	if noAuth.StatusCode != 401 {
		t.Errorf("Anonymous request: expected 401, got %d", noAuth.StatusCode)
	}

	// Deactivation revokes the viewer's session on the spot.
	admin.mustRequest("PUT", "/api/v1/users/"+strconv.Itoa(created.ID), map[string]interface{}{
		"active": false,
	}, 200)
	resp, _ = viewer.request("GET", "/api/v1/products", nil)
	if resp.StatusCode != 401 {
		t.Errorf("Deactivated session: expected 401, got %d", resp.StatusCode)
	}
	if resp := viewer.login("frontdesk", "Viewer#2026"); resp.StatusCode != 403 {
		t.Errorf("Deactivated login: expected 403, got %d", resp.StatusCode)
	}
}
