package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// setupTestDB opens an in-memory SQLite database and runs the real
// migrations against it, so tests exercise the production schema. The
// global db handle is swapped just for the migration run and restored.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}

	// Each new pool connection to a plain :memory: DSN would get its own
	// empty database, so the pool is pinned to a single connection.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	oldDB := db
	db = testDB
	err = runMigrations()
	db = oldDB
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	seedTestAdmin(t, testDB)

	return testDB
}

func seedTestAdmin(t *testing.T, testDB *sql.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = testDB.Exec(`INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)`,
		"admin", string(hash), "Administrator", "admin")
	if err != nil {
		t.Fatalf("Failed to create default admin user: %v", err)
	}
}

// createTestUser creates a test user with the given credentials.
func createTestUser(t *testing.T, testDB *sql.DB, username, password, role string, active bool) int {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	activeInt := 0
	if active {
		activeInt = 1
	}

	result, err := testDB.Exec(
		"INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, ?)",
		username, string(hash), username+" Display", role, activeInt,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return int(id)
}

// createTestSessionSimple creates a session token for the given user with default 24h expiry.
func createTestSessionSimple(t *testing.T, testDB *sql.DB, userID int) string {
	t.Helper()
	token := "test-session-token-" + time.Now().Format("20060102150405.000000000")
	expiresAt := time.Now().Add(24 * time.Hour)

	_, err := testDB.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return token
}

// loginAdmin returns a session token for the default admin user.
func loginAdmin(t *testing.T, testDB *sql.DB) string {
	t.Helper()
	var adminID int
	err := testDB.QueryRow("SELECT id FROM users WHERE username = 'admin'").Scan(&adminID)
	if err != nil {
		t.Fatalf("Failed to find admin user: %v", err)
	}
	return createTestSessionSimple(t, testDB, adminID)
}

// Domain factories. These write rows directly so handler tests can start
// from a known state without going through the API.

func createTestStaff(t *testing.T, testDB *sql.DB, id, name, role string) string {
	t.Helper()
	_, err := testDB.Exec("INSERT INTO staff (id, name, email, role, active) VALUES (?, ?, ?, ?, 1)",
		id, name, id+"@example.com", role)
	if err != nil {
		t.Fatalf("Failed to create test staff: %v", err)
	}
	return id
}

func createTestProduct(t *testing.T, testDB *sql.DB, id, sku string, price float64, onHand float64) string {
	t.Helper()
	_, err := testDB.Exec(`INSERT INTO products (id, sku, name, unit_price, reorder_level, active)
		VALUES (?, ?, ?, ?, 10, 1)`, id, sku, "Product "+sku, price)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	_, err = testDB.Exec(`INSERT INTO inventory (product_id, quantity_on_hand, quantity_reserved, location)
		VALUES (?, ?, 0, 'Bin T-1')`, id, onHand)
	if err != nil {
		t.Fatalf("Failed to create test inventory row: %v", err)
	}
	return id
}

func createTestAsset(t *testing.T, testDB *sql.DB, id, tag, status string) string {
	t.Helper()
	_, err := testDB.Exec(`INSERT INTO assets (id, asset_tag, name, category, status, purchase_cost)
		VALUES (?, ?, ?, 'equipment', ?, 100)`, id, tag, "Asset "+tag, status)
	if err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}
	return id
}

func createTestMaintenance(t *testing.T, testDB *sql.DB, assetID, status string, cost float64) int {
	t.Helper()
	res, err := testDB.Exec(`INSERT INTO asset_maintenance (asset_id, type, status, cost, description)
		VALUES (?, 'service', ?, ?, 'test work')`, assetID, status, cost)
	if err != nil {
		t.Fatalf("Failed to create test maintenance: %v", err)
	}
	id, _ := res.LastInsertId()
	if status == "completed" {
		testDB.Exec("UPDATE asset_maintenance SET completed_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	}
	return int(id)
}

// transact posts a stock movement through the real handler and returns the
// recorder.
func transact(t *testing.T, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/v1/inventory/transact", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handleInventoryTransact(w, req)
	return w
}

// authedRequest creates an HTTP request carrying a session cookie.
func authedRequest(method, path string, body []byte, sessionToken string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: "stockroom_session", Value: sessionToken})
	}

	return req
}

// decodeAPIResponse decodes an APIResponse from a ResponseRecorder.
func decodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode API response: %v", err)
	}
	return response
}

// assertStatus checks that the HTTP status code matches expected.
func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// onHand reads the current stock level straight from the table.
func onHand(t *testing.T, testDB *sql.DB, productID string) float64 {
	t.Helper()
	var q float64
	if err := testDB.QueryRow("SELECT quantity_on_hand FROM inventory WHERE product_id = ?", productID).Scan(&q); err != nil {
		t.Fatalf("Failed to read on-hand quantity: %v", err)
	}
	return q
}

// ledgerCount counts transactions recorded for a product.
func ledgerCount(t *testing.T, testDB *sql.DB, productID string) int {
	t.Helper()
	var n int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM inventory_transactions WHERE product_id = ?", productID).Scan(&n); err != nil {
		t.Fatalf("Failed to count ledger rows: %v", err)
	}
	return n
}
