package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProductCreateReadRoundTrip(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	body := `{"sku":"TP-10G","name":"Thermal Paste 10g","category":"supplies","unit_price":7.5,"reorder_level":20}`
	req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handleCreateProduct(w, req)

	assertStatus(t, w, 200)
	var p Product
	decodeEnvelope(t, w, &p)

	year := time.Now().Format("2006")
	if !strings.HasPrefix(p.ID, "PRD-"+year+"-") {
		t.Errorf("Expected PRD-%s- id prefix, got %q", year, p.ID)
	}
	if p.SKU != "TP-10G" || p.Name != "Thermal Paste 10g" || p.UnitPrice != 7.5 {
		t.Errorf("Created product fields wrong: %+v", p)
	}
	if p.Active != 1 {
		t.Errorf("Expected new product active, got %d", p.Active)
	}

	// Creating a product also creates its zero stock row.
	if got := onHand(t, db, p.ID); got != 0 {
		t.Errorf("Expected zero on-hand for new product, got %g", got)
	}

	// Read it back.
	w = httptest.NewRecorder()
	handleGetProduct(w, httptest.NewRequest("GET", "/api/v1/products/"+p.ID, nil), p.ID)
	assertStatus(t, w, 200)
	var got Product
	decodeEnvelope(t, w, &got)
	if got.ID != p.ID || got.SKU != p.SKU || got.ReorderLevel != 20 {
		t.Errorf("Round trip mismatch: %+v vs %+v", got, p)
	}
}

func TestProductCreate_Validation(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	cases := []struct {
		name string
		body string
	}{
		{"missing sku", `{"name":"X"}`},
		{"missing name", `{"sku":"X-1"}`},
		{"negative price", `{"sku":"X-1","name":"X","unit_price":-5}`},
		{"negative reorder", `{"sku":"X-1","name":"X","reorder_level":-1}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewBufferString(tc.body))
		w := httptest.NewRecorder()
		handleCreateProduct(w, req)
		if w.Code != 400 {
			t.Errorf("%s: expected 400, got %d: %s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestProductCreate_DuplicateSKU(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	createTestProduct(t, db, "PRD-2026-0001", "HDMI-2M", 4.25, 30)

	body := `{"sku":"HDMI-2M","name":"Another cable"}`
	req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handleCreateProduct(w, req)
	assertStatus(t, w, 409)
}

func TestProductUpdate_Partial(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	id := createTestProduct(t, db, "PRD-2026-0001", "LBL-57", 2.10, 450)

	body := `{"name":"Label Roll 57mm","unit_price":2.35}`
	req := httptest.NewRequest("PUT", "/api/v1/products/"+id, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handleUpdateProduct(w, req, id)

	assertStatus(t, w, 200)
	var p Product
	decodeEnvelope(t, w, &p)
	if p.Name != "Label Roll 57mm" || p.UnitPrice != 2.35 {
		t.Errorf("Update did not apply: %+v", p)
	}
	// Untouched fields stay put.
	if p.SKU != "LBL-57" || p.Active != 1 {
		t.Errorf("Update touched unrelated fields: %+v", p)
	}
}

func TestProductUpdate_RejectsUnknownField(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	id := createTestProduct(t, db, "PRD-2026-0001", "LBL-57", 2.10, 450)

	req := httptest.NewRequest("PUT", "/api/v1/products/"+id, bytes.NewBufferString(`{"id":"PRD-9999-0001"}`))
	w := httptest.NewRecorder()
	handleUpdateProduct(w, req, id)
	assertStatus(t, w, 400)

	req = httptest.NewRequest("PUT", "/api/v1/products/"+id, bytes.NewBufferString(`{}`))
	w = httptest.NewRecorder()
	handleUpdateProduct(w, req, id)
	assertStatus(t, w, 400)
}

func TestProductUpdate_NotFound(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	req := httptest.NewRequest("PUT", "/api/v1/products/PRD-2026-0042", bytes.NewBufferString(`{"name":"X"}`))
	w := httptest.NewRecorder()
	handleUpdateProduct(w, req, "PRD-2026-0042")
	assertStatus(t, w, 404)
}

func TestProductDelete(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	id := createTestProduct(t, db, "PRD-2026-0001", "TP-10G", 7.5, 0)

	req := httptest.NewRequest("DELETE", "/api/v1/products/"+id, nil)
	w := httptest.NewRecorder()
	handleDeleteProduct(w, req, id)
	assertStatus(t, w, 200)

	// Row and its inventory are gone; reads now 404.
	w = httptest.NewRecorder()
	handleGetProduct(w, httptest.NewRequest("GET", "/", nil), id)
	assertStatus(t, w, 404)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM inventory WHERE product_id = ?", id).Scan(&count)
	if count != 0 {
		t.Errorf("Expected inventory row cascade-deleted, found %d", count)
	}
}

func TestProductDelete_BlockedByHistory(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	id := createTestProduct(t, db, "PRD-2026-0001", "TP-10G", 7.5, 100)
	createTestStaff(t, db, "STF-001", "Dana Reyes", "manager")
	transact(t, map[string]interface{}{
		"product_id": id, "staff_id": "STF-001", "type": "issue", "quantity": 5,
	})

	req := httptest.NewRequest("DELETE", "/api/v1/products/"+id, nil)
	w := httptest.NewRecorder()
	handleDeleteProduct(w, req, id)
	assertStatus(t, w, 409)
}

func TestListProducts_Filters(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	createTestProduct(t, db, "PRD-2026-0001", "TP-10G", 7.5, 100)
	createTestProduct(t, db, "PRD-2026-0002", "HDMI-2M", 4.25, 30)
	db.Exec("UPDATE products SET category = 'cables' WHERE id = 'PRD-2026-0002'")
	db.Exec("UPDATE products SET active = 0 WHERE id = 'PRD-2026-0001'")

	w := httptest.NewRecorder()
	handleListProducts(w, httptest.NewRequest("GET", "/api/v1/products?category=cables", nil))
	var items []Product
	decodeEnvelope(t, w, &items)
	if len(items) != 1 || items[0].SKU != "HDMI-2M" {
		t.Errorf("category filter wrong: %+v", items)
	}

	w = httptest.NewRecorder()
	handleListProducts(w, httptest.NewRequest("GET", "/api/v1/products?active=0", nil))
	items = nil
	decodeEnvelope(t, w, &items)
	if len(items) != 1 || items[0].SKU != "TP-10G" {
		t.Errorf("active filter wrong: %+v", items)
	}

	w = httptest.NewRecorder()
	handleListProducts(w, httptest.NewRequest("GET", "/api/v1/products?q=hdmi", nil))
	items = nil
	decodeEnvelope(t, w, &items)
	if len(items) != 1 || items[0].SKU != "HDMI-2M" {
		t.Errorf("q filter wrong: %+v", items)
	}
}
