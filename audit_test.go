package main

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

type auditPage struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
}

func queryAudit(t *testing.T, qs string) auditPage {
	t.Helper()
	w := httptest.NewRecorder()
	handleAuditLog(w, httptest.NewRequest("GET", "/api/v1/audit"+qs, nil))
	assertStatus(t, w, 200)
	var page auditPage
	decodeEnvelope(t, w, &page)
	return page
}

func TestAuditLog_FiltersAndPaging(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	logAudit(db, "admin", "create", "products", "PRD-2026-0001", "Created product TP-10G")
	logAudit(db, "admin", "update", "products", "PRD-2026-0001", "Updated product PRD-2026-0001")
	logAudit(db, "dana", "create", "assets", "AST-2026-0001", "Created asset FLT-01 (Floor lift)")
	logAudit(db, "dana", "create", "transactions", "1", "receive 25 x PRD-2026-0001")

	all := queryAudit(t, "")
	if all.Total != 4 || len(all.Entries) != 4 {
		t.Fatalf("Expected 4 entries, got total=%d len=%d", all.Total, len(all.Entries))
	}
	// Newest first: the transaction entry was written last.
	if all.Entries[0].Module != "transactions" {
		t.Errorf("Ordering wrong: %+v", all.Entries[0])
	}

	products := queryAudit(t, "?module=products")
	if products.Total != 2 {
		t.Errorf("module filter: expected 2, got %d", products.Total)
	}

	dana := queryAudit(t, "?user=dana")
	if dana.Total != 2 {
		t.Errorf("user filter: expected 2, got %d", dana.Total)
	}

	search := queryAudit(t, "?search=FLT-01")
	if search.Total != 1 || search.Entries[0].RecordID != "AST-2026-0001" {
		t.Errorf("search filter wrong: %+v", search.Entries)
	}

	combined := queryAudit(t, "?module=products&user=admin&search=Updated")
	if combined.Total != 1 || combined.Entries[0].Action != "update" {
		t.Errorf("combined filter wrong: %+v", combined.Entries)
	}

	past := queryAudit(t, "?to=2000-01-01")
	if past.Total != 0 {
		t.Errorf("date filter: expected nothing before 2000, got %d", past.Total)
	}

	page2 := queryAudit(t, "?limit=3&page=2")
	if page2.Total != 4 || len(page2.Entries) != 1 {
		t.Errorf("paging wrong: total=%d len=%d", page2.Total, len(page2.Entries))
	}
}

func TestAuditTrail_WrittenByMutations(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()
	token := loginAdmin(t, db)

	body, _ := json.Marshal(map[string]interface{}{"sku": "TP-10G", "name": "Patch cable", "unit_price": 7.5})
	w := httptest.NewRecorder()
	handleCreateProduct(w, authedRequest("POST", "/api/v1/products", body, token))
	assertStatus(t, w, 200)

	var entry AuditEntry
	err := db.QueryRow(`SELECT username, action, module FROM audit_log
		WHERE module = 'products' ORDER BY id DESC LIMIT 1`).
		Scan(&entry.Username, &entry.Action, &entry.Module)
	if err != nil {
		t.Fatalf("No audit entry written for product create: %v", err)
	}
	if entry.Username != "admin" || entry.Action != "create" {
		t.Errorf("Audit entry wrong: %+v", entry)
	}

	createTestStaff(t, db, "STF-001", "Dana Reyes", "manager")
	transact(t, map[string]interface{}{
		"product_id": "PRD-2026-0001", "staff_id": "STF-001", "type": "receive", "quantity": 5,
	})
	var count int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE module = 'transactions'").Scan(&count)
	if count != 1 {
		t.Errorf("Expected 1 transaction audit entry, got %d", count)
	}
}
