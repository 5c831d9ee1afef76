package main

import (
	"database/sql"
	"fmt"
	"net/http"
)

const stockLevelQuery = `SELECT i.product_id, p.sku, p.name, i.quantity_on_hand, i.quantity_reserved,
	i.quantity_available, COALESCE(i.location, ''), p.reorder_level, i.updated_at
	FROM inventory i JOIN products p ON i.product_id = p.id`

func scanStockLevel(row *sql.Row) (StockLevel, error) {
	var s StockLevel
	err := row.Scan(&s.ProductID, &s.SKU, &s.Name, &s.QuantityOnHand, &s.QuantityReserved,
		&s.QuantityAvailable, &s.Location, &s.ReorderLevel, &s.UpdatedAt)
	return s, err
}

func handleListInventory(w http.ResponseWriter, r *http.Request) {
	query := stockLevelQuery
	args := []interface{}{}

	where := []string{}
	if r.URL.Query().Get("low_stock") == "true" {
		where = append(where, "i.quantity_available <= p.reorder_level AND p.reorder_level > 0 AND p.active = 1")
	}
	if q := r.URL.Query().Get("q"); q != "" {
		where = append(where, "(p.sku LIKE ? OR p.name LIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY p.sku"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var s StockLevel
		rows.Scan(&s.ProductID, &s.SKU, &s.Name, &s.QuantityOnHand, &s.QuantityReserved,
			&s.QuantityAvailable, &s.Location, &s.ReorderLevel, &s.UpdatedAt)
		levels = append(levels, s)
	}
	if levels == nil { levels = []StockLevel{} }
	jsonResp(w, levels)
}

func handleGetInventory(w http.ResponseWriter, r *http.Request, productID string) {
	s, err := scanStockLevel(db.QueryRow(stockLevelQuery+" WHERE i.product_id = ?", productID))
	if err != nil { jsonErr(w, "product not found", 404); return }
	jsonResp(w, s)
}

// handleUpdateInventory edits the storage location. Quantities move only
// through handleInventoryTransact.
func handleUpdateInventory(w http.ResponseWriter, r *http.Request, productID string) {
	var updates map[string]interface{}
	if err := decodeBody(r, &updates); err != nil { jsonErr(w, "invalid body", 400); return }
	if len(updates) == 0 { jsonErr(w, "no fields to update", 400); return }

	for field := range updates {
		if field != "location" {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
	}
	loc, ok := updates["location"].(string)
	if !ok { jsonErr(w, "location must be a string", 400); return }

	res, err := db.Exec("UPDATE inventory SET location = ?, updated_at = CURRENT_TIMESTAMP WHERE product_id = ?",
		loc, productID)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "product not found", 404); return }

	logAudit(db, getUsername(r), "update", "inventory", productID, fmt.Sprintf("Moved %s to %q", productID, loc))
	handleGetInventory(w, r, productID)
}

func handleInventoryHistory(w http.ResponseWriter, r *http.Request, productID string) {
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM products WHERE id = ?", productID).Scan(&exists)
	if exists == 0 { jsonErr(w, "product not found", 404); return }

	rows, err := db.Query(`SELECT t.id, t.product_id, t.staff_id, t.type, t.quantity,
		COALESCE(t.reference, ''), COALESCE(t.notes, ''), t.created_at, p.sku, s.name
		FROM inventory_transactions t
		JOIN products p ON t.product_id = p.id
		JOIN staff s ON t.staff_id = s.id
		WHERE t.product_id = ? ORDER BY t.created_at DESC, t.id DESC`, productID)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var txns []StockTransaction
	for rows.Next() {
		var t StockTransaction
		rows.Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
		txns = append(txns, t)
	}
	if txns == nil { txns = []StockTransaction{} }
	jsonResp(w, txns)
}

type TransactRequest struct {
	ProductID string  `json:"product_id"`
	StaffID   string  `json:"staff_id"`
	Type      string  `json:"type"`
	Quantity  float64 `json:"quantity"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
}

// handleInventoryTransact records a stock movement. The ledger insert and the
// stock update happen inside one database transaction, and the update is
// guarded so quantity_on_hand can never go negative: if the guard misses,
// everything rolls back and the caller gets a 409.
func handleInventoryTransact(w http.ResponseWriter, r *http.Request) {
	var req TransactRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	ve := &ValidationErrors{}
	requireField(ve, "product_id", req.ProductID)
	requireField(ve, "staff_id", req.StaffID)
	requireField(ve, "type", req.Type)
	validateEnum(ve, "type", req.Type, validTransactionTypes)
	validatePositiveFloat(ve, "quantity", req.Quantity)
	validateMaxQuantity(ve, "quantity", req.Quantity)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var onHand float64
	err = tx.QueryRow("SELECT quantity_on_hand FROM inventory WHERE product_id = ?", req.ProductID).Scan(&onHand)
	if err == sql.ErrNoRows {
		jsonErr(w, "product not found", 404)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	var staffActive int
	err = tx.QueryRow("SELECT active FROM staff WHERE id = ?", req.StaffID).Scan(&staffActive)
	if err == sql.ErrNoRows {
		jsonErr(w, "staff_id: staff not found", 400)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if staffActive == 0 {
		jsonErr(w, "staff_id: staff is inactive", 400)
		return
	}

	// The type carries the sign. An adjust sets the absolute level and the
	// ledger records the computed delta.
	var delta float64
	switch req.Type {
	case "receive", "return":
		delta = req.Quantity
	case "issue", "scrap":
		delta = -req.Quantity
	case "adjust":
		delta = req.Quantity - onHand
	}

	res, err := tx.Exec(`UPDATE inventory SET quantity_on_hand = quantity_on_hand + ?, updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND quantity_on_hand + ? >= 0`, delta, req.ProductID, delta)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "insufficient stock", 409)
		return
	}

	ins, err := tx.Exec(`INSERT INTO inventory_transactions (product_id, staff_id, type, quantity, reference, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.ProductID, req.StaffID, req.Type, delta, req.Reference, req.Notes)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	txnID, _ := ins.LastInsertId()

	if err := tx.Commit(); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	logAudit(db, getUsername(r), "create", "transactions", fmt.Sprintf("%d", txnID),
		fmt.Sprintf("%s %g of %s", req.Type, req.Quantity, req.ProductID))
	// The audit event announces the ledger row; stock pages watch the product.
	broadcast("inventory", "update", req.ProductID)

	var t StockTransaction
	err = db.QueryRow(`SELECT t.id, t.product_id, t.staff_id, t.type, t.quantity,
		COALESCE(t.reference, ''), COALESCE(t.notes, ''), t.created_at, p.sku, s.name
		FROM inventory_transactions t
		JOIN products p ON t.product_id = p.id
		JOIN staff s ON t.staff_id = s.id
		WHERE t.id = ?`, txnID).
		Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	stock, err := scanStockLevel(db.QueryRow(stockLevelQuery+" WHERE i.product_id = ?", req.ProductID))
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	jsonResp(w, map[string]interface{}{"transaction": t, "stock": stock})
}
