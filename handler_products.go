package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
)

func handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := `SELECT id, sku, name, COALESCE(description, ''), COALESCE(category, ''),
		unit_price, reorder_level, active, created_at, updated_at FROM products WHERE 1=1`
	args := []interface{}{}

	if q := r.URL.Query().Get("q"); q != "" {
		query += " AND (sku LIKE ? OR name LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if c := r.URL.Query().Get("category"); c != "" {
		query += " AND category = ?"
		args = append(args, c)
	}
	if a := r.URL.Query().Get("active"); a != "" {
		query += " AND active = ?"
		args = append(args, a)
	}
	query += " ORDER BY sku"

	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category,
			&p.UnitPrice, &p.ReorderLevel, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		products = append(products, p)
	}

	jsonResp(w, products)
}

func handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := decodeBody(r, &p); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	ve := &ValidationErrors{}
	requireField(ve, "sku", p.SKU)
	requireField(ve, "name", p.Name)
	validateNonNegativeFloat(ve, "unit_price", p.UnitPrice)
	validateNonNegativeFloat(ve, "reorder_level", p.ReorderLevel)
	validateMaxPrice(ve, "unit_price", p.UnitPrice)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	p.ID = nextID("PRD", "products", 4)
	p.Active = 1

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO products (id, sku, name, description, category, unit_price, reorder_level, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.UnitPrice, p.ReorderLevel, p.Active)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "sku already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}

	// Every product carries a stock row from day one.
	_, err = tx.Exec(`INSERT INTO inventory (product_id, quantity_on_hand, quantity_reserved, location)
		VALUES (?, 0, 0, '')`, p.ID)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	if err := tx.Commit(); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	logAudit(db, getUsername(r), "create", "products", p.ID, fmt.Sprintf("Created product %s (%s)", p.SKU, p.Name))
	handleGetProduct(w, r, p.ID)
}

func handleGetProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p Product
	err := db.QueryRow(`SELECT id, sku, name, COALESCE(description, ''), COALESCE(category, ''),
		unit_price, reorder_level, active, created_at, updated_at FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category,
			&p.UnitPrice, &p.ReorderLevel, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		jsonErr(w, "product not found", 404)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	jsonResp(w, p)
}

var allowedProductFields = map[string]bool{
	"sku":           true,
	"name":          true,
	"description":   true,
	"category":      true,
	"unit_price":    true,
	"reorder_level": true,
	"active":        true,
}

func handleUpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var updates map[string]interface{}
	if err := decodeBody(r, &updates); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}
	if len(updates) == 0 {
		jsonErr(w, "no fields to update", 400)
		return
	}

	setClauses := "updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	for field, value := range updates {
		if !allowedProductFields[field] {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
		switch field {
		case "sku", "name":
			s, ok := value.(string)
			if !ok || s == "" {
				jsonErr(w, field+" must be a non-empty string", 400)
				return
			}
		case "unit_price", "reorder_level":
			n, ok := value.(float64)
			if !ok || n < 0 {
				jsonErr(w, field+" must be a non-negative number", 400)
				return
			}
		case "active":
			value = boolishToInt(value)
			if value == nil {
				jsonErr(w, "active must be 0 or 1", 400)
				return
			}
		}
		setClauses += ", " + field + " = ?"
		args = append(args, value)
	}
	args = append(args, id)

	res, err := db.Exec("UPDATE products SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "sku already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "product not found", 404)
		return
	}

	logAudit(db, getUsername(r), "update", "products", id, fmt.Sprintf("Updated product %s", id))
	handleGetProduct(w, r, id)
}

func handleDeleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	if hasReferences(id, []struct{ Table, Col string }{
		{"inventory_transactions", "product_id"},
	}) {
		jsonErr(w, "product has transaction history", 409)
		return
	}

	res, err := db.Exec("DELETE FROM products WHERE id = ?", id)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "product not found", 404)
		return
	}

	logAudit(db, getUsername(r), "delete", "products", id, fmt.Sprintf("Deleted product %s", id))
	jsonResp(w, map[string]string{"deleted": id})
}

// boolishToInt normalizes a JSON bool or number to 0/1 for flag columns.
// Returns nil when the value is neither.
func boolishToInt(v interface{}) interface{} {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case float64:
		if t == 0 {
			return 0
		}
		if t == 1 {
			return 1
		}
	}
	return nil
}
