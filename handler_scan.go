package main

import (
	"fmt"
	"net/http"
	"strings"
)

type ScanResult struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
	Link  string `json:"link"`
}

// handleScanLookup resolves a scanned barcode or typed code against product
// SKUs and asset tags/serials so the frontend can jump straight to a record.
func handleScanLookup(w http.ResponseWriter, r *http.Request, code string) {
	if code == "" {
		jsonErr(w, "missing code", http.StatusBadRequest)
		return
	}

	var results []ScanResult
	like := "%" + strings.ToLower(code) + "%"

	rows, err := db.Query(`SELECT p.id, p.sku, p.name, COALESCE(i.quantity_on_hand, 0), COALESCE(i.location, '')
		FROM products p LEFT JOIN inventory i ON i.product_id = p.id
		WHERE LOWER(p.sku) = LOWER(?) OR LOWER(p.id) = LOWER(?) OR LOWER(p.sku) LIKE ?
		ORDER BY p.sku LIMIT 20`, code, code, like)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var id, sku, name, loc string
			var qty float64
			rows.Scan(&id, &sku, &name, &qty, &loc)
			label := fmt.Sprintf("%s - %s (Qty: %.0f)", sku, name, qty)
			if loc != "" {
				label = fmt.Sprintf("%s - %s (Qty: %.0f, Loc: %s)", sku, name, qty, loc)
			}
			results = append(results, ScanResult{
				Type:  "product",
				ID:    id,
				Label: label,
				Link:  fmt.Sprintf("/products/%s", id),
			})
		}
	}

	assetRows, err := db.Query(`SELECT id, asset_tag, name, status FROM assets
		WHERE LOWER(asset_tag) = LOWER(?) OR LOWER(serial_number) = LOWER(?) OR LOWER(asset_tag) LIKE ?
		ORDER BY asset_tag LIMIT 20`, code, code, like)
	if err == nil {
		defer assetRows.Close()
		for assetRows.Next() {
			var id, tag, name, status string
			assetRows.Scan(&id, &tag, &name, &status)
			results = append(results, ScanResult{
				Type:  "asset",
				ID:    id,
				Label: fmt.Sprintf("%s - %s (%s)", tag, name, status),
				Link:  fmt.Sprintf("/assets/%s", id),
			})
		}
	}

	if results == nil {
		results = []ScanResult{}
	}

	jsonResp(w, map[string]interface{}{"results": results, "code": code})
}
