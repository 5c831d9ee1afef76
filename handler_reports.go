package main

import (
	"net/http"
	"time"
)

type ValuationItem struct {
	ProductID      string  `json:"product_id"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	QuantityOnHand float64 `json:"quantity_on_hand"`
	UnitPrice      float64 `json:"unit_price"`
	Value          float64 `json:"value"`
}

type ValuationReport struct {
	Items      []ValuationItem `json:"items"`
	GrandTotal float64         `json:"grand_total"`
}

func handleReportInventoryValuation(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(`SELECT p.id, p.sku, p.name, COALESCE(p.category, ''),
		i.quantity_on_hand, p.unit_price
		FROM products p JOIN inventory i ON i.product_id = p.id
		WHERE p.active = 1 ORDER BY p.sku`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	report := ValuationReport{Items: []ValuationItem{}}
	for rows.Next() {
		var it ValuationItem
		rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Category, &it.QuantityOnHand, &it.UnitPrice)
		it.Value = it.QuantityOnHand * it.UnitPrice
		report.GrandTotal += it.Value
		report.Items = append(report.Items, it)
	}

	jsonResp(w, report)
}

func handleReportLowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(stockLevelQuery + `
		WHERE i.quantity_available <= p.reorder_level AND p.reorder_level > 0 AND p.active = 1
		ORDER BY i.quantity_available - p.reorder_level`)
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

type TransactionSummaryRow struct {
	Type        string  `json:"type"`
	Count       int     `json:"count"`
	NetQuantity float64 `json:"net_quantity"`
}

type TransactionSummary struct {
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	Types      []TransactionSummaryRow `json:"types"`
	TotalCount int                     `json:"total_count"`
}

func handleReportTransactionSummary(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}

	rows, err := db.Query(`SELECT type, COUNT(*), COALESCE(SUM(quantity), 0)
		FROM inventory_transactions
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY type ORDER BY type`, from, to+" 23:59:59")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	summary := TransactionSummary{From: from, To: to, Types: []TransactionSummaryRow{}}
	for rows.Next() {
		var row TransactionSummaryRow
		rows.Scan(&row.Type, &row.Count, &row.NetQuantity)
		summary.TotalCount += row.Count
		summary.Types = append(summary.Types, row)
	}

	jsonResp(w, summary)
}

type AssetBucket struct {
	Bucket    string  `json:"bucket"`
	Count     int     `json:"count"`
	TotalCost float64 `json:"total_cost"`
}

type AssetSummary struct {
	TotalAssets    int           `json:"total_assets"`
	InServiceRatio float64       `json:"in_service_ratio"`
	ByStatus       []AssetBucket `json:"by_status"`
	ByCategory     []AssetBucket `json:"by_category"`
}

func handleReportAssetSummary(w http.ResponseWriter, r *http.Request) {
	summary := AssetSummary{ByStatus: []AssetBucket{}, ByCategory: []AssetBucket{}}

	rows, err := db.Query(`SELECT status, COUNT(*), COALESCE(SUM(purchase_cost), 0)
		FROM assets GROUP BY status ORDER BY status`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	inService := 0
	for rows.Next() {
		var b AssetBucket
		rows.Scan(&b.Bucket, &b.Count, &b.TotalCost)
		summary.TotalAssets += b.Count
		if b.Bucket == "in_service" {
			inService = b.Count
		}
		summary.ByStatus = append(summary.ByStatus, b)
	}
	rows.Close()

	rows, err = db.Query(`SELECT COALESCE(NULLIF(category, ''), 'uncategorized'), COUNT(*), COALESCE(SUM(purchase_cost), 0)
		FROM assets GROUP BY 1 ORDER BY 1`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	for rows.Next() {
		var b AssetBucket
		rows.Scan(&b.Bucket, &b.Count, &b.TotalCost)
		summary.ByCategory = append(summary.ByCategory, b)
	}
	rows.Close()

	if summary.TotalAssets > 0 {
		summary.InServiceRatio = float64(inService) / float64(summary.TotalAssets)
	}

	jsonResp(w, summary)
}

type MaintenanceCostRow struct {
	AssetID   string  `json:"asset_id"`
	AssetName string  `json:"asset_name"`
	Count     int     `json:"count"`
	TotalCost float64 `json:"total_cost"`
}

type MaintenanceCostReport struct {
	Assets    []MaintenanceCostRow `json:"assets"`
	TotalCost float64              `json:"total_cost"`
}

// handleReportMaintenanceCost sums completed maintenance cost per asset.
// Without a from/to window it covers all time.
func handleReportMaintenanceCost(w http.ResponseWriter, r *http.Request) {
	query := `SELECT m.asset_id, a.name, COUNT(*), COALESCE(SUM(m.cost), 0)
		FROM asset_maintenance m JOIN assets a ON m.asset_id = a.id
		WHERE m.status = 'completed'`
	args := []interface{}{}
	if from := r.URL.Query().Get("from"); from != "" {
		query += " AND m.completed_at >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query += " AND m.completed_at <= ?"
		args = append(args, to+" 23:59:59")
	}
	query += " GROUP BY m.asset_id, a.name ORDER BY SUM(m.cost) DESC"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	report := MaintenanceCostReport{Assets: []MaintenanceCostRow{}}
	for rows.Next() {
		var row MaintenanceCostRow
		rows.Scan(&row.AssetID, &row.AssetName, &row.Count, &row.TotalCost)
		report.TotalCost += row.TotalCost
		report.Assets = append(report.Assets, row)
	}

	jsonResp(w, report)
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	var d DashboardData

	db.QueryRow("SELECT COUNT(*) FROM products WHERE active = 1").Scan(&d.ActiveProducts)
	db.QueryRow(`SELECT COUNT(*) FROM inventory i JOIN products p ON i.product_id = p.id
		WHERE i.quantity_available <= p.reorder_level AND p.reorder_level > 0 AND p.active = 1`).Scan(&d.LowStock)
	db.QueryRow(`SELECT COALESCE(SUM(i.quantity_on_hand * p.unit_price), 0)
		FROM inventory i JOIN products p ON i.product_id = p.id WHERE p.active = 1`).Scan(&d.InventoryValue)
	db.QueryRow("SELECT COUNT(*) FROM assets").Scan(&d.TotalAssets)
	db.QueryRow("SELECT COUNT(*) FROM assets WHERE status = 'in_service'").Scan(&d.AssetsInService)
	db.QueryRow("SELECT COUNT(*) FROM assets WHERE status = 'in_repair'").Scan(&d.AssetsInRepair)
	db.QueryRow("SELECT COUNT(*) FROM asset_maintenance WHERE status IN ('scheduled', 'in_progress')").Scan(&d.OpenMaintenance)
	db.QueryRow("SELECT COUNT(*) FROM staff WHERE active = 1").Scan(&d.ActiveStaff)
	db.QueryRow(`SELECT COUNT(*) FROM inventory_transactions
		WHERE created_at >= strftime('%Y-%m-01', 'now')`).Scan(&d.MonthTransactions)

	rows, err := db.Query(transactionQuery + " ORDER BY t.created_at DESC, t.id DESC LIMIT 5")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	d.RecentTransactions = []StockTransaction{}
	for rows.Next() {
		var t StockTransaction
		rows.Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
		d.RecentTransactions = append(d.RecentTransactions, t)
	}

	jsonResp(w, d)
}
