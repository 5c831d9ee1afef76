package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockroom/internal/audit"
)

// handleExport streams a list view as CSV (default) or XLSX.
func handleExport(w http.ResponseWriter, r *http.Request, entity string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		jsonErr(w, "format must be csv or xlsx", 400)
		return
	}

	var sheet string
	var headers []string
	var data [][]string
	var err error

	switch entity {
	case "inventory":
		sheet = "Inventory"
		headers, data, err = exportInventoryRows(r)
	case "assets":
		sheet = "Assets"
		headers, data, err = exportAssetRows()
	case "transactions":
		sheet = "Transactions"
		headers, data, err = exportTransactionRows(r)
	default:
		jsonErr(w, "unknown export: "+entity, 404)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	audit.LogDataExport(db, r, entity, format, len(data))

	if format == "xlsx" {
		exportExcel(w, sheet, headers, data)
	} else {
		exportCSV(w, entity+".csv", headers, data)
	}
}

func exportInventoryRows(r *http.Request) ([]string, [][]string, error) {
	query := stockLevelQuery
	if r.URL.Query().Get("low_stock") == "true" {
		query += " WHERE i.quantity_available <= p.reorder_level AND p.reorder_level > 0 AND p.active = 1"
	}
	query += " ORDER BY p.sku"

	rows, err := db.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	headers := []string{"Product ID", "SKU", "Name", "On Hand", "Reserved", "Available", "Location", "Reorder Level", "Updated At"}
	var data [][]string
	for rows.Next() {
		var s StockLevel
		rows.Scan(&s.ProductID, &s.SKU, &s.Name, &s.QuantityOnHand, &s.QuantityReserved,
			&s.QuantityAvailable, &s.Location, &s.ReorderLevel, &s.UpdatedAt)
		data = append(data, []string{
			s.ProductID, s.SKU, s.Name,
			fmt.Sprintf("%.2f", s.QuantityOnHand), fmt.Sprintf("%.2f", s.QuantityReserved),
			fmt.Sprintf("%.2f", s.QuantityAvailable), s.Location,
			fmt.Sprintf("%.2f", s.ReorderLevel), s.UpdatedAt,
		})
	}
	return headers, data, rows.Err()
}

func exportAssetRows() ([]string, [][]string, error) {
	rows, err := db.Query(assetQuery + " ORDER BY asset_tag")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	headers := []string{"ID", "Asset Tag", "Name", "Category", "Status", "Serial Number", "Location", "Assigned To", "Purchase Date", "Purchase Cost", "Notes"}
	var data [][]string
	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, nil, err
		}
		data = append(data, []string{
			a.ID, a.AssetTag, a.Name, a.Category, a.Status, a.SerialNumber,
			a.Location, a.AssignedTo, a.PurchaseDate,
			fmt.Sprintf("%.2f", a.PurchaseCost), a.Notes,
		})
	}
	return headers, data, rows.Err()
}

func exportTransactionRows(r *http.Request) ([]string, [][]string, error) {
	query := transactionQuery + " WHERE 1=1"
	args := []interface{}{}
	if from := r.URL.Query().Get("from"); from != "" {
		query += " AND t.created_at >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query += " AND t.created_at <= ?"
		args = append(args, to+" 23:59:59")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	headers := []string{"ID", "Product", "SKU", "Staff", "Type", "Quantity", "Reference", "Notes", "Created At"}
	var data [][]string
	for rows.Next() {
		var t StockTransaction
		rows.Scan(&t.ID, &t.ProductID, &t.StaffID, &t.Type, &t.Quantity,
			&t.Reference, &t.Notes, &t.CreatedAt, &t.SKU, &t.StaffName)
		data = append(data, []string{
			fmt.Sprintf("%d", t.ID), t.ProductID, t.SKU, t.StaffName, t.Type,
			fmt.Sprintf("%.2f", t.Quantity), t.Reference, t.Notes, t.CreatedAt,
		})
	}
	return headers, data, rows.Err()
}

func exportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

func exportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 15)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", strings.ToLower(sheetName)))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
		return
	}
}
