package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
)

const assetQuery = `SELECT id, asset_tag, name, COALESCE(category, ''), status,
	COALESCE(serial_number, ''), COALESCE(location, ''), COALESCE(assigned_to, ''),
	COALESCE(purchase_date, ''), COALESCE(purchase_cost, 0), COALESCE(notes, ''),
	created_at, updated_at FROM assets`

func scanAsset(scan func(...interface{}) error) (Asset, error) {
	var a Asset
	err := scan(&a.ID, &a.AssetTag, &a.Name, &a.Category, &a.Status,
		&a.SerialNumber, &a.Location, &a.AssignedTo,
		&a.PurchaseDate, &a.PurchaseCost, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func handleListAssets(w http.ResponseWriter, r *http.Request) {
	query := assetQuery + " WHERE 1=1"
	args := []interface{}{}

	if s := r.URL.Query().Get("status"); s != "" {
		query += " AND status = ?"
		args = append(args, s)
	}
	if c := r.URL.Query().Get("category"); c != "" {
		query += " AND category = ?"
		args = append(args, c)
	}
	if a := r.URL.Query().Get("assigned_to"); a != "" {
		query += " AND assigned_to = ?"
		args = append(args, a)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		query += " AND (asset_tag LIKE ? OR name LIKE ? OR serial_number LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%", "%"+q+"%")
	}
	query += " ORDER BY asset_tag"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		assets = append(assets, a)
	}
	if assets == nil { assets = []Asset{} }
	jsonResp(w, assets)
}

func handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var a Asset
	if err := decodeBody(r, &a); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	if a.Status == "" {
		a.Status = "in_service"
	}

	ve := &ValidationErrors{}
	requireField(ve, "asset_tag", a.AssetTag)
	requireField(ve, "name", a.Name)
	validateEnum(ve, "status", a.Status, validAssetStatuses)
	validateNonNegativeFloat(ve, "purchase_cost", a.PurchaseCost)
	if a.PurchaseDate != "" {
		validateDate(ve, "purchase_date", a.PurchaseDate)
	}
	if a.AssignedTo != "" {
		validateForeignKey(ve, "assigned_to", "staff", a.AssignedTo)
	}
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	a.ID = nextID("AST", "assets", 4)

	_, err := db.Exec(`INSERT INTO assets (id, asset_tag, name, category, status, serial_number,
		location, assigned_to, purchase_date, purchase_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AssetTag, a.Name, a.Category, a.Status, a.SerialNumber,
		a.Location, nz(a.AssignedTo), nz(a.PurchaseDate), a.PurchaseCost, a.Notes)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "asset_tag already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}

	logAudit(db, getUsername(r), "create", "assets", a.ID, fmt.Sprintf("Created asset %s (%s)", a.AssetTag, a.Name))
	handleGetAsset(w, r, a.ID)
}

func handleGetAsset(w http.ResponseWriter, r *http.Request, id string) {
	a, err := scanAsset(db.QueryRow(assetQuery+" WHERE id = ?", id).Scan)
	if err == sql.ErrNoRows {
		jsonErr(w, "asset not found", 404)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	records, err := maintenanceForAsset(id)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	a.Maintenance = records

	jsonResp(w, a)
}

var allowedAssetFields = map[string]bool{
	"asset_tag":     true,
	"name":          true,
	"category":      true,
	"status":        true,
	"serial_number": true,
	"location":      true,
	"assigned_to":   true,
	"purchase_date": true,
	"purchase_cost": true,
	"notes":         true,
}

func handleUpdateAsset(w http.ResponseWriter, r *http.Request, id string) {
	var updates map[string]interface{}
	if err := decodeBody(r, &updates); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}
	if len(updates) == 0 {
		jsonErr(w, "no fields to update", 400)
		return
	}

	ve := &ValidationErrors{}
	setClauses := "updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	for field, value := range updates {
		if !allowedAssetFields[field] {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
		switch field {
		case "asset_tag", "name":
			s, ok := value.(string)
			if !ok || s == "" {
				jsonErr(w, field+" must be a non-empty string", 400)
				return
			}
		case "status":
			s, _ := value.(string)
			validateEnum(ve, "status", s, validAssetStatuses)
		case "purchase_cost":
			n, ok := value.(float64)
			if !ok || n < 0 {
				jsonErr(w, "purchase_cost must be a non-negative number", 400)
				return
			}
		case "purchase_date":
			s, _ := value.(string)
			if s != "" {
				validateDate(ve, "purchase_date", s)
			}
			value = nz(s)
		case "assigned_to":
			s, _ := value.(string)
			if s != "" {
				validateForeignKey(ve, "assigned_to", "staff", s)
			}
			value = nz(s)
		}
		setClauses += ", " + field + " = ?"
		args = append(args, value)
	}
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}
	args = append(args, id)

	res, err := db.Exec("UPDATE assets SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "asset_tag already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "asset not found", 404)
		return
	}

	logAudit(db, getUsername(r), "update", "assets", id, fmt.Sprintf("Updated asset %s", id))
	handleGetAsset(w, r, id)
}

// Deleting an asset also removes its maintenance history via FK cascade.
func handleDeleteAsset(w http.ResponseWriter, r *http.Request, id string) {
	res, err := db.Exec("DELETE FROM assets WHERE id = ?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "asset not found", 404); return }

	logAudit(db, getUsername(r), "delete", "assets", id, fmt.Sprintf("Deleted asset %s", id))
	jsonResp(w, map[string]string{"deleted": id})
}

func handleAssetMaintenance(w http.ResponseWriter, r *http.Request, id string) {
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM assets WHERE id = ?", id).Scan(&exists)
	if exists == 0 { jsonErr(w, "asset not found", 404); return }

	records, err := maintenanceForAsset(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, records)
}

func maintenanceForAsset(assetID string) ([]MaintenanceRecord, error) {
	rows, err := db.Query(`SELECT m.id, m.asset_id, COALESCE(m.staff_id, ''), m.type, m.status,
		COALESCE(m.description, ''), COALESCE(m.cost, 0), COALESCE(m.scheduled_date, ''),
		m.completed_at, COALESCE(m.notes, ''), m.created_at, COALESCE(s.name, '')
		FROM asset_maintenance m
		LEFT JOIN staff s ON m.staff_id = s.id
		WHERE m.asset_id = ? ORDER BY m.created_at DESC, m.id DESC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []MaintenanceRecord{}
	for rows.Next() {
		var m MaintenanceRecord
		if err := rows.Scan(&m.ID, &m.AssetID, &m.StaffID, &m.Type, &m.Status,
			&m.Description, &m.Cost, &m.ScheduledDate, &m.CompletedAt, &m.Notes,
			&m.CreatedAt, &m.StaffName); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}
