package main

import (
	"fmt"
	"net/http"
	"strconv"
)

const maintenanceQuery = `SELECT m.id, m.asset_id, COALESCE(m.staff_id, ''), m.type, m.status,
	COALESCE(m.description, ''), COALESCE(m.cost, 0), COALESCE(m.scheduled_date, ''),
	m.completed_at, COALESCE(m.notes, ''), m.created_at, a.name, COALESCE(s.name, '')
	FROM asset_maintenance m
	JOIN assets a ON m.asset_id = a.id
	LEFT JOIN staff s ON m.staff_id = s.id`

func handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	query := maintenanceQuery + " WHERE 1=1"
	args := []interface{}{}

	if a := r.URL.Query().Get("asset_id"); a != "" {
		query += " AND m.asset_id = ?"
		args = append(args, a)
	}
	if s := r.URL.Query().Get("status"); s != "" {
		query += " AND m.status = ?"
		args = append(args, s)
	}
	if t := r.URL.Query().Get("type"); t != "" {
		query += " AND m.type = ?"
		args = append(args, t)
	}
	query += " ORDER BY m.scheduled_date IS NULL, m.scheduled_date, m.id"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var records []MaintenanceRecord
	for rows.Next() {
		var m MaintenanceRecord
		rows.Scan(&m.ID, &m.AssetID, &m.StaffID, &m.Type, &m.Status,
			&m.Description, &m.Cost, &m.ScheduledDate, &m.CompletedAt, &m.Notes,
			&m.CreatedAt, &m.AssetName, &m.StaffName)
		records = append(records, m)
	}
	if records == nil { records = []MaintenanceRecord{} }
	jsonResp(w, records)
}

func handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var m MaintenanceRecord
	if err := decodeBody(r, &m); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	if m.Type == "" {
		m.Type = "service"
	}
	if m.Status == "" {
		m.Status = "scheduled"
	}

	ve := &ValidationErrors{}
	requireField(ve, "asset_id", m.AssetID)
	if m.AssetID != "" {
		validateForeignKey(ve, "asset_id", "assets", m.AssetID)
	}
	if m.StaffID != "" {
		validateForeignKey(ve, "staff_id", "staff", m.StaffID)
	}
	validateEnum(ve, "type", m.Type, validMaintenanceTypes)
	validateEnum(ve, "status", m.Status, validMaintenanceStates)
	validateNonNegativeFloat(ve, "cost", m.Cost)
	if m.ScheduledDate != "" {
		validateDate(ve, "scheduled_date", m.ScheduledDate)
	}
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	res, err := db.Exec(`INSERT INTO asset_maintenance (asset_id, staff_id, type, status, description,
		cost, scheduled_date, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AssetID, nz(m.StaffID), m.Type, m.Status, m.Description, m.Cost, nz(m.ScheduledDate), m.Notes)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	id, _ := res.LastInsertId()

	logAudit(db, getUsername(r), "create", "maintenance", fmt.Sprintf("%d", id),
		fmt.Sprintf("Scheduled %s for %s", m.Type, m.AssetID))
	handleGetMaintenance(w, r, fmt.Sprintf("%d", id))
}

func handleGetMaintenance(w http.ResponseWriter, r *http.Request, id string) {
	recID, err := strconv.Atoi(id)
	if err != nil { jsonErr(w, "invalid maintenance id", 400); return }

	var m MaintenanceRecord
	err = db.QueryRow(maintenanceQuery+" WHERE m.id = ?", recID).
		Scan(&m.ID, &m.AssetID, &m.StaffID, &m.Type, &m.Status,
			&m.Description, &m.Cost, &m.ScheduledDate, &m.CompletedAt, &m.Notes,
			&m.CreatedAt, &m.AssetName, &m.StaffName)
	if err != nil { jsonErr(w, "maintenance record not found", 404); return }
	jsonResp(w, m)
}

var allowedMaintenanceFields = map[string]bool{
	"staff_id":       true,
	"type":           true,
	"status":         true,
	"description":    true,
	"cost":           true,
	"scheduled_date": true,
	"notes":          true,
}

func handleUpdateMaintenance(w http.ResponseWriter, r *http.Request, id string) {
	recID, err := strconv.Atoi(id)
	if err != nil { jsonErr(w, "invalid maintenance id", 400); return }

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
	setClauses := ""
	args := []interface{}{}
	for field, value := range updates {
		if !allowedMaintenanceFields[field] {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
		switch field {
		case "type":
			s, _ := value.(string)
			validateEnum(ve, "type", s, validMaintenanceTypes)
		case "status":
			s, _ := value.(string)
			validateEnum(ve, "status", s, validMaintenanceStates)
		case "cost":
			n, ok := value.(float64)
			if !ok || n < 0 {
				jsonErr(w, "cost must be a non-negative number", 400)
				return
			}
		case "scheduled_date":
			s, _ := value.(string)
			if s != "" {
				validateDate(ve, "scheduled_date", s)
			}
			value = nz(s)
		case "staff_id":
			s, _ := value.(string)
			if s != "" {
				validateForeignKey(ve, "staff_id", "staff", s)
			}
			value = nz(s)
		}
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += field + " = ?"
		args = append(args, value)
	}
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	// Completing a record stamps the completion time; reopening clears it.
	if s, ok := updates["status"].(string); ok {
		if s == "completed" {
			setClauses += ", completed_at = COALESCE(completed_at, CURRENT_TIMESTAMP)"
		} else {
			setClauses += ", completed_at = NULL"
		}
	}
	args = append(args, recID)

	res, err := db.Exec("UPDATE asset_maintenance SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "maintenance record not found", 404)
		return
	}

	logAudit(db, getUsername(r), "update", "maintenance", id, fmt.Sprintf("Updated maintenance #%d", recID))
	handleGetMaintenance(w, r, id)
}

func handleDeleteMaintenance(w http.ResponseWriter, r *http.Request, id string) {
	recID, err := strconv.Atoi(id)
	if err != nil { jsonErr(w, "invalid maintenance id", 400); return }

	res, err := db.Exec("DELETE FROM asset_maintenance WHERE id = ?", recID)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "maintenance record not found", 404); return }

	logAudit(db, getUsername(r), "delete", "maintenance", id, fmt.Sprintf("Deleted maintenance #%d", recID))
	jsonResp(w, map[string]string{"deleted": id})
}
