package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
)

const staffQuery = `SELECT id, name, email, COALESCE(phone, ''), role, active, created_at FROM staff`

func handleListStaff(w http.ResponseWriter, r *http.Request) {
	query := staffQuery + " WHERE 1=1"
	args := []interface{}{}

	if role := r.URL.Query().Get("role"); role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}
	if a := r.URL.Query().Get("active"); a != "" {
		query += " AND active = ?"
		args = append(args, a)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		query += " AND (name LIKE ? OR email LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var members []Staff
	for rows.Next() {
		var s Staff
		rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Role, &s.Active, &s.CreatedAt)
		members = append(members, s)
	}
	if members == nil { members = []Staff{} }
	jsonResp(w, members)
}

func handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var s Staff
	if err := decodeBody(r, &s); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	if s.Role == "" {
		s.Role = "clerk"
	}

	ve := &ValidationErrors{}
	requireField(ve, "name", s.Name)
	requireField(ve, "email", s.Email)
	validateEmail(ve, "email", s.Email)
	validateEnum(ve, "role", s.Role, validStaffRoles)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	s.ID = nextSeqID("STF", "staff", 3)
	s.Active = 1

	_, err := db.Exec("INSERT INTO staff (id, name, email, phone, role, active) VALUES (?, ?, ?, ?, ?, ?)",
		s.ID, s.Name, s.Email, s.Phone, s.Role, s.Active)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "email already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}

	logAudit(db, getUsername(r), "create", "staff", s.ID, fmt.Sprintf("Added staff member %s", s.Name))
	handleGetStaff(w, r, s.ID)
}

func handleGetStaff(w http.ResponseWriter, r *http.Request, id string) {
	var s Staff
	err := db.QueryRow(staffQuery+" WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Role, &s.Active, &s.CreatedAt)
	if err == sql.ErrNoRows {
		jsonErr(w, "staff member not found", 404)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	jsonResp(w, s)
}

var allowedStaffFields = map[string]bool{
	"name":   true,
	"email":  true,
	"phone":  true,
	"role":   true,
	"active": true,
}

func handleUpdateStaff(w http.ResponseWriter, r *http.Request, id string) {
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
		if !allowedStaffFields[field] {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
		switch field {
		case "name":
			s, ok := value.(string)
			if !ok || s == "" {
				jsonErr(w, "name must be a non-empty string", 400)
				return
			}
		case "email":
			s, ok := value.(string)
			if !ok || s == "" {
				jsonErr(w, "email must be a non-empty string", 400)
				return
			}
			validateEmail(ve, "email", s)
		case "role":
			s, _ := value.(string)
			validateEnum(ve, "role", s, validStaffRoles)
		case "active":
			value = boolishToInt(value)
			if value == nil {
				jsonErr(w, "active must be 0 or 1", 400)
				return
			}
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
	args = append(args, id)

	res, err := db.Exec("UPDATE staff SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "email already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "staff member not found", 404)
		return
	}

	logAudit(db, getUsername(r), "update", "staff", id, fmt.Sprintf("Updated staff member %s", id))
	handleGetStaff(w, r, id)
}

// Staff with recorded transactions or maintenance stay on the books;
// deactivate them instead.
func handleDeleteStaff(w http.ResponseWriter, r *http.Request, id string) {
	if hasReferences(id, []struct{ Table, Col string }{
		{"inventory_transactions", "staff_id"},
		{"asset_maintenance", "staff_id"},
	}) {
		jsonErr(w, "staff member has recorded activity", 409)
		return
	}

	res, err := db.Exec("DELETE FROM staff WHERE id = ?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "staff member not found", 404); return }

	logAudit(db, getUsername(r), "delete", "staff", id, fmt.Sprintf("Removed staff member %s", id))
	jsonResp(w, map[string]string{"deleted": id})
}
