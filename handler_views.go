package main

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Saved views let the SPA persist a named set of list filters per entity.

func handleListViews(w http.ResponseWriter, r *http.Request) {
	username := getUsername(r)

	query := `SELECT id, name, entity, filters, created_by, is_public, created_at
		FROM saved_views WHERE (created_by = ? OR is_public = 1)`
	args := []interface{}{username}
	if e := r.URL.Query().Get("entity"); e != "" {
		query += " AND entity = ?"
		args = append(args, e)
	}
	query += " ORDER BY name"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	views := []SavedView{}
	for rows.Next() {
		var v SavedView
		var filtersJSON string
		if err := rows.Scan(&v.ID, &v.Name, &v.Entity, &filtersJSON, &v.CreatedBy, &v.IsPublic, &v.CreatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(filtersJSON), &v.Filters); err != nil {
			v.Filters = map[string]string{}
		}
		views = append(views, v)
	}

	jsonResp(w, views)
}

func handleCreateView(w http.ResponseWriter, r *http.Request) {
	var v SavedView
	if err := decodeBody(r, &v); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	ve := &ValidationErrors{}
	requireField(ve, "name", v.Name)
	requireField(ve, "entity", v.Entity)
	validateEnum(ve, "entity", v.Entity, validSavedViewEntities)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	v.ID = uuid.New().String()
	v.CreatedBy = getUsername(r)
	if v.Filters == nil {
		v.Filters = map[string]string{}
	}
	filtersJSON, _ := json.Marshal(v.Filters)

	_, err := db.Exec(`INSERT INTO saved_views (id, name, entity, filters, created_by, is_public)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Entity, string(filtersJSON), v.CreatedBy, v.IsPublic)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	logAudit(db, v.CreatedBy, "create", "views", v.ID, "Saved view "+v.Name)
	jsonResp(w, v)
}

// handleDeleteView removes a saved view. Only the owner or an admin may
// delete one.
func handleDeleteView(w http.ResponseWriter, r *http.Request, id string) {
	username := getUsername(r)

	var createdBy string
	err := db.QueryRow("SELECT created_by FROM saved_views WHERE id = ?", id).Scan(&createdBy)
	if err != nil { jsonErr(w, "view not found", 404); return }

	if createdBy != username {
		u := getCurrentUser(r)
		if u == nil || u.Role != "admin" {
			jsonErr(w, "not your view", 403)
			return
		}
	}

	db.Exec("DELETE FROM saved_views WHERE id = ?", id)
	logAudit(db, username, "delete", "views", id, "Deleted saved view")
	jsonResp(w, map[string]string{"deleted": id})
}
