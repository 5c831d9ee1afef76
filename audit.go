package main

import (
	"database/sql"
	"net/http"
	"strconv"

	"stockroom/internal/audit"
)

// Wrappers over internal/audit that bind the global db handle and hub so
// handlers keep their short call sites.

func logAudit(db *sql.DB, username, action, module, recordID, summary string) {
	audit.LogAudit(db, wsHub, username, action, module, recordID, summary)
}

func logRequestAudit(r *http.Request, action, module, recordID, summary string) {
	audit.LogRequestAudit(db, wsHub, r, action, module, recordID, summary)
}

func getUsername(r *http.Request) string {
	return audit.GetUsername(db, r)
}

// handleAuditLog returns recent audit entries, newest first, with optional
// module/user/search/date filters and offset paging.
func handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	offset := (page - 1) * limit

	where := "WHERE 1=1"
	args := []interface{}{}
	if m := r.URL.Query().Get("module"); m != "" {
		where += " AND module = ?"
		args = append(args, m)
	}
	if u := r.URL.Query().Get("user"); u != "" {
		where += " AND username = ?"
		args = append(args, u)
	}
	if q := r.URL.Query().Get("search"); q != "" {
		where += " AND (record_id LIKE ? OR summary LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if from := r.URL.Query().Get("from"); from != "" {
		where += " AND created_at >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		where += " AND created_at <= ?"
		args = append(args, to+" 23:59:59")
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM audit_log "+where, args...).Scan(&total); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	query := `SELECT id, user_id, username, action, module, record_id, summary,
		COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_log ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.Module,
			&e.RecordID, &e.Summary, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		entries = append(entries, e)
	}

	jsonResp(w, map[string]interface{}{"entries": entries, "total": total})
}
