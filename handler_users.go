package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/auth"
)

// getCurrentUser resolves the session cookie to a user row, nil when the
// request carries no valid session.
func getCurrentUser(r *http.Request) *User {
	cookie, err := r.Cookie("stockroom_session")
	if err != nil {
		return nil
	}
	var u User
	err = db.QueryRow(`SELECT u.id, u.username, COALESCE(u.display_name, ''), u.role, u.active, u.created_at, u.last_login
		FROM sessions s JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, cookie.Value).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil
	}
	return &u
}

// requireAdmin writes a 403 and returns nil unless the caller is an admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) *User {
	u := getCurrentUser(r)
	if u == nil || u.Role != "admin" {
		jsonErr(w, "Admin access required", 403)
		return nil
	}
	return u
}

func handleListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(`SELECT id, username, COALESCE(display_name, ''), role, active, created_at, last_login
		FROM users ORDER BY id`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt, &u.LastLogin); err != nil {
			continue
		}
		users = append(users, u)
	}
	if users == nil { users = []User{} }
	jsonResp(w, users)
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}
	var req CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonErr(w, "Username and password required", 400)
		return
	}

	ve := &ValidationErrors{}
	validateMaxLength(ve, "username", req.Username, 100)
	validateMaxLength(ve, "display_name", req.DisplayName, 255)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		jsonErr(w, err.Error(), 400)
		return
	}

	validRoles := map[string]bool{"admin": true, "user": true, "readonly": true}
	if !validRoles[req.Role] {
		req.Role = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonErr(w, "Failed to hash password", 500)
		return
	}

	result, err := db.Exec(`INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, 1)`,
		req.Username, string(hash), req.DisplayName, req.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonErr(w, "Username already exists", 409)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	id, _ := result.LastInsertId()

	logRequestAudit(r, "create", "users", fmt.Sprintf("%d", id), fmt.Sprintf("Created user %s (%s)", req.Username, req.Role))

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id, "username": req.Username, "display_name": req.DisplayName, "role": req.Role})
}

var allowedUserFields = map[string]bool{
	"display_name": true,
	"role":         true,
	"active":       true,
}

func handleUpdateUser(w http.ResponseWriter, r *http.Request, idStr string) {
	admin := requireAdmin(w, r)
	if admin == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil { jsonErr(w, "invalid user id", 400); return }

	var updates map[string]interface{}
	if err := decodeBody(r, &updates); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if len(updates) == 0 {
		jsonErr(w, "no fields to update", 400)
		return
	}

	setClauses := ""
	args := []interface{}{}
	deactivated := false
	for field, value := range updates {
		if !allowedUserFields[field] {
			jsonErr(w, "field not allowed: "+field, 400)
			return
		}
		switch field {
		case "role":
			s, _ := value.(string)
			if s != "admin" && s != "user" && s != "readonly" {
				jsonErr(w, "role must be admin, user, or readonly", 400)
				return
			}
		case "active":
			value = boolishToInt(value)
			if value == nil {
				jsonErr(w, "active must be 0 or 1", 400)
				return
			}
			if value == 0 {
				// Admins cannot lock themselves out.
				if id == admin.ID {
					jsonErr(w, "cannot deactivate your own account", 400)
					return
				}
				deactivated = true
			}
		}
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += field + " = ?"
		args = append(args, value)
	}
	args = append(args, id)

	res, err := db.Exec("UPDATE users SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "user not found", 404)
		return
	}

	// Deactivated users lose their sessions immediately.
	if deactivated {
		db.Exec("DELETE FROM sessions WHERE user_id = ?", id)
	}

	logRequestAudit(r, "update", "users", idStr, fmt.Sprintf("Updated user %d", id))

	var u User
	err = db.QueryRow(`SELECT id, username, COALESCE(display_name, ''), role, active, created_at, last_login
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt, &u.LastLogin)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, u)
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func handleResetPassword(w http.ResponseWriter, r *http.Request, idStr string) {
	if requireAdmin(w, r) == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil { jsonErr(w, "invalid user id", 400); return }

	var req ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		jsonErr(w, err.Error(), 400)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonErr(w, "Failed to hash password", 500)
		return
	}

	res, err := db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", string(hash), id)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "user not found", 404)
		return
	}

	// Force a fresh login everywhere after a reset.
	db.Exec("DELETE FROM sessions WHERE user_id = ?", id)

	logRequestAudit(r, "update", "users", idStr, fmt.Sprintf("Reset password for user %d", id))
	jsonResp(w, map[string]string{"status": "ok"})
}
