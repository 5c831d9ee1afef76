package main

import (
	"net/http"
	"strings"
	"time"

	"stockroom/internal/auth"
)

type CreateAPIKeyRequest struct {
	Name      string  `json:"name"`
	ExpiresAt *string `json:"expires_at"`
}

// validateBearerToken checks an Authorization: Bearer token against the
// api_keys table. Lives here rather than internal/auth because the
// requireAuth middleware needs it against the global db.
func validateBearerToken(token string) bool {
	if !strings.HasPrefix(token, "sk_") {
		return false
	}
	keyHash := auth.HashAPIKey(token)
	var id int
	var enabled int
	var expiresAt *string
	err := db.QueryRow("SELECT id, enabled, expires_at FROM api_keys WHERE key_hash = ?", keyHash).Scan(&id, &enabled, &expiresAt)
	if err != nil || enabled == 0 {
		return false
	}
	if expiresAt != nil && *expiresAt != "" {
		exp, err := time.Parse("2006-01-02T15:04:05Z", *expiresAt)
		if err != nil {
			exp, err = time.Parse("2006-01-02", *expiresAt)
		}
		if err == nil && time.Now().After(exp) {
			return false
		}
	}
	db.Exec("UPDATE api_keys SET last_used = ? WHERE id = ?", time.Now().Format("2006-01-02 15:04:05"), id)
	return true
}

func handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(`SELECT id, name, key_prefix, created_by, created_at, last_used, expires_at, enabled
		FROM api_keys ORDER BY id`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.CreatedBy, &k.CreatedAt, &k.LastUsed, &k.ExpiresAt, &k.Enabled)
		keys = append(keys, k)
	}
	if keys == nil { keys = []APIKey{} }
	jsonResp(w, keys)
}

// handleCreateAPIKey mints a key. The full key appears only in this
// response; only its hash is stored.
func handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	admin := requireAdmin(w, r)
	if admin == nil {
		return
	}
	var req CreateAPIKeyRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.Name == "" {
		jsonErr(w, "Name is required", 400)
		return
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		jsonErr(w, "Failed to generate key", 500)
		return
	}
	keyHash := auth.HashAPIKey(key)
	keyPrefix := auth.KeyPrefix(key)

	var expiresAt interface{}
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		expiresAt = *req.ExpiresAt
	}

	result, err := db.Exec(`INSERT INTO api_keys (name, key_hash, key_prefix, created_by, expires_at) VALUES (?, ?, ?, ?, ?)`,
		req.Name, keyHash, keyPrefix, admin.Username, expiresAt)
	if err != nil {
		jsonErr(w, "Failed to create API key", 500)
		return
	}
	id, _ := result.LastInsertId()

	logRequestAudit(r, "create", "apikeys", keyPrefix, "Created API key "+req.Name)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{
		"id":         id,
		"name":       req.Name,
		"key":        key,
		"key_prefix": keyPrefix,
		"enabled":    1,
		"message":    "Store this key securely. It will not be shown again.",
	})
}

func handleToggleAPIKey(w http.ResponseWriter, r *http.Request, id string) {
	if requireAdmin(w, r) == nil {
		return
	}
	var body struct {
		Enabled int `json:"enabled"`
	}
	if err := decodeBody(r, &body); err != nil {
		jsonErr(w, "Invalid body", 400)
		return
	}
	res, err := db.Exec("UPDATE api_keys SET enabled = ? WHERE id = ?", body.Enabled, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "API key not found", 404); return }

	action := "enabled"
	if body.Enabled == 0 {
		action = "disabled"
	}
	logRequestAudit(r, "update", "apikeys", id, "API key "+action)
	jsonResp(w, map[string]string{"status": "updated"})
}

func handleDeleteAPIKey(w http.ResponseWriter, r *http.Request, id string) {
	if requireAdmin(w, r) == nil {
		return
	}
	res, err := db.Exec("DELETE FROM api_keys WHERE id = ?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "API key not found", 404); return }

	logRequestAudit(r, "delete", "apikeys", id, "Deleted API key")
	jsonResp(w, map[string]string{"deleted": id})
}
