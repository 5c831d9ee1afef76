package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleLogin_Success(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	createTestUser(t, db, "testuser", "password123", "user", true)

	reqBody := `{"username":"testuser","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(reqBody))
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()

	handleLogin(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response missing user object")
	}
	if user["username"] != "testuser" {
		t.Errorf("Expected username 'testuser', got %v", user["username"])
	}
	if user["role"] != "user" {
		t.Errorf("Expected role 'user', got %v", user["role"])
	}

	// Session cookie present and stored
	cookies := w.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == "stockroom_session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("Expected stockroom_session cookie, got %v", cookies)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ?", session.Value).Scan(&count)
	if count != 1 {
		t.Errorf("Expected session row for token, got %d", count)
	}

	// Login lands in the audit trail
	var auditCount int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE action = 'login' AND username = 'testuser'").Scan(&auditCount)
	if auditCount != 1 {
		t.Errorf("Expected 1 login audit row, got %d", auditCount)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	createTestUser(t, db, "testuser", "password123", "user", true)

	reqBody := `{"username":"testuser","password":"nope"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(reqBody))
	w := httptest.NewRecorder()

	handleLogin(w, req)
	assertStatus(t, w, 401)
}

func TestHandleLogin_UnknownUser(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	reqBody := `{"username":"ghost","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(reqBody))
	w := httptest.NewRecorder()

	handleLogin(w, req)
	assertStatus(t, w, 401)
}

func TestHandleLogin_DeactivatedUser(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	createTestUser(t, db, "olduser", "password123", "user", false)

	reqBody := `{"username":"olduser","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(reqBody))
	w := httptest.NewRecorder()

	handleLogin(w, req)
	assertStatus(t, w, 403)
}

func TestHandleLogin_InvalidBody(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()

	handleLogin(w, req)
	assertStatus(t, w, 400)
}

func TestHandleMe(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	token := loginAdmin(t, db)

	req := authedRequest("GET", "/auth/me", nil, token)
	w := httptest.NewRecorder()
	handleMe(w, req)

	assertStatus(t, w, 200)
	var resp map[string]UserResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["user"].Username != "admin" {
		t.Errorf("Expected admin, got %q", resp["user"].Username)
	}

	// No cookie
	req = httptest.NewRequest("GET", "/auth/me", nil)
	w = httptest.NewRecorder()
	handleMe(w, req)
	assertStatus(t, w, 401)
}

func TestHandleLogout(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	token := loginAdmin(t, db)

	req := authedRequest("POST", "/auth/logout", nil, token)
	w := httptest.NewRecorder()
	handleLogout(w, req)

	assertStatus(t, w, 200)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ?", token).Scan(&count)
	if count != 0 {
		t.Errorf("Expected session to be deleted, found %d rows", count)
	}
}
