package audit

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"

	"stockroom/internal/models"
	"stockroom/internal/websocket"
)

// LogAudit records an action in the audit log and notifies connected
// clients. Audit failures are logged but never fail the request.
func LogAudit(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	_, err := db.Exec(`INSERT INTO audit_log (user_id, username, action, module, record_id, summary, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		0, username, action, module, recordID, summary, "", "")
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{
			Type:   module + "_" + action + "d",
			ID:     recordID,
			Action: action,
		})
	}
}

// LogRequestAudit records an action with the user and client details taken
// from the request.
func LogRequestAudit(db *sql.DB, hub *websocket.Hub, r *http.Request, action, module, recordID, summary string) {
	userID, username := GetUserContext(r, db)
	_, err := db.Exec(`INSERT INTO audit_log (user_id, username, action, module, record_id, summary, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, username, action, module, recordID, summary, GetClientIP(r), r.UserAgent())
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{
			Type:   module + "_" + action + "d",
			ID:     recordID,
			Action: action,
		})
	}
}

// LogDataExport records a data export in the audit log. Exports are reads so
// no event is broadcast.
func LogDataExport(db *sql.DB, r *http.Request, module, format string, recordCount int) {
	userID, username := GetUserContext(r, db)
	_, err := db.Exec(`INSERT INTO audit_log (user_id, username, action, module, record_id, summary, ip_address, user_agent)
		VALUES (?, ?, 'export', ?, '', ?, ?, ?)`,
		userID, username, module, fmt.Sprintf("Exported %d records as %s", recordCount, format),
		GetClientIP(r), r.UserAgent())
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
}

// GetUsername extracts the username from a session cookie.
func GetUsername(db *sql.DB, r *http.Request) string {
	cookie, err := r.Cookie("stockroom_session")
	if err != nil {
		return "system"
	}
	var username string
	err = db.QueryRow("SELECT u.username FROM users u JOIN sessions s ON u.id = s.user_id WHERE s.token = ?", cookie.Value).Scan(&username)
	if err != nil {
		return "system"
	}
	return username
}

// GetUserContext extracts user id and username from the session cookie.
func GetUserContext(r *http.Request, db *sql.DB) (userID int, username string) {
	cookie, err := r.Cookie("stockroom_session")
	if err != nil {
		return 0, "system"
	}
	err = db.QueryRow("SELECT u.id, u.username FROM users u JOIN sessions s ON u.id = s.user_id WHERE s.token = ?", cookie.Value).
		Scan(&userID, &username)
	if err != nil {
		return 0, "system"
	}
	return userID, username
}

// GetClientIP extracts the real client IP from the request (handles proxies).
func GetClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// AuditEntry is re-exported for callers (defined in models).
type AuditEntry = models.AuditEntry
