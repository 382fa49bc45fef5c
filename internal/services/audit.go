package services

import (
	"encoding/json"
	"log"
	"time"

	"steam_bridge/internal/database"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	// Session actions
	AuditLogin        AuditAction = "session.login"
	AuditLoginFailed  AuditAction = "session.login_failed"
	AuditLogout       AuditAction = "session.logout"
	AuditSessionSwept AuditAction = "session.swept"

	// Trade actions
	AuditOfferCreated  AuditAction = "trade.offer_created"
	AuditOfferAccepted AuditAction = "trade.offer_accepted"
	AuditOfferDeclined AuditAction = "trade.offer_declined"
	AuditOfferCanceled AuditAction = "trade.offer_canceled"

	// Confirmation actions
	AuditConfAccepted    AuditAction = "confirmation.accepted"
	AuditConfCanceled    AuditAction = "confirmation.canceled"
	AuditConfAcceptedAll AuditAction = "confirmation.accepted_all"
	AuditConfCanceledAll AuditAction = "confirmation.canceled_all"
)

// AuditEntry represents an audit log entry. It never carries credentials or
// account secrets, only identifiers and action outcomes.
type AuditEntry struct {
	ID          int64       `json:"id"`
	SessionID   string      `json:"session_id"`
	SteamID     string      `json:"steam_id,omitempty"`
	AccountName string      `json:"account_name,omitempty"`
	Action      AuditAction `json:"action"`
	EntityID    string      `json:"entity_id,omitempty"`
	Details     string      `json:"details,omitempty"` // JSON
	IPAddress   string      `json:"ip_address,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AuditService handles audit logging.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// Log records an audit entry.
func (s *AuditService) Log(entry *AuditEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_log (session_id, steam_id, account_name, action, entity_id, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.SteamID, entry.AccountName, entry.Action,
		entry.EntityID, entry.Details, entry.IPAddress, time.Now())

	if err != nil {
		log.Printf("Failed to write audit log: %v", err)
		return err
	}
	return nil
}

// LogAction is a convenience method for logging an action with automatic JSON
// serialization of the details value.
func (s *AuditService) LogAction(sessionID, steamID, accountName string, action AuditAction, entityID string, details any, ip string) {
	entry := &AuditEntry{
		SessionID:   sessionID,
		SteamID:     steamID,
		AccountName: accountName,
		Action:      action,
		EntityID:    entityID,
		IPAddress:   ip,
	}

	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			entry.Details = string(data)
		}
	}

	if err := s.Log(entry); err != nil {
		log.Printf("Audit log failed for action %s: %v", action, err)
	}
}

// GetBySessionID retrieves audit entries for one session.
func (s *AuditService) GetBySessionID(sessionID string, limit, offset int) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, steam_id, account_name, action, entity_id, details, ip_address, created_at
		FROM audit_log
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByAction retrieves audit entries by action type.
func (s *AuditService) GetByAction(action AuditAction, limit, offset int) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, steam_id, account_name, action, entity_id, details, ip_address, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetRecent retrieves the most recent audit entries.
func (s *AuditService) GetRecent(limit int) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, steam_id, account_name, action, entity_id, details, ip_address, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteOlderThan removes audit entries older than the given duration.
func (s *AuditService) DeleteOlderThan(d time.Duration) (int64, error) {
	cutoff := time.Now().Add(-d)
	result, err := s.db.Exec(`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows rowScanner) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SteamID, &e.AccountName, &e.Action,
			&e.EntityID, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
