package entities

import "time"

type AuditEventType string

const (
	AuditEventRegister AuditEventType = "register"
	AuditEventLogin    AuditEventType = "login"
	AuditEventLogout   AuditEventType = "logout"
	AuditEventRevoke   AuditEventType = "revoke"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent records one authentication state transition. It never holds
// passwords, password hashes or raw session tokens; SessionRef is a token
// fingerprint.
type AuditEvent struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	UserID     string         `gorm:"index;size:36" json:"user_id,omitempty"`
	EventType  AuditEventType `gorm:"index;size:50" json:"event_type"`
	Identifier string         `gorm:"size:254" json:"identifier,omitempty"` // username or email as presented
	SessionRef string         `gorm:"size:16" json:"session_ref,omitempty"`
	IPAddress  string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent  string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status     AuditStatus    `gorm:"size:20" json:"status"`
	Reason     string         `gorm:"size:100" json:"reason,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
