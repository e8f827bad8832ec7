package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of verification and operator events.
// UserPhone is always stored masked.
type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	SessionID    *uuid.UUID      `gorm:"type:uuid;index:idx_audit_session_id" json:"session_id,omitempty"`
	UserPhone    *string         `gorm:"size:32" json:"user_phone,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCallTriggered          = "call_triggered"
	AuditActionVerificationSucceeded  = "verification_succeeded"
	AuditActionVerificationFailed     = "verification_failed"
	AuditActionAdminLoginSuccess      = "admin_login_success"
	AuditActionAdminLoginFailed       = "admin_login_failed"
	AuditActionSourceNumberCreated    = "source_number_created"
	AuditActionSourceNumberUpdated    = "source_number_updated"
	AuditActionSessionsExpiredByAdmin = "sessions_expired_by_admin"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AdminID       *uint
	SessionID     *uuid.UUID
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	switch a.Action {
	case AuditActionVerificationFailed, AuditActionAdminLoginFailed, AuditActionSessionsExpiredByAdmin:
		return true
	}
	return false
}
