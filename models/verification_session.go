package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationSession tracks one flash call from trigger to confirmation or expiry.
// SourceNumberID is immutable once created.
type VerificationSession struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserPhone      string       `gorm:"size:32;not null;index:idx_verification_sessions_phone_verified,priority:1" json:"user_phone"`
	AppSignature   string       `gorm:"size:255;not null;index:idx_verification_sessions_app_signature" json:"-"`
	SourceNumberID uint         `gorm:"not null;index:idx_verification_sessions_source_number_id" json:"source_number_id"`
	SourceNumber   SourceNumber `gorm:"foreignKey:SourceNumberID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`

	IsVerified bool       `gorm:"not null;default:false;index:idx_verification_sessions_phone_verified,priority:2" json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	IPAddress    *string `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent    *string `gorm:"type:text" json:"user_agent,omitempty"`
	AttemptCount int     `gorm:"not null;default:0" json:"attempt_count"`

	CreatedAt time.Time `gorm:"not null;index:idx_verification_sessions_created_at" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_verification_sessions_expires_at" json:"expires_at"`
}

func (VerificationSession) TableName() string {
	return "verification_sessions"
}

// SessionState is the derived lifecycle state of a session
type SessionState string

const (
	SessionStatePending           SessionState = "pending"
	SessionStateVerified          SessionState = "verified"
	SessionStateExpired           SessionState = "expired"
	SessionStateAttemptsExhausted SessionState = "attempts_exhausted"
)

// VerificationSessionFilter represents filter criteria for session queries
type VerificationSessionFilter struct {
	ID             *uuid.UUID
	IDs            []uuid.UUID
	UserPhone      *string
	SourceNumberID *uint
	IsVerified     *bool
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	ExpiresAfter   *time.Time
	ExpiresBefore  *time.Time
}

func (s *VerificationSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *VerificationSession) AttemptsExhausted(maxAttempts int) bool {
	return s.AttemptCount >= maxAttempts
}

// IsValid reports whether the session can still be confirmed
func (s *VerificationSession) IsValid(now time.Time, maxAttempts int) bool {
	return !s.IsVerified && !s.IsExpired(now) && !s.AttemptsExhausted(maxAttempts)
}

// State resolves the derived state; verified wins over expiry
func (s *VerificationSession) State(now time.Time, maxAttempts int) SessionState {
	switch {
	case s.IsVerified:
		return SessionStateVerified
	case s.IsExpired(now):
		return SessionStateExpired
	case s.AttemptsExhausted(maxAttempts):
		return SessionStateAttemptsExhausted
	default:
		return SessionStatePending
	}
}

// TimeRemaining returns the seconds left before expiry, zero once expired
func (s *VerificationSession) TimeRemaining(now time.Time) time.Duration {
	if s.IsExpired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
