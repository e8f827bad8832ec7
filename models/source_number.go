// Package models contains domain entities and business models for the flash-call verification service
package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceNumber is an outbound line in the flash-call rotation pool.
// Table: call_source_numbers
// Unique by PhoneNumber (E.164)
// Rows referenced by sessions cannot be deleted; deactivate them instead
type SourceNumber struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_call_source_numbers_uuid" json:"uuid"`

	PhoneNumber string `gorm:"size:32;not null;uniqueIndex:uk_call_source_numbers_phone" json:"phone_number"`
	Label       string `gorm:"size:100;not null;default:''" json:"label"`

	IsActive  *bool     `gorm:"default:true;index:idx_call_source_numbers_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_call_source_numbers_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (SourceNumber) TableName() string {
	return "call_source_numbers"
}

// SourceNumberFilter represents filter criteria for source number queries
type SourceNumberFilter struct {
	ID                 *uint
	UUID               *uuid.UUID
	PhoneNumber        *string
	ExcludePhoneNumber *string
	Label              *string
	IsActive           *bool
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
}

// SourceNumberUpdate carries the mutable fields of a source number; nil fields are left untouched.
// An empty Label clears it.
type SourceNumberUpdate struct {
	ID       uint
	Label    *string
	IsActive *bool
}

// SourceNumberUsage aggregates session counts per source number
type SourceNumberUsage struct {
	SourceNumberID uint  `json:"source_number_id"`
	Total          int64 `json:"total"`
	Verified       int64 `json:"verified"`
	Pending        int64 `json:"pending"`
}
