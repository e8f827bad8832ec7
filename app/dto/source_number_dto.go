package dto

// AdminCreateSourceNumberRequest represents the payload to add a number to the pool
// Admin-only endpoint
type AdminCreateSourceNumberRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164" example:"+15559876543"`
	Label       string `json:"label" validate:"omitempty,max=100" example:"US east trunk"`
	IsActive    *bool  `json:"is_active,omitempty" validate:"omitempty"`
}

// AdminSourceNumberDTO represents a source number for responses
type AdminSourceNumberDTO struct {
	ID                uint   `json:"id"`
	UUID              string `json:"uuid"`
	PhoneNumber       string `json:"phone_number"`
	Label             string `json:"label"`
	IsActive          *bool  `json:"is_active"`
	VerificationCount int64  `json:"verification_count"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// AdminUpdateSourceNumberItem represents one update operation; the number itself is immutable.
// Omitted fields are left untouched and an empty label clears it.
type AdminUpdateSourceNumberItem struct {
	ID       uint   `json:"id" validate:"required"`
	Label    *string `json:"label,omitempty" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active,omitempty" validate:"omitempty"`
}

type AdminUpdateSourceNumbersRequest struct {
	Items []AdminUpdateSourceNumberItem `json:"items" validate:"required,min=1,dive"`
}

// AdminSourceNumberReportItem is the per-number usage row
type AdminSourceNumberReportItem struct {
	PhoneNumber   string `json:"phone_number"`
	Label         string `json:"label"`
	IsActive      bool   `json:"is_active"`
	TotalSessions int64  `json:"total_sessions"`
	Verified      int64  `json:"verified"`
	Pending       int64  `json:"pending"`
}

// AdminVerificationSessionDTO is a session row for the operator view; the phone is masked
type AdminVerificationSessionDTO struct {
	ID            string `json:"id"`
	UserPhone     string `json:"user_phone" example:"+1555***4567"`
	SourceNumber  string `json:"source_number"`
	State         string `json:"state" example:"pending"`
	AttemptCount  int    `json:"attempt_count"`
	TimeRemaining string `json:"time_remaining" example:"04:05"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
	VerifiedAt    string `json:"verified_at,omitempty"`
}

type AdminListSessionsRequest struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
	Phone    string `query:"phone" validate:"omitempty,max=32"`
}

type AdminListSessionsResponse struct {
	Items    []AdminVerificationSessionDTO `json:"items"`
	Total    int64                         `json:"total"`
	Page     int                           `json:"page"`
	PageSize int                           `json:"page_size"`
}

type AdminExpireSessionsRequest struct {
	SessionIDs []string `json:"session_ids" validate:"required,min=1,max=100,dive,uuid4"`
}

type AdminExpireSessionsResponse struct {
	Expired int64 `json:"expired"`
}
