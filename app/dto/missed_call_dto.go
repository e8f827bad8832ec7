package dto

// RequestVerificationRequest asks the server to place a flash call to PhoneNumber
type RequestVerificationRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required,min=10,max=32,phone_chars" example:"+15551234567"`
	AppSignature string `json:"app_signature" validate:"required,max=255" example:"FA+9qCX9VSu"`
}

// RequestVerificationResponse never reveals the source number
type RequestVerificationResponse struct {
	SessionID string `json:"session_id" example:"3f1c2a8e-2d3b-4c5e-9f6a-7b8c9d0e1f2a"`
	ExpiresAt string `json:"expires_at" example:"2024-01-15T10:35:00Z"`
}

// ConfirmVerificationRequest reports the caller ID the device observed
type ConfirmVerificationRequest struct {
	PhoneNumber      string `json:"phone_number" validate:"required,min=10,max=32,phone_chars" example:"+15551234567"`
	ReceivedCallerID string `json:"received_caller_id" validate:"required,min=10,max=32,phone_chars" example:"+15559876543"`
}

type ConfirmVerificationResponse struct {
	Verified    bool    `json:"verified" example:"true"`
	PhoneNumber string  `json:"phone_number" example:"+15551234567"`
	SessionID   string  `json:"session_id" example:"3f1c2a8e-2d3b-4c5e-9f6a-7b8c9d0e1f2a"`
	Token       *string `json:"token,omitempty"`
}

type VerificationStatusResponse struct {
	IsVerified           bool  `json:"is_verified" example:"false"`
	IsExpired            bool  `json:"is_expired" example:"false"`
	TimeRemainingSeconds int64 `json:"time_remaining_seconds" example:"245"`
}

// VerifiedSessionResponse is returned to holders of a valid session token
type VerifiedSessionResponse struct {
	PhoneNumber string `json:"phone_number" example:"+15551234567"`
	SessionID   string `json:"session_id"`
	VerifiedAt  string `json:"verified_at" example:"2024-01-15T10:31:02Z"`
	ExpiresAt   string `json:"expires_at" example:"2024-01-15T10:35:00Z"`
}
