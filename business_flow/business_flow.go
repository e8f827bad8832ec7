// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/utils"
)

// ClientMetadata holds client information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	AdminID   *uint  `json:"admin_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetAdminID records the authenticated operator
func (cm *ClientMetadata) SetAdminID(adminID uint) {
	cm.AdminID = &adminID
}

func (cm *ClientMetadata) ipPtr() *string {
	if cm == nil || cm.IPAddress == "" {
		return nil
	}
	return utils.ToPtr(cm.IPAddress)
}

func (cm *ClientMetadata) userAgentPtr() *string {
	if cm == nil || cm.UserAgent == "" {
		return nil
	}
	return utils.ToPtr(cm.UserAgent)
}

func (cm *ClientMetadata) requestIDPtr() *string {
	if cm == nil || cm.RequestID == "" {
		return nil
	}
	return utils.ToPtr(cm.RequestID)
}

func (cm *ClientMetadata) adminID() *uint {
	if cm == nil {
		return nil
	}
	return cm.AdminID
}

func ToAdminDTOModel(admin models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		ID:        admin.ID,
		UUID:      admin.UUID.String(),
		Username:  admin.Username,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt.Format(time.RFC3339),
	}
}

func ToAdminSessionDTO(accessToken, refreshToken string, expiresIn time.Duration) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(expiresIn.Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    utils.UTCNowRFC3339(),
	}
}

func ToSourceNumberDTO(source models.SourceNumber, verificationCount int64) dto.AdminSourceNumberDTO {
	return dto.AdminSourceNumberDTO{
		ID:                source.ID,
		UUID:              source.UUID.String(),
		PhoneNumber:       source.PhoneNumber,
		Label:             source.Label,
		IsActive:          source.IsActive,
		VerificationCount: verificationCount,
		CreatedAt:         source.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         source.UpdatedAt.Format(time.RFC3339),
	}
}

// ToVerificationSessionDTO renders a session for operators with the user phone masked
func ToVerificationSessionDTO(session models.VerificationSession, now time.Time, maxAttempts int) dto.AdminVerificationSessionDTO {
	item := dto.AdminVerificationSessionDTO{
		ID:            session.ID.String(),
		UserPhone:     MaskPhoneNumber(session.UserPhone),
		SourceNumber:  session.SourceNumber.PhoneNumber,
		State:         string(session.State(now, maxAttempts)),
		AttemptCount:  session.AttemptCount,
		TimeRemaining: utils.FormatMinutesSeconds(utils.SecondsUntil(now, session.ExpiresAt)),
		CreatedAt:     session.CreatedAt.Format(time.RFC3339),
		ExpiresAt:     session.ExpiresAt.Format(time.RFC3339),
	}
	if session.VerifiedAt != nil {
		item.VerifiedAt = session.VerifiedAt.Format(time.RFC3339)
	}
	return item
}
