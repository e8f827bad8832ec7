package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/app/services"
	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthFlow represents the admin authentication flow used by handlers
type AdminAuthFlow interface {
	InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error)
	Verify(ctx context.Context, req *dto.AdminCaptchaVerifyRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	Refresh(ctx context.Context, req *dto.AdminRefreshRequest) (*dto.AdminLoginResponse, error)
}

// AdminAuthFlowImpl provides captcha-init and admin credential verification
type AdminAuthFlowImpl struct {
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	captchaSvc   services.CaptchaService
}

func NewAdminAuthFlow(adminRepo repository.AdminRepository, auditRepo repository.AuditLogRepository, tokenService services.TokenService, captchaSvc services.CaptchaService) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		captchaSvc:   captchaSvc,
	}
}

func (af *AdminAuthFlowImpl) InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error) {
	if af.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_NOT_AVAILABLE", "Captcha service not available", ErrCacheNotAvailable)
	}
	ch, err := af.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.AdminCaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

func (af *AdminAuthFlowImpl) Verify(ctx context.Context, req *dto.AdminCaptchaVerifyRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	// Validate request
	if req == nil {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrAdminNotFound)
	}
	if len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrIncorrectPassword)
	}
	if len(req.ChallengeID) == 0 {
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha challenge missing", ErrInvalidCaptcha)
	}

	// Verify captcha first
	if af.captchaSvc == nil || !af.captchaSvc.VerifyRotate(ctx, req.ChallengeID, req.UserAngle) {
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrInvalidCaptcha)
	}

	// Lookup admin
	admin, err := af.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		af.logLoginAttempt(ctx, nil, req.Username, false, ErrAdminNotFound, metadata)
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !admin.Active() {
		af.logLoginAttempt(ctx, &admin.ID, req.Username, false, ErrAdminInactive, metadata)
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAdminInactive)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.logLoginAttempt(ctx, &admin.ID, req.Username, false, ErrIncorrectPassword, metadata)
		return nil, NewBusinessError("ADMIN_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	// Generate admin tokens
	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, utils.UTCNow()); err != nil {
		log.Printf("admin login: failed to update last login for admin %d: %v", admin.ID, err)
	}
	af.logLoginAttempt(ctx, &admin.ID, req.Username, true, nil, metadata)

	resp := &dto.AdminLoginResponse{
		Admin:   ToAdminDTOModel(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken, af.tokenService.AccessTokenTTL()),
	}
	return resp, nil
}

// Refresh rotates the token pair. The admin is reloaded so a deactivated account cannot keep refreshing.
func (af *AdminAuthFlowImpl) Refresh(ctx context.Context, req *dto.AdminRefreshRequest) (*dto.AdminLoginResponse, error) {
	if req == nil || req.RefreshToken == "" {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Refresh token missing", ErrInvalidRefresh)
	}

	claims, err := af.tokenService.ValidateAdminToken(req.RefreshToken)
	if err != nil || claims.TokenType != services.TokenTypeRefresh {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid refresh token", ErrInvalidRefresh)
	}

	admin, err := af.adminRepo.ByID(ctx, claims.AdminID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !admin.Active() {
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAdminInactive)
	}

	accessToken, refreshToken, err := af.tokenService.RefreshAdminToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid refresh token", fmt.Errorf("%w: %v", ErrInvalidRefresh, err))
	}

	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTOModel(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken, af.tokenService.AccessTokenTTL()),
	}, nil
}

func (af *AdminAuthFlowImpl) logLoginAttempt(ctx context.Context, adminID *uint, username string, success bool, cause error, metadata *ClientMetadata) {
	if af.auditRepo == nil {
		return
	}
	action := models.AuditActionAdminLoginSuccess
	desc := fmt.Sprintf("Admin %s logged in", username)
	if !success {
		action = models.AuditActionAdminLoginFailed
		desc = fmt.Sprintf("Admin login failed for %s", username)
	}
	meta, _ := json.Marshal(map[string]any{"username": username})

	entry := &models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		Description: &desc,
		IPAddress:   metadata.ipPtr(),
		UserAgent:   metadata.userAgentPtr(),
		RequestID:   metadata.requestIDPtr(),
		Metadata:    meta,
		Success:     &success,
		CreatedAt:   utils.UTCNow(),
	}
	if cause != nil {
		entry.ErrorMessage = utils.ToPtr(cause.Error())
	}
	if err := af.auditRepo.Save(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("admin login: failed to write audit log: %v", err)
	}
}
