package handlers

import (
	"log"

	"github.com/amirphl/flashcall-auth/app/dto"
	businessflow "github.com/amirphl/flashcall-auth/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AdminHandlerInterface defines the contract for admin auth handlers
type AdminHandlerInterface interface {
	InitCaptcha(c fiber.Ctx) error
	VerifyLogin(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
}

// AdminHandler implements AdminHandlerInterface
type AdminHandler struct {
	flow      businessflow.AdminAuthFlow
	validator *validator.Validate
}

func NewAdminHandler(flow businessflow.AdminAuthFlow) AdminHandlerInterface {
	return &AdminHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

// InitCaptcha starts the admin login by returning a rotate captcha challenge
// @Summary Admin captcha init
// @Description Initialize rotate captcha for admin login (returns base64 images and challenge ID)
// @Tags Admin Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AdminCaptchaInitResponse} "Captcha initialized"
// @Failure 500 {object} dto.APIResponse "Failed to initialize captcha"
// @Router /api/v1/admin/auth/captcha/init [post]
func (h *AdminHandler) InitCaptcha(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/auth/captcha/init")
	defer cancel()

	resp, err := h.flow.InitCaptcha(ctx)
	if err != nil {
		log.Println("Admin captcha init failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Admin captcha init failed", "ADMIN_CAPTCHA_INIT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Captcha initialized", resp)
}

// VerifyLogin completes admin login by verifying captcha and credentials
// @Summary Admin login
// @Description Verify captcha and authenticate admin with username/password
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminCaptchaVerifyRequest true "Admin login data"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request or captcha"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Admin inactive"
// @Router /api/v1/admin/auth/login [post]
func (h *AdminHandler) VerifyLogin(c fiber.Ctx) error {
	var req dto.AdminCaptchaVerifyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/auth/login")
	defer cancel()

	result, err := h.flow.Verify(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsInvalidCaptcha(err):
			return errorResponse(c, fiber.StatusBadRequest, "Invalid captcha", "INVALID_CAPTCHA", nil)
		case businessflow.IsAdminInactive(err):
			return errorResponse(c, fiber.StatusForbidden, "Admin inactive", "ADMIN_INACTIVE", nil)
		case businessflow.IsAdminNotFound(err), businessflow.IsIncorrectPassword(err):
			// Unknown usernames and wrong passwords look the same from outside
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS", nil)
		}
		log.Println("Admin login failed", err)
		return errorResponse(c, fiber.StatusUnauthorized, "Login failed", "LOGIN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Login successful", result)
}

// RefreshToken exchanges a refresh token for a new token pair
// @Summary Admin token refresh
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminRefreshRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Token refreshed"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Failure 403 {object} dto.APIResponse "Admin inactive"
// @Router /api/v1/admin/auth/refresh [post]
func (h *AdminHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.AdminRefreshRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/auth/refresh")
	defer cancel()

	result, err := h.flow.Refresh(ctx, &req)
	if err != nil {
		switch {
		case businessflow.IsAdminInactive(err):
			return errorResponse(c, fiber.StatusForbidden, "Admin inactive", "ADMIN_INACTIVE", nil)
		case businessflow.IsInvalidRefresh(err), businessflow.IsAdminNotFound(err):
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", "INVALID_REFRESH_TOKEN", nil)
		}
		log.Println("Admin token refresh failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Token refresh failed", "REFRESH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Token refreshed", result)
}
