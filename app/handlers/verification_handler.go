package handlers

import (
	"log"

	"github.com/amirphl/flashcall-auth/app/dto"
	businessflow "github.com/amirphl/flashcall-auth/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// VerifiedSessionLocalsKey is where the session-token middleware stores the authenticated session
const VerifiedSessionLocalsKey = "verified_session"

// VerificationHandlerInterface defines the public flash-call endpoints
type VerificationHandlerInterface interface {
	RequestVerification(c fiber.Ctx) error
	ConfirmVerification(c fiber.Ctx) error
	GetStatus(c fiber.Ctx) error
	GetSession(c fiber.Ctx) error
}

// VerificationHandler implements VerificationHandlerInterface
type VerificationHandler struct {
	flow      businessflow.VerificationFlow
	validator *validator.Validate
}

func NewVerificationHandler(flow businessflow.VerificationFlow) VerificationHandlerInterface {
	return &VerificationHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

// RequestVerification places a flash call to the given number
// @Summary Request flash-call verification
// @Description Selects a source number and places a missed call to phone_number. The caller ID of that call is the verification code.
// @Tags Missed Call
// @Accept json
// @Produce json
// @Param request body dto.RequestVerificationRequest true "Phone number and app signature"
// @Success 202 {object} dto.APIResponse{data=dto.RequestVerificationResponse} "Call placed"
// @Failure 400 {object} dto.APIResponse "Invalid phone number"
// @Failure 403 {object} dto.APIResponse "Unauthorized app signature"
// @Failure 503 {object} dto.APIResponse "Verification service unavailable"
// @Router /api/v1/missed-call/request [post]
func (h *VerificationHandler) RequestVerification(c fiber.Ctx) error {
	var req dto.RequestVerificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/missed-call/request")
	defer cancel()

	result, err := h.flow.RequestVerification(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsInvalidPhoneFormat(err):
			return errorResponse(c, fiber.StatusBadRequest, "Invalid phone number format", "INVALID_PHONE_FORMAT", nil)
		case businessflow.IsUnauthorizedSignature(err):
			return errorResponse(c, fiber.StatusForbidden, "Request not authorized", "UNAUTHORIZED", nil)
		case businessflow.IsPoolExhausted(err), businessflow.IsTelephony(err):
			return errorResponse(c, fiber.StatusServiceUnavailable, "Verification service temporarily unavailable", "SERVICE_UNAVAILABLE", nil)
		}
		log.Println("Request verification failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Verification request failed", "VERIFICATION_REQUEST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusAccepted, "Verification call placed", result)
}

// ConfirmVerification checks the caller ID observed on the device
// @Summary Confirm flash-call verification
// @Description Compares the caller ID the device received with the number that called it. Every failure is reported identically.
// @Tags Missed Call
// @Accept json
// @Produce json
// @Param request body dto.ConfirmVerificationRequest true "Phone number and received caller ID"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmVerificationResponse} "Phone verified"
// @Failure 400 {object} dto.APIResponse "Verification failed"
// @Router /api/v1/missed-call/verify [post]
func (h *VerificationHandler) ConfirmVerification(c fiber.Ctx) error {
	var req dto.ConfirmVerificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/missed-call/verify")
	defer cancel()

	result, err := h.flow.ConfirmVerification(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidPhoneFormat(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid phone number format", "INVALID_PHONE_FORMAT", nil)
		}
		if businessflow.IsVerificationFailed(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Verification failed", "VERIFICATION_FAILED", nil)
		}
		log.Println("Confirm verification failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Verification could not be completed", "VERIFICATION_ERROR", nil)
	}

	return successResponse(c, fiber.StatusOK, "Phone number verified", result)
}

// GetStatus reports a session's progress
// @Summary Verification session status
// @Description Returns whether the session is verified or expired and how many seconds remain
// @Tags Missed Call
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.VerificationStatusResponse}
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Router /api/v1/missed-call/status/{session_id} [get]
func (h *VerificationHandler) GetStatus(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/missed-call/status")
	defer cancel()

	result, err := h.flow.GetStatus(ctx, c.Params("session_id"))
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Verification session not found", "SESSION_NOT_FOUND", nil)
		}
		log.Println("Get verification status failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get verification status", "STATUS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Verification status retrieved", result)
}

// GetSession returns the verified phone bound to the X-Session-Token header
// @Summary Verified session
// @Description Returns the phone number proven by a verified, unexpired session
// @Tags Missed Call
// @Produce json
// @Param X-Session-Token header string true "Verified session ID"
// @Success 200 {object} dto.APIResponse{data=dto.VerifiedSessionResponse}
// @Failure 401 {object} dto.APIResponse "Missing or invalid session token"
// @Router /api/v1/missed-call/session [get]
func (h *VerificationHandler) GetSession(c fiber.Ctx) error {
	session, ok := c.Locals(VerifiedSessionLocalsKey).(*dto.VerifiedSessionResponse)
	if !ok || session == nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Session token required", "SESSION_TOKEN_REQUIRED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Session is verified", session)
}
