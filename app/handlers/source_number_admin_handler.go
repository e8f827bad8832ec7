package handlers

import (
	"log"

	"github.com/amirphl/flashcall-auth/app/dto"
	businessflow "github.com/amirphl/flashcall-auth/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SourceNumberAdminHandlerInterface defines handler methods for operator pool management
type SourceNumberAdminHandlerInterface interface {
	CreateSourceNumber(c fiber.Ctx) error
	ListSourceNumbers(c fiber.Ctx) error
	UpdateSourceNumbersBatch(c fiber.Ctx) error
	GetSourceNumbersReport(c fiber.Ctx) error
	ExportSourceNumbersReport(c fiber.Ctx) error
	ListSessions(c fiber.Ctx) error
	ExpireSessions(c fiber.Ctx) error
}

// SourceNumberAdminHandler implements admin source number endpoints
type SourceNumberAdminHandler struct {
	flow      businessflow.AdminSourceNumberFlow
	validator *validator.Validate
}

func NewSourceNumberAdminHandler(flow businessflow.AdminSourceNumberFlow) SourceNumberAdminHandlerInterface {
	return &SourceNumberAdminHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

// CreateSourceNumber adds a number to the pool (admin only)
// @Summary Create Source Number (Admin)
// @Description Add an E.164 number to the flash-call source pool; numbers are unique
// @Tags Admin Source Numbers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreateSourceNumberRequest true "Create source number payload"
// @Success 201 {object} dto.APIResponse{data=dto.AdminSourceNumberDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Number already exists"
// @Failure 500 {object} dto.APIResponse "Creation failed"
// @Router /api/v1/admin/source-numbers [post]
func (h *SourceNumberAdminHandler) CreateSourceNumber(c fiber.Ctx) error {
	var req dto.AdminCreateSourceNumberRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/source-numbers")
	defer cancel()

	res, err := h.flow.Create(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsSourceNumberRequired(err), businessflow.IsInvalidPhoneFormat(err):
			return errorResponse(c, fiber.StatusBadRequest, "A valid phone number is required", "SOURCE_NUMBER_INVALID", nil)
		case businessflow.IsSourceNumberAlreadyExists(err):
			return errorResponse(c, fiber.StatusConflict, "Source number already exists", "SOURCE_NUMBER_ALREADY_EXISTS", nil)
		}
		log.Println("Create source number failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Create source number failed", "SOURCE_NUMBER_CREATE_FAILED", nil)
	}
	return successResponse(c, fiber.StatusCreated, "Source number created", res)
}

// ListSourceNumbers returns the whole pool with per-number verification counts (admin)
// @Summary List Source Numbers (Admin)
// @Tags Admin Source Numbers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.AdminSourceNumberDTO}
// @Failure 500 {object} dto.APIResponse "List failed"
// @Router /api/v1/admin/source-numbers [get]
func (h *SourceNumberAdminHandler) ListSourceNumbers(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/source-numbers")
	defer cancel()

	res, err := h.flow.ListAll(ctx, clientMetadata(c))
	if err != nil {
		log.Println("List source numbers failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "List source numbers failed", "SOURCE_NUMBER_LIST_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Source numbers retrieved", res)
}

// UpdateSourceNumbersBatch changes label or active flag of several numbers at once (admin)
// @Summary Batch Update Source Numbers (Admin)
// @Description Update label and is_active; all IDs must exist
// @Tags Admin Source Numbers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminUpdateSourceNumbersRequest true "Batch update payload"
// @Success 200 {object} dto.APIResponse{data=object{updated=bool}}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Unknown source number"
// @Failure 500 {object} dto.APIResponse "Update failed"
// @Router /api/v1/admin/source-numbers [put]
func (h *SourceNumberAdminHandler) UpdateSourceNumbersBatch(c fiber.Ctx) error {
	var req dto.AdminUpdateSourceNumbersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/source-numbers")
	defer cancel()

	if err := h.flow.UpdateBatch(ctx, &req, clientMetadata(c)); err != nil {
		if businessflow.IsSourceNumberNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Source number not found", "SOURCE_NUMBER_NOT_FOUND", nil)
		}
		log.Println("Batch update source numbers failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Batch update failed", "SOURCE_NUMBER_BATCH_UPDATE_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Source numbers updated", fiber.Map{"updated": true})
}

// GetSourceNumbersReport returns total, verified and pending sessions per number (admin)
// @Summary Source Numbers Report (Admin)
// @Tags Admin Source Numbers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.AdminSourceNumberReportItem}
// @Failure 500 {object} dto.APIResponse "Report generation failed"
// @Router /api/v1/admin/source-numbers/report [get]
func (h *SourceNumberAdminHandler) GetSourceNumbersReport(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/source-numbers/report")
	defer cancel()

	items, err := h.flow.GetReport(ctx, clientMetadata(c))
	if err != nil {
		log.Println("Source numbers report failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Report generation failed", "SOURCE_NUMBER_REPORT_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Source numbers report", items)
}

// ExportSourceNumbersReport streams the usage report as an xlsx workbook (admin)
// @Summary Export Source Numbers Report (Admin)
// @Tags Admin Source Numbers
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 500 {object} dto.APIResponse "Export failed"
// @Router /api/v1/admin/source-numbers/report/export [get]
func (h *SourceNumberAdminHandler) ExportSourceNumbersReport(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/source-numbers/report/export")
	defer cancel()

	filename, content, err := h.flow.ExportReport(ctx, clientMetadata(c))
	if err != nil {
		log.Println("Source numbers export failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Export failed", "SOURCE_NUMBER_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}

// ListSessions pages through verification sessions, newest first (admin)
// @Summary List Verification Sessions (Admin)
// @Tags Admin Source Numbers
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param phone query string false "Filter by user phone"
// @Success 200 {object} dto.APIResponse{data=dto.AdminListSessionsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Failure 500 {object} dto.APIResponse "List failed"
// @Router /api/v1/admin/sessions [get]
func (h *SourceNumberAdminHandler) ListSessions(c fiber.Ctx) error {
	var req dto.AdminListSessionsRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/sessions")
	defer cancel()

	res, err := h.flow.ListSessions(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidPhoneFormat(err) || businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return errorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_FILTER", nil)
		}
		log.Println("List verification sessions failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "List sessions failed", "SESSION_LIST_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Verification sessions retrieved", res)
}

// ExpireSessions marks the given sessions as expired (admin)
// @Summary Expire Verification Sessions (Admin)
// @Tags Admin Source Numbers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminExpireSessionsRequest true "Session IDs"
// @Success 200 {object} dto.APIResponse{data=dto.AdminExpireSessionsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Expire failed"
// @Router /api/v1/admin/sessions/expire [post]
func (h *SourceNumberAdminHandler) ExpireSessions(c fiber.Ctx) error {
	var req dto.AdminExpireSessionsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/sessions/expire")
	defer cancel()

	res, err := h.flow.ExpireSessions(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid session id", "SESSION_NOT_FOUND", nil)
		}
		log.Println("Expire verification sessions failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Expire sessions failed", "SESSION_EXPIRE_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Verification sessions expired", res)
}
