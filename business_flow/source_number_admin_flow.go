package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const defaultSessionsPageSize = 20

// AdminSourceNumberFlow handles operator actions on the source pool and sessions
type AdminSourceNumberFlow interface {
	Create(ctx context.Context, req *dto.AdminCreateSourceNumberRequest, metadata *ClientMetadata) (*dto.AdminSourceNumberDTO, error)
	ListAll(ctx context.Context, metadata *ClientMetadata) ([]*dto.AdminSourceNumberDTO, error)
	UpdateBatch(ctx context.Context, req *dto.AdminUpdateSourceNumbersRequest, metadata *ClientMetadata) error
	GetReport(ctx context.Context, metadata *ClientMetadata) ([]*dto.AdminSourceNumberReportItem, error)
	ExportReport(ctx context.Context, metadata *ClientMetadata) (string, []byte, error)
	ListSessions(ctx context.Context, req *dto.AdminListSessionsRequest, metadata *ClientMetadata) (*dto.AdminListSessionsResponse, error)
	ExpireSessions(ctx context.Context, req *dto.AdminExpireSessionsRequest, metadata *ClientMetadata) (*dto.AdminExpireSessionsResponse, error)
}

type AdminSourceNumberFlowImpl struct {
	sourceRepo  repository.SourceNumberRepository
	sessionRepo repository.VerificationSessionRepository
	auditRepo   repository.AuditLogRepository
	clock       clock.Clock
	maxAttempts int
}

func NewAdminSourceNumberFlow(
	sourceRepo repository.SourceNumberRepository,
	sessionRepo repository.VerificationSessionRepository,
	auditRepo repository.AuditLogRepository,
	clk clock.Clock,
	maxAttempts int,
) AdminSourceNumberFlow {
	if clk == nil {
		clk = clock.New()
	}
	if maxAttempts <= 0 {
		maxAttempts = utils.DefaultMaxAttempts
	}
	return &AdminSourceNumberFlowImpl{
		sourceRepo:  sourceRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		clock:       clk,
		maxAttempts: maxAttempts,
	}
}

func (f *AdminSourceNumberFlowImpl) Create(ctx context.Context, req *dto.AdminCreateSourceNumberRequest, metadata *ClientMetadata) (*dto.AdminSourceNumberDTO, error) {
	// Validate
	if req == nil || strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, NewBusinessError("SOURCE_NUMBER_REQUIRED", "Source number is required", ErrSourceNumberRequired)
	}
	phone, err := NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Source number must be in E.164 format", err)
	}
	label := strings.TrimSpace(req.Label)
	if len(label) > 100 {
		label = label[:100]
	}

	// Uniqueness check
	existing, err := f.sourceRepo.ByPhoneNumber(ctx, phone)
	if err != nil {
		return nil, NewBusinessError("SOURCE_NUMBER_LOOKUP_FAILED", "Failed to lookup source number", err)
	}
	if existing != nil {
		return nil, NewBusinessError("SOURCE_NUMBER_EXISTS", "Source number already exists", ErrSourceNumberAlreadyExists)
	}

	isActive := req.IsActive
	if isActive == nil {
		isActive = utils.ToPtr(true)
	}
	source := models.SourceNumber{
		UUID:        uuid.New(),
		PhoneNumber: phone,
		Label:       label,
		IsActive:    isActive,
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}
	if err := f.sourceRepo.Save(ctx, &source); err != nil {
		return nil, NewBusinessError("SOURCE_NUMBER_CREATE_FAILED", "Failed to create source number", err)
	}

	f.audit(ctx, models.AuditActionSourceNumberCreated, fmt.Sprintf("Source number %d created", source.ID),
		map[string]any{"source_number_id": source.ID, "phone_number": source.PhoneNumber}, metadata)

	resp := ToSourceNumberDTO(source, 0)
	return &resp, nil
}

func (f *AdminSourceNumberFlowImpl) ListAll(ctx context.Context, metadata *ClientMetadata) ([]*dto.AdminSourceNumberDTO, error) {
	sources, usage, err := f.sourcesWithUsage(ctx)
	if err != nil {
		return nil, NewBusinessError("SOURCE_NUMBER_LIST_FAILED", "Failed to list source numbers", err)
	}
	result := make([]*dto.AdminSourceNumberDTO, 0, len(sources))
	for _, s := range sources {
		item := ToSourceNumberDTO(*s, usage[s.ID].Total)
		result = append(result, &item)
	}
	return result, nil
}

func (f *AdminSourceNumberFlowImpl) sourcesWithUsage(ctx context.Context) ([]*models.SourceNumber, map[uint]models.SourceNumberUsage, error) {
	sources, err := f.sourceRepo.ByFilter(ctx, models.SourceNumberFilter{}, "id DESC", 0, 0)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	usage, err := f.sessionRepo.CountBySourceNumber(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return sources, usage, nil
}

func (f *AdminSourceNumberFlowImpl) UpdateBatch(ctx context.Context, req *dto.AdminUpdateSourceNumbersRequest, metadata *ClientMetadata) error {
	if req == nil || len(req.Items) == 0 {
		return nil
	}
	updates := make([]*models.SourceNumberUpdate, 0, len(req.Items))
	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ID == 0 {
			return NewBusinessError("SOURCE_NUMBER_UPDATE_VALIDATION_FAILED", "Source number ID is required", ErrSourceNumberRequired)
		}
		update := &models.SourceNumberUpdate{ID: item.ID, IsActive: item.IsActive}
		if item.Label != nil {
			update.Label = utils.ToPtr(strings.TrimSpace(*item.Label))
		}
		updates = append(updates, update)
		ids = append(ids, item.ID)
	}
	if err := f.sourceRepo.UpdateBatch(ctx, updates); err != nil {
		if errors.Is(err, repository.ErrSourceNumberNotFound) {
			return NewBusinessError("SOURCE_NUMBER_NOT_FOUND", "Source number not found", ErrSourceNumberNotFound)
		}
		return NewBusinessError("SOURCE_NUMBER_BATCH_UPDATE_FAILED", "Failed to update source numbers", err)
	}

	f.audit(ctx, models.AuditActionSourceNumberUpdated, fmt.Sprintf("%d source numbers updated", len(ids)),
		map[string]any{"source_number_ids": ids}, metadata)
	return nil
}

func (f *AdminSourceNumberFlowImpl) GetReport(ctx context.Context, metadata *ClientMetadata) ([]*dto.AdminSourceNumberReportItem, error) {
	sources, usage, err := f.sourcesWithUsage(ctx)
	if err != nil {
		return nil, NewBusinessError("SOURCE_NUMBER_REPORT_FAILED", "Failed to build source number report", err)
	}
	report := make([]*dto.AdminSourceNumberReportItem, 0, len(sources))
	for _, s := range sources {
		u := usage[s.ID]
		report = append(report, &dto.AdminSourceNumberReportItem{
			PhoneNumber:   s.PhoneNumber,
			Label:         s.Label,
			IsActive:      utils.IsTrue(s.IsActive),
			TotalSessions: u.Total,
			Verified:      u.Verified,
			Pending:       u.Pending,
		})
	}
	return report, nil
}

// ExportReport renders GetReport as a single-sheet xlsx workbook
func (f *AdminSourceNumberFlowImpl) ExportReport(ctx context.Context, metadata *ClientMetadata) (string, []byte, error) {
	report, err := f.GetReport(ctx, metadata)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "source_numbers"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"phone_number", "label", "is_active", "total_sessions", "verified", "pending"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	for i, item := range report {
		record := []any{
			item.PhoneNumber,
			item.Label,
			strconv.FormatBool(item.IsActive),
			item.TotalSessions,
			item.Verified,
			item.Pending,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("source_numbers_report_%s.xlsx", f.clock.Now().UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}

func (f *AdminSourceNumberFlowImpl) ListSessions(ctx context.Context, req *dto.AdminListSessionsRequest, metadata *ClientMetadata) (*dto.AdminListSessionsResponse, error) {
	page, pageSize := 1, defaultSessionsPageSize
	filter := models.VerificationSessionFilter{}
	if req != nil {
		if req.Page < 0 {
			return nil, NewBusinessError("INVALID_PAGE", "Invalid page", ErrInvalidPage)
		}
		if req.Page > 0 {
			page = req.Page
		}
		if req.PageSize < 0 || req.PageSize > 100 {
			return nil, NewBusinessError("INVALID_PAGE_SIZE", "Invalid page size", ErrInvalidPageSize)
		}
		if req.PageSize > 0 {
			pageSize = req.PageSize
		}
		if strings.TrimSpace(req.Phone) != "" {
			phone, err := NormalizePhoneNumber(req.Phone)
			if err != nil {
				return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid phone number format", err)
			}
			filter.UserPhone = &phone
		}
	}

	total, err := f.sessionRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SESSION_LIST_FAILED", "Failed to list verification sessions", err)
	}
	sessions, err := f.sessionRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SESSION_LIST_FAILED", "Failed to list verification sessions", err)
	}

	now := f.clock.Now().UTC()
	items := make([]dto.AdminVerificationSessionDTO, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, ToVerificationSessionDTO(*s, now, f.maxAttempts))
	}
	return &dto.AdminListSessionsResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ExpireSessions moves expires_at to now for the given sessions that are still open
func (f *AdminSourceNumberFlowImpl) ExpireSessions(ctx context.Context, req *dto.AdminExpireSessionsRequest, metadata *ClientMetadata) (*dto.AdminExpireSessionsResponse, error) {
	if req == nil || len(req.SessionIDs) == 0 {
		return &dto.AdminExpireSessionsResponse{}, nil
	}
	ids := make([]uuid.UUID, 0, len(req.SessionIDs))
	for _, raw := range req.SessionIDs {
		id, err := utils.ParseUUID(raw)
		if err != nil {
			return nil, NewBusinessError("SESSION_NOT_FOUND", "Invalid session id", ErrSessionNotFound)
		}
		ids = append(ids, id)
	}

	expired, err := f.sessionRepo.ExpireByIDs(ctx, ids, f.clock.Now().UTC())
	if err != nil {
		return nil, NewBusinessError("SESSION_EXPIRE_FAILED", "Failed to expire sessions", err)
	}

	f.audit(ctx, models.AuditActionSessionsExpiredByAdmin, fmt.Sprintf("%d of %d sessions marked as expired", expired, len(ids)),
		map[string]any{"session_ids": req.SessionIDs}, metadata)

	return &dto.AdminExpireSessionsResponse{Expired: expired}, nil
}

func (f *AdminSourceNumberFlowImpl) audit(ctx context.Context, action, description string, data map[string]any, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}
	meta, _ := json.Marshal(data)
	entry := &models.AuditLog{
		AdminID:     metadata.adminID(),
		Action:      action,
		Description: &description,
		IPAddress:   metadata.ipPtr(),
		UserAgent:   metadata.userAgentPtr(),
		RequestID:   metadata.requestIDPtr(),
		Metadata:    meta,
		Success:     utils.ToPtr(true),
		CreatedAt:   utils.UTCNow(),
	}
	// audit failures never fail the operator action
	_ = f.auditRepo.Save(context.WithoutCancel(ctx), entry)
}
