// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

var (
	// ErrSessionNotPending is returned when a conditional session update matched no pending row
	ErrSessionNotPending = errors.New("verification session is not pending")
	// ErrSessionAlreadyVerified is returned by MarkVerified when another request verified first
	ErrSessionAlreadyVerified = errors.New("verification session already verified")
	// ErrSourceNumberNotFound is returned by updates addressing an unknown source number id
	ErrSourceNumberNotFound = errors.New("source number not found")
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// Transactor runs fn inside one database transaction bound to the returned context
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SourceNumberRepository defines operations for the source number pool
type SourceNumberRepository interface {
	Repository[models.SourceNumber, models.SourceNumberFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SourceNumber, error)
	ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.SourceNumber, error)
	CountActive(ctx context.Context, exclude *string) (int64, error)
	ActiveAt(ctx context.Context, exclude *string, offset int64) (*models.SourceNumber, error)
	Update(ctx context.Context, source *models.SourceNumberUpdate) error
	UpdateBatch(ctx context.Context, sources []*models.SourceNumberUpdate) error
}

// VerificationSessionRepository defines operations for verification sessions.
// All state transitions are single conditional updates so concurrent requests cannot
// double-verify or lose attempt increments.
type VerificationSessionRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.VerificationSession, error)
	ByFilter(ctx context.Context, filter models.VerificationSessionFilter, orderBy string, limit, offset int) ([]*models.VerificationSession, error)
	Save(ctx context.Context, session *models.VerificationSession) error
	Count(ctx context.Context, filter models.VerificationSessionFilter) (int64, error)
	Exists(ctx context.Context, filter models.VerificationSessionFilter) (bool, error)

	FindLatestPending(ctx context.Context, userPhone string) (*models.VerificationSession, error)
	LastSenderForPhone(ctx context.Context, userPhone string) (*string, error)
	IncrementAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (*models.VerificationSession, error)
	MarkVerified(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int) (*models.VerificationSession, error)
	ExpireByIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
	CountBySourceNumber(ctx context.Context, sourceNumberIDs []uint) (map[uint]models.SourceNumberUsage, error)
}

// AdminRepository defines operations for admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
