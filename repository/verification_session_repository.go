package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationSessionRepositoryImpl implements VerificationSessionRepository interface
type VerificationSessionRepositoryImpl struct {
	*BaseRepository[models.VerificationSession, models.VerificationSessionFilter]
}

// NewVerificationSessionRepository creates a new verification session repository
func NewVerificationSessionRepository(db *gorm.DB) VerificationSessionRepository {
	return &VerificationSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VerificationSession, models.VerificationSessionFilter](db),
	}
}

// ByID retrieves a session with its source number
func (r *VerificationSessionRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.VerificationSession, error) {
	db := r.getDB(ctx)

	var session models.VerificationSession
	err := db.Preload("SourceNumber").Where("id = ?", id).Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find verification session %s: %w", id, err)
	}
	return &session, nil
}

// Save inserts a new session. A missing ID is filled with a random UUID.
func (r *VerificationSessionRepositoryImpl) Save(ctx context.Context, session *models.VerificationSession) error {
	if session == nil {
		return errors.New("verification session payload is nil")
	}
	if session.SourceNumberID == 0 {
		return errors.New("verification session requires a source number")
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		return fmt.Errorf("verification session expiry %s must be after creation %s",
			session.ExpiresAt.Format(time.RFC3339), session.CreatedAt.Format(time.RFC3339))
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.BaseRepository.Save(ctx, session)
}

// FindLatestPending returns the most recent unverified session for a phone, or nil
func (r *VerificationSessionRepositoryImpl) FindLatestPending(ctx context.Context, userPhone string) (*models.VerificationSession, error) {
	db := r.getDB(ctx)

	var session models.VerificationSession
	err := db.Preload("SourceNumber").
		Where("user_phone = ? AND is_verified = ?", userPhone, false).
		Order("created_at DESC").
		Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending verification session: %w", err)
	}
	return &session, nil
}

// LastSenderForPhone returns the source number used by the latest session for a phone
func (r *VerificationSessionRepositoryImpl) LastSenderForPhone(ctx context.Context, userPhone string) (*string, error) {
	db := r.getDB(ctx)

	var senders []string
	err := db.Table("verification_sessions AS s").
		Joins("JOIN call_source_numbers AS n ON n.id = s.source_number_id").
		Where("s.user_phone = ?", userPhone).
		Order("s.created_at DESC").
		Limit(1).
		Pluck("n.phone_number", &senders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find last sender: %w", err)
	}
	if len(senders) == 0 {
		return nil, nil
	}
	return &senders[0], nil
}

// IncrementAttempt bumps the attempt counter of an unverified session.
// The counter never passes maxAttempts, however many mismatches race.
func (r *VerificationSessionRepositoryImpl) IncrementAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (*models.VerificationSession, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.VerificationSession{}).
		Where("id = ? AND is_verified = ? AND attempt_count < ?", id, false, maxAttempts).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1"))
	if err = result.Error; err != nil {
		return nil, fmt.Errorf("failed to increment attempt count: %w", err)
	}
	if result.RowsAffected == 0 {
		err = ErrSessionNotPending
		return nil, err
	}

	session, err := r.reload(db, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// MarkVerified flips a still-valid session to verified.
// The row is only touched when it is unverified, unexpired at now and under the attempt limit.
func (r *VerificationSessionRepositoryImpl) MarkVerified(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int) (*models.VerificationSession, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.VerificationSession{}).
		Where("id = ? AND is_verified = ? AND expires_at > ? AND attempt_count < ?", id, false, now, maxAttempts).
		UpdateColumns(map[string]any{
			"is_verified": true,
			"verified_at": now,
		})
	if err = result.Error; err != nil {
		return nil, fmt.Errorf("failed to mark session verified: %w", err)
	}

	session, err := r.reload(db, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if session != nil && session.IsVerified {
			return session, ErrSessionAlreadyVerified
		}
		return session, ErrSessionNotPending
	}
	return session, nil
}

func (r *VerificationSessionRepositoryImpl) reload(db *gorm.DB, id uuid.UUID) (*models.VerificationSession, error) {
	var session models.VerificationSession
	err := db.Preload("SourceNumber").Where("id = ?", id).Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reload verification session: %w", err)
	}
	return &session, nil
}

// ExpireByIDs pulls the expiry of still-live sessions back to now
func (r *VerificationSessionRepositoryImpl) ExpireByIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.VerificationSession{}).
		Where("id IN ? AND expires_at > ?", ids, now).
		UpdateColumn("expires_at", now)
	if err = result.Error; err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return result.RowsAffected, nil
}

// Sweep deletes every session whose expiry is older than cutoff, whatever its state
func (r *VerificationSessionRepositoryImpl) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Where("expires_at < ?", cutoff).Delete(&models.VerificationSession{})
	if err = result.Error; err != nil {
		return 0, fmt.Errorf("failed to sweep verification sessions: %w", err)
	}
	return result.RowsAffected, nil
}

// CountBySourceNumber aggregates session counts per source number.
// An empty id list aggregates every source number.
func (r *VerificationSessionRepositoryImpl) CountBySourceNumber(ctx context.Context, sourceNumberIDs []uint) (map[uint]models.SourceNumberUsage, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.VerificationSession{}).
		Select(`source_number_id,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_verified) AS verified,
			COUNT(*) FILTER (WHERE NOT is_verified AND expires_at > NOW()) AS pending`).
		Group("source_number_id")
	if len(sourceNumberIDs) > 0 {
		query = query.Where("source_number_id IN ?", sourceNumberIDs)
	}

	var rows []models.SourceNumberUsage
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count sessions by source number: %w", err)
	}

	usage := make(map[uint]models.SourceNumberUsage, len(rows))
	for _, row := range rows {
		usage[row.SourceNumberID] = row
	}
	return usage, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *VerificationSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.VerificationSessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.UserPhone != nil {
		query = query.Where("user_phone = ?", *filter.UserPhone)
	}
	if filter.SourceNumberID != nil {
		query = query.Where("source_number_id = ?", *filter.SourceNumberID)
	}
	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}

// ByFilter retrieves sessions based on filter criteria
func (r *VerificationSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.VerificationSessionFilter, orderBy string, limit, offset int) ([]*models.VerificationSession, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VerificationSession{}), filter)

	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var sessions []*models.VerificationSession
	if err := query.Preload("SourceNumber").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *VerificationSessionRepositoryImpl) Count(ctx context.Context, filter models.VerificationSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VerificationSession{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *VerificationSessionRepositoryImpl) Exists(ctx context.Context, filter models.VerificationSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
