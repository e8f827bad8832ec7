package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/utils"
	"gorm.io/gorm"
)

// SourceNumberRepositoryImpl implements SourceNumberRepository interface
type SourceNumberRepositoryImpl struct {
	*BaseRepository[models.SourceNumber, models.SourceNumberFilter]
}

// NewSourceNumberRepository creates a new source number repository
func NewSourceNumberRepository(db *gorm.DB) SourceNumberRepository {
	return &SourceNumberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SourceNumber, models.SourceNumberFilter](db),
	}
}

// ByUUID retrieves a source number by UUID (string)
func (r *SourceNumberRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.SourceNumber, error) {
	parsed, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, models.SourceNumberFilter{UUID: &parsed})
}

// ByPhoneNumber retrieves a source number by its E.164 value
func (r *SourceNumberRepositoryImpl) ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.SourceNumber, error) {
	return r.first(ctx, models.SourceNumberFilter{PhoneNumber: &phoneNumber})
}

func (r *SourceNumberRepositoryImpl) first(ctx context.Context, filter models.SourceNumberFilter) (*models.SourceNumber, error) {
	items, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func activeFilter(exclude *string) models.SourceNumberFilter {
	return models.SourceNumberFilter{
		IsActive:           utils.ToPtr(true),
		ExcludePhoneNumber: exclude,
	}
}

// CountActive counts active numbers, optionally leaving one phone number out
func (r *SourceNumberRepositoryImpl) CountActive(ctx context.Context, exclude *string) (int64, error) {
	count, err := r.Count(ctx, activeFilter(exclude))
	if err != nil {
		return 0, fmt.Errorf("failed to count active source numbers: %w", err)
	}
	return count, nil
}

// ActiveAt returns the active number at the given offset in id order.
// Returns nil when the offset is past the end, which happens if the pool shrank
// between the count and this read.
func (r *SourceNumberRepositoryImpl) ActiveAt(ctx context.Context, exclude *string, offset int64) (*models.SourceNumber, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SourceNumber{}), activeFilter(exclude))

	var source models.SourceNumber
	err := query.Order("id ASC").Offset(int(offset)).Limit(1).Take(&source).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read active source number at offset %d: %w", offset, err)
	}
	return &source, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *SourceNumberRepositoryImpl) applyFilter(query *gorm.DB, filter models.SourceNumberFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.ExcludePhoneNumber != nil {
		query = query.Where("phone_number <> ?", *filter.ExcludePhoneNumber)
	}
	if filter.Label != nil {
		query = query.Where("label = ?", *filter.Label)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves source numbers based on filter criteria
func (r *SourceNumberRepositoryImpl) ByFilter(ctx context.Context, filter models.SourceNumberFilter, orderBy string, limit, offset int) ([]*models.SourceNumber, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SourceNumber{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var sources []*models.SourceNumber
	if err := query.Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// Count returns the number of source numbers matching the filter
func (r *SourceNumberRepositoryImpl) Count(ctx context.Context, filter models.SourceNumberFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SourceNumber{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any source number matching the filter exists
func (r *SourceNumberRepositoryImpl) Exists(ctx context.Context, filter models.SourceNumberFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func sourceNumberUpdates(update *models.SourceNumberUpdate) map[string]any {
	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if update.Label != nil {
		updates["label"] = *update.Label
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	return updates
}

// Update updates label and activity of a source number by ID.
// The phone number itself is immutable since sessions reference it.
func (r *SourceNumberRepositoryImpl) Update(ctx context.Context, source *models.SourceNumberUpdate) error {
	if source == nil {
		return errors.New("source number payload is nil")
	}
	if source.ID == 0 {
		return errors.New("source number ID is required for update")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
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

	result := db.Model(&models.SourceNumber{}).
		Where("id = ?", source.ID).
		Updates(sourceNumberUpdates(source))
	if err = result.Error; err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		err = fmt.Errorf("%w: id %d", ErrSourceNumberNotFound, source.ID)
		return err
	}
	return nil
}

// UpdateBatch updates multiple source numbers in a single transaction
func (r *SourceNumberRepositoryImpl) UpdateBatch(ctx context.Context, sources []*models.SourceNumberUpdate) error {
	if len(sources) == 0 {
		return nil
	}
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
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
	for _, source := range sources {
		if source == nil || source.ID == 0 {
			err = errors.New("invalid source number payload in batch (nil or missing ID)")
			return err
		}
		result := db.Model(&models.SourceNumber{}).
			Where("id = ?", source.ID).
			Updates(sourceNumberUpdates(source))
		if err = result.Error; err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			err = fmt.Errorf("%w: id %d", ErrSourceNumberNotFound, source.ID)
			return err
		}
	}
	return nil
}
