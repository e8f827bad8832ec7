package businessflow

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
)

// SourcePool picks the outbound number for a flash call
type SourcePool interface {
	SelectSender(ctx context.Context, exclude *string) (*models.SourceNumber, error)
}

// SourcePoolImpl selects uniformly among active numbers with a count followed by an
// offset read, so the pool is never loaded into memory and never sorted randomly.
type SourcePoolImpl struct {
	sourceRepo repository.SourceNumberRepository
	randN      func(n int64) int64
}

func NewSourcePool(sourceRepo repository.SourceNumberRepository) SourcePool {
	return &SourcePoolImpl{
		sourceRepo: sourceRepo,
		randN:      rand.Int64N,
	}
}

// NewSourcePoolWithRand is NewSourcePool with a deterministic random source
func NewSourcePoolWithRand(sourceRepo repository.SourceNumberRepository, randN func(n int64) int64) SourcePool {
	return &SourcePoolImpl{
		sourceRepo: sourceRepo,
		randN:      randN,
	}
}

// SelectSender returns a random active number other than exclude.
// The exclusion is dropped when it would leave no candidates.
func (p *SourcePoolImpl) SelectSender(ctx context.Context, exclude *string) (*models.SourceNumber, error) {
	if exclude != nil && *exclude != "" {
		count, err := p.sourceRepo.CountActive(ctx, exclude)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return p.pick(ctx, exclude, count)
		}
	}

	count, err := p.sourceRepo.CountActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrPoolExhausted
	}
	return p.pick(ctx, nil, count)
}

func (p *SourcePoolImpl) pick(ctx context.Context, exclude *string, count int64) (*models.SourceNumber, error) {
	offset := p.randN(count)
	source, err := p.sourceRepo.ActiveAt(ctx, exclude, offset)
	if err != nil {
		return nil, err
	}
	if source != nil {
		return source, nil
	}

	// the pool shrank between the two reads; the first row is still a valid pick
	source, err = p.sourceRepo.ActiveAt(ctx, exclude, 0)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("select sender: %w", ErrPoolExhausted)
	}
	return source, nil
}
