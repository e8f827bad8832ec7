package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/flashcall-auth/repository"
	testutil "github.com/amirphl/flashcall-auth/testing"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationSessionRepository(t *testing.T) {
	testDB := testutil.SetupTestDBOrSkip(t)
	fixtures := testutil.NewTestFixtures(testDB)
	repo := repository.NewVerificationSessionRepository(testDB.DB)
	ctx := context.Background()

	source, err := fixtures.CreateTestSourceNumber("+15550000001", true)
	require.NoError(t, err)

	t.Run("FindLatestPendingReturnsNewest", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		_, err := fixtures.CreateTestVerificationSession(phone, source.ID, now.Add(-time.Minute), 5*time.Minute)
		require.NoError(t, err)
		newest, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, 5*time.Minute)
		require.NoError(t, err)

		found, err := repo.FindLatestPending(ctx, phone)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, newest.ID, found.ID)
		assert.Equal(t, source.PhoneNumber, found.SourceNumber.PhoneNumber)
	})

	t.Run("FindLatestPendingNone", func(t *testing.T) {
		found, err := repo.FindLatestPending(ctx, testutil.RandomPhone("44"))
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("IncrementAttemptAndMarkVerified", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		session, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, 5*time.Minute)
		require.NoError(t, err)

		updated, err := repo.IncrementAttempt(ctx, session.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.AttemptCount)

		verified, err := repo.MarkVerified(ctx, session.ID, now.Add(time.Second), 3)
		require.NoError(t, err)
		assert.True(t, verified.IsVerified)
		require.NotNil(t, verified.VerifiedAt)

		_, err = repo.MarkVerified(ctx, session.ID, now.Add(2*time.Second), 3)
		assert.ErrorIs(t, err, repository.ErrSessionAlreadyVerified)

		reloaded, err := repo.ByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.IsVerified)
		require.NotNil(t, reloaded.VerifiedAt)
		assert.True(t, reloaded.VerifiedAt.Equal(*verified.VerifiedAt))

		_, err = repo.IncrementAttempt(ctx, session.ID, 3)
		assert.ErrorIs(t, err, repository.ErrSessionNotPending)
	})

	t.Run("IncrementAttemptStopsAtLimit", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		session, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, 5*time.Minute)
		require.NoError(t, err)

		_, err = repo.IncrementAttempt(ctx, session.ID, 3)
		require.NoError(t, err)
		_, err = repo.IncrementAttempt(ctx, session.ID, 3)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.IncrementAttempt(ctx, session.ID, 3)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, repository.ErrSessionNotPending)
			}
		}
		assert.Equal(t, 1, succeeded)

		reloaded, err := repo.ByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, reloaded.AttemptCount)
	})

	t.Run("MarkVerifiedRejectsExpired", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		session, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, time.Minute)
		require.NoError(t, err)

		_, err = repo.MarkVerified(ctx, session.ID, now.Add(2*time.Minute), 3)
		assert.ErrorIs(t, err, repository.ErrSessionNotPending)
	})

	t.Run("ConcurrentMarkVerifiedSucceedsOnce", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		session, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, 5*time.Minute)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.MarkVerified(ctx, session.ID, now.Add(time.Second), 3)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, repository.ErrSessionAlreadyVerified)
			}
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("LastSenderForPhone", func(t *testing.T) {
		other, err := fixtures.CreateTestSourceNumber("+15550000002", true)
		require.NoError(t, err)

		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		_, err = fixtures.CreateTestVerificationSession(phone, source.ID, now.Add(-time.Minute), 5*time.Minute)
		require.NoError(t, err)
		_, err = fixtures.CreateTestVerificationSession(phone, other.ID, now, 5*time.Minute)
		require.NoError(t, err)

		last, err := repo.LastSenderForPhone(ctx, phone)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, other.PhoneNumber, *last)
	})

	t.Run("SweepRespectsRetention", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		old, err := fixtures.CreateTestVerificationSession(phone, source.ID, now.AddDate(0, 0, -10), 5*time.Minute)
		require.NoError(t, err)
		recent, err := fixtures.CreateTestVerificationSession(phone, source.ID, now.AddDate(0, 0, -6), 5*time.Minute)
		require.NoError(t, err)
		verifiedAt := now.AddDate(0, 0, -1)
		verifiedRecent, err := fixtures.CreateTestVerificationSession(phone, source.ID, verifiedAt.Add(-time.Minute), 5*time.Minute)
		require.NoError(t, err)
		_, err = repo.MarkVerified(ctx, verifiedRecent.ID, verifiedAt, 3)
		require.NoError(t, err)

		removed, err := repo.Sweep(ctx, now.AddDate(0, 0, -7))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))

		gone, err := repo.ByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		kept, err := repo.ByID(ctx, recent.ID)
		require.NoError(t, err)
		assert.NotNil(t, kept)

		keptVerified, err := repo.ByID(ctx, verifiedRecent.ID)
		require.NoError(t, err)
		require.NotNil(t, keptVerified)
		assert.True(t, keptVerified.IsVerified)
	})

	t.Run("ExpireByIDs", func(t *testing.T) {
		phone := testutil.RandomPhone("1")
		now := utils.UTCNow()
		session, err := fixtures.CreateTestVerificationSession(phone, source.ID, now, 5*time.Minute)
		require.NoError(t, err)

		affected, err := repo.ExpireByIDs(ctx, []uuid.UUID{session.ID}, now.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		reloaded, err := repo.ByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.IsExpired(now.Add(2*time.Second)))
	})
}
