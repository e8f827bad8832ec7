package repository_test

import (
	"context"
	"testing"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	testutil "github.com/amirphl/flashcall-auth/testing"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceNumberRepository(t *testing.T) {
	testDB := testutil.SetupTestDBOrSkip(t)
	fixtures := testutil.NewTestFixtures(testDB)
	repo := repository.NewSourceNumberRepository(testDB.DB)
	ctx := context.Background()

	a, err := fixtures.CreateTestSourceNumber("+15551110001", true)
	require.NoError(t, err)
	b, err := fixtures.CreateTestSourceNumber("+15551110002", true)
	require.NoError(t, err)
	_, err = fixtures.CreateTestSourceNumber("+15551110003", false)
	require.NoError(t, err)

	t.Run("CountActive", func(t *testing.T) {
		count, err := repo.CountActive(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = repo.CountActive(ctx, &a.PhoneNumber)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("ActiveAtOrdersByID", func(t *testing.T) {
		first, err := repo.ActiveAt(ctx, nil, 0)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, a.ID, first.ID)

		second, err := repo.ActiveAt(ctx, nil, 1)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, b.ID, second.ID)

		past, err := repo.ActiveAt(ctx, nil, 2)
		require.NoError(t, err)
		assert.Nil(t, past)
	})

	t.Run("UpdateDeactivates", func(t *testing.T) {
		err := repo.Update(ctx, &models.SourceNumberUpdate{ID: b.ID, IsActive: utils.ToPtr(false)})
		require.NoError(t, err)

		count, err := repo.CountActive(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("UpdateBatchSetsAndClearsLabel", func(t *testing.T) {
		require.NoError(t, repo.UpdateBatch(ctx, []*models.SourceNumberUpdate{{ID: a.ID, Label: utils.ToPtr("trunk-a")}}))
		found, err := repo.ByPhoneNumber(ctx, a.PhoneNumber)
		require.NoError(t, err)
		assert.Equal(t, "trunk-a", found.Label)

		require.NoError(t, repo.UpdateBatch(ctx, []*models.SourceNumberUpdate{{ID: a.ID, IsActive: utils.ToPtr(true)}}))
		found, err = repo.ByPhoneNumber(ctx, a.PhoneNumber)
		require.NoError(t, err)
		assert.Equal(t, "trunk-a", found.Label)

		require.NoError(t, repo.UpdateBatch(ctx, []*models.SourceNumberUpdate{{ID: a.ID, Label: utils.ToPtr("")}}))
		found, err = repo.ByPhoneNumber(ctx, a.PhoneNumber)
		require.NoError(t, err)
		assert.Empty(t, found.Label)

		err = repo.UpdateBatch(ctx, []*models.SourceNumberUpdate{{ID: a.ID + 1000, Label: utils.ToPtr("ghost")}})
		assert.ErrorIs(t, err, repository.ErrSourceNumberNotFound)
	})

	t.Run("ByPhoneNumber", func(t *testing.T) {
		found, err := repo.ByPhoneNumber(ctx, a.PhoneNumber)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, a.UUID, found.UUID)

		missing, err := repo.ByPhoneNumber(ctx, "+19999999999")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
