package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	testutil "github.com/amirphl/flashcall-auth/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminRepository(t *testing.T) {
	testDB := testutil.SetupTestDBOrSkip(t)
	fixtures := testutil.NewTestFixtures(testDB)
	repo := repository.NewAdminRepository(testDB.DB)
	ctx := context.Background()

	admin, err := fixtures.CreateTestAdmin("operator", "s3cretpass")
	require.NoError(t, err)

	t.Run("ByUsername", func(t *testing.T) {
		found, err := repo.ByUsername(ctx, "operator")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, admin.ID, found.ID)
		assert.True(t, found.Active())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte("s3cretpass")))

		missing, err := repo.ByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ByUUID", func(t *testing.T) {
		found, err := repo.ByUUID(ctx, admin.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "operator", found.Username)

		_, err = repo.ByUUID(ctx, "not-a-uuid")
		assert.Error(t, err)

		missing, err := repo.ByUUID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("UpdateLastLogin", func(t *testing.T) {
		at := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
		require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))

		found, err := repo.ByID(ctx, admin.ID)
		require.NoError(t, err)
		require.NotNil(t, found.LastLoginAt)
		assert.True(t, found.LastLoginAt.Equal(at))

		assert.Error(t, repo.UpdateLastLogin(ctx, admin.ID+1000, at))
	})

	t.Run("CountInactive", func(t *testing.T) {
		inactive := false
		count, err := repo.Count(ctx, models.AdminFilter{IsActive: &inactive})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestAuditLogRepository(t *testing.T) {
	testDB := testutil.SetupTestDBOrSkip(t)
	fixtures := testutil.NewTestFixtures(testDB)
	repo := repository.NewAuditLogRepository(testDB.DB)
	ctx := context.Background()

	sessionID := uuid.New()
	_, err := fixtures.CreateTestAuditLog(&sessionID, models.AuditActionCallTriggered, true)
	require.NoError(t, err)
	_, err = fixtures.CreateTestAuditLog(&sessionID, models.AuditActionVerificationFailed, false)
	require.NoError(t, err)
	_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionAdminLoginFailed, false)
	require.NoError(t, err)

	t.Run("ListBySession", func(t *testing.T) {
		logs, err := repo.ListBySession(ctx, sessionID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, logs, 2)

		logs, err = repo.ListBySession(ctx, uuid.New(), 10, 0)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("ListByAction", func(t *testing.T) {
		logs, err := repo.ListByAction(ctx, models.AuditActionCallTriggered, 10, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.False(t, logs[0].IsFailed())
	})

	t.Run("ListFailedActions", func(t *testing.T) {
		logs, err := repo.ListFailedActions(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		for _, entry := range logs {
			assert.True(t, entry.IsFailed())
			assert.True(t, entry.IsSecurityEvent())
		}
	})

	t.Run("Truncate", func(t *testing.T) {
		require.NoError(t, testDB.Truncate())
		exists, err := repo.Exists(ctx, models.AuditLogFilter{SessionID: &sessionID})
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
