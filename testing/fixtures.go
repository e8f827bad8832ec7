package testing

import (
	"fmt"
	"math/rand"
	stdtesting "testing"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// SetupTestDBOrSkip skips the calling test when no PostgreSQL server is reachable
func SetupTestDBOrSkip(t *stdtesting.T) *TestDB {
	t.Helper()

	testDB, err := SetupTestDB()
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() {
		_ = testDB.TeardownTestDB()
	})
	return testDB
}

// RandomPhone returns a random E.164 number with the given country prefix
func RandomPhone(countryCode string) string {
	return fmt.Sprintf("+%s%010d", countryCode, rand.Int63n(9000000000)+1000000000)
}

// CreateTestSourceNumber creates a source number in the pool
func (tf *TestFixtures) CreateTestSourceNumber(phone string, active bool) (*models.SourceNumber, error) {
	source := &models.SourceNumber{
		UUID:        uuid.New(),
		PhoneNumber: phone,
		Label:       "Test line",
		IsActive:    utils.ToPtr(active),
	}

	if err := tf.DB.DB.Create(source).Error; err != nil {
		return nil, fmt.Errorf("failed to create test source number: %w", err)
	}
	return source, nil
}

// CreateTestVerificationSession creates a pending session created at createdAt
func (tf *TestFixtures) CreateTestVerificationSession(userPhone string, sourceNumberID uint, createdAt time.Time, validity time.Duration) (*models.VerificationSession, error) {
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.VerificationSession{
		ID:             uuid.New(),
		UserPhone:      userPhone,
		AppSignature:   "test-app-signature",
		SourceNumberID: sourceNumberID,
		IPAddress:      &ipAddress,
		UserAgent:      &userAgent,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(validity),
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test verification session: %w", err)
	}
	return session, nil
}

// CreateTestAdmin creates an active admin with the given password
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(sessionID *uuid.UUID, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)

	audit := &models.AuditLog{
		SessionID:   sessionID,
		Action:      action,
		Description: &description,
		Success:     &success,
	}
	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}
	return audit, nil
}
