package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/flashcall-auth/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTokenService(t *testing.T, accessTTL time.Duration) services.TokenService {
	t.Helper()
	svc, err := services.NewTokenService(accessTTL, 24*time.Hour, "flashcall-auth", "operators", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	assert.False(t, body.Success)
	return body.Error.Code
}

func newAdminApp(svc services.TokenService) *fiber.App {
	app := fiber.New()
	app.Get("/protected", NewAuthMiddleware(svc).AdminAuthenticate(), func(c fiber.Ctx) error {
		adminID, ok := GetAdminIDFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		claims, _ := GetTokenClaimsFromContext(c)
		return c.JSON(fiber.Map{"admin_id": adminID, "token_type": claims.TokenType})
	})
	return app
}

func TestAdminAuthenticate(t *testing.T) {
	svc := newTokenService(t, time.Hour)
	app := newAdminApp(svc)

	t.Run("ValidToken", func(t *testing.T) {
		access, _, err := svc.GenerateAdminTokens(42)
		require.NoError(t, err)

		status, raw := call(t, app, map[string]string{"Authorization": "Bearer " + access})

		require.Equal(t, fiber.StatusOK, status, string(raw))
		var body struct {
			AdminID   uint   `json:"admin_id"`
			TokenType string `json:"token_type"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, uint(42), body.AdminID)
		assert.Equal(t, services.TokenTypeAccess, body.TokenType)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		status, raw := call(t, app, nil)
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", errorCode(t, raw))
	})

	t.Run("WrongScheme", func(t *testing.T) {
		status, raw := call(t, app, map[string]string{"Authorization": "Basic abc"})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_AUTHORIZATION_FORMAT", errorCode(t, raw))
	})

	t.Run("Garbage", func(t *testing.T) {
		status, raw := call(t, app, map[string]string{"Authorization": "Bearer not-a-jwt"})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_INVALID", errorCode(t, raw))
	})

	t.Run("PhoneTokenIsNotAdmin", func(t *testing.T) {
		token, _, err := svc.GeneratePhoneVerificationToken("+15551234567", uuid.New())
		require.NoError(t, err)

		status, raw := call(t, app, map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_INVALID", errorCode(t, raw))
	})

	t.Run("RefreshTokenIsNotAccess", func(t *testing.T) {
		_, refresh, err := svc.GenerateAdminTokens(42)
		require.NoError(t, err)

		status, raw := call(t, app, map[string]string{"Authorization": "Bearer " + refresh})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_INVALID", errorCode(t, raw))
	})

	t.Run("Expired", func(t *testing.T) {
		expiredSvc := newTokenService(t, -time.Minute)
		access, _, err := expiredSvc.GenerateAdminTokens(42)
		require.NoError(t, err)

		status, raw := call(t, app, map[string]string{"Authorization": "Bearer " + access})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, raw))
	})
}
