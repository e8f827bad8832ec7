package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/app/handlers"
	businessflow "github.com/amirphl/flashcall-auth/business_flow"
	"github.com/gofiber/fiber/v3"
)

// SessionTokenHeader carries a verified session id
const SessionTokenHeader = "X-Session-Token"

const sessionLookupTimeout = 5 * time.Second

// SessionAuthenticator resolves a session token to the verified phone it proves
type SessionAuthenticator interface {
	AuthenticateSession(ctx context.Context, token string) (*dto.VerifiedSessionResponse, error)
}

// SessionToken lets a verified, unexpired session id act as a bearer credential.
// The resolved session is stored under handlers.VerifiedSessionLocalsKey.
func SessionToken(auth SessionAuthenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(SessionTokenHeader))
		if token == "" {
			return unauthorized(c, "Session token is required", "MISSING_SESSION_TOKEN")
		}

		ctx, cancel := context.WithTimeout(context.Background(), sessionLookupTimeout)
		defer cancel()

		session, err := auth.AuthenticateSession(ctx, token)
		if err != nil {
			if !businessflow.IsInvalidSessionToken(err) {
				log.Println("Session token lookup failed:", err)
			}
			return unauthorized(c, "Invalid or expired session token", "INVALID_SESSION_TOKEN")
		}

		c.Locals(handlers.VerifiedSessionLocalsKey, session)
		return c.Next()
	}
}
