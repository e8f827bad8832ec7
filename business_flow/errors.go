// Package businessflow contains the core business logic and use cases for flash-call verification
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Verification errors
	ErrInvalidPhoneFormat    = errors.New("invalid phone number format")
	ErrUnauthorizedSignature = errors.New("unauthorized app signature")
	ErrPoolExhausted         = errors.New("no active source numbers available")
	ErrTelephony             = errors.New("failed to trigger verification call")
	ErrNoActiveSession       = errors.New("no active verification session")
	ErrVerificationMismatch  = errors.New("caller ID does not match")
	ErrAlreadyVerified       = errors.New("already verified")
	ErrAttemptsExhausted     = errors.New("verification attempts exhausted")
	ErrSessionNotFound       = errors.New("verification session not found")
	ErrInvalidSessionToken   = errors.New("invalid session token")

	// Source number errors
	ErrSourceNumberRequired      = errors.New("source number is required")
	ErrSourceNumberAlreadyExists = errors.New("source number already exists")
	ErrSourceNumberNotFound      = errors.New("source number not found")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrInvalidCaptcha    = errors.New("invalid captcha")
	ErrInvalidRefresh    = errors.New("invalid refresh token")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsInvalidPhoneFormat(err error) bool {
	return errors.Is(err, ErrInvalidPhoneFormat)
}

func IsUnauthorizedSignature(err error) bool {
	return errors.Is(err, ErrUnauthorizedSignature)
}

func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

func IsTelephony(err error) bool {
	return errors.Is(err, ErrTelephony)
}

func IsNoActiveSession(err error) bool {
	return errors.Is(err, ErrNoActiveSession)
}

func IsVerificationMismatch(err error) bool {
	return errors.Is(err, ErrVerificationMismatch)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsAttemptsExhausted(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}

// IsVerificationFailed groups every confirm failure that the API reports identically
func IsVerificationFailed(err error) bool {
	return IsNoActiveSession(err) || IsVerificationMismatch(err) ||
		IsAlreadyVerified(err) || IsAttemptsExhausted(err)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsInvalidSessionToken(err error) bool {
	return errors.Is(err, ErrInvalidSessionToken)
}

func IsSourceNumberRequired(err error) bool {
	return errors.Is(err, ErrSourceNumberRequired)
}

func IsSourceNumberAlreadyExists(err error) bool {
	return errors.Is(err, ErrSourceNumberAlreadyExists)
}

func IsSourceNumberNotFound(err error) bool {
	return errors.Is(err, ErrSourceNumberNotFound)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsInvalidRefresh(err error) bool {
	return errors.Is(err, ErrInvalidRefresh)
}


func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
