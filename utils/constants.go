package utils

import (
	"time"
)

// Request-scoped context keys shared by handlers and flows
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// Verification session defaults
const (
	// DefaultValidityPeriod is how long a flash-call session can be confirmed (5 minutes)
	DefaultValidityPeriod = 5 * time.Minute

	// DefaultValidityPeriodSeconds mirrors DefaultValidityPeriod in seconds
	DefaultValidityPeriodSeconds = 300

	// DefaultMaxAttempts is the number of wrong caller IDs tolerated per session
	DefaultMaxAttempts = 3

	// DefaultMinSignatureLength applies when signatures are not required
	DefaultMinSignatureLength = 10

	// DefaultTriggerTimeout bounds a single provider call
	DefaultTriggerTimeout = 10 * time.Second

	// DefaultCleanupRetentionDays keeps expired sessions around for auditing
	DefaultCleanupRetentionDays = 7
)

// Admin token constants
const (
	// AdminAccessTokenTTL is the time-to-live for admin access tokens (24 hours)
	AdminAccessTokenTTL = 24 * time.Hour

	// PhoneVerificationTokenTTL is the lifetime of the token handed out after a verified call
	PhoneVerificationTokenTTL = 15 * time.Minute
)

// Redis keys (prefixed with CacheConfig.RedisPrefix)
const (
	LastSenderKeyPrefix = "missed_call:last_sender:"
	SweepLockKey        = "missed_call:sweep_lock"
	CaptchaKeyPrefix    = "admin:captcha:"
	LastSenderCacheTTL  = 7 * 24 * time.Hour
	SweepLockTTL        = 5 * time.Minute
)
