package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/app/services"
	"github.com/amirphl/flashcall-auth/config"
	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// VerificationFlow drives a flash-call session from trigger to confirmation
type VerificationFlow interface {
	RequestVerification(ctx context.Context, req *dto.RequestVerificationRequest, metadata *ClientMetadata) (*dto.RequestVerificationResponse, error)
	ConfirmVerification(ctx context.Context, req *dto.ConfirmVerificationRequest, metadata *ClientMetadata) (*dto.ConfirmVerificationResponse, error)
	GetStatus(ctx context.Context, sessionID string) (*dto.VerificationStatusResponse, error)
	AuthenticateSession(ctx context.Context, token string) (*dto.VerifiedSessionResponse, error)
}

// VerificationSettings are the session rules applied by the flow
type VerificationSettings struct {
	ValidityPeriod time.Duration
	MaxAttempts    int
	TriggerTimeout time.Duration
	IssueToken     bool
}

// NewVerificationSettings falls back to defaults for unset values
func NewVerificationSettings(cfg config.MissedCallConfig) VerificationSettings {
	s := VerificationSettings{
		ValidityPeriod: cfg.ValidityPeriod(),
		MaxAttempts:    cfg.MaxAttempts,
		TriggerTimeout: cfg.TriggerTimeout,
		IssueToken:     cfg.IssueToken,
	}
	if s.ValidityPeriod <= 0 {
		s.ValidityPeriod = utils.DefaultValidityPeriod
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = utils.DefaultMaxAttempts
	}
	if s.TriggerTimeout <= 0 {
		s.TriggerTimeout = utils.DefaultTriggerTimeout
	}
	return s
}

type VerificationFlowImpl struct {
	sessionRepo  repository.VerificationSessionRepository
	sourcePool   SourcePool
	validator    *SignatureValidator
	callTrigger  services.CallTrigger
	transactor   repository.Transactor
	senderCache  LastSenderCache
	events       *EventBus
	tokenService services.TokenService
	clock        clock.Clock
	settings     VerificationSettings
}

// NewVerificationFlow wires the orchestrator. senderCache and tokenService may be nil.
func NewVerificationFlow(
	sessionRepo repository.VerificationSessionRepository,
	sourcePool SourcePool,
	validator *SignatureValidator,
	callTrigger services.CallTrigger,
	transactor repository.Transactor,
	senderCache LastSenderCache,
	events *EventBus,
	tokenService services.TokenService,
	clk clock.Clock,
	settings VerificationSettings,
) VerificationFlow {
	if clk == nil {
		clk = clock.New()
	}
	return &VerificationFlowImpl{
		sessionRepo:  sessionRepo,
		sourcePool:   sourcePool,
		validator:    validator,
		callTrigger:  callTrigger,
		transactor:   transactor,
		senderCache:  senderCache,
		events:       events,
		tokenService: tokenService,
		clock:        clk,
		settings:     settings,
	}
}

func (f *VerificationFlowImpl) now() time.Time {
	return f.clock.Now().UTC()
}

// RequestVerification places a flash call and records the session only if the call was placed
func (f *VerificationFlowImpl) RequestVerification(ctx context.Context, req *dto.RequestVerificationRequest, metadata *ClientMetadata) (*dto.RequestVerificationResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid phone number format", ErrInvalidPhoneFormat)
	}
	phone, err := NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid phone number format", err)
	}
	if !f.validator.Validate(req.AppSignature) {
		return nil, NewBusinessError("UNAUTHORIZED_SIGNATURE", "Unauthorized request", ErrUnauthorizedSignature)
	}

	exclude := f.lastSender(ctx, phone)

	source, err := f.sourcePool.SelectSender(ctx, exclude)
	if err != nil {
		if IsPoolExhausted(err) {
			log.Printf("missed call request for %s: source pool exhausted", MaskPhoneNumber(phone))
			return nil, NewBusinessError("SERVICE_UNAVAILABLE", "Verification service temporarily unavailable", ErrPoolExhausted)
		}
		return nil, NewBusinessError("SOURCE_SELECTION_FAILED", "Failed to select source number", err)
	}

	now := f.now()
	session := &models.VerificationSession{
		ID:             uuid.New(),
		UserPhone:      phone,
		AppSignature:   req.AppSignature,
		SourceNumberID: source.ID,
		IPAddress:      metadata.ipPtr(),
		UserAgent:      metadata.userAgentPtr(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(f.settings.ValidityPeriod),
	}

	err = f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.sessionRepo.Save(txCtx, session); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrTelephony, err)
		}

		triggerCtx, cancel := context.WithTimeout(ctx, f.settings.TriggerTimeout)
		defer cancel()
		if !f.callTrigger.TriggerCall(triggerCtx, phone, source.PhoneNumber) {
			return ErrTelephony
		}
		// the call is placed; commit whatever happens to ctx from here on
		return nil
	})
	if err != nil {
		if IsTelephony(err) {
			log.Printf("missed call request for %s: trigger failed: %v", MaskPhoneNumber(phone), err)
			return nil, NewBusinessError("SERVICE_UNAVAILABLE", "Verification service temporarily unavailable", err)
		}
		return nil, NewBusinessError("SESSION_CREATE_FAILED", "Failed to create verification session", err)
	}

	if f.senderCache != nil {
		if err := f.senderCache.Set(context.WithoutCancel(ctx), phone, source.PhoneNumber); err != nil {
			log.Printf("missed call request for %s: failed to cache last sender: %v", MaskPhoneNumber(phone), err)
		}
	}

	_ = f.events.Publish(context.WithoutCancel(ctx), Event{
		Kind:         EventCallTriggered,
		SessionID:    session.ID,
		UserPhone:    phone,
		SourceNumber: source.PhoneNumber,
		OccurredAt:   now,
		Metadata:     metadata,
	})

	return &dto.RequestVerificationResponse{
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// lastSender is best-effort: any lookup failure means no exclusion
func (f *VerificationFlowImpl) lastSender(ctx context.Context, phone string) *string {
	if f.senderCache != nil {
		sender, ok, err := f.senderCache.Get(ctx, phone)
		if err != nil {
			log.Printf("missed call request for %s: last sender cache lookup failed: %v", MaskPhoneNumber(phone), err)
		} else if ok {
			return &sender
		}
	}

	sender, err := f.sessionRepo.LastSenderForPhone(ctx, phone)
	if err != nil {
		log.Printf("missed call request for %s: last sender lookup failed: %v", MaskPhoneNumber(phone), err)
		return nil
	}
	return sender
}

// ConfirmVerification checks the caller ID the device observed against the assigned sender
func (f *VerificationFlowImpl) ConfirmVerification(ctx context.Context, req *dto.ConfirmVerificationRequest, metadata *ClientMetadata) (*dto.ConfirmVerificationResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid phone number format", ErrInvalidPhoneFormat)
	}
	phone, err := NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid phone number format", err)
	}
	callerID, err := NormalizePhoneNumber(req.ReceivedCallerID)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE_FORMAT", "Invalid caller ID format", err)
	}

	session, err := f.sessionRepo.FindLatestPending(ctx, phone)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to lookup verification session", err)
	}
	if session == nil {
		return nil, NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrNoActiveSession)
	}

	now := f.now()
	if !session.IsValid(now, f.settings.MaxAttempts) {
		state := session.State(now, f.settings.MaxAttempts)
		log.Printf("missed call confirm for %s: session %s is %s", MaskPhoneNumber(phone), session.ID, state)
		f.publishFailure(ctx, session, string(state), now, metadata)
		return nil, NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrNoActiveSession)
	}

	if callerID != session.SourceNumber.PhoneNumber {
		updated, err := f.sessionRepo.IncrementAttempt(ctx, session.ID, f.settings.MaxAttempts)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotPending) {
				return nil, f.notPendingError(ctx, session.ID, now)
			}
			return nil, NewBusinessError("SESSION_UPDATE_FAILED", "Failed to record verification attempt", err)
		}
		f.publishFailure(ctx, updated, "caller_id_mismatch", now, metadata)
		return nil, NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrVerificationMismatch)
	}

	verified, err := f.sessionRepo.MarkVerified(ctx, session.ID, now, f.settings.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionAlreadyVerified):
			return nil, NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrAlreadyVerified)
		case errors.Is(err, repository.ErrSessionNotPending):
			return nil, f.notPendingError(ctx, session.ID, now)
		}
		return nil, NewBusinessError("SESSION_UPDATE_FAILED", "Failed to verify session", err)
	}

	_ = f.events.Publish(context.WithoutCancel(ctx), Event{
		Kind:         EventVerificationSucceeded,
		SessionID:    verified.ID,
		UserPhone:    phone,
		SourceNumber: callerID,
		AttemptCount: verified.AttemptCount,
		OccurredAt:   now,
		Metadata:     metadata,
	})

	resp := &dto.ConfirmVerificationResponse{
		Verified:    true,
		PhoneNumber: phone,
		SessionID:   verified.ID.String(),
	}
	if f.settings.IssueToken && f.tokenService != nil {
		token, _, err := f.tokenService.GeneratePhoneVerificationToken(phone, verified.ID)
		if err != nil {
			log.Printf("missed call confirm for %s: failed to issue token: %v", MaskPhoneNumber(phone), err)
		} else {
			resp.Token = &token
		}
	}
	return resp, nil
}

// notPendingError explains a MarkVerified that lost a race with expiry or another attempt
func (f *VerificationFlowImpl) notPendingError(ctx context.Context, id uuid.UUID, now time.Time) error {
	current, err := f.sessionRepo.ByID(ctx, id)
	if err == nil && current != nil && current.AttemptsExhausted(f.settings.MaxAttempts) && !current.IsExpired(now) {
		return NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrAttemptsExhausted)
	}
	return NewBusinessError("VERIFICATION_FAILED", "Verification failed", ErrNoActiveSession)
}

func (f *VerificationFlowImpl) publishFailure(ctx context.Context, session *models.VerificationSession, reason string, now time.Time, metadata *ClientMetadata) {
	_ = f.events.Publish(context.WithoutCancel(ctx), Event{
		Kind:         EventVerificationFailed,
		SessionID:    session.ID,
		UserPhone:    session.UserPhone,
		AttemptCount: session.AttemptCount,
		Reason:       reason,
		OccurredAt:   now,
		Metadata:     metadata,
	})
}

// GetStatus reports a session's progress without revealing the source number
func (f *VerificationFlowImpl) GetStatus(ctx context.Context, sessionID string) (*dto.VerificationStatusResponse, error) {
	id, err := utils.ParseUUID(sessionID)
	if err != nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Verification session not found", ErrSessionNotFound)
	}
	session, err := f.sessionRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to lookup verification session", err)
	}
	if session == nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Verification session not found", ErrSessionNotFound)
	}

	now := f.now()
	return &dto.VerificationStatusResponse{
		IsVerified:           session.IsVerified,
		IsExpired:            session.IsExpired(now),
		TimeRemainingSeconds: utils.SecondsUntil(now, session.ExpiresAt),
	}, nil
}

// AuthenticateSession accepts a verified, unexpired session id as a bearer credential
func (f *VerificationFlowImpl) AuthenticateSession(ctx context.Context, token string) (*dto.VerifiedSessionResponse, error) {
	id, err := utils.ParseUUID(token)
	if err != nil {
		return nil, NewBusinessError("INVALID_SESSION_TOKEN", "Invalid session token", ErrInvalidSessionToken)
	}
	session, err := f.sessionRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to lookup verification session", err)
	}
	if session == nil || !session.IsVerified || session.VerifiedAt == nil || session.IsExpired(f.now()) {
		return nil, NewBusinessError("INVALID_SESSION_TOKEN", "Invalid session token", ErrInvalidSessionToken)
	}

	return &dto.VerifiedSessionResponse{
		PhoneNumber: session.UserPhone,
		SessionID:   session.ID.String(),
		VerifiedAt:  session.VerifiedAt.Format(time.RFC3339),
		ExpiresAt:   session.ExpiresAt.Format(time.RFC3339),
	}, nil
}
