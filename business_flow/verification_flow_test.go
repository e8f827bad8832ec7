package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/app/services"
	"github.com/amirphl/flashcall-auth/config"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserPhone = "+15551234567"
	testSignature = "FA+9qCX9VSu"
	senderA       = "+15550000001"
	senderB       = "+15550000002"
)

type flowFixture struct {
	sources  *fakeSourceRepo
	sessions *fakeSessionRepo
	trigger  *services.MockCallTrigger
	cache    *fakeSenderCache
	observer *recordingObserver
	tokens   services.TokenService
	clock    *clock.Mock
	settings VerificationSettings
	flow     VerificationFlow
}

func newFlowFixture(t *testing.T, senders ...string) *flowFixture {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, 24*time.Hour, "flashcall-auth", "flashcall-auth-api", false, "", "", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	f := &flowFixture{
		sources:  newFakeSourceRepo(senders...),
		trigger:  services.NewMockCallTrigger(),
		cache:    newFakeSenderCache(),
		observer: &recordingObserver{},
		tokens:   tokens,
		clock:    clock.NewMock(),
		settings: VerificationSettings{
			ValidityPeriod: 5 * time.Minute,
			MaxAttempts:    3,
			TriggerTimeout: 200 * time.Millisecond,
			IssueToken:     true,
		},
	}
	f.clock.Set(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC))
	f.sessions = newFakeSessionRepo(f.sources)
	f.rebuild()
	return f
}

func (f *flowFixture) rebuild() {
	f.flow = NewVerificationFlow(
		f.sessions,
		NewSourcePool(f.sources),
		NewSignatureValidator(true, []string{testSignature}, 10),
		f.trigger,
		&fakeTransactor{sessions: f.sessions},
		f.cache,
		NewEventBus(f.observer),
		f.tokens,
		f.clock,
		f.settings,
	)
}

func (f *flowFixture) request(t *testing.T) *dto.RequestVerificationResponse {
	t.Helper()
	resp, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
		PhoneNumber:  testUserPhone,
		AppSignature: testSignature,
	}, NewClientMetadata("203.0.113.7", "test-agent"))
	require.NoError(t, err)
	return resp
}

func (f *flowFixture) confirm(callerID string) (*dto.ConfirmVerificationResponse, error) {
	return f.flow.ConfirmVerification(context.Background(), &dto.ConfirmVerificationRequest{
		PhoneNumber:      testUserPhone,
		ReceivedCallerID: callerID,
	}, NewClientMetadata("203.0.113.7", "test-agent"))
}

func (f *flowFixture) lastCall(t *testing.T) services.MockCall {
	t.Helper()
	calls := f.trigger.Calls()
	require.NotEmpty(t, calls)
	return calls[len(calls)-1]
}

func TestRequestVerification(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		resp := f.request(t)

		id, err := uuid.Parse(resp.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "2025-01-15T10:35:00Z", resp.ExpiresAt)

		session := f.sessions.get(id)
		require.NotNil(t, session)
		assert.Equal(t, testUserPhone, session.UserPhone)
		assert.False(t, session.IsVerified)
		assert.Equal(t, 0, session.AttemptCount)
		assert.Equal(t, "203.0.113.7", *session.IPAddress)
		assert.True(t, session.ExpiresAt.After(session.CreatedAt))

		call := f.lastCall(t)
		assert.Equal(t, testUserPhone, call.To)
		assert.Equal(t, senderA, call.From)

		cached, ok, _ := f.cache.Get(context.Background(), testUserPhone)
		assert.True(t, ok)
		assert.Equal(t, senderA, cached)
		assert.Equal(t, []EventKind{EventCallTriggered}, f.observer.kinds())
	})

	t.Run("ResponseNeverRevealsSender", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		resp := f.request(t)
		body, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.NotContains(t, string(body), senderA)
		assert.NotContains(t, string(body), "5550000001")
	})

	t.Run("NormalizesPhone", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  "+1 (555) 123-4567",
			AppSignature: testSignature,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, testUserPhone, f.lastCall(t).To)
	})

	t.Run("InvalidPhone", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  "5551234567",
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidPhoneFormat(err))
		assert.Empty(t, f.trigger.Calls())
	})

	t.Run("UnauthorizedSignature", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: "not-the-app-signature",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsUnauthorizedSignature(err))
		assert.Empty(t, f.trigger.Calls())
		assert.Equal(t, 0, f.sessions.count())
	})

	t.Run("PoolExhausted", func(t *testing.T) {
		f := newFlowFixture(t)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsPoolExhausted(err))
		assert.Equal(t, 0, f.sessions.count())
	})

	t.Run("TriggerFailureRollsBack", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.trigger.SetFail(true)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsTelephony(err))
		assert.Equal(t, 0, f.sessions.count())
		assert.Empty(t, f.observer.kinds())

		_, ok, _ := f.cache.Get(context.Background(), testUserPhone)
		assert.False(t, ok)
	})

	t.Run("TriggerTimeoutRollsBack", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.trigger.SetDelay(5 * time.Second)
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsTelephony(err))
		assert.Equal(t, 0, f.sessions.count())
	})

	t.Run("CancelledContext", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.flow.RequestVerification(ctx, &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsTelephony(err))
		assert.Empty(t, f.trigger.Calls())
		assert.Equal(t, 0, f.sessions.count())
	})

	t.Run("SaveFailure", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.sessions.saveErr = errors.New("connection reset")
		_, err := f.flow.RequestVerification(context.Background(), &dto.RequestVerificationRequest{
			PhoneNumber:  testUserPhone,
			AppSignature: testSignature,
		}, nil)
		require.Error(t, err)
		assert.False(t, IsTelephony(err))
		assert.Empty(t, f.trigger.Calls())
	})
}

func TestRequestVerificationRotatesSenders(t *testing.T) {
	t.Run("FromCache", func(t *testing.T) {
		f := newFlowFixture(t, senderA, senderB)
		f.request(t)
		first := f.lastCall(t).From
		for i := 0; i < 10; i++ {
			f.clock.Add(time.Second)
			f.request(t)
			next := f.lastCall(t).From
			assert.NotEqual(t, first, next)
			first = next
		}
	})

	t.Run("FallsBackToDatabase", func(t *testing.T) {
		f := newFlowFixture(t, senderA, senderB)
		f.cache.getErr = errors.New("redis down")
		f.request(t)
		first := f.lastCall(t).From
		f.clock.Add(time.Second)
		f.request(t)
		assert.NotEqual(t, first, f.lastCall(t).From)
	})

	t.Run("LookupFailuresAreIgnored", func(t *testing.T) {
		f := newFlowFixture(t, senderA, senderB)
		f.cache.getErr = errors.New("redis down")
		f.cache.setErr = errors.New("redis down")
		f.sessions.lastErr = errors.New("db down")
		f.request(t)
		f.request(t)
		assert.Len(t, f.trigger.Calls(), 2)
	})

	t.Run("SingleSenderIsReused", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)
		f.clock.Add(time.Second)
		f.request(t)
		assert.Equal(t, senderA, f.lastCall(t).From)
	})
}

func TestConfirmVerification(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		req := f.request(t)
		f.clock.Add(30 * time.Second)

		resp, err := f.confirm("+1 555 000 0001")
		require.NoError(t, err)
		assert.True(t, resp.Verified)
		assert.Equal(t, testUserPhone, resp.PhoneNumber)
		assert.Equal(t, req.SessionID, resp.SessionID)
		require.NotNil(t, resp.Token)

		claims, err := f.tokens.ValidatePhoneVerificationToken(*resp.Token)
		require.NoError(t, err)
		assert.Equal(t, testUserPhone, claims.Phone)
		assert.Equal(t, req.SessionID, claims.SessionID.String())

		session := f.sessions.get(uuid.MustParse(req.SessionID))
		require.NotNil(t, session)
		assert.True(t, session.IsVerified)
		require.NotNil(t, session.VerifiedAt)
		assert.False(t, session.VerifiedAt.After(session.ExpiresAt))
		assert.Equal(t, []EventKind{EventCallTriggered, EventVerificationSucceeded}, f.observer.kinds())
	})

	t.Run("NoTokenWhenDisabled", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.settings.IssueToken = false
		f.rebuild()
		f.request(t)
		resp, err := f.confirm(senderA)
		require.NoError(t, err)
		assert.Nil(t, resp.Token)
	})

	t.Run("NoSession", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		_, err := f.confirm(senderA)
		require.Error(t, err)
		assert.True(t, IsNoActiveSession(err))
		assert.True(t, IsVerificationFailed(err))
	})

	t.Run("InvalidCallerID", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)
		_, err := f.confirm("not a number")
		require.Error(t, err)
		assert.True(t, IsInvalidPhoneFormat(err))
	})

	t.Run("MismatchIncrementsAttempts", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		req := f.request(t)

		_, err := f.confirm(senderB)
		require.Error(t, err)
		assert.True(t, IsVerificationMismatch(err))
		assert.True(t, IsVerificationFailed(err))

		session := f.sessions.get(uuid.MustParse(req.SessionID))
		assert.Equal(t, 1, session.AttemptCount)
		assert.False(t, session.IsVerified)
		assert.Equal(t, []EventKind{EventCallTriggered, EventVerificationFailed}, f.observer.kinds())

		// a later correct answer still verifies
		resp, err := f.confirm(senderA)
		require.NoError(t, err)
		assert.True(t, resp.Verified)
	})

	t.Run("AttemptsExhausted", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		req := f.request(t)
		for i := 0; i < 3; i++ {
			_, err := f.confirm(senderB)
			assert.True(t, IsVerificationMismatch(err))
		}

		_, err := f.confirm(senderA)
		require.Error(t, err)
		assert.True(t, IsNoActiveSession(err))

		session := f.sessions.get(uuid.MustParse(req.SessionID))
		assert.Equal(t, 3, session.AttemptCount)
		assert.False(t, session.IsVerified)
		assert.Equal(t, 0, f.sessions.markCalls)
	})

	t.Run("ConcurrentMismatchesStopAtLimit", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		req := f.request(t)
		for i := 0; i < 2; i++ {
			_, err := f.confirm(senderB)
			require.True(t, IsVerificationMismatch(err))
		}

		const workers = 8
		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.confirm(senderB); IsVerificationFailed(err) {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(workers), failures.Load())
		session := f.sessions.get(uuid.MustParse(req.SessionID))
		assert.Equal(t, 3, session.AttemptCount)
	})

	t.Run("Expired", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)
		f.clock.Add(5 * time.Minute)

		_, err := f.confirm(senderA)
		require.Error(t, err)
		assert.True(t, IsNoActiveSession(err))
		assert.Equal(t, 0, f.sessions.markCalls)
	})

	t.Run("JustBeforeExpiry", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)
		f.clock.Add(5*time.Minute - time.Second)

		resp, err := f.confirm(senderA)
		require.NoError(t, err)
		assert.True(t, resp.Verified)
	})

	t.Run("SecondConfirmFails", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)
		_, err := f.confirm(senderA)
		require.NoError(t, err)

		_, err = f.confirm(senderA)
		require.Error(t, err)
		assert.True(t, IsVerificationFailed(err))
	})

	t.Run("LatestSessionWins", func(t *testing.T) {
		f := newFlowFixture(t, senderA, senderB)
		f.request(t)
		oldSender := f.lastCall(t).From
		f.clock.Add(10 * time.Second)
		second := f.request(t)
		newSender := f.lastCall(t).From
		require.NotEqual(t, oldSender, newSender)

		_, err := f.confirm(oldSender)
		assert.True(t, IsVerificationMismatch(err))

		resp, err := f.confirm(newSender)
		require.NoError(t, err)
		assert.Equal(t, second.SessionID, resp.SessionID)
	})

	t.Run("ConcurrentConfirmsVerifyOnce", func(t *testing.T) {
		f := newFlowFixture(t, senderA)
		f.request(t)

		const workers = 10
		var wg sync.WaitGroup
		var mu sync.Mutex
		successes, failures := 0, 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.confirm(senderA)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if IsVerificationFailed(err) {
					failures++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, failures)
	})
}

func TestGetStatus(t *testing.T) {
	f := newFlowFixture(t, senderA)
	req := f.request(t)
	f.clock.Add(55 * time.Second)

	status, err := f.flow.GetStatus(context.Background(), req.SessionID)
	require.NoError(t, err)
	assert.False(t, status.IsVerified)
	assert.False(t, status.IsExpired)
	assert.Equal(t, int64(245), status.TimeRemainingSeconds)

	_, err = f.confirm(senderA)
	require.NoError(t, err)
	f.clock.Add(10 * time.Minute)

	// verified wins over expiry for the session itself, but the window is reported as closed
	status, err = f.flow.GetStatus(context.Background(), req.SessionID)
	require.NoError(t, err)
	assert.True(t, status.IsVerified)
	assert.True(t, status.IsExpired)
	assert.Equal(t, int64(0), status.TimeRemainingSeconds)

	_, err = f.flow.GetStatus(context.Background(), uuid.New().String())
	assert.True(t, IsSessionNotFound(err))
	_, err = f.flow.GetStatus(context.Background(), "not-a-uuid")
	assert.True(t, IsSessionNotFound(err))
}

func TestAuthenticateSession(t *testing.T) {
	f := newFlowFixture(t, senderA)
	req := f.request(t)

	_, err := f.flow.AuthenticateSession(context.Background(), req.SessionID)
	assert.True(t, IsInvalidSessionToken(err), "pending sessions are not credentials")

	_, err = f.confirm(senderA)
	require.NoError(t, err)

	session, err := f.flow.AuthenticateSession(context.Background(), req.SessionID)
	require.NoError(t, err)
	assert.Equal(t, testUserPhone, session.PhoneNumber)
	assert.Equal(t, req.SessionID, session.SessionID)
	assert.Equal(t, "2025-01-15T10:30:00Z", session.VerifiedAt)

	f.clock.Add(5 * time.Minute)
	_, err = f.flow.AuthenticateSession(context.Background(), req.SessionID)
	assert.True(t, IsInvalidSessionToken(err))

	_, err = f.flow.AuthenticateSession(context.Background(), "")
	assert.True(t, IsInvalidSessionToken(err))
	_, err = f.flow.AuthenticateSession(context.Background(), uuid.New().String())
	assert.True(t, IsInvalidSessionToken(err))
}

func TestNewVerificationSettingsDefaults(t *testing.T) {
	s := NewVerificationSettings(config.MissedCallConfig{})
	assert.Equal(t, 5*time.Minute, s.ValidityPeriod)
	assert.Equal(t, 3, s.MaxAttempts)
	assert.Equal(t, 10*time.Second, s.TriggerTimeout)
	assert.False(t, s.IssueToken)
}
