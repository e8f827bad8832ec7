package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/flashcall-auth/config"
	"github.com/amirphl/flashcall-auth/utils"
)

// rejectBusyTwiML hangs up before the callee can answer so the call shows up as missed
const rejectBusyTwiML = `<Response><Reject reason="busy" /></Response>`

// CallTrigger places a short call from one E.164 number to another.
// Implementations never panic; any failure is reported as false.
type CallTrigger interface {
	TriggerCall(ctx context.Context, to, from string) bool
}

// TwilioCallTrigger places calls through the Twilio REST API
type TwilioCallTrigger struct {
	config *config.TwilioConfig
	client *http.Client
}

// NewTwilioCallTrigger creates a Twilio backed call trigger
func NewTwilioCallTrigger(cfg *config.TwilioConfig) *TwilioCallTrigger {
	return &TwilioCallTrigger{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

// NewCallTrigger picks the implementation configured by provider
func NewCallTrigger(provider string, cfg *config.TwilioConfig) CallTrigger {
	if provider == config.ProviderMock {
		return NewMockCallTrigger()
	}
	return NewTwilioCallTrigger(cfg)
}

func (t *TwilioCallTrigger) callsURL() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json",
		strings.TrimRight(t.config.BaseURL, "/"), url.PathEscape(t.config.AccountSID))
}

// TriggerCall posts a call request and reports whether Twilio accepted it
func (t *TwilioCallTrigger) TriggerCall(ctx context.Context, to, from string) bool {
	timeout := t.config.CallTimeout
	if timeout <= 0 {
		timeout = 10
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Twiml", rejectBusyTwiML)
	form.Set("Timeout", strconv.Itoa(timeout))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.callsURL(), strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("call trigger: failed to create request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("call trigger: request to %s failed: %v", utils.MaskPhone(to), err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("call trigger: provider rejected call to %s: status=%d body=%s",
			utils.MaskPhone(to), resp.StatusCode, strings.TrimSpace(string(body)))
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return true
}

// MockCallTrigger records calls instead of placing them
type MockCallTrigger struct {
	mu    sync.Mutex
	calls []MockCall
	fail  bool
	delay time.Duration
}

// MockCall represents a recorded call
type MockCall struct {
	To          string
	From        string
	TriggeredAt time.Time
}

// NewMockCallTrigger creates a mock trigger that accepts every call
func NewMockCallTrigger() *MockCallTrigger {
	return &MockCallTrigger{calls: make([]MockCall, 0)}
}

// SetFail makes subsequent calls fail (or succeed again)
func (m *MockCallTrigger) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// SetDelay makes each call block for d or until ctx is done
func (m *MockCallTrigger) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockCallTrigger) TriggerCall(ctx context.Context, to, from string) bool {
	m.mu.Lock()
	fail, delay := m.fail, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
	if fail || ctx.Err() != nil {
		return false
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{To: to, From: from, TriggeredAt: utils.UTCNow()})
	m.mu.Unlock()
	log.Printf("mock call trigger: %s -> %s", from, utils.MaskPhone(to))
	return true
}

// Calls returns a copy of the recorded calls
func (m *MockCallTrigger) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears the recorded calls
func (m *MockCallTrigger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make([]MockCall, 0)
}
