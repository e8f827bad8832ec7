package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"
)

// EventKind names a verification lifecycle event
type EventKind string

const (
	EventCallTriggered         EventKind = "call_triggered"
	EventVerificationSucceeded EventKind = "verification_succeeded"
	EventVerificationFailed    EventKind = "verification_failed"
)

// Event is published after the state change it describes has been committed.
// UserPhone is the normalized, unmasked number; observers mask it themselves.
type Event struct {
	Kind         EventKind
	SessionID    uuid.UUID
	UserPhone    string
	SourceNumber string
	AttemptCount int
	Reason       string
	OccurredAt   time.Time
	Metadata     *ClientMetadata
}

// Observer reacts to verification events
type Observer interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}

// EventBus fans events out to every subscribed observer. A failing observer
// never stops the others and never fails the request that published the event.
type EventBus struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEventBus(observers ...Observer) *EventBus {
	return &EventBus{observers: observers}
}

func (b *EventBus) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Publish notifies observers in subscription order and returns their combined errors
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	var errs error
	for _, o := range observers {
		if err := notifySafely(ctx, o, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", o.Name(), err))
		}
	}
	if errs != nil {
		log.Printf("event %s for session %s: observer errors: %v", event.Kind, event.SessionID, errs)
	}
	return errs
}

func notifySafely(ctx context.Context, o Observer, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.Notify(ctx, event)
}

// LogObserver writes one line per event
type LogObserver struct {
	logger *log.Logger
}

func NewLogObserver(logger *log.Logger) *LogObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Name() string { return "log" }

func (o *LogObserver) Notify(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventVerificationFailed:
		o.logger.Printf("missed call %s: session=%s phone=%s attempts=%d reason=%s",
			event.Kind, event.SessionID, MaskPhoneNumber(event.UserPhone), event.AttemptCount, event.Reason)
	default:
		o.logger.Printf("missed call %s: session=%s phone=%s",
			event.Kind, event.SessionID, MaskPhoneNumber(event.UserPhone))
	}
	return nil
}

// MetricsObserver counts events by kind
type MetricsObserver struct {
	events *prometheus.CounterVec
}

// NewMetricsObserver registers its counter on reg; pass prometheus.DefaultRegisterer in production
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	return &MetricsObserver{
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "missed_call_events_total",
				Help: "Total number of missed call verification events",
			},
			[]string{"event"},
		),
	}
}

func (o *MetricsObserver) Name() string { return "metrics" }

func (o *MetricsObserver) Notify(ctx context.Context, event Event) error {
	o.events.WithLabelValues(string(event.Kind)).Inc()
	return nil
}

// AuditObserver persists an audit_log row per event
type AuditObserver struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditObserver(auditRepo repository.AuditLogRepository) *AuditObserver {
	return &AuditObserver{auditRepo: auditRepo}
}

func (o *AuditObserver) Name() string { return "audit" }

func (o *AuditObserver) Notify(ctx context.Context, event Event) error {
	var action string
	success := true
	switch event.Kind {
	case EventCallTriggered:
		action = models.AuditActionCallTriggered
	case EventVerificationSucceeded:
		action = models.AuditActionVerificationSucceeded
	case EventVerificationFailed:
		action = models.AuditActionVerificationFailed
		success = false
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}

	meta, err := json.Marshal(map[string]any{
		"attempt_count": event.AttemptCount,
		"occurred_at":   event.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	sessionID := event.SessionID
	desc := fmt.Sprintf("%s for session %s", event.Kind, event.SessionID)
	entry := &models.AuditLog{
		SessionID:   &sessionID,
		UserPhone:   utils.ToPtr(MaskPhoneNumber(event.UserPhone)),
		Action:      action,
		Description: &desc,
		IPAddress:   event.Metadata.ipPtr(),
		UserAgent:   event.Metadata.userAgentPtr(),
		RequestID:   event.Metadata.requestIDPtr(),
		Metadata:    meta,
		Success:     &success,
		CreatedAt:   utils.UTCNow(),
	}
	if event.Reason != "" {
		entry.ErrorMessage = utils.ToPtr(event.Reason)
	}
	return o.auditRepo.Save(ctx, entry)
}
