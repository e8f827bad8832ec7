package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/google/uuid"
)

// fakeSourceRepo keeps source numbers ordered by id
type fakeSourceRepo struct {
	mu       sync.Mutex
	items    []*models.SourceNumber
	nextID   uint
	countErr error
}

func newFakeSourceRepo(phones ...string) *fakeSourceRepo {
	r := &fakeSourceRepo{}
	for _, p := range phones {
		_ = r.Save(context.Background(), &models.SourceNumber{UUID: uuid.New(), PhoneNumber: p, IsActive: utils.ToPtr(true)})
	}
	return r
}

func (r *fakeSourceRepo) byPhone(phone string) *models.SourceNumber {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.PhoneNumber == phone {
			return s
		}
	}
	return nil
}

func (r *fakeSourceRepo) active(exclude *string) []*models.SourceNumber {
	var out []*models.SourceNumber
	for _, s := range r.items {
		if !utils.IsTrue(s.IsActive) {
			continue
		}
		if exclude != nil && s.PhoneNumber == *exclude {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *fakeSourceRepo) ByID(ctx context.Context, id uint) (*models.SourceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.ID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSourceRepo) ByFilter(ctx context.Context, filter models.SourceNumberFilter, orderBy string, limit, offset int) ([]*models.SourceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SourceNumber, 0, len(r.items))
	for _, s := range r.items {
		if filter.PhoneNumber != nil && s.PhoneNumber != *filter.PhoneNumber {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	if orderBy == "id DESC" {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return out, nil
}

func (r *fakeSourceRepo) Save(ctx context.Context, s *models.SourceNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	c := *s
	r.items = append(r.items, &c)
	return nil
}

func (r *fakeSourceRepo) SaveBatch(ctx context.Context, items []*models.SourceNumber) error {
	for _, s := range items {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSourceRepo) Count(ctx context.Context, filter models.SourceNumberFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeSourceRepo) Exists(ctx context.Context, filter models.SourceNumberFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeSourceRepo) ByUUID(ctx context.Context, id string) (*models.SourceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.UUID.String() == id {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSourceRepo) ByPhoneNumber(ctx context.Context, phone string) (*models.SourceNumber, error) {
	s := r.byPhone(phone)
	if s == nil {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *fakeSourceRepo) CountActive(ctx context.Context, exclude *string) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.active(exclude))), nil
}

func (r *fakeSourceRepo) ActiveAt(ctx context.Context, exclude *string, offset int64) (*models.SourceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := r.active(exclude)
	if offset < 0 || offset >= int64(len(active)) {
		return nil, nil
	}
	c := *active[offset]
	return &c, nil
}

func (r *fakeSourceRepo) Update(ctx context.Context, s *models.SourceNumberUpdate) error {
	return r.UpdateBatch(ctx, []*models.SourceNumberUpdate{s})
}

func (r *fakeSourceRepo) UpdateBatch(ctx context.Context, items []*models.SourceNumberUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range items {
		var found *models.SourceNumber
		for _, s := range r.items {
			if s.ID == u.ID {
				found = s
			}
		}
		if found == nil {
			return fmt.Errorf("%w: id %d", repository.ErrSourceNumberNotFound, u.ID)
		}
		if u.Label != nil {
			found.Label = *u.Label
		}
		if u.IsActive != nil {
			found.IsActive = utils.ToPtr(*u.IsActive)
		}
	}
	return nil
}

// deactivate flips a number off without going through the flow
func (r *fakeSourceRepo) deactivate(phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.PhoneNumber == phone {
			s.IsActive = utils.ToPtr(false)
		}
	}
}

// fakeSessionRepo applies the same conditional updates as the SQL implementation under one mutex.
// withSource is called with mu held; it only takes the source repo's own lock.
type fakeSessionRepo struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]*models.VerificationSession
	sources    *fakeSourceRepo
	lastErr    error
	saveErr    error
	findErr    error
	markCalls  int
	increments int
}

func newFakeSessionRepo(sources *fakeSourceRepo) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*models.VerificationSession), sources: sources}
}

func (r *fakeSessionRepo) withSource(s *models.VerificationSession) *models.VerificationSession {
	c := *s
	if src, _ := r.sources.ByID(context.Background(), s.SourceNumberID); src != nil {
		c.SourceNumber = *src
	}
	return &c
}

func (r *fakeSessionRepo) snapshot() map[uuid.UUID]models.VerificationSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]models.VerificationSession, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = *s
	}
	return out
}

func (r *fakeSessionRepo) restore(snap map[uuid.UUID]models.VerificationSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[uuid.UUID]*models.VerificationSession, len(snap))
	for id, s := range snap {
		c := s
		r.sessions[id] = &c
	}
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *fakeSessionRepo) get(id uuid.UUID) *models.VerificationSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (r *fakeSessionRepo) ByID(ctx context.Context, id uuid.UUID) (*models.VerificationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return r.withSource(s), nil
}

func (r *fakeSessionRepo) ByFilter(ctx context.Context, filter models.VerificationSessionFilter, orderBy string, limit, offset int) ([]*models.VerificationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.VerificationSession
	for _, s := range r.sessions {
		if filter.UserPhone != nil && s.UserPhone != *filter.UserPhone {
			continue
		}
		out = append(out, r.withSource(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(ctx context.Context, s *models.VerificationSession) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return errors.New("expires_at must be after created_at")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, filter models.VerificationSessionFilter) (int64, error) {
	items, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), nil
}

func (r *fakeSessionRepo) Exists(ctx context.Context, filter models.VerificationSessionFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeSessionRepo) FindLatestPending(ctx context.Context, phone string) (*models.VerificationSession, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.VerificationSession
	for _, s := range r.sessions {
		if s.UserPhone != phone || s.IsVerified {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return r.withSource(latest), nil
}

func (r *fakeSessionRepo) LastSenderForPhone(ctx context.Context, phone string) (*string, error) {
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.VerificationSession
	for _, s := range r.sessions {
		if s.UserPhone == phone && (latest == nil || s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	src, _ := r.sources.ByID(ctx, latest.SourceNumberID)
	if src == nil {
		return nil, nil
	}
	return &src.PhoneNumber, nil
}

func (r *fakeSessionRepo) IncrementAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (*models.VerificationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.IsVerified || s.AttemptCount >= maxAttempts {
		return nil, repository.ErrSessionNotPending
	}
	s.AttemptCount++
	r.increments++
	return r.withSource(s), nil
}

func (r *fakeSessionRepo) MarkVerified(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int) (*models.VerificationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	s, ok := r.sessions[id]
	if ok && !s.IsVerified && s.ExpiresAt.After(now) && s.AttemptCount < maxAttempts {
		s.IsVerified = true
		s.VerifiedAt = &now
		return r.withSource(s), nil
	}
	if ok && s.IsVerified {
		return nil, repository.ErrSessionAlreadyVerified
	}
	return nil, repository.ErrSessionNotPending
}

func (r *fakeSessionRepo) ExpireByIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok && s.ExpiresAt.After(now) {
			s.ExpiresAt = now
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) CountBySourceNumber(ctx context.Context, ids []uint) (map[uint]models.SourceNumberUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uint]models.SourceNumberUsage)
	now := time.Now()
	for _, s := range r.sessions {
		if !want[s.SourceNumberID] {
			continue
		}
		u := out[s.SourceNumberID]
		u.SourceNumberID = s.SourceNumberID
		u.Total++
		if s.IsVerified {
			u.Verified++
		} else if s.ExpiresAt.After(now) {
			u.Pending++
		}
		out[s.SourceNumberID] = u
	}
	return out, nil
}

// fakeTransactor restores the session table when fn fails
type fakeTransactor struct {
	sessions *fakeSessionRepo
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.sessions.snapshot()
	if err := fn(ctx); err != nil {
		t.sessions.restore(snap)
		return err
	}
	return nil
}

type fakeSenderCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeSenderCache() *fakeSenderCache {
	return &fakeSenderCache{values: make(map[string]string)}
}

func (c *fakeSenderCache) Get(ctx context.Context, phone string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[phone]
	return v, ok, nil
}

func (c *fakeSenderCache) Set(ctx context.Context, phone, sender string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[phone] = sender
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	saveErr error
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.AuditLog(nil), r.entries...), nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, e *models.AuditLog) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entries []*models.AuditLog) error {
	for _, e := range entries {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeAuditRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

// recordingObserver captures published events
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (o *recordingObserver) Name() string { return "recording" }

func (o *recordingObserver) Notify(ctx context.Context, e Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return o.err
}

func (o *recordingObserver) kinds() []EventKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EventKind, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.Kind)
	}
	return out
}
