package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
)

// ──────────────────────────────────────────────────────────────────────────────
// ID GENERATOR
// ──────────────────────────────────────────────────────────────────────────────

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) GenerateID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

// ──────────────────────────────────────────────────────────────────────────────
// SESSION REPOSITORY
// ──────────────────────────────────────────────────────────────────────────────

// memSessions stores deep copies, like a real store: callers mutate their own
// snapshot and UpdateActivity reconciles it against the authoritative rows.
type memSessions struct {
	mu       sync.Mutex
	byID     map[string]*session.Session
	failWith error
}

func newMemSessions() *memSessions {
	return &memSessions{byID: make(map[string]*session.Session)}
}

func copySession(s *session.Session) *session.Session {
	cp := *s
	cp.Activities = append([]session.Activity(nil), s.Activities...)
	return &cp
}

func (r *memSessions) dailyKey(learnerID string, subject session.Subject, date shared.DateKey) string {
	return learnerID + "|" + subject.String() + "|" + date.String()
}

func (r *memSessions) CreateOrGet(ctx context.Context, s *session.Session) (*session.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, false, r.failWith
	}
	for _, existing := range r.byID {
		if r.dailyKey(existing.LearnerID, existing.Subject, existing.Date) == r.dailyKey(s.LearnerID, s.Subject, s.Date) {
			return copySession(existing), false, nil
		}
	}
	r.byID[s.ID] = copySession(s)
	return s, true, nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (r *memSessions) FindDaily(ctx context.Context, learnerID string, subject session.Subject, date shared.DateKey) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if r.dailyKey(s.LearnerID, s.Subject, s.Date) == r.dailyKey(learnerID, subject, date) {
			return copySession(s), nil
		}
	}
	return nil, shared.ErrSessionNotFound
}

func (r *memSessions) Start(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return false, shared.ErrSessionNotFound
	}
	if s.Status != session.StatusPlanned {
		if s.Status == session.StatusActive {
			return false, nil
		}
		return false, nil
	}
	s.Status = session.StatusActive
	return true, nil
}

func (r *memSessions) UpdateActivity(ctx context.Context, s *session.Session, act *session.Activity, expectedCurrent session.ActivityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	stored, ok := r.byID[s.ID]
	if !ok {
		return shared.ErrSessionNotFound
	}

	target := stored.Activity(act.ID)
	if target == nil {
		return shared.ErrActivityNotFound
	}
	if target.Status != expectedCurrent {
		return shared.ErrActivityTransition
	}
	target.Status = act.Status
	target.StartedAt = act.StartedAt
	target.CompletedAt = act.CompletedAt

	// Derive status and actualMinutes from the stored rows, as the SQL
	// recompute does, and hand the authoritative values back to the caller.
	allTerminal := true
	actual := 0
	for i := range stored.Activities {
		switch stored.Activities[i].Status {
		case session.ActivityCompleted:
			actual += stored.Activities[i].EstimatedMinutes
		case session.ActivitySkipped:
			// terminal, no minutes
		default:
			allTerminal = false
		}
	}
	if allTerminal {
		stored.Status = session.StatusCompleted
	} else if stored.Status == session.StatusPlanned {
		stored.Status = session.StatusActive
	}
	stored.ActualMinutes = actual

	s.Status = stored.Status
	s.ActualMinutes = stored.ActualMinutes
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// USAGE REPOSITORY
// ──────────────────────────────────────────────────────────────────────────────

type memUsage struct {
	mu     sync.Mutex
	limits map[string]*tenant.Limits
	usage  map[string]*tenant.Usage
}

func newMemUsage() *memUsage {
	return &memUsage{
		limits: make(map[string]*tenant.Limits),
		usage:  make(map[string]*tenant.Usage),
	}
}

func (r *memUsage) usageKey(tenantID string, date shared.DateKey) string {
	return tenantID + "|" + date.String()
}

func (r *memUsage) GetLimits(ctx context.Context, tenantID string) (*tenant.Limits, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limits[tenantID]; ok {
		return l, nil
	}
	return tenant.Unlimited(tenantID), nil
}

func (r *memUsage) PutLimits(ctx context.Context, l *tenant.Limits) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[l.TenantID] = l
	return nil
}

func (r *memUsage) GetUsage(ctx context.Context, tenantID string, date shared.DateKey) (*tenant.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.usage[r.usageKey(tenantID, date)]; ok {
		return u, nil
	}
	return &tenant.Usage{TenantID: tenantID, Date: date}, nil
}

func (r *memUsage) ReserveUsage(ctx context.Context, tenantID string, date shared.DateKey, m tenant.Metric, amount int, limit *int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked(tenantID, date, m, amount, limit)
}

func (r *memUsage) reserveLocked(tenantID string, date shared.DateKey, m tenant.Metric, amount int, limit *int) (int, bool, error) {
	key := r.usageKey(tenantID, date)
	u, ok := r.usage[key]
	if !ok {
		u = &tenant.Usage{TenantID: tenantID, Date: date}
		r.usage[key] = u
	}

	current := u.Value(m)
	if limit != nil && current >= *limit {
		return current, false, nil
	}

	next := current + amount
	switch m {
	case tenant.MetricTutorTurns:
		u.TutorTurns = next
	case tenant.MetricLLMCalls:
		u.LLMCalls = next
	case tenant.MetricSessionStarts:
		u.SessionStarts = next
	}
	u.UpdatedAt = time.Now().UTC()
	return next, true, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SESSION ADMISSION STORE
// ──────────────────────────────────────────────────────────────────────────────

// memAdmission mirrors the transactional postgres store: the insert happens
// only when the conditional increment is admitted.
type memAdmission struct {
	sessions *memSessions
	usage    *memUsage
}

func (a *memAdmission) CreateSessionAdmitted(ctx context.Context, s *session.Session, m tenant.Metric, amount int, limit *int) (*session.Session, bool, int, bool, error) {
	if existing, err := a.sessions.FindDaily(ctx, s.LearnerID, s.Subject, s.Date); err == nil {
		return existing, false, 0, true, nil
	}

	used, admitted, err := a.usage.ReserveUsage(ctx, s.TenantID, s.Date, m, amount, limit)
	if err != nil || !admitted {
		return nil, false, used, admitted, err
	}

	out, created, err := a.sessions.CreateOrGet(ctx, s)
	if err != nil {
		return nil, false, used, true, err
	}
	return out, created, used, true, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PROPOSAL REPOSITORY
// ──────────────────────────────────────────────────────────────────────────────

type memProposals struct {
	mu   sync.Mutex
	byID map[string]*proposal.Proposal
}

func newMemProposals() *memProposals {
	return &memProposals{byID: make(map[string]*proposal.Proposal)}
}

func (r *memProposals) Create(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return shared.ErrAlreadyExists
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProposals) GetByID(ctx context.Context, id string) (*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProposals) Decide(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return shared.ErrProposalNotFound
	}
	if stored.Status != proposal.StatusPending {
		return shared.ErrProposalAlreadyDecided
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProposals) ListByLearner(ctx context.Context, tenantID, learnerID string) ([]*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proposal.Proposal
	for _, p := range r.byID {
		if p.TenantID == tenantID && p.LearnerID == learnerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProposals) ListByTenant(ctx context.Context, tenantID string) ([]*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proposal.Proposal
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────────────────────────────────────

type memNotifications struct {
	mu       sync.Mutex
	byID     map[string]*notification.Notification
	failWith error
}

func newMemNotifications() *memNotifications {
	return &memNotifications{byID: make(map[string]*notification.Notification)}
}

func (r *memNotifications) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	cp := *n
	r.byID[n.ID] = &cp
	return nil
}

func (r *memNotifications) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotifications) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotificationNotFound
	}
	n.MarkRead(time.Now())
	cp := *n
	return &cp, nil
}

func (r *memNotifications) ListByRecipient(ctx context.Context, tenantID, recipientUserID string) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.byID {
		if n.TenantID == tenantID && n.RecipientUserID == recipientUserID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PROFILE READER
// ──────────────────────────────────────────────────────────────────────────────

type stubProfiles struct {
	level proposal.GradeLevel
	err   error
}

func (s stubProfiles) CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.level, nil
}

func intPtr(v int) *int { return &v }
