// Package session contains the learning-session domain model: the daily
// session owned by a learner and the bounded activity state machine inside it.
// This is the core of the business logic - there are no external dependencies
// here beyond the shared domain package.
package session

import (
	"strings"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Subject identifies the school subject a session is tutoring.
type Subject string

// IsValid checks that the subject is a non-empty, reasonably sized token.
func (s Subject) IsValid() bool {
	v := string(s)
	return len(v) >= 2 && len(v) <= 50 && !strings.ContainsAny(v, " \t\n\r")
}

// String returns the string representation of the subject.
func (s Subject) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusPlanned - the session exists but tutoring has not begun.
	StatusPlanned Status = "planned"
	// StatusActive - the learner is working through the session.
	StatusActive Status = "active"
	// StatusCompleted - every activity reached a terminal state. Terminal.
	StatusCompleted Status = "completed"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further session transition is defined.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// ActivityStatus is the lifecycle state of a single activity.
type ActivityStatus string

const (
	// ActivityPending - the activity has not been touched yet.
	ActivityPending ActivityStatus = "pending"
	// ActivityInProgress - the learner is working on the activity.
	ActivityInProgress ActivityStatus = "in_progress"
	// ActivityCompleted - the activity was finished. Terminal.
	ActivityCompleted ActivityStatus = "completed"
	// ActivitySkipped - the activity was skipped. Terminal.
	ActivitySkipped ActivityStatus = "skipped"
)

// IsValid checks that the activity status is one of the known values.
func (s ActivityStatus) IsValid() bool {
	switch s {
	case ActivityPending, ActivityInProgress, ActivityCompleted, ActivitySkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the activity can no longer change state.
func (s ActivityStatus) IsTerminal() bool {
	return s == ActivityCompleted || s == ActivitySkipped
}

// rank orders activity statuses along the forward path. Both terminal states
// share the highest rank so neither can be reached from the other.
func (s ActivityStatus) rank() int {
	switch s {
	case ActivityPending:
		return 0
	case ActivityInProgress:
		return 1
	case ActivityCompleted, ActivitySkipped:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a strictly forward
// transition. Requests to an earlier-or-equal state are rejected, as is any
// move out of a terminal state.
func (s ActivityStatus) CanTransitionTo(next ActivityStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// ActivityType identifies one of the fixed daily template steps.
type ActivityType string

const (
	ActivityTypeCalmCheckin    ActivityType = "calm_checkin"
	ActivityTypeMicroLesson    ActivityType = "micro_lesson"
	ActivityTypeGuidedPractice ActivityType = "guided_practice"
	ActivityTypeReflection     ActivityType = "reflection"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Activity is a single step inside a session. Activities are nested under
// their session and mutated only through status updates.
type Activity struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// SessionID - the owning session.
	SessionID string

	// Type - which template step this activity is.
	Type ActivityType

	// Title - learner-facing title.
	Title string

	// Instructions - learner-facing instructions.
	Instructions string

	// EstimatedMinutes - planned duration of the step.
	EstimatedMinutes int

	// Status - current state in the activity state machine.
	Status ActivityStatus

	// Position - ordering of the step within the session.
	Position int

	// StartedAt is stamped when the activity first enters in_progress.
	StartedAt *time.Time

	// CompletedAt is stamped when the activity reaches a terminal state.
	CompletedAt *time.Time
}

// Session is the daily tutoring session for one learner and subject. It is
// immutable history once created: sessions are never deleted, only advanced.
type Session struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// LearnerID - the learner the session belongs to.
	LearnerID string

	// TenantID - the tenant (district/school) the learner belongs to.
	TenantID string

	// Subject - the subject being tutored.
	Subject Subject

	// Date - calendar day key; at most one session exists per
	// (learner, subject, date).
	Date shared.DateKey

	// Status - current state in the session state machine.
	Status Status

	// PlannedMinutes - sum of estimated minutes over all activities.
	PlannedMinutes int

	// ActualMinutes - sum of estimated minutes over completed (not skipped)
	// activities. Derived; only meaningful once activities start finishing.
	ActualMinutes int

	// Activities - the ordered template steps.
	Activities []Activity

	// CreatedAt - time the row was created.
	CreatedAt time.Time

	// UpdatedAt - time of the last mutation.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY TEMPLATE
// ══════════════════════════════════════════════════════════════════════════════

// TemplateStep describes one step of the fixed daily session template.
type TemplateStep struct {
	Type             ActivityType
	Title            string
	Instructions     string
	EstimatedMinutes int
}

// DailyTemplate returns the fixed four-step template every new daily session
// is synthesized from.
func DailyTemplate() []TemplateStep {
	return []TemplateStep{
		{
			Type:             ActivityTypeCalmCheckin,
			Title:            "Calm check-in",
			Instructions:     "Take a moment to settle in and share how you are feeling today.",
			EstimatedMinutes: 3,
		},
		{
			Type:             ActivityTypeMicroLesson,
			Title:            "Micro lesson",
			Instructions:     "Work through today's short lesson at your own pace.",
			EstimatedMinutes: 10,
		},
		{
			Type:             ActivityTypeGuidedPractice,
			Title:            "Guided practice",
			Instructions:     "Practice what you just learned with step-by-step guidance.",
			EstimatedMinutes: 10,
		},
		{
			Type:             ActivityTypeReflection,
			Title:            "Reflection",
			Instructions:     "Look back on the session: what went well, what was hard?",
			EstimatedMinutes: 2,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewSessionParams contains the parameters for synthesizing a daily session.
type NewSessionParams struct {
	LearnerID string
	TenantID  string
	Subject   Subject
	Date      shared.DateKey

	// NewID generates collision-resistant identifiers for the session and its
	// activities. Must not be nil.
	NewID func() string
}

// NewDailySession synthesizes a planned session from the fixed daily template.
func NewDailySession(params NewSessionParams) (*Session, error) {
	if params.LearnerID == "" {
		return nil, shared.NewDomainError("session", "Create", shared.ErrEmptyValue, "learner id is required")
	}
	if params.TenantID == "" {
		return nil, shared.NewDomainError("session", "Create", shared.ErrEmptyValue, "tenant id is required")
	}
	if !params.Subject.IsValid() {
		return nil, shared.NewDomainError("session", "Create", shared.ErrInvalidInput, "invalid subject")
	}
	if !params.Date.IsValid() {
		return nil, shared.NewDomainError("session", "Create", shared.ErrInvalidInput, "invalid date key")
	}
	if params.NewID == nil {
		return nil, shared.NewDomainError("session", "Create", shared.ErrInvalidInput, "id generator is required")
	}

	now := time.Now().UTC()

	s := &Session{
		ID:        params.NewID(),
		LearnerID: params.LearnerID,
		TenantID:  params.TenantID,
		Subject:   params.Subject,
		Date:      params.Date,
		Status:    StatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	planned := 0
	for i, step := range DailyTemplate() {
		s.Activities = append(s.Activities, Activity{
			ID:               params.NewID(),
			SessionID:        s.ID,
			Type:             step.Type,
			Title:            step.Title,
			Instructions:     step.Instructions,
			EstimatedMinutes: step.EstimatedMinutes,
			Status:           ActivityPending,
			Position:         i,
		})
		planned += step.EstimatedMinutes
	}
	s.PlannedMinutes = planned

	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Start transitions the session from planned to active. Starting an already
// active or completed session is an idempotent no-op; the returned flag
// reports whether anything changed.
func (s *Session) Start() bool {
	if s.Status != StatusPlanned {
		return false
	}
	s.Status = StatusActive
	s.UpdatedAt = time.Now().UTC()
	return true
}

// Activity returns the activity with the given ID, or nil.
func (s *Session) Activity(activityID string) *Activity {
	for i := range s.Activities {
		if s.Activities[i].ID == activityID {
			return &s.Activities[i]
		}
	}
	return nil
}

// ApplyActivityStatus moves one activity to the requested state, stamping
// startedAt/completedAt, and recomputes the session's derived fields. The
// returned activity is the mutated one; callers persist it together with the
// derived session fields in a single transaction.
func (s *Session) ApplyActivityStatus(activityID string, requested ActivityStatus, now time.Time) (*Activity, error) {
	act := s.Activity(activityID)
	if act == nil {
		return nil, shared.ErrActivityNotFound
	}
	if !requested.IsValid() {
		return nil, shared.NewDomainError("session", "UpdateActivity", shared.ErrInvalidInput, "unknown activity status")
	}
	if !act.Status.CanTransitionTo(requested) {
		return nil, shared.ErrActivityTransition
	}

	now = now.UTC()
	if requested == ActivityInProgress && act.StartedAt == nil {
		t := now
		act.StartedAt = &t
	}
	if requested.IsTerminal() {
		t := now
		act.CompletedAt = &t
	}
	act.Status = requested

	s.recompute(now)
	return act, nil
}

// recompute derives session status and actualMinutes from activity states.
// The session is completed iff every activity is terminal; actualMinutes sums
// estimates over completed activities only.
func (s *Session) recompute(now time.Time) {
	allTerminal := true
	actual := 0
	for i := range s.Activities {
		switch s.Activities[i].Status {
		case ActivityCompleted:
			actual += s.Activities[i].EstimatedMinutes
		case ActivitySkipped:
			// terminal, but contributes no minutes
		default:
			allTerminal = false
		}
	}

	if allTerminal {
		s.Status = StatusCompleted
		s.ActualMinutes = actual
	} else {
		s.ActualMinutes = actual
		if s.Status == StatusPlanned {
			// Touching an activity implies the session is underway.
			s.Status = StatusActive
		}
	}
	s.UpdatedAt = now
}

// IsCompleted reports whether every activity reached a terminal state.
func (s *Session) IsCompleted() bool {
	return s.Status == StatusCompleted
}
