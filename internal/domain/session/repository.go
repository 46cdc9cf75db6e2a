package session

import (
	"context"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// Repository defines the persistence contract for sessions. Implementations
// live in infrastructure/persistence and must carry the daily-uniqueness and
// forward-only invariants at the storage layer, not in application code.
type Repository interface {
	// CreateOrGet inserts the session guarded by the unique
	// (learner_id, subject, session_date) constraint. When a concurrent
	// caller already created the row, the pre-existing session is returned
	// and created is false.
	CreateOrGet(ctx context.Context, s *Session) (out *Session, created bool, err error)

	// GetByID returns a session with its activities.
	// Returns ErrSessionNotFound if no such session exists.
	GetByID(ctx context.Context, id string) (*Session, error)

	// FindDaily returns the session for the given daily key, or
	// ErrSessionNotFound.
	FindDaily(ctx context.Context, learnerID string, subject Subject, date shared.DateKey) (*Session, error)

	// Start marks the session active iff it is still planned. Already active
	// or completed sessions are left untouched; started reports whether the
	// row changed.
	Start(ctx context.Context, id string) (started bool, err error)

	// UpdateActivity persists one mutated activity and recomputes the
	// session's derived status and actualMinutes from the stored activity
	// rows in a single transaction, writing the authoritative values back
	// into s. The activity row update is conditional on the previously
	// observed status so a concurrent writer cannot regress the state
	// machine; a lost race surfaces as ErrActivityTransition.
	UpdateActivity(ctx context.Context, s *Session, act *Activity, expectedCurrent ActivityStatus) error
}
