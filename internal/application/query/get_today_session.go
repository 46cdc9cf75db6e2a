// Package query contains the read-side handlers. Queries never mutate state
// and never reserve quota.
package query

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TODAY SESSION QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetTodaySessionQuery looks up the learner's daily session for a subject.
type GetTodaySessionQuery struct {
	LearnerID string
	TenantID  string
	Subject   session.Subject
	Date      shared.DateKey
}

// Validate checks the query fields.
func (q GetTodaySessionQuery) Validate() error {
	if q.LearnerID == "" {
		return fmt.Errorf("%w: learner id is required", shared.ErrInvalidInput)
	}
	if !q.Subject.IsValid() {
		return fmt.Errorf("%w: unknown subject %q", shared.ErrInvalidInput, q.Subject)
	}
	if !q.Date.IsValid() {
		return fmt.Errorf("%w: malformed date %q", shared.ErrInvalidInput, q.Date)
	}
	return nil
}

// GetTodaySessionHandler resolves the daily session.
type GetTodaySessionHandler struct {
	sessions session.Repository
}

// NewGetTodaySessionHandler creates a new handler.
func NewGetTodaySessionHandler(sessions session.Repository) *GetTodaySessionHandler {
	return &GetTodaySessionHandler{sessions: sessions}
}

// Handle returns the session for the day, or nil when none exists yet. A
// missing session is a normal outcome here, not an error; the learner simply
// has not started.
func (h *GetTodaySessionHandler) Handle(ctx context.Context, q GetTodaySessionQuery) (*session.Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s, err := h.sessions.FindDaily(ctx, q.LearnerID, q.Subject, q.Date)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if q.TenantID != "" && s.TenantID != q.TenantID {
		return nil, nil
	}
	return s, nil
}
