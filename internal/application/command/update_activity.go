package command

import (
	"context"
	"fmt"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/fanout"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ACTIVITY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateActivityCommand moves one activity of a session to the requested
// state. Only forward transitions are legal; anything else is a conflict.
type UpdateActivityCommand struct {
	SessionID  string
	ActivityID string
	TenantID   string
	Requested  session.ActivityStatus
}

// Validate checks the command fields.
func (c UpdateActivityCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}
	if c.ActivityID == "" {
		return fmt.Errorf("%w: activity id is required", shared.ErrInvalidInput)
	}
	if !c.Requested.IsValid() {
		return fmt.Errorf("%w: unknown activity status %q", shared.ErrInvalidInput, c.Requested)
	}
	return nil
}

// UpdateActivityResult carries the session after the transition. Completed is
// true when this very update drove the session into its completed state.
type UpdateActivityResult struct {
	Session   *session.Session
	Activity  *session.Activity
	Completed bool
}

// UpdateActivityHandler applies activity transitions and fires the
// session-completed fan-out when the last activity lands in a terminal state.
type UpdateActivityHandler struct {
	sessions session.Repository
	fanout   *fanout.Fanout
	logger   *logger.Logger
	now      func() time.Time
}

// NewUpdateActivityHandler creates a new update-activity handler.
func NewUpdateActivityHandler(sessions session.Repository, fan *fanout.Fanout, log *logger.Logger) *UpdateActivityHandler {
	return &UpdateActivityHandler{
		sessions: sessions,
		fanout:   fan,
		logger:   log.With(logger.Component("update_activity")),
		now:      time.Now,
	}
}

// Handle executes the command. The persisted update is conditional on the
// activity status the handler observed, so two concurrent updates cannot both
// win; the loser gets a conflict and retries against fresh state.
func (h *UpdateActivityHandler) Handle(ctx context.Context, cmd UpdateActivityCommand) (*UpdateActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, err := h.sessions.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if cmd.TenantID != "" && s.TenantID != cmd.TenantID {
		// Cross-tenant probes read as missing, not forbidden.
		return nil, shared.ErrSessionNotFound
	}

	act := s.Activity(cmd.ActivityID)
	if act == nil {
		return nil, shared.ErrActivityNotFound
	}
	observed := act.Status

	wasCompleted := s.IsCompleted()
	if _, err := s.ApplyActivityStatus(cmd.ActivityID, cmd.Requested, h.now()); err != nil {
		return nil, err
	}

	if err := h.sessions.UpdateActivity(ctx, s, act, observed); err != nil {
		return nil, err
	}

	completed := !wasCompleted && s.IsCompleted()
	if completed {
		h.logger.Info("daily session completed",
			logger.SessionID(s.ID),
			logger.LearnerID(s.LearnerID),
			logger.Int("actual_minutes", s.ActualMinutes),
		)
		if h.fanout != nil {
			// Best effort: a fan-out failure never fails the update.
			if _, err := h.fanout.SessionCompleted(ctx, s); err != nil {
				h.logger.Warn("session completion fanout degraded",
					logger.SessionID(s.ID),
					logger.Err(err),
				)
			}
		}
	}

	return &UpdateActivityResult{Session: s, Activity: act, Completed: completed}, nil
}
