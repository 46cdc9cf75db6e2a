package command

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/admission"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator produces identifiers for newly created aggregates.
type IDGenerator interface {
	GenerateID() string
}

// StartSessionCommand requests that the learner's daily session for the
// subject exist and be active. Starting is idempotent: repeated calls for the
// same day converge on the same session.
type StartSessionCommand struct {
	LearnerID string
	TenantID  string
	Subject   session.Subject
	Date      shared.DateKey
}

// Validate checks the command fields.
func (c StartSessionCommand) Validate() error {
	if c.LearnerID == "" {
		return fmt.Errorf("%w: learner id is required", shared.ErrInvalidInput)
	}
	if c.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", shared.ErrInvalidInput)
	}
	if !c.Subject.IsValid() {
		return fmt.Errorf("%w: unknown subject %q", shared.ErrInvalidInput, c.Subject)
	}
	if !c.Date.IsValid() {
		return fmt.Errorf("%w: malformed date %q", shared.ErrInvalidInput, c.Date)
	}
	return nil
}

// StartSessionResult reports the session the caller converged on. Created is
// true only for the call whose insert created the row; that call is also the
// only one charged against the tenant's quota.
type StartSessionResult struct {
	Session     *session.Session
	Created     bool
	Reservation tenant.Reservation
}

// StartSessionHandler creates or resumes the daily session. Creation and the
// quota reservation happen in one storage transaction behind the admission
// gate, so two concurrent starts can never produce two rows or two
// increments.
type StartSessionHandler struct {
	sessions session.Repository
	gate     *admission.Gate
	ids      IDGenerator
	logger   *logger.Logger
}

// NewStartSessionHandler creates a new start-session handler.
func NewStartSessionHandler(sessions session.Repository, gate *admission.Gate, ids IDGenerator, log *logger.Logger) *StartSessionHandler {
	return &StartSessionHandler{
		sessions: sessions,
		gate:     gate,
		ids:      ids,
		logger:   log.With(logger.Component("start_session")),
	}
}

// Handle executes the command.
//
// A caller that lands on a pre-existing session for the day resumes it
// without a further quota increment. Quota is consumed exactly once, by the
// call whose insert created the row; a denied reservation leaves no row and
// no increment behind.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// Fast path: the day's session already exists, resume it.
	existing, err := h.sessions.FindDaily(ctx, cmd.LearnerID, cmd.Subject, cmd.Date)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("start session: find daily: %w", err)
	}
	if existing != nil {
		if existing.TenantID != cmd.TenantID {
			// Cross-tenant probes read as missing, not forbidden.
			return nil, shared.ErrSessionNotFound
		}
		return h.resume(ctx, existing, tenant.Reservation{}, false)
	}

	fresh, err := session.NewDailySession(session.NewSessionParams{
		LearnerID: cmd.LearnerID,
		TenantID:  cmd.TenantID,
		Subject:   cmd.Subject,
		Date:      cmd.Date,
		NewID:     h.ids.GenerateID,
	})
	if err != nil {
		return nil, err
	}

	out, created, res, err := h.gate.AdmitSessionStart(ctx, fresh, tenant.MetricTutorTurns, 1)
	if err != nil {
		return nil, err
	}
	if !created {
		if out.TenantID != cmd.TenantID {
			// A foreign tenant's row won the day; treat it as missing.
			return nil, shared.ErrSessionNotFound
		}
		// Lost the creation race; the winner paid the quota.
		return h.resume(ctx, out, res, false)
	}

	h.logger.Info("daily session created",
		logger.SessionID(out.ID),
		logger.LearnerID(out.LearnerID),
		logger.TenantID(out.TenantID),
		logger.Subject(string(out.Subject)),
	)
	return h.resume(ctx, out, res, true)
}

// resume transitions the session to active if it is still planned.
func (h *StartSessionHandler) resume(ctx context.Context, s *session.Session, res tenant.Reservation, created bool) (*StartSessionResult, error) {
	if s.Start() {
		started, err := h.sessions.Start(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("start session: persist start: %w", err)
		}
		if !started {
			// A concurrent caller started it first; reload for fresh state.
			reloaded, err := h.sessions.GetByID(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("start session: reload: %w", err)
			}
			s = reloaded
		}
	}
	return &StartSessionResult{Session: s, Created: created, Reservation: res}, nil
}
