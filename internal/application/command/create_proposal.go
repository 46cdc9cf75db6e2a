package command

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/admission"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/fanout"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROPOSAL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ProfileReader reads the learner's current assessed grade level from the
// brain-profile service. Implementations are expected to bound the call with
// a timeout and surface shared.ErrBrainProfileTimeout or
// shared.ErrBrainProfileUnavailable when the upstream misbehaves.
type ProfileReader interface {
	CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error)
}

// CreateProposalCommand requests a difficulty-change proposal for a learner
// in a subject. FromLevel is never client-supplied; it is read from the
// learner's brain profile at creation time.
type CreateProposalCommand struct {
	LearnerID string
	TenantID  string
	Subject   string
	ToLevel   proposal.GradeLevel
	Rationale string
	CreatedBy string
}

// Validate checks the command fields.
func (c CreateProposalCommand) Validate() error {
	if c.LearnerID == "" {
		return fmt.Errorf("%w: learner id is required", shared.ErrInvalidInput)
	}
	if c.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", shared.ErrInvalidInput)
	}
	if c.Subject == "" {
		return fmt.Errorf("%w: subject is required", shared.ErrInvalidInput)
	}
	if !c.ToLevel.IsValid() {
		return shared.ErrInvalidGradeLevel
	}
	if c.CreatedBy == "" {
		return fmt.Errorf("%w: creator identity is required", shared.ErrInvalidInput)
	}
	return nil
}

// CreateProposalResult reports the persisted proposal and any degradations
// accepted along the way. Degradations never fail the creation; clients see
// them so support can follow up.
type CreateProposalResult struct {
	Proposal     *proposal.Proposal
	Notification bool
	Degradations []string
}

// CreateProposalHandler creates difficulty proposals: meters the call against
// the tenant's llm-call quota, reads the current level from the brain
// profile, persists the proposal and fans a caregiver notification out.
type CreateProposalHandler struct {
	proposals proposal.Repository
	profiles  ProfileReader
	gate      *admission.Gate
	fanout    *fanout.Fanout
	ids       IDGenerator
	logger    *logger.Logger
}

// NewCreateProposalHandler creates a new create-proposal handler.
func NewCreateProposalHandler(
	proposals proposal.Repository,
	profiles ProfileReader,
	gate *admission.Gate,
	fan *fanout.Fanout,
	ids IDGenerator,
	log *logger.Logger,
) *CreateProposalHandler {
	return &CreateProposalHandler{
		proposals: proposals,
		profiles:  profiles,
		gate:      gate,
		fanout:    fan,
		ids:       ids,
		logger:    log.With(logger.Component("create_proposal")),
	}
}

// Handle executes the command.
//
// An unreachable or slow brain profile does not block the workflow: the
// platform default grade level stands in for the current one and the
// substitution is recorded as a degradation on the result.
func (h *CreateProposalHandler) Handle(ctx context.Context, cmd CreateProposalCommand) (*CreateProposalResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// Proposal creation triggers downstream AI work, so it is metered
	// against the tenant's daily llm-call quota.
	if h.gate != nil {
		if _, err := h.gate.CheckAndReserve(ctx, cmd.TenantID, shared.Today(), tenant.MetricLLMCalls, 1); err != nil {
			return nil, err
		}
	}

	result := &CreateProposalResult{}

	from, err := h.profiles.CurrentGradeLevel(ctx, cmd.TenantID, cmd.LearnerID, cmd.Subject)
	if err != nil {
		if !shared.IsUpstreamUnavailable(err) {
			return nil, fmt.Errorf("create proposal: read brain profile: %w", err)
		}
		from = proposal.DefaultGradeLevel
		result.Degradations = append(result.Degradations, "brain_profile_unavailable")
		h.logger.Warn("brain profile unavailable, using default grade level",
			logger.LearnerID(cmd.LearnerID),
			logger.TenantID(cmd.TenantID),
			logger.Err(err),
		)
	}

	p, err := proposal.NewProposal(proposal.NewProposalParams{
		ID:        h.ids.GenerateID(),
		LearnerID: cmd.LearnerID,
		TenantID:  cmd.TenantID,
		Subject:   cmd.Subject,
		FromLevel: from,
		ToLevel:   cmd.ToLevel,
		Rationale: cmd.Rationale,
		CreatedBy: cmd.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := h.proposals.Create(ctx, p); err != nil {
		return nil, err
	}
	result.Proposal = p

	h.logger.Info("difficulty proposal created",
		logger.ProposalID(p.ID),
		logger.LearnerID(p.LearnerID),
		logger.Subject(p.Subject),
		logger.String("direction", string(p.Direction)),
	)

	if h.fanout != nil {
		// Best effort: the proposal stands even when the caregiver cannot
		// be notified.
		if _, err := h.fanout.ProposalCreated(ctx, p); err != nil {
			result.Degradations = append(result.Degradations, "notification_failed")
		} else {
			result.Notification = true
		}
	}

	return result, nil
}
