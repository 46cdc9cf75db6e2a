package command

import (
	"context"
	"fmt"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECIDE PROPOSAL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DecideProposalCommand approves or rejects a pending proposal.
type DecideProposalCommand struct {
	ProposalID string
	TenantID   string
	Approve    bool
	DecidedBy  string
	Notes      string
}

// Validate checks the command fields.
func (c DecideProposalCommand) Validate() error {
	if c.ProposalID == "" {
		return fmt.Errorf("%w: proposal id is required", shared.ErrInvalidInput)
	}
	if c.DecidedBy == "" {
		return fmt.Errorf("%w: decider identity is required", shared.ErrInvalidInput)
	}
	return nil
}

// DecideProposalHandler applies the single-shot caregiver decision. The
// persisted transition is a conditional update on pending status, so under
// concurrent decisions exactly one wins and every other caller gets
// ErrProposalAlreadyDecided.
type DecideProposalHandler struct {
	proposals proposal.Repository
	logger    *logger.Logger
	now       func() time.Time
}

// NewDecideProposalHandler creates a new decide-proposal handler.
func NewDecideProposalHandler(proposals proposal.Repository, log *logger.Logger) *DecideProposalHandler {
	return &DecideProposalHandler{
		proposals: proposals,
		logger:    log.With(logger.Component("decide_proposal")),
		now:       time.Now,
	}
}

// Handle executes the command and returns the decided proposal.
func (h *DecideProposalHandler) Handle(ctx context.Context, cmd DecideProposalCommand) (*proposal.Proposal, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.proposals.GetByID(ctx, cmd.ProposalID)
	if err != nil {
		return nil, err
	}
	if cmd.TenantID != "" && p.TenantID != cmd.TenantID {
		// Cross-tenant probes read as missing, not forbidden.
		return nil, shared.ErrProposalNotFound
	}

	if err := p.Decide(cmd.Approve, cmd.DecidedBy, cmd.Notes, h.now()); err != nil {
		return nil, err
	}
	if err := h.proposals.Decide(ctx, p); err != nil {
		return nil, err
	}

	h.logger.Info("difficulty proposal decided",
		logger.ProposalID(p.ID),
		logger.String("status", string(p.Status)),
		logger.String("decided_by", p.DecidedBy),
	)
	return p, nil
}
