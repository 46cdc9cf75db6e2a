package query

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST PROPOSALS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListProposalsQuery lists difficulty proposals within a tenant, optionally
// narrowed to one learner. Status filtering happens in memory; the volumes
// per learner are tiny.
type ListProposalsQuery struct {
	TenantID  string
	LearnerID string
	Status    proposal.Status
}

// Validate checks the query fields.
func (q ListProposalsQuery) Validate() error {
	if q.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", shared.ErrInvalidInput)
	}
	if q.Status != "" && !q.Status.IsValid() {
		return fmt.Errorf("%w: unknown proposal status %q", shared.ErrInvalidInput, q.Status)
	}
	return nil
}

// ListProposalsHandler resolves proposal listings.
type ListProposalsHandler struct {
	proposals proposal.Repository
}

// NewListProposalsHandler creates a new handler.
func NewListProposalsHandler(proposals proposal.Repository) *ListProposalsHandler {
	return &ListProposalsHandler{proposals: proposals}
}

// Handle returns the matching proposals, newest first.
func (h *ListProposalsHandler) Handle(ctx context.Context, q ListProposalsQuery) ([]*proposal.Proposal, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		items []*proposal.Proposal
		err   error
	)
	if q.LearnerID != "" {
		items, err = h.proposals.ListByLearner(ctx, q.TenantID, q.LearnerID)
	} else {
		items, err = h.proposals.ListByTenant(ctx, q.TenantID)
	}
	if err != nil {
		return nil, err
	}

	if q.Status == "" {
		return items, nil
	}
	filtered := make([]*proposal.Proposal, 0, len(items))
	for _, p := range items {
		if p.Status == q.Status {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
