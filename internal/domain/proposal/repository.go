package proposal

import "context"

// Repository defines the persistence contract for proposals. The single-shot
// decision invariant is carried in storage: Decide updates conditionally on
// the row still being pending.
type Repository interface {
	// Create persists a new pending proposal.
	Create(ctx context.Context, p *Proposal) error

	// GetByID returns a proposal, or ErrProposalNotFound.
	GetByID(ctx context.Context, id string) (*Proposal, error)

	// Decide applies the terminal decision with a conditional update
	// (WHERE status = 'pending'). A row that was already decided surfaces as
	// ErrProposalAlreadyDecided; the stored decision is left intact.
	Decide(ctx context.Context, p *Proposal) error

	// ListByLearner returns all proposals for a learner, newest first.
	ListByLearner(ctx context.Context, tenantID, learnerID string) ([]*Proposal, error)

	// ListByTenant returns all proposals across the tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]*Proposal, error)
}
