package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProposalRepository implements proposal.Repository for PostgreSQL. The
// single-shot decision invariant lives in the conditional UPDATE, never in
// application-level state checks.
type ProposalRepository struct {
	conn *Connection
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(conn *Connection) *ProposalRepository {
	return &ProposalRepository{conn: conn}
}

const proposalColumns = `id, learner_id, tenant_id, subject, from_level, to_level,
	   direction, rationale, created_by, status, decided_by, decided_at,
	   decision_notes, created_at`

// Create persists a new pending proposal.
func (r *ProposalRepository) Create(ctx context.Context, p *proposal.Proposal) error {
	const query = `
		INSERT INTO difficulty_proposals (
			id, learner_id, tenant_id, subject, from_level, to_level,
			direction, rationale, created_by, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.conn.Exec(ctx, query,
		p.ID,
		p.LearnerID,
		p.TenantID,
		p.Subject,
		int(p.FromLevel),
		int(p.ToLevel),
		string(p.Direction),
		p.Rationale,
		p.CreatedBy,
		string(p.Status),
		p.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

// GetByID returns a proposal by ID.
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*proposal.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM difficulty_proposals WHERE id = $1`, proposalColumns)
	return scanProposal(r.conn.QueryRow(ctx, query, id))
}

// Decide applies the terminal decision conditionally on the row still being
// pending. A decided row is reported as ErrProposalAlreadyDecided and the
// stored decision is left intact; a missing row as ErrProposalNotFound.
func (r *ProposalRepository) Decide(ctx context.Context, p *proposal.Proposal) error {
	const query = `
		UPDATE difficulty_proposals
		SET status = $1, decided_by = $2, decided_at = $3, decision_notes = $4
		WHERE id = $5 AND status = 'pending'
	`
	tag, err := r.conn.Exec(ctx, query,
		string(p.Status),
		p.DecidedBy,
		p.DecidedAt,
		p.DecisionNotes,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to decide proposal: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the proposal is gone or someone decided it first.
	var exists bool
	err = r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM difficulty_proposals WHERE id = $1)`, p.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check proposal: %w", err)
	}
	if !exists {
		return shared.ErrProposalNotFound
	}
	return shared.ErrProposalAlreadyDecided
}

// ListByLearner returns all proposals for a learner, newest first.
func (r *ProposalRepository) ListByLearner(ctx context.Context, tenantID, learnerID string) ([]*proposal.Proposal, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM difficulty_proposals
		WHERE tenant_id = $1 AND learner_id = $2
		ORDER BY created_at DESC, id DESC
	`, proposalColumns)

	rows, err := r.conn.Query(ctx, query, tenantID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()
	return collectProposals(rows)
}

// ListByTenant returns all proposals across the tenant, newest first.
func (r *ProposalRepository) ListByTenant(ctx context.Context, tenantID string) ([]*proposal.Proposal, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM difficulty_proposals
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
	`, proposalColumns)

	rows, err := r.conn.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()
	return collectProposals(rows)
}

func collectProposals(rows pgx.Rows) ([]*proposal.Proposal, error) {
	var out []*proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProposal(row rowScanner) (*proposal.Proposal, error) {
	var (
		p                  proposal.Proposal
		fromLevel, toLevel int
		direction, status  string
		decidedBy, notes   *string
	)
	err := row.Scan(
		&p.ID,
		&p.LearnerID,
		&p.TenantID,
		&p.Subject,
		&fromLevel,
		&toLevel,
		&direction,
		&p.Rationale,
		&p.CreatedBy,
		&status,
		&decidedBy,
		&p.DecidedAt,
		&notes,
		&p.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}

	p.FromLevel = proposal.GradeLevel(fromLevel)
	p.ToLevel = proposal.GradeLevel(toLevel)
	p.Direction = proposal.Direction(direction)
	p.Status = proposal.Status(status)
	if decidedBy != nil {
		p.DecidedBy = *decidedBy
	}
	if notes != nil {
		p.DecisionNotes = *notes
	}
	return &p, nil
}
