// Package proposal contains the difficulty-change proposal domain model: a
// proposed change to the grade level at which a learner is served content in
// a subject, subject to caregiver approval.
package proposal

import (
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// GradeLevel is an assessed grade level (K-12 style, 0 = kindergarten).
type GradeLevel int

// Supported grade range.
const (
	MinGradeLevel GradeLevel = 0
	MaxGradeLevel GradeLevel = 12

	// DefaultGradeLevel is the platform default applied when a learner's
	// brain profile is absent or unreachable.
	DefaultGradeLevel GradeLevel = 3
)

// IsValid checks that the grade level is inside the supported range.
func (g GradeLevel) IsValid() bool {
	return g >= MinGradeLevel && g <= MaxGradeLevel
}

// Direction describes how a proposal moves the learner's difficulty.
type Direction string

const (
	// DirectionHarder - the target level is above the current one.
	DirectionHarder Direction = "harder"
	// DirectionEasier - the target level is below the current one.
	DirectionEasier Direction = "easier"
	// DirectionMaintain - the target level equals the current one. The equal
	// case is a deliberate policy choice: the proposal still goes through
	// caregiver review, it just does not move the level.
	DirectionMaintain Direction = "maintain"
)

// DeriveDirection is the single source of truth for direction derivation:
// harder when the target exceeds the source, easier when below, maintain when
// equal. All call sites must go through this function.
func DeriveDirection(from, to GradeLevel) Direction {
	switch {
	case to > from:
		return DirectionHarder
	case to < from:
		return DirectionEasier
	default:
		return DirectionMaintain
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a proposal.
type Status string

const (
	// StatusPending - awaiting a caregiver decision.
	StatusPending Status = "pending"
	// StatusApproved - accepted by a caregiver. Terminal.
	StatusApproved Status = "approved"
	// StatusRejected - declined by a caregiver. Terminal.
	StatusRejected Status = "rejected"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the proposal can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DefaultRationale is recorded when the proposer supplies no rationale.
const DefaultRationale = "Suggested by the tutoring system based on recent session performance."

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Proposal is a difficulty-change proposal. It is created once, transitions
// exactly once out of pending, and is immutable thereafter.
type Proposal struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// LearnerID - the learner whose difficulty would change.
	LearnerID string

	// TenantID - the tenant the learner belongs to.
	TenantID string

	// Subject - the subject the change applies to.
	Subject string

	// FromLevel - the learner's current assessed grade level.
	FromLevel GradeLevel

	// ToLevel - the proposed assessed grade level.
	ToLevel GradeLevel

	// Direction - derived from FromLevel and ToLevel via DeriveDirection.
	Direction Direction

	// Rationale - why the change is proposed.
	Rationale string

	// CreatedBy - user or system identity that created the proposal.
	CreatedBy string

	// Status - pending until decided, then approved or rejected forever.
	Status Status

	// DecidedBy is set by the terminal decision.
	DecidedBy string

	// DecidedAt is set by the terminal decision.
	DecidedAt *time.Time

	// DecisionNotes carries the caregiver's optional notes.
	DecisionNotes string

	// CreatedAt - time the row was created.
	CreatedAt time.Time
}

// NewProposalParams contains the parameters for creating a proposal.
type NewProposalParams struct {
	ID        string
	LearnerID string
	TenantID  string
	Subject   string
	FromLevel GradeLevel
	ToLevel   GradeLevel
	Rationale string
	CreatedBy string
}

// NewProposal creates a pending proposal with a derived direction. An empty
// rationale falls back to DefaultRationale.
func NewProposal(params NewProposalParams) (*Proposal, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("proposal", "Create", shared.ErrEmptyValue, "proposal id is required")
	}
	if params.LearnerID == "" {
		return nil, shared.NewDomainError("proposal", "Create", shared.ErrEmptyValue, "learner id is required")
	}
	if params.TenantID == "" {
		return nil, shared.NewDomainError("proposal", "Create", shared.ErrEmptyValue, "tenant id is required")
	}
	if params.Subject == "" {
		return nil, shared.NewDomainError("proposal", "Create", shared.ErrEmptyValue, "subject is required")
	}
	if !params.FromLevel.IsValid() || !params.ToLevel.IsValid() {
		return nil, shared.ErrInvalidGradeLevel
	}

	rationale := params.Rationale
	if rationale == "" {
		rationale = DefaultRationale
	}

	return &Proposal{
		ID:        params.ID,
		LearnerID: params.LearnerID,
		TenantID:  params.TenantID,
		Subject:   params.Subject,
		FromLevel: params.FromLevel,
		ToLevel:   params.ToLevel,
		Direction: DeriveDirection(params.FromLevel, params.ToLevel),
		Rationale: rationale,
		CreatedBy: params.CreatedBy,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decide transitions the proposal out of pending exactly once. A second
// decision attempt returns ErrProposalAlreadyDecided and leaves the first
// decision intact. There is no reopen path.
func (p *Proposal) Decide(approve bool, decidedBy, notes string, now time.Time) error {
	if p.Status.IsTerminal() {
		return shared.ErrProposalAlreadyDecided
	}
	if decidedBy == "" {
		return shared.NewDomainError("proposal", "Decide", shared.ErrEmptyValue, "decider identity is required")
	}

	if approve {
		p.Status = StatusApproved
	} else {
		p.Status = StatusRejected
	}
	t := now.UTC()
	p.DecidedBy = decidedBy
	p.DecidedAt = &t
	p.DecisionNotes = notes
	return nil
}
