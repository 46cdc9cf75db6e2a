// Package notification contains the caregiver-facing notification domain
// model. Notifications are created alongside difficulty proposals and mutated
// only by a read acknowledgement.
package notification

import (
	"fmt"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Audience identifies who a notification is aimed at.
type Audience string

const (
	// AudienceCaregiver - the learner's caregiver.
	AudienceCaregiver Audience = "caregiver"
	// AudienceTeacher - the learner's teacher.
	AudienceTeacher Audience = "teacher"
)

// IsValid checks that the audience is one of the known values.
func (a Audience) IsValid() bool {
	return a == AudienceCaregiver || a == AudienceTeacher
}

// Type identifies what kind of event a notification reports.
type Type string

const (
	// TypeDifficultyProposal - a new difficulty-change proposal awaits review.
	TypeDifficultyProposal Type = "difficulty_proposal"
	// TypeSessionCompleted - a learner finished the daily session.
	TypeSessionCompleted Type = "session_completed"
)

// Status is the read state of a notification.
type Status string

const (
	// StatusUnread - not yet acknowledged by the recipient.
	StatusUnread Status = "unread"
	// StatusRead - acknowledged. Re-acknowledgement is a no-op.
	StatusRead Status = "read"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification is a single caregiver-facing message.
type Notification struct {
	// ID - unique identifier (UUID in string form).
	ID string

	// TenantID - the tenant the notification belongs to.
	TenantID string

	// LearnerID - the learner the notification is about.
	LearnerID string

	// RecipientUserID - the user who should read the notification.
	RecipientUserID string

	// Audience - caregiver or teacher.
	Audience Audience

	// Type - the kind of event reported.
	Type Type

	// Title - short headline.
	Title string

	// Body - full message text.
	Body string

	// Status - unread until acknowledged.
	Status Status

	// RelatedProposalID ties the notification to the proposal that
	// triggered it, when there is one.
	RelatedProposalID string

	// CreatedAt - time the row was created. Listing orders newest-first on
	// this field with the ID as a stable tiebreak.
	CreatedAt time.Time

	// ReadAt is stamped by the first read acknowledgement.
	ReadAt *time.Time
}

// NewNotificationParams contains the parameters for creating a notification.
type NewNotificationParams struct {
	ID                string
	TenantID          string
	LearnerID         string
	RecipientUserID   string
	Audience          Audience
	Type              Type
	Title             string
	Body              string
	RelatedProposalID string
}

// NewNotification creates an unread notification.
func NewNotification(params NewNotificationParams) (*Notification, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrEmptyValue, "notification id is required")
	}
	if params.TenantID == "" {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrEmptyValue, "tenant id is required")
	}
	if params.RecipientUserID == "" {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrEmptyValue, "recipient is required")
	}
	if !params.Audience.IsValid() {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrInvalidInput, "invalid audience")
	}
	if params.Title == "" {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrEmptyValue, "title is required")
	}

	return &Notification{
		ID:                params.ID,
		TenantID:          params.TenantID,
		LearnerID:         params.LearnerID,
		RecipientUserID:   params.RecipientUserID,
		Audience:          params.Audience,
		Type:              params.Type,
		Title:             params.Title,
		Body:              params.Body,
		Status:            StatusUnread,
		RelatedProposalID: params.RelatedProposalID,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// MarkRead acknowledges the notification. Marking an already-read
// notification is a no-op, never an error; the returned flag reports whether
// anything changed.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.Status == StatusRead {
		return false
	}
	n.Status = StatusRead
	t := now.UTC()
	n.ReadAt = &t
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL MESSAGE TEMPLATES
// ══════════════════════════════════════════════════════════════════════════════

// ProposalMessage renders the direction-specific caregiver-facing title and
// body for a difficulty proposal.
func ProposalMessage(p *proposal.Proposal) (title, body string) {
	switch p.Direction {
	case proposal.DirectionHarder:
		title = fmt.Sprintf("Suggested challenge increase in %s", p.Subject)
		body = fmt.Sprintf(
			"We think your learner is ready for more challenging %s material (level %d to %d). Review and approve or decline the change.",
			p.Subject, p.FromLevel, p.ToLevel,
		)
	case proposal.DirectionEasier:
		title = fmt.Sprintf("Suggested difficulty adjustment in %s", p.Subject)
		body = fmt.Sprintf(
			"We suggest easing the %s material (level %d to %d) so your learner can rebuild confidence. Review and approve or decline the change.",
			p.Subject, p.FromLevel, p.ToLevel,
		)
	default:
		title = fmt.Sprintf("Difficulty review for %s", p.Subject)
		body = fmt.Sprintf(
			"A review of the current %s level (%d) was proposed with no level change. You can approve or decline it.",
			p.Subject, p.FromLevel,
		)
	}
	return title, body
}
