// Package fanout creates caregiver-facing notifications triggered by
// workflow events. Fan-out is best-effort by design: a notification failure
// is logged and surfaced as a degraded success, never as a failure of the
// operation that triggered it.
package fanout

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// CaregiverResolver resolves the recipient for a learner's caregiver-facing
// notifications. Pluggable: the default implementation reads the tenant
// roster, tests substitute a static resolver.
type CaregiverResolver interface {
	ResolveCaregiver(ctx context.Context, tenantID, learnerID string) (recipientUserID string, err error)
}

// StaticResolver resolves every learner to one fixed recipient. Useful as a
// configuration fallback and in tests.
type StaticResolver struct {
	RecipientUserID string
}

// ResolveCaregiver implements CaregiverResolver.
func (r StaticResolver) ResolveCaregiver(ctx context.Context, tenantID, learnerID string) (string, error) {
	if r.RecipientUserID == "" {
		return "", fmt.Errorf("fanout: no static caregiver recipient configured")
	}
	return r.RecipientUserID, nil
}

// IDGenerator produces collision-resistant identifiers.
type IDGenerator interface {
	GenerateID() string
}

// Metrics receives fan-out telemetry.
type Metrics interface {
	FanoutFailed(tenantID string)
}

// NopMetrics discards fan-out telemetry.
type NopMetrics struct{}

func (NopMetrics) FanoutFailed(string) {}

// Fanout creates and persists notifications for workflow events.
type Fanout struct {
	notifications notification.Repository
	resolver      CaregiverResolver
	ids           IDGenerator
	metrics       Metrics
	logger        *logger.Logger
}

// New creates a notification fan-out.
func New(repo notification.Repository, resolver CaregiverResolver, ids IDGenerator, metrics Metrics, log *logger.Logger) *Fanout {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Fanout{
		notifications: repo,
		resolver:      resolver,
		ids:           ids,
		metrics:       metrics,
		logger:        log.With(logger.Component("fanout")),
	}
}

// ProposalCreated notifies the learner's caregiver about a new difficulty
// proposal with a direction-specific message.
func (f *Fanout) ProposalCreated(ctx context.Context, p *proposal.Proposal) (*notification.Notification, error) {
	recipient, err := f.resolver.ResolveCaregiver(ctx, p.TenantID, p.LearnerID)
	if err != nil {
		return nil, f.failed(p.TenantID, "resolve caregiver", err)
	}

	title, body := notification.ProposalMessage(p)
	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:                f.ids.GenerateID(),
		TenantID:          p.TenantID,
		LearnerID:         p.LearnerID,
		RecipientUserID:   recipient,
		Audience:          notification.AudienceCaregiver,
		Type:              notification.TypeDifficultyProposal,
		Title:             title,
		Body:              body,
		RelatedProposalID: p.ID,
	})
	if err != nil {
		return nil, f.failed(p.TenantID, "build notification", err)
	}

	if err := f.notifications.Create(ctx, n); err != nil {
		return nil, f.failed(p.TenantID, "persist notification", err)
	}
	return n, nil
}

// SessionCompleted notifies the caregiver that the learner finished the
// daily session.
func (f *Fanout) SessionCompleted(ctx context.Context, s *session.Session) (*notification.Notification, error) {
	recipient, err := f.resolver.ResolveCaregiver(ctx, s.TenantID, s.LearnerID)
	if err != nil {
		return nil, f.failed(s.TenantID, "resolve caregiver", err)
	}

	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:              f.ids.GenerateID(),
		TenantID:        s.TenantID,
		LearnerID:       s.LearnerID,
		RecipientUserID: recipient,
		Audience:        notification.AudienceCaregiver,
		Type:            notification.TypeSessionCompleted,
		Title:           fmt.Sprintf("Today's %s session is done", s.Subject),
		Body:            fmt.Sprintf("Your learner completed %d of %d planned minutes.", s.ActualMinutes, s.PlannedMinutes),
	})
	if err != nil {
		return nil, f.failed(s.TenantID, "build notification", err)
	}

	if err := f.notifications.Create(ctx, n); err != nil {
		return nil, f.failed(s.TenantID, "persist notification", err)
	}
	return n, nil
}

func (f *Fanout) failed(tenantID, op string, err error) error {
	f.metrics.FanoutFailed(tenantID)
	f.logger.Error("notification fanout failed",
		logger.TenantID(tenantID),
		logger.Operation(op),
		logger.Err(err),
	)
	return fmt.Errorf("fanout: %s: %w", op, err)
}
