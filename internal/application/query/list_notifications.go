package query

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST NOTIFICATIONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListNotificationsQuery lists a recipient's notifications, optionally only
// the unread ones.
type ListNotificationsQuery struct {
	TenantID        string
	RecipientUserID string
	UnreadOnly      bool
}

// Validate checks the query fields.
func (q ListNotificationsQuery) Validate() error {
	if q.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", shared.ErrInvalidInput)
	}
	if q.RecipientUserID == "" {
		return fmt.Errorf("%w: recipient identity is required", shared.ErrInvalidInput)
	}
	return nil
}

// ListNotificationsHandler resolves notification listings.
type ListNotificationsHandler struct {
	notifications notification.Repository
}

// NewListNotificationsHandler creates a new handler.
func NewListNotificationsHandler(notifications notification.Repository) *ListNotificationsHandler {
	return &ListNotificationsHandler{notifications: notifications}
}

// Handle returns the recipient's notifications, newest first.
func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) ([]*notification.Notification, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	items, err := h.notifications.ListByRecipient(ctx, q.TenantID, q.RecipientUserID)
	if err != nil {
		return nil, err
	}
	if !q.UnreadOnly {
		return items, nil
	}

	unread := make([]*notification.Notification, 0, len(items))
	for _, n := range items {
		if n.Status == notification.StatusUnread {
			unread = append(unread, n)
		}
	}
	return unread, nil
}
