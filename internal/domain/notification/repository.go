package notification

import "context"

// Repository defines the persistence contract for notifications.
type Repository interface {
	// Create persists a new unread notification.
	Create(ctx context.Context, n *Notification) error

	// GetByID returns a notification, or ErrNotificationNotFound.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// MarkRead acknowledges a notification. Implementations update
	// conditionally on the row still being unread and treat an already-read
	// row as success, keeping the operation idempotent.
	MarkRead(ctx context.Context, id string) (*Notification, error)

	// ListByRecipient returns all notifications for a recipient, newest
	// first with a stable tiebreak for future pagination.
	ListByRecipient(ctx context.Context, tenantID, recipientUserID string) ([]*Notification, error)
}
