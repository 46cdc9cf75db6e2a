package command

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK NOTIFICATION READ COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// MarkNotificationReadCommand marks one of the recipient's notifications as
// read. Re-marking an already read notification is an idempotent no-op.
type MarkNotificationReadCommand struct {
	NotificationID  string
	RecipientUserID string
	TenantID        string
}

// Validate checks the command fields.
func (c MarkNotificationReadCommand) Validate() error {
	if c.NotificationID == "" {
		return fmt.Errorf("%w: notification id is required", shared.ErrInvalidInput)
	}
	if c.RecipientUserID == "" {
		return fmt.Errorf("%w: recipient identity is required", shared.ErrInvalidInput)
	}
	return nil
}

// MarkNotificationReadHandler applies the read receipt.
type MarkNotificationReadHandler struct {
	notifications notification.Repository
	logger        *logger.Logger
}

// NewMarkNotificationReadHandler creates a new mark-read handler.
func NewMarkNotificationReadHandler(notifications notification.Repository, log *logger.Logger) *MarkNotificationReadHandler {
	return &MarkNotificationReadHandler{
		notifications: notifications,
		logger:        log.With(logger.Component("mark_notification_read")),
	}
}

// Handle executes the command and returns the notification in its read state.
// Only the addressed recipient may mark a notification; anyone else sees it
// as missing.
func (h *MarkNotificationReadHandler) Handle(ctx context.Context, cmd MarkNotificationReadCommand) (*notification.Notification, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	n, err := h.notifications.GetByID(ctx, cmd.NotificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientUserID != cmd.RecipientUserID {
		return nil, shared.ErrNotificationNotFound
	}
	if cmd.TenantID != "" && n.TenantID != cmd.TenantID {
		return nil, shared.ErrNotificationNotFound
	}

	if n.Status == notification.StatusRead {
		// Already read; nothing to persist.
		return n, nil
	}
	return h.notifications.MarkRead(ctx, n.ID)
}
