package postgres

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository for PostgreSQL.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

const notificationColumns = `id, tenant_id, learner_id, recipient_user_id, audience,
	   notification_type, title, body, status, related_proposal_id, created_at, read_at`

// Create persists a new unread notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	const query = `
		INSERT INTO notifications (
			id, tenant_id, learner_id, recipient_user_id, audience,
			notification_type, title, body, status, related_proposal_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.conn.Exec(ctx, query,
		n.ID,
		n.TenantID,
		nullable(n.LearnerID),
		n.RecipientUserID,
		string(n.Audience),
		string(n.Type),
		n.Title,
		n.Body,
		string(n.Status),
		nullable(n.RelatedProposalID),
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID returns a notification by ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns)
	return scanNotification(r.conn.QueryRow(ctx, query, id))
}

// MarkRead acknowledges a notification. The update is conditional on the row
// still being unread; an already-read row is returned unchanged so repeated
// acknowledgements stay idempotent.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	const query = `
		UPDATE notifications
		SET status = 'read', read_at = NOW()
		WHERE id = $1 AND status = 'unread'
	`
	if _, err := r.conn.Exec(ctx, query, id); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return r.GetByID(ctx, id)
}

// ListByRecipient returns all notifications for a recipient, newest first
// with the ID as a stable tiebreak.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, tenantID, recipientUserID string) ([]*notification.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE tenant_id = $1 AND recipient_user_id = $2
		ORDER BY created_at DESC, id DESC
	`, notificationColumns)

	rows, err := r.conn.Query(ctx, query, tenantID, recipientUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// nullable maps an empty string to NULL for optional UUID columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n                   notification.Notification
		audience, ntype     string
		status              string
		learnerID, proposal *string
	)
	err := row.Scan(
		&n.ID,
		&n.TenantID,
		&learnerID,
		&n.RecipientUserID,
		&audience,
		&ntype,
		&n.Title,
		&n.Body,
		&status,
		&proposal,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	n.Audience = notification.Audience(audience)
	n.Type = notification.Type(ntype)
	n.Status = notification.Status(status)
	if learnerID != nil {
		n.LearnerID = *learnerID
	}
	if proposal != nil {
		n.RelatedProposalID = *proposal
	}
	return &n, nil
}
