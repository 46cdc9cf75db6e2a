package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

func newMarkReadFixture(t *testing.T) (*MarkNotificationReadHandler, *memNotifications, *notification.Notification) {
	t.Helper()

	notifications := newMemNotifications()
	h := NewMarkNotificationReadHandler(notifications, logger.Default())

	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:              "notif-1",
		TenantID:        "tenant-1",
		LearnerID:       "learner-1",
		RecipientUserID: "caregiver-1",
		Audience:        notification.AudienceCaregiver,
		Type:            notification.TypeDifficultyProposal,
		Title:           "Suggested challenge increase in math",
		Body:            "Review the proposed change.",
	})
	require.NoError(t, err)
	require.NoError(t, notifications.Create(context.Background(), n))

	return h, notifications, n
}

func TestMarkNotificationRead(t *testing.T) {
	h, _, n := newMarkReadFixture(t)

	got, err := h.Handle(context.Background(), MarkNotificationReadCommand{
		NotificationID:  n.ID,
		RecipientUserID: "caregiver-1",
		TenantID:        "tenant-1",
	})
	require.NoError(t, err)

	assert.Equal(t, notification.StatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
}

func TestMarkNotificationReadIsIdempotent(t *testing.T) {
	h, _, n := newMarkReadFixture(t)
	ctx := context.Background()
	cmd := MarkNotificationReadCommand{
		NotificationID:  n.ID,
		RecipientUserID: "caregiver-1",
	}

	first, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	second, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusRead, second.Status)
	assert.Equal(t, *first.ReadAt, *second.ReadAt, "re-reading must not move the read timestamp")
}

func TestMarkNotificationReadWrongRecipientReadsAsMissing(t *testing.T) {
	h, _, n := newMarkReadFixture(t)

	_, err := h.Handle(context.Background(), MarkNotificationReadCommand{
		NotificationID:  n.ID,
		RecipientUserID: "caregiver-2",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
