package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/fanout"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

func newUpdateFixture(t *testing.T) (*UpdateActivityHandler, *memSessions, *memNotifications, *session.Session) {
	t.Helper()

	sessions := newMemSessions()
	notifications := newMemNotifications()
	fan := fanout.New(notifications, fanout.StaticResolver{RecipientUserID: "caregiver-1"}, &seqIDs{}, nil, logger.Default())
	h := NewUpdateActivityHandler(sessions, fan, logger.Default())

	ids := &seqIDs{}
	s, err := session.NewDailySession(session.NewSessionParams{
		LearnerID: "learner-1",
		TenantID:  "tenant-1",
		Subject:   "math",
		Date:      shared.DateKey("2026-03-02"),
		NewID:     ids.GenerateID,
	})
	require.NoError(t, err)
	_, created, err := sessions.CreateOrGet(context.Background(), s)
	require.NoError(t, err)
	require.True(t, created)

	return h, sessions, notifications, s
}

func TestUpdateActivityForwardTransition(t *testing.T) {
	h, _, _, s := newUpdateFixture(t)

	res, err := h.Handle(context.Background(), UpdateActivityCommand{
		SessionID:  s.ID,
		ActivityID: s.Activities[0].ID,
		TenantID:   "tenant-1",
		Requested:  session.ActivityInProgress,
	})
	require.NoError(t, err)

	assert.Equal(t, session.ActivityInProgress, res.Activity.Status)
	assert.NotNil(t, res.Activity.StartedAt)
	assert.Equal(t, session.StatusActive, res.Session.Status)
	assert.False(t, res.Completed)
}

func TestUpdateActivityBackwardTransitionConflicts(t *testing.T) {
	h, _, _, s := newUpdateFixture(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, UpdateActivityCommand{
		SessionID:  s.ID,
		ActivityID: s.Activities[0].ID,
		Requested:  session.ActivityCompleted,
	})
	require.NoError(t, err)

	_, err = h.Handle(ctx, UpdateActivityCommand{
		SessionID:  s.ID,
		ActivityID: s.Activities[0].ID,
		Requested:  session.ActivityInProgress,
	})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestUpdateActivityWrongTenantReadsAsMissing(t *testing.T) {
	h, _, _, s := newUpdateFixture(t)

	_, err := h.Handle(context.Background(), UpdateActivityCommand{
		SessionID:  s.ID,
		ActivityID: s.Activities[0].ID,
		TenantID:   "tenant-2",
		Requested:  session.ActivityInProgress,
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateActivityCompletionFansOut(t *testing.T) {
	h, _, notifications, s := newUpdateFixture(t)
	ctx := context.Background()

	var last *UpdateActivityResult
	for _, act := range s.Activities {
		var err error
		last, err = h.Handle(ctx, UpdateActivityCommand{
			SessionID:  s.ID,
			ActivityID: act.ID,
			Requested:  session.ActivityCompleted,
		})
		require.NoError(t, err)
	}

	require.NotNil(t, last)
	assert.True(t, last.Completed)
	assert.Equal(t, session.StatusCompleted, last.Session.Status)
	assert.Equal(t, 25, last.Session.ActualMinutes)

	got, err := notifications.ListByRecipient(ctx, "tenant-1", "caregiver-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Title, "session is done")
}

func TestUpdateActivityStaleSnapshotsConvergeOnCompletion(t *testing.T) {
	h, sessions, _, s := newUpdateFixture(t)
	ctx := context.Background()

	// First two activities complete up front; two remain open.
	for _, act := range s.Activities[:2] {
		_, err := h.Handle(ctx, UpdateActivityCommand{
			SessionID:  s.ID,
			ActivityID: act.ID,
			Requested:  session.ActivityCompleted,
		})
		require.NoError(t, err)
	}

	// Two callers load the session before either writes, then each completes
	// a different remaining activity from its own stale view. Neither view
	// ever sees both siblings terminal.
	snapA, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	snapB, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)

	now := time.Now()
	actA, err := snapA.ApplyActivityStatus(snapA.Activities[2].ID, session.ActivityCompleted, now)
	require.NoError(t, err)
	require.NoError(t, sessions.UpdateActivity(ctx, snapA, actA, session.ActivityPending))
	assert.Equal(t, session.StatusActive, snapA.Status)

	actB, err := snapB.ApplyActivityStatus(snapB.Activities[3].ID, session.ActivityCompleted, now)
	require.NoError(t, err)
	require.NoError(t, sessions.UpdateActivity(ctx, snapB, actB, session.ActivityPending))

	// The store's recompute, not the caller's snapshot, decides completion.
	assert.Equal(t, session.StatusCompleted, snapB.Status)
	assert.Equal(t, 25, snapB.ActualMinutes)

	stored, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, stored.Status)
	assert.Equal(t, 25, stored.ActualMinutes)
}

func TestUpdateActivityFanoutFailureDoesNotFailUpdate(t *testing.T) {
	h, _, notifications, s := newUpdateFixture(t)
	ctx := context.Background()
	notifications.failWith = assert.AnError

	var last *UpdateActivityResult
	for _, act := range s.Activities {
		var err error
		last, err = h.Handle(ctx, UpdateActivityCommand{
			SessionID:  s.ID,
			ActivityID: act.ID,
			Requested:  session.ActivitySkipped,
		})
		require.NoError(t, err)
	}

	require.NotNil(t, last)
	assert.True(t, last.Completed)
	assert.Equal(t, 0, last.Session.ActualMinutes, "skipped activities contribute no minutes")
}

func TestUpdateActivityUnknownActivity(t *testing.T) {
	h, _, _, s := newUpdateFixture(t)

	_, err := h.Handle(context.Background(), UpdateActivityCommand{
		SessionID:  s.ID,
		ActivityID: "missing",
		Requested:  session.ActivityInProgress,
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
