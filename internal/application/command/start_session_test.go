package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/admission"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

func newStartFixture(t *testing.T) (*StartSessionHandler, *memSessions, *memUsage) {
	t.Helper()
	sessions := newMemSessions()
	usage := newMemUsage()
	store := &memAdmission{sessions: sessions, usage: usage}
	gate := admission.NewGate(usage, store, nil, logger.Default())
	h := NewStartSessionHandler(sessions, gate, &seqIDs{}, logger.Default())
	return h, sessions, usage
}

func startCmd() StartSessionCommand {
	return StartSessionCommand{
		LearnerID: "learner-1",
		TenantID:  "tenant-1",
		Subject:   "math",
		Date:      shared.DateKey("2026-03-02"),
	}
}

func TestStartSessionCreatesAndReserves(t *testing.T) {
	h, _, usage := newStartFixture(t)

	res, err := h.Handle(context.Background(), startCmd())
	require.NoError(t, err)
	require.NotNil(t, res.Session)

	assert.True(t, res.Created)
	assert.Equal(t, session.StatusActive, res.Session.Status)
	assert.Len(t, res.Session.Activities, 4)
	assert.Equal(t, 25, res.Session.PlannedMinutes)

	u, err := usage.GetUsage(context.Background(), "tenant-1", shared.DateKey("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, u.TutorTurns)
}

func TestStartSessionSecondCallResumesWithoutIncrement(t *testing.T) {
	h, _, usage := newStartFixture(t)
	ctx := context.Background()

	limits := tenant.Unlimited("tenant-1")
	limits.MaxDailyTutorTurns = intPtr(1)
	require.NoError(t, usage.PutLimits(ctx, limits))

	first, err := h.Handle(ctx, startCmd())
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := h.Handle(ctx, startCmd())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Session.ID, second.Session.ID)

	u, err := usage.GetUsage(ctx, "tenant-1", shared.DateKey("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, u.TutorTurns, "resuming must not consume quota again")
}

func TestStartSessionQuotaDeniedLeavesNoRow(t *testing.T) {
	h, sessions, usage := newStartFixture(t)
	ctx := context.Background()

	limits := tenant.Unlimited("tenant-1")
	limits.MaxDailyTutorTurns = intPtr(0)
	require.NoError(t, usage.PutLimits(ctx, limits))

	res, err := h.Handle(ctx, startCmd())
	require.Error(t, err)
	assert.True(t, shared.IsQuotaExceeded(err))
	assert.Nil(t, res)

	_, err = sessions.FindDaily(ctx, "learner-1", "math", shared.DateKey("2026-03-02"))
	assert.True(t, shared.IsNotFound(err), "a denied start must not leave a session behind")
}

func TestStartSessionWrongTenantReadsAsMissing(t *testing.T) {
	h, sessions, usage := newStartFixture(t)
	ctx := context.Background()

	first, err := h.Handle(ctx, startCmd())
	require.NoError(t, err)
	require.True(t, first.Created)

	// A caller in another tenant guessing the same learner/subject/date must
	// not receive the foreign session, let alone touch its lifecycle.
	cmd := startCmd()
	cmd.TenantID = "tenant-2"
	res, err := h.Handle(ctx, cmd)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	assert.Nil(t, res)

	stored, err := sessions.GetByID(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", stored.TenantID)

	u, err := usage.GetUsage(ctx, "tenant-2", shared.DateKey("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 0, u.TutorTurns)
}

func TestStartSessionDistinctSubjectsGetDistinctSessions(t *testing.T) {
	h, _, usage := newStartFixture(t)
	ctx := context.Background()

	math, err := h.Handle(ctx, startCmd())
	require.NoError(t, err)

	cmd := startCmd()
	cmd.Subject = "reading"
	reading, err := h.Handle(ctx, cmd)
	require.NoError(t, err)

	assert.NotEqual(t, math.Session.ID, reading.Session.ID)

	u, err := usage.GetUsage(ctx, "tenant-1", shared.DateKey("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, u.TutorTurns)
}

func TestStartSessionValidation(t *testing.T) {
	h, _, _ := newStartFixture(t)

	tests := []struct {
		name   string
		mutate func(*StartSessionCommand)
	}{
		{"missing learner", func(c *StartSessionCommand) { c.LearnerID = "" }},
		{"missing tenant", func(c *StartSessionCommand) { c.TenantID = "" }},
		{"bad subject", func(c *StartSessionCommand) { c.Subject = "a" }},
		{"bad date", func(c *StartSessionCommand) { c.Date = "03/02/2026" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := startCmd()
			tt.mutate(&cmd)
			_, err := h.Handle(context.Background(), cmd)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
		})
	}
}
