package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	n := 0
	s, err := NewDailySession(NewSessionParams{
		LearnerID: "learner-1",
		TenantID:  "tenant-1",
		Subject:   "math",
		Date:      shared.DateKey("2026-03-02"),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	require.NoError(t, err)
	return s
}

func TestNewDailySession_Template(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, StatusPlanned, s.Status)
	require.Len(t, s.Activities, 4)
	assert.Equal(t, ActivityTypeCalmCheckin, s.Activities[0].Type)
	assert.Equal(t, ActivityTypeMicroLesson, s.Activities[1].Type)
	assert.Equal(t, ActivityTypeGuidedPractice, s.Activities[2].Type)
	assert.Equal(t, ActivityTypeReflection, s.Activities[3].Type)

	// plannedMinutes is the sum of the fixed per-step estimates.
	assert.Equal(t, 3+10+10+2, s.PlannedMinutes)
	for i, act := range s.Activities {
		assert.Equal(t, ActivityPending, act.Status)
		assert.Equal(t, i, act.Position)
		assert.Equal(t, s.ID, act.SessionID)
		assert.NotEmpty(t, act.ID)
	}
}

func TestNewDailySession_Validation(t *testing.T) {
	newID := func() string { return "x" }

	cases := []struct {
		name   string
		params NewSessionParams
	}{
		{"missing learner", NewSessionParams{TenantID: "t", Subject: "math", Date: "2026-03-02", NewID: newID}},
		{"missing tenant", NewSessionParams{LearnerID: "l", Subject: "math", Date: "2026-03-02", NewID: newID}},
		{"bad subject", NewSessionParams{LearnerID: "l", TenantID: "t", Subject: "a b", Date: "2026-03-02", NewID: newID}},
		{"bad date", NewSessionParams{LearnerID: "l", TenantID: "t", Subject: "math", Date: "yesterday", NewID: newID}},
		{"nil id generator", NewSessionParams{LearnerID: "l", TenantID: "t", Subject: "math", Date: "2026-03-02"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDailySession(tc.params)
			assert.Error(t, err)
		})
	}
}

func TestActivityStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from ActivityStatus
		to   ActivityStatus
		ok   bool
	}{
		{ActivityPending, ActivityInProgress, true},
		{ActivityPending, ActivityCompleted, true},
		{ActivityPending, ActivitySkipped, true},
		{ActivityInProgress, ActivityCompleted, true},
		{ActivityInProgress, ActivitySkipped, true},

		// Equal states are not forward.
		{ActivityPending, ActivityPending, false},
		{ActivityInProgress, ActivityInProgress, false},

		// Regressions are rejected.
		{ActivityInProgress, ActivityPending, false},
		{ActivityCompleted, ActivityPending, false},
		{ActivityCompleted, ActivityInProgress, false},
		{ActivitySkipped, ActivityInProgress, false},

		// Terminal states never transition, not even to each other.
		{ActivityCompleted, ActivitySkipped, false},
		{ActivitySkipped, ActivityCompleted, false},

		{ActivityPending, ActivityStatus("done"), false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestSession_Start_Idempotent(t *testing.T) {
	s := newTestSession(t)

	assert.True(t, s.Start())
	assert.Equal(t, StatusActive, s.Status)

	// Starting again is a no-op, not an error.
	assert.False(t, s.Start())
	assert.Equal(t, StatusActive, s.Status)
}

func TestSession_ApplyActivityStatus_Stamps(t *testing.T) {
	s := newTestSession(t)
	s.Start()
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	act, err := s.ApplyActivityStatus(s.Activities[0].ID, ActivityInProgress, now)
	require.NoError(t, err)
	require.NotNil(t, act.StartedAt)
	assert.Equal(t, now, *act.StartedAt)
	assert.Nil(t, act.CompletedAt)

	later := now.Add(4 * time.Minute)
	act, err = s.ApplyActivityStatus(s.Activities[0].ID, ActivityCompleted, later)
	require.NoError(t, err)
	require.NotNil(t, act.CompletedAt)
	assert.Equal(t, later, *act.CompletedAt)
	// startedAt is stamped once and kept.
	assert.Equal(t, now, *act.StartedAt)
}

func TestSession_ApplyActivityStatus_Errors(t *testing.T) {
	s := newTestSession(t)
	now := time.Now().UTC()

	_, err := s.ApplyActivityStatus("nope", ActivityInProgress, now)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.ApplyActivityStatus(s.Activities[0].ID, ActivityStatus("paused"), now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = s.ApplyActivityStatus(s.Activities[0].ID, ActivityCompleted, now)
	require.NoError(t, err)
	_, err = s.ApplyActivityStatus(s.Activities[0].ID, ActivityPending, now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestSession_CompletionAndActualMinutes(t *testing.T) {
	s := newTestSession(t)
	s.Start()
	now := time.Now().UTC()

	// Complete the check-in and the lesson, skip practice, complete reflection.
	for _, step := range []struct {
		idx    int
		status ActivityStatus
	}{
		{0, ActivityCompleted},
		{1, ActivityCompleted},
		{2, ActivitySkipped},
	} {
		_, err := s.ApplyActivityStatus(s.Activities[step.idx].ID, step.status, now)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, s.Status, "session must stay active until every activity is terminal")
	}

	_, err := s.ApplyActivityStatus(s.Activities[3].ID, ActivityCompleted, now)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, s.Status)
	// Skipped practice (10m) contributes nothing.
	assert.Equal(t, 3+10+2, s.ActualMinutes)
}

func TestSession_ActivityTouchActivatesPlannedSession(t *testing.T) {
	s := newTestSession(t)

	_, err := s.ApplyActivityStatus(s.Activities[0].ID, ActivityInProgress, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.Status)
}
