package proposal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

func TestDeriveDirection(t *testing.T) {
	cases := []struct {
		from, to GradeLevel
		want     Direction
	}{
		{5, 6, DirectionHarder},
		{5, 4, DirectionEasier},
		{5, 5, DirectionMaintain},
		{0, 12, DirectionHarder},
		{12, 0, DirectionEasier},
		{0, 0, DirectionMaintain},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d->%d", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveDirection(tc.from, tc.to))
		})
	}
}

func newPendingProposal(t *testing.T) *Proposal {
	t.Helper()

	p, err := NewProposal(NewProposalParams{
		ID:        "prop-1",
		LearnerID: "learner-1",
		TenantID:  "tenant-1",
		Subject:   "math",
		FromLevel: 5,
		ToLevel:   6,
		CreatedBy: "teacher-1",
	})
	require.NoError(t, err)
	return p
}

func TestNewProposal_Defaults(t *testing.T) {
	p := newPendingProposal(t)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, DirectionHarder, p.Direction)
	assert.Equal(t, DefaultRationale, p.Rationale)
	assert.Empty(t, p.DecidedBy)
	assert.Nil(t, p.DecidedAt)
}

func TestNewProposal_GradeRange(t *testing.T) {
	_, err := NewProposal(NewProposalParams{
		ID:        "prop-2",
		LearnerID: "learner-1",
		TenantID:  "tenant-1",
		Subject:   "math",
		FromLevel: 5,
		ToLevel:   13,
		CreatedBy: "teacher-1",
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestProposal_Decide_SingleShot(t *testing.T) {
	p := newPendingProposal(t)
	now := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	require.NoError(t, p.Decide(true, "caregiver-1", "looks ready", now))
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, "caregiver-1", p.DecidedBy)
	require.NotNil(t, p.DecidedAt)
	assert.Equal(t, now, *p.DecidedAt)

	// A second decision is rejected and leaves the first intact.
	err := p.Decide(false, "caregiver-2", "changed my mind", now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrAlreadyDecided)
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, "caregiver-1", p.DecidedBy)
	assert.Equal(t, now, *p.DecidedAt)
}

func TestProposal_Decide_Reject(t *testing.T) {
	p := newPendingProposal(t)

	require.NoError(t, p.Decide(false, "caregiver-1", "", time.Now()))
	assert.Equal(t, StatusRejected, p.Status)
}
