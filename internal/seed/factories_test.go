package seed

import (
	"strings"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_TimestampsFollowLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := NewFactory(db, FactoryOptions{Seed: 1, MaxDays: 30})

	owner, err := f.CreateUser()
	require.NoError(t, err)
	student, err := f.CreateUser()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(owner.Email, "@skillsync.dev"))
	assert.NotEqual(t, owner.Email, student.Email)

	offered := testutil.CreateSkill(t, db, "Pottery")
	needed := testutil.CreateSkill(t, db, "Calculus")
	p, err := f.CreateProposal(owner, []models.Skill{*offered}, []models.Skill{*needed})
	require.NoError(t, err)
	assert.Equal(t, "Pottery for Calculus", p.Title)
	assert.LessOrEqual(t, len(p.Description), 1000)

	a, err := f.CreateApplication(p, student, models.ApplicationStatusAccepted)
	require.NoError(t, err)
	s, err := f.CreateSwap(p, a, models.SwapStatusCompleted)
	require.NoError(t, err)
	r, err := f.CreateReview(s, student.ID)
	require.NoError(t, err)

	windowStart := time.Now().UTC().Add(-31 * 24 * time.Hour)
	assert.True(t, owner.CreatedAt.After(windowStart))
	assert.False(t, p.CreatedAt.Before(owner.CreatedAt))
	assert.False(t, a.CreatedAt.Before(p.CreatedAt))
	assert.False(t, s.StartedAt.Before(a.CreatedAt))
	require.NotNil(t, s.CompletedAt)
	assert.False(t, s.CompletedAt.Before(s.StartedAt))
	assert.False(t, r.CreatedAt.Before(*s.CompletedAt))
	assert.Equal(t, owner.ID, r.ReceiverID)
}

func TestFactory_DryRun(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := NewFactory(db, FactoryOptions{Seed: 1, DryRun: true})

	u, err := f.CreateUser()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.ID, "dry-user-"))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
