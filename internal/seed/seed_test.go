package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPreset(t *testing.T) {
	for _, name := range []string{"small", "demo"} {
		t.Run(name, func(t *testing.T) {
			p, err := LoadPreset(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
			assert.NoError(t, p.Validate())
		})
	}

	_, err := LoadPreset("huge")
	assert.Error(t, err)
}

func TestLoadPresetFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yml")
	require.NoError(t, os.WriteFile(good, []byte(`
name: custom
users: 3
skills_per_user: 1
applications_per_proposal: 1
skills: [Go, Chess]
`), 0o600))
	p, err := LoadPresetFile(good)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, 90, p.MaxDays)

	tests := []struct {
		name string
		body string
	}{
		{"too few users", "users: 1\nskills_per_user: 1\nskills: [Go, Chess]\n"},
		{"too many skills per user", "users: 2\nskills_per_user: 3\nskills: [Go, Chess]\n"},
		{"too many applications", "users: 2\nskills_per_user: 1\napplications_per_proposal: 2\nskills: [Go, Chess]\n"},
		{"bad rate", "users: 2\nskills_per_user: 1\naccept_rate: 1.5\nskills: [Go, Chess]\n"},
		{"not yaml", "users: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := LoadPresetFile(path)
			assert.Error(t, err)
		})
	}
}

func TestSeed_SmallPreset(t *testing.T) {
	db := testutil.NewTestDB(t)
	preset, err := LoadPreset("small")
	require.NoError(t, err)

	stats, err := Seed(context.Background(), db, preset)
	require.NoError(t, err)

	assert.Equal(t, preset.Users, stats.Users)
	assert.Equal(t, preset.Users*preset.SkillsPerUser, stats.UserSkills)
	assert.Equal(t, preset.Users*preset.ProposalsPerUser, stats.Proposals)
	assert.Equal(t, stats.Proposals*preset.ApplicationsPerProposal, stats.Applications)
	assert.LessOrEqual(t, stats.Completed, stats.Swaps)
	assert.LessOrEqual(t, stats.Reviews, 2*stats.Completed)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(stats.Users), count)
	require.NoError(t, db.Model(&models.Swap{}).Count(&count).Error)
	assert.Equal(t, int64(stats.Swaps), count)

	// Every swap comes from an accepted application of someone other than the owner.
	var swaps []models.Swap
	require.NoError(t, db.Find(&swaps).Error)
	for _, s := range swaps {
		var app models.Application
		require.NoError(t, db.First(&app, "id = ?", s.ApplicationID).Error)
		assert.Equal(t, models.ApplicationStatusAccepted, app.Status)
		assert.NotEqual(t, s.TeacherID, s.StudentID)
	}

	// Reviews only exist for completed swaps.
	var reviews []models.Review
	require.NoError(t, db.Preload("Author").Find(&reviews).Error)
	for _, r := range reviews {
		var s models.Swap
		require.NoError(t, db.First(&s, "id = ?", r.SwapID).Error)
		assert.Equal(t, models.SwapStatusCompleted, s.Status)
		assert.Equal(t, s.Counterpart(r.AuthorID), r.ReceiverID)
		assert.GreaterOrEqual(t, r.Rating, 3)
		assert.LessOrEqual(t, r.Rating, 5)
	}
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewTestDB(t)
	preset, err := LoadPreset("small")
	require.NoError(t, err)
	preset.Seed = 7
	preset.Clean = true

	_, err = Seed(context.Background(), db, preset)
	require.NoError(t, err)
	stats, err := Seed(context.Background(), db, preset)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(stats.Users), count)
	require.NoError(t, db.Model(&models.Proposal{}).Count(&count).Error)
	assert.Equal(t, int64(stats.Proposals), count)
}
