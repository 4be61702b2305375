package repository

import (
	"context"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_ListDelayed(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db)
	now := time.Now().UTC()

	mk := func(typ models.NotificationType, age time.Duration, read bool) *models.Notification {
		n := &models.Notification{UserID: user.ID, Type: typ, Message: "m", CreatedAt: now.Add(-age)}
		require.NoError(t, repo.Create(ctx, n))
		if read {
			require.NoError(t, repo.MarkRead(ctx, n.ID))
		}
		return n
	}

	oldest := mk(models.NotificationMessageReceived, 30*time.Minute, false)
	older := mk(models.NotificationApplicationReceived, 15*time.Minute, false)
	mk(models.NotificationMessageReceived, 5*time.Minute, false) // too recent
	mk(models.NotificationMessageReceived, time.Hour, true)      // already read
	mk(models.NotificationReviewReceived, time.Hour, false)      // not escalated
	exact := mk(models.NotificationMessageReceived, 10*time.Minute, false)

	types := []models.NotificationType{models.NotificationMessageReceived, models.NotificationApplicationReceived}
	got, err := repo.ListDelayed(ctx, types, exact.CreatedAt, 50)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, oldest.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, exact.ID, got[2].ID)
	require.NotNil(t, got[0].User)
	assert.Equal(t, user.Email, got[0].User.Email)

	limited, err := repo.ListDelayed(ctx, types, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNotificationRepository_ReadState(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{UserID: user.ID, Type: models.NotificationSwapStarted, Message: "m"}))
	}

	n, err := repo.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	updated, err := repo.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = repo.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	list, err := repo.ListForUser(ctx, user.ID, Page{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
