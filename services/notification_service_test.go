package services

import (
	"context"
	"testing"
	"time"

	"support_directory_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedNotification(t *testing.T, db *gorm.DB, recipientID, title string, createdAt time.Time, scheduledFor *time.Time) models.Notification {
	n := models.Notification{
		CreatedAt:    createdAt,
		RecipientID:  recipientID,
		EntityType:   "application",
		EntityID:     "3f0c7f55-0000-4000-8000-000000000001",
		Rule:         "application_approved",
		Title:        title,
		Priority:     models.NotificationPriorityNormal,
		ScheduledFor: scheduledFor,
	}
	require.NoError(t, db.Create(&n).Error)
	return n
}

func TestNotificationService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Nora Client", models.RoleClient)
	other := createTestUser(t, db, "Otto Client", models.RoleClient)

	now := time.Now()
	later := now.Add(48 * time.Hour)
	earlier := now.Add(-time.Hour)

	older := seedNotification(t, db, user.ID, "Older", now.Add(-2*time.Hour), nil)
	newer := seedNotification(t, db, user.ID, "Newer", now.Add(-time.Minute), nil)
	seedNotification(t, db, user.ID, "Due reminder", now.Add(-3*time.Hour), &earlier)
	seedNotification(t, db, user.ID, "Future reminder", now, &later)
	seedNotification(t, db, other.ID, "Not mine", now, nil)

	t.Run("UnreadExcludesFutureScheduled", func(t *testing.T) {
		list, err := svc.GetUnreadNotifications(ctx, user.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Newer", list[0].Title)
		assert.Equal(t, "Older", list[1].Title)
		assert.Equal(t, "Due reminder", list[2].Title)

		limited, err := svc.GetUnreadNotifications(ctx, user.ID, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, newer.ID, limited[0].ID)

		count, err := svc.GetNotificationCount(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("MarkAsRead", func(t *testing.T) {
		err := svc.MarkAsRead(ctx, older.ID, other.ID)
		assert.True(t, IsKind(err, KindNotFound))

		require.NoError(t, svc.MarkAsRead(ctx, older.ID, user.ID))

		count, err := svc.GetNotificationCount(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		var reloaded models.Notification
		require.NoError(t, db.First(&reloaded, "id = ?", older.ID).Error)
		assert.True(t, reloaded.IsRead())
	})

	t.Run("MarkAllAsRead", func(t *testing.T) {
		require.NoError(t, svc.MarkAllAsRead(ctx, user.ID))

		count, err := svc.GetNotificationCount(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		otherCount, err := svc.GetNotificationCount(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), otherCount)
	})
}
