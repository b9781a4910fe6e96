package services

import (
	"context"
	"time"

	"support_directory_go/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// due excludes notifications scheduled for later delivery
func due(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("scheduled_for IS NULL OR scheduled_for <= ?", now)
}

func (s *NotificationService) GetUnreadNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > MaxResultLimit {
		limit = 20
	}
	var notifications []models.Notification
	err := due(s.DB.WithContext(ctx), time.Now()).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkAsRead marks one of the user's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return NewStoreError("mark notification read", res.Error)
	}
	if res.RowsAffected == 0 {
		return NewNotFoundError("notification", notificationID)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now()).Error
	if err != nil {
		return NewStoreError("mark notifications read", err)
	}
	return nil
}

func (s *NotificationService) GetNotificationCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := due(s.DB.WithContext(ctx).Model(&models.Notification{}), time.Now()).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}
