package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
)

// ErrNotificationNotFound indicates no notification with that id belongs to the user.
var ErrNotificationNotFound = errors.New("broadcast: notification not found")

// NotificationPage is one page of a user's notifications.
type NotificationPage struct {
	Notifications []models.UserNotification `json:"notifications"`
	Total         int64                     `json:"total"`
	Unread        int64                     `json:"unread"`
}

// ListForUser returns a user's notifications, newest first.
func ListForUser(ctx context.Context, db *gorm.DB, userID string, limit int) (*NotificationPage, error) {
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	out := &NotificationPage{Notifications: []models.UserNotification{}}
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&models.UserNotification{}).Where("user_id = ?", userID)
	}
	if errCount := base().Count(&out.Total).Error; errCount != nil {
		return nil, fmt.Errorf("broadcast: count notifications: %w", errCount)
	}
	if errCount := base().Where("is_read = ?", false).Count(&out.Unread).Error; errCount != nil {
		return nil, fmt.Errorf("broadcast: count unread: %w", errCount)
	}
	if errFind := base().Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out.Notifications).Error; errFind != nil {
		return nil, fmt.Errorf("broadcast: list notifications: %w", errFind)
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.
func MarkRead(ctx context.Context, db *gorm.DB, userID string, id uint64) error {
	res := db.WithContext(ctx).Model(&models.UserNotification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("broadcast: mark read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if errCount := db.WithContext(ctx).Model(&models.UserNotification{}).
			Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; errCount != nil {
			return fmt.Errorf("broadcast: mark read: %w", errCount)
		}
		if n == 0 {
			return ErrNotificationNotFound
		}
	}
	return nil
}
