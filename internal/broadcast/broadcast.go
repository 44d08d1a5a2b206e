// Package broadcast sends administrator messages to users as notifications.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dbpkg "github.com/ldcshop/storefront/internal/db"
	"github.com/ldcshop/storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification constants for admin broadcasts.
const (
	NotificationType = "admin_message"
	TitleKey         = "profile.notifications.adminMessageTitle"
	ContentKey       = "profile.notifications.adminMessageBody"

	defaultChunkSize = 200
	defaultPageSize  = 20
	maxPageSize      = 100
)

// Broadcast errors.
var (
	// ErrValidation indicates a blank title or body.
	ErrValidation = errors.New("broadcast: title and body are required")
	// ErrInvalidTarget indicates an unknown target type or a missing target value.
	ErrInvalidTarget = errors.New("broadcast: invalid target")
	// ErrUserNotFound indicates the target resolved to no users.
	ErrUserNotFound = errors.New("broadcast: no matching users")
	// ErrMessageNotFound indicates the message to delete does not exist.
	ErrMessageNotFound = errors.New("broadcast: message not found")
)

// ErrorCode maps a broadcast error to the client error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "admin.messages.missing"
	case errors.Is(err, ErrInvalidTarget):
		return "admin.messages.invalidTarget"
	case errors.Is(err, ErrUserNotFound):
		return "admin.messages.userNotFound"
	default:
		return "admin.messages.sendFailed"
	}
}

// Message is a broadcast request.
type Message struct {
	TargetType  string
	TargetValue string
	Title       string
	Body        string
	Sender      string // Best-effort; empty is stored as null.
}

// payload is the structured data stored on each notification.
type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Service records broadcasts and fans them out.
type Service struct {
	db        *gorm.DB
	chunkSize int
}

// NewService constructs a broadcast service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, chunkSize: defaultChunkSize}
}

// Send validates msg, resolves recipients and inserts the message with one
// notification per recipient. Everything commits in one transaction.
func (s *Service) Send(ctx context.Context, msg Message) (int, error) {
	title := strings.TrimSpace(msg.Title)
	body := strings.TrimSpace(msg.Body)
	if title == "" || body == "" {
		return 0, ErrValidation
	}
	targetType := strings.TrimSpace(msg.TargetType)
	targetValue := strings.TrimSpace(msg.TargetValue)
	switch targetType {
	case models.MessageTargetAll:
		targetValue = ""
	case models.MessageTargetUsername, models.MessageTargetUserID:
		if targetValue == "" {
			return 0, ErrInvalidTarget
		}
	default:
		return 0, ErrInvalidTarget
	}

	recipients, errResolve := s.resolve(ctx, targetType, targetValue)
	if errResolve != nil {
		return 0, errResolve
	}
	if len(recipients) == 0 {
		return 0, ErrUserNotFound
	}

	data, errMarshal := json.Marshal(payload{Title: title, Body: body})
	if errMarshal != nil {
		return 0, fmt.Errorf("broadcast: encode payload: %w", errMarshal)
	}

	record := models.AdminMessage{TargetType: targetType, Title: title, Body: body}
	if targetValue != "" {
		record.TargetValue = &targetValue
	}
	if sender := strings.TrimSpace(msg.Sender); sender != "" {
		record.Sender = &sender
	}

	notifications := make([]models.UserNotification, 0, len(recipients))
	for _, userID := range recipients {
		notifications = append(notifications, models.UserNotification{
			UserID:     userID,
			Type:       NotificationType,
			TitleKey:   TitleKey,
			ContentKey: ContentKey,
			Data:       datatypes.JSON(data),
		})
	}

	chunk := s.chunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			return fmt.Errorf("broadcast: create message: %w", errCreate)
		}
		if errCreate := tx.CreateInBatches(&notifications, chunk).Error; errCreate != nil {
			return fmt.Errorf("broadcast: create notifications: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}

	log.WithFields(log.Fields{
		"message_id":  record.ID,
		"target_type": targetType,
		"recipients":  len(recipients),
	}).Info("broadcast: message sent")
	return len(recipients), nil
}

func (s *Service) resolve(ctx context.Context, targetType, targetValue string) ([]string, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	switch targetType {
	case models.MessageTargetUsername:
		q = q.Where(dbpkg.CaseInsensitiveEqualExpr("username"), strings.ToLower(targetValue)).Limit(1)
	case models.MessageTargetUserID:
		q = q.Where("user_id = ?", targetValue).Limit(1)
	}
	var ids []string
	if errPluck := q.Order("user_id ASC").Pluck("user_id", &ids).Error; errPluck != nil {
		return nil, fmt.Errorf("broadcast: resolve recipients: %w", errPluck)
	}
	return ids, nil
}

// Delete removes a message record. Notifications already sent are kept.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.AdminMessage{}, id)
	if res.Error != nil {
		return fmt.Errorf("broadcast: delete message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Page is one page of sent messages.
type Page struct {
	Messages []models.AdminMessage `json:"messages"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// List returns sent messages, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	out := &Page{Messages: []models.AdminMessage{}, Page: page, PageSize: pageSize}
	if errCount := s.db.WithContext(ctx).Model(&models.AdminMessage{}).Count(&out.Total).Error; errCount != nil {
		return nil, fmt.Errorf("broadcast: count messages: %w", errCount)
	}
	if out.Total == 0 {
		return out, nil
	}
	if errFind := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out.Messages).Error; errFind != nil {
		return nil, fmt.Errorf("broadcast: list messages: %w", errFind)
	}
	return out, nil
}
