package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
	"github.com/relieflink/relieflink/pkg/logger"
	"github.com/relieflink/relieflink/pkg/metrics"
)

// NotificationInput describes one notification row to create.
type NotificationInput struct {
	UserID     string `json:"user_id"`
	DisasterID string `json:"disaster_id"`
	LocationID string `json:"location_id"`
	Channel    string `json:"channel"`
}

// NotificationFilter narrows ListForUser results.
type NotificationFilter struct {
	Channel string
	Status  string
	Page    int
	Limit   int
}

// NotificationService owns the notification lifecycle: bulk creation during
// fan-out, the unread/read/acknowledged state machine, and the sent
// bookkeeping used by email dispatch.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService constructs a NotificationService with the supplied dependencies.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, fmt.Errorf("notification service: db is required")
	}
	return &NotificationService{db: db}, nil
}

// BulkCreate inserts notifications row by row so one bad row cannot roll
// back its siblings. Rows referencing unknown users or disasters, invalid
// channels, or an existing (user, disaster, channel) row are reported in
// the returned BulkError; every other row commits.
func (s *NotificationService) BulkCreate(ctx context.Context, inputs []NotificationInput) ([]models.DisasterNotification, error) {
	ctx = ensureContext(ctx)
	if len(inputs) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(inputs))
	disasterIDs := make([]string, 0, len(inputs))
	for _, input := range inputs {
		userIDs = append(userIDs, input.UserID)
		disasterIDs = append(disasterIDs, input.DisasterID)
	}

	knownUsers, err := s.existingIDs(ctx, &models.User{}, normaliseIDs(userIDs))
	if err != nil {
		return nil, fmt.Errorf("notification service: check users: %w", err)
	}
	knownDisasters, err := s.existingIDs(ctx, &models.Disaster{}, normaliseIDs(disasterIDs))
	if err != nil {
		return nil, fmt.Errorf("notification service: check disasters: %w", err)
	}

	var (
		created  []models.DisasterNotification
		failures []apperrors.BulkFailure
		combined error
	)
	for i, input := range inputs {
		if reason, rowErr := validateNotificationInput(input, knownUsers, knownDisasters); reason != "" {
			failures = append(failures, apperrors.BulkFailure{Index: i, Reason: reason, Err: rowErr})
			combined = multierr.Append(combined, rowErr)
			metrics.NotificationsCreated.WithLabelValues(input.Channel, "rejected").Inc()
			continue
		}

		notification := models.DisasterNotification{
			UserID:     input.UserID,
			DisasterID: input.DisasterID,
			LocationID: input.LocationID,
			Channel:    input.Channel,
			Status:     models.StatusUnread,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			reason := "insert failed"
			rowErr := err
			if isUniqueConstraintError(err) {
				reason = "notification already exists for this user, disaster and channel"
				rowErr = apperrors.NewConflict(reason).WithInternal(err)
			}
			failures = append(failures, apperrors.BulkFailure{Index: i, Reason: reason, Err: rowErr})
			combined = multierr.Append(combined, rowErr)
			metrics.NotificationsCreated.WithLabelValues(input.Channel, "failed").Inc()
			continue
		}

		created = append(created, notification)
		metrics.NotificationsCreated.WithLabelValues(input.Channel, "created").Inc()
	}

	if len(failures) > 0 {
		bulkErr := &apperrors.BulkError{
			Op:        "create notifications",
			Succeeded: len(created),
			Failures:  failures,
		}
		logger.Warn("bulk notification create had failures",
			zap.Int("created", len(created)),
			zap.Int("failed", len(failures)),
			zap.Error(combined))
		return created, bulkErr
	}
	return created, nil
}

// Get returns a single notification by id.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.DisasterNotification, error) {
	ctx = ensureContext(ctx)
	return s.load(ctx, id)
}

// ListForUser returns the user's notifications, newest first, with optional
// channel/status filters and page/limit pagination.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, filter NotificationFilter) ([]models.DisasterNotification, int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, apperrors.NewBadRequest("user id is required")
	}
	if filter.Channel != "" && !models.ValidChannel(filter.Channel) {
		return nil, 0, apperrors.NewBadRequest("channel must be web or email")
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, 0, apperrors.NewBadRequest("status must be unread, read or acknowledged")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	query := s.db.WithContext(ctx).
		Model(&models.DisasterNotification{}).
		Where("user_id = ?", userID)
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count for user %q: %w", userID, err)
	}

	var notifications []models.DisasterNotification
	err := query.
		Preload("Disaster").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("notification service: list for user %q: %w", userID, err)
	}
	return notifications, total, nil
}

// MarkRead transitions a notification to read. Re-reading a read
// notification is a no-op; acknowledged notifications stay acknowledged.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.DisasterNotification, error) {
	return s.setStatus(ctx, id, models.StatusRead)
}

// MarkUnread transitions a notification back to unread.
func (s *NotificationService) MarkUnread(ctx context.Context, id string) (*models.DisasterNotification, error) {
	return s.setStatus(ctx, id, models.StatusUnread)
}

func (s *NotificationService) setStatus(ctx context.Context, id, status string) (*models.DisasterNotification, error) {
	ctx = ensureContext(ctx)
	notification, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status == status {
		return notification, nil
	}
	if notification.Status == models.StatusAcknowledged {
		return nil, apperrors.NewConflict("notification is already acknowledged")
	}

	err = s.db.WithContext(ctx).Model(notification).Update("status", status).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: set status %q on %q: %w", status, id, err)
	}
	notification.Status = status
	return notification, nil
}

// Acknowledge marks a notification acknowledged, recording the first
// acknowledgement time. Repeat calls keep the original timestamp.
func (s *NotificationService) Acknowledge(ctx context.Context, id string) (*models.DisasterNotification, error) {
	ctx = ensureContext(ctx)
	notification, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status == models.StatusAcknowledged {
		return notification, nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(notification).Updates(map[string]interface{}{
		"status":          models.StatusAcknowledged,
		"acknowledged_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: acknowledge %q: %w", id, err)
	}
	notification.Status = models.StatusAcknowledged
	notification.AcknowledgedAt = &now
	return notification, nil
}

// MarkAllRead marks every unread notification for the user as read and
// returns how many rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.NewBadRequest("user id is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.DisasterNotification{}).
		Where("user_id = ? AND status = ?", userID, models.StatusUnread).
		Update("status", models.StatusRead)
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read for user %q: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Delete(&models.DisasterNotification{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("notification service: delete %q: %w", id, err)
	}
	return nil
}

// PendingEmail returns unread email-channel notifications that have never
// been dispatched, oldest first, with the rows needed to render the email.
func (s *NotificationService) PendingEmail(ctx context.Context) ([]models.DisasterNotification, error) {
	ctx = ensureContext(ctx)

	var notifications []models.DisasterNotification
	err := s.db.WithContext(ctx).
		Where("channel = ? AND status = ? AND last_sent_at IS NULL",
			models.ChannelEmail, models.StatusUnread).
		Preload("User").
		Preload("User.Company").
		Preload("Disaster").
		Preload("Location").
		Order("created_at ASC").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: pending email: %w", err)
	}
	return notifications, nil
}

// MarkSent records a confirmed delivery for the given notifications.
// first_sent_at is written once; last_sent_at moves on every send.
func (s *NotificationService) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&models.DisasterNotification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"first_sent_at": gorm.Expr("COALESCE(first_sent_at, ?)", at),
			"last_sent_at":  at,
		}).Error
	if err != nil {
		return fmt.Errorf("notification service: mark sent: %w", err)
	}
	return nil
}

func (s *NotificationService) load(ctx context.Context, id string) (*models.DisasterNotification, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("notification id is required")
	}

	var notification models.DisasterNotification
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("notification not found")
		}
		return nil, fmt.Errorf("notification service: load %q: %w", id, err)
	}
	return &notification, nil
}

func (s *NotificationService) existingIDs(ctx context.Context, model interface{}, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var found []string
	err := s.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

func validateNotificationInput(input NotificationInput, knownUsers, knownDisasters map[string]struct{}) (string, error) {
	if !models.ValidChannel(input.Channel) {
		reason := fmt.Sprintf("unsupported channel %q", input.Channel)
		return reason, apperrors.NewBadRequest(reason)
	}
	if _, ok := knownUsers[input.UserID]; !ok {
		reason := fmt.Sprintf("user %q not found", input.UserID)
		return reason, apperrors.NewNotFound(reason)
	}
	if _, ok := knownDisasters[input.DisasterID]; !ok {
		reason := fmt.Sprintf("disaster %q not found", input.DisasterID)
		return reason, apperrors.NewNotFound(reason)
	}
	return "", nil
}
