package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relieflink/relieflink/internal/dispatch"
	"github.com/relieflink/relieflink/internal/models"
	"github.com/relieflink/relieflink/pkg/logger"
)

// DispatchSummary reports the outcome of one email drain.
type DispatchSummary struct {
	Pending int                `json:"pending"`
	Sent    int                `json:"sent"`
	Skipped int                `json:"skipped"`
	Failed  []dispatch.Failure `json:"failed,omitempty"`
}

// EmailDispatchService drains pending email notifications through the
// batched transport. Only transport-confirmed sends are marked, so a
// failed or aborted run leaves the remaining rows pending for the next one.
type EmailDispatchService struct {
	notifications *NotificationService
	batcher       *dispatch.Batcher
	renderer      *dispatch.Renderer
	now           func() time.Time
}

// NewEmailDispatchService constructs an EmailDispatchService with the supplied dependencies.
func NewEmailDispatchService(notifications *NotificationService, batcher *dispatch.Batcher, renderer *dispatch.Renderer) (*EmailDispatchService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("email dispatch service: notification service is required")
	}
	if batcher == nil {
		return nil, fmt.Errorf("email dispatch service: batcher is required")
	}
	if renderer == nil {
		renderer = dispatch.NewRenderer()
	}
	return &EmailDispatchService{
		notifications: notifications,
		batcher:       batcher,
		renderer:      renderer,
		now:           time.Now,
	}, nil
}

// SendPending renders and dispatches every never-sent email notification.
func (s *EmailDispatchService) SendPending(ctx context.Context) (DispatchSummary, error) {
	ctx = ensureContext(ctx)

	var summary DispatchSummary
	pending, err := s.notifications.PendingEmail(ctx)
	if err != nil {
		return summary, err
	}
	summary.Pending = len(pending)
	if len(pending) == 0 {
		return summary, nil
	}

	var messages []dispatch.Message
	for _, notification := range pending {
		message, ok := s.buildMessage(notification)
		if !ok {
			summary.Skipped++
			continue
		}
		messages = append(messages, message)
	}
	if len(messages) == 0 {
		return summary, nil
	}

	result, sendErr := s.batcher.Send(ctx, messages)
	summary.Sent = len(result.Succeeded)
	summary.Failed = result.Failed

	// Mark whatever the transport confirmed, even when a later window
	// failed hard; those rows must not be re-sent next run.
	if len(result.Succeeded) > 0 {
		if err := s.notifications.MarkSent(ctx, result.Succeeded, s.now().UTC()); err != nil {
			return summary, err
		}
	}
	if sendErr != nil {
		return summary, fmt.Errorf("email dispatch service: send pending: %w", sendErr)
	}

	logger.Info("email dispatch complete",
		zap.Int("pending", summary.Pending),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", len(summary.Failed)))
	return summary, nil
}

func (s *EmailDispatchService) buildMessage(notification models.DisasterNotification) (dispatch.Message, bool) {
	if notification.User == nil || strings.TrimSpace(notification.User.Email) == "" {
		logger.Warn("skipping email notification without recipient address",
			zap.String("notification_id", notification.ID),
			zap.String("user_id", notification.UserID))
		return dispatch.Message{}, false
	}
	if notification.Disaster == nil {
		logger.Warn("skipping email notification without disaster row",
			zap.String("notification_id", notification.ID))
		return dispatch.Message{}, false
	}

	data := dispatch.EmailData{
		FirstName:        notification.User.FirstName,
		DeclarationDate:  notification.Disaster.DeclarationDate,
		DeclarationType:  notification.Disaster.DeclarationType,
		IncidentMeanings: dispatch.IncidentTypeMeanings(notification.Disaster.IncidentTypeList()),
		DesignatedArea:   notification.Disaster.DesignatedArea,
	}
	if notification.Location != nil {
		data.City = notification.Location.City
	}
	if notification.User.Company != nil {
		data.CompanyName = notification.User.Company.Name
	}

	subject, body, err := s.renderer.Render(data)
	if err != nil {
		logger.Error("render disaster email failed",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
		return dispatch.Message{}, false
	}

	return dispatch.Message{
		ID:             notification.ID,
		Recipient:      notification.User.Email,
		Subject:        subject,
		Body:           body,
		NotificationID: notification.ID,
		DisasterID:     notification.DisasterID,
	}, true
}
