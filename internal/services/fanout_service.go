package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
	"github.com/relieflink/relieflink/pkg/logger"
)

// FanOutResult summarises one fan-out run.
type FanOutResult struct {
	Affected int                     `json:"affected"`
	Created  int                     `json:"created"`
	Failures []apperrors.BulkFailure `json:"failures,omitempty"`
}

// FanOutService turns newly ingested disasters into notifications: it
// resolves the affected (user, disaster, location) triples, consults each
// user's preferences, and bulk-creates up to one web and one email
// notification per triple.
type FanOutService struct {
	resolver      *AffectedResolver
	preferences   *PreferencesService
	notifications *NotificationService
}

// NewFanOutService constructs a FanOutService with the supplied dependencies.
func NewFanOutService(resolver *AffectedResolver, preferences *PreferencesService, notifications *NotificationService) (*FanOutService, error) {
	if resolver == nil {
		return nil, fmt.Errorf("fan-out service: affected resolver is required")
	}
	if preferences == nil {
		return nil, fmt.Errorf("fan-out service: preferences service is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("fan-out service: notification service is required")
	}
	return &FanOutService{
		resolver:      resolver,
		preferences:   preferences,
		notifications: notifications,
	}, nil
}

// ProcessNewDisasters fans the given disasters out to affected users.
// Resolver and preference errors abort the run so the caller can retry the
// whole batch; partial insert failures are carried in the result and the
// returned BulkError while the remaining rows stay committed.
func (s *FanOutService) ProcessNewDisasters(ctx context.Context, disasters []models.Disaster) (FanOutResult, error) {
	ctx = ensureContext(ctx)

	var result FanOutResult
	if len(disasters) == 0 {
		return result, nil
	}

	affected, err := s.resolver.FindAffected(ctx, disasters)
	if err != nil {
		return result, fmt.Errorf("fan-out service: resolve affected: %w", err)
	}
	result.Affected = len(affected)
	if len(affected) == 0 {
		logger.Debug("fan-out found no affected users", zap.Int("disasters", len(disasters)))
		return result, nil
	}

	prefsByUser := make(map[string]*models.UserPreferences)
	var inputs []NotificationInput
	for _, party := range affected {
		prefs, ok := prefsByUser[party.User.ID]
		if !ok {
			prefs, err = s.preferences.GetOrCreate(ctx, party.User.ID)
			if err != nil {
				return result, fmt.Errorf("fan-out service: preferences for user %q: %w", party.User.ID, err)
			}
			prefsByUser[party.User.ID] = prefs
		}

		if prefs.WebNotificationsEnabled {
			inputs = append(inputs, NotificationInput{
				UserID:     party.User.ID,
				DisasterID: party.Disaster.ID,
				LocationID: party.Location.ID,
				Channel:    models.ChannelWeb,
			})
		}
		if prefs.EmailEnabled {
			inputs = append(inputs, NotificationInput{
				UserID:     party.User.ID,
				DisasterID: party.Disaster.ID,
				LocationID: party.Location.ID,
				Channel:    models.ChannelEmail,
			})
		}
	}
	if len(inputs) == 0 {
		return result, nil
	}

	created, err := s.notifications.BulkCreate(ctx, inputs)
	result.Created = len(created)

	var bulkErr *apperrors.BulkError
	if errors.As(err, &bulkErr) {
		result.Failures = bulkErr.Failures
		return result, bulkErr
	}
	if err != nil {
		return result, fmt.Errorf("fan-out service: create notifications: %w", err)
	}

	logger.Info("fan-out complete",
		zap.Int("disasters", len(disasters)),
		zap.Int("affected", result.Affected),
		zap.Int("created", result.Created))
	return result, nil
}
