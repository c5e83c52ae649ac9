package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relieflink/relieflink/internal/database/testutil"
	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
)

func TestNotificationServiceBulkCreatePartialFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	location := seedLocation(t, db, company.ID, "06", "067")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	created, err := svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: disaster.ID, LocationID: location.ID, Channel: models.ChannelWeb},
		{UserID: "00000000-0000-0000-0000-0000000000ff", DisasterID: disaster.ID, Channel: models.ChannelWeb},
		{UserID: user.ID, DisasterID: disaster.ID, LocationID: location.ID, Channel: models.ChannelEmail},
		{UserID: user.ID, DisasterID: disaster.ID, Channel: "sms"},
	})

	require.Len(t, created, 2)
	require.Equal(t, models.StatusUnread, created[0].Status)

	var bulkErr *apperrors.BulkError
	require.True(t, errors.As(err, &bulkErr))
	require.Equal(t, 2, bulkErr.Succeeded)
	require.Len(t, bulkErr.Failures, 2)
	require.Equal(t, 1, bulkErr.Failures[0].Index)
	require.Contains(t, bulkErr.Failures[0].Reason, "not found")
	require.Equal(t, 3, bulkErr.Failures[1].Index)
	require.Contains(t, bulkErr.Failures[1].Reason, "channel")

	// The committed rows survived the partial failure.
	var count int64
	require.NoError(t, db.Model(&models.DisasterNotification{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestNotificationServiceBulkCreateDuplicateConflicts(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	input := NotificationInput{UserID: user.ID, DisasterID: disaster.ID, Channel: models.ChannelWeb}

	_, err = svc.BulkCreate(context.Background(), []NotificationInput{input})
	require.NoError(t, err)

	// A second fan-out run collides on the unique index instead of duplicating.
	created, err := svc.BulkCreate(context.Background(), []NotificationInput{input})
	require.Empty(t, created)

	var bulkErr *apperrors.BulkError
	require.True(t, errors.As(err, &bulkErr))
	require.Len(t, bulkErr.Failures, 1)
	require.Contains(t, bulkErr.Failures[0].Reason, "already exists")
}

func TestNotificationServiceStateMachine(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	created, err := svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: disaster.ID, Channel: models.ChannelWeb},
	})
	require.NoError(t, err)
	id := created[0].ID

	read, err := svc.MarkRead(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.StatusRead, read.Status)

	// Re-reading is a no-op.
	read, err = svc.MarkRead(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.StatusRead, read.Status)

	unread, err := svc.MarkUnread(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.StatusUnread, unread.Status)

	acked, err := svc.Acknowledge(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.StatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedAt)
	firstAck := *acked.AcknowledgedAt

	// Acknowledging again keeps the original timestamp.
	acked, err = svc.Acknowledge(context.Background(), id)
	require.NoError(t, err)
	require.True(t, acked.AcknowledgedAt.Equal(firstAck))

	// Acknowledged rows cannot move back.
	_, err = svc.MarkUnread(context.Background(), id)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrConflict.Code, apperrors.FromError(err).Code)

	_, err = svc.MarkRead(context.Background(), "00000000-0000-0000-0000-0000000000ff")
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	one := seedDisaster(t, db, "06", "067")
	two := seedDisaster(t, db, "48", "201")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	_, err = svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: one.ID, Channel: models.ChannelWeb},
		{UserID: user.ID, DisasterID: two.ID, Channel: models.ChannelWeb},
	})
	require.NoError(t, err)

	changed, err := svc.MarkAllRead(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), changed)

	changed, err = svc.MarkAllRead(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestNotificationServiceListForUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	_, err = svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: disaster.ID, Channel: models.ChannelWeb},
		{UserID: user.ID, DisasterID: disaster.ID, Channel: models.ChannelEmail},
	})
	require.NoError(t, err)

	all, total, err := svc.ListForUser(context.Background(), user.ID, NotificationFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Disaster)

	webOnly, total, err := svc.ListForUser(context.Background(), user.ID, NotificationFilter{Channel: models.ChannelWeb})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, webOnly, 1)
	require.Equal(t, models.ChannelWeb, webOnly[0].Channel)

	paged, total, err := svc.ListForUser(context.Background(), user.ID, NotificationFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, paged, 1)

	_, _, err = svc.ListForUser(context.Background(), user.ID, NotificationFilter{Channel: "sms"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestNotificationServicePendingEmailAndMarkSent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	location := seedLocation(t, db, company.ID, "06", "067")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	created, err := svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: disaster.ID, LocationID: location.ID, Channel: models.ChannelEmail},
		{UserID: user.ID, DisasterID: disaster.ID, LocationID: location.ID, Channel: models.ChannelWeb},
	})
	require.NoError(t, err)

	pending, err := svc.PendingEmail(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, models.ChannelEmail, pending[0].Channel)
	require.NotNil(t, pending[0].User)
	require.NotNil(t, pending[0].Disaster)

	firstSend := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.MarkSent(context.Background(), []string{created[0].ID}, firstSend))

	sent, err := svc.Get(context.Background(), created[0].ID)
	require.NoError(t, err)
	require.NotNil(t, sent.FirstSentAt)
	require.True(t, sent.FirstSentAt.Equal(firstSend))

	// Sent rows leave the pending set.
	pending, err = svc.PendingEmail(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)

	// A later send moves last_sent_at only.
	secondSend := firstSend.Add(24 * time.Hour)
	require.NoError(t, svc.MarkSent(context.Background(), []string{created[0].ID}, secondSend))

	sent, err = svc.Get(context.Background(), created[0].ID)
	require.NoError(t, err)
	require.True(t, sent.FirstSentAt.Equal(firstSend))
	require.True(t, sent.LastSentAt.Equal(secondSend))
}

func TestNotificationServiceDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	company := seedCompany(t, db, "Acme")
	user := seedUser(t, db, company.ID, "note@example.com")
	disaster := seedDisaster(t, db, "06", "067")

	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	created, err := svc.BulkCreate(context.Background(), []NotificationInput{
		{UserID: user.ID, DisasterID: disaster.ID, Channel: models.ChannelWeb},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created[0].ID))

	err = svc.Delete(context.Background(), created[0].ID)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}
