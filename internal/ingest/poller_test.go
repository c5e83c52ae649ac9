package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/database/testutil"
	"github.com/relieflink/relieflink/internal/models"
	"github.com/relieflink/relieflink/internal/services"
)

type stubFetcher struct {
	declarations []Declaration
	err          error
	since        []*time.Time
}

func (s *stubFetcher) FetchDeclarations(_ context.Context, since *time.Time) ([]Declaration, error) {
	s.since = append(s.since, since)
	if s.err != nil {
		return nil, s.err
	}
	return s.declarations, nil
}

func testDeclaration(externalID, state, county string) Declaration {
	return Declaration{
		FemaDeclarationString: externalID,
		DisasterNumber:        4701,
		FIPSStateCode:         state,
		FIPSCountyCode:        county,
		DeclarationDate:       time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DeclarationType:       "DR",
		DesignatedArea:        "Test County",
	}
}

func newTestPoller(t *testing.T, db *gorm.DB, fetcher DeclarationFetcher) *Poller {
	t.Helper()

	disasters, err := services.NewDisasterService(db)
	require.NoError(t, err)
	resolver, err := services.NewAffectedResolver(db)
	require.NoError(t, err)
	preferences, err := services.NewPreferencesService(db)
	require.NoError(t, err)
	notifications, err := services.NewNotificationService(db)
	require.NoError(t, err)
	fanout, err := services.NewFanOutService(resolver, preferences, notifications)
	require.NoError(t, err)

	poller, err := NewPoller(fetcher, disasters, fanout, nil)
	require.NoError(t, err)
	return poller
}

func seedAffectedUser(t *testing.T, db *gorm.DB, state, county string) models.User {
	t.Helper()

	company := models.Company{Name: "Acme"}
	require.NoError(t, db.Create(&company).Error)

	user := models.User{FirstName: "Test", Email: "poll@example.com", CompanyID: company.ID}
	require.NoError(t, db.Create(&user).Error)

	location := models.Location{
		CompanyID:      company.ID,
		City:           "Springfield",
		FIPSStateCode:  &state,
		FIPSCountyCode: &county,
	}
	require.NoError(t, db.Create(&location).Error)
	return user
}

func TestPollerRunOnceFansOutOnlyNewDisasters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedAffectedUser(t, db, "06", "067")

	fetcher := &stubFetcher{declarations: []Declaration{
		testDeclaration("DR-4701-CA", "06", "067"),
	}}
	poller := newTestPoller(t, db, fetcher)

	stats, err := poller.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Fetched)
	require.Equal(t, 1, stats.New)
	require.Zero(t, stats.Updated)
	require.Equal(t, 2, stats.FanOut.Created)

	var count int64
	require.NoError(t, db.Model(&models.DisasterNotification{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)

	// The same declaration plus a fresh one: only the fresh one fans out.
	fetcher.declarations = append(fetcher.declarations, testDeclaration("DR-4702-TX", "48", "201"))

	stats, err = poller.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.New)
	require.Equal(t, 1, stats.Updated)
	require.Zero(t, stats.FanOut.Created)

	require.NoError(t, db.Model(&models.DisasterNotification{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestPollerAdvancesRefreshCursor(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	fetcher := &stubFetcher{}
	poller := newTestPoller(t, db, fetcher)

	require.Nil(t, poller.LastRefresh())

	_, err := poller.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, poller.LastRefresh())

	_, err = poller.RunOnce(context.Background())
	require.NoError(t, err)

	// First run polls from scratch, second passes the cursor along.
	require.Len(t, fetcher.since, 2)
	require.Nil(t, fetcher.since[0])
	require.NotNil(t, fetcher.since[1])
}

func TestPollerFetchErrorLeavesCursorAlone(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	fetcher := &stubFetcher{err: errors.New("upstream down")}
	poller := newTestPoller(t, db, fetcher)

	_, err := poller.RunOnce(context.Background())
	require.Error(t, err)
	require.Nil(t, poller.LastRefresh())
}
