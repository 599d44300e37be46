package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	testutil "github.com/tramdoc/tramdoc/internal/database/testutil"
	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/store"
)

func TestPurgeResetCodes(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)
	account := seedAccount(t, st, "purge@gmail.com")

	for _, code := range []*models.PasswordResetOTP{
		{AccountID: account.ID, Code: "111111", ExpiresAt: now.Add(-time.Hour)},
		{AccountID: account.ID, Code: "222222", ExpiresAt: now},
		{AccountID: account.ID, Code: "333333", ExpiresAt: now.Add(time.Hour)},
	} {
		require.NoError(t, st.ResetCodes().Save(context.Background(), code))
	}

	purged, err := PurgeResetCodes(context.Background(), st.ResetCodes(), now)
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)

	var remaining int64
	require.NoError(t, db.Model(&models.PasswordResetOTP{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}

func TestPurgeResetCodesRequiresStore(t *testing.T) {
	_, err := PurgeResetCodes(context.Background(), nil, time.Now())
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	clock := fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	account := seedAccount(t, st, "cleanup@gmail.com")
	require.NoError(t, st.ResetCodes().Save(context.Background(), &models.PasswordResetOTP{
		AccountID: account.ID,
		Code:      "123456",
		ExpiresAt: clock.Now().Add(-time.Minute),
	}))

	c := NewCleaner(st.ResetCodes(),
		WithNow(clock.Now),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.PasswordResetOTP{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestCleanerRunOnceCollectsErrors(t *testing.T) {
	boom := errors.New("database gone")
	c := NewCleaner(failingPurger{err: boom})

	err := c.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "reset codes")
}

func TestCleanerStartWithoutJobs(t *testing.T) {
	c := NewCleaner(nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(failingPurger{}, WithResetCodeSchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerStartAndStop(t *testing.T) {
	c := NewCleaner(failingPurger{}, WithResetCodeSchedule("@every 1h"))
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func seedAccount(t *testing.T, st store.Store, email string) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:    email,
		Password: models.StringPtr("hash"),
		FullName: "Reader",
		IsActive: true,
	}
	require.NoError(t, st.Accounts().Save(context.Background(), account))
	return account
}

type failingPurger struct {
	err error
}

func (f failingPurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
