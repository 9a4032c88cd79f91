package habit

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Habit{}))
	return db
}

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc := NewService(NewRepo(openTestDB(t)), time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_CreateRequiresName(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))

	_, err := svc.Create(context.Background(), 1, "  ", "", "")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestService_CreateAndList(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, "Read", "ten pages", "learning")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	// later creation sorts first
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Create(ctx, 1, "Run", "", "")
	require.NoError(t, err)

	// another user's habit stays invisible
	_, err = svc.Create(ctx, 2, "Other", "", "")
	require.NoError(t, err)

	habits, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, second.ID, habits[0].ID)
	assert.Equal(t, first.ID, habits[1].ID)
}

func TestService_ToggleOnAndOffRestoresState(t *testing.T) {
	today := day(2024, 5, 5)
	svc := newTestService(t, today)
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Meditate", "", "")
	require.NoError(t, err)

	before, err := svc.Get(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.False(t, before.CompletedToday)
	assert.Equal(t, 0, before.CurrentStreak)

	on, err := svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.True(t, on.CompletedToday)
	assert.Equal(t, 1, on.CurrentStreak)
	require.Len(t, on.History, 1)
	assert.Equal(t, "2024-05-05", on.History[0].Date)

	off, err := svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.Equal(t, before.CompletedToday, off.CompletedToday)
	assert.Equal(t, before.CurrentStreak, off.CurrentStreak)

	// the toggle replaced today's entry instead of appending a second one
	require.Len(t, off.History, 1)
	assert.Equal(t, "2024-05-05", off.History[0].Date)
	assert.False(t, off.History[0].Completed)
}

func TestService_ToggleDoubleToggleKeepsEarlierStreak(t *testing.T) {
	today := day(2024, 5, 5)
	svc := newTestService(t, today)
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Stretch", "", "")
	require.NoError(t, err)

	// seed three completed prior days directly through the repo
	got, err := svc.repo.GetByID(ctx, h.ID)
	require.NoError(t, err)
	got.History = entries("2024-05-02", "2024-05-03", "2024-05-04")
	got.CurrentStreak = 3
	got.UpdatedAt = today
	require.NoError(t, svc.repo.SaveToggle(ctx, got))

	on, err := svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, on.CurrentStreak)

	off, err := svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, off.CurrentStreak)
	assert.False(t, off.CompletedToday)
}

func TestService_ListNormalizesStaleCompletedToday(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Journal", "", "")
	require.NoError(t, err)

	_, err = svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)

	// next day: the stored flag refers to yesterday and must read as false
	svc.now = func() time.Time { return day(2024, 5, 6) }

	habits, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.False(t, habits[0].CompletedToday)
	assert.Equal(t, 1, habits[0].CurrentStreak)
}

func TestService_ToggleUnknownHabit(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))

	_, err := svc.Toggle(context.Background(), 1, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_OwnershipEnforced(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Read", "", "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Toggle(ctx, 2, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(ctx, 2, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// still there for its owner
	_, err = svc.Get(ctx, 1, h.ID)
	assert.NoError(t, err)
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t, day(2024, 5, 5))
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Read", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, h.ID))

	_, err = svc.Get(ctx, 1, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Calendar(t *testing.T) {
	today := day(2024, 5, 5)
	svc := newTestService(t, today)
	ctx := context.Background()

	h, err := svc.Create(ctx, 1, "Read", "", "")
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, 1, h.ID)
	require.NoError(t, err)

	grid, err := svc.Calendar(ctx, 1, h.ID, 2024, time.May)
	require.NoError(t, err)
	assert.Equal(t, 2024, grid.Year)
	assert.Equal(t, 5, grid.Month)

	_, err = svc.Calendar(ctx, 1, h.ID, 2024, time.June)
	assert.ErrorIs(t, err, ErrFutureMonth)
}
