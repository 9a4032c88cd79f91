package habit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("habit not found")
	ErrNameRequired = errors.New("habit name is required")
)

// Service owns all habit operations. Every read and write is scoped to the
// owning user; a habit belonging to someone else behaves like a missing one.
type Service struct {
	repo *Repo
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo *Repo, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Today returns the current calendar date in the service timezone, truncated
// to midnight.
func (s *Service) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Service) Create(ctx context.Context, userID uint64, name, description, category string) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	h := &Habit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		History:     []HistoryEntry{},
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// List returns the user's habits newest-first. CompletedToday is derived from
// history for the current date on every read; the stored flag is only valid
// for the day it was written.
func (s *Service) List(ctx context.Context, userID uint64) ([]Habit, error) {
	habits, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	for i := range habits {
		habits[i].CompletedToday = completedOn(habits[i].History, today)
	}
	return habits, nil
}

func (s *Service) Get(ctx context.Context, userID uint64, habitID string) (*Habit, error) {
	h, err := s.repo.GetByID(ctx, habitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if h.UserID != userID {
		// hide existence
		return nil, ErrNotFound
	}
	h.CompletedToday = completedOn(h.History, s.Today())
	return h, nil
}

// Toggle flips today's completion state. The entry for today is replaced, not
// appended, so history keeps one entry per date; the streak is recomputed
// from scratch, which makes a double toggle a no-op. Nothing is returned on a
// failed write, so callers never observe a half-applied toggle.
func (s *Service) Toggle(ctx context.Context, userID uint64, habitID string) (*Habit, error) {
	h, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	today := s.Today()
	key := today.Format(DateLayout)

	completed := true
	history := make([]HistoryEntry, 0, len(h.History)+1)
	for _, e := range h.History {
		if e.Date == key {
			completed = !e.Completed
			continue
		}
		history = append(history, e)
	}
	history = append(history, HistoryEntry{Date: key, Completed: completed, Timestamp: now})

	h.History = history
	h.CompletedToday = completed
	h.CurrentStreak = Streak(history, today)
	h.UpdatedAt = now

	if err := s.repo.SaveToggle(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Delete(ctx context.Context, userID uint64, habitID string) error {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, habitID)
}

// AchievementsFor recomputes the badge list from the user's current habits.
func (s *Service) AchievementsFor(ctx context.Context, userID uint64) ([]Achievement, error) {
	habits, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Achievements(habits), nil
}

// Calendar builds the month grid for one habit. Month navigation is bounded
// at the current month.
func (s *Service) Calendar(ctx context.Context, userID uint64, habitID string, year int, month time.Month) (MonthGrid, error) {
	h, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return MonthGrid{}, err
	}
	return BuildMonthGrid(year, month, h.History, s.Today())
}
