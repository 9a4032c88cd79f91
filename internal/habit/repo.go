package habit

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, h *Habit) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// ListByUser returns the user's habits newest-first, the order the home
// screen renders them in.
func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Habit, error) {
	var habits []Habit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Habit, error) {
	var h Habit
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveToggle writes the fields a toggle mutates as one update. The explicit
// field mask keeps the write atomic at row granularity and leaves creation
// fields untouched.
func (r *Repo) SaveToggle(ctx context.Context, h *Habit) error {
	return r.db.WithContext(ctx).Model(&Habit{ID: h.ID}).
		Select("completed_today", "current_streak", "history", "updated_at").
		Updates(Habit{
			CompletedToday: h.CompletedToday,
			CurrentStreak:  h.CurrentStreak,
			History:        h.History,
			UpdatedAt:      h.UpdatedAt,
		}).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&Habit{}, "id = ?", id).Error
}
