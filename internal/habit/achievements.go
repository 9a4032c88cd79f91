package habit

import "strings"

// Achievement is a gamification badge derived from the current habit list.
// Never persisted; recomputed in full on every request.
type Achievement struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Progress    float64 `json:"progress"`
}

const (
	morningTargetDays    = 7
	masterTargetStreak   = 30
	diversityTargetCount = 5
	trackerTargetEntries = 100
)

// morningKeywords match habits that count towards the morning-routine badge.
// The app shipped in German first, hence the German pair.
var morningKeywords = []string{"morning", "morgen", "früh"}

// Achievements computes the fixed, ordered badge list. The order is part of
// the API contract; clients render badges positionally.
func Achievements(habits []Habit) []Achievement {
	return []Achievement{
		{
			ID:          "early_bird",
			Title:       "Early Bird",
			Description: "Complete your morning routine on 7 days",
			Icon:        "sunny",
			Progress:    morningProgress(habits),
		},
		{
			ID:          "habit_master",
			Title:       "Habit Master",
			Description: "Reach a 30 day streak",
			Icon:        "trophy",
			Progress:    clamp01(float64(maxStreak(habits)) / masterTargetStreak),
		},
		{
			ID:          "diverse_achiever",
			Title:       "Diverse Achiever",
			Description: "Maintain 5 active habits",
			Icon:        "grid",
			Progress:    clamp01(float64(len(habits)) / diversityTargetCount),
		},
		{
			ID:          "perfectionist",
			Title:       "Perfectionist",
			Description: "Complete all habits on a single day",
			Icon:        "checkmark-circle",
			Progress:    perfectDayProgress(habits),
		},
		{
			ID:          "consistent_tracker",
			Title:       "Consistent Tracker",
			Description: "Record 100 habit entries",
			Icon:        "analytics",
			Progress:    clamp01(float64(totalEntries(habits)) / trackerTargetEntries),
		},
	}
}

func morningProgress(habits []Habit) float64 {
	completed := 0
	for _, h := range habits {
		if !isMorningHabit(h.Name) {
			continue
		}
		for _, e := range h.History {
			if e.Completed {
				completed++
			}
		}
	}
	return clamp01(float64(completed) / morningTargetDays)
}

func isMorningHabit(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range morningKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func maxStreak(habits []Habit) int {
	max := 0
	for _, h := range habits {
		if h.CurrentStreak > max {
			max = h.CurrentStreak
		}
	}
	return max
}

func perfectDayProgress(habits []Habit) float64 {
	if len(habits) == 0 {
		return 0
	}
	done := 0
	for _, h := range habits {
		if h.CompletedToday {
			done++
		}
	}
	return clamp01(float64(done) / float64(len(habits)))
}

func totalEntries(habits []Habit) int {
	n := 0
	for _, h := range habits {
		n += len(h.History)
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
