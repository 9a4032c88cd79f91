package habit

import "time"

// DateLayout is the calendar-date key used everywhere: history entries,
// toggle decisions and calendar cells. Always rendered in the service's
// configured timezone.
const DateLayout = "2006-01-02"

// HistoryEntry records one calendar day of a habit. At most one entry exists
// per date; toggling replaces the entry for that date instead of appending.
type HistoryEntry struct {
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// Habit is the canonical record. History lives in a JSON column so a toggle
// is a single row update, mirroring the one-document-write the mobile app
// relied on.
type Habit struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         uint64         `gorm:"index;not null" json:"-"`
	Name           string         `gorm:"type:varchar(128);not null" json:"name"`
	Description    string         `gorm:"type:varchar(512)" json:"description,omitempty"`
	Category       string         `gorm:"type:varchar(64)" json:"category,omitempty"`
	CompletedToday bool           `json:"completed_today"`
	CurrentStreak  int            `gorm:"not null;default:0" json:"current_streak"`
	History        []HistoryEntry `gorm:"serializer:json;type:text" json:"history"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Habit) TableName() string { return "habits" }

// entryIndex maps date key -> completed. Later entries win, though the store
// never holds two entries for one date.
func entryIndex(history []HistoryEntry) map[string]bool {
	idx := make(map[string]bool, len(history))
	for _, e := range history {
		idx[e.Date] = e.Completed
	}
	return idx
}
