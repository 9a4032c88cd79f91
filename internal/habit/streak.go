package habit

import "time"

// Streak returns the consecutive-day completion streak ending at today.
//
// The walk starts at today's calendar date and moves backwards one day at a
// time, counting completed entries. Today itself is special: a day that has
// no entry yet, or whose entry was toggled back off, is treated as pending
// rather than broken, so the streak built up through yesterday is preserved
// until the day actually passes. Any earlier missing or uncompleted day ends
// the walk.
func Streak(history []HistoryEntry, today time.Time) int {
	if len(history) == 0 {
		return 0
	}

	idx := entryIndex(history)
	cursor := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	streak := 0

	if completed, ok := idx[cursor.Format(DateLayout)]; ok && completed {
		streak++
	}
	cursor = cursor.AddDate(0, 0, -1)

	for {
		completed, ok := idx[cursor.Format(DateLayout)]
		if !ok || !completed {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// completedOn reports whether the habit has a completed entry for the given
// calendar date. Used to derive CompletedToday on reads so the stored flag
// from a previous day never leaks into the current one.
func completedOn(history []HistoryEntry, day time.Time) bool {
	key := day.Format(DateLayout)
	for _, e := range history {
		if e.Date == key {
			return e.Completed
		}
	}
	return false
}
