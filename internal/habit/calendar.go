package habit

import (
	"errors"
	"time"
)

var ErrFutureMonth = errors.New("cannot navigate past the current month")

type CellState string

const (
	CellNoData    CellState = "no_data"
	CellCompleted CellState = "completed"
	CellMissed    CellState = "missed"
)

// Cell is one populated day in the month grid. Blank padding cells are nil.
type Cell struct {
	Date    string    `json:"date"`
	Day     int       `json:"day"`
	State   CellState `json:"state"`
	IsToday bool      `json:"is_today"`
}

// MonthGrid is a week-by-week calendar view of a habit's history. Weeks start
// on Monday and every week has exactly 7 cells, padded with nils.
type MonthGrid struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Weeks     [][]*Cell `json:"weeks"`
	CanGoNext bool      `json:"can_go_next"`
}

// BuildMonthGrid lays out the given month. The current month is clipped to
// today (no future cells); months after the current one are rejected.
func BuildMonthGrid(year int, month time.Month, history []HistoryEntry, today time.Time) (MonthGrid, error) {
	loc := today.Location()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	currentFirst := time.Date(todayDate.Year(), todayDate.Month(), 1, 0, 0, 0, 0, loc)
	if first.After(currentFirst) {
		return MonthGrid{}, ErrFutureMonth
	}

	last := first.AddDate(0, 1, -1)
	if first.Equal(currentFirst) {
		last = todayDate
	}

	idx := entryIndex(history)

	// Monday-first weekday index: Mon=0 .. Sun=6.
	lead := (int(first.Weekday()) + 6) % 7

	var weeks [][]*Cell
	week := make([]*Cell, 0, 7)
	for i := 0; i < lead; i++ {
		week = append(week, nil)
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		state := CellNoData
		if completed, ok := idx[key]; ok {
			if completed {
				state = CellCompleted
			} else {
				state = CellMissed
			}
		}
		week = append(week, &Cell{
			Date:    key,
			Day:     d.Day(),
			State:   state,
			IsToday: d.Equal(todayDate),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]*Cell, 0, 7)
		}
	}

	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, nil)
		}
		weeks = append(weeks, week)
	}

	return MonthGrid{
		Year:      year,
		Month:     int(month),
		Weeks:     weeks,
		CanGoNext: first.Before(currentFirst),
	}, nil
}
