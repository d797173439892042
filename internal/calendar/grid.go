// Package calendar lays plan assignments out on week and month grids.
package calendar

import (
	"time"

	"meal-planner/internal/filter"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

const (
	WeekDays  = 7
	MonthDays = 42
)

// SlotCell is one meal period of a grid day.
type SlotCell struct {
	Slot       string              `json:"slot"`
	// Assignment and Recipe are both set or both nil. A slot whose recipe is
	// gone from the catalog is empty.
	Assignment *planner.Assignment `json:"assignment,omitempty"`
	Recipe     *recipe.Recipe      `json:"recipe,omitempty"`
	// Blocked marks a planned recipe that matches the current dislikes. It is
	// still shown.
	Blocked bool `json:"blocked,omitempty"`
}

// Cell is one calendar day.
type Cell struct {
	Date    string     `json:"date"`
	Day     int        `json:"day"`
	Weekday string     `json:"weekday"`
	InMonth bool       `json:"inMonth"`
	IsToday bool       `json:"isToday"`
	Slots   []SlotCell `json:"slots"`
}

// Options carries what the grid needs besides the dates.
type Options struct {
	Index    *planner.Index
	Catalog  *recipe.Catalog
	Dislikes []string
	// Today is highlighted when it falls on the grid.
	Today time.Time
}

// StartOfWeek backs day up to the most recent weekStart weekday, day included.
func StartOfWeek(day time.Time, weekStart time.Weekday) time.Time {
	d := dateOnly(day)
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// ShiftWeeks moves a date by whole weeks; negative n goes back.
func ShiftWeeks(day time.Time, n int) time.Time {
	return dateOnly(day).AddDate(0, 0, 7*n)
}

// WeekDates returns 7 consecutive dates beginning at start.
func WeekDates(start time.Time) []time.Time {
	return consecutive(dateOnly(start), WeekDays)
}

// MonthDates returns 42 consecutive dates starting at the most recent
// weekStart weekday on or before the first of the month containing anyDay.
// Six full rows always fit any month.
func MonthDates(anyDay time.Time, weekStart time.Weekday) []time.Time {
	d := dateOnly(anyDay)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	return consecutive(StartOfWeek(first, weekStart), MonthDays)
}

// BuildWeek returns the cells of the week beginning at start. Every cell
// counts as in month.
func BuildWeek(start time.Time, opts Options) []Cell {
	dates := WeekDates(start)
	cells := make([]Cell, 0, len(dates))
	for _, d := range dates {
		cells = append(cells, buildCell(d, true, opts))
	}
	return cells
}

// BuildMonth returns the 42 cells of the month grid for anyDay. Days from
// the adjacent months are kept and flagged with InMonth false.
func BuildMonth(anyDay time.Time, weekStart time.Weekday, opts Options) []Cell {
	month := dateOnly(anyDay).Month()
	dates := MonthDates(anyDay, weekStart)
	cells := make([]Cell, 0, len(dates))
	for _, d := range dates {
		cells = append(cells, buildCell(d, d.Month() == month, opts))
	}
	return cells
}

func buildCell(d time.Time, inMonth bool, opts Options) Cell {
	key := planner.FormatDate(d)
	cell := Cell{
		Date:    key,
		Day:     d.Day(),
		Weekday: d.Weekday().String()[:3],
		InMonth: inMonth,
		IsToday: !opts.Today.IsZero() && planner.FormatDate(opts.Today) == key,
		Slots:   make([]SlotCell, 0, len(planner.Slots)),
	}

	for _, slot := range planner.Slots {
		sc := SlotCell{Slot: slot}
		if a, ok := opts.Index.Get(key, slot); ok {
			// A dangling reference shows as an empty slot.
			if r, ok := opts.Catalog.Recipe(a.RecipeID); ok {
				sc.Assignment = &a
				sc.Recipe = &r
				sc.Blocked = filter.IsBlocked(r, opts.Dislikes)
			}
		}
		cell.Slots = append(cell.Slots, sc)
	}
	return cell
}

func consecutive(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

// dateOnly drops the clock time, keeping the location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
