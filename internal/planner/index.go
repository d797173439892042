package planner

import "sort"

type entry struct {
	assignment Assignment
	// mirrored marks a dinner entry copied from a legacy main entry.
	mirrored bool
}

// Index is the date -> slot -> assignment lookup derived from a plan list.
// It is rebuilt from scratch whenever the plan list changes.
type Index struct {
	days map[string]map[string]entry
}

// BuildIndex processes assignments in input order. The last write for a
// (date, slot) pair wins. A "main" entry is mirrored into "dinner" unless that
// day has an explicit dinner, which always wins whatever the order.
func BuildIndex(assignments []Assignment) *Index {
	idx := &Index{days: make(map[string]map[string]entry)}
	for _, a := range assignments {
		date := DateKey(a.Date)
		slot := NormalizeSlot(a.Slot)

		day, ok := idx.days[date]
		if !ok {
			day = make(map[string]entry, len(Slots))
			idx.days[date] = day
		}

		day[slot] = entry{assignment: a}
		if slot == SlotMain {
			if cur, ok := day[SlotDinner]; !ok || cur.mirrored {
				day[SlotDinner] = entry{assignment: a, mirrored: true}
			}
		}
	}
	return idx
}

// Get returns the assignment occupying the slot, mirrors included.
func (idx *Index) Get(date, slot string) (Assignment, bool) {
	if idx == nil {
		return Assignment{}, false
	}
	e, ok := idx.days[DateKey(date)][NormalizeSlot(slot)]
	return e.assignment, ok
}

// Slots returns the occupied slots of a day, mirrors included.
func (idx *Index) Slots(date string) map[string]Assignment {
	out := make(map[string]Assignment)
	if idx == nil {
		return out
	}
	for slot, e := range idx.days[DateKey(date)] {
		out[slot] = e.assignment
	}
	return out
}

// Dates returns the planned dates in ascending order.
func (idx *Index) Dates() []string {
	if idx == nil {
		return nil
	}
	dates := make([]string, 0, len(idx.days))
	for d := range idx.days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Each visits every stored assignment once, by date then slot. Dinner
// entries mirrored from "main" are skipped so nothing is counted twice.
func (idx *Index) Each(fn func(date, slot string, a Assignment)) {
	for _, date := range idx.Dates() {
		day := idx.days[date]
		slots := make([]string, 0, len(day))
		for slot, e := range day {
			if !e.mirrored {
				slots = append(slots, slot)
			}
		}
		sort.Slice(slots, func(i, j int) bool {
			ri, rj := slotRank(slots[i]), slotRank(slots[j])
			if ri != rj {
				return ri < rj
			}
			return slots[i] < slots[j]
		})
		for _, slot := range slots {
			fn(date, slot, day[slot].assignment)
		}
	}
}

// Len counts stored assignments, not mirrors.
func (idx *Index) Len() int {
	n := 0
	idx.Each(func(string, string, Assignment) { n++ })
	return n
}

func slotRank(slot string) int {
	switch slot {
	case SlotBreakfast:
		return 0
	case SlotLunch:
		return 1
	case SlotDinner:
		return 2
	case SlotMain:
		return 3
	default:
		return 4
	}
}
