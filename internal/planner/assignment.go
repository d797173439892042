package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for plan keys.
const DateLayout = "2006-01-02"

// Slot names. SlotMain is the legacy single-meal-per-day value; it reads as
// dinner but is stored verbatim.
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotMain      = "main"
)

// Slots lists the meal periods shown on a calendar day, in display order.
var Slots = []string{SlotBreakfast, SlotLunch, SlotDinner}

var (
	ErrInvalidDate   = errors.New("invalid plan date")
	ErrInvalidSlot   = errors.New("invalid plan slot")
	ErrMissingRecipe = errors.New("plan assignment has no recipe")
)

// Assignment places one recipe in one slot of one day.
type Assignment struct {
	UserID   string `json:"userId,omitempty"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	RecipeID string `json:"recipeId"`
}

// UnmarshalJSON accepts numeric recipe ids and the snake_case spelling some
// older records use.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	type Alias Assignment
	aux := &struct {
		RecipeID      json.RawMessage `json:"recipeId"`
		RecipeIDSnake json.RawMessage `json:"recipe_id"`
		UserIDSnake   string          `json:"user_id"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	a.RecipeID = idString(aux.RecipeID)
	if a.RecipeID == "" {
		a.RecipeID = idString(aux.RecipeIDSnake)
	}
	if a.UserID == "" {
		a.UserID = aux.UserIDSnake
	}
	return nil
}

func idString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

// Validate checks an assignment before it is applied.
func (a Assignment) Validate() error {
	if _, err := ParseDate(a.Date); err != nil {
		return err
	}
	switch NormalizeSlot(a.Slot) {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotMain:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSlot, a.Slot)
	}
	if strings.TrimSpace(a.RecipeID) == "" {
		return ErrMissingRecipe
	}
	return nil
}

// NormalizeSlot lower-cases the slot; an empty slot is the legacy "main".
func NormalizeSlot(slot string) string {
	s := strings.ToLower(strings.TrimSpace(slot))
	if s == "" {
		return SlotMain
	}
	return s
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateKey strips any time component from a stored date ("2024-03-04T00:00:00Z"
// becomes "2024-03-04").
func DateKey(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i == len(DateLayout) {
		return s[:i]
	}
	return s
}

// Upsert returns a new list with a appended and any earlier assignment for the
// same date and slot removed. The input slice is not modified.
func Upsert(plans []Assignment, a Assignment) []Assignment {
	key := DateKey(a.Date)
	slot := NormalizeSlot(a.Slot)

	out := make([]Assignment, 0, len(plans)+1)
	for _, p := range plans {
		if DateKey(p.Date) == key && NormalizeSlot(p.Slot) == slot {
			continue
		}
		out = append(out, p)
	}
	return append(out, a)
}
