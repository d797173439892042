// Package preferences holds the versioned user settings and the stores they
// are loaded from and saved to.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meal-planner/internal/filter"
)

// CurrentVersion is written by Save. Version 1 records only carried dislikes.
const CurrentVersion = 2

const DefaultSuggestionCount = 9

// DefaultDislikes seeds a first run.
var DefaultDislikes = []string{"seafood", "pork", "star anise"}

// Preferences is passed explicitly into every derivation that needs it.
type Preferences struct {
	Version         int      `json:"version"`
	Dislikes        []string `json:"dislikes"`
	Pantry          []string `json:"pantry"`
	SuggestionCount int      `json:"suggestionCount"`
	// WeekStart is a weekday index, 0 = Sunday.
	WeekStart int `json:"weekStart"`
}

// Store loads and saves preferences. Load returns Default when nothing has
// been saved yet.
type Store interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
}

// Default returns the first-run preferences.
func Default() Preferences {
	return Preferences{
		Version:         CurrentVersion,
		Dislikes:        append([]string(nil), DefaultDislikes...),
		Pantry:          []string{},
		SuggestionCount: DefaultSuggestionCount,
		WeekStart:       int(time.Monday),
	}
}

// Migrate upgrades p to CurrentVersion, filling what older versions lacked
// and cleaning the token lists.
func Migrate(p Preferences) Preferences {
	def := Default()
	if p.Version < 1 && p.Dislikes == nil {
		p.Dislikes = def.Dislikes
	}
	if p.Version < 2 {
		p.WeekStart = def.WeekStart
	}
	if p.SuggestionCount <= 0 {
		p.SuggestionCount = def.SuggestionCount
	}
	if p.WeekStart < 0 || p.WeekStart > 6 {
		p.WeekStart = def.WeekStart
	}
	p.Dislikes = filter.NewTokenSet(p.Dislikes...).Tokens()
	p.Pantry = filter.NewTokenSet(p.Pantry...).Tokens()
	p.Version = CurrentVersion
	return p
}

// Weekday returns WeekStart as a time.Weekday.
func (p Preferences) Weekday() time.Weekday {
	return time.Weekday(p.WeekStart)
}

// Clone returns a copy that shares no slices with p.
func (p Preferences) Clone() Preferences {
	p.Dislikes = append([]string{}, p.Dislikes...)
	p.Pantry = append([]string{}, p.Pantry...)
	return p
}

func decode(data []byte) (Preferences, error) {
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return Migrate(p), nil
}

func encode(p Preferences) ([]byte, error) {
	p = Migrate(p)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return data, nil
}
