package model

import (
	"fmt"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
)

var validMoods = map[Mood]bool{
	"":          true, // unset
	MoodHappy:   true,
	MoodSad:     true,
	MoodAnxious: true,
	MoodCalm:    true,
	MoodNeutral: true,
	MoodExcited: true,
	MoodTired:   true,
}

var validWeekdays = func() map[string]bool {
	m := make(map[string]bool, len(Weekdays))
	for _, d := range Weekdays {
		m[d] = true
	}
	return m
}()

// Validate checks the structural invariants of a snapshot. It runs at every
// trust boundary — decrypt output and remote fetch output — before the bytes
// are treated as a Snapshot. Returns apperror.ErrValidation on the first
// violation found.
func (s Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Activities))
	for _, a := range s.Activities {
		if a.ID == "" {
			return apperror.ValidationFailed("activities", "activity with empty id")
		}
		if seen[a.ID] {
			return apperror.ValidationFailed("activities",
				fmt.Sprintf("duplicate activity id %s", a.ID))
		}
		seen[a.ID] = true

		if a.Name == "" {
			return apperror.ValidationFailed("activities",
				fmt.Sprintf("activity %s has an empty name", a.ID))
		}
		if err := validateActiveDays(a); err != nil {
			return err
		}
	}

	for key, day := range s.Days {
		if _, ok := ParseDateKey(key); !ok {
			return apperror.ValidationFailed("dailyData",
				fmt.Sprintf("invalid date key %q", key))
		}
		if !validMoods[day.Mood] {
			return apperror.ValidationFailed("dailyData",
				fmt.Sprintf("unknown mood %q on %s", day.Mood, key))
		}
		if day.Energy < 0 || day.Energy > 5 {
			return apperror.ValidationFailed("dailyData",
				fmt.Sprintf("energy level %d on %s outside 1-5", day.Energy, key))
		}
	}

	for _, r := range s.Reminders {
		if _, err := time.Parse("15:04", r.Time); err != nil {
			return apperror.ValidationFailed("reminders",
				fmt.Sprintf("reminder %q has invalid time %q", r.Label, r.Time))
		}
	}

	return nil
}

func validateActiveDays(a Activity) error {
	// Empty means every day; so does the explicit sentinel on its own.
	if len(a.ActiveDays) == 0 {
		return nil
	}
	if len(a.ActiveDays) == 1 && a.ActiveDays[0] == EveryDay {
		return nil
	}
	for _, d := range a.ActiveDays {
		if !validWeekdays[d] {
			return apperror.ValidationFailed("activities",
				fmt.Sprintf("activity %s has unknown active day %q", a.ID, d))
		}
	}
	return nil
}
