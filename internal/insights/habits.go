// Package insights derives heat maps, streaks and time-of-day buckets from
// rows already loaded for a user.
package insights

import (
	"sort"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

// HeatmapDay is the number of successful habits on one date
type HeatmapDay struct {
	Date      string `json:"date"`
	Successes int    `json:"successes"`
}

// successDays returns the set of dates on which h succeeded. The calendar
// entry for a date overrides the habit's own status/date pair.
func successDays(h models.Habit) map[string]bool {
	days := make(map[string]bool, len(h.Entries)+1)
	if !h.Date.IsZero() && h.Status == models.StatusSuccess {
		days[h.Date.String()] = true
	}
	for date, entry := range h.Entries {
		if entry.Status == models.StatusSuccess {
			days[date] = true
		} else {
			delete(days, date)
		}
	}
	return days
}

// Heatmap counts successes per day in [from, to], inclusive. Days without
// successes are included with a zero count so the result is dense.
func Heatmap(habits []models.Habit, from, to models.Date) []HeatmapDay {
	if to.Before(from.Time) {
		return []HeatmapDay{}
	}

	counts := make(map[string]int)
	for _, h := range habits {
		for date := range successDays(h) {
			counts[date]++
		}
	}

	var out []HeatmapDay
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		key := d.String()
		out = append(out, HeatmapDay{Date: key, Successes: counts[key]})
	}
	return out
}

// Streak describes consecutive successful days for one habit
type Streak struct {
	Current int    `json:"current"`
	Longest int    `json:"longest"`
	LastDay string `json:"last_day,omitempty"`
}

// ComputeStreak finds the longest run of consecutive successful days and the
// run that ends today or yesterday (the current streak).
func ComputeStreak(h models.Habit, today models.Date) Streak {
	days := successDays(h)
	if len(days) == 0 {
		return Streak{}
	}

	dates := make([]models.Date, 0, len(days))
	for key := range days {
		d, err := models.ParseDate(key)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return Streak{}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j].Time) })

	var s Streak
	run := 0
	for i, d := range dates {
		if i > 0 && dates[i-1].AddDays(1).Equal(d.Time) {
			run++
		} else {
			run = 1
		}
		if run > s.Longest {
			s.Longest = run
		}
	}

	last := dates[len(dates)-1]
	s.LastDay = last.String()
	if last.Equal(today.Time) || last.AddDays(1).Equal(today.Time) {
		s.Current = run
	}
	return s
}
