package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Habit categories
const (
	HabitGood = "good"
	HabitBad  = "bad"
)

// Habit statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Habit is a tracked recurring behavior
type Habit struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Status    string          `json:"status"`
	Date      Date            `json:"date"`
	Entries   CalendarEntries `json:"entries"`
	CreatedAt time.Time       `json:"created_at"`
}

// CalendarEntry is the outcome recorded for one day
type CalendarEntry struct {
	Status string `json:"status"`
	Image  string `json:"image,omitempty"`
}

// CalendarEntries maps YYYY-MM-DD to that day's entry. Stored as JSONB.
type CalendarEntries map[string]CalendarEntry

// IsValidHabitCategory checks a habit category
func IsValidHabitCategory(c string) bool {
	return c == HabitGood || c == HabitBad
}

// IsValidStatus checks a habit status
func IsValidStatus(s string) bool {
	return s == StatusSuccess || s == StatusFailed
}

// ToggleStatus flips success and failed. Anything else becomes success.
func ToggleStatus(s string) string {
	if s == StatusSuccess {
		return StatusFailed
	}
	return StatusSuccess
}

// Merge sets the entry for date, keeping the existing image when the new
// entry carries none
func (c CalendarEntries) Merge(date Date, entry CalendarEntry) CalendarEntries {
	out := make(CalendarEntries, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	key := date.String()
	if entry.Image == "" {
		entry.Image = out[key].Image
	}
	out[key] = entry
	return out
}

// Value implements driver.Valuer
func (c CalendarEntries) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *CalendarEntries) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*c = CalendarEntries{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into CalendarEntries", src)
	}
	entries := CalendarEntries{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("invalid calendar entries: %w", err)
	}
	*c = entries
	return nil
}
