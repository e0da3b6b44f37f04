package insights

import (
	"fmt"
	"time"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

// Time-of-day buckets
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	Night     = "night"
)

// IsValidBucket checks a bucket name
func IsValidBucket(b string) bool {
	switch b {
	case Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}

// ParseClock validates an HH:MM time of day
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t, nil
}

// BucketFor returns the bucket for an HH:MM time, or "" when the time is
// empty or malformed
func BucketFor(clock string) string {
	if clock == "" {
		return ""
	}
	t, err := ParseClock(clock)
	if err != nil {
		return ""
	}
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 21:
		return Evening
	default:
		return Night
	}
}

// FilterByBucket keeps tasks whose time falls in bucket
func FilterByBucket(tasks []models.Task, bucket string) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if BucketFor(t.Time) == bucket {
			out = append(out, t)
		}
	}
	return out
}
