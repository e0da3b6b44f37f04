package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents a user account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is a dated to-do item
type Task struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Date      Date      `json:"date"`
	Time      string    `json:"time,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal categories
const (
	GoalGrowth = "growth"
	GoalBattle = "battle"
)

// Goal is a growth or battle objective with completion rewards
type Goal struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	StartDate  Date      `json:"start_date"`
	EndDate    Date      `json:"end_date"`
	Progress   int       `json:"progress"`
	ExpReward  int       `json:"exp_reward"`
	CoinReward int       `json:"coin_reward"`
	Category   string    `json:"category"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsValidGoalCategory checks a goal category
func IsValidGoalCategory(c string) bool {
	return c == GoalGrowth || c == GoalBattle
}

// Skill is a named skill the user levels by assigning points
type Skill struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxHP caps hit points restored by hotels
const MaxHP = 100

// UserProgress is the single RPG state row per user
type UserProgress struct {
	UserID      string        `json:"user_id"`
	Balance     int           `json:"balance"`
	Exp         int           `json:"exp"`
	Level       int           `json:"level"`
	HP          int           `json:"hp"`
	Inventory   Inventory     `json:"inventory"`
	SkillPoints pq.Int64Array `json:"skill_points"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// LevelForExp derives the level from accumulated experience
func LevelForExp(exp int) int {
	if exp < 0 {
		return 1
	}
	return 1 + exp/100
}

// JournalEntry is one day of journaling, unique per user and date
type JournalEntry struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	Date       Date           `json:"date"`
	Notes      string         `json:"notes"`
	Gratitude  string         `json:"gratitude"`
	Vent       string         `json:"vent"`
	Mindset    string         `json:"mindset"`
	Highlights string         `json:"highlights"`
	Lessons    string         `json:"lessons"`
	Photos     pq.StringArray `json:"photos"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsEmpty reports whether every free-text section is blank
func (j *JournalEntry) IsEmpty() bool {
	for _, s := range []string{j.Notes, j.Gratitude, j.Vent, j.Mindset, j.Highlights, j.Lessons} {
		if s != "" {
			return false
		}
	}
	return true
}

// Thread is an ordered series of tweets
type Thread struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Tweets    []Tweet   `json:"tweets"`
	CreatedAt time.Time `json:"created_at"`
}

// Tweet is one post in a thread
type Tweet struct {
	ID       int64  `json:"id"`
	ThreadID int64  `json:"thread_id"`
	Position int    `json:"position"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}
