package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/redis"
)

const goalColumns = `id, user_id, title, start_date, end_date, progress, exp_reward, coin_reward, category, completed, created_at`

func scanGoal(row rowScanner) (models.Goal, error) {
	var g models.Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.StartDate, &g.EndDate, &g.Progress,
		&g.ExpReward, &g.CoinReward, &g.Category, &g.Completed, &g.CreatedAt)
	return g, err
}

// Leaderboard ranks users by experience
type Leaderboard interface {
	AddExperience(ctx context.Context, userID string, exp int) error
	SetExperience(ctx context.Context, userID string, exp int) error
	TopByExperience(ctx context.Context, limit int64) ([]redis.LeaderboardEntry, error)
}

type GoalHandler struct {
	db          *database.DB
	leaderboard Leaderboard
}

func NewGoalHandler(db *database.DB, leaderboard Leaderboard) *GoalHandler {
	return &GoalHandler{db: db, leaderboard: leaderboard}
}

// CreateGoalRequest represents the goal creation body
type CreateGoalRequest struct {
	Title      string      `json:"title"`
	StartDate  models.Date `json:"start_date"`
	EndDate    models.Date `json:"end_date"`
	ExpReward  int         `json:"exp_reward"`
	CoinReward int         `json:"coin_reward"`
	Category   string      `json:"category"`
}

// UpdateGoalRequest sets a goal's progress
type UpdateGoalRequest struct {
	ID       int64 `json:"id"`
	Progress *int  `json:"progress"`
}

// List returns goals, optionally filtered by category
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1`
	args := []interface{}{claims.UserID}
	if category := r.URL.Query().Get("category"); category != "" {
		if !models.IsValidGoalCategory(category) {
			fail(w, r, invalid("category", "Category must be growth or battle"), "list goals")
			return
		}
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY end_date, id`

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		fail(w, r, err, "list goals")
		return
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			fail(w, r, err, "list goals")
			return
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		fail(w, r, err, "list goals")
		return
	}
	writeData(w, http.StatusOK, goals)
}

// Create inserts a goal
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create goal")
		return
	}

	goal := models.Goal{
		UserID:     claims.UserID,
		Title:      strings.TrimSpace(req.Title),
		StartDate:  orToday(req.StartDate),
		EndDate:    req.EndDate,
		ExpReward:  req.ExpReward,
		CoinReward: req.CoinReward,
		Category:   req.Category,
	}
	if goal.Category == "" {
		goal.Category = models.GoalGrowth
	}
	if goal.EndDate.IsZero() {
		goal.EndDate = goal.StartDate
	}

	if err := validateGoal(&goal); err != nil {
		fail(w, r, err, "create goal")
		return
	}

	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO goals (user_id, title, start_date, end_date, exp_reward, coin_reward, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, progress, completed, created_at
	`, goal.UserID, goal.Title, goal.StartDate, goal.EndDate, goal.ExpReward, goal.CoinReward, goal.Category,
	).Scan(&goal.ID, &goal.Progress, &goal.Completed, &goal.CreatedAt)
	if err != nil {
		fail(w, r, err, "create goal")
		return
	}
	writeData(w, http.StatusCreated, goal)
}

// Update sets progress. The first time a goal reaches 100 it is completed
// and its rewards are credited in the same transaction.
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "update goal")
		return
	}
	if req.ID <= 0 {
		fail(w, r, invalid("id", "A valid id is required"), "update goal")
		return
	}
	if req.Progress == nil || *req.Progress < 0 || *req.Progress > 100 {
		fail(w, r, invalid("progress", "Progress must be between 0 and 100"), "update goal")
		return
	}

	goal, rewarded, err := h.setProgress(r.Context(), claims.UserID, req.ID, *req.Progress)
	if err != nil {
		fail(w, r, err, "update goal")
		return
	}

	if rewarded {
		if goal.ExpReward > 0 {
			if err := h.leaderboard.AddExperience(r.Context(), claims.UserID, goal.ExpReward); err != nil {
				logging.FromContext(r.Context(), "goals").WithError(err).Warn("Failed to update leaderboard")
			}
		}
		writeDataMessage(w, http.StatusOK, goal, "Goal completed")
		return
	}
	writeData(w, http.StatusOK, goal)
}

func (h *GoalHandler) setProgress(ctx context.Context, userID string, id int64, progress int) (models.Goal, bool, error) {
	var (
		goal     models.Goal
		rewarded bool
	)
	err := h.db.WithTx(ctx, func(tx *sql.Tx) error {
		var completed bool
		err := tx.QueryRowContext(ctx, `
			SELECT completed FROM goals WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, id, userID).Scan(&completed)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("goal")
		}
		if err != nil {
			return err
		}

		rewarded = !completed && progress == 100
		goal, err = scanGoal(tx.QueryRowContext(ctx, `
			UPDATE goals SET progress = $1, completed = $2
			WHERE id = $3 AND user_id = $4
			RETURNING `+goalColumns, progress, completed || rewarded, id, userID))
		if err != nil {
			return err
		}

		if rewarded {
			return creditRewards(ctx, tx, userID, goal.ExpReward, goal.CoinReward)
		}
		return nil
	})
	return goal, rewarded, err
}

// creditRewards adds exp and coins to the locked progress row and raises the
// level to match the new exp
func creditRewards(ctx context.Context, tx *sql.Tx, userID string, exp, coins int) error {
	var current int
	err := tx.QueryRowContext(ctx, `
		SELECT exp FROM user_progress WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("progress")
	}
	if err != nil {
		return err
	}

	newExp := current + exp
	_, err = tx.ExecContext(ctx, `
		UPDATE user_progress
		SET exp = $1, level = GREATEST(level, $2), balance = balance + $3
		WHERE user_id = $4
	`, newExp, models.LevelForExp(newExp), coins, userID)
	return err
}

// Delete removes a goal owned by the session user
func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		fail(w, r, err, "delete goal")
		return
	}

	if err := deleteOwned(r.Context(), h.db, "goals", id, claims.UserID); err != nil {
		fail(w, r, wrapNotFound(err, "goal"), "delete goal")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]int64{"id": id}, "Goal deleted")
}

func validateGoal(g *models.Goal) error {
	switch {
	case g.Title == "":
		return invalid("title", "Goal title is required")
	case tooLong(g.Title, maxTitleLen):
		return invalid("title", "Goal title must be at most 200 characters")
	case !models.IsValidGoalCategory(g.Category):
		return invalid("category", "Category must be growth or battle")
	case g.EndDate.Before(g.StartDate.Time):
		return invalid("end_date", "End date must not be before start date")
	case g.ExpReward < 0 || g.CoinReward < 0:
		return invalid("reward", "Rewards must not be negative")
	}
	return nil
}
