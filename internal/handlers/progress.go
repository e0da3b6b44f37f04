package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

const progressColumns = `user_id, balance, exp, level, hp, inventory, skill_points, updated_at`

func scanProgress(row rowScanner) (models.UserProgress, error) {
	var p models.UserProgress
	err := row.Scan(&p.UserID, &p.Balance, &p.Exp, &p.Level, &p.HP, &p.Inventory, &p.SkillPoints, &p.UpdatedAt)
	return p, err
}

type ProgressHandler struct {
	db *database.DB
}

func NewProgressHandler(db *database.DB) *ProgressHandler {
	return &ProgressHandler{db: db}
}

// UpdateProgressRequest updates only the provided fields
type UpdateProgressRequest struct {
	Level       *int     `json:"level"`
	SkillPoints *[]int64 `json:"skill_points"`
}

// SpentResponse sums the purchase history
type SpentResponse struct {
	Spent     int `json:"spent"`
	Purchases int `json:"purchases"`
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	progress, err := h.get(r.Context(), claims.UserID)
	if err != nil {
		fail(w, r, err, "load progress")
		return
	}
	writeData(w, http.StatusOK, progress)
}

func (h *ProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "update progress")
		return
	}
	if req.Level == nil && req.SkillPoints == nil {
		fail(w, r, invalid("body", "Nothing to update"), "update progress")
		return
	}

	var level, skillPoints interface{}
	if req.Level != nil {
		if *req.Level < 1 {
			fail(w, r, invalid("level", "Level must be at least 1"), "update progress")
			return
		}
		level = *req.Level
	}
	if req.SkillPoints != nil {
		for _, p := range *req.SkillPoints {
			if p < 0 {
				fail(w, r, invalid("skill_points", "Skill points must not be negative"), "update progress")
				return
			}
		}
		skillPoints = pq.Int64Array(*req.SkillPoints)
	}

	progress, err := scanProgress(h.db.QueryRowContext(r.Context(), `
		UPDATE user_progress
		SET level = COALESCE($1::integer, level),
			skill_points = COALESCE($2::integer[], skill_points)
		WHERE user_id = $3
		RETURNING `+progressColumns, level, skillPoints, claims.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("progress")
	}
	if err != nil {
		fail(w, r, err, "update progress")
		return
	}
	writeData(w, http.StatusOK, progress)
}

// Spent returns the total price of every purchase in the inventory
func (h *ProgressHandler) Spent(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var inventory models.Inventory
	err := h.db.QueryRowContext(r.Context(), `
		SELECT inventory FROM user_progress WHERE user_id = $1
	`, claims.UserID).Scan(&inventory)
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("progress")
	}
	if err != nil {
		fail(w, r, err, "load spending")
		return
	}
	writeData(w, http.StatusOK, SpentResponse{Spent: inventory.TotalSpent(), Purchases: len(inventory)})
}

func (h *ProgressHandler) get(ctx context.Context, userID string) (models.UserProgress, error) {
	progress, err := scanProgress(h.db.QueryRowContext(ctx, `
		SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return progress, notFound("progress")
	}
	return progress, err
}
