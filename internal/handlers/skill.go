package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

const skillColumns = `id, user_id, name, points, created_at`

type SkillHandler struct {
	db *database.DB
}

func NewSkillHandler(db *database.DB) *SkillHandler {
	return &SkillHandler{db: db}
}

// CreateSkillRequest represents the skill creation body
type CreateSkillRequest struct {
	Name string `json:"name"`
}

// UpdateSkillRequest sets a skill's points
type UpdateSkillRequest struct {
	ID     int64 `json:"id"`
	Points *int  `json:"points"`
}

func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT `+skillColumns+` FROM skills WHERE user_id = $1 ORDER BY name
	`, claims.UserID)
	if err != nil {
		fail(w, r, err, "list skills")
		return
	}
	defer rows.Close()

	skills := []models.Skill{}
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Points, &s.CreatedAt); err != nil {
			fail(w, r, err, "list skills")
			return
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		fail(w, r, err, "list skills")
		return
	}
	writeData(w, http.StatusOK, skills)
}

func (h *SkillHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateSkillRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create skill")
		return
	}

	skill := models.Skill{UserID: claims.UserID, Name: strings.TrimSpace(req.Name)}
	if skill.Name == "" {
		fail(w, r, invalid("name", "Skill name is required"), "create skill")
		return
	}
	if tooLong(skill.Name, maxNameLen) {
		fail(w, r, invalid("name", "Skill name must be at most 100 characters"), "create skill")
		return
	}

	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO skills (user_id, name) VALUES ($1, $2)
		RETURNING id, points, created_at
	`, skill.UserID, skill.Name).Scan(&skill.ID, &skill.Points, &skill.CreatedAt)
	if database.IsUniqueViolation(err) {
		writeError(w, http.StatusConflict, "Skill already exists")
		return
	}
	if err != nil {
		fail(w, r, err, "create skill")
		return
	}
	writeData(w, http.StatusCreated, skill)
}

func (h *SkillHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateSkillRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "update skill")
		return
	}
	if req.ID <= 0 {
		fail(w, r, invalid("id", "A valid id is required"), "update skill")
		return
	}
	if req.Points == nil || *req.Points < 0 {
		fail(w, r, invalid("points", "Points must be zero or more"), "update skill")
		return
	}

	var s models.Skill
	err := h.db.QueryRowContext(r.Context(), `
		UPDATE skills SET points = $1 WHERE id = $2 AND user_id = $3
		RETURNING `+skillColumns, *req.Points, req.ID, claims.UserID,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.Points, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("skill")
	}
	if err != nil {
		fail(w, r, err, "update skill")
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *SkillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		fail(w, r, err, "delete skill")
		return
	}

	if err := deleteOwned(r.Context(), h.db, "skills", id, claims.UserID); err != nil {
		fail(w, r, wrapNotFound(err, "skill"), "delete skill")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]int64{"id": id}, "Skill deleted")
}
