package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/insights"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

const habitColumns = `id, user_id, name, category, status, date, entries, created_at`

// maxHeatmapDays bounds the heat map range
const maxHeatmapDays = 731

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Category, &h.Status, &h.Date, &h.Entries, &h.CreatedAt)
	return h, err
}

type HabitHandler struct {
	db     *database.DB
	images imageUploader
}

func NewHabitHandler(db *database.DB, uploader storage.Uploader, maxUploadBytes int64) *HabitHandler {
	return &HabitHandler{db: db, images: newImageUploader(uploader, maxUploadBytes)}
}

// CreateHabitRequest represents the habit creation body
type CreateHabitRequest struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Status   string      `json:"status"`
	Date     models.Date `json:"date"`
}

// UpdateHabitRequest selects one of three updates: a status toggle, an
// explicit status or a calendar entry merge
type UpdateHabitRequest struct {
	ID         int64                 `json:"id"`
	ToggleOnly bool                  `json:"toggleOnly"`
	Status     string                `json:"status"`
	Date       models.Date           `json:"date"`
	Entry      *models.CalendarEntry `json:"entry"`
}

// List returns the user's habits, optionally filtered by category and date
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	args := []interface{}{claims.UserID}

	if category := r.URL.Query().Get("category"); category != "" {
		if !models.IsValidHabitCategory(category) {
			fail(w, r, invalid("category", "Category must be good or bad"), "list habits")
			return
		}
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	date, err := optionalDate("date", r.URL.Query().Get("date"))
	if err != nil {
		fail(w, r, err, "list habits")
		return
	}
	if !date.IsZero() {
		args = append(args, date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	habits, err := h.query(r.Context(), query, args...)
	if err != nil {
		fail(w, r, err, "list habits")
		return
	}
	writeData(w, http.StatusOK, habits)
}

// Create inserts a habit. The name is required; category defaults to good,
// status to failed and date to today.
func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateHabitRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create habit")
		return
	}

	habit := models.Habit{
		UserID:   claims.UserID,
		Name:     strings.TrimSpace(req.Name),
		Category: req.Category,
		Status:   req.Status,
		Date:     orToday(req.Date),
	}
	if habit.Category == "" {
		habit.Category = models.HabitGood
	}
	if habit.Status == "" {
		habit.Status = models.StatusFailed
	}

	switch {
	case habit.Name == "":
		fail(w, r, invalid("name", "Habit name is required"), "create habit")
		return
	case tooLong(habit.Name, maxNameLen):
		fail(w, r, invalid("name", "Habit name must be at most 100 characters"), "create habit")
		return
	case !models.IsValidHabitCategory(habit.Category):
		fail(w, r, invalid("category", "Category must be good or bad"), "create habit")
		return
	case !models.IsValidStatus(habit.Status):
		fail(w, r, invalid("status", "Status must be success or failed"), "create habit")
		return
	}

	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO habits (user_id, name, category, status, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, entries, created_at
	`, habit.UserID, habit.Name, habit.Category, habit.Status, habit.Date).Scan(&habit.ID, &habit.Entries, &habit.CreatedAt)
	if err != nil {
		fail(w, r, err, "create habit")
		return
	}

	writeData(w, http.StatusCreated, habit)
}

// Update toggles the status, sets it, or merges one calendar entry
func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateHabitRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "update habit")
		return
	}
	if req.ID <= 0 {
		fail(w, r, invalid("id", "A valid id is required"), "update habit")
		return
	}

	var (
		habit models.Habit
		err   error
	)
	switch {
	case req.ToggleOnly:
		habit, err = scanHabit(h.db.QueryRowContext(r.Context(), `
			UPDATE habits
			SET status = CASE WHEN status = 'success' THEN 'failed' ELSE 'success' END
			WHERE id = $1 AND user_id = $2
			RETURNING `+habitColumns, req.ID, claims.UserID))

	case req.Entry != nil:
		if !models.IsValidStatus(req.Entry.Status) {
			fail(w, r, invalid("entry.status", "Entry status must be success or failed"), "update habit")
			return
		}
		habit, err = h.mergeEntry(r.Context(), claims.UserID, req.ID, orToday(req.Date), *req.Entry)

	case req.Status != "":
		if !models.IsValidStatus(req.Status) {
			fail(w, r, invalid("status", "Status must be success or failed"), "update habit")
			return
		}
		habit, err = scanHabit(h.db.QueryRowContext(r.Context(), `
			UPDATE habits SET status = $1
			WHERE id = $2 AND user_id = $3
			RETURNING `+habitColumns, req.Status, req.ID, claims.UserID))

	default:
		fail(w, r, invalid("body", "Nothing to update"), "update habit")
		return
	}

	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("habit")
	}
	if err != nil {
		fail(w, r, err, "update habit")
		return
	}
	writeData(w, http.StatusOK, habit)
}

// Delete removes a habit owned by the session user
func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		fail(w, r, err, "delete habit")
		return
	}

	if err := deleteOwned(r.Context(), h.db, "habits", id, claims.UserID); err != nil {
		fail(w, r, wrapNotFound(err, "habit"), "delete habit")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]int64{"id": id}, "Habit deleted")
}

// Heatmap returns per-day success counts in [from, to]. Defaults to the
// year ending today.
func (h *HabitHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	to, err := optionalDate("to", r.URL.Query().Get("to"))
	if err != nil {
		fail(w, r, err, "build heatmap")
		return
	}
	to = orToday(to)

	from, err := optionalDate("from", r.URL.Query().Get("from"))
	if err != nil {
		fail(w, r, err, "build heatmap")
		return
	}
	if from.IsZero() {
		from = to.AddDays(-364)
	}

	if to.Before(from.Time) {
		fail(w, r, invalid("from", "from must not be after to"), "build heatmap")
		return
	}
	if from.AddDays(maxHeatmapDays).Before(to.Time) {
		fail(w, r, invalid("from", fmt.Sprintf("Range is limited to %d days", maxHeatmapDays)), "build heatmap")
		return
	}

	habits, err := h.query(r.Context(), `SELECT `+habitColumns+` FROM habits WHERE user_id = $1`, claims.UserID)
	if err != nil {
		fail(w, r, err, "build heatmap")
		return
	}

	writeData(w, http.StatusOK, insights.Heatmap(habits, from, to))
}

// Streak returns the current and longest success streak of one habit
func (h *HabitHandler) Streak(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err, "compute streak")
		return
	}

	habit, err := h.get(r.Context(), claims.UserID, id)
	if err != nil {
		fail(w, r, err, "compute streak")
		return
	}

	writeData(w, http.StatusOK, insights.ComputeStreak(habit, models.Today()))
}

// Checkin uploads a photo and marks the habit successful for the given date
func (h *HabitHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err, "check in")
		return
	}

	if err := h.images.parseForm(w, r); err != nil {
		fail(w, r, err, "check in")
		return
	}
	date, err := optionalDate("date", r.FormValue("date"))
	if err != nil {
		fail(w, r, err, "check in")
		return
	}

	// the habit must exist before anything is uploaded
	if _, err := h.get(r.Context(), claims.UserID, id); err != nil {
		fail(w, r, err, "check in")
		return
	}

	url, err := h.images.save(r, storage.BucketCheckins, claims.UserID)
	if err != nil {
		fail(w, r, err, "check in")
		return
	}

	habit, err := h.mergeEntry(r.Context(), claims.UserID, id, orToday(date), models.CalendarEntry{
		Status: models.StatusSuccess,
		Image:  url,
	})
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("habit")
	}
	if err != nil {
		fail(w, r, err, "check in")
		return
	}
	writeData(w, http.StatusOK, habit)
}

// mergeEntry sets one date in the habit's calendar, leaving other dates as
// they are. The row is locked while the map is rewritten.
func (h *HabitHandler) mergeEntry(ctx context.Context, userID string, id int64, date models.Date, entry models.CalendarEntry) (models.Habit, error) {
	var habit models.Habit
	err := h.db.WithTx(ctx, func(tx *sql.Tx) error {
		var entries models.CalendarEntries
		err := tx.QueryRowContext(ctx, `
			SELECT entries FROM habits WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, id, userID).Scan(&entries)
		if err != nil {
			return err
		}

		habit, err = scanHabit(tx.QueryRowContext(ctx, `
			UPDATE habits SET entries = $1
			WHERE id = $2 AND user_id = $3
			RETURNING `+habitColumns, entries.Merge(date, entry), id, userID))
		return err
	})
	return habit, err
}

func (h *HabitHandler) get(ctx context.Context, userID string, id int64) (models.Habit, error) {
	habit, err := scanHabit(h.db.QueryRowContext(ctx, `
		SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return habit, notFound("habit")
	}
	return habit, err
}

func (h *HabitHandler) query(ctx context.Context, query string, args ...interface{}) ([]models.Habit, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}
	return habits, rows.Err()
}

// deleteOwned deletes one row by id when it belongs to userID. It returns
// sql.ErrNoRows when nothing matched.
func deleteOwned(ctx context.Context, db *database.DB, table string, id int64, userID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what)
	}
	return err
}
