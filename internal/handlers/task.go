package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/insights"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

const taskColumns = `id, user_id, text, date, time, completed, created_at`

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.Date, &t.Time, &t.Completed, &t.CreatedAt)
	return t, err
}

type TaskHandler struct {
	db *database.DB
}

func NewTaskHandler(db *database.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// CreateTaskRequest represents the task creation body
type CreateTaskRequest struct {
	Text string      `json:"text"`
	Date models.Date `json:"date"`
	Time string      `json:"time"`
}

// UpdateTaskRequest sets completed, or toggles it when omitted
type UpdateTaskRequest struct {
	ID        int64   `json:"id"`
	Completed *bool   `json:"completed"`
	Text      *string `json:"text"`
}

// List returns tasks, optionally for one date and one time-of-day bucket
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	bucket := r.URL.Query().Get("bucket")
	if bucket != "" && !insights.IsValidBucket(bucket) {
		fail(w, r, invalid("bucket", "Bucket must be morning, afternoon, evening or night"), "list tasks")
		return
	}

	date, err := optionalDate("date", r.URL.Query().Get("date"))
	if err != nil {
		fail(w, r, err, "list tasks")
		return
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []interface{}{claims.UserID}
	if !date.IsZero() {
		args = append(args, date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	query += " ORDER BY date, time, id"

	tasks, err := h.query(r.Context(), query, args...)
	if err != nil {
		fail(w, r, err, "list tasks")
		return
	}
	if bucket != "" {
		tasks = insights.FilterByBucket(tasks, bucket)
	}
	writeData(w, http.StatusOK, tasks)
}

// Create inserts a task with optional date (default today) and HH:MM time
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create task")
		return
	}

	task := models.Task{
		UserID: claims.UserID,
		Text:   strings.TrimSpace(req.Text),
		Date:   orToday(req.Date),
		Time:   strings.TrimSpace(req.Time),
	}
	if task.Text == "" {
		fail(w, r, invalid("text", "Task text is required"), "create task")
		return
	}
	if task.Time != "" {
		clock, err := insights.ParseClock(task.Time)
		if err != nil {
			fail(w, r, invalid("time", "Time must be HH:MM"), "create task")
			return
		}
		// stored zero-padded so ORDER BY time sorts 09:05 before 10:00
		task.Time = clock.Format("15:04")
	}

	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO tasks (user_id, text, date, time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, completed, created_at
	`, task.UserID, task.Text, task.Date, task.Time).Scan(&task.ID, &task.Completed, &task.CreatedAt)
	if err != nil {
		fail(w, r, err, "create task")
		return
	}
	writeData(w, http.StatusCreated, task)
}

// Update sets or toggles completion and optionally renames the task
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "update task")
		return
	}
	if req.ID <= 0 {
		fail(w, r, invalid("id", "A valid id is required"), "update task")
		return
	}

	var text interface{}
	if req.Text != nil {
		trimmed := strings.TrimSpace(*req.Text)
		if trimmed == "" {
			fail(w, r, invalid("text", "Task text is required"), "update task")
			return
		}
		text = trimmed
	}
	var completed interface{}
	if req.Completed != nil {
		completed = *req.Completed
	}

	task, err := scanTask(h.db.QueryRowContext(r.Context(), `
		UPDATE tasks
		SET completed = COALESCE($1::boolean, NOT completed),
			text = COALESCE($2::text, text)
		WHERE id = $3 AND user_id = $4
		RETURNING `+taskColumns, completed, text, req.ID, claims.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("task")
	}
	if err != nil {
		fail(w, r, err, "update task")
		return
	}
	writeData(w, http.StatusOK, task)
}

// Delete removes a task owned by the session user
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		fail(w, r, err, "delete task")
		return
	}

	if err := deleteOwned(r.Context(), h.db, "tasks", id, claims.UserID); err != nil {
		fail(w, r, wrapNotFound(err, "task"), "delete task")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]int64{"id": id}, "Task deleted")
}

func (h *TaskHandler) query(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
