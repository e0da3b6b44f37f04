package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

var taskCols = []string{"id", "user_id", "text", "date", "time", "completed", "created_at"}

func TestTaskList_DateAndBucket(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectQuery("FROM tasks WHERE user_id = (.+) AND date = (.+) ORDER BY date, time, id").
		WithArgs(testUserID, "2024-03-01").
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(1, testUserID, "Stretch", "2024-03-01", "07:30", false, time.Now()).
			AddRow(2, testUserID, "Standup", "2024-03-01", "13:00", false, time.Now()).
			AddRow(3, testUserID, "Whenever", "2024-03-01", "", false, time.Now()))

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/tasks?date=2024-03-01&bucket=morning", nil), testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tasks []models.Task
	decodeData(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Stretch", tasks[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskList_RejectsBadFilters(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	for _, target := range []string{"/api/tasks?bucket=brunch", "/api/tasks?date=03-01-2024"} {
		rec := httptest.NewRecorder()
		h.List(rec, asUser(httptest.NewRequest(http.MethodGet, target, nil), testUserID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCreate(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(testUserID, "Call mom", "2024-03-02", "18:15").
		WillReturnRows(sqlmock.NewRows([]string{"id", "completed", "created_at"}).AddRow(9, false, time.Now()))

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{
		"text": "Call mom", "date": "2024-03-02", "time": "18:15",
	}), testUserID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	decodeData(t, rec, &task)
	assert.Equal(t, int64(9), task.ID)

	for _, body := range []map[string]string{{"text": "  "}, {"text": "x", "time": "25:99"}} {
		rec := httptest.NewRecorder()
		h.Create(rec, asUser(jsonRequest(t, http.MethodPost, "/api/tasks", body), testUserID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCreate_PadsSingleDigitHour(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(testUserID, "Stretch", "2024-03-02", "09:05").
		WillReturnRows(sqlmock.NewRows([]string{"id", "completed", "created_at"}).AddRow(10, false, time.Now()))

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{
		"text": "Stretch", "date": "2024-03-02", "time": "9:05",
	}), testUserID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	decodeData(t, rec, &task)
	assert.Equal(t, "09:05", task.Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdate_TogglesWhenCompletedOmitted(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectQuery("UPDATE tasks SET completed = COALESCE").
		WithArgs(nil, nil, 9, testUserID).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(9, testUserID, "Call mom", "2024-03-02", "18:15", true, time.Now()))

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(t, http.MethodPut, "/api/tasks", map[string]int{"id": 9}), testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var task models.Task
	decodeData(t, rec, &task)
	assert.True(t, task.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdate_ExplicitAndNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectQuery("UPDATE tasks").
		WithArgs(false, "Call dad", 9, testUserID).
		WillReturnRows(sqlmock.NewRows(taskCols))

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(t, http.MethodPut, "/api/tasks", map[string]interface{}{
		"id": 9, "completed": false, "text": "Call dad",
	}), testUserID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decodeError(t, rec).Error)

	rec = httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(t, http.MethodPut, "/api/tasks", map[string]interface{}{"id": 9, "text": " "}), testUserID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskDelete(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewTaskHandler(db)

	mock.ExpectExec("DELETE FROM tasks WHERE id = (.+) AND user_id = (.+)").
		WithArgs(9, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(10, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/tasks?id=9", nil), testUserID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/tasks?id=10", nil), testUserID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/tasks?id=abc", nil), testUserID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
