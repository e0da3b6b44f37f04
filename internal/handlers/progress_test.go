package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

func TestProgressGet(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewProgressHandler(db)

	mock.ExpectQuery("FROM user_progress WHERE user_id").
		WithArgs(testUserID).
		WillReturnRows(progressRow(120, 75, "[]"))

	rec := httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/progress", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress models.UserProgress
	decodeData(t, rec, &progress)
	assert.Equal(t, 120, progress.Balance)
	assert.Equal(t, 75, progress.HP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressGet_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewProgressHandler(db)

	mock.ExpectQuery("FROM user_progress").WillReturnRows(sqlmock.NewRows(progressCols))

	rec := httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/progress", nil), testUserID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Progress not found", decodeError(t, rec).Error)
}

func TestProgressUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewProgressHandler(db)

	mock.ExpectQuery("UPDATE user_progress SET level = COALESCE").
		WithArgs(nil, pq.Int64Array{2, 0, 5}, testUserID).
		WillReturnRows(progressRow(0, 100, "[]"))

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(t, http.MethodPut, "/api/progress", map[string]interface{}{
		"skill_points": []int{2, 0, 5},
	}), testUserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	invalidBodies := []map[string]interface{}{
		{},
		{"level": 0},
		{"skill_points": []int{1, -1}},
	}
	for _, body := range invalidBodies {
		rec := httptest.NewRecorder()
		h.Update(rec, asUser(jsonRequest(t, http.MethodPut, "/api/progress", body), testUserID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressSpent(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewProgressHandler(db)

	mock.ExpectQuery("SELECT inventory FROM user_progress").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"inventory"}).
			AddRow([]byte(`[{"catalog":"items","item_id":1,"name":"Potion","price":30},{"catalog":"hotels","item_id":2,"name":"Inn","price":45}]`)))

	rec := httptest.NewRecorder()
	h.Spent(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/progress/spent", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SpentResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, SpentResponse{Spent: 75, Purchases: 2}, resp)
	assert.NoError(t, mock.ExpectationsWereMet())
}
