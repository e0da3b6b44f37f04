package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

func TestThreadCreate_InsertsTweetsInOrder(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewThreadHandler(db, newFakeUploader(), 0)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO threads").
		WithArgs(testUserID, "Launch week").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))
	prep := mock.ExpectPrepare("INSERT INTO tweets")
	prep.ExpectQuery().
		WithArgs(7, 0, "Day one", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(70))
	prep.ExpectQuery().
		WithArgs(7, 1, "Day two", "https://img.example/2.png").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(71))
	mock.ExpectCommit()

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(t, http.MethodPost, "/api/threads", map[string]interface{}{
		"title": "Launch week",
		"tweets": []map[string]string{
			{"content": "Day one"},
			{"content": "   "},
			{"content": "Day two", "image_url": "https://img.example/2.png"},
		},
	}), testUserID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var thread models.Thread
	decodeData(t, rec, &thread)
	require.Len(t, thread.Tweets, 2)
	assert.Equal(t, 1, thread.Tweets[1].Position)
	assert.Equal(t, int64(71), thread.Tweets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadCreate_Validation(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewThreadHandler(db, newFakeUploader(), 0)

	for _, body := range []map[string]interface{}{
		{"title": "", "tweets": []map[string]string{{"content": "hi"}}},
		{"title": "Empty", "tweets": []map[string]string{{"content": " "}}},
		{"title": "None"},
		{"title": strings.Repeat("t", 201), "tweets": []map[string]string{{"content": "hi"}}},
	} {
		rec := httptest.NewRecorder()
		h.Create(rec, asUser(jsonRequest(t, http.MethodPost, "/api/threads", body), testUserID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadList_GroupsTweets(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewThreadHandler(db, newFakeUploader(), 0)

	mock.ExpectQuery("FROM threads WHERE user_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at"}).
			AddRow(2, testUserID, "Newer", time.Now()).
			AddRow(1, testUserID, "Older", time.Now().Add(-time.Hour)))
	mock.ExpectQuery("FROM tweets WHERE thread_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "thread_id", "position", "content", "image_url"}).
			AddRow(10, 1, 0, "first", "").
			AddRow(20, 2, 0, "a", "").
			AddRow(21, 2, 1, "b", ""))

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/threads", nil), testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var threads []models.Thread
	decodeData(t, rec, &threads)
	require.Len(t, threads, 2)
	assert.Equal(t, "Newer", threads[0].Title)
	assert.Len(t, threads[0].Tweets, 2)
	assert.Len(t, threads[1].Tweets, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadList_EmptySkipsTweets(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewThreadHandler(db, newFakeUploader(), 0)

	mock.ExpectQuery("FROM threads").WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at"}))

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/threads", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadTweetImage(t *testing.T) {
	db, mock := newMockDB(t)
	uploader := newFakeUploader()
	h := NewThreadHandler(db, uploader, 0)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 1, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("UPDATE tweets SET image_url").
		WithArgs(sqlmock.AnyArg(), 7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "thread_id", "position", "content", "image_url"}).
			AddRow(71, 7, 1, "Day two", "/uploads/thread-images/x.png"))

	req := imageRequest(t, "/api/threads/7/tweets/1/image", pngBytes, nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7", "position": "1"})
	rec := httptest.NewRecorder()
	h.TweetImage(rec, asUser(req, testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, uploader.uploads, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadTweetImage_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	uploader := newFakeUploader()
	h := NewThreadHandler(db, uploader, 0)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 3, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	req := imageRequest(t, "/api/threads/7/tweets/3/image", pngBytes, nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7", "position": "3"})
	rec := httptest.NewRecorder()
	h.TweetImage(rec, asUser(req, testUserID))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, uploader.uploads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadDelete(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewThreadHandler(db, newFakeUploader(), 0)

	mock.ExpectExec("DELETE FROM threads WHERE id").
		WithArgs(7, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/threads/7", nil), map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(req, testUserID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
