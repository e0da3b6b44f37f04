package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

var journalCols = []string{"id", "user_id", "date", "notes", "gratitude", "vent", "mindset", "highlights", "lessons", "photos", "updated_at"}

func journalRow(date, notes, photos string) *sqlmock.Rows {
	return sqlmock.NewRows(journalCols).
		AddRow(1, testUserID, date, notes, "", "", "", "", "", []byte(photos), time.Now())
}

func TestJournalSave_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewJournalHandler(db, newFakeUploader(), 0)

	mock.ExpectQuery("INSERT INTO journal_entries (.+) ON CONFLICT \\(user_id, date\\) DO UPDATE").
		WithArgs(testUserID, "2024-03-01", "Good day", "Sunshine", "", "", "", "").
		WillReturnRows(journalRow("2024-03-01", "Good day", "{}"))

	rec := httptest.NewRecorder()
	h.Save(rec, asUser(jsonRequest(t, http.MethodPost, "/api/journal", map[string]string{
		"date": "2024-03-01", "notes": " Good day ", "gratitude": "Sunshine",
	}), testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entry models.JournalEntry
	decodeData(t, rec, &entry)
	assert.Equal(t, "Good day", entry.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalSave_RejectsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewJournalHandler(db, newFakeUploader(), 0)

	rec := httptest.NewRecorder()
	h.Save(rec, asUser(jsonRequest(t, http.MethodPost, "/api/journal", map[string]string{"notes": "   "}), testUserID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalGet(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewJournalHandler(db, newFakeUploader(), 0)

	mock.ExpectQuery("FROM journal_entries WHERE user_id = (.+) AND date").
		WithArgs(testUserID, "2024-03-01").
		WillReturnRows(journalRow("2024-03-01", "Good day", "{/uploads/a.png}"))
	mock.ExpectQuery("FROM journal_entries WHERE user_id = (.+) AND date").
		WithArgs(testUserID, "2024-03-02").
		WillReturnRows(sqlmock.NewRows(journalCols))
	mock.ExpectQuery("FROM journal_entries WHERE user_id = (.+) ORDER BY date DESC").
		WithArgs(testUserID).
		WillReturnRows(journalRow("2024-03-01", "Good day", "{}"))

	rec := httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/journal?date=2024-03-01", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entry models.JournalEntry
	decodeData(t, rec, &entry)
	assert.Equal(t, []string{"/uploads/a.png"}, []string(entry.Photos))

	rec = httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/journal?date=2024-03-02", nil), testUserID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Journal entry not found", decodeError(t, rec).Error)

	rec = httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/journal", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.JournalEntry
	decodeData(t, rec, &entries)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalAddPhoto(t *testing.T) {
	db, mock := newMockDB(t)
	uploader := newFakeUploader()
	h := NewJournalHandler(db, uploader, 0)

	mock.ExpectQuery("INSERT INTO journal_entries (.+) array_append").
		WithArgs(testUserID, "2024-03-01", sqlmock.AnyArg()).
		WillReturnRows(journalRow("2024-03-01", "", "{/uploads/journal-photos/x.png}"))

	rec := httptest.NewRecorder()
	h.AddPhoto(rec, asUser(imageRequest(t, "/api/journal/photos", pngBytes, map[string]string{"date": "2024-03-01"}), testUserID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, uploader.uploads, 1)
	for key := range uploader.uploads {
		assert.True(t, strings.HasPrefix(key, storage.BucketJournalPhotos+"/"+testUserID), key)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalDelete(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewJournalHandler(db, newFakeUploader(), 0)

	mock.ExpectExec("DELETE FROM journal_entries").
		WithArgs(testUserID, "2024-03-01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM journal_entries").
		WithArgs(testUserID, "2024-03-02").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/journal?date=2024-03-01", nil), testUserID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/journal?date=2024-03-02", nil), testUserID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/journal", nil), testUserID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
