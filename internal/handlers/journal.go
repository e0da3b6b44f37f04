package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

const journalColumns = `id, user_id, date, notes, gratitude, vent, mindset, highlights, lessons, photos, updated_at`

func scanJournal(row rowScanner) (models.JournalEntry, error) {
	var j models.JournalEntry
	err := row.Scan(&j.ID, &j.UserID, &j.Date, &j.Notes, &j.Gratitude, &j.Vent, &j.Mindset,
		&j.Highlights, &j.Lessons, &j.Photos, &j.UpdatedAt)
	return j, err
}

type JournalHandler struct {
	db     *database.DB
	images imageUploader
}

func NewJournalHandler(db *database.DB, uploader storage.Uploader, maxUploadBytes int64) *JournalHandler {
	return &JournalHandler{db: db, images: newImageUploader(uploader, maxUploadBytes)}
}

// JournalRequest is the body for saving a day's entry
type JournalRequest struct {
	Date       models.Date `json:"date"`
	Notes      string      `json:"notes"`
	Gratitude  string      `json:"gratitude"`
	Vent       string      `json:"vent"`
	Mindset    string      `json:"mindset"`
	Highlights string      `json:"highlights"`
	Lessons    string      `json:"lessons"`
}

// Get returns the entry for ?date=, or every entry newest first
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	date, err := optionalDate("date", r.URL.Query().Get("date"))
	if err != nil {
		fail(w, r, err, "load journal")
		return
	}

	if !date.IsZero() {
		entry, err := scanJournal(h.db.QueryRowContext(r.Context(), `
			SELECT `+journalColumns+` FROM journal_entries WHERE user_id = $1 AND date = $2
		`, claims.UserID, date))
		if errors.Is(err, sql.ErrNoRows) {
			err = notFound("journal entry")
		}
		if err != nil {
			fail(w, r, err, "load journal")
			return
		}
		writeData(w, http.StatusOK, entry)
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT `+journalColumns+` FROM journal_entries WHERE user_id = $1 ORDER BY date DESC
	`, claims.UserID)
	if err != nil {
		fail(w, r, err, "load journal")
		return
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		entry, err := scanJournal(rows)
		if err != nil {
			fail(w, r, err, "load journal")
			return
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		fail(w, r, err, "load journal")
		return
	}
	writeData(w, http.StatusOK, entries)
}

// Save upserts the entry for one date. Photos are kept on update.
func (h *JournalHandler) Save(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req JournalRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "save journal entry")
		return
	}

	entry := models.JournalEntry{
		UserID:     claims.UserID,
		Date:       orToday(req.Date),
		Notes:      strings.TrimSpace(req.Notes),
		Gratitude:  strings.TrimSpace(req.Gratitude),
		Vent:       strings.TrimSpace(req.Vent),
		Mindset:    strings.TrimSpace(req.Mindset),
		Highlights: strings.TrimSpace(req.Highlights),
		Lessons:    strings.TrimSpace(req.Lessons),
	}
	if entry.IsEmpty() {
		fail(w, r, invalid("body", "Journal entry is empty"), "save journal entry")
		return
	}

	saved, err := scanJournal(h.db.QueryRowContext(r.Context(), `
		INSERT INTO journal_entries (user_id, date, notes, gratitude, vent, mindset, highlights, lessons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, date) DO UPDATE SET
			notes = EXCLUDED.notes,
			gratitude = EXCLUDED.gratitude,
			vent = EXCLUDED.vent,
			mindset = EXCLUDED.mindset,
			highlights = EXCLUDED.highlights,
			lessons = EXCLUDED.lessons,
			updated_at = NOW()
		RETURNING `+journalColumns,
		entry.UserID, entry.Date, entry.Notes, entry.Gratitude, entry.Vent, entry.Mindset, entry.Highlights, entry.Lessons))
	if err != nil {
		fail(w, r, err, "save journal entry")
		return
	}
	writeData(w, http.StatusOK, saved)
}

// AddPhoto uploads an image and appends it to the entry for the date,
// creating the entry when there is none yet
func (h *JournalHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.images.parseForm(w, r); err != nil {
		fail(w, r, err, "add photo")
		return
	}
	date, err := optionalDate("date", r.FormValue("date"))
	if err != nil {
		fail(w, r, err, "add photo")
		return
	}

	url, err := h.images.save(r, storage.BucketJournalPhotos, claims.UserID)
	if err != nil {
		fail(w, r, err, "add photo")
		return
	}

	entry, err := scanJournal(h.db.QueryRowContext(r.Context(), `
		INSERT INTO journal_entries (user_id, date, photos)
		VALUES ($1, $2, ARRAY[$3::text])
		ON CONFLICT (user_id, date) DO UPDATE SET
			photos = array_append(journal_entries.photos, $3::text),
			updated_at = NOW()
		RETURNING `+journalColumns, claims.UserID, orToday(date), url))
	if err != nil {
		fail(w, r, err, "add photo")
		return
	}
	writeData(w, http.StatusCreated, entry)
}

// Delete removes the entry for ?date=
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	date, err := optionalDate("date", r.URL.Query().Get("date"))
	if err == nil && date.IsZero() {
		err = invalid("date", "date is required")
	}
	if err != nil {
		fail(w, r, err, "delete journal entry")
		return
	}

	result, err := h.db.ExecContext(r.Context(), `
		DELETE FROM journal_entries WHERE user_id = $1 AND date = $2
	`, claims.UserID, date)
	if err != nil {
		fail(w, r, err, "delete journal entry")
		return
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		if err == nil {
			err = notFound("journal entry")
		}
		fail(w, r, err, "delete journal entry")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]string{"date": date.String()}, "Journal entry deleted")
}
